package assistant

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// CreateThread creates a new thread and returns its ID
func (c *Client) CreateThread(ctx context.Context) (string, error) {
	c.logger.Debug("CreateThread started")

	thread, err := c.api.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		c.logger.Warn("CreateThread failed", zap.Error(err))
		return "", fmt.Errorf("failed to create thread: %w", err)
	}

	c.logger.Info("CreateThread completed", zap.String("thread_id", thread.ID))
	return thread.ID, nil
}

// DeleteThread deletes a thread
func (c *Client) DeleteThread(ctx context.Context, threadID string) error {
	if _, err := c.api.DeleteThread(ctx, threadID); err != nil {
		c.logger.Warn("DeleteThread failed", zap.String("thread_id", threadID), zap.Error(err))
		return fmt.Errorf("failed to delete thread: %w", err)
	}

	c.logger.Info("DeleteThread completed", zap.String("thread_id", threadID))
	return nil
}

// CreateMessage adds a message to a thread
func (c *Client) CreateMessage(ctx context.Context, threadID, role, content string) (openai.Message, error) {
	preview := content
	if len(preview) > 50 {
		preview = preview[:50] + "..."
	}
	c.logger.Debug("CreateMessage started",
		zap.String("thread_id", threadID), zap.String("role", role), zap.String("content_preview", preview))

	msg, err := c.api.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    role,
		Content: content,
	})
	if err != nil {
		c.logger.Warn("CreateMessage failed", zap.String("thread_id", threadID), zap.Error(err))
		return openai.Message{}, fmt.Errorf("failed to create message: %w", err)
	}

	c.logger.Info("CreateMessage completed",
		zap.String("thread_id", threadID), zap.String("message_id", msg.ID), zap.Int("content_length", len(content)))
	return msg, nil
}

// ListMessages retrieves the messages of a thread, most recent first
func (c *Client) ListMessages(ctx context.Context, threadID string) ([]openai.Message, error) {
	list, err := c.api.ListMessage(ctx, threadID, nil, nil, nil, nil)
	if err != nil {
		c.logger.Warn("ListMessages failed", zap.String("thread_id", threadID), zap.Error(err))
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	c.logger.Info("ListMessages completed", zap.String("thread_id", threadID), zap.Int("message_count", len(list.Messages)))
	return list.Messages, nil
}

// CreateRun starts a run of the given assistant on a thread
func (c *Client) CreateRun(ctx context.Context, threadID, assistantID string) (openai.Run, error) {
	c.logger.Debug("CreateRun started", zap.String("thread_id", threadID), zap.String("assistant_id", assistantID))

	run, err := c.api.CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID: assistantID,
	})
	if err != nil {
		c.logger.Warn("CreateRun failed",
			zap.String("thread_id", threadID), zap.String("assistant_id", assistantID), zap.Error(err))
		return openai.Run{}, fmt.Errorf("failed to create run: %w", err)
	}

	c.logger.Info("CreateRun completed", zap.String("run_id", run.ID), zap.String("status", string(run.Status)))
	return run, nil
}

// GetRun retrieves the current state of a run
func (c *Client) GetRun(ctx context.Context, threadID, runID string) (openai.Run, error) {
	run, err := c.api.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		c.logger.Warn("GetRun failed", zap.String("thread_id", threadID), zap.String("run_id", runID), zap.Error(err))
		return openai.Run{}, fmt.Errorf("failed to retrieve run: %w", err)
	}

	c.logger.Debug("GetRun completed", zap.String("run_id", run.ID), zap.String("status", string(run.Status)))
	return run, nil
}
