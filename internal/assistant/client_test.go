package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
)

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient("test-api-key")

	if client.api == nil {
		t.Fatal("expected underlying API client to be initialized")
	}
	if client.httpClient.Timeout != defaultTimeout {
		t.Errorf("expected timeout %v, got %v", defaultTimeout, client.httpClient.Timeout)
	}
}

func TestClient_SetsBetaHeader(t *testing.T) {
	api := &fakeAssistantsAPI{}
	server := newFakeServer(t, api)

	client := NewClient("test-api-key", WithBaseURL(server.URL))

	if _, err := client.CreateThread(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	headers := api.headers()
	if len(headers) != 1 || headers[0] != "assistants=v2" {
		t.Errorf("expected OpenAI-Beta 'assistants=v2', got %v", headers)
	}
}

func TestCreateThread_Success(t *testing.T) {
	api := &fakeAssistantsAPI{}
	server := newFakeServer(t, api)
	client := NewClient("test-api-key", WithBaseURL(server.URL))

	threadID, err := client.CreateThread(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if threadID != "thread_1" {
		t.Errorf("expected ID 'thread_1', got '%s'", threadID)
	}
}

func TestCreateThread_APIError(t *testing.T) {
	api := &fakeAssistantsAPI{failCreateThread: true}
	server := newFakeServer(t, api)
	client := NewClient("test-api-key", WithBaseURL(server.URL))

	_, err := client.CreateThread(context.Background())
	if err == nil {
		t.Fatal("expected error for failed thread creation")
	}

	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected openai.APIError in chain, got %T", err)
	}
	if apiErr.HTTPStatusCode != 500 {
		t.Errorf("expected status 500, got %d", apiErr.HTTPStatusCode)
	}
}

func TestCreateMessage_Success(t *testing.T) {
	api := &fakeAssistantsAPI{}
	server := newFakeServer(t, api)
	client := NewClient("test-api-key", WithBaseURL(server.URL))

	msg, err := client.CreateMessage(context.Background(), "thread_123", "user", "Hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if msg.Role != "user" {
		t.Errorf("expected role 'user', got '%s'", msg.Role)
	}
	posted := api.posted()
	if len(posted) != 1 || posted[0] != "user:Hello" {
		t.Errorf("expected posted message 'user:Hello', got %v", posted)
	}
}

func TestListMessages_Success(t *testing.T) {
	api := &fakeAssistantsAPI{
		messages: []map[string]any{
			textMessage("assistant", "newest"),
			textMessage("user", "oldest"),
		},
	}
	server := newFakeServer(t, api)
	client := NewClient("test-api-key", WithBaseURL(server.URL))

	messages, err := client.ListMessages(context.Background(), "thread_123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Role != "assistant" {
		t.Errorf("expected first message role 'assistant', got '%s'", messages[0].Role)
	}
	if messages[0].Content[0].Text == nil || messages[0].Content[0].Text.Value != "newest" {
		t.Errorf("expected first message text 'newest', got %+v", messages[0].Content[0])
	}
}

func TestCreateRunAndGetRun_Success(t *testing.T) {
	api := &fakeAssistantsAPI{statuses: []string{"completed"}}
	server := newFakeServer(t, api)
	client := NewClient("test-api-key", WithBaseURL(server.URL))

	run, err := client.CreateRun(context.Background(), "thread_123", "asst_123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.ID != "run_123" {
		t.Errorf("expected ID 'run_123', got '%s'", run.ID)
	}
	if run.Status != openai.RunStatusQueued {
		t.Errorf("expected status 'queued', got '%s'", run.Status)
	}

	run, err = client.GetRun(context.Background(), "thread_123", run.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Status != openai.RunStatusCompleted {
		t.Errorf("expected status 'completed', got '%s'", run.Status)
	}
}

func TestDeleteThread_Success(t *testing.T) {
	api := &fakeAssistantsAPI{}
	server := newFakeServer(t, api)
	client := NewClient("test-api-key", WithBaseURL(server.URL))

	if err := client.DeleteThread(context.Background(), "thread_123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deleted := api.deleted()
	if len(deleted) != 1 || deleted[0] != "thread_123" {
		t.Errorf("expected thread_123 deleted, got %v", deleted)
	}
}

func TestExtractAnswer(t *testing.T) {
	tests := []struct {
		name    string
		content []openai.MessageContent
		want    string
	}{
		{
			name:    "empty",
			content: nil,
			want:    "",
		},
		{
			name: "two text blocks",
			content: []openai.MessageContent{
				{Type: "text", Text: &openai.MessageText{Value: "A"}},
				{Type: "text", Text: &openai.MessageText{Value: "B"}},
			},
			want: "A B",
		},
		{
			name: "skips non-text blocks",
			content: []openai.MessageContent{
				{Type: "image_file"},
				{Type: "text", Text: &openai.MessageText{Value: "only"}},
				{Type: "text"},
			},
			want: "only",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractAnswer(tt.content); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
