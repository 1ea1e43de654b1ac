package worker

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"quiz-assistant/internal/models"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrRunnerClosed = errors.New("runner is shut down")
)

// Store persists tasks and their status transitions
type Store interface {
	Create(ctx context.Context, task models.Task) error
	UpdateStatus(ctx context.Context, id string, status models.TaskStatus, errMsg string) error
	Get(ctx context.Context, id string) (models.Task, error)
	// ListUnfinished returns pending and running tasks, oldest first
	ListUnfinished(ctx context.Context) ([]models.Task, error)
}

// MemoryStore keeps tasks in process memory. Finished tasks are never pruned.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]models.Task
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[string]models.Task)}
}

func (s *MemoryStore) Create(_ context.Context, task models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task
	return nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id string, status models.TaskStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	task.Status = status
	task.Error = errMsg
	task.UpdatedAt = time.Now().UTC()
	s.tasks[id] = task
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return models.Task{}, ErrTaskNotFound
	}
	return task, nil
}

func (s *MemoryStore) ListUnfinished(_ context.Context) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tasks []models.Task
	for _, task := range s.tasks {
		if !task.Status.Finished() {
			tasks = append(tasks, task)
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}
