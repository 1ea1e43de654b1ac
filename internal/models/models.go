package models

import "time"

// TaskStatus is the lifecycle state of a quiz task
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusSucceeded TaskStatus = "succeeded"
	TaskStatusFailed    TaskStatus = "failed"
)

// Finished reports whether no further transitions are expected
func (s TaskStatus) Finished() bool {
	return s == TaskStatusSucceeded || s == TaskStatusFailed
}

// Task is one accepted quiz request and the state of its background work
type Task struct {
	ID             string     `json:"id"`
	GeneratedPdfID string     `json:"generatedPdfId"`
	BeURL          string     `json:"-"`
	Question       string     `json:"-"`
	Status         TaskStatus `json:"status"`
	Error          string     `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}
