package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"quiz-assistant/internal/models"
	"quiz-assistant/internal/worker"
)

var _ worker.Store = (*DB)(nil)

// Create inserts a new task
func (d *DB) Create(ctx context.Context, task models.Task) error {
	return d.WithLock(func() error {
		_, err := d.db.ExecContext(ctx,
			`INSERT INTO tasks (id, generated_pdf_id, be_url, question, status, error, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			task.ID, task.GeneratedPdfID, task.BeURL, task.Question, string(task.Status),
			nullString(task.Error), task.CreatedAt, task.UpdatedAt,
		)
		return err
	})
}

// UpdateStatus records a status transition
func (d *DB) UpdateStatus(ctx context.Context, id string, status models.TaskStatus, errMsg string) error {
	return d.WithLock(func() error {
		result, err := d.db.ExecContext(ctx,
			`UPDATE tasks SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
			string(status), nullString(errMsg), time.Now().UTC(), id,
		)
		if err != nil {
			return err
		}

		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return worker.ErrTaskNotFound
		}
		return nil
	})
}

// Get retrieves a task by ID
func (d *DB) Get(ctx context.Context, id string) (models.Task, error) {
	return WithLockResult(d, func() (models.Task, error) {
		row := d.db.QueryRowContext(ctx,
			`SELECT id, generated_pdf_id, be_url, question, status, error, created_at, updated_at
			 FROM tasks WHERE id = ?`,
			id,
		)

		task, err := scanTask(row)
		if errors.Is(err, sql.ErrNoRows) {
			return models.Task{}, worker.ErrTaskNotFound
		}
		return task, err
	})
}

// ListUnfinished retrieves pending and running tasks, oldest first
func (d *DB) ListUnfinished(ctx context.Context) ([]models.Task, error) {
	return WithLockResult(d, func() ([]models.Task, error) {
		rows, err := d.db.QueryContext(ctx,
			`SELECT id, generated_pdf_id, be_url, question, status, error, created_at, updated_at
			 FROM tasks WHERE status IN ('pending', 'running') ORDER BY created_at ASC`,
		)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var tasks []models.Task
		for rows.Next() {
			task, err := scanTask(rows)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, task)
		}
		return tasks, rows.Err()
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (models.Task, error) {
	var task models.Task
	var status string
	var errMsg sql.NullString

	err := s.Scan(&task.ID, &task.GeneratedPdfID, &task.BeURL, &task.Question,
		&status, &errMsg, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return models.Task{}, err
	}

	task.Status = models.TaskStatus(status)
	if errMsg.Valid {
		task.Error = errMsg.String
	}
	return task, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
