package db

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite task journal with mutex-based exclusive access
type DB struct {
	db    *sql.DB
	mutex sync.Mutex
}

// NewDB opens the journal at dbPath and verifies the connection
func NewDB(dbPath string) (*DB, error) {
	// Enable WAL mode via connection string
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000"

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}

	// Single connection so the mutex fully serializes access
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	return &DB{db: sqlDB}, nil
}

// Open opens the journal and runs migrations
func Open(dbPath string) (*DB, error) {
	d, err := NewDB(dbPath)
	if err != nil {
		return nil, err
	}
	if err := d.Migrate(context.Background()); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}
	return d, nil
}

// WithLock executes a function with exclusive database access
func (d *DB) WithLock(fn func() error) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return fn()
}

// WithLockResult executes a function with exclusive database access and returns a result
func WithLockResult[T any](d *DB, fn func() (T, error)) (T, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return fn()
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}
