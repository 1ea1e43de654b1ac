package db

import "context"

// Migrate creates the journal schema if it does not exist
func (d *DB) Migrate(ctx context.Context) error {
	return d.WithLock(func() error {
		_, err := d.db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS tasks (
				id TEXT PRIMARY KEY,
				generated_pdf_id TEXT NOT NULL,
				be_url TEXT NOT NULL,
				question TEXT NOT NULL,
				status TEXT NOT NULL CHECK(status IN ('pending', 'running', 'succeeded', 'failed')),
				error TEXT,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			)
		`)
		if err != nil {
			return err
		}

		_, err = d.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status)")
		return err
	})
}
