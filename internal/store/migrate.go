package store

import (
	"context"
	"errors"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		nick_name TEXT NOT NULL,
		email TEXT,
		create_time INTEGER NOT NULL,
		update_time INTEGER NOT NULL,
		UNIQUE(nick_name)
	);`,
	`CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		description TEXT,
		price_cents INTEGER NOT NULL,
		stock INTEGER NOT NULL DEFAULT 0,
		category TEXT,
		create_time INTEGER NOT NULL,
		update_time INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id TEXT NOT NULL,
		method TEXT NOT NULL,
		path TEXT NOT NULL,
		actor TEXT,
		status INTEGER NOT NULL,
		duration_us INTEGER NOT NULL,
		at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_audit_log_at ON audit_log(at);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}
	return nil
}
