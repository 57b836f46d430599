package repository

import (
	"context"
	"fmt"
)

// Dialect-neutral DDL: TEXT ids and RFC 3339 timestamps keep the same
// statements valid on Postgres and SQLite.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		original_filename TEXT NOT NULL,
		stored_path TEXT NOT NULL,
		status TEXT NOT NULL,
		raw_text TEXT,
		extracted_json TEXT,
		normalized_text TEXT NOT NULL DEFAULT '',
		ocr_used INTEGER NOT NULL DEFAULT 0,
		contact_phone TEXT,
		age_years INTEGER,
		experience_years INTEGER,
		error_message TEXT NOT NULL DEFAULT '',
		processing_log TEXT NOT NULL DEFAULT '[]',
		uploaded_at TEXT NOT NULL,
		processed_at TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_owner_status ON documents (owner_id, status)`,
	`CREATE TABLE IF NOT EXISTS presets (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		keywords TEXT NOT NULL DEFAULT '[]',
		keywords_mode TEXT NOT NULL DEFAULT 'all',
		exclude_terms TEXT NOT NULL DEFAULT '[]',
		age_min INTEGER,
		age_max INTEGER,
		experience_min INTEGER,
		experience_max INTEGER,
		created_at TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_presets_owner_name ON presets (owner_id, name)`,
}

// EnsureSchema creates missing tables and indexes.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	s.logger.Debug("schema ensured")
	return nil
}
