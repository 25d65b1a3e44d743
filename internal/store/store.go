// Package store persists translation memory, glossary terms and run history
// in a local SQLite database.
package store

import (
	"database/sql"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Concurrent translation workers share the store; one connection keeps
	// SQLite writers from tripping over each other.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

// migrations run in order on every open; each statement is idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS translation_memory (
		id           TEXT PRIMARY KEY,
		source_text  TEXT NOT NULL,
		source_lang  TEXT NOT NULL,
		target_lang  TEXT NOT NULL,
		final_text   TEXT NOT NULL,
		draft_text   TEXT,
		service_used TEXT,
		usage_count  INTEGER DEFAULT 1,
		invalidated  BOOLEAN DEFAULT FALSE,
		last_used    TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_at   TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(source_text, source_lang, target_lang)
	)`,
	`CREATE TABLE IF NOT EXISTS glossary (
		id          TEXT PRIMARY KEY,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		source_term TEXT NOT NULL,
		target_term TEXT NOT NULL,
		created_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(source_lang, target_lang, source_term)
	)`,
	`CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		video       TEXT NOT NULL,
		source_lang TEXT,
		target_lang TEXT NOT NULL,
		translator  TEXT,
		llm_backend TEXT,
		segments    INTEGER DEFAULT 0,
		status      TEXT DEFAULT 'running',
		error       TEXT,
		started_at  TIMESTAMP NOT NULL,
		finished_at TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_memory_lookup ON translation_memory(source_text, source_lang, target_lang)`,
	`CREATE INDEX IF NOT EXISTS idx_glossary_pair ON glossary(source_lang, target_lang)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,
}

func (s *Store) migrate() error {
	for i, stmt := range migrations {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// normalizeText trims whitespace and applies Unicode NFC normalization
// for consistent cache key comparison.
func normalizeText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}
