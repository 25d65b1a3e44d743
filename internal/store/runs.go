package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Run is one row of the runs table.
type Run struct {
	ID         string
	Video      string
	SourceLang string
	TargetLang string
	Translator string
	LLMBackend string
	Segments   int
	Status     string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
}

// Duration returns the wall time of a finished run, or zero.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// StartRun records a new running run and returns its ID.
func (s *Store) StartRun(ctx context.Context, video, targetLang, translator, llmBackend string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, video, target_lang, translator, llm_backend, status, started_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, video, targetLang, translator, llmBackend, RunRunning, time.Now())
	return id, err
}

// FinishRun marks a run completed, or failed when runErr is non-nil.
func (s *Store) FinishRun(ctx context.Context, id, sourceLang string, segments int, runErr error) error {
	status, errText := RunCompleted, ""
	if runErr != nil {
		status, errText = RunFailed, runErr.Error()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET source_lang = ?, segments = ?, status = ?, error = ?, finished_at = ? WHERE id = ?`,
		sourceLang, segments, status, errText, time.Now(), id)
	return err
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, video, COALESCE(source_lang, ''), target_lang, COALESCE(translator, ''), COALESCE(llm_backend, ''),
		segments, status, COALESCE(error, ''), started_at, finished_at FROM runs ORDER BY started_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.Video, &r.SourceLang, &r.TargetLang, &r.Translator, &r.LLMBackend,
			&r.Segments, &r.Status, &r.Error, &r.StartedAt, &finished); err != nil {
			return nil, err
		}
		if finished.Valid {
			r.FinishedAt = finished.Time
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
