// Package history persists interaction transcripts for audit and resume.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"modelwire/internal/domain"
)

// SQLiteStore implements domain.TranscriptStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and runs the
// schema migration.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// WAL mode for better concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS turns (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			interaction_id TEXT NOT NULL,
			role           TEXT NOT NULL,
			content        TEXT NOT NULL,
			created_at     TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_turns_interaction ON turns(interaction_id);
		CREATE TABLE IF NOT EXISTS responses (
			interaction_id TEXT PRIMARY KEY,
			model          TEXT NOT NULL DEFAULT '',
			status         TEXT NOT NULL,
			outputs        TEXT NOT NULL,
			input_tokens   INTEGER NOT NULL DEFAULT 0,
			output_tokens  INTEGER NOT NULL DEFAULT 0,
			total_tokens   INTEGER NOT NULL DEFAULT 0,
			created_at     TEXT NOT NULL
		)
	`)
	return err
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AppendTurns implements domain.TranscriptStore.
func (s *SQLiteStore) AppendTurns(ctx context.Context, interactionID string, turns []domain.Turn) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, turn := range turns {
		content, err := json.Marshal(turn.Content)
		if err != nil {
			return fmt.Errorf("marshal turn content: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO turns (interaction_id, role, content, created_at) VALUES (?, ?, ?, ?)",
			interactionID, string(turn.Role), string(content), now,
		); err != nil {
			return fmt.Errorf("insert turn: %w", err)
		}
	}
	return tx.Commit()
}

// RecordResponse implements domain.TranscriptStore. Re-recording the same
// interaction overwrites the previous row.
func (s *SQLiteStore) RecordResponse(ctx context.Context, resp *domain.Response) error {
	outputs, err := json.Marshal(resp.Outputs)
	if err != nil {
		return fmt.Errorf("marshal outputs: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO responses (interaction_id, model, status, outputs, input_tokens, output_tokens, total_tokens, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(interaction_id) DO UPDATE SET
			model = excluded.model,
			status = excluded.status,
			outputs = excluded.outputs,
			input_tokens = excluded.input_tokens,
			output_tokens = excluded.output_tokens,
			total_tokens = excluded.total_tokens`,
		resp.ID, resp.Model, string(resp.Status), string(outputs),
		resp.Usage.InputTokens, resp.Usage.OutputTokens, resp.Usage.TotalTokens,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

// Turns returns the stored turns for one interaction in insertion order.
func (s *SQLiteStore) Turns(ctx context.Context, interactionID string) ([]domain.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT role, content FROM turns WHERE interaction_id = ? ORDER BY id", interactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []domain.Turn
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, err
		}
		var items []domain.Content
		if err := json.Unmarshal([]byte(content), &items); err != nil {
			return nil, fmt.Errorf("unmarshal turn content: %w", err)
		}
		turns = append(turns, domain.Turn{Role: domain.Role(role), Content: items})
	}
	return turns, rows.Err()
}

// Response returns the stored terminal response for one interaction, or nil
// if none was recorded.
func (s *SQLiteStore) Response(ctx context.Context, interactionID string) (*domain.Response, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT model, status, outputs, input_tokens, output_tokens, total_tokens FROM responses WHERE interaction_id = ?",
		interactionID)

	var model, status, outputs string
	var usage domain.Usage
	if err := row.Scan(&model, &status, &outputs, &usage.InputTokens, &usage.OutputTokens, &usage.TotalTokens); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	var items []domain.Content
	if err := json.Unmarshal([]byte(outputs), &items); err != nil {
		return nil, fmt.Errorf("unmarshal outputs: %w", err)
	}
	return &domain.Response{
		ID:      interactionID,
		Model:   model,
		Status:  domain.ResponseStatus(status),
		Outputs: items,
		Usage:   usage,
	}, nil
}

var _ domain.TranscriptStore = (*SQLiteStore)(nil)
