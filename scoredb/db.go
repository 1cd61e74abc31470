// Package scoredb records posterior scores in a SQLite database so runs can
// be compared over time.
package scoredb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Kinds of posterior a Score may carry.
const (
	KindThreshold = "threshold"
	KindImage     = "image"
	KindDistance  = "distance"
)

// Score is one posterior value of a run.
type Score struct {
	RunID     string
	ConceptID string
	Name      string
	Kind      string
	Label     string // range label or threshold; empty for whole-image posteriors
	Posterior float64
	CreatedAt time.Time
}

// DB is a score database.
type DB struct {
	conn   *sql.DB
	logger *slog.Logger
	path   string
}

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var schema = []string{`
CREATE TABLE IF NOT EXISTS scores (
	run_id     TEXT NOT NULL,
	concept_id TEXT NOT NULL,
	name       TEXT NOT NULL,
	kind       TEXT NOT NULL,
	label      TEXT NOT NULL,
	posterior  REAL NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (run_id, concept_id, kind, label)
)`,
	`CREATE INDEX IF NOT EXISTS idx_scores_concept ON scores(concept_id)`,
}

// Open opens or creates the database at path.
func Open(path string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	for _, stmt := range schema {
		if _, err := conn.Exec(stmt); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	logger.Debug("score database opened", "path", path)

	return &DB{conn: conn, logger: logger, path: path}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Path returns the database file path.
func (db *DB) Path() string { return db.path }

// WithTx executes fn within a transaction. If fn returns an error the
// transaction is rolled back, otherwise it is committed.
func (db *DB) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("failed to rollback transaction",
				"error", err,
				"rollback_error", rbErr,
			)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// WriteScores stores scores in one transaction. A score with the same run,
// concept, kind and label replaces the previous one.
func (db *DB) WriteScores(ctx context.Context, scores []Score) error {
	if len(scores) == 0 {
		return nil
	}
	now := time.Now().UTC()
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO scores
			(run_id, concept_id, name, kind, label, posterior, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		for _, s := range scores {
			if s.RunID == "" || s.ConceptID == "" {
				return errors.New("score needs a run id and a concept id")
			}
			created := s.CreatedAt
			if created.IsZero() {
				created = now
			}
			if _, err := stmt.ExecContext(ctx, s.RunID, s.ConceptID, s.Name, s.Kind, s.Label,
				s.Posterior, created.UTC().Format(timeLayout)); err != nil {
				return fmt.Errorf("insert score %s/%s: %w", s.RunID, s.ConceptID, err)
			}
		}
		return nil
	})
}

// Run returns every score of runID ordered by concept, kind and label.
func (db *DB) Run(ctx context.Context, runID string) ([]Score, error) {
	return db.query(ctx, `SELECT run_id, concept_id, name, kind, label, posterior, created_at
		FROM scores WHERE run_id = ? ORDER BY concept_id, kind, label`, runID)
}

// Concept returns the scores of one concept across runs, oldest first.
func (db *DB) Concept(ctx context.Context, conceptID string) ([]Score, error) {
	return db.query(ctx, `SELECT run_id, concept_id, name, kind, label, posterior, created_at
		FROM scores WHERE concept_id = ? ORDER BY created_at, run_id, kind, label`, conceptID)
}

// Runs returns the distinct run ids, most recent first.
func (db *DB) Runs(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT run_id FROM scores GROUP BY run_id ORDER BY MAX(created_at) DESC, run_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteRun removes every score of runID and returns how many were removed.
func (db *DB) DeleteRun(ctx context.Context, runID string) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM scores WHERE run_id = ?`, runID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (db *DB) query(ctx context.Context, query string, args ...any) ([]Score, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Score
	for rows.Next() {
		var (
			s       Score
			created string
		)
		if err := rows.Scan(&s.RunID, &s.ConceptID, &s.Name, &s.Kind, &s.Label, &s.Posterior, &created); err != nil {
			return nil, err
		}
		if s.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("score %s/%s: %w", s.RunID, s.ConceptID, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
