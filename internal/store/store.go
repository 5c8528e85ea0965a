// Package store is the Postgres persistence layer: saved runs, the single
// user row, and scheduled watches. The store is optional at serve time; the
// in-memory registry stays authoritative for live runs either way.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/mohammad-safakhou/netresearch/internal/runs"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

type Store struct {
	DB *sql.DB
}

// NewWithDSN constructs the Store using an explicit Postgres DSN.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// RunRecord is a persisted run.
type RunRecord struct {
	ID        string
	Query     string
	Graph     *runs.Graph
	CreatedAt time.Time
}

// SaveRun upserts a finished run. A nil graph is stored as NULL so failed
// runs still leave a record.
func (s *Store) SaveRun(ctx context.Context, runID, query string, graph *runs.Graph) error {
	var graphJSON []byte
	if graph != nil {
		var err error
		graphJSON, err = json.Marshal(graph)
		if err != nil {
			return fmt.Errorf("marshal graph: %w", err)
		}
	}
	_, err := s.DB.ExecContext(ctx, `INSERT INTO runs (id, query, graph_data) VALUES ($1,$2,$3)
		ON CONFLICT (id) DO UPDATE SET query=EXCLUDED.query, graph_data=EXCLUDED.graph_data`,
		runID, query, graphJSON)
	return err
}

// GetRun fetches one persisted run.
func (s *Store) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	var rec RunRecord
	var graphJSON []byte
	err := s.DB.QueryRowContext(ctx, `SELECT id, query, graph_data, created_at FROM runs WHERE id=$1`, runID).
		Scan(&rec.ID, &rec.Query, &graphJSON, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, ErrNotFound
	}
	if err != nil {
		return RunRecord{}, err
	}
	if len(graphJSON) > 0 {
		var g runs.Graph
		if err := json.Unmarshal(graphJSON, &g); err != nil {
			return RunRecord{}, fmt.Errorf("unmarshal graph: %w", err)
		}
		rec.Graph = &g
	}
	return rec, nil
}

// ListRuns returns all persisted runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, query, graph_data, created_at FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		var graphJSON []byte
		if err := rows.Scan(&rec.ID, &rec.Query, &graphJSON, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if len(graphJSON) > 0 {
			var g runs.Graph
			if err := json.Unmarshal(graphJSON, &g); err != nil {
				return nil, fmt.Errorf("unmarshal graph for run %s: %w", rec.ID, err)
			}
			rec.Graph = &g
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountRuns returns how many runs have been persisted.
func (s *Store) CountRuns(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n)
	return n, err
}

// User operations. The service is single-user: one row, created lazily.

// GetUserName returns the stored display name, or ErrNotFound when no user
// row exists yet.
func (s *Store) GetUserName(ctx context.Context) (string, error) {
	var name string
	err := s.DB.QueryRowContext(ctx, `SELECT name FROM users ORDER BY id LIMIT 1`).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return name, err
}

// SetUserName stores the display name, creating the user row if needed.
func (s *Store) SetUserName(ctx context.Context, name string) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE users SET name=$1 WHERE id=(SELECT id FROM users ORDER BY id LIMIT 1)`, name)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	_, err = s.DB.ExecContext(ctx, `INSERT INTO users (name) VALUES ($1)`, name)
	return err
}

// UpdateUserCV stores the latest transcribed CV text on the user row,
// creating it with a placeholder name if needed.
func (s *Store) UpdateUserCV(ctx context.Context, cvText string) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE users SET cv_transcribed=$1 WHERE id=(SELECT id FROM users ORDER BY id LIMIT 1)`, cvText)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	_, err = s.DB.ExecContext(ctx, `INSERT INTO users (name, cv_transcribed) VALUES ('Anonymous', $1)`, cvText)
	return err
}

// Watch operations.

// Watch re-executes a saved query on a cron schedule.
type Watch struct {
	ID        string     `json:"id"`
	Query     string     `json:"query"`
	CronExpr  string     `json:"cron_expr"`
	MaxNodes  int        `json:"max_nodes"`
	CreatedAt time.Time  `json:"created_at"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	LastRunID *string    `json:"last_run_id,omitempty"`
}

// CreateWatch registers a watch and returns its id.
func (s *Store) CreateWatch(ctx context.Context, query, cronExpr string, maxNodes int) (string, error) {
	id := uuid.NewString()
	_, err := s.DB.ExecContext(ctx, `INSERT INTO watches (id, query, cron_expr, max_nodes) VALUES ($1,$2,$3,$4)`,
		id, query, cronExpr, maxNodes)
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListWatches returns every watch, oldest first.
func (s *Store) ListWatches(ctx context.Context) ([]Watch, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, query, cron_expr, max_nodes, created_at, last_run_at, last_run_id FROM watches ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Watch
	for rows.Next() {
		var w Watch
		if err := rows.Scan(&w.ID, &w.Query, &w.CronExpr, &w.MaxNodes, &w.CreatedAt, &w.LastRunAt, &w.LastRunID); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// DeleteWatch removes a watch; ErrNotFound if the id is unknown.
func (s *Store) DeleteWatch(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM watches WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkWatchRun records the latest firing of a watch.
func (s *Store) MarkWatchRun(ctx context.Context, id, runID string, at time.Time) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE watches SET last_run_at=$2, last_run_id=$3 WHERE id=$1`, id, at, runID)
	return err
}
