// Package history keeps results of past compatibility checks in SQLite.
package history

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

//go:embed schema.sql
var schemaSQL string

// Memory opens database which lives only as long as the store.
const Memory = ":memory:"

var errNotOpened = errors.New("history database not opened")

// RuntimeResult is the outcome of a run for a single runtime.
type RuntimeResult struct {
	Runtime    string `json:"runtime"`
	Total      int    `json:"total"`
	Compatible int    `json:"compatible"`
	Status     string `json:"status"`
}

// Run is a single recorded check.
type Run struct {
	ID          string          `json:"id"`
	Started     time.Time       `json:"started"`
	Sources     []string        `json:"sources"`
	StyleSheets int             `json:"stylesheets"`
	Failed      int             `json:"failed"`
	Results     []RuntimeResult `json:"results"`
}

// Store is a history database. Connection is shared, so access is serialized.
type Store struct {
	mu   sync.Mutex
	conn *sqlite.Conn
	path string
	log  *zap.Logger
}

// Open opens (creating when necessary) history database and initializes
// its schema.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	flags := []sqlite.OpenFlags{sqlite.OpenReadWrite, sqlite.OpenCreate}
	if path == Memory {
		flags = append(flags, sqlite.OpenMemory)
	} else {
		flags = append(flags, sqlite.OpenWAL)
	}
	conn, err := sqlite.OpenConn(path, flags...)
	if err != nil {
		return nil, fmt.Errorf("unable to open history database '%s': %w", path, err)
	}
	if err := sqlitex.ExecuteScript(conn, schemaSQL, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to initialize history schema: %w", err)
	}
	return &Store{conn: conn, path: path, log: log.Named("history")}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// Record stores run with all its results in a single transaction.
func (s *Store) Record(run Run) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return errNotOpened
	}
	defer sqlitex.Save(s.conn)(&err)

	err = sqlitex.Execute(s.conn,
		`INSERT INTO runs (id, started_at, sources, stylesheets, failed) VALUES (?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{run.ID, run.Started.UnixMilli(), strings.Join(run.Sources, "\n"), run.StyleSheets, run.Failed}})
	if err != nil {
		return fmt.Errorf("unable to record run %s: %w", run.ID, err)
	}
	for i, r := range run.Results {
		err = sqlitex.Execute(s.conn,
			`INSERT INTO results (run_id, position, runtime, total, compatible, status) VALUES (?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{run.ID, i, r.Runtime, r.Total, r.Compatible, r.Status}})
		if err != nil {
			return fmt.Errorf("unable to record result of run %s for %s: %w", run.ID, r.Runtime, err)
		}
	}
	s.log.Debug("Run recorded", zap.String("id", run.ID), zap.Int("results", len(run.Results)))
	return nil
}

const (
	latestOrder   = `ORDER BY started_at DESC, rowid DESC LIMIT ?`
	latestRuns    = `SELECT id FROM runs ` + latestOrder
	recentResults = `SELECT run_id, runtime, total, compatible, status FROM results
WHERE run_id IN (` + latestRuns + `) ORDER BY run_id, position`
)

// Recent returns up to limit latest runs, newest first. Non-positive limit
// returns everything.
func (s *Store) Recent(limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil, errNotOpened
	}
	if limit <= 0 {
		limit = -1
	}

	var runs []Run
	index := make(map[string]int)
	err := sqlitex.Execute(s.conn,
		`SELECT id, started_at, sources, stylesheets, failed FROM runs `+latestOrder,
		&sqlitex.ExecOptions{
			Args: []any{limit},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				run := Run{
					ID:          stmt.ColumnText(0),
					Started:     time.UnixMilli(stmt.ColumnInt64(1)),
					StyleSheets: stmt.ColumnInt(3),
					Failed:      stmt.ColumnInt(4),
				}
				if sources := stmt.ColumnText(2); len(sources) > 0 {
					run.Sources = strings.Split(sources, "\n")
				}
				index[run.ID] = len(runs)
				runs = append(runs, run)
				return nil
			}})
	if err != nil {
		return nil, fmt.Errorf("unable to read runs: %w", err)
	}

	err = sqlitex.Execute(s.conn, recentResults,
		&sqlitex.ExecOptions{
			Args: []any{limit},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				i, ok := index[stmt.ColumnText(0)]
				if !ok {
					return nil
				}
				runs[i].Results = append(runs[i].Results, RuntimeResult{
					Runtime:    stmt.ColumnText(1),
					Total:      stmt.ColumnInt(2),
					Compatible: stmt.ColumnInt(3),
					Status:     stmt.ColumnText(4),
				})
				return nil
			}})
	if err != nil {
		return nil, fmt.Errorf("unable to read results: %w", err)
	}
	return runs, nil
}

// Prune removes everything but keep latest runs and returns number of removed
// runs. Zero keep removes nothing.
func (s *Store) Prune(keep int) (removed int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return 0, errNotOpened
	}
	if keep <= 0 {
		return 0, nil
	}
	defer sqlitex.Save(s.conn)(&err)

	if err = sqlitex.Execute(s.conn, `DELETE FROM runs WHERE id NOT IN (`+latestRuns+`)`,
		&sqlitex.ExecOptions{Args: []any{keep}}); err != nil {
		return 0, fmt.Errorf("unable to prune runs: %w", err)
	}
	removed = s.conn.Changes()
	if err = sqlitex.Execute(s.conn, `DELETE FROM results WHERE run_id NOT IN (SELECT id FROM runs)`, nil); err != nil {
		return 0, fmt.Errorf("unable to prune results: %w", err)
	}
	if removed > 0 {
		s.log.Debug("History pruned", zap.Int("removed", removed), zap.Int("kept", keep))
	}
	return removed, nil
}
