// Package storage keeps a session journal of completed runs in an in-memory
// SQLite database. Uses the pure-Go modernc.org/sqlite driver to avoid CGO
// dependencies. Nothing is written to disk: the journal lives as long as the
// Store does.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/vovakirdan/tui-reaction/internal/reaction"
)

// Store manages the in-memory SQLite journal.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ reaction.Recorder = (*Store)(nil)

// Entry is a single journaled outcome.
type Entry struct {
	Seq             int64
	RunID           string
	Status          reaction.Status
	ReactionTime    time.Duration
	HasReactionTime bool
	RecordedAt      time.Time
}

// Outcome rebuilds the run outcome the entry was recorded from.
func (e Entry) Outcome() reaction.Outcome {
	switch e.Status {
	case reaction.StatusSuccess:
		return reaction.Success{ID: e.RunID, ReactionTime: e.ReactionTime}
	case reaction.StatusError:
		return reaction.TooSoon{ID: e.RunID, ReactionTime: e.ReactionTime}
	default:
		return reaction.TimedOut{ID: e.RunID}
	}
}

// Summary aggregates the journal: run counts per status and the mean
// reaction time over successful runs.
type Summary struct {
	Total       int
	Successes   int
	TooSoon     int
	TimedOut    int
	MeanSuccess time.Duration
	HasMean     bool
}

// Open creates a fresh in-memory journal and runs migrations.
func Open() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db, now: time.Now}

	// Run migrations
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS outcomes (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL UNIQUE,
			status TEXT NOT NULL,
			reaction_ns INTEGER,
			recorded_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_outcomes_status ON outcomes(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection, discarding the journal.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record appends a completed outcome to the journal. Recording the same run
// twice is an error.
func (s *Store) Record(ctx context.Context, o reaction.Outcome) error {
	if o == nil {
		return errors.New("storage: cannot record nil outcome")
	}

	var rt sql.NullInt64
	if d, ok := reaction.ReactionTime(o); ok {
		rt = sql.NullInt64{Int64: int64(d), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO outcomes (run_id, status, reaction_ns, recorded_at) VALUES (?, ?, ?, ?)",
		o.RunID(), o.Status().String(), rt, s.now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("storage: cannot record outcome %s: %w", o.RunID(), err)
	}
	return nil
}

// Entries returns every journaled outcome in recording order.
func (s *Store) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, run_id, status, reaction_ns, recorded_at
		 FROM outcomes
		 ORDER BY seq`,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query outcomes: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			status     string
			rt         sql.NullInt64
			recordedAt int64
		)
		if err := rows.Scan(&e.Seq, &e.RunID, &status, &rt, &recordedAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		st, ok := reaction.ParseStatus(status)
		if !ok {
			return nil, fmt.Errorf("storage: row %d: unknown status %q", e.Seq, status)
		}
		e.Status = st
		if rt.Valid {
			e.ReactionTime = time.Duration(rt.Int64)
			e.HasReactionTime = true
		}
		e.RecordedAt = time.Unix(0, recordedAt)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return entries, nil
}

// Summary returns run counts per status and the mean success time.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*), AVG(reaction_ns)
		 FROM outcomes
		 GROUP BY status`,
	)
	if err != nil {
		return Summary{}, fmt.Errorf("storage: cannot query summary: %w", err)
	}
	defer rows.Close()

	var sum Summary
	for rows.Next() {
		var (
			status string
			count  int
			avg    sql.NullFloat64
		)
		if err := rows.Scan(&status, &count, &avg); err != nil {
			return Summary{}, fmt.Errorf("storage: cannot scan summary: %w", err)
		}
		st, ok := reaction.ParseStatus(status)
		if !ok {
			return Summary{}, fmt.Errorf("storage: summary: unknown status %q", status)
		}
		sum.Total += count
		switch st {
		case reaction.StatusSuccess:
			sum.Successes = count
			if avg.Valid {
				sum.MeanSuccess = time.Duration(math.Round(avg.Float64))
				sum.HasMean = true
			}
		case reaction.StatusError:
			sum.TooSoon = count
		case reaction.StatusTimeout:
			sum.TimedOut = count
		}
	}

	if err := rows.Err(); err != nil {
		return Summary{}, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return sum, nil
}
