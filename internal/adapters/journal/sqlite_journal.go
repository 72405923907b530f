// Package journal persists delivery outcomes to SQLite so gaps reported by
// the server can be reconciled against what the agent actually sent. One
// row per terminal delivery state, tagged with the agent run that produced
// it.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS deliveries (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT NOT NULL,
	seq           INTEGER NOT NULL,
	state         TEXT NOT NULL,
	attempts      INTEGER NOT NULL,
	first_sent_at TEXT NOT NULL,
	last_sent_at  TEXT NOT NULL,
	sampled_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_deliveries_run_seq ON deliveries(run_id, seq);
`

type SQLiteJournal struct {
	db    *sql.DB
	runID string
}

var _ ports.DeliveryJournal = (*SQLiteJournal)(nil)

// Open creates or opens the journal database at path. Each Open starts a
// new run id, so sequence numbers from different agent runs never collide
// in queries.
func Open(ctx context.Context, path string) (*SQLiteJournal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}
	return &SQLiteJournal{db: db, runID: uuid.NewString()}, nil
}

// RunID identifies this agent run in the journal.
func (j *SQLiteJournal) RunID() string { return j.runID }

func (j *SQLiteJournal) Record(out ports.DeliveryOutcome) error {
	_, err := j.db.Exec(`
INSERT INTO deliveries(run_id, seq, state, attempts, first_sent_at, last_sent_at, sampled_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, j.runID, out.Seq, out.State, out.Attempts, ts(out.FirstSentAt), ts(out.LastSentAt), ts(out.SampledAt))
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}
	return nil
}

// Recent returns the last n outcomes across all runs, newest first.
func (j *SQLiteJournal) Recent(n int) ([]ports.DeliveryOutcome, error) {
	if n <= 0 {
		n = 20
	}
	rows, err := j.db.Query(`
SELECT seq, state, attempts, first_sent_at, last_sent_at, sampled_at
FROM deliveries
ORDER BY id DESC
LIMIT ?
`, n)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	out := make([]ports.DeliveryOutcome, 0, n)
	for rows.Next() {
		var (
			o                          ports.DeliveryOutcome
			firstStr, lastStr, sampStr string
		)
		if err := rows.Scan(&o.Seq, &o.State, &o.Attempts, &firstStr, &lastStr, &sampStr); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		if o.FirstSentAt, err = parseTS(firstStr); err != nil {
			return nil, fmt.Errorf("parse first_sent_at: %w", err)
		}
		if o.LastSentAt, err = parseTS(lastStr); err != nil {
			return nil, fmt.Errorf("parse last_sent_at: %w", err)
		}
		if o.SampledAt, err = parseTS(sampStr); err != nil {
			return nil, fmt.Errorf("parse sampled_at: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter deliveries: %w", err)
	}
	return out, nil
}

func (j *SQLiteJournal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTS(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
