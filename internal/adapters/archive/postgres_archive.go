// Package archive mirrors acknowledged payloads into Postgres for long-term
// reporting. The archive is optional and strictly best-effort: delivery to
// the collection server never waits on it.
package archive

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/domain"
)

type PostgresArchive struct {
	db        *sql.DB
	tableName string
}

func NewPostgresArchive(db *sql.DB, table string) *PostgresArchive {
	if table == "" {
		table = "telemetry"
	}
	return &PostgresArchive{db: db, tableName: table}
}

// Open connects with the lib/pq driver and verifies the connection.
func Open(connString, table string) (*PostgresArchive, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresArchive(db, table), nil
}

func (a *PostgresArchive) Name() string { return "postgres" }

// WriteBatch inserts acknowledged payloads. The (machine_id, seq) key makes
// re-archiving after a crash idempotent.
func (a *PostgresArchive) WriteBatch(payloads []*domain.TelemetryPayload) error {
	if len(payloads) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(a.tableName)
	b.WriteString(" (machine_id, seq, good, reject, shift_id, machine_state, cpu_percent, mem_percent, temp_celsius, disk_percent, net_bytes_per_sec, sampled_at) VALUES ")

	args := make([]any, 0, len(payloads)*12)
	for i, p := range payloads {
		if i > 0 {
			b.WriteString(",")
		}
		base := len(args)
		b.WriteString("(")
		for j := 1; j <= 12; j++ {
			if j > 1 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, "$%d", base+j)
		}
		b.WriteString(")")

		args = append(args,
			p.MachineID,
			p.SequenceNumber,
			p.Good,
			p.Reject,
			p.ShiftID,
			string(p.MachineState),
			p.CPUPercent,
			p.MemPercent,
			p.TempCelsius,
			p.DiskPercent,
			p.NetBytesPerSec,
			p.SampledAt,
		)
	}

	b.WriteString(" ON CONFLICT (machine_id, seq) DO NOTHING")

	_, err := a.db.Exec(b.String(), args...)
	return err
}

func (a *PostgresArchive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}
