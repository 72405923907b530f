package archive

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/domain"
)

func TestWriteBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	a := NewPostgresArchive(db, "telemetry")
	sampledAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	payloads := []*domain.TelemetryPayload{
		{
			SequenceNumber: 7,
			MachineID:      "press-07",
			Good:           120,
			Reject:         4,
			ShiftID:        "Shift1",
			MachineState:   domain.StateRunning,
			CPUPercent:     42.5,
			MemPercent:     61.0,
			TempCelsius:    55.2,
			DiskPercent:    70.1,
			NetBytesPerSec: 1024,
			SampledAt:      sampledAt,
		},
	}

	expectedQuery := regexp.QuoteMeta("INSERT INTO telemetry (machine_id, seq, good, reject, shift_id, machine_state, cpu_percent, mem_percent, temp_celsius, disk_percent, net_bytes_per_sec, sampled_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) ON CONFLICT (machine_id, seq) DO NOTHING")
	mock.ExpectExec(expectedQuery).
		WithArgs("press-07", uint64(7), uint64(120), uint64(4), "Shift1", "RUNNING",
			42.5, 61.0, 55.2, 70.1, float64(1024), sampledAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := a.WriteBatch(payloads); err != nil {
		t.Fatalf("write batch: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestWriteBatchEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	a := NewPostgresArchive(db, "telemetry")
	if err := a.WriteBatch(nil); err != nil {
		t.Fatalf("expected nil error for empty batch, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDefaultTable(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	a := NewPostgresArchive(db, "")
	if a.tableName != "telemetry" {
		t.Fatalf("expected default table telemetry, got %s", a.tableName)
	}
	if a.Name() != "postgres" {
		t.Fatalf("expected archive name postgres, got %s", a.Name())
	}
}
