package sysmetrics

import (
	"context"
	"testing"
	"time"
)

func TestSampleFillsTimestamp(t *testing.T) {
	src := NewSource("/")
	before := time.Now()

	snap, _ := src.Sample(context.Background())
	if snap.TakenAt.Before(before) {
		t.Fatalf("sample timestamp predates the call: %s", snap.TakenAt)
	}
	if snap.CPUPercent < 0 || snap.CPUPercent > 100 {
		t.Fatalf("cpu percent out of range: %f", snap.CPUPercent)
	}
	if snap.MemPercent < 0 || snap.MemPercent > 100 {
		t.Fatalf("memory percent out of range: %f", snap.MemPercent)
	}
}

func TestNetRateFirstSampleIsZero(t *testing.T) {
	src := NewSource("/")

	snap, _ := src.Sample(context.Background())
	if snap.NetBytesPerSec != 0 {
		t.Fatalf("first sample has no rate baseline, got %f", snap.NetBytesPerSec)
	}

	// A second sample has a baseline and must not go negative.
	time.Sleep(10 * time.Millisecond)
	snap2, _ := src.Sample(context.Background())
	if snap2.NetBytesPerSec < 0 {
		t.Fatalf("negative network rate: %f", snap2.NetBytesPerSec)
	}
}

func TestDefaultDiskPath(t *testing.T) {
	src := NewSource("")
	if src.diskPath != "/" {
		t.Fatalf("expected default disk path /, got %s", src.diskPath)
	}
}
