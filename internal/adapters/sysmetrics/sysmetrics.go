// Package sysmetrics reads host health through gopsutil. Every field
// degrades independently: a sensor that cannot be read reports zero and an
// error, and the caller sends the sample anyway.
package sysmetrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/sensors"

	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/domain"
	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/ports"
)

// Source samples CPU, memory, temperature, disk, and network throughput.
// The network rate is derived from successive counter readings, so the
// first sample always reports zero there.
type Source struct {
	diskPath string

	mu        sync.Mutex
	lastNet   uint64
	lastNetAt time.Time
}

var _ ports.MetricsSource = (*Source)(nil)

func NewSource(diskPath string) *Source {
	if diskPath == "" {
		diskPath = "/"
	}
	return &Source{diskPath: diskPath}
}

func (s *Source) Sample(ctx context.Context) (domain.MetricsSnapshot, error) {
	now := time.Now()
	snap := domain.MetricsSnapshot{TakenAt: now}
	var errs []error

	if pcts, err := cpu.PercentWithContext(ctx, 0, false); err != nil {
		errs = append(errs, err)
	} else if len(pcts) > 0 {
		snap.CPUPercent = pcts[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		errs = append(errs, err)
	} else {
		snap.MemPercent = vm.UsedPercent
	}

	if temp, err := coreTemperature(ctx); err != nil {
		errs = append(errs, err)
	} else {
		snap.TempCelsius = temp
	}

	if du, err := disk.UsageWithContext(ctx, s.diskPath); err != nil {
		errs = append(errs, err)
	} else {
		snap.DiskPercent = du.UsedPercent
	}

	if rate, err := s.netRate(ctx, now); err != nil {
		errs = append(errs, err)
	} else {
		snap.NetBytesPerSec = rate
	}

	return snap, errors.Join(errs...)
}

// netRate computes total bytes per second across all interfaces since the
// previous sample.
func (s *Source) netRate(ctx context.Context, now time.Time) (float64, error) {
	counters, err := net.IOCountersWithContext(ctx, false)
	if err != nil {
		return 0, err
	}
	if len(counters) == 0 {
		return 0, nil
	}
	total := counters[0].BytesSent + counters[0].BytesRecv

	s.mu.Lock()
	defer s.mu.Unlock()
	prev, prevAt := s.lastNet, s.lastNetAt
	s.lastNet, s.lastNetAt = total, now

	if prevAt.IsZero() || total < prev {
		return 0, nil
	}
	elapsed := now.Sub(prevAt).Seconds()
	if elapsed <= 0 {
		return 0, nil
	}
	return float64(total-prev) / elapsed, nil
}

// coreTemperature picks the CPU package sensor when present, otherwise the
// hottest reading. Machines without exposed sensors report zero.
func coreTemperature(ctx context.Context) (float64, error) {
	readings, err := sensors.TemperaturesWithContext(ctx)
	if err != nil {
		return 0, err
	}

	var hottest float64
	for _, r := range readings {
		key := strings.ToLower(r.SensorKey)
		if strings.Contains(key, "package") || strings.Contains(key, "coretemp") {
			return r.Temperature, nil
		}
		if r.Temperature > hottest {
			hottest = r.Temperature
		}
	}
	return hottest, nil
}
