package ports

import (
	"context"

	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/domain"
)

// MetricsSource supplies a point-in-time system-metrics snapshot on demand.
// Implementations degrade per-field on probe failure; a metrics error never
// fails a sample.
type MetricsSource interface {
	Sample(ctx context.Context) (domain.MetricsSnapshot, error)
}
