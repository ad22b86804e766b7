package port

import (
	"context"

	"github.com/chr-braun/kostalbridge/internal/core/domain"
)

// TelemetrySource produces one snapshot of inverter metrics per call.
// Failures are reported as domain.ErrTransport or domain.ErrParse wrapped
// errors; the caller substitutes simulated data for the cycle.
type TelemetrySource interface {
	Fetch(ctx context.Context) (*domain.MetricSnapshot, error)
}

// OpenCloser is implemented by telemetry sources holding a persistent
// connection (the Modbus reader). Sources without one simply omit it.
type OpenCloser interface {
	Open() error
	Close() error
}
