package transport

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Dialer establishes a connection to the display. An explicitly configured
// port is used as-is on every connect; otherwise each connect runs device
// discovery, so a display that re-enumerated under a new path after a USB
// reset is still found.
type Dialer struct {
	Port   string // explicit device path; empty enables discovery
	Baud   int
	Settle time.Duration
	Logger *zap.Logger
}

// Connect resolves the device path and opens it.
func (d *Dialer) Connect(ctx context.Context) (*Port, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	device := d.Port
	if device == "" {
		located, err := Locate(d.Logger)
		if err != nil {
			return nil, err
		}
		device = located
	}

	return Open(device, d.Baud, d.Settle, d.Logger)
}
