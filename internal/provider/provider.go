// Package provider implements cross-platform acquisition of hardware telemetry.
// Each operating system gets one Provider implementation behind a common
// interface; the concrete type is chosen once at construction time based on
// the runtime platform.
package provider

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"

	"github.com/statview/agent/internal/models"
	"github.com/statview/agent/internal/platform"
)

// Provider produces telemetry snapshots on demand.
//
// Sample never fails: a capability whose source was not found at construction,
// or whose read failed on this tick, contributes its sentinel value instead.
// Delta-based metrics (CPU load, network throughput) return zero on the first
// call while the baseline counters are recorded.
type Provider interface {
	// Sample collects one complete snapshot of all metrics.
	Sample(ctx context.Context) models.Sample

	// Platform returns the name of the backing implementation.
	Platform() string
}

// New constructs the Provider for the current operating system.
// Linux uses the native sysfs/procfs implementation; all other platforms use
// the gopsutil-backed implementation with OS-specific extensions supplied by
// the platform package.
//
// Construction fails only when the OS cannot be queried at all; individual
// sensors that cannot be resolved are disabled, not fatal.
func New(logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch runtime.GOOS {
	case "linux":
		p, err := newSysfsProvider(logger)
		if err != nil {
			return nil, fmt.Errorf("initializing sysfs provider: %w", err)
		}
		return p, nil
	default:
		p, err := newPsutilProvider(platform.New(), logger)
		if err != nil {
			return nil, fmt.Errorf("initializing %s provider: %w", runtime.GOOS, err)
		}
		return p, nil
	}
}
