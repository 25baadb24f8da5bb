// Package platform provides an OS abstraction layer for metrics that
// gopsutil alone cannot supply (battery state, GPU utilization).
// Each supported OS implements the Platform interface.
package platform

// BatteryStatus holds one battery reading.
type BatteryStatus struct {
	Percent int
	PowerW  float64
}

// Platform provides OS-specific telemetry beyond what gopsutil offers.
type Platform interface {
	// GPUUsage returns GPU utilization percent if available.
	// Returns nil when no GPU source can be read.
	GPUUsage() (*float64, error)

	// Battery returns the battery charge and power draw if a battery
	// is present. Returns nil on machines without a battery.
	Battery() (*BatteryStatus, error)

	// Name returns the platform name (windows, stub).
	Name() string
}
