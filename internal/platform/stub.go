//go:build !windows

// Stub Platform implementation for non-Windows builds.
// Linux uses the native sysfs provider instead of this seam; macOS falls
// back to the safe defaults here.
package platform

// StubPlatform is a no-op Platform for non-Windows operating systems.
type StubPlatform struct{}

// New creates a stub platform instance for non-Windows systems.
func New() Platform {
	return &StubPlatform{}
}

// Name returns the platform identifier.
func (p *StubPlatform) Name() string { return "stub" }

// GPUUsage returns nil on non-Windows platforms.
func (p *StubPlatform) GPUUsage() (*float64, error) {
	return nil, nil
}

// Battery returns nil on non-Windows platforms.
func (p *StubPlatform) Battery() (*BatteryStatus, error) {
	return nil, nil
}
