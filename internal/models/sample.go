// Package models defines the telemetry data structures shared across the agent.
package models

// NoBattery is the battery-percent sentinel for machines without a battery.
const NoBattery = -1

// Sample represents a single point-in-time snapshot of all hardware metrics.
// Fields that could not be read carry their sentinel value (0 for most
// metrics, NoBattery for the battery percentage); a Sample is always fully
// populated and never carries errors.
type Sample struct {
	CPUPercent     float64 `json:"cpu_percent"`
	CPUFreqGHz     float64 `json:"cpu_freq_ghz"`
	GPUPercent     float64 `json:"gpu_percent"`
	RAMPercent     float64 `json:"ram_percent"`
	RAMUsedGB      float64 `json:"ram_used_gb"`
	RAMTotalGB     float64 `json:"ram_total_gb"`
	TemperatureC   float64 `json:"temperature_c"`
	FanRPM         int     `json:"fan_rpm"`
	NetDownMBps    float64 `json:"net_down_mbps"`
	NetUpMBps      float64 `json:"net_up_mbps"`
	BatteryPercent int     `json:"battery_percent"`
	BatteryPowerW  float64 `json:"battery_power_w"`
}

// HasBattery reports whether a battery source was available for this sample.
func (s Sample) HasBattery() bool {
	return s.BatteryPercent >= 0
}
