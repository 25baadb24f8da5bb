//go:build windows

// Windows-specific Platform implementation.
// Battery state comes from WMI; GPU utilization from nvidia-smi when present.
package platform

import (
	"os/exec"
	"strconv"
	"strings"

	"github.com/yusufpapurcu/wmi"
)

// WindowsPlatform implements Platform for Windows systems.
type WindowsPlatform struct{}

// New creates a new Windows platform instance.
func New() Platform {
	return &WindowsPlatform{}
}

// Name returns the platform identifier.
func (p *WindowsPlatform) Name() string { return "windows" }

// win32Battery mirrors the WMI Win32_Battery class fields we query.
type win32Battery struct {
	EstimatedChargeRemaining uint16
}

// Battery queries WMI for battery charge. Desktop systems report no
// Win32_Battery instances, which maps to a nil status.
// Win32_Battery exposes no power-draw figure, so PowerW stays 0.
func (p *WindowsPlatform) Battery() (*BatteryStatus, error) {
	var batteries []win32Battery
	q := "SELECT EstimatedChargeRemaining FROM Win32_Battery"
	if err := wmi.Query(q, &batteries); err != nil {
		return nil, err
	}
	if len(batteries) == 0 {
		return nil, nil
	}
	return &BatteryStatus{
		Percent: int(batteries[0].EstimatedChargeRemaining),
	}, nil
}

// GPUUsage attempts to read GPU utilization via nvidia-smi.
// Returns nil if no NVIDIA GPU or nvidia-smi is not available.
func (p *WindowsPlatform) GPUUsage() (*float64, error) {
	cmd := exec.Command("nvidia-smi",
		"--query-gpu=utilization.gpu", "--format=csv,noheader,nounits")
	output, err := cmd.Output()
	if err != nil {
		return nil, nil // not available
	}
	usage, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return nil, nil
	}
	return &usage, nil
}
