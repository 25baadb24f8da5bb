// Serial device discovery. When no port is configured the locator enumerates
// the system's serial devices and picks the one most likely to be the display:
// real-hardware device paths first, USB-to-UART bridge signatures within those.
package transport

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"
)

// ErrNoPort is returned when enumeration finds no plausible display device.
var ErrNoPort = errors.New("no serial device found")

// bridgeKeywords match the product strings of common embedded USB-to-UART
// bridges (and the ESP32's native USB-JTAG interface).
var bridgeKeywords = []string{"esp32", "cp210", "ch340", "usb serial", "uart", "jtag"}

// bridgeVIDs are USB vendor IDs of the same bridge families:
// Espressif, Silicon Labs, WCH.
var bridgeVIDs = []string{"303a", "10c4", "1a86"}

// PortInfo describes one enumerated serial device.
type PortInfo struct {
	Device      string
	Description string
	IsUSB       bool
	VID         string
}

// List enumerates the system's serial devices.
func List() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerating serial ports: %w", err)
	}

	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, PortInfo{
			Device:      d.Name,
			Description: d.Product,
			IsUSB:       d.IsUSB,
			VID:         d.VID,
		})
	}
	return ports, nil
}

// Locate enumerates serial devices and selects one per the discovery policy.
// Returns ErrNoPort (wrapped) when nothing plausible is attached.
func Locate(logger *zap.Logger) (string, error) {
	ports, err := List()
	if err != nil {
		return "", err
	}

	device := selectPort(ports, hardwarePatterns(runtime.GOOS))
	if device == "" {
		for _, p := range ports {
			logger.Info("Available serial port",
				zap.String("device", p.Device),
				zap.String("description", p.Description))
		}
		return "", fmt.Errorf("%w (specify the port explicitly)", ErrNoPort)
	}

	logger.Info("Selected serial port", zap.String("device", device))
	return device, nil
}

// selectPort applies the selection policy: restrict to real-hardware device
// paths, prefer a known bridge signature within that set, else take the first
// pattern match. Returns "" when nothing matches.
func selectPort(ports []PortInfo, patterns []string) string {
	var preferred []PortInfo
	for _, p := range ports {
		for _, pattern := range patterns {
			if strings.HasPrefix(p.Device, pattern) {
				preferred = append(preferred, p)
				break
			}
		}
	}

	for _, p := range preferred {
		if isBridge(p) {
			return p.Device
		}
	}
	if len(preferred) > 0 {
		return preferred[0].Device
	}
	return ""
}

// isBridge reports whether the port looks like a known USB-to-UART bridge,
// by product description keyword or USB vendor ID.
func isBridge(p PortInfo) bool {
	desc := strings.ToLower(p.Description)
	for _, kw := range bridgeKeywords {
		if strings.Contains(desc, kw) {
			return true
		}
	}
	if p.IsUSB {
		vid := strings.ToLower(p.VID)
		for _, known := range bridgeVIDs {
			if vid == known {
				return true
			}
		}
	}
	return false
}

// hardwarePatterns returns the device-path prefixes that indicate real
// hardware (as opposed to virtual or pseudo terminals) on each OS.
func hardwarePatterns(goos string) []string {
	switch goos {
	case "windows":
		return []string{"COM"}
	case "darwin":
		return []string{"/dev/cu.usbmodem", "/dev/cu.usbserial"}
	default:
		return []string{"/dev/ttyACM", "/dev/ttyUSB"}
	}
}
