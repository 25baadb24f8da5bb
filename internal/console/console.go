// Package console renders the live one-line status readout for interactive
// runs. The line is rewritten in place with a carriage return, so a terminal
// shows a continuously updating summary instead of a scrolling log.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/statview/agent/internal/models"
)

// FormatStatus renders the single-line human-readable summary of a sample.
// Optional metrics appear only when available, mirroring the wire frame.
func FormatStatus(s models.Sample) string {
	parts := []string{fmt.Sprintf("CPU: %5.1f%%", s.CPUPercent)}
	if s.CPUFreqGHz > 0 {
		parts = append(parts, fmt.Sprintf("%.1fGHz", s.CPUFreqGHz))
	}
	if s.GPUPercent > 0 {
		parts = append(parts, fmt.Sprintf("GPU: %.1f%%", s.GPUPercent))
	}

	parts = append(parts, fmt.Sprintf("| RAM: %5.1f%%", s.RAMPercent))
	if s.RAMUsedGB > 0 && s.RAMTotalGB > 0 {
		parts = append(parts, fmt.Sprintf("(%.1f/%.1fGB)", s.RAMUsedGB, s.RAMTotalGB))
	}

	parts = append(parts, fmt.Sprintf("| TEMP: %5.1f°C", s.TemperatureC))
	if s.FanRPM > 0 {
		parts = append(parts, fmt.Sprintf("%drpm", s.FanRPM))
	}

	parts = append(parts, fmt.Sprintf("| NET: ↓%.2f ↑%.2f MB/s", s.NetDownMBps, s.NetUpMBps))

	if s.HasBattery() {
		parts = append(parts, fmt.Sprintf("| BAT: %d%% %.1fW", s.BatteryPercent, s.BatteryPowerW))
	}

	return strings.Join(parts, " ")
}

// Writer prints status lines in place on a terminal.
type Writer struct {
	out io.Writer
}

// NewWriter creates a Writer targeting out (normally os.Stdout).
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Update rewrites the status line with the latest sample.
func (w *Writer) Update(s models.Sample) {
	fmt.Fprintf(w.out, "%s\r", FormatStatus(s))
}
