// Package protocol implements the wire format spoken to the display:
// one newline-terminated ASCII line of comma-separated KEY:VALUE tokens in a
// fixed order, closed by an additive checksum token.
//
// Example frame:
//
//	CPU:12.3,RAM:45.6,TEMP:38.2,GPU:0.0,NET:0.12,0.03,CHK:96
//
// Required tokens always appear; optional tokens appear only when their
// metric is available, so frames vary in length but never in token order.
package protocol

import (
	"fmt"
	"math"
	"strings"

	"github.com/statview/agent/internal/models"
)

// field is one token of the frame: an inclusion predicate, a formatter, and
// the token's contribution to the checksum. The checksum summand uses the
// same rounded values the formatter emits, so sender and receiver agree even
// when the raw inputs carry more precision.
type field struct {
	include func(models.Sample) bool
	render  func(models.Sample) string
	sum     func(models.Sample) float64
}

func always(models.Sample) bool { return true }

// fields defines the frame layout. Order is part of the protocol; the
// receiving firmware parses tokens positionally within each key.
var fields = []field{
	{
		include: always,
		render:  func(s models.Sample) string { return fmt.Sprintf("CPU:%.1f", round1(s.CPUPercent)) },
		sum:     func(s models.Sample) float64 { return round1(s.CPUPercent) },
	},
	{
		include: always,
		render:  func(s models.Sample) string { return fmt.Sprintf("RAM:%.1f", round1(s.RAMPercent)) },
		sum:     func(s models.Sample) float64 { return round1(s.RAMPercent) },
	},
	{
		include: always,
		render:  func(s models.Sample) string { return fmt.Sprintf("TEMP:%.1f", round1(s.TemperatureC)) },
		sum:     func(s models.Sample) float64 { return round1(s.TemperatureC) },
	},
	{
		include: func(s models.Sample) bool { return s.CPUFreqGHz > 0 },
		render:  func(s models.Sample) string { return fmt.Sprintf("FREQ:%.1f", round1(s.CPUFreqGHz)) },
		sum:     func(s models.Sample) float64 { return round1(s.CPUFreqGHz) },
	},
	{
		include: always,
		render:  func(s models.Sample) string { return fmt.Sprintf("GPU:%.1f", round1(s.GPUPercent)) },
		sum:     func(s models.Sample) float64 { return round1(s.GPUPercent) },
	},
	{
		include: func(s models.Sample) bool { return s.RAMUsedGB > 0 && s.RAMTotalGB > 0 },
		render: func(s models.Sample) string {
			return fmt.Sprintf("RAMGB:%.1f/%.1f", round1(s.RAMUsedGB), round1(s.RAMTotalGB))
		},
		sum: func(s models.Sample) float64 { return round1(s.RAMUsedGB) + round1(s.RAMTotalGB) },
	},
	{
		include: func(s models.Sample) bool { return s.FanRPM > 0 },
		render:  func(s models.Sample) string { return fmt.Sprintf("FAN:%d", s.FanRPM) },
		sum:     func(s models.Sample) float64 { return float64(s.FanRPM) },
	},
	{
		include: func(s models.Sample) bool { return s.NetDownMBps >= 0 && s.NetUpMBps >= 0 },
		render: func(s models.Sample) string {
			return fmt.Sprintf("NET:%.2f,%.2f", round2(s.NetDownMBps), round2(s.NetUpMBps))
		},
		sum: func(s models.Sample) float64 { return round2(s.NetDownMBps) + round2(s.NetUpMBps) },
	},
	{
		include: func(s models.Sample) bool { return s.BatteryPercent >= 0 },
		render:  func(s models.Sample) string { return fmt.Sprintf("BAT:%d", s.BatteryPercent) },
		sum:     func(s models.Sample) float64 { return float64(s.BatteryPercent) },
	},
	{
		include: func(s models.Sample) bool { return s.BatteryPercent >= 0 && s.BatteryPowerW >= 0 },
		render:  func(s models.Sample) string { return fmt.Sprintf("POWER:%.1f", round1(s.BatteryPowerW)) },
		sum:     func(s models.Sample) float64 { return round1(s.BatteryPowerW) },
	},
}

// Encode builds the wire frame for one sample, checksum and terminator
// included. Encoding is pure: the same sample always yields the same frame.
func Encode(s models.Sample) string {
	tokens := make([]string, 0, len(fields)+1)
	var total float64
	for _, f := range fields {
		if !f.include(s) {
			continue
		}
		tokens = append(tokens, f.render(s))
		total += f.sum(s)
	}
	tokens = append(tokens, fmt.Sprintf("CHK:%d", Checksum(total)))
	return strings.Join(tokens, ",") + "\n"
}

// Checksum reduces the sum of all emitted numeric values to the 0..999 range
// carried in the CHK token. It is a transmission sanity check, nothing more;
// the receiver recomputes the same sum and compares. The modulo is floored so
// a negative total (sub-zero temperature outweighing the other values) still
// lands in range.
func Checksum(total float64) int {
	return ((int(total) % 1000) + 1000) % 1000
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
