// Delta-metric state transitions. CPU load and network throughput are
// computed from consecutive cumulative counter readings; the functions here
// are pure so both provider implementations share one piece of arithmetic
// and the tests can exercise it directly.
package provider

import (
	"math"
	"time"
)

// bytesPerMB converts byte counters to MB for network rates.
const bytesPerMB = 1048576

// cpuTicks holds one cumulative CPU counter reading. Values are in whatever
// unit the OS reports (jiffies on Linux, seconds via gopsutil) — only the
// ratio of deltas matters.
type cpuTicks struct {
	total float64
	idle  float64
}

// cpuUsage derives the busy percentage from two consecutive tick readings.
// A non-positive total delta (counter stall or reset) yields 0.
func cpuUsage(prev, cur cpuTicks) float64 {
	totalDelta := cur.total - prev.total
	idleDelta := cur.idle - prev.idle
	if totalDelta <= 0 {
		return 0
	}
	return round1(100 * (totalDelta - idleDelta) / totalDelta)
}

// netCounters holds one cumulative interface byte-counter reading and the
// wall-clock time it was taken.
type netCounters struct {
	rx uint64
	tx uint64
	at time.Time
}

// netRates derives download/upload rates in MB/s from two consecutive
// counter readings. Negative deltas (interface reset) clamp to zero, as does
// a non-positive elapsed time.
func netRates(prev, cur netCounters) (down, up float64) {
	elapsed := cur.at.Sub(prev.at).Seconds()
	if elapsed <= 0 {
		return 0, 0
	}
	rxDelta := float64(cur.rx) - float64(prev.rx)
	txDelta := float64(cur.tx) - float64(prev.tx)
	down = math.Max(0, rxDelta/elapsed/bytesPerMB)
	up = math.Max(0, txDelta/elapsed/bytesPerMB)
	return round2(down), round2(up)
}

// round1 rounds to one decimal place (percentages, temperatures, GHz, watts).
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// round2 rounds to two decimal places (network rates, often sub-1 values).
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
