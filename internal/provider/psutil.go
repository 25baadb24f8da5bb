// Cross-platform telemetry provider backed by gopsutil, used on every OS
// without a native sysfs tree (Windows, macOS). Capabilities gopsutil does
// not cover are delegated to the platform seam: battery state and GPU
// utilization on Windows come from WMI and nvidia-smi respectively.
// Fan speed has no portable source and stays at its sentinel.
package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"go.uber.org/zap"

	"github.com/statview/agent/internal/models"
	"github.com/statview/agent/internal/platform"
)

// Sensor name substrings used to identify CPU temperature sensors.
// Windows: CPU Package, CPU Core #0; macOS: TC0P (proximity), TC0D (die).
var cpuSensorKeys = []string{
	"cpu", "core", "package",
	"tctl", "tdie", "k10temp", "coretemp",
	"tc0p", "tc0d", "tcxc",
}

// Interface name substrings excluded from network discovery.
var ignoredIfaceTokens = []string{
	"loopback", "isatap", "teredo", "vmware", "virtual", "bluetooth",
	"docker", "veth", "tailscale",
}

// Temperature readings outside this range are treated as sensor errors.
const (
	minValidTemp = 0.0
	maxValidTemp = 150.0
)

// psutilProvider implements Provider on top of gopsutil.
//
// GPU and battery sources are probed once at construction through the
// platform seam; a failed probe disables the capability for the provider's
// lifetime, while a transient read error after a successful probe degrades
// to the sentinel for that tick only.
type psutilProvider struct {
	ext    platform.Platform
	logger *zap.Logger
	now    func() time.Time

	netIface   string
	gpuOK      bool
	batteryOK  bool

	prevCPU *cpuTicks
	prevNet *netCounters
}

// newPsutilProvider constructs the gopsutil-backed provider and runs
// one-shot discovery for the network interface, GPU, and battery sources.
func newPsutilProvider(ext platform.Platform, logger *zap.Logger) (*psutilProvider, error) {
	p := &psutilProvider{
		ext:    ext,
		logger: logger,
		now:    time.Now,
	}

	// CPU counters are the one hard requirement.
	if _, err := cpu.Times(false); err != nil {
		return nil, fmt.Errorf("querying cpu times: %w", err)
	}

	p.discoverInterface()
	p.probeGPU()
	p.probeBattery()

	return p, nil
}

// Platform returns the implementation name.
func (p *psutilProvider) Platform() string {
	return "gopsutil/" + p.ext.Name()
}

// Sample collects one snapshot. Individual read failures degrade to the
// field's sentinel for this tick only.
func (p *psutilProvider) Sample(ctx context.Context) models.Sample {
	s := models.Sample{BatteryPercent: models.NoBattery}

	s.CPUPercent = p.cpuLoad(ctx)
	s.CPUFreqGHz = p.cpuFrequency(ctx)
	s.GPUPercent = p.gpuUsage()
	s.RAMPercent, s.RAMUsedGB, s.RAMTotalGB = p.memory(ctx)
	s.TemperatureC = p.temperature(ctx)
	s.NetDownMBps, s.NetUpMBps = p.networkRates(ctx)
	s.BatteryPercent, s.BatteryPowerW = p.battery()

	return s
}

// ---- discovery (constructor-time, one-shot, best-effort) ----

// discoverInterface selects the primary network interface: filter out
// loopback/virtual names, keep interfaces that are up, then prefer wireless,
// then wired, then the first remaining candidate.
func (p *psutilProvider) discoverInterface() {
	ifaces, err := net.Interfaces()
	if err != nil {
		p.logger.Warn("Could not enumerate network interfaces", zap.Error(err))
		return
	}

	var candidates []string
	for _, iface := range ifaces {
		if isIgnoredInterface(iface.Name) {
			continue
		}
		up := false
		for _, flag := range iface.Flags {
			if strings.EqualFold(flag, "up") {
				up = true
				break
			}
		}
		if up {
			candidates = append(candidates, iface.Name)
		}
	}

	for _, name := range candidates {
		if isWirelessName(name) {
			p.netIface = name
			p.logger.Info("Found wireless interface", zap.String("interface", name))
			return
		}
	}
	for _, name := range candidates {
		if isWiredName(name) {
			p.netIface = name
			p.logger.Info("Found wired interface", zap.String("interface", name))
			return
		}
	}
	if len(candidates) > 0 {
		p.netIface = candidates[0]
		p.logger.Info("Found network interface", zap.String("interface", p.netIface))
		return
	}
	p.logger.Warn("No network interface found, network speed will be omitted")
}

// probeGPU verifies the GPU source is readable before committing to it.
func (p *psutilProvider) probeGPU() {
	usage, err := p.ext.GPUUsage()
	if err != nil || usage == nil {
		p.logger.Info("No readable GPU source found, GPU usage will be omitted")
		return
	}
	p.gpuOK = true
	p.logger.Info("Found GPU source", zap.String("platform", p.ext.Name()))
}

// probeBattery checks once whether a battery source exists.
func (p *psutilProvider) probeBattery() {
	status, err := p.ext.Battery()
	if err != nil || status == nil {
		p.logger.Info("No battery found (desktop system), battery info will be omitted")
		return
	}
	p.batteryOK = true
	p.logger.Info("Found battery source", zap.String("platform", p.ext.Name()))
}

// ---- per-tick reads ----

// cpuLoad computes the busy percentage since the previous tick.
// The first call records the baseline and returns 0.
func (p *psutilProvider) cpuLoad(ctx context.Context) float64 {
	times, err := cpu.TimesWithContext(ctx, false)
	if err != nil || len(times) == 0 {
		p.logger.Debug("CPU times read failed", zap.Error(err))
		return 0
	}

	t := times[0]
	cur := cpuTicks{total: t.Total(), idle: t.Idle + t.Iowait}

	usage := 0.0
	if p.prevCPU != nil {
		usage = cpuUsage(*p.prevCPU, cur)
	}
	p.prevCPU = &cur
	return usage
}

// cpuFrequency averages the reported clock speed across packages (MHz → GHz).
func (p *psutilProvider) cpuFrequency(ctx context.Context) float64 {
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil || len(infos) == 0 {
		return 0
	}
	var sum float64
	for _, info := range infos {
		sum += info.Mhz
	}
	return round1(sum / float64(len(infos)) / 1000)
}

// memory returns usage percent and used/total in GB.
func (p *psutilProvider) memory(ctx context.Context) (percent, usedGB, totalGB float64) {
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		p.logger.Debug("Memory read failed", zap.Error(err))
		return 0, 0, 0
	}
	const bytesPerGB = 1 << 30
	return round1(v.UsedPercent),
		round1(float64(v.Used) / bytesPerGB),
		round1(float64(v.Total) / bytesPerGB)
}

// temperature takes the hottest valid CPU sensor reading.
func (p *psutilProvider) temperature(ctx context.Context) float64 {
	temps, err := host.SensorsTemperaturesWithContext(ctx)
	if err != nil {
		p.logger.Debug("Temperature sensors not available", zap.Error(err))
		return 0
	}

	var max float64
	found := false
	for _, t := range temps {
		if t.Temperature <= minValidTemp || t.Temperature > maxValidTemp {
			continue
		}
		name := strings.ToLower(t.SensorKey)
		for _, key := range cpuSensorKeys {
			if strings.Contains(name, key) {
				if !found || t.Temperature > max {
					max = t.Temperature
					found = true
				}
				break
			}
		}
	}
	if !found {
		return 0
	}
	return round1(max)
}

// gpuUsage reads the probed GPU source.
func (p *psutilProvider) gpuUsage() float64 {
	if !p.gpuOK {
		return 0
	}
	usage, err := p.ext.GPUUsage()
	if err != nil || usage == nil {
		p.logger.Debug("GPU read failed", zap.Error(err))
		return 0
	}
	return round1(*usage)
}

// networkRates computes MB/s throughput on the selected interface since the
// previous tick. The first call records the baseline and returns (0, 0).
func (p *psutilProvider) networkRates(ctx context.Context) (down, up float64) {
	if p.netIface == "" {
		return 0, 0
	}

	counters, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		p.logger.Debug("Network counter read failed", zap.Error(err))
		return 0, 0
	}

	for _, c := range counters {
		if c.Name != p.netIface {
			continue
		}
		cur := netCounters{rx: c.BytesRecv, tx: c.BytesSent, at: p.now()}
		if p.prevNet == nil {
			p.prevNet = &cur
			return 0, 0
		}
		down, up = netRates(*p.prevNet, cur)
		p.prevNet = &cur
		return down, up
	}

	p.logger.Debug("Selected interface missing from counters",
		zap.String("interface", p.netIface))
	return 0, 0
}

// battery reads the probed battery source.
func (p *psutilProvider) battery() (percent int, watts float64) {
	if !p.batteryOK {
		return models.NoBattery, 0
	}
	status, err := p.ext.Battery()
	if err != nil || status == nil {
		p.logger.Debug("Battery read failed", zap.Error(err))
		return models.NoBattery, 0
	}
	return status.Percent, round1(status.PowerW)
}

// isIgnoredInterface reports whether the interface name matches a known
// loopback/virtual token.
func isIgnoredInterface(name string) bool {
	lower := strings.ToLower(name)
	if lower == "lo" || lower == "lo0" {
		return true
	}
	for _, token := range ignoredIfaceTokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

// isWirelessName matches common wireless interface naming across platforms.
func isWirelessName(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasPrefix(lower, "wl") ||
		strings.Contains(lower, "wi-fi") ||
		strings.Contains(lower, "wireless") ||
		strings.Contains(lower, "wlan")
}

// isWiredName matches common wired interface naming across platforms.
func isWiredName(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasPrefix(lower, "e") || strings.Contains(lower, "ethernet")
}
