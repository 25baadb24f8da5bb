// Linux telemetry provider backed by sysfs and procfs.
// This is the reference implementation: it reads the kernel's hwmon,
// power_supply, DRM, and net interfaces directly, which exposes the
// metrics gopsutil does not cover (fan speed, GPU busy percentage,
// battery power draw).
package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/statview/agent/internal/models"
)

// hwmon chip names accepted as the CPU temperature source, in preference
// order. k10temp covers AMD, coretemp Intel, the rest are common fallbacks.
var tempChipNames = []string{"k10temp", "coretemp", "zenpower", "cpu_thermal", "acpitz"}

// Interface name prefixes excluded from network discovery (loopback and
// known virtual/tunnel devices).
var virtualIfacePrefixes = []string{"lo", "docker", "veth", "br-", "tailscale", "virbr", "tun", "wg"}

// sysfsProvider implements Provider for Linux.
//
// Discovery runs once in the constructor and resolves concrete file paths for
// each capability; a capability whose path could not be resolved stays
// disabled for the provider's lifetime. The delta baselines for CPU and
// network are private to the instance and updated in place on every Sample.
type sysfsProvider struct {
	root   string // filesystem root, "/" outside tests
	logger *zap.Logger
	now    func() time.Time

	tempPath   string // hwmon temp1_input, "" if not found
	fanPath    string // hwmon fan*_input, "" if not found
	batteryDir string // power_supply/BAT* directory, "" if not found
	gpuPath    string // DRM gpu_busy_percent, "" if not found
	netIface   string // primary interface name, "" if not found

	prevCPU *cpuTicks
	prevNet *netCounters
}

// newSysfsProvider constructs the Linux provider rooted at "/".
func newSysfsProvider(logger *zap.Logger) (*sysfsProvider, error) {
	return newSysfsProviderAt("/", logger)
}

// newSysfsProviderAt constructs the provider against an alternate filesystem
// root. Tests point this at a synthetic sysfs/procfs tree.
func newSysfsProviderAt(root string, logger *zap.Logger) (*sysfsProvider, error) {
	p := &sysfsProvider{
		root:   root,
		logger: logger,
		now:    time.Now,
	}

	// /proc/stat readability is the one hard requirement: without it the
	// provider cannot produce CPU load at all.
	if _, err := p.readCPUTicks(); err != nil {
		return nil, fmt.Errorf("reading proc/stat: %w", err)
	}

	p.discoverTemperature()
	p.discoverFan()
	p.discoverBattery()
	p.discoverNetwork()
	p.discoverGPU()

	return p, nil
}

// Platform returns the implementation name.
func (p *sysfsProvider) Platform() string { return "linux/sysfs" }

// Sample collects one snapshot. Individual read failures degrade to the
// field's sentinel for this tick only.
func (p *sysfsProvider) Sample(_ context.Context) models.Sample {
	s := models.Sample{BatteryPercent: models.NoBattery}

	s.CPUPercent = p.cpuLoad()
	s.CPUFreqGHz = p.cpuFrequency()
	s.GPUPercent = p.gpuUsage()
	s.RAMPercent, s.RAMUsedGB, s.RAMTotalGB = p.memory()
	s.TemperatureC = p.temperature()
	s.FanRPM = p.fanSpeed()
	s.NetDownMBps, s.NetUpMBps = p.networkRates()
	s.BatteryPercent, s.BatteryPowerW = p.battery()

	return s
}

// ---- discovery (constructor-time, one-shot, best-effort) ----

// discoverTemperature scans /sys/class/hwmon for a known CPU temperature
// chip and resolves its temp1_input path.
func (p *sysfsProvider) discoverTemperature() {
	chips := map[string]string{} // chip name -> hwmon directory
	nameFiles, _ := filepath.Glob(filepath.Join(p.root, "sys/class/hwmon/hwmon*/name"))
	for _, nameFile := range nameFiles {
		data, err := os.ReadFile(nameFile)
		if err != nil {
			continue
		}
		chips[strings.TrimSpace(string(data))] = filepath.Dir(nameFile)
	}

	for _, chip := range tempChipNames {
		dir, ok := chips[chip]
		if !ok {
			continue
		}
		p.tempPath = filepath.Join(dir, "temp1_input")
		p.logger.Info("Found temperature sensor",
			zap.String("chip", chip),
			zap.String("path", p.tempPath))
		return
	}
	p.logger.Warn("No temperature sensor found, temperature will be 0")
}

// discoverFan takes the first fan tachometer input found under hwmon.
func (p *sysfsProvider) discoverFan() {
	fans, _ := filepath.Glob(filepath.Join(p.root, "sys/class/hwmon/hwmon*/fan*_input"))
	if len(fans) == 0 {
		p.logger.Warn("No fan sensor found, fan speed will be omitted")
		return
	}
	sort.Strings(fans)
	p.fanPath = fans[0]
	p.logger.Info("Found fan sensor", zap.String("path", p.fanPath))
}

// discoverBattery takes the first BAT* node under power_supply.
func (p *sysfsProvider) discoverBattery() {
	batteries, _ := filepath.Glob(filepath.Join(p.root, "sys/class/power_supply/BAT*"))
	if len(batteries) == 0 {
		p.logger.Info("No battery found (desktop system), battery info will be omitted")
		return
	}
	sort.Strings(batteries)
	p.batteryDir = batteries[0]
	p.logger.Info("Found battery", zap.String("path", p.batteryDir))
}

// discoverNetwork resolves the primary network interface: the default-route
// interface when one exists, else the best physical interface that is up.
func (p *sysfsProvider) discoverNetwork() {
	if iface := p.defaultRouteInterface(); iface != "" {
		p.netIface = iface
		p.logger.Info("Found network interface from default route",
			zap.String("interface", iface))
		return
	}

	entries, err := os.ReadDir(filepath.Join(p.root, "sys/class/net"))
	if err != nil {
		p.logger.Warn("Could not scan network interfaces", zap.Error(err))
		return
	}

	var candidates []string
	for _, e := range entries {
		name := e.Name()
		if isVirtualInterface(name) {
			continue
		}
		state, err := p.readStringFile(filepath.Join("sys/class/net", name, "operstate"))
		if err != nil {
			continue
		}
		if state == "up" || state == "unknown" {
			candidates = append(candidates, name)
		}
	}

	// Wireless first, then wired, then anything that is left.
	for _, name := range candidates {
		if strings.HasPrefix(name, "wl") {
			p.netIface = name
			p.logger.Info("Found WiFi interface", zap.String("interface", name))
			return
		}
	}
	for _, name := range candidates {
		if strings.HasPrefix(name, "e") {
			p.netIface = name
			p.logger.Info("Found Ethernet interface", zap.String("interface", name))
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

// defaultRouteInterface parses /proc/net/route for the 0.0.0.0 route.
func (p *sysfsProvider) defaultRouteInterface() string {
	data, err := os.ReadFile(filepath.Join(p.root, "proc/net/route"))
	if err != nil {
		return ""
	}
	lines := strings.Split(string(data), "\n")
	for _, line := range lines[1:] { // first line is the header
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[1] != "00000000" {
			continue
		}
		iface := fields[0]
		if iface == "lo" {
			continue
		}
		if _, err := os.Stat(filepath.Join(p.root, "sys/class/net", iface)); err == nil {
			return iface
		}
	}
	return ""
}

// discoverGPU looks for an AMD DRM card exposing gpu_busy_percent and
// verifies read permission before committing to it. Connector entries
// (card1-DP-1 and the like) are skipped.
func (p *sysfsProvider) discoverGPU() {
	cards, _ := filepath.Glob(filepath.Join(p.root, "sys/class/drm/card*"))
	sort.Strings(cards)
	for _, card := range cards {
		if strings.Contains(filepath.Base(card), "-") {
			continue
		}
		busyPath := filepath.Join(card, "device", "gpu_busy_percent")
		if _, err := os.ReadFile(busyPath); err != nil {
			if os.IsPermission(err) {
				p.logger.Warn("GPU found but not readable",
					zap.String("path", busyPath))
			}
			continue
		}
		p.gpuPath = busyPath
		p.logger.Info("Found GPU device", zap.String("path", p.gpuPath))
		return
	}
	p.logger.Info("No GPU device found, GPU usage will be omitted")
}

// ---- per-tick reads ----

// cpuLoad computes the busy percentage since the previous tick.
// The first call records the baseline and returns 0.
func (p *sysfsProvider) cpuLoad() float64 {
	cur, err := p.readCPUTicks()
	if err != nil {
		p.logger.Debug("CPU tick read failed", zap.Error(err))
		return 0
	}
	usage := 0.0
	if p.prevCPU != nil {
		usage = cpuUsage(*p.prevCPU, cur)
	}
	p.prevCPU = &cur
	return usage
}

// readCPUTicks parses the aggregate line of /proc/stat.
// Fields: user nice system idle iowait irq softirq; idle time includes iowait.
func (p *sysfsProvider) readCPUTicks() (cpuTicks, error) {
	data, err := os.ReadFile(filepath.Join(p.root, "proc/stat"))
	if err != nil {
		return cpuTicks{}, err
	}
	line, _, _ := strings.Cut(string(data), "\n")
	fields := strings.Fields(line)
	if len(fields) < 8 || fields[0] != "cpu" {
		return cpuTicks{}, fmt.Errorf("unexpected proc/stat format: %q", line)
	}

	var ticks [7]float64
	for i := 0; i < 7; i++ {
		v, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return cpuTicks{}, fmt.Errorf("parsing proc/stat field %d: %w", i+1, err)
		}
		ticks[i] = v
	}

	var total float64
	for _, v := range ticks {
		total += v
	}
	return cpuTicks{total: total, idle: ticks[3] + ticks[4]}, nil
}

// cpuFrequency reads the current core-0 scaling frequency in GHz.
func (p *sysfsProvider) cpuFrequency() float64 {
	khz, err := p.readIntFile("sys/devices/system/cpu/cpu0/cpufreq/scaling_cur_freq")
	if err != nil {
		return 0
	}
	return round1(float64(khz) / 1e6)
}

// memory returns usage percent and used/total in GB from /proc/meminfo.
func (p *sysfsProvider) memory() (percent, usedGB, totalGB float64) {
	data, err := os.ReadFile(filepath.Join(p.root, "proc/meminfo"))
	if err != nil {
		p.logger.Debug("meminfo read failed", zap.Error(err))
		return 0, 0, 0
	}

	var totalKB, availableKB float64
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			totalKB, _ = strconv.ParseFloat(fields[1], 64)
		case "MemAvailable:":
			availableKB, _ = strconv.ParseFloat(fields[1], 64)
		}
		if totalKB > 0 && availableKB > 0 {
			break
		}
	}
	if totalKB <= 0 {
		return 0, 0, 0
	}

	usedKB := totalKB - availableKB
	return round1(100 * usedKB / totalKB),
		round1(usedKB / 1024 / 1024),
		round1(totalKB / 1024 / 1024)
}

// temperature reads the resolved hwmon sensor (millidegrees Celsius).
func (p *sysfsProvider) temperature() float64 {
	if p.tempPath == "" {
		return 0
	}
	milli, err := readIntAt(p.tempPath)
	if err != nil {
		p.logger.Debug("Temperature read failed", zap.Error(err))
		return 0
	}
	return round1(float64(milli) / 1000)
}

// fanSpeed reads the resolved fan tachometer (RPM).
func (p *sysfsProvider) fanSpeed() int {
	if p.fanPath == "" {
		return 0
	}
	rpm, err := readIntAt(p.fanPath)
	if err != nil {
		p.logger.Debug("Fan read failed", zap.Error(err))
		return 0
	}
	return int(rpm)
}

// gpuUsage reads the resolved DRM busy percentage.
func (p *sysfsProvider) gpuUsage() float64 {
	if p.gpuPath == "" {
		return 0
	}
	busy, err := readIntAt(p.gpuPath)
	if err != nil {
		p.logger.Debug("GPU read failed", zap.Error(err))
		return 0
	}
	return float64(busy)
}

// networkRates computes MB/s throughput since the previous tick.
// The first call records the baseline counters and returns (0, 0).
func (p *sysfsProvider) networkRates() (down, up float64) {
	if p.netIface == "" {
		return 0, 0
	}

	statsDir := filepath.Join("sys/class/net", p.netIface, "statistics")
	rx, errRx := p.readIntFile(filepath.Join(statsDir, "rx_bytes"))
	tx, errTx := p.readIntFile(filepath.Join(statsDir, "tx_bytes"))
	if errRx != nil || errTx != nil {
		p.logger.Debug("Network counter read failed",
			zap.String("interface", p.netIface))
		return 0, 0
	}

	cur := netCounters{rx: uint64(rx), tx: uint64(tx), at: p.now()}
	if p.prevNet == nil {
		p.prevNet = &cur
		return 0, 0
	}
	down, up = netRates(*p.prevNet, cur)
	p.prevNet = &cur
	return down, up
}

// battery reads charge percent and power draw from the resolved power_supply
// node. Power comes from power_now when present, else current × voltage.
func (p *sysfsProvider) battery() (percent int, watts float64) {
	if p.batteryDir == "" {
		return models.NoBattery, 0
	}

	capacity, err := readIntAt(filepath.Join(p.batteryDir, "capacity"))
	if err != nil {
		p.logger.Debug("Battery read failed", zap.Error(err))
		return models.NoBattery, 0
	}

	if microwatts, err := readIntAt(filepath.Join(p.batteryDir, "power_now")); err == nil {
		return int(capacity), round1(float64(microwatts) / 1e6)
	}

	microamps, errA := readIntAt(filepath.Join(p.batteryDir, "current_now"))
	microvolts, errV := readIntAt(filepath.Join(p.batteryDir, "voltage_now"))
	if errA == nil && errV == nil {
		return int(capacity), round1(float64(microamps) * float64(microvolts) / 1e12)
	}
	return int(capacity), 0
}

// ---- small file helpers ----

// readStringFile reads a root-relative file and trims whitespace.
func (p *sysfsProvider) readStringFile(rel string) (string, error) {
	data, err := os.ReadFile(filepath.Join(p.root, rel))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// readIntFile reads a root-relative file holding a single integer.
func (p *sysfsProvider) readIntFile(rel string) (int64, error) {
	return readIntAt(filepath.Join(p.root, rel))
}

// readIntAt reads an absolute path holding a single integer.
func readIntAt(path string) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", path, err)
	}
	return v, nil
}

// isVirtualInterface reports whether the interface name matches a known
// loopback/virtual/tunnel prefix.
func isVirtualInterface(name string) bool {
	for _, prefix := range virtualIfacePrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
