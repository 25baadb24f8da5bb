package provider

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/statview/agent/internal/models"
)

// writeTree materializes a synthetic sysfs/procfs layout under root.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// laptopTree is a full-featured machine: k10temp, fan, battery, AMD GPU,
// wireless interface on the default route.
func laptopTree() map[string]string {
	return map[string]string{
		"proc/stat":    "cpu 100 0 100 600 200 0 0 0 0 0\ncpu0 50 0 50 300 100 0 0 0 0 0\n",
		"proc/meminfo": "MemTotal:       16384000 kB\nMemFree:         4000000 kB\nMemAvailable:    8192000 kB\n",
		"proc/net/route": "Iface\tDestination\tGateway\tFlags\tRefCnt\tUse\tMetric\tMask\tMTU\tWindow\tIRTT\n" +
			"wlan0\t00000000\t0102A8C0\t0003\t0\t0\t0\t00000000\t0\t0\t0\n",
		"sys/devices/system/cpu/cpu0/cpufreq/scaling_cur_freq": "3500000\n",
		"sys/class/hwmon/hwmon0/name":                          "k10temp\n",
		"sys/class/hwmon/hwmon0/temp1_input":                   "45500\n",
		"sys/class/hwmon/hwmon1/name":                          "nvme\n",
		"sys/class/hwmon/hwmon1/fan1_input":                    "1200\n",
		"sys/class/power_supply/BAT0/capacity":                 "87\n",
		"sys/class/power_supply/BAT0/power_now":                "12400000\n",
		"sys/class/drm/card0/device/gpu_busy_percent":          "45\n",
		"sys/class/net/wlan0/operstate":                        "up\n",
		"sys/class/net/wlan0/statistics/rx_bytes":              "100\n",
		"sys/class/net/wlan0/statistics/tx_bytes":              "50\n",
	}
}

func newTestProvider(t *testing.T, files map[string]string) (*sysfsProvider, string) {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, files)
	p, err := newSysfsProviderAt(root, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return p, root
}

func TestSysfsProvider_FirstSampleBaselines(t *testing.T) {
	p, _ := newTestProvider(t, laptopTree())
	s := p.Sample(context.Background())

	if s.CPUPercent != 0 {
		t.Errorf("first CPUPercent = %v, want 0 (baseline tick)", s.CPUPercent)
	}
	if s.NetDownMBps != 0 || s.NetUpMBps != 0 {
		t.Errorf("first net rates = (%v, %v), want (0, 0)", s.NetDownMBps, s.NetUpMBps)
	}
	if s.CPUFreqGHz != 3.5 {
		t.Errorf("CPUFreqGHz = %v, want 3.5", s.CPUFreqGHz)
	}
	if s.TemperatureC != 45.5 {
		t.Errorf("TemperatureC = %v, want 45.5", s.TemperatureC)
	}
	if s.FanRPM != 1200 {
		t.Errorf("FanRPM = %d, want 1200", s.FanRPM)
	}
	if s.GPUPercent != 45 {
		t.Errorf("GPUPercent = %v, want 45", s.GPUPercent)
	}
	if s.RAMPercent != 50.0 {
		t.Errorf("RAMPercent = %v, want 50.0", s.RAMPercent)
	}
	if s.RAMUsedGB != 7.8 || s.RAMTotalGB != 15.6 {
		t.Errorf("RAM GB = (%v, %v), want (7.8, 15.6)", s.RAMUsedGB, s.RAMTotalGB)
	}
	if s.BatteryPercent != 87 {
		t.Errorf("BatteryPercent = %d, want 87", s.BatteryPercent)
	}
	if s.BatteryPowerW != 12.4 {
		t.Errorf("BatteryPowerW = %v, want 12.4", s.BatteryPowerW)
	}
}

func TestSysfsProvider_DeltaMetricsAcrossTicks(t *testing.T) {
	p, root := newTestProvider(t, laptopTree())

	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return clock }

	p.Sample(context.Background()) // baseline

	writeTree(t, root, map[string]string{
		"proc/stat":                               "cpu 250 0 150 650 250 0 0 0 0 0\n",
		"sys/class/net/wlan0/statistics/rx_bytes": "1048676\n", // +1 MB
		"sys/class/net/wlan0/statistics/tx_bytes": "2097202\n", // +2 MB
	})
	clock = clock.Add(time.Second)

	s := p.Sample(context.Background())

	// Δtotal=300, Δidle=100 → 100*(300-100)/300
	if s.CPUPercent != 66.7 {
		t.Errorf("CPUPercent = %v, want 66.7", s.CPUPercent)
	}
	if s.NetDownMBps != 1.00 {
		t.Errorf("NetDownMBps = %v, want 1.00", s.NetDownMBps)
	}
	if s.NetUpMBps != 2.00 {
		t.Errorf("NetUpMBps = %v, want 2.00", s.NetUpMBps)
	}
}

func TestSysfsProvider_DesktopSentinels(t *testing.T) {
	// No battery, fan, GPU, or temperature chip; wired interface, no route.
	p, _ := newTestProvider(t, map[string]string{
		"proc/stat":                               "cpu 100 0 100 600 200 0 0 0 0 0\n",
		"proc/meminfo":                            "MemTotal: 8000000 kB\nMemAvailable: 4000000 kB\n",
		"sys/class/net/eth0/operstate":            "up\n",
		"sys/class/net/eth0/statistics/rx_bytes":  "0\n",
		"sys/class/net/eth0/statistics/tx_bytes":  "0\n",
	})

	for i := 0; i < 3; i++ {
		s := p.Sample(context.Background())
		if s.BatteryPercent != models.NoBattery || s.BatteryPowerW != 0 {
			t.Errorf("tick %d: battery = (%d, %v), want (-1, 0)",
				i, s.BatteryPercent, s.BatteryPowerW)
		}
		if s.FanRPM != 0 {
			t.Errorf("tick %d: FanRPM = %d, want 0", i, s.FanRPM)
		}
		if s.TemperatureC != 0 {
			t.Errorf("tick %d: TemperatureC = %v, want 0", i, s.TemperatureC)
		}
		if s.GPUPercent != 0 {
			t.Errorf("tick %d: GPUPercent = %v, want 0", i, s.GPUPercent)
		}
	}
}

func TestSysfsProvider_InterfaceDiscovery(t *testing.T) {
	t.Run("default route wins", func(t *testing.T) {
		files := laptopTree()
		files["proc/net/route"] = "Iface\tDestination\tGateway\n" +
			"eth0\t00000000\t0102A8C0\n"
		files["sys/class/net/eth0/operstate"] = "up\n"
		p, _ := newTestProvider(t, files)
		if p.netIface != "eth0" {
			t.Errorf("netIface = %q, want eth0 (default route)", p.netIface)
		}
	})

	t.Run("wireless preferred over wired", func(t *testing.T) {
		p, _ := newTestProvider(t, map[string]string{
			"proc/stat":                     "cpu 1 0 1 1 1 0 0 0 0 0\n",
			"sys/class/net/eth0/operstate":  "up\n",
			"sys/class/net/wlan0/operstate": "up\n",
		})
		if p.netIface != "wlan0" {
			t.Errorf("netIface = %q, want wlan0", p.netIface)
		}
	})

	t.Run("virtual interfaces excluded", func(t *testing.T) {
		p, _ := newTestProvider(t, map[string]string{
			"proc/stat":                        "cpu 1 0 1 1 1 0 0 0 0 0\n",
			"sys/class/net/lo/operstate":       "unknown\n",
			"sys/class/net/docker0/operstate":  "up\n",
			"sys/class/net/veth12ab/operstate": "up\n",
		})
		if p.netIface != "" {
			t.Errorf("netIface = %q, want none", p.netIface)
		}
	})

	t.Run("down interfaces skipped", func(t *testing.T) {
		p, _ := newTestProvider(t, map[string]string{
			"proc/stat":                     "cpu 1 0 1 1 1 0 0 0 0 0\n",
			"sys/class/net/eth0/operstate":  "down\n",
			"sys/class/net/wlan0/operstate": "up\n",
		})
		if p.netIface != "wlan0" {
			t.Errorf("netIface = %q, want wlan0", p.netIface)
		}
	})
}

func TestSysfsProvider_BatteryFromCurrentAndVoltage(t *testing.T) {
	files := laptopTree()
	delete(files, "sys/class/power_supply/BAT0/power_now")
	files["sys/class/power_supply/BAT0/current_now"] = "1500000\n"  // 1.5 A
	files["sys/class/power_supply/BAT0/voltage_now"] = "11000000\n" // 11 V
	p, _ := newTestProvider(t, files)

	percent, watts := p.battery()
	if percent != 87 {
		t.Errorf("percent = %d, want 87", percent)
	}
	if watts != 16.5 {
		t.Errorf("watts = %v, want 16.5 (current × voltage)", watts)
	}
}

func TestSysfsProvider_TransientReadErrorDegradesOneTick(t *testing.T) {
	p, root := newTestProvider(t, laptopTree())

	// Corrupt the temperature reading for one tick.
	writeTree(t, root, map[string]string{
		"sys/class/hwmon/hwmon0/temp1_input": "garbage\n",
	})
	if s := p.Sample(context.Background()); s.TemperatureC != 0 {
		t.Errorf("TemperatureC = %v, want 0 during corrupt reading", s.TemperatureC)
	}

	// Reading recovers on the next tick without re-discovery.
	writeTree(t, root, map[string]string{
		"sys/class/hwmon/hwmon0/temp1_input": "50000\n",
	})
	if s := p.Sample(context.Background()); s.TemperatureC != 50.0 {
		t.Errorf("TemperatureC = %v, want 50.0 after recovery", s.TemperatureC)
	}
}

func TestSysfsProvider_GPUDiscoverySkipsConnectors(t *testing.T) {
	files := laptopTree()
	delete(files, "sys/class/drm/card0/device/gpu_busy_percent")
	files["sys/class/drm/card0-DP-1/device/gpu_busy_percent"] = "99\n"
	p, _ := newTestProvider(t, files)

	if p.gpuPath != "" {
		t.Errorf("gpuPath = %q, want none (connector entries are not cards)", p.gpuPath)
	}
}

func TestSysfsProvider_MissingProcStatIsFatal(t *testing.T) {
	root := t.TempDir()
	if _, err := newSysfsProviderAt(root, zap.NewNop()); err == nil {
		t.Fatal("expected construction to fail without proc/stat")
	}
}
