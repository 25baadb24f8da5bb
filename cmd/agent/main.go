// Package main is the entry point for the statview agent.
// It samples host hardware telemetry once per interval and streams each
// snapshot as a checksummed text frame over a serial link to an external
// display, reconnecting once when the link drops.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/statview/agent/internal/config"
	"github.com/statview/agent/internal/console"
	"github.com/statview/agent/internal/monitor"
	"github.com/statview/agent/internal/protocol"
	"github.com/statview/agent/internal/provider"
	"github.com/statview/agent/internal/service"
	"github.com/statview/agent/internal/transport"
)

var (
	// version is set at build time via -ldflags.
	version = "dev"

	configPath  = flag.String("config", "", "Path to configuration file (optional)")
	showVersion = flag.Bool("version", false, "Show version and exit")
	listPorts   = flag.Bool("list-ports", false, "List available serial ports and exit")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(),
			"Usage: %s [flags] [port]\n\nStreams hardware telemetry to a serial display.\n"+
				"With no port argument the display device is auto-detected.\n\nFlags:\n",
			os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("statview-agent %s\n", version)
		return
	}

	if *listPorts {
		if err := printPorts(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list ports: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// A positional argument names the port explicitly and bypasses discovery.
	if port := flag.Arg(0); port != "" {
		cfg.Serial.Port = port
	}

	logger := initLogger(cfg)
	defer logger.Sync()

	logger.Info("Starting statview agent",
		zap.String("version", version),
		zap.String("port", cfg.Serial.Port))

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	if service.IsWindowsService() {
		logger.Info("Running as Windows service")
		svc := service.New(logger, func(ctx context.Context) {
			runAgent(ctx, cfg, logger, false)
		})
		if err := svc.Run(); err != nil {
			logger.Fatal("Service failed", zap.Error(err))
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle OS signals for graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("Received signal, shutting down",
			zap.String("signal", sig.String()))
		cancel()
	}()

	runAgent(ctx, cfg, logger, cfg.Console.Enabled)
	logger.Info("Agent stopped")
}

// runAgent wires the provider, encoder, and transport into the monitor loop
// and blocks until the loop ends. Failure to initialize the provider or to
// establish the initial connection is fatal (exit code 1); losing the link
// after the single reconnect attempt ends the run without an error exit.
func runAgent(ctx context.Context, cfg *config.Config, logger *zap.Logger, interactive bool) {
	prov, err := provider.New(logger)
	if err != nil {
		logger.Fatal("Failed to initialize metric provider", zap.Error(err))
	}
	logger.Info("Metric provider ready", zap.String("platform", prov.Platform()))

	dialer := &transport.Dialer{
		Port:   cfg.Serial.Port,
		Baud:   cfg.Serial.Baud,
		Settle: cfg.Serial.SettleDelay.Duration,
		Logger: logger,
	}
	connector := monitor.ConnectorFunc(func(ctx context.Context) (monitor.Link, error) {
		return dialer.Connect(ctx)
	})

	loop := monitor.New(prov, protocol.Encode, connector,
		cfg.Monitor.Interval.Duration, cfg.Monitor.ReconnectBackoff.Duration, logger)

	if interactive {
		status := console.NewWriter(os.Stdout)
		loop.OnSample(status.Update)
	}

	logger.Info("Monitoring started",
		zap.Duration("interval", cfg.Monitor.Interval.Duration))

	if err := loop.Run(ctx); err != nil {
		if errors.Is(err, monitor.ErrLinkLost) {
			logger.Error("Display link lost, giving up", zap.Error(err))
			return
		}
		logger.Fatal("Failed to connect to display", zap.Error(err))
	}
}

// printPorts writes the enumerated serial devices to stdout.
func printPorts() error {
	ports, err := transport.List()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found.")
		return nil
	}
	for _, p := range ports {
		if p.Description != "" {
			fmt.Printf("%s\t%s\n", p.Device, p.Description)
		} else {
			fmt.Println(p.Device)
		}
	}
	return nil
}

// initLogger creates a zap logger based on the configuration.
// It outputs to stderr (human-readable) and optionally a JSON log file;
// stdout stays free for the live status line.
func initLogger(cfg *config.Config) *zap.Logger {
	var level zapcore.Level
	switch cfg.Logging.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stderr),
		level,
	)

	cores := []zapcore.Core{consoleCore}

	if cfg.Logging.File != "" {
		file, err := os.OpenFile(cfg.Logging.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
		if err == nil {
			fileCore := zapcore.NewCore(
				zapcore.NewJSONEncoder(encoderConfig),
				zapcore.AddSync(file),
				level,
			)
			cores = append(cores, fileCore)
		}
	}

	return zap.New(zapcore.NewTee(cores...))
}
