// Package transport handles the serial link to the display: opening and
// writing the port, and locating the right device when none is configured.
package transport

import (
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

const (
	// Baud is the fixed link speed the display firmware expects.
	Baud = 115200

	// readTimeout bounds blocking port reads so a stalled link surfaces
	// as a failure instead of hanging the monitor loop.
	readTimeout = 1 * time.Second

	// SettleDelay is how long to wait after opening the port before the
	// first write. Opening the port resets the display controller, which
	// needs a moment to reinitialize.
	SettleDelay = 2 * time.Second
)

// Port is an open serial connection to the display.
type Port struct {
	name   string
	port   serial.Port
	logger *zap.Logger
}

// Open opens the named serial device, applies the read timeout, and waits
// out the settle delay so the display is ready for the first frame.
func Open(name string, baud int, settle time.Duration, logger *zap.Logger) (*Port, error) {
	mode := &serial.Mode{BaudRate: baud}
	sp, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	if err := sp.SetReadTimeout(readTimeout); err != nil {
		sp.Close()
		return nil, fmt.Errorf("setting read timeout on %s: %w", name, err)
	}

	time.Sleep(settle)

	logger.Info("Serial port opened",
		zap.String("port", name),
		zap.Int("baud", baud))

	return &Port{name: name, port: sp, logger: logger}, nil
}

// Name returns the device path of the open port.
func (p *Port) Name() string { return p.name }

// IsOpen reports whether the port is usable.
func (p *Port) IsOpen() bool {
	return p != nil && p.port != nil
}

// WriteLine writes one wire frame and drains the OS transmit buffer so a
// dead link is detected on this write, not a later one.
func (p *Port) WriteLine(line string) error {
	if !p.IsOpen() {
		return errors.New("port not open")
	}
	if _, err := p.port.Write([]byte(line)); err != nil {
		return fmt.Errorf("writing to %s: %w", p.name, err)
	}
	if err := p.port.Drain(); err != nil {
		return fmt.Errorf("draining %s: %w", p.name, err)
	}
	return nil
}

// Close releases the port. Safe to call repeatedly or on a never-opened Port.
func (p *Port) Close() error {
	if p == nil || p.port == nil {
		return nil
	}
	err := p.port.Close()
	p.port = nil
	p.logger.Info("Serial port closed", zap.String("port", p.name))
	return err
}
