// Package monitor drives the sample → encode → send loop and the connection
// state machine around it. One tick runs to completion before the next
// interval begins; there is no overlap and no concurrency inside the loop.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/statview/agent/internal/models"
)

// ErrLinkLost is returned by Run when a write failed and the single
// reconnect attempt that follows also failed.
var ErrLinkLost = errors.New("display link lost")

// State is the connection state of the loop.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Sampler produces one telemetry snapshot per tick.
type Sampler interface {
	Sample(ctx context.Context) models.Sample
}

// Link is an open connection to the display.
type Link interface {
	WriteLine(line string) error
	Close() error
}

// Connector establishes a Link: port discovery, open, settle delay.
type Connector interface {
	Connect(ctx context.Context) (Link, error)
}

// ConnectorFunc adapts a function to the Connector interface.
type ConnectorFunc func(ctx context.Context) (Link, error)

// Connect calls the wrapped function.
func (f ConnectorFunc) Connect(ctx context.Context) (Link, error) {
	return f(ctx)
}

// Loop owns the connection state and runs the periodic send cycle.
type Loop struct {
	sampler   Sampler
	encode    func(models.Sample) string
	connector Connector
	interval  time.Duration
	backoff   time.Duration
	logger    *zap.Logger

	// onSample, when set, observes every snapshot before it is sent
	// (console status line).
	onSample func(models.Sample)

	state State
	link  Link
}

// New creates a Loop. The encode function must be pure; the sampler and
// connector are called only from Run's goroutine.
func New(sampler Sampler, encode func(models.Sample) string, connector Connector,
	interval, backoff time.Duration, logger *zap.Logger) *Loop {
	return &Loop{
		sampler:   sampler,
		encode:    encode,
		connector: connector,
		interval:  interval,
		backoff:   backoff,
		logger:    logger,
		state:     Disconnected,
	}
}

// OnSample registers an observer for each collected snapshot.
func (l *Loop) OnSample(fn func(models.Sample)) {
	l.onSample = fn
}

// State returns the current connection state.
func (l *Loop) State() State {
	return l.state
}

// Run connects and then samples, encodes, and sends at the fixed interval
// until the context is cancelled (returns nil after closing the link) or the
// link is lost beyond the single reconnect attempt (returns ErrLinkLost).
// A failed initial connection is returned as-is: startup does not retry.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.connect(ctx); err != nil {
		return fmt.Errorf("initial connection: %w", err)
	}
	defer l.closeLink()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	// First frame goes out immediately; the ticker paces the rest.
	if err := l.tick(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Monitor loop stopping")
			return nil
		case <-ticker.C:
			if err := l.tick(ctx); err != nil {
				return err
			}
		}
	}
}

// tick runs one full cycle. A write failure drops the connection, waits out
// the backoff, and makes exactly one reconnect attempt; a second consecutive
// failure surfaces as ErrLinkLost and ends the loop.
func (l *Loop) tick(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}

	sample := l.sampler.Sample(ctx)
	if l.onSample != nil {
		l.onSample(sample)
	}

	err := l.link.WriteLine(l.encode(sample))
	if err == nil {
		return nil
	}

	l.logger.Warn("Send failed, attempting to reconnect", zap.Error(err))
	l.closeLink()
	l.state = Disconnected

	select {
	case <-ctx.Done():
		return nil
	case <-time.After(l.backoff):
	}

	if err := l.connect(ctx); err != nil {
		l.logger.Error("Reconnection failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrLinkLost, err)
	}
	l.logger.Info("Reconnected to display")
	return nil
}

// connect drives Disconnected → Connecting → Connected.
func (l *Loop) connect(ctx context.Context) error {
	l.state = Connecting
	link, err := l.connector.Connect(ctx)
	if err != nil {
		l.state = Disconnected
		return err
	}
	l.link = link
	l.state = Connected
	return nil
}

// closeLink closes the current link if any. Close errors are logged, not
// propagated: the link is being discarded either way.
func (l *Loop) closeLink() {
	if l.link == nil {
		return
	}
	if err := l.link.Close(); err != nil {
		l.logger.Debug("Closing link failed", zap.Error(err))
	}
	l.link = nil
}
