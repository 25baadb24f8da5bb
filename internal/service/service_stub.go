//go:build !windows

// Non-Windows build of the service package. There is no service manager to
// talk to here: the agent is expected to run in the foreground (or under
// systemd/launchd, which need no in-process handshake), so the wrapper just
// invokes the run function directly.
package service

import (
	"context"

	"go.uber.org/zap"
)

// AgentService wraps the agent run function on platforms without an SCM.
type AgentService struct {
	logger  *zap.Logger
	startFn func(ctx context.Context)
}

// New wraps startFn; on non-Windows platforms Run calls it inline.
func New(logger *zap.Logger, startFn func(ctx context.Context)) *AgentService {
	return &AgentService{
		logger:  logger,
		startFn: startFn,
	}
}

// IsWindowsService reports false: there is no SCM on this platform.
func IsWindowsService() bool {
	return false
}

// Run executes the agent in the foreground and returns when it stops.
func (s *AgentService) Run() error {
	s.startFn(context.Background())
	return nil
}
