// Package companion starts the optional remote-access service that the
// supervisor enables after joining a network or starting the access point.
//
// Which implementation runs is decided once at startup: Noop when nothing
// is configured, Command when settings name an executable.
package companion

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/muurk/wifiman/internal/logging"
	"go.uber.org/zap"
)

// ErrUnavailable is returned by Noop.
var ErrUnavailable = errors.New("companion service not available")

// Service is something the supervisor can start.
type Service interface {
	Name() string
	Start(ctx context.Context) error
}

// Noop is used when no companion service is configured.
type Noop struct{}

func (Noop) Name() string { return "none" }

func (Noop) Start(context.Context) error { return ErrUnavailable }

// Command runs an external program once per process. It is considered
// started when the program exits zero within Timeout, or is still running
// when Timeout expires (a daemon that stays in the foreground).
type Command struct {
	Argv    []string
	Timeout time.Duration

	mu      sync.Mutex
	started bool
	cmd     *exec.Cmd
}

// NewCommand returns a Command for argv.
func NewCommand(argv []string, timeout time.Duration) *Command {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Command{Argv: argv, Timeout: timeout}
}

func (c *Command) Name() string {
	if len(c.Argv) == 0 {
		return "command"
	}
	return c.Argv[0]
}

// Start launches the program unless an earlier Start succeeded.
func (c *Command) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return nil
	}
	if len(c.Argv) == 0 {
		return ErrUnavailable
	}

	path, err := exec.LookPath(c.Argv[0])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	cmd := exec.Command(path, c.Argv[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", c.Argv[0], err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(c.Timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%s exited: %w", c.Argv[0], err)
		}
	case <-timer.C:
		logging.Debug("Companion service still running in foreground", zap.String("command", c.Argv[0]))
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		return ctx.Err()
	}

	c.started = true
	c.cmd = cmd
	logging.Info("Companion service started", zap.Strings("argv", c.Argv))
	return nil
}

// Started reports whether Start has succeeded.
func (c *Command) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}
