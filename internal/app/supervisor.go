package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Components started by the supervisor, in start order.
var Components = []string{"web", "relay"}

var errChildExited = errors.New("child exited")

// CommandFunc builds the command that runs one component.
type CommandFunc func(ctx context.Context, component string) *exec.Cmd

// Supervisor runs each component as a child process and stops all of them
// when any one exits or ctx is cancelled.
type Supervisor struct {
	command   CommandFunc
	waitDelay time.Duration
	log       *zerolog.Logger
}

// NewSupervisor re-executes exe once per component with the given extra arguments.
func NewSupervisor(exe string, args []string, logger *zerolog.Logger) *Supervisor {
	return NewSupervisorWithCommand(func(ctx context.Context, component string) *exec.Cmd {
		argv := append([]string{component}, args...)
		cmd := exec.CommandContext(ctx, exe, argv...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		return cmd
	}, logger)
}

// NewSupervisorWithCommand uses command to build child processes.
func NewSupervisorWithCommand(command CommandFunc, logger *zerolog.Logger) *Supervisor {
	return &Supervisor{
		command:   command,
		waitDelay: 10 * time.Second,
		log:       logger,
	}
}

// Run starts every component and waits. It returns nil when shutdown was
// requested or a child exited cleanly, and the first child failure otherwise.
func (s *Supervisor) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, component := range Components {
		g.Go(func() error {
			return s.runChild(gctx, component)
		})
	}

	err := g.Wait()
	if errors.Is(err, errChildExited) {
		s.log.Warn().Err(err).Msg("component exited, stopped the rest")
		return nil
	}
	return err
}

func (s *Supervisor) runChild(ctx context.Context, component string) error {
	cmd := s.command(ctx, component)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = s.waitDelay

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", component, err)
	}
	s.log.Info().Str("child", component).Int("pid", cmd.Process.Pid).Msg("component started")

	err := cmd.Wait()
	if ctx.Err() != nil {
		// Stopped on request. Exit status after SIGTERM is not a failure.
		s.log.Info().Str("child", component).Msg("component stopped")
		return nil
	}
	if err != nil {
		s.log.Error().Err(err).Str("child", component).Msg("component failed")
		return fmt.Errorf("%s: %w", component, err)
	}
	return fmt.Errorf("%w: %s", errChildExited, component)
}
