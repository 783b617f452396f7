// Package launcher drives the lifecycle of one simulated-application run:
// configuration, stream relays, the session state machine, and signal
// forwarding. The tool is single-shot: one Launcher runs at most one session.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/go-logr/logr"

	"github.com/ntherning/ios-sim/pkg/process"
	"github.com/ntherning/ios-sim/pkg/relay"
	"github.com/ntherning/ios-sim/pkg/simctl"
)

const clientName = "ios-sim"

// State is the session lifecycle state.
type State int32

const (
	StateNotStarted State = iota
	StateStarting
	StateRunning
	StateEnded
)

// UnknownSDKError is returned when --sdk names a version that is not among
// the known simulator system roots. The command layer prints the known-root
// listing before exiting.
type UnknownSDKError struct {
	Version string
	Roots   []simctl.SystemRoot
}

func (e *UnknownSDKError) Error() string {
	return fmt.Sprintf("unknown SDK version '%s'", e.Version)
}

// Launcher runs one application session against the simulator control layer.
type Launcher struct {
	cfg     Config
	control simctl.Control
	log     logr.Logger

	stdout io.Writer
	stderr io.Writer

	state atomic.Int32

	// Seams for tests; default to os/signal notification and kill(2).
	notifySignals func(c chan<- os.Signal)
	forwardSignal func(pid process.Pid_t, sig syscall.Signal) error
}

func New(cfg Config, control simctl.Control, log logr.Logger) *Launcher {
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = DefaultStartTimeout
	}

	return &Launcher{
		cfg:     cfg,
		control: control,
		log:     log.WithName("launcher"),
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		notifySignals: func(c chan<- os.Signal) {
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		},
		forwardSignal: process.SignalProcess,
	}
}

func (l *Launcher) State() State {
	return State(l.state.Load())
}

func (l *Launcher) setState(s State) {
	l.state.Store(int32(s))
}

// Run executes the launch to completion and returns the process exit code.
// Any returned error has already been reflected in the exit code; the caller
// only needs to print it.
func (l *Launcher) Run(ctx context.Context) (int, error) {
	l.setState(StateStarting)

	exitCode, err := l.run(ctx)
	l.setState(StateEnded)
	return exitCode, err
}

func (l *Launcher) run(ctx context.Context) (int, error) {
	app, err := simctl.AppSpecifierFromPath(l.cfg.AppPath)
	if err != nil {
		return 1, err
	}

	root, err := l.resolveRoot(ctx)
	if err != nil {
		return 1, err
	}

	relayCtx, cancelRelays := context.WithCancel(ctx)
	defer cancelRelays()

	stdoutPath, stdoutRelay, err := l.setupStream(relayCtx, relay.StdoutStream, l.cfg.StdoutPath, l.stdout)
	if err != nil {
		return 1, err
	}
	defer closeRelay(stdoutRelay)

	stderrPath, stderrRelay, err := l.setupStream(relayCtx, relay.StderrStream, l.cfg.StderrPath, l.stderr)
	if err != nil {
		return 1, err
	}
	defer closeRelay(stderrRelay)

	session, err := l.control.NewSession(simctl.SessionConfig{
		Root:            root,
		Family:          l.cfg.Family,
		App:             app,
		SessionID:       l.cfg.SessionID,
		Args:            l.cfg.AppArgs,
		Env:             l.cfg.Env,
		StdoutPath:      stdoutPath,
		StderrPath:      stderrPath,
		WaitForDebugger: l.cfg.Debug,
		ClientName:      clientName,
	})
	if err != nil {
		return 1, err
	}

	startCtx, cancelStart := context.WithTimeout(ctx, l.cfg.StartTimeout)
	defer cancelStart()

	if err := session.Start(startCtx); err != nil {
		return 1, fmt.Errorf("session could not be started: %w", err)
	}

	started, ok := <-session.Events()
	if !ok || started.Kind != simctl.EventStarted {
		return 1, errors.New("session did not report a start event")
	}

	pid := started.PID
	l.setState(StateRunning)
	l.log.V(1).Info("session started", "SessionID", session.ID(), "PID", pid)

	if l.cfg.ExitOnStartup {
		return 0, nil
	}

	signalCh := make(chan os.Signal, 1)
	l.notifySignals(signalCh)
	defer signal.Stop(signalCh)

	select {

	case ended, ok := <-session.Events():
		if !ok {
			return 1, errors.New("session event stream closed without an end event")
		}
		if ended.Err != nil {
			return 1, fmt.Errorf("session ended with error: %w", ended.Err)
		}
		if ended.ExitCode > 0 {
			return 1, fmt.Errorf("simulated process exited with code %d", ended.ExitCode)
		}
		return 0, nil

	case sig := <-signalCh:
		// Forward the signal to the simulated process and exit right away;
		// pending relay data is not drained.
		l.log.V(1).Info("forwarding signal to simulated process", "signal", sig.String(), "PID", pid)
		if sysSig, isSysSig := sig.(syscall.Signal); isSysSig {
			if fwdErr := l.forwardSignal(pid, sysSig); fwdErr != nil {
				l.log.Error(fwdErr, "failed to forward signal", "PID", pid)
			}
		}
		return 0, nil

	case <-ctx.Done():
		return 1, ctx.Err()
	}
}

// resolveRoot maps --sdk to a known system root. Without --sdk the control
// layer picks the root of the target device.
func (l *Launcher) resolveRoot(ctx context.Context) (*simctl.SystemRoot, error) {
	if l.cfg.SDKVersion == "" {
		return nil, nil
	}

	roots, err := l.control.Roots(ctx)
	if err != nil {
		return nil, err
	}

	for i := range roots {
		if roots[i].Version == l.cfg.SDKVersion {
			return &roots[i], nil
		}
	}

	return nil, &UnknownSDKError{Version: l.cfg.SDKVersion, Roots: roots}
}

// setupStream decides how one standard stream of the simulated application is
// captured: an explicit redirect path is passed through untouched, otherwise a
// FIFO relay is created (unless the launcher exits on startup, in which case
// there is nobody left to relay to).
func (l *Launcher) setupStream(ctx context.Context, tag relay.StreamTag, redirectPath string, dst io.Writer) (string, *relay.Relay, error) {
	if redirectPath != "" {
		return redirectPath, nil, nil
	}
	if l.cfg.ExitOnStartup {
		return "", nil, nil
	}

	r, err := relay.New(tag, dst, l.log)
	if err != nil {
		return "", nil, err
	}

	go r.Run(ctx)

	return r.Path(), r, nil
}

func closeRelay(r *relay.Relay) {
	if r != nil {
		_ = r.Close()
	}
}
