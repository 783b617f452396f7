package simctl

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ntherning/ios-sim/pkg/osutil"
	"github.com/ntherning/ios-sim/pkg/process"
)

// Environment variables with this prefix are forwarded by simctl into the
// launched application's environment.
const childEnvPrefix = "SIMCTL_CHILD_"

// How often the simulated process is checked for exit. Tunable for tests.
var sessionEndPollInterval = osutil.EnvVarDurationValWithDefault(
	"IOS_SIM_SESSION_POLL_INTERVAL", 500*time.Millisecond)

type remoteSession struct {
	client *RemoteClient
	cfg    SessionConfig
	id     string
	events chan Event
	pid    atomic.Int64
}

func newRemoteSession(client *RemoteClient, cfg SessionConfig) *remoteSession {
	id := cfg.SessionID
	if id == "" {
		id = uuid.NewString()
	}

	s := &remoteSession{
		client: client,
		cfg:    cfg,
		id:     id,
		// Buffered so the Started and Ended emits never block.
		events: make(chan Event, 2),
	}
	s.pid.Store(int64(process.UnknownPID))

	return s
}

func (s *remoteSession) ID() string {
	return s.id
}

func (s *remoteSession) PID() process.Pid_t {
	return process.Pid_t(s.pid.Load())
}

func (s *remoteSession) Events() <-chan Event {
	return s.events
}

func (s *remoteSession) Start(ctx context.Context) error {
	log := s.client.log.WithValues("SessionID", s.id, "BundleID", s.cfg.App.BundleID)

	log.V(1).Info("establishing session", "Client", s.cfg.ClientName)

	device, err := s.client.findDevice(ctx, s.cfg.Family, s.cfg.Root)
	if err != nil {
		return err
	}

	if device.State != deviceStateBooted {
		if bootErr := s.client.bootDevice(ctx, device.UDID); bootErr != nil {
			return bootErr
		}
	}

	log.V(1).Info("installing application", "device", device.Name, "UDID", device.UDID, "path", s.cfg.App.Path)
	if _, err := s.client.run(ctx, "install", device.UDID, s.cfg.App.Path); err != nil {
		return fmt.Errorf("could not install '%s': %w", s.cfg.App.Path, err)
	}

	launchArgs := []string{"launch", "--terminate-running-process"}
	if s.cfg.WaitForDebugger {
		launchArgs = append(launchArgs, "--wait-for-debugger")
	}
	if s.cfg.StdoutPath != "" {
		launchArgs = append(launchArgs, "--stdout="+s.cfg.StdoutPath)
	}
	if s.cfg.StderrPath != "" {
		launchArgs = append(launchArgs, "--stderr="+s.cfg.StderrPath)
	}
	launchArgs = append(launchArgs, device.UDID, s.cfg.App.BundleID)
	launchArgs = append(launchArgs, s.cfg.Args...)

	childEnv := make([]string, 0, len(s.cfg.Env))
	for name, value := range s.cfg.Env {
		childEnv = append(childEnv, childEnvPrefix+name+"="+value)
	}

	output, err := s.client.runWithEnv(ctx, childEnv, launchArgs...)
	if err != nil {
		return fmt.Errorf("could not launch '%s': %w", s.cfg.App.BundleID, err)
	}

	pid, err := parseLaunchedPid(output, s.cfg.App.BundleID)
	if err != nil {
		return err
	}

	s.pid.Store(int64(pid))
	log.V(1).Info("application launched", "PID", pid)

	s.events <- Event{Kind: EventStarted, PID: pid, ExitCode: process.UnknownExitCode}

	go s.watchForEnd(pid)

	return nil
}

// watchForEnd waits for the simulated process to exit and emits the final
// Ended event. The simulated process is not our child, so the waitable falls
// back to existence polling.
func (s *remoteSession) watchForEnd(pid process.Pid_t) {
	defer close(s.events)

	wp, err := process.FindWaitableProcess(pid)
	if err != nil {
		// Already gone; treat as a clean end.
		s.events <- Event{Kind: EventEnded, PID: pid, ExitCode: process.UnknownExitCode}
		return
	}
	wp.WaitPollInterval = sessionEndPollInterval

	waitErr := wp.Wait(context.Background())
	if process.IsEarlyProcessExitError(waitErr) {
		waitErr = nil
	}

	s.events <- Event{Kind: EventEnded, PID: pid, ExitCode: process.UnknownExitCode, Err: waitErr}
}

// The launch output ends with "<bundle identifier>: <pid>".
func parseLaunchedPid(output string, bundleID string) (process.Pid_t, error) {
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		line = strings.TrimSpace(line)
		rest, found := strings.CutPrefix(line, bundleID+":")
		if !found {
			continue
		}

		pid, err := process.StringToPidT(strings.TrimSpace(rest))
		if err != nil {
			return process.UnknownPID, fmt.Errorf("could not parse launched process id from %q: %w", line, err)
		}
		return pid, nil
	}

	return process.UnknownPID, fmt.Errorf("launch output did not report a process id: %q", strings.TrimSpace(output))
}

var _ Session = (*remoteSession)(nil)
