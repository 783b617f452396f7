package process

import (
	"context"
	"os/exec"
	"time"
)

// Pid_t is the portable process identifier type used throughout this module.
type Pid_t int64

const (
	// A valid exit code of a process is a non-negative number. We use UnknownExitCode to indicate that we have not obtained the exit code yet.
	UnknownExitCode int32 = -1

	// Unknown PID code is used when a process is not started (or fails to start).
	UnknownPID Pid_t = -1
)

type Executor interface {
	// Starts the process described by given command instance.
	// When the passed context is cancelled, the process is automatically terminated.
	// Returns the process PID, its start time, and a function that enables process exit
	// notifications delivered to the exit handler.
	StartProcess(ctx context.Context, cmd *exec.Cmd, exitHandler ProcessExitHandler) (pid Pid_t, startTime time.Time, startWaitForProcessExit func(), err error)

	// Stops the process with a given PID. The start time, when not zero, is used to verify
	// process identity so a recycled PID is never signalled.
	StopProcess(pid Pid_t, processStartTime time.Time) error
}

type ProcessExitHandler interface {
	// Indicates that process with a given PID has finished execution.
	// If err is nil, the process exit code was properly captured and the exitCode value is valid.
	// If err is not nil, there was a problem tracking the process and the exitCode value is not valid.
	OnProcessExited(pid Pid_t, exitCode int32, err error)
}

type ProcessExitInfo struct {
	PID      Pid_t
	ExitCode int32
	Err      error
}

// A simple process exit handler that writes the finished process status to a channel.
type ChannelProcessExitHandler struct {
	c chan ProcessExitInfo
}

func NewChannelProcessExitHandler(c chan ProcessExitInfo) *ChannelProcessExitHandler {
	return &ChannelProcessExitHandler{
		c: c,
	}
}

func (eh *ChannelProcessExitHandler) OnProcessExited(pid Pid_t, exitCode int32, err error) {
	eh.c <- ProcessExitInfo{
		PID:      pid,
		ExitCode: exitCode,
		Err:      err,
	}
	close(eh.c)
}
