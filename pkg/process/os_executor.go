package process

import (
	"context"
	"errors"
	"os/exec"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

type OSExecutor struct {
	log logr.Logger
}

func NewOSExecutor(log logr.Logger) *OSExecutor {
	return &OSExecutor{
		log: log.WithName("os-executor"),
	}
}

func (e *OSExecutor) StartProcess(ctx context.Context, cmd *exec.Cmd, handler ProcessExitHandler) (Pid_t, time.Time, func(), error) {
	if err := cmd.Start(); err != nil {
		return UnknownPID, time.Time{}, nil, err
	}
	processStartTime := time.Now()

	pid, err := IntToPidT(cmd.Process.Pid)
	if err != nil {
		return UnknownPID, time.Time{}, nil, err
	}

	// The OS process startup timestamp is the most accurate value we can get.
	if osStartTime := StartTimeForProcess(pid); !osStartTime.IsZero() {
		processStartTime = osStartTime
	}

	waitResultCh := make(chan error, 1)
	startWaitingForProcessExit := sync.OnceFunc(func() {
		go func() {
			waitResultCh <- cmd.Wait()
		}()
	})

	go func() {
		select {

		case waitErr := <-waitResultCh:
			// The process exited before the context expired.
			if handler != nil {
				exitCode, execError := getProcessExecResult(waitErr, cmd)
				handler.OnProcessExited(pid, exitCode, execError)
			}

		case <-ctx.Done():
			stopProcessErr := e.StopProcess(pid, processStartTime)
			if stopProcessErr != nil && !errors.Is(stopProcessErr, ErrorProcessNotFound) {
				if handler != nil {
					// Let the caller know that the process did not stop upon context expiration.
					handler.OnProcessExited(pid, UnknownExitCode, errors.Join(stopProcessErr, ctx.Err()))
				}
				return
			}

			// Make sure the command gets reaped so the wait result is delivered.
			startWaitingForProcessExit()
			waitErr := <-waitResultCh

			if handler != nil {
				exitCode, execError := getProcessExecResult(waitErr, cmd)
				handler.OnProcessExited(pid, exitCode, errors.Join(execError, ctx.Err()))
			}
		}
	}()

	return pid, processStartTime, startWaitingForProcessExit, nil
}

// Returns the process execution error and process exit code depending on the result of command wait call.
func getProcessExecResult(waitErr error, cmd *exec.Cmd) (int32, error) {
	var ee *exec.ExitError
	if waitErr == nil {
		return int32(cmd.ProcessState.ExitCode()), nil
	} else if errors.As(waitErr, &ee) {
		return int32(ee.ExitCode()), nil
	} else {
		return UnknownExitCode, waitErr
	}
}

var _ Executor = (*OSExecutor)(nil)
