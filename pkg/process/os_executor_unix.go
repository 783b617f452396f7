//go:build !windows

package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"
)

const signalAndWaitTimeout = 10 * time.Second

func (e *OSExecutor) StopProcess(pid Pid_t, processStartTime time.Time) error {
	proc, err := FindProcessWithIdentity(pid, processStartTime)
	if err != nil {
		if errors.Is(err, ErrorProcessNotFound) {
			return err
		}
		return fmt.Errorf("could not find process %d: %w", pid, err)
	}

	// Give the process a chance to gracefully exit.
	// There is no established standard for what signals are used for graceful shutdown,
	// but SIGTERM is the common choice.
	err = e.signalAndWaitForExit(proc, syscall.SIGTERM)
	switch {
	case err == nil:
		e.log.V(1).Info("process stopped by SIGTERM", "pid", pid)
		return nil
	case !errors.Is(err, context.DeadlineExceeded):
		return err
	}

	err = e.signalAndWaitForExit(proc, syscall.SIGKILL)
	switch {
	case err == nil:
		e.log.V(1).Info("process stopped by SIGKILL", "pid", pid)
		return nil
	case !errors.Is(err, context.DeadlineExceeded):
		return err
	}

	return fmt.Errorf("process %d did not exit after SIGKILL", pid)
}

// Sends a given signal to a process and waits for it to exit.
// If the process does not exit within signalAndWaitTimeout, context.DeadlineExceeded is returned.
func (e *OSExecutor) signalAndWaitForExit(proc *os.Process, sig syscall.Signal) error {
	err := proc.Signal(sig)
	switch {
	case errors.Is(err, os.ErrProcessDone):
		return nil
	case err != nil:
		return fmt.Errorf("could not send signal %s to process %d: %w", sig.String(), proc.Pid, err)
	}

	timeoutCtx, cancelTimeout := context.WithTimeout(context.Background(), signalAndWaitTimeout)
	defer cancelTimeout()

	pid, pidErr := IntToPidT(proc.Pid)
	if pidErr != nil {
		return pidErr
	}

	wp, findErr := FindWaitableProcess(pid)
	if findErr != nil {
		// The process is already gone.
		return nil
	}

	waitErr := wp.Wait(timeoutCtx)
	if waitErr == nil || IsEarlyProcessExitError(waitErr) {
		return nil
	}
	if errors.Is(waitErr, context.DeadlineExceeded) {
		return context.DeadlineExceeded
	}

	return fmt.Errorf("could not wait for process %d to exit: %w", proc.Pid, waitErr)
}
