//go:build !windows

package process

import (
	"os"
	"syscall"
)

func FindProcess(pid Pid_t) (*os.Process, error) {
	osPid, err := PidT_ToInt(pid)
	if err != nil {
		return nil, err
	}

	process, err := os.FindProcess(osPid)
	if err != nil {
		return nil, err
	}

	// Check if the process actually exists for Unix systems
	if err = process.Signal(syscall.Signal(0)); err != nil {
		return nil, err
	}

	return process, nil
}

// Sends the given signal to the process with the given PID.
func SignalProcess(pid Pid_t, sig syscall.Signal) error {
	osPid, err := PidT_ToInt(pid)
	if err != nil {
		return err
	}

	return syscall.Kill(osPid, sig)
}
