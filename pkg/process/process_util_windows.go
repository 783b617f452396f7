//go:build windows

package process

import (
	"errors"
	"os"
	"syscall"
)

var errSignalsNotSupported = errors.New("process signals are not supported on Windows")

func FindProcess(pid Pid_t) (*os.Process, error) {
	osPid, err := PidT_ToInt(pid)
	if err != nil {
		return nil, err
	}

	return os.FindProcess(osPid)
}

func SignalProcess(pid Pid_t, sig syscall.Signal) error {
	return errSignalsNotSupported
}
