//go:build windows

package process

import (
	"errors"
	"fmt"
	"time"
)

func (e *OSExecutor) StopProcess(pid Pid_t, processStartTime time.Time) error {
	proc, err := FindProcessWithIdentity(pid, processStartTime)
	if err != nil {
		if errors.Is(err, ErrorProcessNotFound) {
			return err
		}
		return fmt.Errorf("could not find process %d: %w", pid, err)
	}

	// There is no graceful termination signal on Windows.
	if killErr := proc.Kill(); killErr != nil {
		return fmt.Errorf("could not kill process %d: %w", pid, killErr)
	}

	return nil
}
