//go:build !windows

package relay

import (
	"os"
	"syscall"
)

func makeFIFO(path string, perm os.FileMode) error {
	return syscall.Mkfifo(path, uint32(perm.Perm()))
}

// Opening the read end with O_NONBLOCK succeeds immediately even when no
// writer has attached yet; the Go runtime poller then delivers readiness
// notifications for subsequent reads.
func openFIFONonBlocking(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_RDONLY|syscall.O_NONBLOCK, 0)
}
