//go:build windows

package relay

import (
	"errors"
	"os"
)

var errFIFONotSupported = errors.New("named pipe stream relays are not supported on Windows")

func makeFIFO(path string, perm os.FileMode) error {
	return errFIFONotSupported
}

func openFIFONonBlocking(path string) (*os.File, error) {
	return nil, errFIFONotSupported
}
