//go:build windows

package io

import "os"

// Windows does not apply Unix permission bits; the perm argument is accepted
// for interface parity and ignored beyond the read-only attribute.
func OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(name, flag, perm)
}
