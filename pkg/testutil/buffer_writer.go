package testutil

import (
	"bytes"
	"io"
	"sync"
)

// BufferWriter is a simple implementation of io.Writer that writes to a (dynamically expanding) buffer.
// All methods are goroutine-safe. Every write operation is tracked, so tests can assert
// not just on the accumulated data but also on the number of writes that produced it.
type BufferWriter struct {
	data   []byte
	writes int
	lock   sync.Mutex
	closed bool
}

func NewBufferWriter() *BufferWriter {
	return &BufferWriter{}
}

func (bw *BufferWriter) Write(p []byte) (n int, err error) {
	bw.lock.Lock()
	defer bw.lock.Unlock()

	if bw.closed {
		return 0, io.ErrShortWrite
	}

	bw.writes++
	bw.data = append(bw.data, p...)
	return len(p), nil
}

func (bw *BufferWriter) Bytes() []byte {
	bw.lock.Lock()
	defer bw.lock.Unlock()
	return bytes.Clone(bw.data)
}

func (bw *BufferWriter) Writes() int {
	bw.lock.Lock()
	defer bw.lock.Unlock()
	return bw.writes
}

func (bw *BufferWriter) Close() error {
	bw.lock.Lock()
	defer bw.lock.Unlock()
	bw.closed = true
	return nil
}

var _ io.WriteCloser = (*BufferWriter)(nil)
