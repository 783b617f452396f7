package io

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestContextReaderReadsUntilEOF(t *testing.T) {
	t.Parallel()

	cr := NewContextReader(context.Background(), strings.NewReader("hello"), false)

	data, err := io.ReadAll(cr)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}

func TestContextReaderUnblocksOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	blocked, unblock := io.Pipe()
	defer unblock.Close()

	cr := NewContextReader(ctx, struct{ io.Reader }{blocked}, false)

	readDone := make(chan error, 1)
	go func() {
		buf := make([]byte, 16)
		_, err := cr.Read(buf)
		readDone <- err
	}()

	cancel()

	select {
	case err := <-readDone:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Read did not unblock after context cancellation")
	}
}
