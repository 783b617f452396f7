// Package relay captures a stream that the simulator control layer only agrees
// to redirect to a filesystem path by creating a named pipe at such a path and
// copying everything written to it into a local writer.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	sim_io "github.com/ntherning/ios-sim/pkg/io"
	"github.com/ntherning/ios-sim/pkg/osutil"
)

// StreamTag identifies which standard stream a relay carries.
type StreamTag string

const (
	StdoutStream StreamTag = "stdout"
	StderrStream StreamTag = "stderr"
)

const (
	readBufferSize = 32 * 1024

	// How long to wait before re-arming the read after EOF (no writer attached).
	rearmDelay = 20 * time.Millisecond

	// When enabled, FIFO nodes are left on disk after the relay closes so they
	// can be inspected while troubleshooting.
	IOS_SIM_KEEP_FIFOS = "IOS_SIM_KEEP_FIFOS"
)

// Relay owns one named pipe and copies bytes written to it into dst.
// Nothing is written to dst until the first non-empty read is observed;
// in particular the spurious empty read that happens before any writer
// has attached to the pipe is swallowed.
type Relay struct {
	tag  StreamTag
	path string
	file *os.File
	dst  io.Writer
	log  logr.Logger

	startedLock sync.Mutex
	started     bool

	closeOnce sync.Once
	closeErr  error
}

// New creates a uniquely-named FIFO under the system temp directory and opens
// it for reading without blocking on a writer. The returned relay does not
// copy any data until Run is called.
func New(tag StreamTag, dst io.Writer, log logr.Logger) (*Relay, error) {
	path := filepath.Join(os.TempDir(), fmt.Sprintf("ios-sim-%s-%s.fifo", tag, uuid.NewString()))

	if err := makeFIFO(path, osutil.PermissionOnlyOwnerReadWrite); err != nil {
		return nil, fmt.Errorf("could not create %s FIFO at '%s': %w", tag, path, err)
	}

	file, err := openFIFONonBlocking(path)
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			log.Error(rmErr, "failed to remove FIFO after open failure", "path", path)
		}
		return nil, fmt.Errorf("could not open %s FIFO at '%s': %w", tag, path, err)
	}

	return &Relay{
		tag:  tag,
		path: path,
		file: file,
		dst:  dst,
		log:  log.WithName("relay").WithValues("stream", string(tag)),
	}, nil
}

// Path returns the filesystem path of the FIFO; this is the path handed to the
// simulator control layer as the stream redirect target.
func (r *Relay) Path() string {
	return r.path
}

// Started reports whether the relay has observed any data yet.
func (r *Relay) Started() bool {
	r.startedLock.Lock()
	defer r.startedLock.Unlock()
	return r.started
}

func (r *Relay) markStarted() {
	r.startedLock.Lock()
	defer r.startedLock.Unlock()
	r.started = true
}

// Run copies bytes from the FIFO to the destination writer until the context
// is cancelled or the relay is closed. Reading a FIFO that has no attached
// writer yields zero-length reads; those are silently ignored so the
// destination never sees a premature no-op write.
func (r *Relay) Run(ctx context.Context) {
	reader := sim_io.NewContextReader(ctx, r.file, true)
	buf := make([]byte, readBufferSize)
	swallowedFirstEmpty := false

	for {
		n, err := reader.Read(buf)

		if n > 0 {
			if !r.Started() {
				r.markStarted()
			}
			if _, writeErr := r.dst.Write(buf[:n]); writeErr != nil {
				r.log.Error(writeErr, "failed to forward stream data")
				return
			}
		}

		switch {
		case err == nil:
			continue

		case errors.Is(err, io.EOF):
			if !swallowedFirstEmpty && !r.Started() {
				// The first empty read fires before any writer has attached.
				swallowedFirstEmpty = true
				r.log.V(2).Info("ignoring initial empty read")
			}

			// Re-arm: the writer may not have attached yet, or may re-open the pipe.
			select {
			case <-ctx.Done():
				return
			case <-time.After(rearmDelay):
			}

		case errors.Is(err, fs.ErrClosed), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return

		default:
			r.log.Error(err, "failed to read stream data")
			return
		}
	}
}

// Close closes the pipe descriptor and removes the filesystem node. A failure
// to remove the node is logged but not treated as fatal.
func (r *Relay) Close() error {
	r.closeOnce.Do(func() {
		r.closeErr = r.file.Close()

		if osutil.EnvVarSwitchEnabled(IOS_SIM_KEEP_FIFOS) {
			r.log.V(1).Info("keeping FIFO node", "path", r.path)
			return
		}

		if err := os.Remove(r.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			r.log.Error(err, "failed to remove FIFO", "path", r.path)
		}
	})

	return r.closeErr
}
