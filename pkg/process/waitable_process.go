package process

import (
	"context"
	"errors"
	"os"
	"sync"
	"syscall"
	"time"
)

const (
	defaultWaitPollInterval = time.Second * 2
)

// A process handle that can be waited on even when the process is not a child
// of the current process. When wait(2) is not available (ECHILD), existence
// polling is used instead.
type WaitableProcess struct {
	WaitPollInterval time.Duration
	process          *os.Process
	err              error
	waitChan         chan struct{}
	waitLock         sync.Mutex
}

func FindWaitableProcess(pid Pid_t) (*WaitableProcess, error) {
	foundProcess, err := FindProcess(pid)
	if err != nil {
		return nil, err
	}

	wp := &WaitableProcess{
		WaitPollInterval: defaultWaitPollInterval,
		process:          foundProcess,
		err:              nil,
		waitLock:         sync.Mutex{},
	}

	return wp, nil
}

func (p *WaitableProcess) pollingWait(ctx context.Context) {
	// Only set up a single wait loop per-process instance
	p.waitLock.Lock()
	defer p.waitLock.Unlock()

	if p.waitChan != nil {
		return
	}

	p.waitChan = make(chan struct{})
	go func() {
		defer close(p.waitChan)

		_, err := p.process.Wait()
		if err == nil {
			return
		}

		var syscallErr syscall.Errno
		if isSyscallErr := errors.As(err, &syscallErr); isSyscallErr && syscallErr == syscall.ECHILD {
			// Not our child; fall back to existence polling.
			timer := time.NewTimer(p.WaitPollInterval)
			defer timer.Stop()

			for {
				select {
				case <-timer.C:
					pid, pidConversionErr := IntToPidT(p.process.Pid)
					if pidConversionErr != nil {
						p.err = pidConversionErr
						return
					}

					if _, pollErr := FindProcess(pid); pollErr != nil {
						// We couldn't find the PID, so the process has exited.
						p.err = nil
						return
					}
					timer.Reset(p.WaitPollInterval)

				case <-ctx.Done():
					p.err = ctx.Err()
					return
				}
			}
		} else {
			p.err = err
		}
	}()
}

func (p *WaitableProcess) Wait(ctx context.Context) error {
	p.pollingWait(ctx)

	select {
	case <-p.waitChan:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *WaitableProcess) Signal(signal syscall.Signal) error {
	return p.process.Signal(signal)
}

func (p *WaitableProcess) Pid() Pid_t {
	pid, err := IntToPidT(p.process.Pid)
	if err != nil {
		return UnknownPID
	}
	return pid
}
