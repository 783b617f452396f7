package process

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	ps "github.com/shirou/gopsutil/v4/process"

	"github.com/ntherning/ios-sim/pkg/osutil"
)

var (
	// Essentially the same as ps.ErrorProcessNotRunning, but we do not want to
	// expose the ps package outside of this package.
	ErrorProcessNotFound = errors.New("process does not exist")
)

// Process start times are read with millisecond precision, so a maximum couple of milliseconds of difference works well.
const ProcessIdentityTimeMaximumDifference = 2 * time.Millisecond

// Returns the creation time as a time.Time for a process.
// Returns the zero time when the process does not exist or its start time cannot be read.
func StartTimeForProcess(pid Pid_t) time.Time {
	osPid, osPidErr := PidT_ToUint32(pid)
	if osPidErr != nil {
		return time.Time{}
	}

	proc, procErr := ps.NewProcess(int32(osPid))
	if procErr != nil {
		return time.Time{}
	}

	createTimestamp, err := proc.CreateTime()
	if err != nil {
		return time.Time{}
	}

	return time.UnixMilli(createTimestamp)
}

// Returns the process with the given PID. If expectedStartTime is not zero,
// the process start time is checked to match so a recycled PID is not mistaken
// for the process we are after.
func FindProcessWithIdentity(pid Pid_t, expectedStartTime time.Time) (*os.Process, error) {
	osPid, err := PidT_ToUint32(pid)
	if err != nil {
		return nil, err
	}

	proc, procErr := ps.NewProcess(int32(osPid))
	if procErr != nil {
		if !errors.Is(procErr, ps.ErrorProcessNotRunning) {
			return nil, procErr
		}
		return nil, fmt.Errorf("process with pid %d does not exist: %w", pid, ErrorProcessNotFound)
	}

	if !expectedStartTime.IsZero() {
		actualStartTime := StartTimeForProcess(pid)
		if !osutil.Within(actualStartTime, expectedStartTime, ProcessIdentityTimeMaximumDifference) {
			return nil, fmt.Errorf(
				"process start time mismatch, pid %d might have been reused: expected start time %s, actual start time %s",
				pid,
				expectedStartTime.Format(time.RFC3339),
				actualStartTime.Format(time.RFC3339),
			)
		}
	}

	return os.FindProcess(int(proc.Pid))
}

// Runs the command as a child process to completion.
// Returns exit code, or error if the process could not be started/tracked for some reason.
//
// The context parameter is used to request cancellation of the process, but the call to RunToCompletion() will not return
// until the process exits and all its output is captured.
// Do not assume the call will end quickly if the context is cancelled.
func RunToCompletion(ctx context.Context, executor Executor, cmd *exec.Cmd) (int32, error) {
	pic := make(chan ProcessExitInfo, 1)
	peh := NewChannelProcessExitHandler(pic)

	_, _, startWaitForProcessExit, err := executor.StartProcess(ctx, cmd, peh)
	if err != nil {
		return UnknownExitCode, err
	}

	startWaitForProcessExit()

	// Only exit when the process exits--do not exit merely because the context is cancelled.
	exitInfo := <-pic
	return exitInfo.ExitCode, exitInfo.Err
}

type resultOrError[T any] struct {
	result T
	err    error
}

// Runs the command as a child process to completion, unless the passed context is cancelled,
// or its deadline is exceeded.
func RunWithTimeout(ctx context.Context, executor Executor, cmd *exec.Cmd) (int32, error) {
	resultCh := make(chan resultOrError[int32], 1)
	go func() {
		exitCode, err := RunToCompletion(ctx, executor, cmd)
		resultCh <- resultOrError[int32]{exitCode, err}
	}()

	select {
	case <-ctx.Done():
		return UnknownExitCode, ctx.Err()
	case runResult := <-resultCh:
		return runResult.result, runResult.err
	}
}

func IntToPidT(val int) (Pid_t, error) {
	return convertPid[int64, Pid_t](int64(val))
}

func Int64_ToPidT(val int64) (Pid_t, error) {
	return convertPid[int64, Pid_t](val)
}

func PidT_ToInt(val Pid_t) (int, error) {
	return convertPid[Pid_t, int](val)
}

func PidT_ToUint32(val Pid_t) (uint32, error) {
	return convertPid[Pid_t, uint32](val)
}

func convertPid[From ~int64 | ~uint64 | ~uint32, To ~int64 | ~int | ~uint32](val From) (To, error) {
	outOfRange := val < 0 || val > math.MaxUint32
	if outOfRange {
		return 0, fmt.Errorf("value %d is out of range of valid process ID values", val)
	}
	return To(val), nil
}

func StringToPidT(val string) (Pid_t, error) {
	u64val, u64ParseErr := strconv.ParseUint(val, 10, 32)
	if u64ParseErr != nil {
		return UnknownPID, u64ParseErr
	}

	return convertPid[uint64, Pid_t](u64val)
}

// Checks if the error is associated with early exit of a process, which is often expected.
func IsEarlyProcessExitError(err error) bool {
	if err == nil {
		return false
	}

	var ee *exec.ExitError
	if errors.Is(err, os.ErrProcessDone) || errors.As(err, &ee) {
		// These are all expected errors, the process exited successfully.
		return true
	}

	// Receiving ECHILD when calling wait() on the child process is expected,
	// (the parent process might have terminated them).
	var sysErr *os.SyscallError
	isEChildErr := errors.As(err, &sysErr) && strings.Index(sysErr.Syscall, "wait") == 0 && errors.Is(sysErr.Err, syscall.ECHILD)
	return isEChildErr
}

func init() {
	ps.EnableBootTimeCache(true)
}
