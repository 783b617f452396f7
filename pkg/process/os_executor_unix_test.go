//go:build !windows

package process

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ntherning/ios-sim/pkg/testutil"
)

func TestRunToCompletionCapturesExitCode(t *testing.T) {
	t.Parallel()

	log := testutil.NewLogForTesting("os-executor-test")
	executor := NewOSExecutor(log)

	cmd := exec.Command("sh", "-c", "exit 3")
	exitCode, err := RunToCompletion(context.Background(), executor, cmd)

	require.NoError(t, err)
	require.Equal(t, int32(3), exitCode)
}

func TestStartProcessReportsExitViaHandler(t *testing.T) {
	t.Parallel()

	log := testutil.NewLogForTesting("os-executor-test")
	executor := NewOSExecutor(log)

	exitInfoCh := make(chan ProcessExitInfo, 1)
	handler := NewChannelProcessExitHandler(exitInfoCh)

	cmd := exec.Command("sh", "-c", "exit 0")
	pid, startTime, startWait, err := executor.StartProcess(context.Background(), cmd, handler)
	require.NoError(t, err)
	require.Greater(t, pid, Pid_t(0))
	require.False(t, startTime.IsZero())

	startWait()

	select {
	case info := <-exitInfoCh:
		require.NoError(t, info.Err)
		require.Equal(t, int32(0), info.ExitCode)
		require.Equal(t, pid, info.PID)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for process exit notification")
	}
}

func TestContextCancellationStopsProcess(t *testing.T) {
	t.Parallel()

	log := testutil.NewLogForTesting("os-executor-test")
	executor := NewOSExecutor(log)

	ctx, cancel := context.WithCancel(context.Background())

	exitInfoCh := make(chan ProcessExitInfo, 1)
	handler := NewChannelProcessExitHandler(exitInfoCh)

	cmd := exec.Command("sleep", "60")
	pid, _, startWait, err := executor.StartProcess(ctx, cmd, handler)
	require.NoError(t, err)
	startWait()

	cancel()

	select {
	case info := <-exitInfoCh:
		require.Equal(t, pid, info.PID)
	case <-time.After(30 * time.Second):
		t.Fatal("process was not stopped after context cancellation")
	}
}
