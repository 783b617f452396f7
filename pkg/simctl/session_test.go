package simctl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ntherning/ios-sim/pkg/process"
)

func TestParseLaunchedPid(t *testing.T) {
	t.Parallel()

	pid, err := parseLaunchedPid("com.example.demo: 4321\n", "com.example.demo")
	require.NoError(t, err)
	assert.Equal(t, process.Pid_t(4321), pid)
}

func TestParseLaunchedPidSkipsUnrelatedLines(t *testing.T) {
	t.Parallel()

	output := "An update is available.\nSome diagnostic chatter\ncom.example.demo: 99\n"
	pid, err := parseLaunchedPid(output, "com.example.demo")
	require.NoError(t, err)
	assert.Equal(t, process.Pid_t(99), pid)
}

func TestParseLaunchedPidErrors(t *testing.T) {
	t.Parallel()

	t.Run("no matching line", func(t *testing.T) {
		_, err := parseLaunchedPid("nothing useful here\n", "com.example.demo")
		assert.Error(t, err)
	})

	t.Run("malformed process id", func(t *testing.T) {
		_, err := parseLaunchedPid("com.example.demo: not-a-pid\n", "com.example.demo")
		assert.Error(t, err)
	})

	t.Run("empty output", func(t *testing.T) {
		_, err := parseLaunchedPid("", "com.example.demo")
		assert.Error(t, err)
	})
}

func TestNewRemoteSessionGeneratesSessionID(t *testing.T) {
	t.Parallel()

	cfg := SessionConfig{App: &AppSpecifier{Path: "/apps/Demo.app", BundleID: "com.example.demo"}}

	s := newRemoteSession(nil, cfg)
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, process.UnknownPID, s.PID())

	other := newRemoteSession(nil, cfg)
	assert.NotEqual(t, s.ID(), other.ID())
}

func TestNewRemoteSessionKeepsExplicitSessionID(t *testing.T) {
	t.Parallel()

	cfg := SessionConfig{
		App:       &AppSpecifier{Path: "/apps/Demo.app", BundleID: "com.example.demo"},
		SessionID: "11111111-2222-3333-4444-555555555555",
	}

	s := newRemoteSession(nil, cfg)
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", s.ID())
}
