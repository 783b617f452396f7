package commands

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ntherning/ios-sim/internal/launcher"
	"github.com/ntherning/ios-sim/pkg/simctl"
)

// Flag values live in package variables, so tests that touch them cannot run
// in parallel.
func resetLaunchFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		launchSDKVersion = ""
		launchFamily = string(simctl.DeviceFamilyIPhone)
		launchSessionID = ""
		launchEnvFile = ""
		launchSetEnv = nil
		launchStdoutPath = ""
		launchStderrPath = ""
		launchVerbose = false
		launchDebug = false
		launchExitOnStartup = false
		launchUnbuffered = false
		launchStartTimeout = launcher.DefaultStartTimeout
	})
}

func TestBuildLaunchConfigDefaults(t *testing.T) {
	resetLaunchFlags(t)
	launchFamily = string(simctl.DeviceFamilyIPhone)
	launchStartTimeout = launcher.DefaultStartTimeout

	cfg, err := buildLaunchConfig("/apps/Demo.app", []string{"-flag", "value"})
	require.NoError(t, err)

	assert.Equal(t, "/apps/Demo.app", cfg.AppPath)
	assert.Equal(t, simctl.DeviceFamilyIPhone, cfg.Family)
	assert.Equal(t, []string{"-flag", "value"}, cfg.AppArgs)
	assert.Empty(t, cfg.Env)
	assert.Equal(t, launcher.DefaultStartTimeout, cfg.StartTimeout)
	assert.False(t, cfg.ExitOnStartup)
}

func TestBuildLaunchConfigRejectsUnknownFamily(t *testing.T) {
	resetLaunchFlags(t)
	launchFamily = "watch"

	_, err := buildLaunchConfig("/apps/Demo.app", nil)
	assert.Error(t, err)
}

func TestBuildLaunchConfigRejectsMalformedSetEnv(t *testing.T) {
	resetLaunchFlags(t)
	launchFamily = string(simctl.DeviceFamilyIPhone)
	launchSetEnv = []string{"NOT_AN_ASSIGNMENT"}

	_, err := buildLaunchConfig("/apps/Demo.app", nil)
	assert.Error(t, err)
}

func TestBuildLaunchConfigMergesEnvFileWithSetEnv(t *testing.T) {
	resetLaunchFlags(t)

	envPath := filepath.Join(t.TempDir(), "app.env")
	require.NoError(t, os.WriteFile(envPath, []byte("SHARED=from-file\nFILE_ONLY=1\n"), 0o644))

	launchFamily = string(simctl.DeviceFamilyIPad)
	launchEnvFile = envPath
	launchSetEnv = []string{"SHARED=from-setenv", "SET_ONLY=2"}
	launchStartTimeout = 5 * time.Second

	cfg, err := buildLaunchConfig("/apps/Demo.app", nil)
	require.NoError(t, err)

	assert.Equal(t, simctl.DeviceFamilyIPad, cfg.Family)
	assert.Equal(t, 5*time.Second, cfg.StartTimeout)

	want := map[string]string{
		"SHARED":    "from-setenv",
		"FILE_ONLY": "1",
		"SET_ONLY":  "2",
	}
	if diff := cmp.Diff(want, cfg.Env); diff != "" {
		t.Errorf("config env mismatch (-want +got):\n%s", diff)
	}
}
