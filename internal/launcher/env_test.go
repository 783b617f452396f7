package launcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSetEnvEntries(t *testing.T) {
	t.Parallel()

	env, err := ParseSetEnvEntries([]string{"A=B", "C=D", "EMPTY="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "B", "C": "D", "EMPTY": ""}, env)
}

func TestParseSetEnvEntriesRejectsMalformedInput(t *testing.T) {
	t.Parallel()

	for _, entry := range []string{"NOVALUE", "=value", ""} {
		_, err := ParseSetEnvEntries([]string{entry})
		assert.Error(t, err, "entry %q", entry)
	}
}

func TestLoadEnvFileDotenv(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "app.env")
	require.NoError(t, os.WriteFile(path, []byte("FOO=bar\nBAZ=qux\n"), 0o644))

	env, err := LoadEnvFile(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"FOO": "bar", "BAZ": "qux"}, env)
}

func TestLoadEnvFilePlist(t *testing.T) {
	t.Parallel()

	content := `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>FOO</key>
	<string>bar</string>
	<key>DEBUG_MODE</key>
	<string>1</string>
</dict>
</plist>
`
	path := filepath.Join(t.TempDir(), "env.plist")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	env, err := LoadEnvFile(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"FOO": "bar", "DEBUG_MODE": "1"}, env)
}

func TestLoadEnvFileMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadEnvFile(filepath.Join(t.TempDir(), "nope.env"))
	assert.Error(t, err)
}

// Environment-file values and explicit --setenv values are merged; the
// explicit values win on conflicts no matter the flag ordering.
func TestMergeEnvExplicitEntriesWin(t *testing.T) {
	t.Parallel()

	fileEnv := map[string]string{"SHARED": "from-file", "FILE_ONLY": "1"}
	setEnv := map[string]string{"SHARED": "from-setenv", "SET_ONLY": "2"}

	merged := MergeEnv(fileEnv, setEnv)

	want := map[string]string{
		"SHARED":    "from-setenv",
		"FILE_ONLY": "1",
		"SET_ONLY":  "2",
	}
	if diff := cmp.Diff(want, merged); diff != "" {
		t.Errorf("merged env mismatch (-want +got):\n%s", diff)
	}
}
