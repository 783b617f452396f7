package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ntherning/ios-sim/pkg/logger"
)

func TestNewRootCmdRegistersCommands(t *testing.T) {
	log := logger.New("root-test")

	root, err := NewRootCmd(log, nil)
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}
	assert.True(t, names["launch"])
	assert.True(t, names["showsdks"])
	assert.True(t, names["version"])

	// Program identity is recorded at startup for every subcommand.
	assert.NotNil(t, root.PersistentPreRun)

	assert.NotNil(t, root.PersistentFlags().Lookup("verbosity"))
}
