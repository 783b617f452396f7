package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ntherning/ios-sim/internal/version"
	"github.com/ntherning/ios-sim/pkg/logger"
)

// NewRootCmd builds the ios-sim command tree. appArgs holds the tokens that
// followed the "--args" terminator on the command line.
func NewRootCmd(log *logger.Logger, appArgs []string) (*cobra.Command, error) {
	rootCmd := &cobra.Command{
		Use:   "ios-sim",
		Short: "Launches applications in the device simulator",
		Long: `ios-sim is a command-line utility that launches an application in the
device simulator, relaying its standard output and error streams and
forwarding process lifecycle signals.`,
		Version:          version.ProductVersion,
		SilenceUsage:     true,
		SilenceErrors:    true,
		PersistentPreRun: LogVersion(log.Logger, "ios-sim started"),
	}

	rootCmd.CompletionOptions.HiddenDefaultCmd = true

	var err error
	var cmd *cobra.Command

	if cmd, err = NewLaunchCommand(log, appArgs); cmd != nil {
		rootCmd.AddCommand(cmd)
	} else {
		return nil, fmt.Errorf("could not set up 'launch' command: %w", err)
	}

	if cmd, err = NewShowSDKsCommand(log); cmd != nil {
		rootCmd.AddCommand(cmd)
	} else {
		return nil, fmt.Errorf("could not set up 'showsdks' command: %w", err)
	}

	if cmd, err = NewVersionCommand(log); cmd != nil {
		rootCmd.AddCommand(cmd)
	} else {
		return nil, fmt.Errorf("could not set up 'version' command: %w", err)
	}

	log.AddLevelFlag(rootCmd.PersistentFlags())

	return rootCmd, nil
}
