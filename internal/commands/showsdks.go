package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ntherning/ios-sim/pkg/logger"
	"github.com/ntherning/ios-sim/pkg/simctl"
)

func NewShowSDKsCommand(log *logger.Logger) (*cobra.Command, error) {
	showSDKsCmd := &cobra.Command{
		Use:          "showsdks",
		Short:        "Lists the installed simulator SDK roots",
		Long:         `Lists the display name, version and root path of every installed simulator SDK.`,
		RunE:         runShowSDKs(log),
		SilenceUsage: true,
		Args:         cobra.NoArgs,
	}

	return showSDKsCmd, nil
}

func runShowSDKs(log *logger.Logger) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		control, err := newControl(log)
		if err != nil {
			return err
		}

		roots, err := control.Roots(cmd.Context())
		if err != nil {
			return err
		}

		PrintRoots(os.Stdout, roots)
		return nil
	}
}

// PrintRoots writes the known-SDK listing, one root per entry with its display
// name, version and root path.
func PrintRoots(w io.Writer, roots []simctl.SystemRoot) {
	fmt.Fprintln(w, "Simulator SDK Roots:")
	for _, root := range roots {
		fmt.Fprintln(w, root.String())
	}
}
