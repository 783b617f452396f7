package commands

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/ntherning/ios-sim/internal/launcher"
	"github.com/ntherning/ios-sim/pkg/logger"
	"github.com/ntherning/ios-sim/pkg/process"
	"github.com/ntherning/ios-sim/pkg/simctl"
)

var (
	launchSDKVersion    string
	launchFamily        string
	launchSessionID     string
	launchEnvFile       string
	launchSetEnv        []string
	launchStdoutPath    string
	launchStderrPath    string
	launchVerbose       bool
	launchDebug         bool
	launchExitOnStartup bool
	launchUnbuffered    bool
	launchStartTimeout  time.Duration
)

func NewLaunchCommand(log *logger.Logger, appArgs []string) (*cobra.Command, error) {
	launchCmd := &cobra.Command{
		Use:   "launch <app-path> [options...] [--args <app-args...>]",
		Short: "Launches an application in the simulator",
		Long: `Launches the application bundle at the given path in the simulator and
relays its standard output and error streams until the simulated process
exits. Everything after the "--args" terminator is passed verbatim to the
application.`,
		RunE:         runLaunch(log, appArgs),
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
	}

	launchCmd.Flags().StringVar(&launchSDKVersion, "sdk", "", "The SDK version to run the application on (defaults to the SDK of the target device).")
	launchCmd.Flags().StringVar(&launchFamily, "family", string(simctl.DeviceFamilyIPhone), "The device family to simulate: 'iphone' or 'ipad'.")
	launchCmd.Flags().StringVar(&launchSessionID, "uuid", "", "A unique identifier for the session (a random one is generated when omitted).")
	launchCmd.Flags().StringVar(&launchEnvFile, "env", "", "A .plist or dotenv file with environment variables for the application. Values given with --setenv win on conflicts.")
	launchCmd.Flags().StringArrayVar(&launchSetEnv, "setenv", nil, "An environment variable for the application (NAME=VALUE). May be repeated.")
	launchCmd.Flags().StringVar(&launchStdoutPath, "stdout", "", "A path to redirect the application's standard output to (disables the stdout relay).")
	launchCmd.Flags().StringVar(&launchStderrPath, "stderr", "", "A path to redirect the application's standard error to (disables the stderr relay).")
	launchCmd.Flags().BoolVar(&launchVerbose, "verbose", false, "Enables verbose console logging (same as -v=debug).")
	launchCmd.Flags().BoolVar(&launchDebug, "debug", false, "Holds the simulated application until a debugger attaches.")
	launchCmd.Flags().BoolVar(&launchExitOnStartup, "exit", false, "Exits right after the application started instead of relaying its output.")
	launchCmd.Flags().BoolVar(&launchUnbuffered, "unbuffered", false, "Kept for compatibility; relayed output is always unbuffered.")
	launchCmd.Flags().DurationVar(&launchStartTimeout, "timeout", launcher.DefaultStartTimeout, "How long to wait for the session to start.")

	return launchCmd, nil
}

func runLaunch(log *logger.Logger, appArgs []string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if launchVerbose {
			log.SetLevel(zapcore.DebugLevel)
		}

		cfg, err := buildLaunchConfig(args[0], appArgs)
		if err != nil {
			return err
		}

		control, err := newControl(log)
		if err != nil {
			return err
		}

		l := launcher.New(*cfg, control, log.Logger)
		_, err = l.Run(cmd.Context())

		var unknownSDK *launcher.UnknownSDKError
		if errors.As(err, &unknownSDK) {
			PrintRoots(os.Stderr, unknownSDK.Roots)
		}

		return err
	}
}

func buildLaunchConfig(appPath string, appArgs []string) (*launcher.Config, error) {
	family, err := simctl.ParseDeviceFamily(launchFamily)
	if err != nil {
		return nil, err
	}

	setEnv, err := launcher.ParseSetEnvEntries(launchSetEnv)
	if err != nil {
		return nil, err
	}

	env := setEnv
	if launchEnvFile != "" {
		fileEnv, loadErr := launcher.LoadEnvFile(launchEnvFile)
		if loadErr != nil {
			return nil, loadErr
		}
		env = launcher.MergeEnv(fileEnv, setEnv)
	}

	return &launcher.Config{
		AppPath:       appPath,
		Family:        family,
		SDKVersion:    launchSDKVersion,
		SessionID:     launchSessionID,
		Env:           env,
		StdoutPath:    launchStdoutPath,
		StderrPath:    launchStderrPath,
		AppArgs:       appArgs,
		Verbose:       launchVerbose,
		Debug:         launchDebug,
		ExitOnStartup: launchExitOnStartup,
		Unbuffered:    launchUnbuffered,
		StartTimeout:  launchStartTimeout,
	}, nil
}

func newControl(log *logger.Logger) (simctl.Control, error) {
	executor := process.NewOSExecutor(log.Logger)
	return simctl.NewRemoteClient(executor, log.Logger)
}
