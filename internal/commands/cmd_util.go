package commands

import (
	"os"
	"time"

	"github.com/ntherning/ios-sim/pkg/logger"
	"github.com/ntherning/ios-sim/pkg/osutil"
	"github.com/ntherning/ios-sim/pkg/resiliency"
)

// The terminator flag: everything after it is passed verbatim to the
// simulated application.
const passthroughFlag = "--args"

// ErrorExit prints the error to stderr, flushes the log and exits with the
// given code. The flush is bounded so a wedged log sink cannot hang the exit.
func ErrorExit(log *logger.Logger, err error, code int) {
	_, _ = os.Stderr.Write(osutil.WithNewline([]byte(err.Error())))
	resiliency.RunWithTimeout(log.Flush, time.Second)
	os.Exit(code)
}

// SplitPassthroughArgs splits the argument vector at the first occurrence of
// the "--args" terminator. Tokens before it are parsed as ios-sim arguments;
// tokens after it are handed to the simulated application untouched.
func SplitPassthroughArgs(args []string) (own []string, passthrough []string) {
	for i, arg := range args {
		if arg == passthroughFlag {
			return args[:i], args[i+1:]
		}
	}
	return args, nil
}
