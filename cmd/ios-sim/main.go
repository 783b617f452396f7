package main

import (
	"context"
	"os"

	"github.com/ntherning/ios-sim/internal/commands"
	"github.com/ntherning/ios-sim/pkg/logger"
	"github.com/ntherning/ios-sim/pkg/osutil"
	"github.com/ntherning/ios-sim/pkg/resiliency"
)

const (
	errCommandError = 1
	errSetup        = 2
	errPanic        = 3
)

func main() {
	log := logger.New("ios-sim")

	defer func() {
		panicErr := resiliency.MakePanicError(recover(), log.Logger)
		if panicErr != nil {
			_, _ = os.Stderr.Write(osutil.WithNewline([]byte(panicErr.Error())))
			log.Flush()
			os.Exit(errPanic)
		}
	}()

	ctx := context.Background()

	// The "--args" terminator and everything after it never reach the flag
	// parser; those tokens belong to the simulated application.
	ownArgs, appArgs := commands.SplitPassthroughArgs(os.Args[1:])

	root, err := commands.NewRootCmd(log, appArgs)
	if err != nil {
		commands.ErrorExit(log, err, errSetup)
	}

	root.SetArgs(ownArgs)

	err = root.ExecuteContext(ctx)
	if err != nil {
		commands.ErrorExit(log, err, errCommandError)
	} else {
		log.Flush()
	}
}
