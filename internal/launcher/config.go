package launcher

import (
	"time"

	"github.com/ntherning/ios-sim/pkg/simctl"
)

const DefaultStartTimeout = 30 * time.Second

// Config is the launch configuration assembled from the command line.
// It is built once and never mutated afterwards.
type Config struct {
	AppPath    string
	Family     simctl.DeviceFamily
	SDKVersion string
	SessionID  string

	Env        map[string]string
	StdoutPath string
	StderrPath string
	AppArgs    []string

	Verbose       bool
	Debug         bool
	ExitOnStartup bool
	Unbuffered    bool

	StartTimeout time.Duration
}
