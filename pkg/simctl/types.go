// Package simctl models the simulator control service: enumeration of the
// installed simulator system roots and sessions that run one application
// inside a simulated device. The shipped implementation drives the platform
// "simctl" utility; the interfaces exist so the session lifecycle logic can be
// exercised against a fake control layer.
package simctl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"howett.net/plist"

	"github.com/ntherning/ios-sim/pkg/process"
)

// DeviceFamily is the emulated hardware class requested for a session.
type DeviceFamily string

const (
	DeviceFamilyIPhone DeviceFamily = "iphone"
	DeviceFamilyIPad   DeviceFamily = "ipad"
)

func ParseDeviceFamily(value string) (DeviceFamily, error) {
	switch DeviceFamily(value) {
	case DeviceFamilyIPhone:
		return DeviceFamilyIPhone, nil
	case DeviceFamilyIPad:
		return DeviceFamilyIPad, nil
	default:
		return "", fmt.Errorf("unknown device family '%s' (expected '%s' or '%s')", value, DeviceFamilyIPhone, DeviceFamilyIPad)
	}
}

// SystemRoot is a named version/location pair identifying one simulator
// platform image.
type SystemRoot struct {
	Name    string
	Version string
	Path    string
}

func (r SystemRoot) String() string {
	return fmt.Sprintf("'%s' (%s)\n\t%s", r.Name, r.Version, r.Path)
}

// AppSpecifier identifies the application to launch: the bundle path on disk
// plus the bundle identifier read from the bundle's Info.plist.
type AppSpecifier struct {
	Path     string
	BundleID string
}

type bundleInfo struct {
	CFBundleIdentifier string `plist:"CFBundleIdentifier"`
}

// AppSpecifierFromPath builds an application specifier from a filesystem path.
// The path must exist and contain a readable Info.plist with a bundle identifier.
func AppSpecifierFromPath(path string) (*AppSpecifier, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("application path '%s' is not accessible: %w", path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("application path '%s' is not an application bundle directory", path)
	}

	infoPlistPath := filepath.Join(path, "Info.plist")
	data, err := os.ReadFile(infoPlistPath)
	if err != nil {
		return nil, fmt.Errorf("could not read '%s': %w", infoPlistPath, err)
	}

	var bundle bundleInfo
	if _, err := plist.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("could not parse '%s': %w", infoPlistPath, err)
	}
	if bundle.CFBundleIdentifier == "" {
		return nil, fmt.Errorf("'%s' does not declare a bundle identifier", infoPlistPath)
	}

	return &AppSpecifier{
		Path:     path,
		BundleID: bundle.CFBundleIdentifier,
	}, nil
}

// SessionConfig describes one simulated-application execution.
type SessionConfig struct {
	Root            *SystemRoot // nil means "whatever root the booted device uses"
	Family          DeviceFamily
	App             *AppSpecifier
	SessionID       string
	Args            []string
	Env             map[string]string
	StdoutPath      string
	StderrPath      string
	WaitForDebugger bool
	ClientName      string
}

type EventKind int

const (
	EventStarted EventKind = iota
	EventEnded
)

// Event is the message-passing form of the session delegate callbacks:
// one Started event carrying the simulated process id, followed by one
// Ended event when the simulated process exits or the session is torn down.
type Event struct {
	Kind     EventKind
	PID      process.Pid_t
	ExitCode int32
	Err      error
}

// Control is the simulator-control collaborator surface consumed by the
// session lifecycle logic.
type Control interface {
	// Roots enumerates the installed simulator system roots.
	Roots(ctx context.Context) ([]SystemRoot, error)

	// NewSession prepares a session for the given configuration. The session
	// is inert until Start is called.
	NewSession(cfg SessionConfig) (Session, error)
}

// Session is the runtime handle representing one simulated-application
// execution.
type Session interface {
	ID() string

	// Start establishes the session and launches the application. The passed
	// context bounds the whole establishment, so callers control the timeout
	// and can cancel a hung start. A start failure is fatal; no event is
	// emitted for it.
	Start(ctx context.Context) error

	// Events yields the Started event (with the simulated process id) and the
	// final Ended event. The channel is closed after Ended.
	Events() <-chan Event

	// PID returns the simulated process id, or process.UnknownPID before the
	// session started.
	PID() process.Pid_t
}
