package simctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-logr/logr"

	"github.com/ntherning/ios-sim/pkg/osutil"
	"github.com/ntherning/ios-sim/pkg/process"
	"github.com/ntherning/ios-sim/pkg/resiliency"
)

const (
	// Overrides the path of the xcrun launcher binary. Intended for tests.
	IOS_SIM_XCRUN_PATH = "IOS_SIM_XCRUN_PATH"

	deviceStateBooted   = "Booted"
	deviceStateShutdown = "Shutdown"
)

// RemoteClient drives the platform simulator control utility ("simctl", via
// the xcrun launcher) to enumerate system roots and run application sessions.
type RemoteClient struct {
	executor  process.Executor
	log       logr.Logger
	xcrunPath string
}

func NewRemoteClient(executor process.Executor, log logr.Logger) (*RemoteClient, error) {
	xcrunPath := osutil.EnvVarStringWithDefault(IOS_SIM_XCRUN_PATH, "")
	if xcrunPath == "" {
		found, err := exec.LookPath("xcrun")
		if err != nil {
			return nil, fmt.Errorf("could not locate the xcrun launcher (is the platform developer tooling installed?): %w", err)
		}
		xcrunPath = found
	}

	return &RemoteClient{
		executor:  executor,
		log:       log.WithName("simctl"),
		xcrunPath: xcrunPath,
	}, nil
}

type runtimeRecord struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Identifier  string `json:"identifier"`
	RuntimeRoot string `json:"runtimeRoot"`
	IsAvailable bool   `json:"isAvailable"`
}

type runtimeListDocument struct {
	Runtimes []runtimeRecord `json:"runtimes"`
}

type deviceRecord struct {
	Name                 string `json:"name"`
	UDID                 string `json:"udid"`
	State                string `json:"state"`
	IsAvailable          bool   `json:"isAvailable"`
	DeviceTypeIdentifier string `json:"deviceTypeIdentifier"`
}

type deviceListDocument struct {
	// Keyed by runtime identifier.
	Devices map[string][]deviceRecord `json:"devices"`
}

func (c *RemoteClient) Roots(ctx context.Context) ([]SystemRoot, error) {
	doc, err := retryQuery(ctx, func() (runtimeListDocument, error) {
		return queryDocument[runtimeListDocument](ctx, c, "list", "runtimes", "--json")
	})
	if err != nil {
		return nil, fmt.Errorf("could not enumerate simulator system roots: %w", err)
	}

	roots := make([]SystemRoot, 0, len(doc.Runtimes))
	for _, rt := range doc.Runtimes {
		if !rt.IsAvailable {
			continue
		}
		roots = append(roots, SystemRoot{
			Name:    rt.Name,
			Version: rt.Version,
			Path:    rt.RuntimeRoot,
		})
	}

	return roots, nil
}

func (c *RemoteClient) NewSession(cfg SessionConfig) (Session, error) {
	if cfg.App == nil {
		return nil, fmt.Errorf("session configuration is missing the application specifier")
	}
	if cfg.Family == "" {
		cfg.Family = DeviceFamilyIPhone
	}

	return newRemoteSession(c, cfg), nil
}

// findDevice locates a device matching the requested family (and system root,
// when one was specified), preferring one that is already booted.
func (c *RemoteClient) findDevice(ctx context.Context, family DeviceFamily, root *SystemRoot) (*deviceRecord, error) {
	doc, err := retryQuery(ctx, func() (deviceListDocument, error) {
		return queryDocument[deviceListDocument](ctx, c, "list", "devices", "--json")
	})
	if err != nil {
		return nil, fmt.Errorf("could not enumerate simulator devices: %w", err)
	}

	var fallback *deviceRecord
	for runtimeId, devices := range doc.Devices {
		if root != nil && !runtimeMatchesRoot(runtimeId, root) {
			continue
		}

		for i := range devices {
			device := devices[i]
			if !device.IsAvailable || !deviceMatchesFamily(device, family) {
				continue
			}
			if device.State == deviceStateBooted {
				return &device, nil
			}
			if fallback == nil && device.State == deviceStateShutdown {
				fallback = &device
			}
		}
	}

	if fallback == nil {
		if root != nil {
			return nil, fmt.Errorf("no available %s simulator device for SDK version %s", family, root.Version)
		}
		return nil, fmt.Errorf("no available %s simulator device", family)
	}

	return fallback, nil
}

// bootDevice boots the given device and waits until it reports the booted state.
func (c *RemoteClient) bootDevice(ctx context.Context, udid string) error {
	c.log.V(1).Info("booting simulator device", "UDID", udid)

	if _, err := c.run(ctx, "boot", udid); err != nil {
		return fmt.Errorf("could not boot simulator device %s: %w", udid, err)
	}

	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(250*time.Millisecond),
		backoff.WithMaxInterval(2*time.Second),
		backoff.WithMaxElapsedTime(0), // bounded by ctx
	)
	_, err := resiliency.RetryGet(ctx, b, func() (struct{}, error) {
		doc, queryErr := queryDocument[deviceListDocument](ctx, c, "list", "devices", "--json")
		if queryErr != nil {
			return struct{}{}, queryErr
		}

		for _, devices := range doc.Devices {
			for _, device := range devices {
				if device.UDID == udid && device.State == deviceStateBooted {
					return struct{}{}, nil
				}
			}
		}

		return struct{}{}, fmt.Errorf("device %s is not booted yet", udid)
	})
	if err != nil {
		return fmt.Errorf("timed out waiting for simulator device %s to boot: %w", udid, err)
	}

	return nil
}

// run executes one simctl subcommand and returns its standard output.
// A non-zero exit is reported as an error that includes the captured stderr.
func (c *RemoteClient) run(ctx context.Context, args ...string) (string, error) {
	return c.runWithEnv(ctx, nil, args...)
}

// runWithEnv is run with additional NAME=VALUE entries appended to the
// simctl process environment.
func (c *RemoteClient) runWithEnv(ctx context.Context, extraEnv []string, args ...string) (string, error) {
	fullArgs := append([]string{"simctl"}, args...)
	cmd := exec.Command(c.xcrunPath, fullArgs...)
	cmd.Env = append(os.Environ(), extraEnv...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.log.V(2).Info("running simctl", "args", args)

	exitCode, err := process.RunWithTimeout(ctx, c.executor, cmd)
	if err != nil {
		return "", fmt.Errorf("simctl %s failed: %w", strings.Join(args, " "), err)
	}
	if exitCode != 0 {
		return "", fmt.Errorf("simctl %s exited with code %d: %s", strings.Join(args, " "), exitCode, strings.TrimSpace(stderr.String()))
	}

	return stdout.String(), nil
}

func queryDocument[T any](ctx context.Context, c *RemoteClient, args ...string) (T, error) {
	var doc T

	output, err := c.run(ctx, args...)
	if err != nil {
		return doc, err
	}

	if err := json.Unmarshal([]byte(output), &doc); err != nil {
		return doc, resiliency.Permanent(fmt.Errorf("could not parse simctl %s output: %w", strings.Join(args, " "), err))
	}

	return doc, nil
}

// retryQuery smooths over transient simctl failures (the control service
// occasionally refuses connections right after the simulator starts up).
func retryQuery[T any](ctx context.Context, query func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(100*time.Millisecond),
		backoff.WithMaxInterval(500*time.Millisecond),
		backoff.WithMaxElapsedTime(3*time.Second),
	)
	return resiliency.RetryGet(ctx, b, query)
}

func deviceMatchesFamily(device deviceRecord, family DeviceFamily) bool {
	haystack := strings.ToLower(device.DeviceTypeIdentifier + " " + device.Name)
	return strings.Contains(haystack, string(family))
}

func runtimeMatchesRoot(runtimeId string, root *SystemRoot) bool {
	// Runtime identifiers end with the dash-separated version, e.g.
	// "com.apple.CoreSimulator.SimRuntime.iOS-17-2". The leading dash anchors
	// the version so 7.2 never matches the tail of a 17.2 runtime.
	suffix := "-" + strings.ReplaceAll(root.Version, ".", "-")
	return strings.HasSuffix(runtimeId, suffix)
}

var _ Control = (*RemoteClient)(nil)
