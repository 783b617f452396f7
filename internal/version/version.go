package version

import (
	"strconv"
	"time"
)

const (
	DevelopmentVersion = "dev"
)

// Set at build time through -ldflags.
var (
	ProductVersion = DevelopmentVersion
	CommitHash     = ""
	BuildTimestamp = ""
)

type VersionOutput struct {
	Version    string `json:"version"`
	CommitHash string `json:"commitHash,omitempty"`
	BuildTime  string `json:"buildTimestamp,omitempty"`
}

func Version() VersionOutput {
	var buildTime time.Time
	if BuildTimestamp != "" {
		if parsedTimestamp, err := strconv.ParseInt(BuildTimestamp, 10, 64); err == nil {
			buildTime = time.Unix(parsedTimestamp, 0)
		} else if maybeTime, timeErr := time.Parse(time.RFC3339, BuildTimestamp); timeErr == nil {
			buildTime = maybeTime
		}
	}

	if ProductVersion == "" {
		ProductVersion = DevelopmentVersion
	}

	out := VersionOutput{
		Version:    ProductVersion,
		CommitHash: CommitHash,
	}
	if !buildTime.IsZero() {
		out.BuildTime = buildTime.Format(time.RFC3339)
	}
	return out
}
