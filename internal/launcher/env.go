package launcher

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"howett.net/plist"
)

// ParseSetEnvEntries turns repeated NAME=VALUE flag values into an environment
// mapping. An entry without '=' or with an empty name is a user input error.
func ParseSetEnvEntries(entries []string) (map[string]string, error) {
	env := make(map[string]string, len(entries))
	for _, entry := range entries {
		name, value, found := strings.Cut(entry, "=")
		if !found || name == "" {
			return nil, fmt.Errorf("invalid environment entry '%s' (expected NAME=VALUE)", entry)
		}
		env[name] = value
	}
	return env, nil
}

// LoadEnvFile reads an environment file. Files with a .plist extension are
// parsed as property lists of string keys and values; anything else is parsed
// as a dotenv-style key/value file.
func LoadEnvFile(path string) (map[string]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".plist") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("could not read environment file '%s': %w", path, err)
		}

		env := map[string]string{}
		if _, err := plist.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("could not parse environment file '%s': %w", path, err)
		}
		return env, nil
	}

	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("could not read environment file '%s': %w", path, err)
	}
	return env, nil
}

// MergeEnv combines environment-file values with explicit NAME=VALUE entries.
// Explicit entries win on key conflicts regardless of their position on the
// command line.
func MergeEnv(fileEnv, setEnv map[string]string) map[string]string {
	merged := make(map[string]string, len(fileEnv)+len(setEnv))
	maps.Copy(merged, fileEnv)
	maps.Copy(merged, setEnv)
	return merged
}
