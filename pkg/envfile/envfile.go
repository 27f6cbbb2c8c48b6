// Package envfile loads KEY=VALUE environment files and exports their
// variables into the current process, the way `set -a; source .env` does
// for the shell launchers.
package envfile

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/jingkaihe/agentkit/pkg/logger"
)

// DefaultPath is the env file looked up relative to the workspace root.
const DefaultPath = ".env"

// ErrNotFound is returned when the env file does not exist.
var ErrNotFound = errors.New("env file not found")

// Read parses the env file at path without touching the process environment.
func Read(path string) (map[string]string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotFound, "%s", path)
		}
		return nil, errors.Wrapf(err, "failed to stat env file %s", path)
	}

	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse env file %s", path)
	}
	return vars, nil
}

// Export sets every variable into the process environment, overriding
// existing values, and returns the exported keys in sorted order.
func Export(vars map[string]string) ([]string, error) {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := os.Setenv(k, vars[k]); err != nil {
			return nil, errors.Wrapf(err, "failed to export %s", k)
		}
	}
	return keys, nil
}

// Load reads the env file at path and exports its variables. A missing file
// yields an error matching IsNotFound so callers can warn and carry on.
func Load(ctx context.Context, path string) ([]string, error) {
	vars, err := Read(path)
	if err != nil {
		return nil, err
	}

	keys, err := Export(vars)
	if err != nil {
		return nil, err
	}

	logger.G(ctx).WithField("path", path).WithField("count", len(keys)).Debug("exported env file")
	return keys, nil
}

// IsNotFound reports whether err means the env file was absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Mask hides all but the first few characters of a secret value.
func Mask(value string) string {
	const visible = 4
	if len(value) <= visible {
		return strings.Repeat("*", len(value))
	}
	return value[:visible] + strings.Repeat("*", len(value)-visible)
}
