package scan

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"time"

	"github.com/pkg/errors"

	"github.com/jingkaihe/agentkit/pkg/logger"
	"github.com/jingkaihe/agentkit/pkg/osutil"
)

// DefaultTimeout bounds a single analyzer run.
const DefaultTimeout = 60 * time.Second

// describeTimeout bounds the "describe" handshake.
const describeTimeout = 10 * time.Second

// Discovery finds analyzer executables in the configured directories.
type Discovery struct {
	analyzerDirs []string
	timeout      time.Duration
	env          []string
}

// DiscoveryOption is a function that configures a Discovery
type DiscoveryOption func(*Discovery) error

// WithDefaultDirs searches ./.agentkit/analyzers then ~/.agentkit/analyzers.
func WithDefaultDirs() DiscoveryOption {
	return func(d *Discovery) error {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, "failed to get user home directory")
		}
		d.analyzerDirs = []string{
			"./.agentkit/analyzers",
			filepath.Join(homeDir, ".agentkit", "analyzers"),
		}
		return nil
	}
}

// WithAnalyzerDirs sets custom analyzer directories. Earlier directories win.
func WithAnalyzerDirs(dirs ...string) DiscoveryOption {
	return func(d *Discovery) error {
		d.analyzerDirs = dirs
		return nil
	}
}

// WithTimeout sets the per-run timeout of discovered analyzers.
func WithTimeout(timeout time.Duration) DiscoveryOption {
	return func(d *Discovery) error {
		if timeout < 0 {
			return errors.Errorf("timeout cannot be negative: %s", timeout)
		}
		d.timeout = timeout
		return nil
	}
}

// Credentials forwarded to analyzers by the scan commands.
const (
	APIKeyEnv    = "AGENTKIT_ANALYZER_API_KEY"
	LLMAPIKeyEnv = "AGENTKIT_ANALYZER_LLM_API_KEY"
)

// WithEnv adds KEY=VALUE pairs to the environment of discovered analyzers.
func WithEnv(env ...string) DiscoveryOption {
	return func(d *Discovery) error {
		d.env = append(d.env, env...)
		return nil
	}
}

// NewDiscovery creates a new analyzer discovery instance. Without options
// the default directories are searched.
func NewDiscovery(opts ...DiscoveryOption) (*Discovery, error) {
	d := &Discovery{timeout: DefaultTimeout}

	if len(opts) == 0 {
		opts = []DiscoveryOption{WithDefaultDirs()}
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	if d.analyzerDirs == nil {
		if err := WithDefaultDirs()(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Dirs returns the configured analyzer directories.
func (d *Discovery) Dirs() []string {
	return d.analyzerDirs
}

// Description is the answer of an analyzer to "describe".
type Description struct {
	Name    string   `json:"name"`
	Targets []Target `json:"targets"`
}

// Discover returns every valid analyzer executable. A name reported by an
// earlier directory shadows the same name in later ones. Executables that
// fail the describe handshake are skipped.
func (d *Discovery) Discover(ctx context.Context) ([]*ExecAnalyzer, error) {
	var analyzers []*ExecAnalyzer
	seen := make(map[string]bool)

	for _, dir := range d.analyzerDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Wrapf(err, "failed to read analyzer directory %s", dir)
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil || info.Mode()&0o111 == 0 {
				continue
			}

			path := filepath.Join(dir, entry.Name())
			desc, err := describe(ctx, path)
			if err != nil {
				logger.G(ctx).WithField("path", path).WithError(err).Warn("skipping invalid analyzer")
				continue
			}
			if seen[desc.Name] {
				continue
			}
			seen[desc.Name] = true

			analyzers = append(analyzers, &ExecAnalyzer{
				name:    desc.Name,
				path:    path,
				targets: desc.Targets,
				timeout: d.timeout,
				env:     d.env,
			})
		}
	}

	return analyzers, nil
}

// describe runs "<exe> describe" and validates the answer.
func describe(ctx context.Context, path string) (*Description, error) {
	ctx, cancel := context.WithTimeout(ctx, describeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, "describe")
	osutil.KillTreeOnCancel(cmd)
	output, err := cmd.Output()
	if err != nil {
		return nil, errors.Wrap(err, "failed to describe analyzer")
	}

	var desc Description
	if err := json.Unmarshal(output, &desc); err != nil {
		return nil, errors.Wrap(err, "invalid describe output")
	}
	if desc.Name == "" {
		return nil, errors.New("analyzer name is required")
	}
	if len(desc.Targets) == 0 {
		return nil, errors.Errorf("analyzer %s declares no targets", desc.Name)
	}
	for _, t := range desc.Targets {
		if !slices.Contains([]Target{TargetMCPTool, TargetSkill}, t) {
			return nil, errors.Errorf("analyzer %s declares invalid target %q", desc.Name, t)
		}
	}
	return &desc, nil
}
