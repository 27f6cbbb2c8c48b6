package scan

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jingkaihe/agentkit/pkg/osutil"
)

// ExecAnalyzer runs an external analyzer executable.
type ExecAnalyzer struct {
	name    string
	path    string
	targets []Target
	timeout time.Duration
	env     []string
}

// NewExecAnalyzer wraps the executable at path without running describe.
func NewExecAnalyzer(name, path string, targets []Target, timeout time.Duration) *ExecAnalyzer {
	return &ExecAnalyzer{name: name, path: path, targets: targets, timeout: timeout}
}

func (a *ExecAnalyzer) Name() string { return a.name }

// Path of the executable.
func (a *ExecAnalyzer) Path() string { return a.path }

// Targets the analyzer declared.
func (a *ExecAnalyzer) Targets() []Target { return a.targets }

func (a *ExecAnalyzer) Supports(target Target) bool {
	return slices.Contains(a.targets, target)
}

// Analyze runs "<exe> run" with the request on stdin. Empty output with a
// zero exit code means no findings.
func (a *ExecAnalyzer) Analyze(ctx context.Context, req Request) ([]Finding, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}

	timeout := a.timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, a.path, "run")
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Env = append(os.Environ(), a.env...)
	osutil.KillTreeOnCancel(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.Errorf("analyzer %s timed out after %s", a.name, timeout)
		}
		return nil, errors.Wrapf(err, "analyzer %s failed: %s", a.name, strings.TrimSpace(stderr.String()))
	}

	if len(bytes.TrimSpace(stdout.Bytes())) == 0 {
		return nil, nil
	}

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, errors.Wrapf(err, "analyzer %s returned invalid output", a.name)
	}
	return normalize(a.name, resp.Findings)
}

// normalize validates severities and stamps the analyzer name.
func normalize(name string, findings []Finding) ([]Finding, error) {
	for i := range findings {
		sev, err := ParseSeverity(string(findings[i].Severity))
		if err != nil {
			return nil, errors.Wrapf(err, "analyzer %s", name)
		}
		findings[i].Severity = sev
		if findings[i].Analyzer == "" {
			findings[i].Analyzer = name
		}
	}
	return findings, nil
}
