// Package lint validates every file of a workspace: agents, skills,
// commands, the permissions settings, the MCP config and the env file.
package lint

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/jingkaihe/agentkit/pkg/agents"
	"github.com/jingkaihe/agentkit/pkg/commands"
	"github.com/jingkaihe/agentkit/pkg/envfile"
	"github.com/jingkaihe/agentkit/pkg/logger"
	"github.com/jingkaihe/agentkit/pkg/mcpscan"
	"github.com/jingkaihe/agentkit/pkg/permissions"
	"github.com/jingkaihe/agentkit/pkg/skills"
	"github.com/jingkaihe/agentkit/pkg/workspace"
)

// Report collects the issues found in one lint run.
type Report struct {
	Issues []workspace.Issue `json:"issues"`
	Files  int               `json:"files"`
}

// HasErrors reports whether any issue is error-level.
func (r *Report) HasErrors() bool {
	return workspace.HasErrors(r.Issues)
}

// Counts returns the number of errors and warnings.
func (r *Report) Counts() (errs, warnings int) {
	for _, i := range r.Issues {
		if i.Severity == workspace.SeverityError {
			errs++
		} else {
			warnings++
		}
	}
	return errs, warnings
}

// ByPath groups issues by file, with paths sorted.
func (r *Report) ByPath() ([]string, map[string][]workspace.Issue) {
	grouped := make(map[string][]workspace.Issue)
	for _, i := range r.Issues {
		grouped[i.Path] = append(grouped[i.Path], i)
	}
	paths := make([]string, 0, len(grouped))
	for p := range grouped {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, grouped
}

func (r *Report) add(issues ...workspace.Issue) {
	r.Issues = append(r.Issues, issues...)
}

type checker func(ctx context.Context, layout workspace.Layout, r *Report) error

// Run lints the workspace described by layout. Unreadable files become
// issues; the returned error aggregates failures that stopped a whole
// check, such as an unreadable directory.
func Run(ctx context.Context, layout workspace.Layout) (*Report, error) {
	r := &Report{}
	var result *multierror.Error

	if configDir := filepath.Dir(layout.AgentsDir()); !exists(configDir) {
		r.add(workspace.Warnf(configDir, "", "workspace config directory not found, run agentkit init"))
	}

	checks := []struct {
		name string
		fn   checker
	}{
		{"agents", lintAgents},
		{"skills", lintSkills},
		{"commands", lintCommands},
		{"permissions", lintPermissions},
		{"mcp", lintMCPConfig},
		{"env", lintEnvFile},
	}
	for _, c := range checks {
		if err := c.fn(ctx, layout, r); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "%s check failed", c.name))
		}
	}

	sort.SliceStable(r.Issues, func(i, j int) bool {
		return r.Issues[i].Path < r.Issues[j].Path
	})
	logger.G(ctx).WithField("files", r.Files).WithField("issues", len(r.Issues)).Debug("lint finished")
	return r, result.ErrorOrNil()
}

func lintAgents(_ context.Context, layout workspace.Layout, r *Report) error {
	dir := layout.AgentsDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	seen := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		r.Files++

		agent, err := agents.ParseFile(path)
		if err != nil {
			r.add(workspace.Errorf(path, "", "%s", rootCause(err)))
			continue
		}
		r.add(agents.Validate(agent)...)
		if other, ok := seen[agent.Metadata.Name]; ok {
			r.add(workspace.Errorf(path, "name", "duplicate agent name %q, also defined in %s", agent.Metadata.Name, other))
			continue
		}
		seen[agent.Metadata.Name] = path
	}
	return nil
}

func lintSkills(_ context.Context, layout workspace.Layout, r *Report) error {
	dir := layout.SkillsDir()
	if !exists(dir) {
		return nil
	}
	paths, err := skills.Find(dir, true)
	if err != nil {
		return err
	}

	seen := make(map[string]string)
	for _, path := range paths {
		r.Files++
		skill, err := skills.Load(path)
		if err != nil {
			r.add(workspace.Errorf(path, "", "%s", rootCause(err)))
			continue
		}
		r.add(skills.Validate(skill)...)
		if skill.Name == "" {
			continue
		}
		if other, ok := seen[skill.Name]; ok {
			r.add(workspace.Errorf(path, "name", "duplicate skill name %q, also defined in %s", skill.Name, other))
			continue
		}
		seen[skill.Name] = path
	}
	return nil
}

func lintCommands(_ context.Context, layout workspace.Layout, r *Report) error {
	dir := layout.CommandsDir()
	if !exists(dir) {
		return nil
	}
	paths, err := commands.FindFiles(dir)
	if err != nil {
		return err
	}

	seen := make(map[string]string)
	for _, path := range paths {
		r.Files++
		cmd, err := commands.ParseFile(dir, path)
		if err != nil {
			r.add(workspace.Errorf(path, "", "%s", rootCause(err)))
			continue
		}
		r.add(commands.Validate(cmd)...)
		if other, ok := seen[cmd.Invocation]; ok {
			r.add(workspace.Errorf(path, "name", "duplicate command /%s, also defined in %s", cmd.Invocation, other))
			continue
		}
		seen[cmd.Invocation] = path
	}
	return nil
}

func lintPermissions(_ context.Context, layout workspace.Layout, r *Report) error {
	path := layout.SettingsFile()
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			r.add(workspace.Warnf(path, "", "settings file not found, every tool use will prompt"))
			return nil
		}
		return err
	}
	r.Files++
	r.add(permissions.Validate(path, raw)...)
	return nil
}

func lintMCPConfig(_ context.Context, layout workspace.Layout, r *Report) error {
	path := layout.MCPConfigFile()
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	r.Files++
	r.add(mcpscan.ValidateConfig(path, raw)...)
	return nil
}

// lintEnvFile checks every env file a launcher will read.
func lintEnvFile(_ context.Context, layout workspace.Layout, r *Report) error {
	for _, path := range layout.EnvFilePaths() {
		_, err := envfile.Read(path)
		switch {
		case envfile.IsNotFound(err):
			r.add(workspace.Warnf(path, "", "env file not found, launchers will run without it"))
		case err != nil:
			r.Files++
			r.add(workspace.Errorf(path, "", "%s", rootCause(err)))
		default:
			r.Files++
		}
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// rootCause drops the "failed to parse <path>" wrapping, since issues
// already carry the path.
func rootCause(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, "': "); i != -1 {
		return msg[i+3:]
	}
	return msg
}
