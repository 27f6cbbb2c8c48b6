// Package agents loads, validates and creates agent definitions: markdown
// files whose frontmatter configures a persona and whose body is its
// system prompt.
package agents

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"github.com/jingkaihe/agentkit/pkg/frontmatter"
	"github.com/jingkaihe/agentkit/pkg/logger"
	"github.com/jingkaihe/agentkit/pkg/workspace"
)

// Metadata represents the YAML frontmatter of an agent file
type Metadata struct {
	Name        string   `mapstructure:"name"`
	Description string   `mapstructure:"description"`
	Tools       []string `mapstructure:"tools"` // YAML list or comma-separated string
	Model       string   `mapstructure:"model"`
	Color       string   `mapstructure:"color"`
}

// Agent represents a loaded agent with its metadata, system prompt, and file path
type Agent struct {
	Metadata      Metadata
	SystemPrompt  string
	Path          string
	// NameDefaulted is set when the frontmatter has no name and Metadata.Name
	// was taken from the file stem.
	NameDefaulted bool
}

var (
	// ValidModels are the model aliases understood by the host assistant.
	ValidModels = []string{"sonnet", "opus", "haiku", "inherit"}
	// ValidColors are the display colors understood by the host assistant.
	ValidColors = []string{"red", "blue", "green", "yellow", "purple", "orange", "pink", "cyan"}

	namePattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
)

// Processor handles loading agent definitions from disk
type Processor struct {
	agentDirs []string
}

// Option configures a Processor
type Option func(*Processor) error

// WithAgentDirs sets custom agent directories, highest precedence first
func WithAgentDirs(dirs ...string) Option {
	return func(p *Processor) error {
		if len(dirs) == 0 {
			return errors.New("at least one agent directory must be specified")
		}
		p.agentDirs = dirs
		return nil
	}
}

// WithDefaultDirs uses the repo-local agents dir followed by the user one.
func WithDefaultDirs(layout workspace.Layout) Option {
	return func(p *Processor) error {
		home, err := workspace.HomeDir(layout.ConfigDir)
		if err != nil {
			return err
		}
		p.agentDirs = []string{
			layout.AgentsDir(),
			filepath.Join(home, "agents"),
		}
		return nil
	}
}

// NewProcessor creates a processor; without options it uses the default
// directories relative to the current directory.
func NewProcessor(opts ...Option) (*Processor, error) {
	p := &Processor{}
	if len(opts) == 0 {
		opts = []Option{WithDefaultDirs(workspace.NewLayout(".", ""))}
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, errors.Wrap(err, "failed to apply agent processor option")
		}
	}
	return p, nil
}

// Dirs returns the configured agent directories.
func (p *Processor) Dirs() []string {
	return p.agentDirs
}

func (p *Processor) findAgentFile(name string) (string, error) {
	for _, dir := range p.agentDirs {
		for _, candidate := range []string{name + ".md", name} {
			fullPath := filepath.Join(dir, candidate)
			if info, err := os.Stat(fullPath); err == nil && !info.IsDir() {
				return fullPath, nil
			}
		}
	}
	return "", errors.Errorf("agent '%s' not found in directories: %v", name, p.agentDirs)
}

// ParseFile reads a single agent file. The file stem is used for display
// when the frontmatter omits a name; Validate still reports it missing.
func ParseFile(path string) (*Agent, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read agent file '%s'", path)
	}

	doc, err := frontmatter.Require(content)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse agent file '%s'", path)
	}

	var md Metadata
	if err := doc.Decode(&md); err != nil {
		return nil, errors.Wrapf(err, "failed to parse agent file '%s'", path)
	}
	agent := &Agent{Metadata: md, SystemPrompt: doc.Body, Path: path}
	if md.Name == "" {
		agent.Metadata.Name = strings.TrimSuffix(filepath.Base(path), ".md")
		agent.NameDefaulted = true
	}
	return agent, nil
}

// LoadAgent loads a single agent by name
func (p *Processor) LoadAgent(ctx context.Context, name string) (*Agent, error) {
	path, err := p.findAgentFile(name)
	if err != nil {
		return nil, err
	}
	logger.G(ctx).WithField("path", path).Debug("found agent file")
	return ParseFile(path)
}

// ListAgents returns all agents; earlier directories shadow later ones.
// Files that fail to parse are skipped.
func (p *Processor) ListAgents(ctx context.Context) ([]*Agent, error) {
	var agents []*Agent
	seen := make(map[string]bool)

	for _, dir := range p.agentDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			logger.G(ctx).WithField("dir", dir).Debug("agent directory not found, skipping")
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
				continue
			}

			agent, err := ParseFile(filepath.Join(dir, entry.Name()))
			if err != nil {
				logger.G(ctx).WithField("file", entry.Name()).WithError(err).Warn("failed to load agent, skipping")
				continue
			}
			if seen[agent.Metadata.Name] {
				continue
			}
			seen[agent.Metadata.Name] = true
			agents = append(agents, agent)
		}
	}

	slices.SortFunc(agents, func(a, b *Agent) int {
		return strings.Compare(a.Metadata.Name, b.Metadata.Name)
	})
	return agents, nil
}

// Validate checks an agent against the frontmatter schema.
func Validate(agent *Agent) []workspace.Issue {
	var issues []workspace.Issue
	path := agent.Path
	md := agent.Metadata

	switch {
	case md.Name == "" || agent.NameDefaulted:
		issues = append(issues, workspace.Errorf(path, "name", "name is required"))
	case !namePattern.MatchString(md.Name):
		issues = append(issues, workspace.Errorf(path, "name", "name %q must be lowercase kebab-case", md.Name))
	}

	if strings.TrimSpace(md.Description) == "" {
		issues = append(issues, workspace.Errorf(path, "description", "description is required"))
	}
	if md.Model != "" && !slices.Contains(ValidModels, md.Model) {
		issues = append(issues, workspace.Errorf(path, "model", "unknown model %q, must be one of: %s", md.Model, strings.Join(ValidModels, ", ")))
	}
	if md.Color != "" && !slices.Contains(ValidColors, md.Color) {
		issues = append(issues, workspace.Warnf(path, "color", "unknown color %q", md.Color))
	}
	for _, tool := range md.Tools {
		if strings.ContainsAny(tool, " \t") && !strings.Contains(tool, "(") {
			issues = append(issues, workspace.Warnf(path, "tools", "tool %q contains whitespace", tool))
		}
	}
	if strings.TrimSpace(agent.SystemPrompt) == "" {
		issues = append(issues, workspace.Warnf(path, "", "system prompt body is empty"))
	}

	if base := strings.TrimSuffix(filepath.Base(path), ".md"); md.Name != "" && base != md.Name {
		issues = append(issues, workspace.Warnf(path, "name", "name %q does not match file name %q", md.Name, base))
	}
	return issues
}
