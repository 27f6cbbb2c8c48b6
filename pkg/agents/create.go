package agents

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/jingkaihe/agentkit/pkg/frontmatter"
	"github.com/jingkaihe/agentkit/pkg/workspace"
)

// renderedMetadata is the on-disk frontmatter order. Tools are written as
// a comma-separated string, the form the host expects.
type renderedMetadata struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Tools       string `yaml:"tools,omitempty"`
	Model       string `yaml:"model,omitempty"`
	Color       string `yaml:"color,omitempty"`
}

// Render produces the markdown file content for an agent.
func Render(agent *Agent) ([]byte, error) {
	md := agent.Metadata
	return frontmatter.Render(renderedMetadata{
		Name:        md.Name,
		Description: md.Description,
		Tools:       strings.Join(md.Tools, ", "),
		Model:       md.Model,
		Color:       md.Color,
	}, agent.SystemPrompt)
}

// Create validates agent and writes it to dir/<name>.md. Existing files
// are never overwritten.
func Create(dir string, agent *Agent) (string, error) {
	path := filepath.Join(dir, agent.Metadata.Name+".md")
	agent.Path = path

	if issues := Validate(agent); workspace.HasErrors(issues) {
		for _, issue := range issues {
			if issue.Severity == workspace.SeverityError {
				return "", errors.Errorf("invalid agent: %s: %s", issue.Field, issue.Message)
			}
		}
	}

	if _, err := os.Stat(path); err == nil {
		return "", errors.Errorf("agent file %s already exists", path)
	}

	content, err := Render(agent)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create agents directory %s", dir)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", errors.Wrapf(err, "failed to write agent file %s", path)
	}
	return path, nil
}
