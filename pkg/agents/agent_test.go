package agents

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/agentkit/pkg/workspace"
)

func writeAgent(t *testing.T, dir, file, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, file)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const reviewer = `---
name: code-reviewer
description: Reviews diffs for correctness
tools: Read, Grep, Glob
model: sonnet
color: blue
---

You are a meticulous reviewer.
`

func TestNewProcessor(t *testing.T) {
	t.Run("default dirs", func(t *testing.T) {
		p, err := NewProcessor()
		require.NoError(t, err)
		require.Len(t, p.Dirs(), 2)
		assert.Equal(t, filepath.Join(".claude", "agents"), p.Dirs()[0])
	})

	t.Run("empty custom dirs", func(t *testing.T) {
		_, err := NewProcessor(WithAgentDirs())
		assert.Error(t, err)
	})
}

func TestParseFile(t *testing.T) {
	path := writeAgent(t, t.TempDir(), "code-reviewer.md", reviewer)

	agent, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "code-reviewer", agent.Metadata.Name)
	assert.Equal(t, []string{"Read", "Grep", "Glob"}, agent.Metadata.Tools)
	assert.Equal(t, "sonnet", agent.Metadata.Model)
	assert.Equal(t, "blue", agent.Metadata.Color)
	assert.Equal(t, "You are a meticulous reviewer.\n", agent.SystemPrompt)
	assert.Empty(t, Validate(agent))
}

func TestParseFileDefaultsNameToStem(t *testing.T) {
	path := writeAgent(t, t.TempDir(), "planner.md", "---\ndescription: Plans work\n---\nPlan.\n")

	agent, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "planner", agent.Metadata.Name)
	assert.True(t, agent.NameDefaulted)

	issues := Validate(agent)
	require.NotEmpty(t, issues)
	assert.Equal(t, "name", issues[0].Field)
	assert.Equal(t, "name is required", issues[0].Message)
	assert.True(t, workspace.HasErrors(issues))
}

func TestParseFileWithoutFrontmatter(t *testing.T) {
	path := writeAgent(t, t.TempDir(), "bare.md", "Just a prompt\n")

	_, err := ParseFile(path)
	assert.Error(t, err)
}

func TestListAgentsPrecedence(t *testing.T) {
	repoDir := filepath.Join(t.TempDir(), "repo")
	homeDir := filepath.Join(t.TempDir(), "home")

	writeAgent(t, repoDir, "code-reviewer.md", reviewer)
	writeAgent(t, homeDir, "code-reviewer.md", "---\nname: code-reviewer\ndescription: home copy\n---\nhome\n")
	writeAgent(t, homeDir, "debugger.md", "---\nname: debugger\ndescription: Debugs\n---\ndebug\n")
	writeAgent(t, homeDir, "broken.md", "no frontmatter")
	writeAgent(t, homeDir, "notes.txt", "ignored")

	p, err := NewProcessor(WithAgentDirs(repoDir, homeDir, filepath.Join(t.TempDir(), "missing")))
	require.NoError(t, err)

	agents, err := p.ListAgents(context.Background())
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, "code-reviewer", agents[0].Metadata.Name)
	assert.Equal(t, "Reviews diffs for correctness", agents[0].Metadata.Description)
	assert.Equal(t, "debugger", agents[1].Metadata.Name)

	loaded, err := p.LoadAgent(context.Background(), "debugger")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(homeDir, "debugger.md"), loaded.Path)

	_, err = p.LoadAgent(context.Background(), "nope")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		agent    Agent
		errors   []string
		warnings []string
	}{
		{
			name: "invalid name and missing description",
			agent: Agent{
				Metadata:     Metadata{Name: "Code Reviewer"},
				SystemPrompt: "x",
				Path:         "Code Reviewer.md",
			},
			errors: []string{"name", "description"},
		},
		{
			name: "unknown model",
			agent: Agent{
				Metadata:     Metadata{Name: "a", Description: "d", Model: "gpt-4"},
				SystemPrompt: "x",
				Path:         "a.md",
			},
			errors: []string{"model"},
		},
		{
			name: "unknown color, empty body, mismatched file",
			agent: Agent{
				Metadata: Metadata{Name: "a", Description: "d", Color: "teal"},
				Path:     "b.md",
			},
			warnings: []string{"color", "", "name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var errs, warns []string
			for _, issue := range Validate(&tt.agent) {
				if issue.Severity == workspace.SeverityError {
					errs = append(errs, issue.Field)
				} else {
					warns = append(warns, issue.Field)
				}
			}
			assert.Equal(t, tt.errors, errs)
			assert.Equal(t, tt.warnings, warns)
		})
	}
}

func TestCreate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "agents")
	agent := &Agent{
		Metadata:     Metadata{Name: "test-writer", Description: "Writes tests", Tools: []string{"Read", "Write"}, Model: "haiku"},
		SystemPrompt: "Write table-driven tests.",
	}

	path, err := Create(dir, agent)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "test-writer.md"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "---\nname: test-writer\ndescription: Writes tests\ntools: Read, Write\nmodel: haiku\n---\n\nWrite table-driven tests.\n", string(content))

	parsed, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, agent.Metadata, parsed.Metadata)

	_, err = Create(dir, agent)
	assert.ErrorContains(t, err, "already exists")

	_, err = Create(dir, &Agent{Metadata: Metadata{Name: "Bad Name", Description: "d"}})
	assert.ErrorContains(t, err, "invalid agent")
}
