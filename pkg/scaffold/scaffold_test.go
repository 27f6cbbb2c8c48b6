package scaffold

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/agentkit/pkg/lint"
	"github.com/jingkaihe/agentkit/pkg/workspace"
)

func TestFiles(t *testing.T) {
	files, err := Files(Data{ProjectName: "demo", ConfigDir: ".claude"})
	require.NoError(t, err)

	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{
		".claude/agents/code-reviewer.md",
		".claude/commands/git/commit.md",
		".claude/settings.local.json",
		".claude/skills/code-review/SKILL.md",
		".env.example",
		".mcp.json",
		"CLAUDE.md",
		"README.md",
		"scripts/claude.sh",
		"scripts/copilot.sh",
	}, paths)

	for _, f := range files {
		if filepath.Ext(f.Path) == ".sh" {
			assert.Equal(t, os.FileMode(0o755), f.Mode, f.Path)
		} else {
			assert.Equal(t, os.FileMode(0o644), f.Mode, f.Path)
		}
	}
	assert.Contains(t, string(files[6].Content), "# demo")
}

func TestApplyCreatesLintCleanWorkspace(t *testing.T) {
	root := t.TempDir()
	layout := workspace.NewLayout(root, "")

	results, err := Apply(context.Background(), layout, Options{})
	require.NoError(t, err)
	require.Len(t, results, 10)
	for _, r := range results {
		assert.Equal(t, ActionCreate, r.Action, r.Path)
		assert.FileExists(t, r.Path)
	}

	info, err := os.Stat(filepath.Join(root, "scripts", "claude.sh"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	report, err := lint.Run(context.Background(), layout)
	require.NoError(t, err)
	assert.False(t, report.HasErrors(), "%v", report.Issues)
}

func TestApplySkipsExisting(t *testing.T) {
	root := t.TempDir()
	layout := workspace.NewLayout(root, "")
	readme := filepath.Join(root, "README.md")
	require.NoError(t, os.WriteFile(readme, []byte("my notes\n"), 0o644))

	results, err := Apply(context.Background(), layout, Options{})
	require.NoError(t, err)

	byPath := map[string]Result{}
	for _, r := range results {
		byPath[r.Path] = r
	}
	assert.Equal(t, ActionSkip, byPath[readme].Action)
	assert.Contains(t, byPath[readme].Diff, "-my notes")

	content, err := os.ReadFile(readme)
	require.NoError(t, err)
	assert.Equal(t, "my notes\n", string(content))

	results, err = Apply(context.Background(), layout, Options{})
	require.NoError(t, err)
	for _, r := range results {
		if r.Path == readme {
			assert.Equal(t, ActionSkip, r.Action)
			continue
		}
		assert.Equal(t, ActionUnchanged, r.Action, r.Path)
	}
}

func TestApplyForceOverwrites(t *testing.T) {
	root := t.TempDir()
	layout := workspace.NewLayout(root, "")
	readme := filepath.Join(root, "README.md")
	require.NoError(t, os.WriteFile(readme, []byte("my notes\n"), 0o600))

	results, err := Apply(context.Background(), layout, Options{Force: true})
	require.NoError(t, err)

	for _, r := range results {
		if r.Path == readme {
			assert.Equal(t, ActionOverwrite, r.Action)
			assert.NotEmpty(t, r.Diff)
		}
	}
	content, err := os.ReadFile(readme)
	require.NoError(t, err)
	assert.Contains(t, string(content), "agentkit init")

	info, err := os.Stat(readme)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestApplyDryRun(t *testing.T) {
	root := t.TempDir()
	layout := workspace.NewLayout(root, "")
	readme := filepath.Join(root, "README.md")
	require.NoError(t, os.WriteFile(readme, []byte("my notes\n"), 0o644))

	results, err := Apply(context.Background(), layout, Options{DryRun: true, Force: true})
	require.NoError(t, err)
	require.Len(t, results, 10)

	for _, r := range results {
		if r.Path == readme {
			assert.Equal(t, ActionOverwrite, r.Action)
			assert.Contains(t, r.Diff, "+# "+filepath.Base(root))
			continue
		}
		assert.Equal(t, ActionCreate, r.Action)
		assert.NoFileExists(t, r.Path)
	}

	content, err := os.ReadFile(readme)
	require.NoError(t, err)
	assert.Equal(t, "my notes\n", string(content))
}

func TestApplyCustomConfigDir(t *testing.T) {
	root := t.TempDir()
	layout := workspace.NewLayout(root, ".assistant")

	_, err := Apply(context.Background(), layout, Options{})
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(root, ".assistant", "agents", "code-reviewer.md"))
	assert.NoDirExists(t, filepath.Join(root, ".claude"))

	content, err := os.ReadFile(filepath.Join(root, "CLAUDE.md"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "`.assistant/agents/*.md`")
}
