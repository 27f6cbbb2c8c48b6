// Package workspace describes the on-disk layout of an assistant workspace
// and the validation issues reported against its files.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// DefaultConfigDir is the directory holding agents, skills, commands and settings.
const DefaultConfigDir = ".claude"

// Layout resolves workspace paths relative to a root directory.
type Layout struct {
	Root      string
	ConfigDir string
	// EnvFiles are the env files the launchers read, relative to Root
	// unless absolute. Empty means ".env".
	EnvFiles []string
}

// NewLayout returns the layout rooted at root using configDir (".claude" if empty).
func NewLayout(root, configDir string) Layout {
	if configDir == "" {
		configDir = DefaultConfigDir
	}
	return Layout{Root: root, ConfigDir: configDir}
}

func (l Layout) config(parts ...string) string {
	base := l.ConfigDir
	if !filepath.IsAbs(base) {
		base = filepath.Join(l.Root, base)
	}
	return filepath.Join(append([]string{base}, parts...)...)
}

// AgentsDir is where agent definitions live.
func (l Layout) AgentsDir() string { return l.config("agents") }

// SkillsDir is where skill directories live.
func (l Layout) SkillsDir() string { return l.config("skills") }

// CommandsDir is where slash command templates live.
func (l Layout) CommandsDir() string { return l.config("commands") }

// SettingsFile is the permissions settings file.
func (l Layout) SettingsFile() string { return l.config("settings.local.json") }

// MCPConfigFile is the MCP server configuration at the workspace root.
func (l Layout) MCPConfigFile() string { return filepath.Join(l.Root, ".mcp.json") }

// EnvFile is the primary env file, ".env" at the workspace root by default.
func (l Layout) EnvFile() string { return l.EnvFilePaths()[0] }

// EnvFilePaths resolves EnvFiles, dropping duplicates.
func (l Layout) EnvFilePaths() []string {
	files := l.EnvFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	paths := make([]string, 0, len(files))
	seen := make(map[string]bool)
	for _, f := range files {
		if f == "" {
			continue
		}
		if !filepath.IsAbs(f) {
			f = filepath.Join(l.Root, f)
		}
		f = filepath.Clean(f)
		if seen[f] {
			continue
		}
		seen[f] = true
		paths = append(paths, f)
	}
	if len(paths) == 0 {
		paths = append(paths, filepath.Join(l.Root, ".env"))
	}
	return paths
}

// HomeDir returns the per-user equivalent of ConfigDir, e.g. ~/.claude.
func HomeDir(configDir string) (string, error) {
	if configDir == "" {
		configDir = DefaultConfigDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get user home directory")
	}
	return filepath.Join(home, filepath.Base(configDir)), nil
}

// Severity of a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single validation finding against a workspace file.
type Issue struct {
	Severity Severity `json:"severity"`
	Path     string   `json:"path"`
	Field    string   `json:"field,omitempty"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	if i.Field != "" {
		return fmt.Sprintf("%s: %s: %s: %s", i.Severity, i.Path, i.Field, i.Message)
	}
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message)
}

// Errorf builds an error-level issue.
func Errorf(path, field, format string, args ...any) Issue {
	return Issue{Severity: SeverityError, Path: path, Field: field, Message: fmt.Sprintf(format, args...)}
}

// Warnf builds a warning-level issue.
func Warnf(path, field, format string, args ...any) Issue {
	return Issue{Severity: SeverityWarning, Path: path, Field: field, Message: fmt.Sprintf(format, args...)}
}

// HasErrors reports whether any issue is error-level.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}
