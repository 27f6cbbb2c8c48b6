// Package commands loads slash command templates: single-step markdown
// prompts that accept arguments through $ARGUMENTS and $1..$9.
package commands

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"

	"github.com/jingkaihe/agentkit/pkg/frontmatter"
	"github.com/jingkaihe/agentkit/pkg/logger"
	"github.com/jingkaihe/agentkit/pkg/workspace"
)

// Metadata is the frontmatter of a command file
type Metadata struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
}

// Command is a loaded command template
type Command struct {
	Metadata
	// Invocation is the name typed after the slash, namespaced by
	// subdirectory as "dir:name".
	Invocation     string
	Template       string
	Path           string
	HasFrontmatter bool
}

var placeholderPattern = regexp.MustCompile(`\$(ARGUMENTS|[1-9])`)

// Processor handles command loading and rendering
type Processor struct {
	commandDirs []string
}

// Option is a function that configures a Processor
type Option func(*Processor) error

// WithCommandDirs sets custom command directories, highest precedence first
func WithCommandDirs(dirs ...string) Option {
	return func(p *Processor) error {
		if len(dirs) == 0 {
			return errors.New("at least one command directory must be specified")
		}
		p.commandDirs = dirs
		return nil
	}
}

// WithDefaultDirs uses the repo-local commands dir followed by the user one.
func WithDefaultDirs(layout workspace.Layout) Option {
	return func(p *Processor) error {
		home, err := workspace.HomeDir(layout.ConfigDir)
		if err != nil {
			return err
		}
		p.commandDirs = []string{
			layout.CommandsDir(),
			filepath.Join(home, "commands"),
		}
		return nil
	}
}

// NewProcessor creates a new command processor
func NewProcessor(opts ...Option) (*Processor, error) {
	p := &Processor{}
	if len(opts) == 0 {
		opts = []Option{WithDefaultDirs(workspace.NewLayout(".", ""))}
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, errors.Wrap(err, "failed to apply command processor option")
		}
	}
	return p, nil
}

// Dirs returns the configured command directories.
func (p *Processor) Dirs() []string {
	return p.commandDirs
}

// FindFiles returns every command markdown file below dir.
func FindFiles(dir string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), "**/*.md", doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to search %s", dir)
	}
	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		paths = append(paths, filepath.Join(dir, filepath.FromSlash(m)))
	}
	slices.Sort(paths)
	return paths, nil
}

// invocationFor derives "ns:name" from a path relative to its command dir.
func invocationFor(dir, path, name string) string {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return name
	}
	ns := filepath.ToSlash(filepath.Dir(rel))
	if ns == "." {
		return name
	}
	return strings.ReplaceAll(ns, "/", ":") + ":" + name
}

// ParseFile loads a command file relative to the command directory dir.
func ParseFile(dir, path string) (*Command, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read command file '%s'", path)
	}

	doc, err := frontmatter.Parse(content)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse command file '%s'", path)
	}

	cmd := &Command{Template: doc.Body, Path: path, HasFrontmatter: doc.HasFrontmatter}
	if err := doc.Decode(&cmd.Metadata); err != nil {
		return nil, errors.Wrapf(err, "failed to parse command file '%s'", path)
	}
	if cmd.Name == "" {
		cmd.Name = strings.TrimSuffix(filepath.Base(path), ".md")
	}
	cmd.Invocation = invocationFor(dir, path, cmd.Name)
	return cmd, nil
}

// ListCommands returns every command; earlier directories shadow later ones.
func (p *Processor) ListCommands(ctx context.Context) ([]*Command, error) {
	var cmds []*Command
	seen := make(map[string]bool)

	for _, dir := range p.commandDirs {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		paths, err := FindFiles(dir)
		if err != nil {
			return nil, err
		}
		for _, path := range paths {
			cmd, err := ParseFile(dir, path)
			if err != nil {
				logger.G(ctx).WithField("path", path).WithError(err).Warn("failed to load command, skipping")
				continue
			}
			if seen[cmd.Invocation] {
				continue
			}
			seen[cmd.Invocation] = true
			cmds = append(cmds, cmd)
		}
	}

	slices.SortFunc(cmds, func(a, b *Command) int {
		return strings.Compare(a.Invocation, b.Invocation)
	})
	return cmds, nil
}

// LoadCommand returns the command with the given invocation name.
func (p *Processor) LoadCommand(ctx context.Context, invocation string) (*Command, error) {
	invocation = strings.TrimPrefix(invocation, "/")
	cmds, err := p.ListCommands(ctx)
	if err != nil {
		return nil, err
	}
	for _, cmd := range cmds {
		if cmd.Invocation == invocation {
			return cmd, nil
		}
	}
	return nil, errors.Errorf("command '%s' not found in directories: %v", invocation, p.commandDirs)
}

// Render substitutes $ARGUMENTS with all arguments joined by spaces and
// $1..$9 with positional arguments. Missing positions render empty.
func (c *Command) Render(args []string) string {
	return placeholderPattern.ReplaceAllStringFunc(c.Template, func(m string) string {
		key := m[1:]
		if key == "ARGUMENTS" {
			return strings.Join(args, " ")
		}
		idx := int(key[0] - '1')
		if idx < len(args) {
			return args[idx]
		}
		return ""
	})
}

// Validate checks a command against the frontmatter schema.
func Validate(cmd *Command) []workspace.Issue {
	var issues []workspace.Issue
	if !cmd.HasFrontmatter {
		issues = append(issues, workspace.Warnf(cmd.Path, "", "missing frontmatter"))
	}
	if strings.TrimSpace(cmd.Description) == "" {
		issues = append(issues, workspace.Errorf(cmd.Path, "description", "description is required"))
	}
	if strings.ContainsAny(cmd.Name, " \t:/") {
		issues = append(issues, workspace.Errorf(cmd.Path, "name", "name %q must not contain whitespace, ':' or '/'", cmd.Name))
	}
	if strings.TrimSpace(cmd.Template) == "" {
		issues = append(issues, workspace.Errorf(cmd.Path, "", "command body is empty"))
	}
	return issues
}
