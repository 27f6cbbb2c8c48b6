package skills

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"

	"github.com/jingkaihe/agentkit/pkg/frontmatter"
	"github.com/jingkaihe/agentkit/pkg/logger"
	"github.com/jingkaihe/agentkit/pkg/workspace"
)

// Discovery handles skill discovery from configured directories
type Discovery struct {
	skillDirs []string
}

// Option is a function that configures a Discovery
type Option func(*Discovery) error

// WithSkillDirs sets custom skill directories, highest precedence first
func WithSkillDirs(dirs ...string) Option {
	return func(d *Discovery) error {
		d.skillDirs = dirs
		return nil
	}
}

// WithDefaultDirs uses the repo-local skills dir followed by the user one.
func WithDefaultDirs(layout workspace.Layout) Option {
	return func(d *Discovery) error {
		home, err := workspace.HomeDir(layout.ConfigDir)
		if err != nil {
			return err
		}
		d.skillDirs = []string{
			layout.SkillsDir(),
			filepath.Join(home, "skills"),
		}
		return nil
	}
}

// NewDiscovery creates a new skill discovery instance
func NewDiscovery(opts ...Option) (*Discovery, error) {
	d := &Discovery{}
	if len(opts) == 0 {
		opts = []Option{WithDefaultDirs(workspace.NewLayout(".", ""))}
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Dirs returns the configured skill directories.
func (d *Discovery) Dirs() []string {
	return d.skillDirs
}

// DiscoverSkills finds all valid skills in the configured directories.
// Skills missing a name or description are skipped.
func (d *Discovery) DiscoverSkills(ctx context.Context) (map[string]*Skill, error) {
	skills := make(map[string]*Skill)

	for _, dir := range d.skillDirs {
		paths, err := Find(dir, false)
		if err != nil {
			logger.G(ctx).WithField("dir", dir).WithError(err).Debug("skipping skill directory")
			continue
		}

		for _, path := range paths {
			skill, err := Load(path)
			if err != nil {
				logger.G(ctx).WithField("path", path).WithError(err).Debug("failed to load skill")
				continue
			}
			if workspace.HasErrors(Validate(skill)) {
				logger.G(ctx).WithField("path", path).Debug("skipping invalid skill")
				continue
			}
			if _, exists := skills[skill.Name]; !exists {
				skills[skill.Name] = skill
			}
		}
	}

	return skills, nil
}

// GetSkill returns a specific skill by name
func (d *Discovery) GetSkill(ctx context.Context, name string) (*Skill, error) {
	skills, err := d.DiscoverSkills(ctx)
	if err != nil {
		return nil, err
	}

	skill, exists := skills[name]
	if !exists {
		return nil, errors.Errorf("skill '%s' not found", name)
	}
	return skill, nil
}

// SortedNames returns the names of skills in lexical order.
func SortedNames(skills map[string]*Skill) []string {
	names := make([]string, 0, len(skills))
	for name := range skills {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Find returns the SKILL.md paths under root. Without recursive only direct
// child directories are considered; symlinked skill directories are followed.
func Find(root string, recursive bool) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrapf(err, "skills directory %s", root)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("skills directory %s is not a directory", root)
	}

	pattern := "*/" + FileName
	if recursive {
		pattern = "**/" + FileName
	}

	matches, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to search %s", root)
	}

	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		if skipped(m) {
			continue
		}
		paths = append(paths, filepath.Join(root, filepath.FromSlash(m)))
	}
	sort.Strings(paths)
	return paths, nil
}

func skipped(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if part == ".git" || part == "node_modules" {
			return true
		}
	}
	return false
}

// Load reads a SKILL.md leniently: missing frontmatter or fields are left
// for Validate to report. Only unreadable files and malformed YAML fail.
func Load(path string) (*Skill, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read skill file")
	}

	doc, err := frontmatter.Parse(content)
	if err != nil {
		return nil, err
	}

	skill := &Skill{
		Directory:      filepath.Dir(path),
		Path:           path,
		Content:        doc.Body,
		HasFrontmatter: doc.HasFrontmatter,
		Frontmatter:    doc.Meta,
	}
	if err := doc.Decode(&skill.Metadata); err != nil {
		return nil, err
	}
	return skill, nil
}

// Files lists the files bundled with a skill relative to its directory,
// excluding SKILL.md itself.
func (s *Skill) Files() ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(s.Directory), "**", doublestar.WithFilesOnly(), doublestar.WithNoFollow())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list files of skill %s", s.Name)
	}

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		if m == FileName || skipped(m) {
			continue
		}
		files = append(files, m)
	}
	sort.Strings(files)
	return files, nil
}

// Validate checks a skill against the frontmatter schema.
func Validate(skill *Skill) []workspace.Issue {
	path := skill.Path
	if !skill.HasFrontmatter {
		return []workspace.Issue{workspace.Errorf(path, "", "missing frontmatter")}
	}

	var issues []workspace.Issue
	if skill.Name == "" {
		issues = append(issues, workspace.Errorf(path, "name", "name is required"))
	} else if dir := filepath.Base(skill.Directory); dir != skill.Name {
		issues = append(issues, workspace.Warnf(path, "name", "name %q does not match directory %q", skill.Name, dir))
	}
	if strings.TrimSpace(skill.Description) == "" {
		issues = append(issues, workspace.Errorf(path, "description", "description is required"))
	}
	if strings.TrimSpace(skill.Content) == "" {
		issues = append(issues, workspace.Warnf(path, "", "skill body is empty"))
	}
	for _, field := range missingOptional(skill.Metadata) {
		issues = append(issues, workspace.Warnf(path, field, "%s is recommended", field))
	}
	return issues
}

func missingOptional(md Metadata) []string {
	var missing []string
	fields := []struct {
		name  string
		value string
	}{
		{"category", md.Category},
		{"usage", md.Usage},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}
