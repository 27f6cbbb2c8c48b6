// Package scaffold writes the starter workspace embedded in the binary:
// instructions, env example, MCP config, permissions, an example agent,
// skill and command, and the launcher scripts.
package scaffold

import (
	"bytes"
	"context"
	"embed"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/aymanbagabas/go-udiff"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/jingkaihe/agentkit/pkg/logger"
	"github.com/jingkaihe/agentkit/pkg/workspace"
)

//go:embed all:templates
var templateFS embed.FS

const (
	templateRoot   = "templates"
	templateSuffix = ".tmpl"
)

// Data is passed to every template.
type Data struct {
	ProjectName string
	ConfigDir   string
}

// File is a rendered template, with Path relative to the workspace root
// and the config directory still spelled ".claude".
type File struct {
	Path    string
	Content []byte
	Mode    fs.FileMode
}

// Action is what Apply did, or would do, with a file.
type Action string

const (
	ActionCreate    Action = "create"
	ActionOverwrite Action = "overwrite"
	ActionSkip      Action = "skip"
	ActionUnchanged Action = "unchanged"
)

// Result describes the outcome for one file. Diff is set for files whose
// existing content differs from the template.
type Result struct {
	Path   string `json:"path"`
	Action Action `json:"action"`
	Diff   string `json:"diff,omitempty"`
}

// Options controls Apply.
type Options struct {
	Force  bool
	DryRun bool
}

// Files renders every embedded template, sorted by path.
func Files(data Data) ([]File, error) {
	var files []File
	err := fs.WalkDir(templateFS, templateRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, templateSuffix) {
			return nil
		}

		raw, err := templateFS.ReadFile(p)
		if err != nil {
			return errors.Wrapf(err, "failed to read template %s", p)
		}
		tmpl, err := template.New(path.Base(p)).Option("missingkey=error").Parse(string(raw))
		if err != nil {
			return errors.Wrapf(err, "failed to parse template %s", p)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return errors.Wrapf(err, "failed to execute template %s", p)
		}

		rel := strings.TrimSuffix(strings.TrimPrefix(p, templateRoot+"/"), templateSuffix)
		mode := fs.FileMode(0o644)
		if strings.HasSuffix(rel, ".sh") {
			mode = 0o755
		}
		files = append(files, File{Path: rel, Content: buf.Bytes(), Mode: mode})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// target maps a template path into the layout, honouring a custom config dir.
func target(layout workspace.Layout, rel string) string {
	if strings.HasPrefix(rel, workspace.DefaultConfigDir+"/") {
		configDir := layout.ConfigDir
		if !filepath.IsAbs(configDir) {
			configDir = filepath.Join(layout.Root, configDir)
		}
		return filepath.Join(configDir, filepath.FromSlash(strings.TrimPrefix(rel, workspace.DefaultConfigDir+"/")))
	}
	return filepath.Join(layout.Root, filepath.FromSlash(rel))
}

// Apply writes the scaffold into layout. Existing files are left alone
// unless opts.Force is set; with opts.DryRun nothing is written. Write
// failures do not stop the remaining files and are returned together.
func Apply(ctx context.Context, layout workspace.Layout, opts Options) ([]Result, error) {
	configDir := layout.ConfigDir
	if configDir == "" {
		configDir = workspace.DefaultConfigDir
	}
	files, err := Files(Data{ProjectName: filepath.Base(layout.Root), ConfigDir: configDir})
	if err != nil {
		return nil, err
	}

	log := logger.G(ctx).WithField("root", layout.Root)
	results := make([]Result, 0, len(files))
	var result *multierror.Error

	for _, f := range files {
		dest := target(layout, f.Path)
		res := Result{Path: dest, Action: ActionCreate}

		existing, err := os.ReadFile(dest)
		switch {
		case err == nil && bytes.Equal(existing, f.Content):
			res.Action = ActionUnchanged
		case err == nil:
			res.Diff = udiff.Unified(dest, dest, string(existing), string(f.Content))
			res.Action = ActionSkip
			if opts.Force {
				res.Action = ActionOverwrite
			}
		case !os.IsNotExist(err):
			result = multierror.Append(result, errors.Wrapf(err, "failed to read %s", dest))
			continue
		}
		results = append(results, res)

		if opts.DryRun || (res.Action != ActionCreate && res.Action != ActionOverwrite) {
			continue
		}
		if err := write(dest, f.Content, f.Mode); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		log.WithField("file", dest).WithField("action", res.Action).Debug("scaffold file written")
	}

	return results, result.ErrorOrNil()
}

func write(dest string, content []byte, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", dest)
	}
	if err := os.WriteFile(dest, content, mode); err != nil {
		return errors.Wrapf(err, "failed to write %s", dest)
	}
	// WriteFile keeps the mode of an existing file.
	return errors.Wrapf(os.Chmod(dest, mode), "failed to set mode of %s", dest)
}
