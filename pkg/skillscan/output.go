package skillscan

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Format selects which report files are written.
type Format string

const (
	FormatSummary  Format = "summary"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatSARIF    Format = "sarif"
	FormatBoth     Format = "both"
)

// Formats lists the accepted --format values.
var Formats = []Format{FormatSummary, FormatJSON, FormatMarkdown, FormatSARIF, FormatBoth}

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FormatSummary, nil
	}
	if !slices.Contains(Formats, f) {
		return "", errors.Errorf("invalid format %q, must be one of: summary, json, markdown, sarif, both", s)
	}
	return f, nil
}

// Output is a single report file to write.
type Output struct {
	Format Format
	Path   string
}

// files expands a format into the concrete formats it writes.
func (f Format) files() []Format {
	switch f {
	case FormatJSON, FormatMarkdown, FormatSARIF:
		return []Format{f}
	case FormatBoth:
		return []Format{FormatJSON, FormatMarkdown}
	default:
		return nil
	}
}

func (f Format) ext() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatSARIF:
		return ".sarif"
	default:
		return ".json"
	}
}

// OutputPaths returns the files written for format. An explicit output has
// its extension forced to the format's (markdown keeps .md or .markdown);
// otherwise a timestamped name is generated from now.
func OutputPaths(format Format, output string, now time.Time) []Output {
	var outputs []Output
	for _, f := range format.files() {
		outputs = append(outputs, Output{Format: f, Path: outputPath(f, output, now)})
	}
	return outputs
}

func outputPath(f Format, output string, now time.Time) string {
	if output == "" {
		return "skill_scan_report_" + now.Format("20060102_150405") + f.ext()
	}
	ext := filepath.Ext(output)
	if f == FormatMarkdown && (ext == ".md" || ext == ".markdown") {
		return output
	}
	if ext == f.ext() {
		return output
	}
	return strings.TrimSuffix(output, ext) + f.ext()
}

// Write renders the report in every file format selects and returns the
// written paths. Parent directories are created.
func (r *Report) Write(format Format, output, baseDir string, now time.Time) ([]string, error) {
	var written []string
	for _, out := range OutputPaths(format, output, now) {
		var data []byte
		var err error
		switch out.Format {
		case FormatJSON:
			data, err = r.RenderJSON()
		case FormatMarkdown:
			data = r.RenderMarkdown()
		case FormatSARIF:
			data, err = r.RenderSARIF(baseDir)
		}
		if err != nil {
			return written, errors.Wrapf(err, "failed to render %s report", out.Format)
		}

		if err := os.MkdirAll(filepath.Dir(out.Path), 0o755); err != nil {
			return written, errors.Wrapf(err, "failed to create directory for %s", out.Path)
		}
		if err := os.WriteFile(out.Path, data, 0o644); err != nil {
			return written, errors.Wrapf(err, "failed to write %s", out.Path)
		}
		written = append(written, out.Path)
	}
	return written, nil
}
