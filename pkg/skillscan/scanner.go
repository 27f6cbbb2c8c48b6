// Package skillscan scans skill directories with the built-in manifest
// analyzer plus any selected external analyzers, and renders the results
// for the console, JSON, Markdown and SARIF.
package skillscan

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jingkaihe/agentkit/pkg/logger"
	"github.com/jingkaihe/agentkit/pkg/scan"
	"github.com/jingkaihe/agentkit/pkg/skills"
)

// LLMKeyEnv must be set for the llm analyzer to be selected.
const LLMKeyEnv = "SKILL_SCANNER_LLM_API_KEY"

// Result is the outcome for a single skill.
type Result struct {
	SkillName      string            `json:"name"`
	Directory      string            `json:"directory"`
	Path           string            `json:"path"`
	IsSafe         bool              `json:"is_safe"`
	MaxSeverity    scan.Severity     `json:"max_severity"`
	Findings       []scan.Finding    `json:"findings"`
	AnalyzerErrors map[string]string `json:"analyzer_errors,omitempty"`
}

// Report is the outcome of scanning a skills directory.
type Report struct {
	ScanTimestamp time.Time `json:"scan_timestamp"`
	SkillsDir     string    `json:"skills_dir"`
	Recursive     bool      `json:"recursive"`
	Analyzers     []string  `json:"analyzers"`
	Results       []Result  `json:"results"`
}

// TotalSkills is the number of scanned skills.
func (r *Report) TotalSkills() int { return len(r.Results) }

// SafeCount is the number of safe skills.
func (r *Report) SafeCount() int {
	n := 0
	for _, res := range r.Results {
		if res.IsSafe {
			n++
		}
	}
	return n
}

// UnsafeCount is the number of unsafe skills.
func (r *Report) UnsafeCount() int { return r.TotalSkills() - r.SafeCount() }

// TotalFindings across all skills.
func (r *Report) TotalFindings() int {
	n := 0
	for _, res := range r.Results {
		n += len(res.Findings)
	}
	return n
}

// Count returns the number of findings with severity sev.
func (r *Report) Count(sev scan.Severity) int {
	n := 0
	for _, res := range r.Results {
		for _, f := range res.Findings {
			if f.Severity == sev {
				n++
			}
		}
	}
	return n
}

// HasCriticalOrHigh reports whether any finding is CRITICAL or HIGH.
func (r *Report) HasCriticalOrHigh() bool {
	return r.Count(scan.SeverityCritical) > 0 || r.Count(scan.SeverityHigh) > 0
}

// Scanner runs analyzers over skills.
type Scanner struct {
	analyzers []scan.Analyzer
	now       func() time.Time
}

// NewScanner returns a scanner running the given analyzers in order.
func NewScanner(analyzers []scan.Analyzer) *Scanner {
	return &Scanner{analyzers: analyzers, now: time.Now}
}

// AnalyzerNames lists the configured analyzers.
func (s *Scanner) AnalyzerNames() []string {
	names := make([]string, 0, len(s.analyzers))
	for _, a := range s.analyzers {
		names = append(names, a.Name())
	}
	return names
}

// ScanDirectory scans every skill under dir. A missing dir is an error.
func (s *Scanner) ScanDirectory(ctx context.Context, dir string, recursive bool) (*Report, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve %s", dir)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, errors.Errorf("skills directory not found: %s", abs)
	}

	paths, err := skills.Find(abs, recursive)
	if err != nil {
		return nil, err
	}

	report := &Report{
		ScanTimestamp: s.now(),
		SkillsDir:     abs,
		Recursive:     recursive,
		Analyzers:     s.AnalyzerNames(),
		Results:       make([]Result, 0, len(paths)),
	}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return report, errors.Wrap(err, "scan cancelled")
		}
		report.Results = append(report.Results, s.ScanSkill(ctx, path))
	}
	return report, nil
}

// ScanSkill runs every analyzer on the SKILL.md at path. Analyzer failures
// are recorded on the result.
func (s *Scanner) ScanSkill(ctx context.Context, path string) Result {
	dir := filepath.Dir(path)
	input := scan.SkillInput{Name: filepath.Base(dir), Directory: dir, Path: path}

	log := logger.G(ctx).WithField("skill", path)
	if skill, err := skills.Load(path); err == nil {
		if skill.Name != "" {
			input.Name = skill.Name
		}
		input.Frontmatter = skill.Frontmatter
		input.Body = skill.Content
		if input.Files, err = skill.Files(); err != nil {
			log.WithError(err).Warn("failed to list bundled files, analyzers see SKILL.md only")
		}
	} else {
		log.WithError(err).Debug("skill manifest did not load")
	}

	result := Result{
		SkillName: input.Name,
		Directory: dir,
		Path:      path,
		Findings:  []scan.Finding{},
	}

	req := scan.Request{Target: scan.TargetSkill, Skill: &input}
	for _, a := range s.analyzers {
		findings, err := a.Analyze(ctx, req)
		if err != nil {
			logger.G(ctx).WithError(err).
				WithField("analyzer", a.Name()).
				WithField("skill", input.Name).
				Warn("analyzer failed")
			if result.AnalyzerErrors == nil {
				result.AnalyzerErrors = make(map[string]string)
			}
			result.AnalyzerErrors[a.Name()] = err.Error()
			continue
		}
		for i := range findings {
			if findings[i].Analyzer == "" {
				findings[i].Analyzer = a.Name()
			}
		}
		result.Findings = append(result.Findings, findings...)
	}

	result.MaxSeverity = scan.MaxSeverity(result.Findings)
	result.IsSafe = scan.IsSafe(result.Findings)
	return result
}

// Selection describes which analyzers a skill scan should use on top of
// the manifest analyzer.
type Selection struct {
	UseBehavioral bool
	UseLLM        bool
	Analyzers     []string
}

// SelectAnalyzers resolves sel against the registry. The manifest analyzer
// always comes first. Missing analyzers and a missing LLM key produce
// warnings, never errors.
func SelectAnalyzers(reg *scan.Registry, sel Selection, getenv func(string) string) ([]scan.Analyzer, []string) {
	analyzers := []scan.Analyzer{ManifestAnalyzer{}}
	var warnings []string

	var names []string
	if sel.UseBehavioral {
		names = append(names, "behavioral")
	}
	if sel.UseLLM {
		if getenv(LLMKeyEnv) == "" {
			warnings = append(warnings,
				"--use-llm specified but "+LLMKeyEnv+" not set, skipping LLM analyzer")
		} else {
			names = append(names, "llm")
		}
	}
	for _, name := range sel.Analyzers {
		if !strings.EqualFold(strings.TrimSpace(name), ManifestAnalyzerName) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return analyzers, warnings
	}

	selected, selectWarnings, _ := reg.Select(names, scan.TargetSkill)
	warnings = append(warnings, selectWarnings...)
	return append(analyzers, selected...), warnings
}
