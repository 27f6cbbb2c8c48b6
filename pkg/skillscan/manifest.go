package skillscan

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/jingkaihe/agentkit/pkg/scan"
	"github.com/jingkaihe/agentkit/pkg/skills"
	"github.com/jingkaihe/agentkit/pkg/workspace"
)

// ManifestAnalyzerName is the built-in analyzer that always runs.
const ManifestAnalyzerName = "manifest"

// ManifestAnalyzer checks a skill's SKILL.md against the frontmatter schema
// and reports bundled executables. It inspects structure only.
type ManifestAnalyzer struct{}

func (ManifestAnalyzer) Name() string { return ManifestAnalyzerName }

func (ManifestAnalyzer) Supports(target scan.Target) bool {
	return target == scan.TargetSkill
}

func (ManifestAnalyzer) Analyze(_ context.Context, req scan.Request) ([]scan.Finding, error) {
	if req.Skill == nil {
		return nil, nil
	}
	path := req.Skill.Path

	skill, err := skills.Load(path)
	if err != nil {
		return []scan.Finding{{
			Severity:    scan.SeverityMedium,
			Title:       "Malformed skill manifest",
			Category:    "manifest",
			RuleID:      "MANIFEST_PARSE",
			Description: err.Error(),
			FilePath:    path,
			Analyzer:    ManifestAnalyzerName,
		}}, nil
	}

	content, _ := os.ReadFile(path)

	var findings []scan.Finding
	for _, issue := range skills.Validate(skill) {
		findings = append(findings, issueFinding(issue, string(content)))
	}

	for _, rel := range req.Skill.Files {
		info, err := os.Stat(filepath.Join(req.Skill.Directory, rel))
		if err != nil || info.Mode()&0o111 == 0 {
			continue
		}
		findings = append(findings, scan.Finding{
			Severity:    scan.SeverityInfo,
			Title:       "Bundled executable",
			Category:    "manifest",
			RuleID:      "MANIFEST_EXECUTABLE",
			Description: "Skill ships an executable file the assistant may run: " + rel,
			FilePath:    filepath.Join(req.Skill.Directory, rel),
			Analyzer:    ManifestAnalyzerName,
		})
	}
	return findings, nil
}

// issueFinding maps validation errors to MEDIUM and warnings to INFO.
func issueFinding(issue workspace.Issue, content string) scan.Finding {
	sev, title := scan.SeverityInfo, "Skill manifest warning"
	if issue.Severity == workspace.SeverityError {
		sev, title = scan.SeverityMedium, "Skill manifest error"
	}

	rule := "MANIFEST_FRONTMATTER"
	if issue.Field != "" {
		rule = "MANIFEST_" + strings.ToUpper(issue.Field)
	}

	return scan.Finding{
		Severity:    sev,
		Title:       title,
		Category:    "manifest",
		RuleID:      rule,
		Description: issue.Message,
		FilePath:    issue.Path,
		LineNumber:  fieldLine(content, issue.Field),
		Analyzer:    ManifestAnalyzerName,
	}
}

// fieldLine returns the 1-based line declaring field inside the frontmatter,
// or 0 when it is absent.
func fieldLine(content, field string) int {
	if field == "" {
		return 0
	}
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return 0
	}
	for i, line := range lines[1:] {
		if strings.TrimSpace(line) == "---" {
			break
		}
		if strings.HasPrefix(line, field+":") {
			return i + 2
		}
	}
	return 0
}
