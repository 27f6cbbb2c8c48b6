package skillscan

import (
	"encoding/json"
	"time"

	"github.com/jingkaihe/agentkit/pkg/scan"
)

type jsonSummary struct {
	TotalSkills   int `json:"total_skills"`
	SafeCount     int `json:"safe_count"`
	UnsafeCount   int `json:"unsafe_count"`
	TotalFindings int `json:"total_findings"`
	CriticalCount int `json:"critical_count"`
	HighCount     int `json:"high_count"`
	MediumCount   int `json:"medium_count"`
	LowCount      int `json:"low_count"`
	InfoCount     int `json:"info_count"`
}

type jsonSkill struct {
	Name           string            `json:"name"`
	Path           string            `json:"path"`
	IsSafe         bool              `json:"is_safe"`
	MaxSeverity    scan.Severity     `json:"max_severity"`
	TotalFindings  int               `json:"total_findings"`
	Findings       []scan.Finding    `json:"findings"`
	AnalyzerErrors map[string]string `json:"analyzer_errors,omitempty"`
}

type jsonReport struct {
	ScanTimestamp string      `json:"scan_timestamp"`
	SkillsDir     string      `json:"skills_dir"`
	Analyzers     []string    `json:"analyzers"`
	Summary       jsonSummary `json:"summary"`
	Skills        []jsonSkill `json:"skills"`
}

// RenderJSON returns the indented JSON report.
func (r *Report) RenderJSON() ([]byte, error) {
	out := jsonReport{
		ScanTimestamp: r.ScanTimestamp.Format(time.RFC3339),
		SkillsDir:     r.SkillsDir,
		Analyzers:     r.Analyzers,
		Summary: jsonSummary{
			TotalSkills:   r.TotalSkills(),
			SafeCount:     r.SafeCount(),
			UnsafeCount:   r.UnsafeCount(),
			TotalFindings: r.TotalFindings(),
			CriticalCount: r.Count(scan.SeverityCritical),
			HighCount:     r.Count(scan.SeverityHigh),
			MediumCount:   r.Count(scan.SeverityMedium),
			LowCount:      r.Count(scan.SeverityLow),
			InfoCount:     r.Count(scan.SeverityInfo),
		},
		Skills: make([]jsonSkill, 0, len(r.Results)),
	}
	for _, res := range r.Results {
		out.Skills = append(out.Skills, jsonSkill{
			Name:           res.SkillName,
			Path:           res.Path,
			IsSafe:         res.IsSafe,
			MaxSeverity:    res.MaxSeverity,
			TotalFindings:  len(res.Findings),
			Findings:       res.Findings,
			AnalyzerErrors: res.AnalyzerErrors,
		})
	}
	return json.MarshalIndent(out, "", "  ")
}
