package skillscan

import (
	"fmt"
	"strings"

	"github.com/jingkaihe/agentkit/pkg/scan"
)

const maxMarkdownSnippet = 200

// RenderMarkdown returns the markdown report.
func (r *Report) RenderMarkdown() []byte {
	var b strings.Builder

	b.WriteString("# Skills Security Scan Report\n")
	fmt.Fprintf(&b, "\n**Scan Date:** %s\n", r.ScanTimestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "\n**Analyzers:** %s\n", strings.Join(r.Analyzers, ", "))
	b.WriteString("\n## Summary\n\n")
	fmt.Fprintf(&b, "- **Total Skills Scanned:** %d\n", r.TotalSkills())
	fmt.Fprintf(&b, "- **Safe Skills:** %d\n", r.SafeCount())
	fmt.Fprintf(&b, "- **Unsafe Skills:** %d\n", r.UnsafeCount())
	fmt.Fprintf(&b, "- **Total Findings:** %d\n", r.TotalFindings())

	b.WriteString("\n### Severity Breakdown\n\n")
	b.WriteString("| Severity | Count |\n")
	b.WriteString("|----------|-------|\n")
	for _, sev := range scan.Severities {
		if n := r.Count(sev); n > 0 {
			fmt.Fprintf(&b, "| %s %s | %d |\n", sev.Emoji(), sev, n)
		}
	}

	b.WriteString("\n## Detailed Results\n")
	for _, res := range r.Results {
		label := "✅ SAFE"
		if !res.IsSafe {
			label = "⚠️ UNSAFE"
		}
		fmt.Fprintf(&b, "\n### %s - %s\n\n", res.SkillName, label)
		fmt.Fprintf(&b, "- **Max Severity:** %s %s\n", res.MaxSeverity.Emoji(), res.MaxSeverity)
		fmt.Fprintf(&b, "- **Total Findings:** %d\n", len(res.Findings))

		if len(res.Findings) == 0 {
			continue
		}
		b.WriteString("\n#### Findings\n")
		for _, f := range res.Findings {
			fmt.Fprintf(&b, "\n##### %s [%s] %s\n\n", f.Severity.Emoji(), f.Severity, f.Title)
			fmt.Fprintf(&b, "- **Rule ID:** `%s`\n", f.RuleID)
			if f.Description != "" {
				fmt.Fprintf(&b, "- **Description:** %s\n", f.Description)
			}
			if f.FilePath != "" {
				loc := "`" + f.FilePath + "`"
				if f.LineNumber > 0 {
					loc += fmt.Sprintf(" (line %d)", f.LineNumber)
				}
				fmt.Fprintf(&b, "- **Location:** %s\n", loc)
			}
			if f.Snippet != "" {
				snippet := []rune(f.Snippet)
				if len(snippet) > maxMarkdownSnippet {
					snippet = snippet[:maxMarkdownSnippet]
				}
				fmt.Fprintf(&b, "- **Code Snippet:**\n  ```\n  %s\n  ```\n", string(snippet))
			}
		}
	}

	b.WriteString("\n---\n*Generated by agentkit scan skills*\n")
	return []byte(b.String())
}
