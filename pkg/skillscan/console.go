package skillscan

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/jingkaihe/agentkit/pkg/scan"
)

const ruleWidth = 80

func rule(ch string) string { return strings.Repeat(ch, ruleWidth) }

func status(safe bool) string {
	if safe {
		return "✅ SAFE"
	}
	return "⚠️  UNSAFE"
}

// PrintResults writes the overall counts, per-skill details and the
// summary table.
func (r *Report) PrintResults(w io.Writer) {
	fmt.Fprintf(w, "%s\nSCAN RESULTS\n%s\n", rule("="), rule("="))
	fmt.Fprintf(w, "Total Skills Scanned: %d\n", r.TotalSkills())
	fmt.Fprintf(w, "Safe Skills: %d ✅\n", r.SafeCount())
	fmt.Fprintf(w, "Unsafe Skills: %d ⚠️\n", r.UnsafeCount())
	fmt.Fprintf(w, "Total Findings: %d\n", r.TotalFindings())

	if r.TotalFindings() > 0 {
		fmt.Fprintf(w, "\nSeverity Breakdown:\n")
		for _, sev := range scan.Severities {
			if n := r.Count(sev); n > 0 {
				fmt.Fprintf(w, "  %s %s: %d\n", sev.Emoji(), sev, n)
			}
		}
	}

	fmt.Fprintf(w, "\n%s\nDETAILED FINDINGS\n%s\n", rule("="), rule("="))
	for _, res := range r.Results {
		fmt.Fprintf(w, "\n📦 Skill: %s - %s\n", res.SkillName, status(res.IsSafe))
		fmt.Fprintf(w, "   Max Severity: %s %s\n", res.MaxSeverity.Emoji(), res.MaxSeverity)
		fmt.Fprintf(w, "   Total Findings: %d\n", len(res.Findings))
		printFindingDetails(w, res)
	}

	r.PrintTable(w)
}

func printFindingDetails(w io.Writer, res Result) {
	for _, name := range slices.Sorted(maps.Keys(res.AnalyzerErrors)) {
		fmt.Fprintf(w, "  ❌ Analyzer %s failed: %s\n", name, res.AnalyzerErrors[name])
	}
	if len(res.Findings) == 0 {
		fmt.Fprintf(w, "  ✅ No security issues found\n\n")
		return
	}

	for _, sev := range scan.Severities {
		var group []scan.Finding
		for _, f := range res.Findings {
			if f.Severity == sev {
				group = append(group, f)
			}
		}
		if len(group) == 0 {
			continue
		}

		fmt.Fprintf(w, "\n  %s %s Findings (%d):\n", sev.Emoji(), sev, len(group))
		fmt.Fprintf(w, "  %s\n", strings.Repeat("-", ruleWidth-4))
		for _, f := range group {
			fmt.Fprintf(w, "\n    [%s] %s\n", f.Severity, f.Title)
			fmt.Fprintf(w, "    Rule: %s\n", f.RuleID)
			if line := firstLine(f.Description); line != "" {
				fmt.Fprintf(w, "    Description: %s\n", line)
			}
			if f.FilePath != "" {
				fmt.Fprintf(w, "    Location: %s\n", location(f))
			}
			if f.Snippet != "" {
				fmt.Fprintf(w, "    Snippet: %s\n", snippetPreview(f.Snippet, 60))
			}
		}
	}
}

// PrintTable writes one row per skill.
func (r *Report) PrintTable(w io.Writer) {
	fmt.Fprintf(w, "\n%s\nSUMMARY TABLE\n%s\n", rule("="), rule("="))
	fmt.Fprintf(w, "%-30s %-10s %-10s %-10s\n", "Skill Name", "Status", "Severity", "Findings")
	fmt.Fprintln(w, rule("-"))
	for _, res := range r.Results {
		fmt.Fprintf(w, "%-30s %-10s %s %-8s %-10d\n",
			res.SkillName, status(res.IsSafe), res.MaxSeverity.Emoji(), res.MaxSeverity, len(res.Findings))
	}
	fmt.Fprintln(w, rule("-"))
	fmt.Fprintf(w, "%-30s %d skills\n\n", "TOTAL", r.TotalSkills())
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

func location(f scan.Finding) string {
	if f.LineNumber > 0 {
		return fmt.Sprintf("%s:%d", f.FilePath, f.LineNumber)
	}
	return f.FilePath
}

// snippetPreview returns the first line of s cut to n runes.
func snippetPreview(s string, n int) string {
	first := []rune(strings.SplitN(s, "\n", 2)[0])
	if len(first) > n {
		first = first[:n]
	}
	if len([]rune(s)) > n {
		return string(first) + "..."
	}
	return string(first)
}
