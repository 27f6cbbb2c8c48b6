package scan

// Finding is a single issue reported by an analyzer.
type Finding struct {
	Severity    Severity `json:"severity"`
	Title       string   `json:"title"`
	Category    string   `json:"category,omitempty"`
	RuleID      string   `json:"rule_id,omitempty"`
	Description string   `json:"description,omitempty"`
	FilePath    string   `json:"file_path,omitempty"`
	LineNumber  int      `json:"line_number,omitempty"`
	Snippet     string   `json:"snippet,omitempty"`
	ThreatNames []string `json:"threat_names,omitempty"`
	Analyzer    string   `json:"analyzer,omitempty"`
}

// UnsafeThreshold is the lowest severity that makes a target unsafe.
const UnsafeThreshold = SeverityMedium

// MaxSeverity returns the highest severity among findings, SAFE when empty.
func MaxSeverity(findings []Finding) Severity {
	highest := SeveritySafe
	for _, f := range findings {
		if f.Severity.Rank() > highest.Rank() {
			highest = f.Severity
		}
	}
	return highest
}

// IsSafe reports whether no finding reaches UnsafeThreshold.
func IsSafe(findings []Finding) bool {
	return !MaxSeverity(findings).AtLeast(UnsafeThreshold)
}

// Counts tallies findings per severity.
func Counts(findings []Finding) map[Severity]int {
	counts := make(map[Severity]int, len(Severities))
	for _, f := range findings {
		counts[f.Severity]++
	}
	return counts
}
