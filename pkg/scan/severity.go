// Package scan holds the model shared by the MCP and skill scanners:
// severities, findings, and the external analyzers that produce them.
package scan

import (
	"strings"

	"github.com/pkg/errors"
)

// Severity of a finding. The zero value is SAFE.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
	SeveritySafe     Severity = "SAFE"
)

// Severities lists every finding severity from highest to lowest.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}

var severityRank = map[Severity]int{
	SeveritySafe:     0,
	SeverityInfo:     1,
	SeverityLow:      2,
	SeverityMedium:   3,
	SeverityHigh:     4,
	SeverityCritical: 5,
}

// ParseSeverity accepts any casing. An empty string is SAFE.
func ParseSeverity(s string) (Severity, error) {
	if s == "" {
		return SeveritySafe, nil
	}
	sev := Severity(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := severityRank[sev]; !ok {
		return "", errors.Errorf("unknown severity %q", s)
	}
	return sev, nil
}

// Rank orders severities; unknown values rank as SAFE.
func (s Severity) Rank() int {
	return severityRank[s]
}

// AtLeast reports whether s is as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// Emoji used in console and markdown output.
func (s Severity) Emoji() string {
	switch s {
	case SeverityCritical:
		return "🔴"
	case SeverityHigh:
		return "🟠"
	case SeverityMedium:
		return "🟡"
	case SeverityLow:
		return "🔵"
	case SeverityInfo:
		return "⚪"
	case SeveritySafe, "":
		return "✅"
	default:
		return "❓"
	}
}

func (s Severity) String() string {
	if s == "" {
		return string(SeveritySafe)
	}
	return string(s)
}
