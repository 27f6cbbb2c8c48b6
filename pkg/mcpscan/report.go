package mcpscan

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jingkaihe/agentkit/pkg/scan"
)

// DefaultOutput is where results are saved when no path is given.
const DefaultOutput = "mcp_scan_results.json"

// Status of a server scan.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Tool statuses.
const (
	ToolCompleted  = "completed"
	ToolIncomplete = "incomplete"
)

// AnalyzerResult summarizes one analyzer's verdict on a tool.
type AnalyzerResult struct {
	IsSafe        bool   `json:"is_safe"`
	FindingsCount int    `json:"findings_count"`
	Error         string `json:"error,omitempty"`
}

// ToolResult is the outcome for a single tool.
type ToolResult struct {
	Name            string                    `json:"name"`
	Description     string                    `json:"description"`
	IsSafe          bool                      `json:"is_safe"`
	Status          string                    `json:"status"`
	MaxSeverity     scan.Severity             `json:"max_severity"`
	Findings        []scan.Finding            `json:"findings"`
	AnalyzerResults map[string]AnalyzerResult `json:"analyzer_results"`
}

// ServerResult is the outcome for a single server.
type ServerResult struct {
	ServerType string       `json:"server_type"`
	Command    string       `json:"command,omitempty"`
	Args       []string     `json:"args,omitempty"`
	URL        string       `json:"url,omitempty"`
	Auth       string       `json:"auth,omitempty"`
	Status     Status       `json:"status"`
	Tools      []ToolResult `json:"tools"`
	Error      string       `json:"error,omitempty"`
	DurationMS int64        `json:"duration_ms"`
}

// SafeCount returns the number of safe tools.
func (r *ServerResult) SafeCount() int {
	n := 0
	for _, t := range r.Tools {
		if t.IsSafe {
			n++
		}
	}
	return n
}

// Summary aggregates a report.
type Summary struct {
	TotalServers   int `json:"total_servers"`
	ScannedServers int `json:"scanned_servers"`
	FailedServers  int `json:"failed_servers"`
	SkippedServers int `json:"skipped_servers"`
	TotalTools     int `json:"total_tools"`
	SafeTools      int `json:"safe_tools"`
	UnsafeTools    int `json:"unsafe_tools"`
	TotalFindings  int `json:"total_findings"`
}

// Report is the full result of an MCP scan.
type Report struct {
	ScanID        string                   `json:"scan_id"`
	ScanTimestamp time.Time                `json:"scan_timestamp"`
	ConfigFile    string                   `json:"config_file"`
	AnalyzersUsed []string                 `json:"analyzers_used"`
	Servers       map[string]*ServerResult `json:"servers"`
	Summary       Summary                  `json:"summary"`
}

// Summarize recomputes the summary from the server results.
func (r *Report) Summarize() {
	s := Summary{TotalServers: len(r.Servers)}
	for _, server := range r.Servers {
		switch server.Status {
		case StatusCompleted:
			s.ScannedServers++
			s.TotalTools += len(server.Tools)
			safe := server.SafeCount()
			s.SafeTools += safe
			s.UnsafeTools += len(server.Tools) - safe
			for _, t := range server.Tools {
				s.TotalFindings += len(t.Findings)
			}
		case StatusFailed:
			s.FailedServers++
		case StatusSkipped:
			s.SkippedServers++
		}
	}
	r.Summary = s
}

// ServerNames returns the scanned server names, sorted.
func (r *Report) ServerNames() []string {
	names := make([]string, 0, len(r.Servers))
	for name := range r.Servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

const (
	maxFindingsShown   = 3
	maxDescriptionRune = 80
)

// PrintSummary writes the human-readable summary, including up to three
// findings for every unsafe tool.
func (r *Report) PrintSummary(w io.Writer) {
	rule := strings.Repeat("=", 80)
	s := r.Summary

	fmt.Fprintf(w, "\n%s\n📊 SCAN SUMMARY\n%s\n", rule, rule)
	fmt.Fprintf(w, "\nServers:\n")
	fmt.Fprintf(w, "  Total:    %d\n", s.TotalServers)
	fmt.Fprintf(w, "  Scanned:  %d\n", s.ScannedServers)
	fmt.Fprintf(w, "  Failed:   %d\n", s.FailedServers)
	if s.SkippedServers > 0 {
		fmt.Fprintf(w, "  Skipped:  %d\n", s.SkippedServers)
	}
	fmt.Fprintf(w, "\nTools:\n")
	fmt.Fprintf(w, "  Total:    %d\n", s.TotalTools)
	fmt.Fprintf(w, "  ✅ Safe:    %d\n", s.SafeTools)
	fmt.Fprintf(w, "  ⚠️  Unsafe:  %d\n", s.UnsafeTools)
	fmt.Fprintf(w, "\nFindings:\n")
	fmt.Fprintf(w, "  Total security findings: %d\n", s.TotalFindings)

	if s.UnsafeTools == 0 {
		return
	}

	fmt.Fprintf(w, "\n%s\n⚠️  UNSAFE TOOLS DETECTED\n%s\n", rule, rule)
	for _, name := range r.ServerNames() {
		server := r.Servers[name]
		var unsafe []ToolResult
		for _, t := range server.Tools {
			if !t.IsSafe {
				unsafe = append(unsafe, t)
			}
		}
		if len(unsafe) == 0 {
			continue
		}

		fmt.Fprintf(w, "\n🔴 Server: %s\n", name)
		for _, t := range unsafe {
			fmt.Fprintf(w, "   • %s\n", t.Name)
			fmt.Fprintf(w, "     Status: %s\n", t.Status)
			fmt.Fprintf(w, "     Findings: %d\n", len(t.Findings))
			for i, f := range t.Findings {
				if i == maxFindingsShown {
					fmt.Fprintf(w, "       ... and %d more findings\n", len(t.Findings)-maxFindingsShown)
					break
				}
				fmt.Fprintf(w, "       - [%s] %s\n", f.Severity, truncate(findingText(f), maxDescriptionRune))
			}
		}
	}
}

func findingText(f scan.Finding) string {
	if f.Description != "" {
		return f.Description
	}
	return f.Title
}

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// Save writes the report as indented JSON, creating parent directories.
func (r *Report) Save(path string) error {
	if path == "" {
		path = DefaultOutput
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", path)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal results")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to save results to %s", path)
	}
	return nil
}
