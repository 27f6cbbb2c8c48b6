package scan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in       string
		expected Severity
		wantErr  bool
	}{
		{"critical", SeverityCritical, false},
		{" High ", SeverityHigh, false},
		{"MEDIUM", SeverityMedium, false},
		{"", SeveritySafe, false},
		{"severe", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			sev, err := ParseSeverity(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, sev)
		})
	}
}

func TestSeverityOrdering(t *testing.T) {
	for i := 1; i < len(Severities); i++ {
		assert.Greater(t, Severities[i-1].Rank(), Severities[i].Rank())
	}
	assert.Greater(t, SeverityInfo.Rank(), SeveritySafe.Rank())
	assert.True(t, SeverityHigh.AtLeast(SeverityMedium))
	assert.True(t, SeverityMedium.AtLeast(SeverityMedium))
	assert.False(t, SeverityLow.AtLeast(SeverityMedium))
}

func TestSeverityEmoji(t *testing.T) {
	assert.Equal(t, "🔴", SeverityCritical.Emoji())
	assert.Equal(t, "🟠", SeverityHigh.Emoji())
	assert.Equal(t, "🟡", SeverityMedium.Emoji())
	assert.Equal(t, "🔵", SeverityLow.Emoji())
	assert.Equal(t, "⚪", SeverityInfo.Emoji())
	assert.Equal(t, "✅", SeveritySafe.Emoji())
	assert.Equal(t, "❓", Severity("BOGUS").Emoji())
	assert.Equal(t, "SAFE", Severity("").String())
}

func TestFindingHelpers(t *testing.T) {
	assert.Equal(t, SeveritySafe, MaxSeverity(nil))
	assert.True(t, IsSafe(nil))

	findings := []Finding{
		{Severity: SeverityLow, Title: "a"},
		{Severity: SeverityInfo, Title: "b"},
		{Severity: SeverityLow, Title: "c"},
	}
	assert.Equal(t, SeverityLow, MaxSeverity(findings))
	assert.True(t, IsSafe(findings))

	findings = append(findings, Finding{Severity: SeverityMedium, Title: "d"})
	assert.Equal(t, SeverityMedium, MaxSeverity(findings))
	assert.False(t, IsSafe(findings))

	counts := Counts(findings)
	assert.Equal(t, 2, counts[SeverityLow])
	assert.Equal(t, 1, counts[SeverityInfo])
	assert.Equal(t, 1, counts[SeverityMedium])
	assert.Equal(t, 0, counts[SeverityCritical])
}

type stubAnalyzer struct {
	name    string
	targets []Target
}

func (s stubAnalyzer) Name() string { return s.name }

func (s stubAnalyzer) Supports(target Target) bool {
	for _, t := range s.targets {
		if t == target {
			return true
		}
	}
	return false
}

func (s stubAnalyzer) Analyze(context.Context, Request) ([]Finding, error) { return nil, nil }

func TestRegistrySelect(t *testing.T) {
	r := NewRegistry(
		stubAnalyzer{name: "yara", targets: []Target{TargetMCPTool, TargetSkill}},
		stubAnalyzer{name: "LLM", targets: []Target{TargetMCPTool}},
		stubAnalyzer{name: "manifest", targets: []Target{TargetSkill}},
	)
	assert.Equal(t, []string{"llm", "manifest", "yara"}, r.Names())
	assert.False(t, r.Register(stubAnalyzer{name: "Yara"}))

	t.Run("known names in order", func(t *testing.T) {
		selected, warnings, err := r.Select(SplitNames(" llm, YARA ,llm"), TargetMCPTool)
		require.NoError(t, err)
		assert.Empty(t, warnings)
		require.Len(t, selected, 2)
		assert.Equal(t, "LLM", selected[0].Name())
		assert.Equal(t, "yara", selected[1].Name())
	})

	t.Run("unknown names warn", func(t *testing.T) {
		selected, warnings, err := r.Select([]string{"yara", "api"}, TargetMCPTool)
		require.NoError(t, err)
		assert.Len(t, selected, 1)
		assert.Equal(t, []string{"Unknown analyzer 'api', skipping"}, warnings)
	})

	t.Run("unsupported target warns", func(t *testing.T) {
		_, warnings, err := r.Select([]string{"manifest"}, TargetMCPTool)
		assert.ErrorIs(t, err, ErrNoAnalyzers)
		assert.Equal(t, []string{"Analyzer 'manifest' does not support mcp_tool, skipping"}, warnings)
	})

	t.Run("nothing selected", func(t *testing.T) {
		_, _, err := r.Select(nil, TargetSkill)
		assert.ErrorIs(t, err, ErrNoAnalyzers)
	})

	skillAnalyzers := r.For(TargetSkill)
	require.Len(t, skillAnalyzers, 2)
	assert.Equal(t, "manifest", skillAnalyzers[0].Name())
	assert.Equal(t, "yara", skillAnalyzers[1].Name())
}

func TestSplitNames(t *testing.T) {
	assert.Equal(t, []string{"yara", "llm"}, SplitNames("yara, llm,,"))
	assert.Nil(t, SplitNames(""))
}
