package scan

import (
	"context"
	"encoding/json"
)

// Target is the kind of artifact an analyzer inspects.
type Target string

const (
	TargetMCPTool Target = "mcp_tool"
	TargetSkill   Target = "skill"
)

// ToolInput describes an MCP tool handed to analyzers.
type ToolInput struct {
	Server      string          `json:"server"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
	Annotations json.RawMessage `json:"annotations,omitempty"`
}

// SkillInput describes a skill handed to analyzers.
type SkillInput struct {
	Name        string         `json:"name"`
	Directory   string         `json:"directory"`
	Path        string         `json:"path"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Body        string         `json:"body"`
	Files       []string       `json:"files,omitempty"`
}

// Request is the payload an analyzer receives. Exactly one of Tool and
// Skill is set, matching Target.
type Request struct {
	Target Target      `json:"target"`
	Tool   *ToolInput  `json:"tool,omitempty"`
	Skill  *SkillInput `json:"skill,omitempty"`
}

// Response is what an analyzer returns.
type Response struct {
	Findings []Finding `json:"findings"`
}

// Analyzer inspects a single target and reports findings.
type Analyzer interface {
	Name() string
	Supports(target Target) bool
	Analyze(ctx context.Context, req Request) ([]Finding, error)
}
