package mcpscan

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jingkaihe/agentkit/pkg/permissions"
	"github.com/jingkaihe/agentkit/pkg/scan"
)

// ApprovalAnalyzerName is the name of the built-in settings analyzer.
const ApprovalAnalyzerName = "permissions"

// ApprovalAnalyzer reports tools the workspace settings pre-approve or
// deny, so unsafe findings can be read against what the assistant may run
// unattended.
type ApprovalAnalyzer struct {
	settings *permissions.Settings
}

// NewApprovalAnalyzer checks tools against settings.
func NewApprovalAnalyzer(settings *permissions.Settings) *ApprovalAnalyzer {
	return &ApprovalAnalyzer{settings: settings}
}

func (a *ApprovalAnalyzer) Name() string { return ApprovalAnalyzerName }

func (a *ApprovalAnalyzer) Supports(target scan.Target) bool {
	return target == scan.TargetMCPTool
}

// ToolInvocation is the permission rule name of an MCP tool.
func ToolInvocation(server, tool string) string {
	return "mcp__" + server + "__" + tool
}

func (a *ApprovalAnalyzer) Analyze(_ context.Context, req scan.Request) ([]scan.Finding, error) {
	if req.Tool == nil || a.settings == nil {
		return nil, nil
	}

	invocation := ToolInvocation(req.Tool.Server, req.Tool.Name)
	// Names outside the rule syntax can never be matched by a rule.
	if _, _, err := permissions.ParseInvocation(invocation); err != nil {
		return nil, nil
	}
	d, err := permissions.Check(a.settings, invocation)
	if err != nil {
		return nil, errors.Wrap(err, "failed to check permissions")
	}

	switch d.Outcome {
	case permissions.Allowed:
		return []scan.Finding{{
			Severity:    scan.SeverityInfo,
			Title:       "Tool is auto-approved",
			Category:    "permissions",
			RuleID:      "PERMISSIONS_ALLOW",
			Description: "Allowed without confirmation by rule " + d.Rule,
			Analyzer:    ApprovalAnalyzerName,
		}}, nil
	case permissions.Denied:
		return []scan.Finding{{
			Severity:    scan.SeverityInfo,
			Title:       "Tool is denied",
			Category:    "permissions",
			RuleID:      "PERMISSIONS_DENY",
			Description: "Blocked by rule " + d.Rule,
			Analyzer:    ApprovalAnalyzerName,
		}}, nil
	default:
		return nil, nil
	}
}
