package permissions

import (
	"strings"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"
)

// Outcome of checking an invocation against the rule lists.
type Outcome string

const (
	Allowed   Outcome = "allowed"
	Denied    Outcome = "denied"
	Unmatched Outcome = "unmatched"
)

// Decision explains how an invocation was resolved.
type Decision struct {
	Outcome Outcome
	Rule    string
}

// pathTools take file paths as their specifier, so '/' separates glob segments.
var pathTools = map[string]bool{
	"Read": true, "Edit": true, "MultiEdit": true, "Write": true,
	"Glob": true, "Grep": true, "NotebookEdit": true,
}

type rule struct {
	raw          string
	tool         string
	specifier    string
	hasSpecifier bool
}

func parseRule(s string) (rule, error) {
	s = strings.TrimSpace(s)
	if !rulePattern.MatchString(s) {
		return rule{}, errors.Errorf("malformed rule %q", s)
	}
	open := strings.IndexByte(s, '(')
	if open == -1 {
		return rule{raw: s, tool: s}, nil
	}
	return rule{raw: s, tool: s[:open], specifier: s[open+1 : len(s)-1], hasSpecifier: true}, nil
}

// ParseInvocation splits "Tool(argument)" into its parts. A bare tool name
// has no argument.
func ParseInvocation(s string) (tool, arg string, err error) {
	r, err := parseRule(s)
	if err != nil {
		return "", "", errors.Errorf("malformed invocation %q, expected Tool or Tool(argument)", s)
	}
	return r.tool, r.specifier, nil
}

func (r rule) matches(tool, arg string, hasArg bool) (bool, error) {
	if !r.matchesTool(tool) {
		return false, nil
	}
	if !r.hasSpecifier {
		return true, nil
	}
	if !hasArg {
		return false, nil
	}

	// "prefix:*" is a command prefix match.
	if prefix, ok := strings.CutSuffix(r.specifier, ":*"); ok {
		return arg == prefix || strings.HasPrefix(arg, prefix+" "), nil
	}

	var g glob.Glob
	var err error
	if pathTools[r.tool] {
		g, err = glob.Compile(r.specifier, '/')
	} else {
		g, err = glob.Compile(r.specifier)
	}
	if err != nil {
		return false, errors.Wrapf(err, "invalid pattern in rule %q", r.raw)
	}
	return g.Match(arg), nil
}

func (r rule) matchesTool(tool string) bool {
	if r.tool == tool {
		return true
	}
	// mcp__server grants every tool on that server.
	return strings.HasPrefix(r.tool, "mcp__") && !strings.Contains(strings.TrimPrefix(r.tool, "mcp__"), "__") &&
		strings.HasPrefix(tool, r.tool+"__")
}

// Check resolves an invocation such as "Bash(git status)" against the
// settings. Deny rules win over allow rules.
func Check(s *Settings, invocation string) (Decision, error) {
	tool, arg, err := ParseInvocation(invocation)
	if err != nil {
		return Decision{}, err
	}
	hasArg := strings.Contains(invocation, "(")

	lists := []struct {
		rules   []string
		outcome Outcome
	}{
		{s.Permissions.Deny, Denied},
		{s.Permissions.Allow, Allowed},
	}
	for _, l := range lists {
		for _, raw := range l.rules {
			r, err := parseRule(raw)
			if err != nil {
				return Decision{}, err
			}
			ok, err := r.matches(tool, arg, hasArg)
			if err != nil {
				return Decision{}, err
			}
			if ok {
				return Decision{Outcome: l.outcome, Rule: raw}, nil
			}
		}
	}
	return Decision{Outcome: Unmatched}, nil
}
