// Package permissions manages the host assistant's settings file and the
// allow/deny rule lists it carries under "permissions".
package permissions

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/rogpeppe/go-internal/lockedfile"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/jingkaihe/agentkit/pkg/workspace"
)

// List names a rule list inside the permissions object.
type List string

const (
	Allow List = "allow"
	Deny  List = "deny"
)

// Settings is the documented shape of the settings file.
type Settings struct {
	Permissions Permissions `json:"permissions" jsonschema:"required"`
}

// Permissions holds the rule lists.
type Permissions struct {
	Allow []string `json:"allow" jsonschema:"description=Tool rules the assistant may use without asking"`
	Deny  []string `json:"deny,omitempty" jsonschema:"description=Tool rules the assistant must never use"`
}

// rulePattern accepts Tool and Tool(specifier), where tool names may carry
// MCP prefixes such as mcp__server__tool.
var rulePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_\-]*(\(.+\))?$`)

// ParseSettings decodes raw settings JSON.
func ParseSettings(raw []byte) (*Settings, error) {
	var s Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.Wrap(err, "invalid settings json")
	}
	return &s, nil
}

// Load reads and decodes the settings file at path.
func Load(path string) (*Settings, error) {
	raw, err := lockedfile.Read(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read settings file %s", path)
	}
	return ParseSettings(raw)
}

// Validate checks raw settings JSON against the documented shape and the
// rule syntax. path is only used to label issues.
func Validate(path string, raw []byte) []workspace.Issue {
	if !gjson.ValidBytes(raw) {
		return []workspace.Issue{workspace.Errorf(path, "", "file is not valid JSON")}
	}

	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return []workspace.Issue{workspace.Errorf(path, "", "top level must be an object")}
	}

	perms := root.Get("permissions")
	if !perms.Exists() {
		return []workspace.Issue{workspace.Errorf(path, "permissions", "permissions object is required")}
	}
	if !perms.IsObject() {
		return []workspace.Issue{workspace.Errorf(path, "permissions", "permissions must be an object")}
	}

	var issues []workspace.Issue
	if !perms.Get(string(Allow)).Exists() {
		issues = append(issues, workspace.Errorf(path, "permissions.allow", "allow list is required"))
	}
	for _, list := range []List{Allow, Deny} {
		issues = append(issues, validateList(path, list, perms.Get(string(list)))...)
	}

	for key := range perms.Map() {
		if key != string(Allow) && key != string(Deny) {
			issues = append(issues, workspace.Warnf(path, "permissions."+key, "unknown permissions key"))
		}
	}
	return issues
}

func validateList(path string, list List, value gjson.Result) []workspace.Issue {
	if !value.Exists() {
		return nil
	}
	field := "permissions." + string(list)
	if !value.IsArray() {
		return []workspace.Issue{workspace.Errorf(path, field, "%s must be an array of strings", list)}
	}

	var issues []workspace.Issue
	seen := make(map[string]bool)
	for i, item := range value.Array() {
		itemField := field + "[" + strconv.Itoa(i) + "]"
		if item.Type != gjson.String {
			issues = append(issues, workspace.Errorf(path, itemField, "rule must be a string"))
			continue
		}
		rule := item.String()
		switch {
		case strings.TrimSpace(rule) == "":
			issues = append(issues, workspace.Errorf(path, itemField, "rule must not be empty"))
		case !rulePattern.MatchString(rule):
			issues = append(issues, workspace.Errorf(path, itemField, "malformed rule %q, expected Tool or Tool(specifier)", rule))
		case seen[rule]:
			issues = append(issues, workspace.Warnf(path, itemField, "duplicate rule %q", rule))
		}
		seen[rule] = true
	}
	return issues
}

// Add appends rules to a list in the settings file at path, creating the
// file if needed. Rules already present are skipped. Unrelated keys are
// preserved. It returns the rules actually added.
func Add(path string, list List, rules ...string) ([]string, error) {
	for _, rule := range rules {
		if !rulePattern.MatchString(rule) {
			return nil, errors.Errorf("malformed rule %q, expected Tool or Tool(specifier)", rule)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create directory for %s", path)
	}

	var added []string
	err := edit(path, func(raw []byte) ([]byte, error) {
		if len(bytes.TrimSpace(raw)) == 0 {
			raw = []byte(`{"permissions":{"allow":[]}}`)
		}

		existing := make(map[string]bool)
		for _, r := range gjson.GetBytes(raw, listPath(list)).Array() {
			existing[r.String()] = true
		}
		for _, rule := range rules {
			if existing[rule] {
				continue
			}
			existing[rule] = true
			added = append(added, rule)
		}

		var err error
		if !gjson.GetBytes(raw, listPath(list)).Exists() {
			if raw, err = sjson.SetBytes(raw, listPath(list), []string{}); err != nil {
				return nil, errors.Wrap(err, "failed to update settings")
			}
		}
		for _, rule := range added {
			if raw, err = sjson.SetBytes(raw, listPath(list)+".-1", rule); err != nil {
				return nil, errors.Wrap(err, "failed to update settings")
			}
		}
		return raw, nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// Remove deletes rules from a list in the settings file and returns the
// rules that were present.
func Remove(path string, list List, rules ...string) ([]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(err, "failed to read settings file %s", path)
	}

	drop := make(map[string]bool)
	for _, r := range rules {
		drop[r] = true
	}

	var removed []string
	err := edit(path, func(raw []byte) ([]byte, error) {
		var kept []string
		for _, r := range gjson.GetBytes(raw, listPath(list)).Array() {
			if drop[r.String()] {
				removed = append(removed, r.String())
				continue
			}
			kept = append(kept, r.String())
		}
		if len(removed) == 0 {
			return raw, nil
		}
		if kept == nil {
			kept = []string{}
		}
		return sjson.SetBytes(raw, listPath(list), kept)
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func listPath(list List) string {
	return "permissions." + string(list)
}

// edit applies fn to the settings file under a single file lock, so
// concurrent edits never lose each other's rules. The result is
// pretty-printed, keeping key order.
func edit(path string, fn func([]byte) ([]byte, error)) error {
	err := lockedfile.Transform(path, func(raw []byte) ([]byte, error) {
		if len(bytes.TrimSpace(raw)) > 0 && !gjson.ValidBytes(raw) {
			return nil, errors.Errorf("settings file %s is not valid JSON", path)
		}
		out, err := fn(raw)
		if err != nil || bytes.Equal(out, raw) {
			return out, err
		}
		return pretty.Pretty(out), nil
	})
	return errors.Wrapf(err, "failed to update settings file %s", path)
}

// Schema returns the JSON schema of the settings file.
func Schema() ([]byte, error) {
	r := &jsonschema.Reflector{DoNotReference: true, AllowAdditionalProperties: true}
	schema := r.Reflect(&Settings{})
	schema.Title = "Assistant settings permissions"
	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal schema")
	}
	return out, nil
}
