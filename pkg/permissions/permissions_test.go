package permissions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/jingkaihe/agentkit/pkg/workspace"
)

func fields(issues []workspace.Issue) []string {
	var out []string
	for _, i := range issues {
		out = append(out, string(i.Severity)+":"+i.Field)
	}
	return out
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []string
	}{
		{
			name:     "well formed",
			raw:      `{"permissions":{"allow":["Read","Bash(git status:*)","mcp__github__list_issues"]}}`,
			expected: nil,
		},
		{
			name:     "with deny list",
			raw:      `{"permissions":{"allow":[],"deny":["WebFetch"]}}`,
			expected: nil,
		},
		{
			name:     "invalid json",
			raw:      `{"permissions":`,
			expected: []string{"error:"},
		},
		{
			name:     "top level array",
			raw:      `[]`,
			expected: []string{"error:"},
		},
		{
			name:     "missing permissions",
			raw:      `{"model":"opus"}`,
			expected: []string{"error:permissions"},
		},
		{
			name:     "permissions not an object",
			raw:      `{"permissions":["Read"]}`,
			expected: []string{"error:permissions"},
		},
		{
			name:     "missing allow",
			raw:      `{"permissions":{"deny":["Read"]}}`,
			expected: []string{"error:permissions.allow"},
		},
		{
			name:     "allow not an array",
			raw:      `{"permissions":{"allow":"Read"}}`,
			expected: []string{"error:permissions.allow"},
		},
		{
			name:     "bad rules",
			raw:      `{"permissions":{"allow":["Read",1,"","Bash(",  "Read"]}}`,
			expected: []string{"error:permissions.allow[1]", "error:permissions.allow[2]", "error:permissions.allow[3]", "warning:permissions.allow[4]"},
		},
		{
			name:     "unknown key",
			raw:      `{"permissions":{"allow":[],"ask":[]}}`,
			expected: []string{"warning:permissions.ask"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := Validate("settings.local.json", []byte(tt.raw))
			assert.Equal(t, tt.expected, fields(issues))
			for _, i := range issues {
				assert.Equal(t, "settings.local.json", i.Path)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.local.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"permissions":{"allow":["Read"],"deny":["Bash(rm:*)"]}}`), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Read"}, s.Permissions.Allow)
	assert.Equal(t, []string{"Bash(rm:*)"}, s.Permissions.Deny)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestAddCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".claude", "settings.local.json")

	added, err := Add(path, Allow, "Read", "Bash(go test:*)", "Read")
	require.NoError(t, err)
	assert.Equal(t, []string{"Read", "Bash(go test:*)"}, added)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, Validate(path, raw))

	s, err := ParseSettings(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"Read", "Bash(go test:*)"}, s.Permissions.Allow)
}

func TestAddPreservesOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.local.json")
	original := `{"model":"opus","permissions":{"allow":["Read"],"additionalDirectories":["../docs"]},"env":{"FOO":"bar"}}`
	require.NoError(t, os.WriteFile(path, []byte(original), 0o644))

	added, err := Add(path, Allow, "Read", "Edit")
	require.NoError(t, err)
	assert.Equal(t, []string{"Edit"}, added)

	added, err = Add(path, Deny, "WebFetch")
	require.NoError(t, err)
	assert.Equal(t, []string{"WebFetch"}, added)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "opus", gjson.GetBytes(raw, "model").String())
	assert.Equal(t, "bar", gjson.GetBytes(raw, "env.FOO").String())
	assert.Equal(t, "../docs", gjson.GetBytes(raw, "permissions.additionalDirectories.0").String())
	assert.Equal(t, `["Read","Edit"]`, compact(t, gjson.GetBytes(raw, "permissions.allow").Raw))
	assert.Equal(t, `["WebFetch"]`, compact(t, gjson.GetBytes(raw, "permissions.deny").Raw))

	keys := []string{}
	gjson.ParseBytes(raw).ForEach(func(k, _ gjson.Result) bool {
		keys = append(keys, k.String())
		return true
	})
	assert.Equal(t, []string{"model", "permissions", "env"}, keys)
}

func compact(t *testing.T, raw string) string {
	t.Helper()
	var v []string
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	out, err := json.Marshal(v)
	require.NoError(t, err)
	return string(out)
}

func TestAddRejectsMalformedRule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.local.json")

	_, err := Add(path, Allow, "Read", "Bash(")
	assert.ErrorContains(t, err, "malformed rule")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestAddRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.local.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o644))

	_, err := Add(path, Allow, "Read")
	assert.ErrorContains(t, err, "not valid JSON")
}

func TestAddConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".claude", "settings.local.json")

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Add(path, Allow, fmt.Sprintf("Tool%d", i))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	s, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, s.Permissions.Allow, n)
	for i := range n {
		assert.Contains(t, s.Permissions.Allow, fmt.Sprintf("Tool%d", i))
	}
}

func TestRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.local.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"permissions":{"allow":["Read","Edit","Write"]}}`), 0o644))

	removed, err := Remove(path, Allow, "Edit", "Glob")
	require.NoError(t, err)
	assert.Equal(t, []string{"Edit"}, removed)

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Read", "Write"}, s.Permissions.Allow)

	removed, err = Remove(path, Allow, "Read", "Write")
	require.NoError(t, err)
	assert.Equal(t, []string{"Read", "Write"}, removed)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, gjson.GetBytes(raw, "permissions.allow").IsArray())
	assert.Empty(t, gjson.GetBytes(raw, "permissions.allow").Array())

	removed, err = Remove(path, Allow, "Read")
	require.NoError(t, err)
	assert.Nil(t, removed)

	_, err = Remove(filepath.Join(t.TempDir(), "missing.json"), Allow, "Read")
	assert.Error(t, err)
}

func TestCheck(t *testing.T) {
	s := &Settings{Permissions: Permissions{
		Allow: []string{
			"Read",
			"Bash(npm run test:*)",
			"Bash(git status)",
			"Edit(src/**)",
			"Write(docs/*.md)",
			"mcp__github",
		},
		Deny: []string{
			"Bash(rm:*)",
			"Edit(src/secrets/**)",
			"mcp__github__delete_repo",
		},
	}}

	tests := []struct {
		invocation string
		outcome    Outcome
		rule       string
	}{
		{"Read", Allowed, "Read"},
		{"Read(/etc/hosts)", Allowed, "Read"},
		{"Bash(npm run test)", Allowed, "Bash(npm run test:*)"},
		{"Bash(npm run test -- --watch)", Allowed, "Bash(npm run test:*)"},
		{"Bash(npm run testing)", Unmatched, ""},
		{"Bash(git status)", Allowed, "Bash(git status)"},
		{"Bash(git status --short)", Unmatched, ""},
		{"Bash(rm -rf /)", Denied, "Bash(rm:*)"},
		{"Bash", Unmatched, ""},
		{"Edit(src/main.go)", Allowed, "Edit(src/**)"},
		{"Edit(src/secrets/key.pem)", Denied, "Edit(src/secrets/**)"},
		{"Write(docs/guide.md)", Allowed, "Write(docs/*.md)"},
		{"Write(docs/nested/guide.md)", Unmatched, ""},
		{"mcp__github__list_issues", Allowed, "mcp__github"},
		{"mcp__github__delete_repo", Denied, "mcp__github__delete_repo"},
		{"mcp__githubx__list", Unmatched, ""},
		{"WebFetch(https://example.com)", Unmatched, ""},
	}

	for _, tt := range tests {
		t.Run(tt.invocation, func(t *testing.T) {
			d, err := Check(s, tt.invocation)
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, d.Outcome)
			assert.Equal(t, tt.rule, d.Rule)
		})
	}
}

func TestCheckErrors(t *testing.T) {
	_, err := Check(&Settings{}, "Bash(")
	assert.ErrorContains(t, err, "malformed invocation")

	_, err = Check(&Settings{Permissions: Permissions{Allow: []string{"Bash("}}}, "Bash(ls)")
	assert.ErrorContains(t, err, "malformed rule")
}

func TestSchema(t *testing.T) {
	out, err := Schema()
	require.NoError(t, err)

	schema := gjson.ParseBytes(out)
	assert.Equal(t, "object", schema.Get("type").String())
	assert.Equal(t, "array", schema.Get("properties.permissions.properties.allow.type").String())
	assert.Equal(t, "string", schema.Get("properties.permissions.properties.allow.items.type").String())
	assert.Contains(t, schema.Get("required").String(), "permissions")
}
