package mcpscan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	raw := `{
  "mcpServers": {
    "github": {"type": "http", "url": "https://api.example.com/mcp", "headers": {"Authorization": "Bearer abc"}},
    "files": {"command": "npx", "args": ["-y", "@modelcontextprotocol/server-filesystem", "."], "env": {"DEBUG": "1"}},
    "legacy": {"type": "websocket", "url": "ws://localhost"}
  }
}`
	cfg, err := ParseConfig([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, []string{"files", "github", "legacy"}, cfg.Names())

	files := cfg.MCPServers["files"]
	assert.Equal(t, ServerTypeStdio, files.EffectiveType())
	assert.Equal(t, []string{"-y", "@modelcontextprotocol/server-filesystem", "."}, files.Args)
	assert.Equal(t, "1", files.Env["DEBUG"])
	assert.Equal(t, ServerTypeHTTP, cfg.MCPServers["github"].EffectiveType())
	assert.Equal(t, ServerType("websocket"), cfg.MCPServers["legacy"].EffectiveType())
}

func TestParseConfigErrors(t *testing.T) {
	_, err := ParseConfig([]byte(`{"servers": {}}`))
	assert.ErrorContains(t, err, "missing 'mcpServers' key")

	_, err = ParseConfig([]byte(`{"mcpServers":`))
	assert.ErrorContains(t, err, "invalid JSON")

	_, err = ParseConfig([]byte(`{"mcpServers": []}`))
	assert.ErrorContains(t, err, "invalid MCP config")

	cfg, err := ParseConfig([]byte(`{"mcpServers": null}`))
	require.NoError(t, err)
	assert.Empty(t, cfg.Names())
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, ConfigFileName))
	assert.ErrorContains(t, err, "config file not found")

	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(`{"mcpServers":{"a":{"command":"srv"}}}`), 0o644))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, cfg.Names())
}

func TestResolveConfigPath(t *testing.T) {
	root := t.TempDir()
	child := filepath.Join(root, "scripts")
	require.NoError(t, os.Mkdir(child, 0o755))

	assert.Equal(t, "/explicit/.mcp.json", ResolveConfigPath("/explicit/.mcp.json", child))
	assert.Equal(t, filepath.Join(root, ConfigFileName), ResolveConfigPath("", child))

	require.NoError(t, os.WriteFile(filepath.Join(child, ConfigFileName), []byte(`{}`), 0o644))
	assert.Equal(t, filepath.Join(child, ConfigFileName), ResolveConfigPath("", child))
}

func TestBearerToken(t *testing.T) {
	token, ok := BearerToken(map[string]string{"authorization": "Bearer s3cret"})
	assert.True(t, ok)
	assert.Equal(t, "s3cret", token)

	_, ok = BearerToken(map[string]string{"Authorization": "Basic abc"})
	assert.False(t, ok)

	_, ok = BearerToken(map[string]string{"Authorization": "Bearer "})
	assert.False(t, ok)

	_, ok = BearerToken(nil)
	assert.False(t, ok)
}

func TestRequestHeaders(t *testing.T) {
	headers := requestHeaders(map[string]string{"authorization": "Bearer abc", "X-Team": "core"})
	assert.Equal(t, map[string]string{"Authorization": "Bearer abc", "X-Team": "core"}, headers)

	headers = requestHeaders(map[string]string{"Authorization": "Basic abc"})
	assert.Equal(t, map[string]string{"Authorization": "Basic abc"}, headers)
}

func TestValidateConfig(t *testing.T) {
	raw := `{"mcpServers": {
  "ok": {"command": "srv"},
  "nocmd": {"type": "stdio"},
  "nourl": {"type": "sse"},
  "notype": {"url": "https://x"},
  "ws": {"type": "websocket"},
  "basic": {"type": "http", "url": "https://x", "headers": {"Authorization": "Basic abc"}}
}}`
	issues := ValidateConfig(".mcp.json", []byte(raw))

	var got []string
	for _, i := range issues {
		got = append(got, string(i.Severity)+":"+i.Field)
	}
	assert.Equal(t, []string{
		"warning:mcpServers.basic.headers.Authorization",
		"error:mcpServers.nocmd.command",
		"error:mcpServers.notype.type",
		"error:mcpServers.nourl.url",
		"warning:mcpServers.ws.type",
	}, got)

	issues = ValidateConfig(".mcp.json", []byte(`{}`))
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "missing 'mcpServers' key")
}
