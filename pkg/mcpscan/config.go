// Package mcpscan connects to the MCP servers declared in a workspace's
// .mcp.json, enumerates their tools and hands each tool to the selected
// analyzers.
package mcpscan

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/jingkaihe/agentkit/pkg/workspace"
)

// ConfigFileName is the MCP configuration file at a workspace root.
const ConfigFileName = ".mcp.json"

// ServerType is the transport of an MCP server.
type ServerType string

const (
	ServerTypeStdio ServerType = "stdio"
	ServerTypeHTTP  ServerType = "http"
	ServerTypeSSE   ServerType = "sse"
)

// Server is a single entry under mcpServers.
type Server struct {
	Type    ServerType        `json:"type,omitempty"`
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Config is the parsed .mcp.json.
type Config struct {
	MCPServers map[string]Server `json:"mcpServers"`
}

// EffectiveType returns the declared type, or stdio for entries that only
// declare a command.
func (s Server) EffectiveType() ServerType {
	if s.Type == "" && s.Command != "" {
		return ServerTypeStdio
	}
	return s.Type
}

// Names returns the server names in sorted order.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.MCPServers))
	for name := range c.MCPServers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseConfig decodes raw .mcp.json content. A missing mcpServers key is an
// error.
func ParseConfig(raw []byte) (*Config, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errors.New("invalid JSON in config file")
	}
	if !gjson.GetBytes(raw, "mcpServers").Exists() {
		return nil, errors.New("invalid MCP config: missing 'mcpServers' key")
	}

	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrap(err, "invalid MCP config")
	}
	if cfg.MCPServers == nil {
		cfg.MCPServers = map[string]Server{}
	}
	return &cfg, nil
}

// LoadConfig reads the MCP configuration at path.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Errorf("config file not found: %s", path)
		}
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}
	cfg, err := ParseConfig(raw)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return cfg, nil
}

// ResolveConfigPath returns explicit when set, otherwise .mcp.json in cwd,
// falling back to the parent of cwd when cwd has none.
func ResolveConfigPath(explicit, cwd string) string {
	if explicit != "" {
		return explicit
	}
	candidate := filepath.Join(cwd, ConfigFileName)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return filepath.Join(filepath.Dir(cwd), ConfigFileName)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. Header names match case-insensitively.
func BearerToken(headers map[string]string) (string, bool) {
	for k, v := range headers {
		if !strings.EqualFold(k, "Authorization") {
			continue
		}
		if token, ok := strings.CutPrefix(v, "Bearer "); ok && token != "" {
			return token, true
		}
	}
	return "", false
}

// ValidateConfig reports problems in raw .mcp.json content without
// connecting to anything.
func ValidateConfig(path string, raw []byte) []workspace.Issue {
	cfg, err := ParseConfig(raw)
	if err != nil {
		return []workspace.Issue{workspace.Errorf(path, "", "%s", err.Error())}
	}

	var issues []workspace.Issue
	for _, name := range cfg.Names() {
		server := cfg.MCPServers[name]
		field := "mcpServers." + name
		switch server.EffectiveType() {
		case ServerTypeStdio:
			if server.Command == "" {
				issues = append(issues, workspace.Errorf(path, field+".command", "command is required for stdio server"))
			}
		case ServerTypeHTTP, ServerTypeSSE:
			if server.URL == "" {
				issues = append(issues, workspace.Errorf(path, field+".url", "url is required for %s server", server.Type))
			}
		case "":
			issues = append(issues, workspace.Errorf(path, field+".type", "type is required when no command is set"))
		default:
			issues = append(issues, workspace.Warnf(path, field+".type", "unsupported server type %q, it will be skipped by scans", server.Type))
		}
		for k, v := range server.Headers {
			if strings.EqualFold(k, "Authorization") && !strings.HasPrefix(v, "Bearer ") && !strings.HasPrefix(v, "${") {
				issues = append(issues, workspace.Warnf(path, field+".headers."+k, "authorization header is not a bearer token"))
			}
		}
	}
	return issues
}
