package main

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jingkaihe/agentkit/pkg/launcher"
	"github.com/jingkaihe/agentkit/pkg/mcpscan"
	"github.com/jingkaihe/agentkit/pkg/scan"
	"github.com/jingkaihe/agentkit/pkg/workspace"
)

// envKeyReplacer maps nested keys such as scan.mcp.concurrency to
// AGENTKIT_SCAN_MCP_CONCURRENCY.
var envKeyReplacer = strings.NewReplacer(".", "_", "-", "_")

// layoutFromViper resolves the workspace rooted at the current directory.
// Its env files are the ones the launchers read: env_file and any
// hosts.<name>.env_file override.
func layoutFromViper() workspace.Layout {
	root, err := os.Getwd()
	if err != nil {
		root = "."
	}
	layout := workspace.NewLayout(root, viper.GetString("workspace_dir"))
	layout.EnvFiles = []string{viper.GetString("env_file")}
	for _, name := range launcher.HostNames() {
		layout.EnvFiles = append(layout.EnvFiles, hostFromViper(name).EnvFile)
	}
	return layout
}

// hostFromViper returns the built-in host definition with any
// hosts.<name>.binary and hosts.<name>.env_file overrides applied.
func hostFromViper(name string) launcher.Host {
	host, ok := launcher.BuiltinHost(name)
	if !ok {
		host = launcher.Host{Name: name, Binary: name, EnvFile: viper.GetString("env_file")}
	}
	if binary := viper.GetString("hosts." + name + ".binary"); binary != "" {
		host.Binary = binary
	}
	if envFile := viper.GetString("hosts." + name + ".env_file"); envFile != "" {
		host.EnvFile = envFile
	} else if envFile := viper.GetString("env_file"); envFile != "" {
		host.EnvFile = envFile
	}
	return host
}

// mcpServerTimeoutFromViper resolves the per-server MCP timeout from
// scan.mcp.timeout, falling back to scan.timeout.
func mcpServerTimeoutFromViper() time.Duration {
	if timeout := viper.GetDuration("scan.mcp.timeout"); timeout > 0 {
		return timeout
	}
	if timeout := viper.GetDuration("scan.timeout"); timeout > 0 {
		return timeout
	}
	return mcpscan.DefaultServerTimeout
}

// analyzerDiscoveryFromViper builds the analyzer discovery from
// analyzers.dirs and scan.timeout, passing extra env to every analyzer.
func analyzerDiscoveryFromViper(env ...string) (*scan.Discovery, error) {
	opts := []scan.DiscoveryOption{scan.WithDefaultDirs()}
	if dirs := viper.GetStringSlice("analyzers.dirs"); len(dirs) > 0 {
		opts = append(opts, scan.WithAnalyzerDirs(dirs...))
	}
	if timeout := viper.GetDuration("scan.timeout"); timeout > 0 {
		opts = append(opts, scan.WithTimeout(timeout))
	}
	if len(env) > 0 {
		opts = append(opts, scan.WithEnv(env...))
	}
	return scan.NewDiscovery(opts...)
}
