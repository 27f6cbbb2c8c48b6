package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/agentkit/pkg/logger"
	"github.com/jingkaihe/agentkit/pkg/mcpscan"
	"github.com/jingkaihe/agentkit/pkg/permissions"
	"github.com/jingkaihe/agentkit/pkg/presenter"
	"github.com/jingkaihe/agentkit/pkg/scan"
	"github.com/jingkaihe/agentkit/pkg/skillscan"
)

// ScanMCPConfig holds configuration for the scan mcp command
type ScanMCPConfig struct {
	Config         string
	Analyzers      string
	Output         string
	APIKey         string
	LLMAPIKey      string
	FailOnFindings bool
}

// NewScanMCPConfig creates a new ScanMCPConfig with default values
func NewScanMCPConfig() *ScanMCPConfig {
	return &ScanMCPConfig{
		Analyzers: "yara",
		Output:    mcpscan.DefaultOutput,
	}
}

// ScanSkillsConfig holds configuration for the scan skills command
type ScanSkillsConfig struct {
	SkillsDir      string
	Recursive      bool
	UseBehavioral  bool
	UseLLM         bool
	Analyzers      string
	Format         string
	Output         string
	FailOnFindings bool
}

// NewScanSkillsConfig creates a new ScanSkillsConfig with default values
func NewScanSkillsConfig() *ScanSkillsConfig {
	return &ScanSkillsConfig{
		Recursive: true,
		Format:    string(skillscan.FormatSummary),
	}
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan MCP servers and skills with external analyzers",
	Long: `Run the installed analyzers against the tools of every configured MCP
server, or against every skill in the workspace. See 'agentkit analyzer list'.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var scanMCPCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Scan the tools of every MCP server in .mcp.json",
	Long: `Connect to every server in the MCP configuration, list its tools and run the
selected analyzers on each one. stdio, http and sse servers are supported;
other types are skipped. Results are saved as JSON.

Examples:
  agentkit scan mcp
  agentkit scan mcp --analyzers yara,llm --llm-api-key $KEY
  agentkit scan mcp --config ../.mcp.json --output reports/mcp.json`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		config := getScanMCPConfigFromFlags(cmd)

		cwd, err := os.Getwd()
		if err != nil {
			presenter.Error(err, "Failed to get working directory")
			os.Exit(1)
		}
		configPath := mcpscan.ResolveConfigPath(config.Config, cwd)
		mcpConfig, err := mcpscan.LoadConfig(configPath)
		if err != nil {
			presenter.Error(err, "")
			os.Exit(1)
		}

		var env []string
		if config.APIKey != "" {
			env = append(env, scan.APIKeyEnv+"="+config.APIKey)
		}
		if config.LLMAPIKey != "" {
			env = append(env, scan.LLMAPIKeyEnv+"="+config.LLMAPIKey)
		}
		discovery, err := analyzerDiscoveryFromViper(env...)
		if err != nil {
			presenter.Error(err, "Failed to configure analyzer discovery")
			os.Exit(1)
		}

		var builtins []scan.Analyzer
		if settings, err := permissions.Load(layoutFromViper().SettingsFile()); err == nil {
			builtins = append(builtins, mcpscan.NewApprovalAnalyzer(settings))
		} else {
			logger.G(ctx).WithError(err).Debug("permissions analyzer unavailable")
		}
		registry, err := scan.LoadRegistry(ctx, discovery, builtins...)
		if err != nil {
			presenter.Error(err, "Failed to discover analyzers")
			os.Exit(1)
		}
		analyzers, warnings, err := registry.Select(scan.SplitNames(config.Analyzers), scan.TargetMCPTool)
		for _, w := range warnings {
			presenter.Warning(w)
		}
		if err != nil {
			presenter.Error(err, "")
			os.Exit(1)
		}

		presenter.Banner("🔒 MCP SERVER SECURITY SCANNER")
		presenter.Info(fmt.Sprintf("\nConfiguration: %s", configPath))
		presenter.Info(fmt.Sprintf("Analyzers: %s", strings.Join(analyzerNames(analyzers), ", ")))
		presenter.Info(fmt.Sprintf("Servers to scan: %d", len(mcpConfig.MCPServers)))
		presenter.Info(strings.Repeat("=", 80))

		scanner := mcpscan.NewScanner(analyzers,
			mcpscan.WithConcurrency(viper.GetInt("scan.mcp.concurrency")),
			mcpscan.WithServerTimeout(mcpServerTimeoutFromViper()),
			mcpscan.WithProgress(presenter.Default().Writer()),
		)
		report, err := scanner.Scan(ctx, mcpConfig, configPath)
		if err != nil {
			presenter.Warning("Scan cancelled by user")
			os.Exit(1)
		}

		report.PrintSummary(presenter.Default().Writer())
		if err := report.Save(config.Output); err != nil {
			presenter.Error(err, "Failed to save results")
			os.Exit(1)
		}
		presenter.Info(fmt.Sprintf("\n💾 Results saved to: %s", config.Output))

		if config.FailOnFindings && report.Summary.UnsafeTools > 0 {
			presenter.Error(errors.Errorf("%d unsafe tool(s) detected", report.Summary.UnsafeTools), "SCAN FAILED")
			os.Exit(1)
		}
		presenter.Banner("✅ Scan completed successfully!")
	},
}

var scanSkillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "Scan skills for security issues",
	Long: `Scan every skill under the skills directory. The built-in manifest analyzer
always runs; --use-behavioral, --use-llm and --analyzers add external ones.

Examples:
  agentkit scan skills
  agentkit scan skills --use-behavioral --format markdown --output reports/skills
  agentkit scan skills --format sarif --fail-on-findings`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		config := getScanSkillsConfigFromFlags(cmd)

		format, err := skillscan.ParseFormat(config.Format)
		if err != nil {
			presenter.Error(err, "")
			os.Exit(1)
		}
		skillsDir := config.SkillsDir
		if skillsDir == "" {
			skillsDir = layoutFromViper().SkillsDir()
		}
		if _, err := os.Stat(skillsDir); err != nil {
			presenter.Error(errors.Errorf("skills directory not found: %s", skillsDir), "")
			os.Exit(1)
		}

		discovery, err := analyzerDiscoveryFromViper()
		if err != nil {
			presenter.Error(err, "Failed to configure analyzer discovery")
			os.Exit(1)
		}
		registry, err := scan.LoadRegistry(ctx, discovery, skillscan.ManifestAnalyzer{})
		if err != nil {
			presenter.Error(err, "Failed to discover analyzers")
			os.Exit(1)
		}
		analyzers, warnings := skillscan.SelectAnalyzers(registry, skillscan.Selection{
			UseBehavioral: config.UseBehavioral,
			UseLLM:        config.UseLLM,
			Analyzers:     scan.SplitNames(config.Analyzers),
		}, os.Getenv)
		for _, w := range warnings {
			presenter.Warning(w)
		}

		presenter.Banner("🔒 SKILLS SECURITY SCANNER")
		presenter.Info(fmt.Sprintf("📁 Skills Directory: %s", skillsDir))
		presenter.Info(fmt.Sprintf("🔍 Recursive Scan: %t", config.Recursive))
		presenter.Info(fmt.Sprintf("🔬 Analyzers: %s\n", strings.Join(analyzerNames(analyzers), ", ")))
		presenter.Info("🚀 Starting scan...\n")

		scanner := skillscan.NewScanner(analyzers)
		report, err := scanner.ScanDirectory(ctx, skillsDir, config.Recursive)
		if err != nil {
			presenter.Error(err, "Error during scan")
			os.Exit(1)
		}
		report.PrintResults(presenter.Default().Writer())

		written, err := report.Write(format, config.Output, report.SkillsDir, time.Now())
		for _, path := range written {
			presenter.Success(fmt.Sprintf("Report saved to: %s", path))
		}
		if err != nil {
			presenter.Error(err, "Failed to save report")
			os.Exit(1)
		}

		if config.FailOnFindings && report.HasCriticalOrHigh() {
			presenter.Error(errors.New("critical or high severity findings detected"), "SCAN FAILED")
			os.Exit(1)
		}
		presenter.Success("Scan completed successfully")
	},
}

func init() {
	mcpDefaults := NewScanMCPConfig()
	scanMCPCmd.Flags().String("config", mcpDefaults.Config, "Path to MCP configuration file (default: .mcp.json in current or parent directory)")
	scanMCPCmd.Flags().String("analyzers", mcpDefaults.Analyzers, "Comma-separated list of analyzers to use")
	scanMCPCmd.Flags().StringP("output", "o", mcpDefaults.Output, "Path to save JSON results")
	scanMCPCmd.Flags().String("api-key", mcpDefaults.APIKey, "API key forwarded to analyzers as "+scan.APIKeyEnv)
	scanMCPCmd.Flags().String("llm-api-key", mcpDefaults.LLMAPIKey, "LLM provider API key forwarded to analyzers as "+scan.LLMAPIKeyEnv)
	scanMCPCmd.Flags().Bool("fail-on-findings", mcpDefaults.FailOnFindings, "Exit with code 1 if any tool is unsafe")
	scanMCPCmd.Flags().Int("concurrency", mcpscan.DefaultConcurrency, "Number of servers scanned in parallel")
	viper.BindPFlag("scan.mcp.concurrency", scanMCPCmd.Flags().Lookup("concurrency"))
	scanMCPCmd.Flags().Duration("timeout", 0, "Per-server connect and tools/list timeout (default: scan.timeout, then "+mcpscan.DefaultServerTimeout.String()+")")
	viper.BindPFlag("scan.mcp.timeout", scanMCPCmd.Flags().Lookup("timeout"))

	skillsDefaults := NewScanSkillsConfig()
	scanSkillsCmd.Flags().String("skills-dir", skillsDefaults.SkillsDir, "Path to the skills directory (default: <workspace-dir>/skills)")
	scanSkillsCmd.Flags().Bool("recursive", skillsDefaults.Recursive, "Scan skills recursively")
	scanSkillsCmd.Flags().Bool("use-behavioral", skillsDefaults.UseBehavioral, "Enable the external behavioral analyzer")
	scanSkillsCmd.Flags().Bool("use-llm", skillsDefaults.UseLLM, "Enable the external llm analyzer (requires "+skillscan.LLMKeyEnv+")")
	scanSkillsCmd.Flags().String("analyzers", skillsDefaults.Analyzers, "Comma-separated list of additional analyzers")
	scanSkillsCmd.Flags().String("format", skillsDefaults.Format, "Output format ("+formatNames()+")")
	scanSkillsCmd.Flags().StringP("output", "o", skillsDefaults.Output, "Output file path (auto-generated if not specified)")
	scanSkillsCmd.Flags().Bool("fail-on-findings", skillsDefaults.FailOnFindings, "Exit with code 1 if CRITICAL or HIGH findings are found")

	scanCmd.AddCommand(scanMCPCmd)
	scanCmd.AddCommand(scanSkillsCmd)
}

func getScanMCPConfigFromFlags(cmd *cobra.Command) *ScanMCPConfig {
	config := NewScanMCPConfig()
	if path, err := cmd.Flags().GetString("config"); err == nil {
		config.Config = path
	}
	if analyzers, err := cmd.Flags().GetString("analyzers"); err == nil {
		config.Analyzers = analyzers
	}
	if output, err := cmd.Flags().GetString("output"); err == nil {
		config.Output = output
	}
	if apiKey, err := cmd.Flags().GetString("api-key"); err == nil {
		config.APIKey = apiKey
	}
	if llmAPIKey, err := cmd.Flags().GetString("llm-api-key"); err == nil {
		config.LLMAPIKey = llmAPIKey
	}
	if fail, err := cmd.Flags().GetBool("fail-on-findings"); err == nil {
		config.FailOnFindings = fail
	}
	return config
}

func getScanSkillsConfigFromFlags(cmd *cobra.Command) *ScanSkillsConfig {
	config := NewScanSkillsConfig()
	if dir, err := cmd.Flags().GetString("skills-dir"); err == nil {
		config.SkillsDir = dir
	}
	if recursive, err := cmd.Flags().GetBool("recursive"); err == nil {
		config.Recursive = recursive
	}
	if useBehavioral, err := cmd.Flags().GetBool("use-behavioral"); err == nil {
		config.UseBehavioral = useBehavioral
	}
	if useLLM, err := cmd.Flags().GetBool("use-llm"); err == nil {
		config.UseLLM = useLLM
	}
	if analyzers, err := cmd.Flags().GetString("analyzers"); err == nil {
		config.Analyzers = analyzers
	}
	if format, err := cmd.Flags().GetString("format"); err == nil {
		config.Format = format
	}
	if output, err := cmd.Flags().GetString("output"); err == nil {
		config.Output = output
	}
	if fail, err := cmd.Flags().GetBool("fail-on-findings"); err == nil {
		config.FailOnFindings = fail
	}
	return config
}

func analyzerNames(analyzers []scan.Analyzer) []string {
	names := make([]string, 0, len(analyzers))
	for _, a := range analyzers {
		names = append(names, a.Name())
	}
	return names
}

func formatNames() string {
	names := make([]string, 0, len(skillscan.Formats))
	for _, f := range skillscan.Formats {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}
