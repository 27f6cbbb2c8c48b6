package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/agentkit/pkg/logger"
	"github.com/jingkaihe/agentkit/pkg/presenter"
	"github.com/jingkaihe/agentkit/pkg/workspace"
)

func init() {
	// Environment variables
	viper.SetEnvPrefix("AGENTKIT")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	viper.SetDefault("log_level", "warn")
	viper.SetDefault("log_format", "fmt")
	viper.SetDefault("workspace_dir", workspace.DefaultConfigDir)
	viper.SetDefault("env_file", ".env")

	// Config file support
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.agentkit")
	viper.AddConfigPath(".")

	// Load config file if it exists (ignore errors if it doesn't)
	_ = viper.ReadInConfig()
}

var rootCmd = &cobra.Command{
	Use:   "agentkit",
	Short: "Bootstrap and maintain an AI coding-assistant workspace",
	Long: `agentkit scaffolds agents, skills, commands and permissions for an AI
coding assistant, launches the assistant with the workspace env file loaded,
and wraps external security analyzers for MCP servers and skills.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := logger.Configure(viper.GetString("log_level"), viper.GetString("log_format")); err != nil {
			return err
		}
		cmd.SetContext(logger.WithLogger(cmd.Context(), logger.G(cmd.Context()).WithField("command", cmd.Name())))
		return nil
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
		os.Exit(1)
	},
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Add global flags
	rootCmd.PersistentFlags().String("log-level", viper.GetString("log_level"), "Log level (panic, fatal, error, warn, info, debug, trace)")
	rootCmd.PersistentFlags().String("log-format", viper.GetString("log_format"), "Log format (fmt, json)")
	rootCmd.PersistentFlags().StringP("workspace-dir", "w", viper.GetString("workspace_dir"), "Workspace config directory holding agents, skills, commands and settings")

	// Bind flags to viper
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("workspace_dir", rootCmd.PersistentFlags().Lookup("workspace-dir"))

	// Add subcommands
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(claudeCmd)
	rootCmd.AddCommand(copilotCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(envCmd)
	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(skillCmd)
	rootCmd.AddCommand(commandCmd)
	rootCmd.AddCommand(permissionsCmd)
	rootCmd.AddCommand(lintCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(analyzerCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		presenter.Error(err, "")
		os.Exit(1)
	}
}
