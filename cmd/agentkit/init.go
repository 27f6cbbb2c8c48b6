package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/agentkit/pkg/logger"
	"github.com/jingkaihe/agentkit/pkg/presenter"
	"github.com/jingkaihe/agentkit/pkg/scaffold"
	"github.com/jingkaihe/agentkit/pkg/workspace"
)

// InitConfig holds configuration for the init command
type InitConfig struct {
	Force  bool
	DryRun bool
}

// NewInitConfig creates a new InitConfig with default values
func NewInitConfig() *InitConfig {
	return &InitConfig{
		Force:  false,
		DryRun: false,
	}
}

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Scaffold an assistant workspace",
	Long: `Write the starter workspace into dir (default: current directory):
CLAUDE.md, README.md, .env.example, .mcp.json, the permissions settings,
an example agent, skill and command, and the launcher scripts.

Existing files are skipped unless --force is given. With --dry-run nothing
is written and a diff is shown for every file that differs.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := getInitConfigFromFlags(cmd)

		root := "."
		if len(args) == 1 {
			root = args[0]
		}
		root, err := filepath.Abs(root)
		if err != nil {
			presenter.Error(err, "Failed to resolve workspace directory")
			os.Exit(1)
		}
		layout := workspace.NewLayout(root, viper.GetString("workspace_dir"))

		presenter.Section("agentkit workspace setup")
		results, err := scaffold.Apply(ctx, layout, scaffold.Options{Force: config.Force, DryRun: config.DryRun})

		created, skipped := 0, 0
		for _, r := range results {
			rel, relErr := filepath.Rel(root, r.Path)
			if relErr != nil {
				rel = r.Path
			}
			switch r.Action {
			case scaffold.ActionCreate:
				created++
				presenter.Success(fmt.Sprintf("%s %s", verb(config.DryRun, "create", "created"), rel))
			case scaffold.ActionOverwrite:
				created++
				presenter.Success(fmt.Sprintf("%s %s", verb(config.DryRun, "overwrite", "overwrote"), rel))
			case scaffold.ActionSkip:
				skipped++
				presenter.Warning(fmt.Sprintf("skip %s (exists, use --force to overwrite)", rel))
			case scaffold.ActionUnchanged:
				presenter.Info(fmt.Sprintf("  unchanged %s", rel))
			}
			if config.DryRun && r.Diff != "" {
				fmt.Fprint(presenter.Default().Writer(), r.Diff)
			}
		}

		if err != nil {
			presenter.Error(err, "Failed to write workspace files")
			logger.G(ctx).WithError(err).WithField("root", root).Error("scaffold failed")
			os.Exit(1)
		}

		presenter.Separator()
		if config.DryRun {
			presenter.Info(fmt.Sprintf("Dry run: %d file(s) would be written, %d skipped", created, skipped))
			return
		}
		presenter.Info(fmt.Sprintf("%d file(s) written, %d skipped", created, skipped))
		presenter.Info("Next: copy .env.example to .env, then run 'agentkit lint'")
	},
}

func verb(dryRun bool, future, past string) string {
	if dryRun {
		return "would " + future
	}
	return past
}

func init() {
	defaults := NewInitConfig()
	initCmd.Flags().BoolP("force", "f", defaults.Force, "Overwrite existing files")
	initCmd.Flags().Bool("dry-run", defaults.DryRun, "Show what would be written without touching the disk")
}

func getInitConfigFromFlags(cmd *cobra.Command) *InitConfig {
	config := NewInitConfig()
	if force, err := cmd.Flags().GetBool("force"); err == nil {
		config.Force = force
	}
	if dryRun, err := cmd.Flags().GetBool("dry-run"); err == nil {
		config.DryRun = dryRun
	}
	return config
}
