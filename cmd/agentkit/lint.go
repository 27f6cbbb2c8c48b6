package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/agentkit/pkg/lint"
	"github.com/jingkaihe/agentkit/pkg/presenter"
	"github.com/jingkaihe/agentkit/pkg/workspace"
)

// LintConfig holds configuration for the lint command
type LintConfig struct {
	Watch      bool
	JSON       bool
	IgnoreDirs []string
	Debounce   int
}

// NewLintConfig creates a new LintConfig with default values
func NewLintConfig() *LintConfig {
	defaults := lint.NewWatchConfig()
	return &LintConfig{
		Watch:      false,
		JSON:       false,
		IgnoreDirs: defaults.IgnoreDirs,
		Debounce:   int(defaults.Debounce / time.Millisecond),
	}
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate every workspace file",
	Long: `Validate agents, skills, commands, the permissions settings, .mcp.json and
the env file. Exits 1 when any error-level issue is found.

With --watch the workspace is linted again after every change.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		config := getLintConfigFromFlags(cmd)
		layout := layoutFromViper()

		if config.Watch {
			watchConfig := lint.WatchConfig{
				IgnoreDirs: config.IgnoreDirs,
				Debounce:   time.Duration(config.Debounce) * time.Millisecond,
			}
			presenter.Info(fmt.Sprintf("Watching %s for changes, press Ctrl-C to stop", layout.Root))
			err := lint.Watch(ctx, layout, watchConfig, func(report *lint.Report, err error) {
				presenter.Separator()
				presenter.Info(time.Now().Format(time.TimeOnly))
				printLintReport(os.Stdout, layout, report, err, config.JSON)
			})
			if err != nil {
				presenter.Error(err, "Watch failed")
				os.Exit(1)
			}
			return
		}

		report, err := lint.Run(ctx, layout)
		printLintReport(os.Stdout, layout, report, err, config.JSON)
		if err != nil || report.HasErrors() {
			os.Exit(1)
		}
	},
}

func init() {
	defaults := NewLintConfig()
	lintCmd.Flags().Bool("watch", defaults.Watch, "Re-run on every file change")
	lintCmd.Flags().Bool("json", defaults.JSON, "Output as JSON")
	lintCmd.Flags().StringSliceP("ignore", "i", defaults.IgnoreDirs, "Directories to ignore in watch mode")
	lintCmd.Flags().IntP("debounce", "d", defaults.Debounce, "Debounce time in milliseconds for file change events")
}

func getLintConfigFromFlags(cmd *cobra.Command) *LintConfig {
	config := NewLintConfig()
	if watch, err := cmd.Flags().GetBool("watch"); err == nil {
		config.Watch = watch
	}
	if jsonOutput, err := cmd.Flags().GetBool("json"); err == nil {
		config.JSON = jsonOutput
	}
	if ignoreDirs, err := cmd.Flags().GetStringSlice("ignore"); err == nil {
		config.IgnoreDirs = ignoreDirs
	}
	if debounce, err := cmd.Flags().GetInt("debounce"); err == nil {
		config.Debounce = debounce
	}
	return config
}

func printLintReport(w io.Writer, layout workspace.Layout, report *lint.Report, err error, jsonOutput bool) {
	if err != nil {
		presenter.Error(err, "Lint could not complete")
	}
	if report == nil {
		return
	}
	if jsonOutput {
		printJSON(report)
		return
	}

	paths, grouped := report.ByPath()
	for _, path := range paths {
		rel, relErr := filepath.Rel(layout.Root, path)
		if relErr != nil {
			rel = path
		}
		fmt.Fprintln(w, rel)
		for _, issue := range grouped[path] {
			field := ""
			if issue.Field != "" {
				field = issue.Field + ": "
			}
			fmt.Fprintf(w, "  %-7s %s%s\n", issue.Severity, field, issue.Message)
		}
	}

	errs, warnings := report.Counts()
	summary := fmt.Sprintf("%d file(s) checked, %d error(s), %d warning(s)", report.Files, errs, warnings)
	switch {
	case errs > 0:
		presenter.Error(errors.New(summary), "")
	case warnings > 0:
		presenter.Warning(summary)
	default:
		presenter.Success(summary)
	}
}
