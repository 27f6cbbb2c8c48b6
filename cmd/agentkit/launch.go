package main

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/agentkit/pkg/envfile"
	"github.com/jingkaihe/agentkit/pkg/launcher"
	"github.com/jingkaihe/agentkit/pkg/presenter"
)

var claudeCmd = newHostCmd("claude", "Launch Claude Code with the workspace env file loaded")

var copilotCmd = newHostCmd("copilot", "Launch the GitHub Copilot CLI with the workspace env file loaded")

// newHostCmd builds a launcher command. Flags are not parsed so every
// argument reaches the host untouched.
func newHostCmd(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:                name + " [args...]",
		Short:              short,
		Long:               short + ". All arguments are passed through to the " + name + " binary.",
		DisableFlagParsing: true,
		Run: func(cmd *cobra.Command, args []string) {
			runHost(cmd, hostFromViper(name), args)
		},
	}
}

var execCmd = &cobra.Command{
	Use:   "exec <binary> [-- args...]",
	Short: "Run any binary with the workspace env file loaded",
	Long: `Run any binary with the workspace env file loaded.

Examples:
  agentkit exec aider -- --model sonnet
  agentkit exec env`,
	DisableFlagParsing: true,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 || args[0] == "--help" || args[0] == "-h" {
			cmd.Help()
			os.Exit(1)
		}
		rest := args[1:]
		if len(rest) > 0 && rest[0] == "--" {
			rest = rest[1:]
		}
		runHost(cmd, hostFromViper(args[0]), rest)
	},
}

func runHost(cmd *cobra.Command, host launcher.Host, args []string) {
	l := launcher.New(launcher.WithWarningHandler(presenter.Warning))
	code, err := l.Run(cmd.Context(), host, args)
	if err != nil {
		presenter.Error(err, fmt.Sprintf("Failed to launch %s", host.Name))
	}
	os.Exit(code)
}

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Show the variables the launchers will export",
	Long:  `Show the variables declared in the workspace env file. Values are masked unless --show is set.`,
	Run: func(cmd *cobra.Command, _ []string) {
		path, _ := cmd.Flags().GetString("file")
		if !cmd.Flags().Changed("file") {
			path = viper.GetString("env_file")
		}
		show, _ := cmd.Flags().GetBool("show")

		vars, err := envfile.Read(path)
		if envfile.IsNotFound(err) {
			presenter.Warning(fmt.Sprintf("%s file not found", path))
			return
		}
		if err != nil {
			presenter.Error(err, "Failed to read env file")
			os.Exit(1)
		}
		if len(vars) == 0 {
			presenter.Info(fmt.Sprintf("%s declares no variables", path))
			return
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tVALUE")
		fmt.Fprintln(tw, "---\t-----")
		for _, key := range slices.Sorted(maps.Keys(vars)) {
			value := vars[key]
			if !show {
				value = envfile.Mask(value)
			}
			fmt.Fprintf(tw, "%s\t%s\n", key, value)
		}
		if err := tw.Flush(); err != nil {
			presenter.Error(errors.Wrap(err, "failed to write output"), "")
			os.Exit(1)
		}
	},
}

func init() {
	envCmd.Flags().StringP("file", "f", envfile.DefaultPath, "Env file to read (defaults to env_file from config)")
	envCmd.Flags().Bool("show", false, "Print values unmasked")
}
