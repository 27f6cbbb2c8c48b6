package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/agentkit/pkg/commands"
	"github.com/jingkaihe/agentkit/pkg/presenter"
)

var commandCmd = &cobra.Command{
	Use:   "command",
	Short: "Inspect slash command templates",
	Long:  `List slash commands and preview how a command renders with arguments.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var commandListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all slash commands",
	Run: func(cmd *cobra.Command, _ []string) {
		jsonOutput, _ := cmd.Flags().GetBool("json")

		processor, err := commands.NewProcessor(commands.WithDefaultDirs(layoutFromViper()))
		if err != nil {
			presenter.Error(err, "Failed to initialize command processor")
			os.Exit(1)
		}
		all, err := processor.ListCommands(cmd.Context())
		if err != nil {
			presenter.Error(err, "Failed to list commands")
			os.Exit(1)
		}

		if jsonOutput {
			data := make([]map[string]any, 0, len(all))
			for _, c := range all {
				data = append(data, map[string]any{
					"invocation":  "/" + c.Invocation,
					"description": c.Description,
					"path":        c.Path,
				})
			}
			printJSON(data)
			return
		}

		if len(all) == 0 {
			presenter.Info("No commands found")
			return
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "COMMAND\tDESCRIPTION")
		fmt.Fprintln(tw, "-------\t-----------")
		for _, c := range all {
			fmt.Fprintf(tw, "/%s\t%s\n", c.Invocation, shorten(c.Description, 70))
		}
		tw.Flush()
	},
}

var commandShowCmd = &cobra.Command{
	Use:   "show <name> [args...]",
	Short: "Show a slash command, rendered with the given arguments",
	Long: `Show a slash command. Arguments after the name replace $ARGUMENTS and $1..$9.

Examples:
  agentkit command show git:commit
  agentkit command show /review src/main.go`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		raw, _ := cmd.Flags().GetBool("raw")

		processor, err := commands.NewProcessor(commands.WithDefaultDirs(layoutFromViper()))
		if err != nil {
			presenter.Error(err, "Failed to initialize command processor")
			os.Exit(1)
		}
		c, err := processor.LoadCommand(cmd.Context(), args[0])
		if err != nil {
			presenter.Error(err, "Command not found")
			os.Exit(1)
		}

		presenter.Section("/" + c.Invocation)
		fmt.Printf("Path:        %s\n", c.Path)
		fmt.Printf("Description: %s\n", c.Description)
		fmt.Println()
		if raw {
			fmt.Println(c.Template)
		} else {
			fmt.Println(c.Render(args[1:]))
		}
		printIssues(commands.Validate(c))
	},
}

func init() {
	commandListCmd.Flags().Bool("json", false, "Output as JSON")
	commandShowCmd.Flags().Bool("raw", false, "Print the template without substituting arguments")

	commandCmd.AddCommand(commandListCmd)
	commandCmd.AddCommand(commandShowCmd)
}
