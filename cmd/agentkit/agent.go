package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/agentkit/pkg/agents"
	"github.com/jingkaihe/agentkit/pkg/frontmatter"
	"github.com/jingkaihe/agentkit/pkg/presenter"
	"github.com/jingkaihe/agentkit/pkg/workspace"
)

// AgentNewConfig holds configuration for the agent new command
type AgentNewConfig struct {
	Description string
	Tools       string
	Model       string
	Color       string
	Prompt      string
	Global      bool
}

// NewAgentNewConfig creates a new AgentNewConfig with default values
func NewAgentNewConfig() *AgentNewConfig {
	return &AgentNewConfig{
		Model: "inherit",
	}
}

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Manage agent templates",
	Long:  `List, show and create agent templates in the workspace and user config directories.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var agentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all agents",
	Long:  `List all agents with their model and description. Repo-local agents shadow user agents of the same name.`,
	Run: func(cmd *cobra.Command, _ []string) {
		jsonOutput, _ := cmd.Flags().GetBool("json")

		processor, err := agents.NewProcessor(agents.WithDefaultDirs(layoutFromViper()))
		if err != nil {
			presenter.Error(err, "Failed to initialize agent processor")
			os.Exit(1)
		}
		all, err := processor.ListAgents(cmd.Context())
		if err != nil {
			presenter.Error(err, "Failed to list agents")
			os.Exit(1)
		}

		if jsonOutput {
			data := make([]map[string]any, 0, len(all))
			for _, a := range all {
				data = append(data, map[string]any{
					"name":        a.Metadata.Name,
					"description": a.Metadata.Description,
					"tools":       a.Metadata.Tools,
					"model":       a.Metadata.Model,
					"color":       a.Metadata.Color,
					"path":        a.Path,
				})
			}
			printJSON(data)
			return
		}

		if len(all) == 0 {
			presenter.Info("No agents found")
			return
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tMODEL\tDESCRIPTION")
		fmt.Fprintln(tw, "----\t-----\t-----------")
		for _, a := range all {
			model := a.Metadata.Model
			if model == "" {
				model = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", a.Metadata.Name, model, shorten(a.Metadata.Description, 60))
		}
		tw.Flush()
	},
}

var agentShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show an agent definition",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		processor, err := agents.NewProcessor(agents.WithDefaultDirs(layoutFromViper()))
		if err != nil {
			presenter.Error(err, "Failed to initialize agent processor")
			os.Exit(1)
		}
		agent, err := processor.LoadAgent(cmd.Context(), args[0])
		if err != nil {
			presenter.Error(err, "Agent not found")
			os.Exit(1)
		}

		md := agent.Metadata
		presenter.Section(md.Name)
		fmt.Printf("Path:        %s\n", agent.Path)
		fmt.Printf("Description: %s\n", md.Description)
		if len(md.Tools) > 0 {
			fmt.Printf("Tools:       %s\n", strings.Join(md.Tools, ", "))
		}
		if md.Model != "" {
			fmt.Printf("Model:       %s\n", md.Model)
		}
		if md.Color != "" {
			fmt.Printf("Color:       %s\n", md.Color)
		}
		fmt.Println()
		fmt.Println(agent.SystemPrompt)
		printIssues(agents.Validate(agent))
	},
}

var agentNewCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Create a new agent",
	Long: `Create a new agent file in the workspace agents directory.

Examples:
  agentkit agent new test-runner --description "Runs and fixes failing tests" --tools "Read, Bash"
  agentkit agent new planner --description "Plans large changes" --model opus -g`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := getAgentNewConfigFromFlags(cmd)

		dir := layoutFromViper().AgentsDir()
		if config.Global {
			home, err := workspace.HomeDir(layoutFromViper().ConfigDir)
			if err != nil {
				presenter.Error(err, "Failed to determine agents directory")
				os.Exit(1)
			}
			dir = filepath.Join(home, "agents")
		}

		prompt := config.Prompt
		if prompt == "" {
			prompt = fmt.Sprintf("You are %s. %s", args[0], config.Description)
		}
		agent := &agents.Agent{
			Metadata: agents.Metadata{
				Name:        args[0],
				Description: config.Description,
				Tools:       frontmatter.SplitList(config.Tools),
				Model:       config.Model,
				Color:       config.Color,
			},
			SystemPrompt: prompt,
		}

		path, err := agents.Create(dir, agent)
		if err != nil {
			presenter.Error(err, "Failed to create agent")
			os.Exit(1)
		}
		presenter.Success(fmt.Sprintf("Created agent '%s' at %s", args[0], path))
	},
}

func init() {
	agentListCmd.Flags().Bool("json", false, "Output as JSON")

	defaults := NewAgentNewConfig()
	agentNewCmd.Flags().StringP("description", "d", defaults.Description, "When the assistant should use this agent (required)")
	agentNewCmd.Flags().StringP("tools", "t", defaults.Tools, "Comma-separated tool names the agent may use")
	agentNewCmd.Flags().StringP("model", "m", defaults.Model, "Model alias ("+strings.Join(agents.ValidModels, ", ")+")")
	agentNewCmd.Flags().StringP("color", "c", defaults.Color, "Display color ("+strings.Join(agents.ValidColors, ", ")+")")
	agentNewCmd.Flags().StringP("prompt", "p", defaults.Prompt, "System prompt body")
	agentNewCmd.Flags().BoolP("global", "g", defaults.Global, "Create in the user config directory instead of the workspace")
	agentNewCmd.MarkFlagRequired("description")

	agentCmd.AddCommand(agentListCmd)
	agentCmd.AddCommand(agentShowCmd)
	agentCmd.AddCommand(agentNewCmd)
}

func getAgentNewConfigFromFlags(cmd *cobra.Command) *AgentNewConfig {
	config := NewAgentNewConfig()
	if description, err := cmd.Flags().GetString("description"); err == nil {
		config.Description = description
	}
	if tools, err := cmd.Flags().GetString("tools"); err == nil {
		config.Tools = tools
	}
	if model, err := cmd.Flags().GetString("model"); err == nil {
		config.Model = model
	}
	if color, err := cmd.Flags().GetString("color"); err == nil {
		config.Color = color
	}
	if prompt, err := cmd.Flags().GetString("prompt"); err == nil {
		config.Prompt = prompt
	}
	if global, err := cmd.Flags().GetBool("global"); err == nil {
		config.Global = global
	}
	return config
}

// shorten truncates s to n runes, marking the cut with "...".
func shorten(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func printJSON(v any) {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		presenter.Error(errors.Wrap(err, "failed to marshal JSON output"), "")
		os.Exit(1)
	}
	fmt.Println(string(output))
}

// printIssues lists validation issues under the definition being shown.
func printIssues(issues []workspace.Issue) {
	if len(issues) == 0 {
		return
	}
	fmt.Println()
	for _, issue := range issues {
		msg := issue.Message
		if issue.Field != "" {
			msg = issue.Field + ": " + msg
		}
		if issue.Severity == workspace.SeverityError {
			presenter.Error(errors.New(msg), "invalid")
			continue
		}
		presenter.Warning(msg)
	}
}
