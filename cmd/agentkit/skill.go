package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/agentkit/pkg/presenter"
	"github.com/jingkaihe/agentkit/pkg/skills"
)

var skillCmd = &cobra.Command{
	Use:   "skill",
	Short: "Inspect skill templates",
	Long:  `List and show skills from the workspace and user config directories.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var skillListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all skills",
	Long:  `List all valid skills with their names, categories, and descriptions.`,
	Run: func(cmd *cobra.Command, _ []string) {
		jsonOutput, _ := cmd.Flags().GetBool("json")

		discovery, err := skills.NewDiscovery(skills.WithDefaultDirs(layoutFromViper()))
		if err != nil {
			presenter.Error(err, "Failed to initialize skill discovery")
			os.Exit(1)
		}
		allSkills, err := discovery.DiscoverSkills(cmd.Context())
		if err != nil {
			presenter.Error(err, "Failed to discover skills")
			os.Exit(1)
		}
		names := skills.SortedNames(allSkills)

		if jsonOutput {
			data := make([]map[string]any, 0, len(names))
			for _, name := range names {
				s := allSkills[name]
				data = append(data, map[string]any{
					"name":        s.Name,
					"category":    s.Category,
					"description": s.Description,
					"usage":       s.Usage,
					"directory":   s.Directory,
				})
			}
			printJSON(data)
			return
		}

		if len(names) == 0 {
			presenter.Info("No skills found")
			return
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tCATEGORY\tDESCRIPTION")
		fmt.Fprintln(tw, "----\t--------\t-----------")
		for _, name := range names {
			s := allSkills[name]
			category := s.Category
			if category == "" {
				category = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Name, category, shorten(s.Description, 60))
		}
		tw.Flush()
	},
}

var skillShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a skill and its bundled files",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		discovery, err := skills.NewDiscovery(skills.WithDefaultDirs(layoutFromViper()))
		if err != nil {
			presenter.Error(err, "Failed to initialize skill discovery")
			os.Exit(1)
		}
		skill, err := discovery.GetSkill(cmd.Context(), args[0])
		if err != nil {
			presenter.Error(err, "Skill not found")
			os.Exit(1)
		}

		presenter.Section(skill.Name)
		fmt.Printf("Path:        %s\n", skill.Path)
		fmt.Printf("Description: %s\n", skill.Description)
		for _, field := range []struct{ label, value string }{
			{"Category:    ", skill.Category},
			{"Usage:       ", skill.Usage},
			{"Input:       ", skill.Input},
			{"Output:      ", skill.Output},
		} {
			if field.value != "" {
				fmt.Printf("%s%s\n", field.label, field.value)
			}
		}

		files, err := skill.Files()
		if err != nil {
			presenter.Error(err, "Failed to list bundled files")
			os.Exit(1)
		}
		if len(files) > 0 {
			fmt.Println("Files:")
			for _, f := range files {
				fmt.Printf("  %s\n", f)
			}
		}
		fmt.Println()
		fmt.Println(skill.Content)
		printIssues(skills.Validate(skill))
	},
}

func init() {
	skillListCmd.Flags().Bool("json", false, "Output as JSON")

	skillCmd.AddCommand(skillListCmd)
	skillCmd.AddCommand(skillShowCmd)
}
