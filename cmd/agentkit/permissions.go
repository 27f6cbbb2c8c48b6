package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/agentkit/pkg/permissions"
	"github.com/jingkaihe/agentkit/pkg/presenter"
	"github.com/jingkaihe/agentkit/pkg/workspace"
)

var permissionsCmd = &cobra.Command{
	Use:     "permissions",
	Aliases: []string{"perms"},
	Short:   "Manage the tool permission rules",
	Long: `Inspect and edit the allow and deny rules in the workspace settings file.

A rule is a tool name such as "Read", or a tool with a specifier such as
"Bash(npm test:*)" or "Edit(src/**)". Deny rules take precedence.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var permissionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List allow and deny rules",
	Run: func(cmd *cobra.Command, _ []string) {
		path := settingsPath(cmd)
		settings, err := permissions.Load(path)
		if err != nil {
			presenter.Error(err, "Failed to load settings")
			os.Exit(1)
		}

		presenter.Section(fmt.Sprintf("Allow (%d)", len(settings.Permissions.Allow)))
		for _, rule := range settings.Permissions.Allow {
			fmt.Printf("  %s\n", rule)
		}
		fmt.Println()
		presenter.Section(fmt.Sprintf("Deny (%d)", len(settings.Permissions.Deny)))
		for _, rule := range settings.Permissions.Deny {
			fmt.Printf("  %s\n", rule)
		}
	},
}

var permissionsAddCmd = &cobra.Command{
	Use:   "add <rule>...",
	Short: "Add rules to the allow list (or deny list with --deny)",
	Long: `Add rules to the settings file, creating it if needed. Other keys in the
file are preserved.

Examples:
  agentkit permissions add "Bash(git status:*)" Read
  agentkit permissions add --deny "Read(./.env)"`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path, list := settingsPath(cmd), ruleList(cmd)
		added, err := permissions.Add(path, list, args...)
		if err != nil {
			presenter.Error(err, "Failed to add rules")
			os.Exit(1)
		}
		if len(added) == 0 {
			presenter.Info(fmt.Sprintf("All rules already present in %s list", list))
			return
		}
		for _, rule := range added {
			presenter.Success(fmt.Sprintf("Added %s rule %s", list, rule))
		}
	},
}

var permissionsRemoveCmd = &cobra.Command{
	Use:   "remove <rule>...",
	Short: "Remove rules from the allow list (or deny list with --deny)",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path, list := settingsPath(cmd), ruleList(cmd)
		removed, err := permissions.Remove(path, list, args...)
		if err != nil {
			presenter.Error(err, "Failed to remove rules")
			os.Exit(1)
		}
		if len(removed) == 0 {
			presenter.Warning(fmt.Sprintf("No matching rules in %s list", list))
			return
		}
		for _, rule := range removed {
			presenter.Success(fmt.Sprintf("Removed %s rule %s", list, rule))
		}
	},
}

var permissionsCheckCmd = &cobra.Command{
	Use:   "check <invocation>",
	Short: "Check whether a tool invocation is allowed",
	Long: `Resolve a tool invocation against the rules. Exits 1 unless it is allowed.

Examples:
  agentkit permissions check "Bash(git status --short)"
  agentkit permissions check "Edit(src/main.go)"
  agentkit permissions check mcp__github__create_issue`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		settings, err := permissions.Load(settingsPath(cmd))
		if err != nil {
			presenter.Error(err, "Failed to load settings")
			os.Exit(1)
		}
		decision, err := permissions.Check(settings, args[0])
		if err != nil {
			presenter.Error(err, "Failed to check invocation")
			os.Exit(1)
		}

		switch decision.Outcome {
		case permissions.Allowed:
			presenter.Success(fmt.Sprintf("%s is allowed by %s", args[0], decision.Rule))
		case permissions.Denied:
			presenter.Warning(fmt.Sprintf("%s is denied by %s", args[0], decision.Rule))
			os.Exit(1)
		default:
			presenter.Info(fmt.Sprintf("%s matches no rule, the assistant will ask", args[0]))
			os.Exit(1)
		}
	},
}

var permissionsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the settings file",
	Run: func(cmd *cobra.Command, _ []string) {
		path := settingsPath(cmd)
		raw, err := os.ReadFile(path)
		if err != nil {
			presenter.Error(err, "Failed to read settings file")
			os.Exit(1)
		}
		issues := permissions.Validate(path, raw)
		if len(issues) == 0 {
			presenter.Success(fmt.Sprintf("%s is valid", path))
			return
		}
		failed := false
		for _, issue := range issues {
			fmt.Println(issue.String())
			failed = failed || issue.Severity == workspace.SeverityError
		}
		if failed {
			os.Exit(1)
		}
	},
}

var permissionsSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the settings file",
	Run: func(_ *cobra.Command, _ []string) {
		schema, err := permissions.Schema()
		if err != nil {
			presenter.Error(err, "Failed to generate schema")
			os.Exit(1)
		}
		fmt.Println(string(schema))
	},
}

func init() {
	permissionsCmd.PersistentFlags().String("file", "", "Settings file (default: <workspace-dir>/settings.local.json)")
	permissionsAddCmd.Flags().Bool("deny", false, "Edit the deny list")
	permissionsRemoveCmd.Flags().Bool("deny", false, "Edit the deny list")

	permissionsCmd.AddCommand(permissionsListCmd)
	permissionsCmd.AddCommand(permissionsAddCmd)
	permissionsCmd.AddCommand(permissionsRemoveCmd)
	permissionsCmd.AddCommand(permissionsCheckCmd)
	permissionsCmd.AddCommand(permissionsValidateCmd)
	permissionsCmd.AddCommand(permissionsSchemaCmd)
}

func settingsPath(cmd *cobra.Command) string {
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		return path
	}
	return layoutFromViper().SettingsFile()
}

func ruleList(cmd *cobra.Command) permissions.List {
	if deny, _ := cmd.Flags().GetBool("deny"); deny {
		return permissions.Deny
	}
	return permissions.Allow
}
