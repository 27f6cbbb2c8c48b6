package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/agentkit/pkg/mcpscan"
	"github.com/jingkaihe/agentkit/pkg/presenter"
	"github.com/jingkaihe/agentkit/pkg/scan"
	"github.com/jingkaihe/agentkit/pkg/skillscan"
)

var analyzerCmd = &cobra.Command{
	Use:   "analyzer",
	Short: "Inspect security analyzers",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var analyzerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List built-in and installed analyzers",
	Long: `List the built-in analyzers and the executables found in the analyzer
directories, with the targets each one supports.`,
	Run: func(cmd *cobra.Command, _ []string) {
		jsonOutput, _ := cmd.Flags().GetBool("json")

		discovery, err := analyzerDiscoveryFromViper()
		if err != nil {
			presenter.Error(err, "Failed to configure analyzer discovery")
			os.Exit(1)
		}
		registry, err := scan.LoadRegistry(cmd.Context(), discovery,
			skillscan.ManifestAnalyzer{},
			mcpscan.NewApprovalAnalyzer(nil),
		)
		if err != nil {
			presenter.Error(err, "Failed to discover analyzers")
			os.Exit(1)
		}

		type row struct {
			Name    string   `json:"name"`
			Targets []string `json:"targets"`
			Path    string   `json:"path"`
		}
		var rows []row
		for _, name := range registry.Names() {
			a, _ := registry.Get(name)
			r := row{Name: a.Name(), Path: "(built-in)"}
			for _, t := range []scan.Target{scan.TargetMCPTool, scan.TargetSkill} {
				if a.Supports(t) {
					r.Targets = append(r.Targets, string(t))
				}
			}
			if exec, ok := a.(*scan.ExecAnalyzer); ok {
				r.Path = exec.Path()
			}
			rows = append(rows, r)
		}

		if jsonOutput {
			printJSON(rows)
			return
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tTARGETS\tPATH")
		fmt.Fprintln(tw, "----\t-------\t----")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, strings.Join(r.Targets, ","), r.Path)
		}
		tw.Flush()

		presenter.Info(fmt.Sprintf("\nSearched: %s", strings.Join(discovery.Dirs(), ", ")))
	},
}

func init() {
	analyzerListCmd.Flags().Bool("json", false, "Output as JSON")
	analyzerCmd.AddCommand(analyzerListCmd)
}
