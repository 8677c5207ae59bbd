package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "swampmonster",
		Short: "Cross-reference event sources and sinks in a C# codebase",
		Long: `Swampmonster finds every event in a C# codebase, classifies each
reference as a source (raises the event) or a sink (subscribes to it),
and renders a browsable HTML report linking the files together.

Structural events (event/EventHandler members) are analysed by default;
--agg switches to Prism EventAggregator Publish/Subscribe calls.`,
		SilenceUsage: true,
	}

	analyseCmd := &cobra.Command{
		Use:     "analyse <path>",
		Aliases: []string{"analyze"},
		Short:   "Analyse a codebase and write the cross-reference report",
		Args:    cobra.ExactArgs(1),
		RunE:    RunAnalyse,
	}
	analyseCmd.Flags().StringP("output", "o", "", "Report directory (default: <root>/"+DefaultOutputDir+")")
	analyseCmd.Flags().BoolP("agg", "a", false, "Analyse event aggregator Publish/Subscribe calls instead of declared events")
	analyseCmd.Flags().Int("concurrency", 0, "Maximum concurrent reference queries (default: GOMAXPROCS)")
	analyseCmd.Flags().StringSlice("handler-type", []string{}, "Additional delegate type names treated as event handlers")
	analyseCmd.Flags().String("db", "", "Also export the analysis into this SQLite database")
	analyseCmd.Flags().Bool("json", false, "Print machine-readable run summary")
	analyseCmd.Flags().Bool("watch", false, "Re-run the analysis whenever source files change")
	analyseCmd.Flags().Duration("debounce", defaultDebounce, "Quiet period before a watched change triggers a run")

	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search event names in a written report",
		Args:  cobra.MinimumNArgs(1),
		RunE:  RunSearch,
	}
	searchCmd.Flags().String("report", DefaultOutputDir, "Report directory written by analyse")
	searchCmd.Flags().String("db", "", "Query this SQLite export instead of the report index")
	searchCmd.Flags().Int("limit", 10, "Maximum number of matches to return")
	searchCmd.Flags().Bool("json", false, "Print machine-readable matches")

	statusCmd := &cobra.Command{
		Use:   "status [path]",
		Short: "Show source files changed since the report was written",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunStatus,
	}
	statusCmd.Flags().StringP("output", "o", "", "Report directory (default: <root>/"+DefaultOutputDir+")")
	statusCmd.Flags().Bool("json", false, "Print machine-readable status output")

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create .swampignore and .swampmonster.env in the current directory",
		RunE:  RunInit,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("swampmonster %s\n", version)
		},
	}

	rootCmd.AddCommand(
		analyseCmd,
		searchCmd,
		statusCmd,
		initCmd,
		versionCmd,
	)

	return rootCmd
}
