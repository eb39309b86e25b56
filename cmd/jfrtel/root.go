package main

import "github.com/spf13/cobra"

// Command is the jfrtel root command.
var Command = &cobra.Command{
	Use:   "jfrtel",
	Short: "runtime diagnostic event telemetry pipeline",
	Long: `jfrtel ingests flight recorder records, summarizes high-volume events
per thread over fixed flush windows and maps the rest to telemetry events.`,
	SilenceUsage: true,
}
