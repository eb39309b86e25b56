package main

import (
	"fmt"
	"io"
	"strconv"

	coreagg "github.com/aevon-lab/jfrtel/internal/core/aggregation"
	"github.com/aevon-lab/jfrtel/internal/mapper"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func init() {
	Command.AddCommand(&cobra.Command{
		Use:   "inventory",
		Short: "list built-in event mappers and summary rules.",
		Long:  `list built-in event mappers and summary rules.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := mapper.NewSet(mapper.Builtins()...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "mappers:")
			renderMappers(out, set.All())
			fmt.Fprintln(out, "summary rules:")
			renderRules(out, coreagg.BuiltinRules())
			return nil
		},
	})
}

func renderMappers(w io.Writer, mappers []mapper.Mapper) {
	tWriter := tablewriter.NewWriter(w)
	tWriter.SetHeader([]string{"event", "type", "polling interval", "since"})
	tWriter.SetAutoFormatHeaders(false)
	tWriter.SetAutoWrapText(false)
	for _, m := range mappers {
		interval := "-"
		if m.Polled() {
			interval = m.PollingInterval.String()
		}
		tWriter.Append([]string{
			m.EventName,
			m.EventType,
			interval,
			strconv.Itoa(m.MinRuntimeVersion()),
		})
	}
	tWriter.Render()
}

func renderRules(w io.Writer, rules []coreagg.SummaryRule) {
	tWriter := tablewriter.NewWriter(w)
	tWriter.SetHeader([]string{"name", "event", "field", "group by", "enabled"})
	tWriter.SetAutoFormatHeaders(false)
	tWriter.SetAutoWrapText(false)
	for _, r := range rules {
		groupBy := r.GroupAttribute
		if groupBy == "" {
			groupBy = "-"
		}
		tWriter.Append([]string{
			r.Name,
			r.SourceEvent,
			r.Field,
			groupBy,
			strconv.FormatBool(r.Enabled),
		})
	}
	tWriter.Render()
}
