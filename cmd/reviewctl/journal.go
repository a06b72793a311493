package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var errJournalDisabled = errors.New("the call journal is disabled; set journal.enabled")

func journalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the local journal of backend calls",
	}

	var limit int
	recent := &cobra.Command{
		Use:   "recent",
		Short: "Show the most recent backend calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Journal == nil {
				return errJournalDisabled
			}
			calls, err := app.Journal.RecentCalls(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(calls)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tMETHOD\tENDPOINT\tSTATUS\tOUTCOME\tLATENCY")
			for _, c := range calls {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
					c.At.Format(time.RFC3339), c.Method, c.Endpoint, c.StatusCode, c.Outcome, c.Duration)
			}
			return w.Flush()
		},
	}
	recent.Flags().IntVarP(&limit, "limit", "n", 20, "number of calls to show")

	var since time.Duration
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Aggregate calls per route",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Journal == nil {
				return errJournalDisabled
			}
			rows, err := app.Journal.Stats(cmd.Context(), time.Now().Add(-since))
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(rows)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			fmt.Fprintln(w, "METHOD\tROUTE\tCALLS\tFAILED\tUNREACHABLE\tAVG MS")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%.1f\n", r.Method, r.Route, r.Calls, r.Failures, r.Unreachable, r.AvgLatencyMS)
			}
			return w.Flush()
		},
	}
	stats.Flags().DurationVar(&since, "since", 24*time.Hour, "look-back window")

	var olderThan time.Duration
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete journaled calls older than a cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Journal == nil {
				return errJournalDisabled
			}
			n, err := app.Journal.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Printf("pruned %d calls\n", n)
			return nil
		},
	}
	prune.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "age cutoff")

	cmd.AddCommand(recent, stats, prune)
	return cmd
}
