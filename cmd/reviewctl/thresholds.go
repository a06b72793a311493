package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/models"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/thresholds"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/pkg/apierror"
)

func thresholdsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "thresholds",
		Aliases: []string{"th"},
		Short:   "Inspect and tune the quality thresholds",
	}

	cmd.AddCommand(thresholdListCmd())
	cmd.AddCommand(thresholdUpdateCmd())
	cmd.AddCommand(thresholdResetCmd())
	cmd.AddCommand(thresholdHistoryCmd())
	return cmd
}

func thresholdListCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List thresholds, optionally for one category",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := read(cmd.Context(), func(ctx context.Context) ([]models.Threshold, error) {
				return app.Thresholds.List(ctx, category)
			})
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(list)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCATEGORY\tCURRENT\tDEFAULT\tRANGE\tUNIT")
			for _, t := range list {
				marker := ""
				if t.CurrentValue != t.DefaultValue {
					marker = " *"
				}
				fmt.Fprintf(w, "%s\t%s\t%g%s\t%g\t[%g, %g]\t%s\n",
					t.Name, t.Category, t.CurrentValue, marker, t.DefaultValue, t.MinValue, t.MaxValue, t.Unit)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "threshold category")
	return cmd
}

func thresholdUpdateCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "update <name> <value>",
		Short: "Set a threshold's current value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return apierror.Validation("value", "%q is not a number", args[1])
			}

			result, err := app.Thresholds.Update(cmd.Context(), thresholds.UpdateRequest{
				Name:     args[0],
				NewValue: value,
				Reason:   reason,
			})
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(result)
			}
			fmt.Printf("%s: %g -> %g\n", args[0], result.OldValue, result.NewValue)
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "reason recorded in the history")
	return cmd
}

func thresholdResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <name>...",
		Short: "Restore thresholds to their defaults, one call per name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := app.Thresholds.ResetMany(cmd.Context(), args, "")

			var failed error
			for _, r := range results {
				if r.Err != nil {
					fmt.Fprintf(os.Stderr, "%s: %v\n", r.Name, r.Err)
					failed = r.Err
					continue
				}
				if !jsonOutput {
					fmt.Printf("%s: reset to %g\n", r.Name, r.Threshold.CurrentValue)
				}
			}
			if jsonOutput {
				if err := printJSON(results); err != nil {
					return err
				}
			}
			return failed
		},
	}
}

func thresholdHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <name>",
		Short: "Show a threshold's change history, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome := app.Thresholds.History(cmd.Context(), args[0])
			fallbackNote(outcome.IsFallback(), outcome.Cause)

			entries := outcome.Value
			models.SortHistoryNewestFirst(entries)
			if jsonOutput {
				return printJSON(entries)
			}
			if len(entries) == 0 {
				fmt.Println("No changes recorded.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tOLD\tNEW\tBY\tREASON")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%g\t%g\t%s\t%s\n", e.Timestamp.Format(time.RFC3339), e.OldValue, e.NewValue, e.ChangedBy, e.Reason)
			}
			return w.Flush()
		},
	}
}
