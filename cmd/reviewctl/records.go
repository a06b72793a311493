package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/models"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/records"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/pkg/apierror"
)

func listCmd() *cobra.Command {
	var (
		filter             models.Filter
		page               models.Pagination
		minScore, maxScore float64
		from, to           string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records matching the filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("min-score") || cmd.Flags().Changed("max-score") {
				filter.QualityScore = &models.ScoreRange{Min: minScore, Max: maxScore}
			}
			var err error
			if filter.DateFrom, err = parseDate("from", from); err != nil {
				return err
			}
			if filter.DateTo, err = parseDate("to", to); err != nil {
				return err
			}

			result, err := read(cmd.Context(), func(ctx context.Context) (models.RecordPage, error) {
				return app.Records.List(ctx, filter, page)
			})
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(result)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tPRIORITY\tSCORE\tCONNECTOR\tCOMPANY\tTEXT")
			for _, r := range result.Data {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\t%s\t%s\t%s\n",
					r.ID, r.Status, r.Priority, r.QualityScore, r.SourceConnector, r.CompanyName, truncate(r.Text, 48))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			p := result.Pagination
			fmt.Printf("page %d of %d (%d records)\n", p.Page, p.TotalPages, p.Total)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&filter.Companies, "company", nil, "company id or name")
	f.StringSliceVar(&filter.Connectors, "connector", nil, "source connector")
	f.StringSliceVar(&filter.Statuses, "status", nil, "record status")
	f.StringSliceVar(&filter.Priorities, "priority", nil, "review priority")
	f.StringSliceVar(&filter.IssueTypes, "issue-type", nil, "issue type")
	f.StringSliceVar(&filter.Tags, "tag", nil, "tag")
	f.StringSliceVar(&filter.Departments, "department", nil, "department")
	f.StringSliceVar(&filter.Authors, "author", nil, "author")
	f.Float64Var(&minScore, "min-score", 0, "minimum quality score")
	f.Float64Var(&maxScore, "max-score", 100, "maximum quality score")
	f.StringVar(&filter.Search, "search", "", "free-text search")
	f.StringVar(&from, "from", "", "created on or after (YYYY-MM-DD or RFC3339)")
	f.StringVar(&to, "to", "", "created on or before (YYYY-MM-DD or RFC3339)")
	f.IntVar(&page.Page, "page", 1, "page number")
	f.IntVar(&page.PageSize, "page-size", 20, "records per page")
	f.StringVar(&page.SortBy, "sort-by", "createdAt", "sort field")
	f.StringVar((*string)(&page.SortOrder), "sort-order", "desc", "asc or desc")
	return cmd
}

func actionCmd(action, short string) *cobra.Command {
	var opts records.ActionOptions
	var current string

	cmd := &cobra.Command{
		Use:   action + " <record-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Current = models.Status(current)

			var result *records.Result
			var err error
			switch models.Action(action) {
			case models.ActionApprove:
				result, err = app.Records.Approve(cmd.Context(), args[0], opts)
			case models.ActionFlag:
				result, err = app.Records.Flag(cmd.Context(), args[0], opts)
			case models.ActionReject:
				result, err = app.Records.Reject(cmd.Context(), args[0], opts)
			case models.ActionOverride:
				result, err = app.Records.Override(cmd.Context(), args[0], opts)
			}
			if err != nil {
				return err
			}
			return printResult(result)
		},
	}

	cmd.Flags().StringVar(&opts.Reason, "reason", "", "reason recorded in the audit trail")
	cmd.Flags().StringVar(&current, "current", "", "status the record is known to be in; enables a local transition check")
	return cmd
}

func contentCmd(action, short string) *cobra.Command {
	var change records.ContentChange
	var contentFile, current string

	cmd := &cobra.Command{
		Use:   action + " <record-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if contentFile != "" {
				data, err := os.ReadFile(contentFile)
				if err != nil {
					return fmt.Errorf("failed to read content file: %w", err)
				}
				change.Content = string(data)
			}
			change.Current = models.Status(current)

			var result *records.Result
			var err error
			if action == "reprocess" {
				result, err = app.Records.Reprocess(cmd.Context(), args[0], change)
			} else {
				result, err = app.Records.EditContent(cmd.Context(), args[0], change)
			}
			if err != nil {
				return err
			}
			return printResult(result)
		},
	}

	cmd.Flags().StringVar(&change.Content, "content", "", "new content")
	cmd.Flags().StringVar(&contentFile, "content-file", "", "read new content from a file")
	cmd.Flags().StringSliceVar(&change.Tags, "tag", nil, "tags for the new content")
	cmd.Flags().StringVar(&change.Reason, "reason", "", "reason recorded in the audit trail")
	cmd.Flags().StringVar(&current, "current", "", "status the record is known to be in")
	return cmd
}

func auditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit <record-id>",
		Short: "Show a record's review history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := read(cmd.Context(), func(ctx context.Context) ([]models.AuditEntry, error) {
				return app.Records.AuditTrail(ctx, args[0])
			})
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(entries)
			}
			if len(entries) == 0 {
				fmt.Println("No review history yet.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tACTION\tUSER\tSTATUS\tREASON")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Timestamp.Format(time.RFC3339), e.Action, e.UserID, e.Status, e.Reason)
			}
			return w.Flush()
		},
	}
}

func printResult(result *records.Result) error {
	if jsonOutput {
		return printJSON(result)
	}
	fmt.Printf("%s %s by %s: now %s\n", result.Record.ID, result.Audit.Action, result.Audit.UserID, result.Record.Status)
	return nil
}

func parseDate(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, apierror.Validation(field, "unrecognized date %q", raw)
}
