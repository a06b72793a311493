package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/ingest"
)

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check whether the review backend is up",
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome := app.Status.Health(cmd.Context())
			if jsonOutput {
				return printJSON(outcome.Value)
			}
			fallbackNote(outcome.IsFallback(), outcome.Cause)
			fmt.Printf("%s (%s)\n", outcome.Value.Status, outcome.Value.Timestamp.Format(time.RFC3339))
			return nil
		},
	}
}

func filterOptionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "filter-options",
		Short: "Show the values each list filter accepts",
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome := app.Status.FilterOptions(cmd.Context())
			if jsonOutput {
				return printJSON(outcome.Value)
			}
			fallbackNote(outcome.IsFallback(), outcome.Cause)

			o := outcome.Value
			companies := make([]string, 0, len(o.Companies))
			for _, c := range o.Companies {
				companies = append(companies, c.Name)
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			fmt.Fprintf(w, "companies\t%s\n", strings.Join(companies, ", "))
			fmt.Fprintf(w, "connectors\t%s\n", strings.Join(o.Connectors, ", "))
			fmt.Fprintf(w, "statuses\t%s\n", strings.Join(o.Statuses, ", "))
			fmt.Fprintf(w, "priorities\t%s\n", strings.Join(o.Priorities, ", "))
			fmt.Fprintf(w, "issue types\t%s\n", strings.Join(o.IssueTypes, ", "))
			fmt.Fprintf(w, "departments\t%s\n", strings.Join(o.Departments, ", "))
			fmt.Fprintf(w, "authors\t%s\n", strings.Join(o.Authors, ", "))
			fmt.Fprintf(w, "tags\t%d known\n", len(o.Tags))
			return w.Flush()
		},
	}
}

func llmSettingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "llm-settings",
		Short: "Show the LLM judge configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome := app.Status.LLMSettings(cmd.Context())
			if jsonOutput {
				return printJSON(outcome.Value)
			}
			fallbackNote(outcome.IsFallback(), outcome.Cause)
			s := outcome.Value
			fmt.Printf("enabled=%t mode=%s model=%s confidence=%g\n", s.Enabled, s.Mode, s.Model, s.ConfidenceThreshold)
			return nil
		},
	}
}

func uploadCmd() *cobra.Command {
	var batchSize, concurrent int

	cmd := &cobra.Command{
		Use:   "upload <file.json|file.jsonl>",
		Short: "Bulk-ingest records from a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := app.Uploader.UploadFile(cmd.Context(), args[0], ingest.Request{
				BatchSize:       batchSize,
				ConcurrentLimit: concurrent,
				OnProgress: func(p ingest.Progress) error {
					if !jsonOutput {
						fmt.Fprintf(os.Stderr, "batch %d/%d: %d/%d records (%.1f%%)\n",
							p.BatchNumber, p.TotalBatches, p.TotalProcessed, p.TotalRecords, p.ProgressPercentage)
					}
					return nil
				},
			})
			if err != nil {
				return err
			}
			if jsonOutput {
				_, err := os.Stdout.Write(append(result.Payload, '\n'))
				return err
			}

			var final ingest.Progress
			if result.Source == ingest.SourceFrame && result.Into(&final) == nil && final.TotalRecords > 0 {
				s := final.ProcessingStats
				fmt.Printf("uploaded %d records, %d errors (%.1f%% success)\n", s.TotalProcessed, s.TotalErrors, s.SuccessRate)
				return nil
			}
			fmt.Printf("upload finished: %s\n", result.Payload)
			return nil
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", ingest.DefaultBatchSize, "records per batch")
	cmd.Flags().IntVar(&concurrent, "concurrent", ingest.DefaultConcurrentLimit, "records processed concurrently per batch")
	return cmd
}
