package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/console"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/pkg/apierror"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/pkg/config"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/pkg/logger"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/pkg/retry"
)

var (
	jsonOutput bool
	retries    int
	userID     string
	logLevel   string

	app *console.Console
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "error (%s): %v\n", apierror.Kind(err), err)
	}
	os.Exit(exitCode(err))
}

// exitCode is 0 on success, 2 for input rejected before any backend call and
// 1 for everything else.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, apierror.ErrValidation):
		return 2
	default:
		return 1
	}
}

func newRootCmd() *cobra.Command {
	app = nil

	rootCmd := &cobra.Command{
		Use:           "reviewctl",
		Short:         "Review console for indexed content quality",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := logger.Init(logLevel, "console", "stderr"); err != nil {
				return err
			}
			if userID != "" {
				cfg.Backend.DefaultUserID = userID
			}
			app, err = console.New(cmd.Context(), cfg)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				if err := app.Close(); err != nil {
					logger.Warn("Failed to close console", zap.Error(err))
				}
			}
			logger.Sync()
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print raw JSON")
	rootCmd.PersistentFlags().IntVar(&retries, "retries", 0, "extra attempts for reads when the backend is unreachable or failing")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "", "acting user id (defaults to backend.defaultUserID)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level")

	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(actionCmd("approve", "Approve a record"))
	rootCmd.AddCommand(actionCmd("flag", "Flag a record for attention"))
	rootCmd.AddCommand(actionCmd("reject", "Reject a record; rejection is final"))
	rootCmd.AddCommand(actionCmd("override", "Override the automated decision (reason required)"))
	rootCmd.AddCommand(contentCmd("edit", "Replace a record's content and tags, keeping its status"))
	rootCmd.AddCommand(contentCmd("reprocess", "Replace content and tags and re-run the quality checks"))
	rootCmd.AddCommand(auditCmd())
	rootCmd.AddCommand(thresholdsCmd())
	rootCmd.AddCommand(uploadCmd())
	rootCmd.AddCommand(healthCmd())
	rootCmd.AddCommand(filterOptionsCmd())
	rootCmd.AddCommand(llmSettingsCmd())
	rootCmd.AddCommand(journalCmd())

	return rootCmd
}

// read runs a read-only call, retrying transport failures and 5xx answers
// when --retries is set.
func read[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	return retry.DoWithResult(ctx, retry.Config{
		MaxAttempts:    retries + 1,
		InitialDelay:   250 * time.Millisecond,
		MaxDelay:       4 * time.Second,
		Multiplier:     2,
		JitterFraction: 0.1,
		Retryable:      retryable,
		Logger:         logger.GetLogger(),
	}, fn)
}

func retryable(err error) bool {
	return errors.Is(err, apierror.ErrUnreachable) || apierror.StatusOf(err) >= 500
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func fallbackNote(fallback bool, cause error) {
	if fallback {
		fmt.Fprintf(os.Stderr, "(backend unavailable, showing defaults: %v)\n", cause)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
