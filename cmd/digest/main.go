package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"NewsletterDigest/internal/calendar"
	"NewsletterDigest/internal/markers"
	"NewsletterDigest/internal/pipeline"
	"NewsletterDigest/internal/scheduler"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

var (
	cfgFile string
	dryRun  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "digest",
		Short: "Market newsletter digest",
		Long: `digest reads the latest market newsletter from a mailbox, extracts its
price levels, trading plan and commentary, annotates the levels with the
nearest reference markers and publishes a condensed summary.`,
		Version:      version,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default configs/config.yaml or $CONFIG_PATH)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "parse without storing anything")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(processCmd())
	rootCmd.AddCommand(deleteLatestCmd())
	rootCmd.AddCommand(sendSummaryCmd())
	rootCmd.AddCommand(importMarkersCmd())
	rootCmd.AddCommand(importCalendarCmd())
	rootCmd.AddCommand(exportCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var now bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.cfg.RequireMailSource(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sched := scheduler.NewScheduler(ctx, a.proc, a.cfg.Location(), a.logger)
			if err := sched.RegisterAll(a.cfg.Schedule.ProcessCron, a.cfg.Schedule.SummaryCron); err != nil {
				return fmt.Errorf("register cron tasks: %w", err)
			}
			if a.telegram != nil {
				sched.Alerts = a.telegram
				go a.telegram.StartPolling(ctx, sched.HandleCommand)
				a.logger.Info().Msg("Telegram polling started")
			}
			sched.Start()
			defer sched.Stop()

			if now || os.Getenv("RUN_ON_START") == "true" {
				a.logger.Info().Msg("Processing latest newsletter on start")
				go sched.RunProcessNow()
			}

			a.logger.Info().
				Str("process_cron", a.cfg.Schedule.ProcessCron).
				Str("summary_cron", a.cfg.Schedule.SummaryCron).
				Str("timezone", a.cfg.Schedule.Timezone).
				Msg("Newsletter digest is running. Press Ctrl+C to stop.")
			<-ctx.Done()
			a.logger.Info().Msg("Shutdown signal received, stopping")
			return nil
		},
	}
	cmd.Flags().BoolVar(&now, "now", false, "process the latest newsletter immediately")
	return cmd
}

func processCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Process the latest newsletter once",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.cfg.RequireMailSource(); err != nil {
				return err
			}

			res, err := a.proc.ProcessLatest(cmd.Context())
			if errors.Is(err, pipeline.ErrAlreadyProcessed) {
				fmt.Fprintln(cmd.OutOrStdout(), "Latest newsletter was already processed.")
				return nil
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Processed %s (%q): %d key levels, %d skipped items\n",
				res.NewsletterID, res.Subject, len(res.Parsed.KeyLevels), len(res.Report.Skipped))
			if len(res.Report.MissingSections) > 0 {
				fmt.Fprintf(out, "Missing sections: %v\n", res.Report.MissingSections)
			}
			fmt.Fprintf(out, "\n%s\n\n%s\n", res.Parsed.ComposedSummary, res.Parsed.TimingDetail)
			return nil
		},
	}
}

func deleteLatestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-latest",
		Short: "Delete the most recently received newsletter and its parsed data",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			id, err := a.proc.DeleteLatest(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted newsletter %s\n", id)
			return nil
		},
	}
}

func sendSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send-summary",
		Short: "Send the latest digest to the configured recipients",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			return a.proc.SendSummary(cmd.Context())
		},
	}
}

func importMarkersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-markers <file.csv>",
		Short: "Replace the reference markers with the contents of a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			n, err := markers.NewImporter(a.store, a.logger).ImportFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d markers\n", n)
			return nil
		},
	}
}

func importCalendarCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-calendar <file.csv>",
		Short: "Add market calendar events from a CSV file (date,time,event)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			n, err := calendar.NewImporter(a.store, a.logger).ImportFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d events\n", n)
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	var outFile string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the latest digest as an HTML page",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			var w io.Writer = cmd.OutOrStdout()
			if outFile != "" {
				fh, err := os.Create(outFile)
				if err != nil {
					return fmt.Errorf("create %s: %w", outFile, err)
				}
				defer fh.Close()
				w = fh
			}
			return a.proc.ExportHTML(cmd.Context(), w)
		},
	}
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")
	return cmd
}
