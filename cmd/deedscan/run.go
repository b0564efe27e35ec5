package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tsawler/deedscan/batch"
	"github.com/tsawler/deedscan/config"
	"github.com/tsawler/deedscan/report"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [identifier]",
		Short: "Extract addresses for every record of a community",
		Long: `Run reads <identifier>_data.json, downloads each record's transcript and
appends one row per record to <identifier>.csv.

The record file is a JSON array of objects with address, owner and url
fields, or of [address, owner, url] arrays. Without it the built-in sample
records are used.

Examples:
  # Process output_data.json into output.csv
  deedscan run

  # Ten workers, keep a SQLite history and write a summary
  deedscan run community42 --workers 10 --db deedscan.db --markdown`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRunCmd,
	}

	cmd.Flags().IntP("workers", "w", config.DefaultWorkers, "Concurrent records")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout, "Per-download timeout")
	cmd.Flags().String("dir", config.DefaultDownloadDir, "Directory for downloaded transcripts")
	cmd.Flags().Float64("rate", 0, "Maximum downloads per second (0 for no limit)")
	cmd.Flags().String("engine", config.DefaultEngine, "OCR engine: tesseract, documentai or none")
	cmd.Flags().String("db", "", "Also record rows in this SQLite database")
	cmd.Flags().Bool("markdown", false, "Write <identifier>_summary.md after the run")

	return cmd
}

func runRunCmd(cmd *cobra.Command, args []string) error {
	identifier := batch.DefaultIdentifier
	if len(args) > 0 {
		identifier = args[0]
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)
	out := cmd.OutOrStdout()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	records, err := batch.LoadRecords(batch.DataFile(identifier))
	switch {
	case errors.Is(err, batch.ErrNoRecordFile):
		fmt.Fprintf(out, "%s not found, using the built-in sample records\n", batch.DataFile(identifier))
		records = batch.FixtureRecords()
	case err != nil:
		return err
	}

	engine := newEngine(ctx, cfg, logger)
	defer engine.Close()

	runID := uuid.NewString()
	csvSink, err := report.NewCSVSink(batch.OutputFile(identifier))
	if err != nil {
		return err
	}
	defer csvSink.Close()
	sinks := []report.Sink{csvSink}

	if cfg.Output.SQLite != "" {
		db, err := report.NewSQLiteSink(ctx, cfg.Output.SQLite, runID, identifier)
		if err != nil {
			return err
		}
		defer db.Close()
		sinks = append(sinks, db)
	}

	orch := batch.New(newPipeline(cfg, engine, logger),
		batch.WithWorkers(cfg.Workers),
		batch.WithFetcher(newDownloader(cfg, logger)),
		batch.WithSinks(sinks...),
		batch.WithEngine(engine),
		batch.WithDir(cfg.Download.Dir),
		batch.WithIdentifier(identifier),
		batch.WithRunID(runID),
		batch.WithLogger(logger),
	)

	fmt.Fprintf(out, "Processing %d records with %d workers\n", len(records), cfg.Workers)
	summary, runErr := orch.Run(ctx, records)

	fmt.Fprintln(out, summary.String())
	fmt.Fprintf(out, "Results saved to %s\n", csvSink.Path())

	if cfg.Output.Markdown && summary.Total > 0 {
		path, err := writeSummaryFile(identifier, summary)
		if err != nil {
			return errors.Join(runErr, err)
		}
		fmt.Fprintf(out, "Summary written to %s\n", path)
	}
	return runErr
}

func writeSummaryFile(identifier string, summary batch.Summary) (string, error) {
	path := identifier + "_summary.md"
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := report.WriteSummary(f, summary.Report()); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}
