package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tsawler/deedscan/batch"
	"github.com/tsawler/deedscan/deed"
	"github.com/tsawler/deedscan/report"
)

// NewExtractCmd creates the extract command.
func NewExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <pdf> <address> <owner> [identifier]",
		Short: "Extract the address from one transcript",
		Long: `Extract processes a single local transcript and appends its row to
<identifier>.csv (default output.csv).

The row is written even when the file cannot be read; the address column
then holds the failure placeholder and the command exits non-zero.

Examples:
  deedscan extract deed.pdf '北新路三段182巷2號' '王大明'
  deedscan extract deed.pdf '北新路三段182巷2號' '王大明' community42 --engine none`,
		Args: cobra.RangeArgs(3, 4),
		RunE: runExtractCmd,
	}

	cmd.Flags().String("engine", "tesseract", "OCR engine: tesseract, documentai or none")
	cmd.Flags().String("db", "", "Also record the row in this SQLite database")

	return cmd
}

func runExtractCmd(cmd *cobra.Command, args []string) error {
	pdf, address, owner := args[0], args[1], args[2]
	identifier := batch.DefaultIdentifier
	if len(args) == 4 {
		identifier = args[3]
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := newEngine(ctx, cfg, logger)
	defer engine.Close()
	if err := engine.Init(); err != nil {
		return fmt.Errorf("initialize OCR engine: %w", err)
	}

	csvSink, err := report.NewCSVSink(batch.OutputFile(identifier))
	if err != nil {
		return err
	}
	var db report.Sink
	if cfg.Output.SQLite != "" {
		sq, err := report.NewSQLiteSink(ctx, cfg.Output.SQLite, uuid.NewString(), identifier)
		if err != nil {
			csvSink.Close()
			return err
		}
		db = sq
	}
	sink := report.NewMultiSink(csvSink, db)
	defer sink.Close()

	// Failures come back as a failure result with the cause in res.Err.
	res, _ := newPipeline(cfg, engine, logger).Process(ctx, pdf)

	row := report.Row{
		Address:    address,
		Owner:      owner,
		Extracted:  res.Address,
		Provenance: res.Provenance.String(),
		Source:     pdf,
	}
	if err := sink.Append(context.WithoutCancel(ctx), row); err != nil {
		return fmt.Errorf("append row: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\t%s\t%s\n", address, owner, res.Address)
	fmt.Fprintf(out, "Provenance: %s\n", res.Provenance)
	if res.OCRText != "" && res.OCRText != res.Address {
		fmt.Fprintf(out, "OCR text:   %s\n", res.OCRText)
	}
	fmt.Fprintf(out, "Results saved to %s\n", csvSink.Path())

	if res.Provenance == deed.ProvenanceFailed {
		return fmt.Errorf("extract %s: %w", pdf, res.Err)
	}
	return nil
}
