package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deedscan",
		Short: "Extract owner addresses from land-title transcripts",
		Long: `deedscan reads Taiwanese building transcripts (建物登記謄本) and extracts the
owner's registered address from the building ownership section.

Addresses that the land office replaced with an image are recognized with
OCR (Tesseract chi_tra or Google Document AI). Results are appended to a
UTF-8 CSV file that opens directly in spreadsheet applications.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file (default: ./deedscan.yaml, then the XDG config dir)")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewExtractCmd())
	cmd.AddCommand(NewProbeCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
