package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/tsawler/deedscan/config"
)

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Init writes the default configuration, including the full OCR correction
table, so it can be edited.

Examples:
  # Write $XDG_CONFIG_HOME/deedscan/config.yaml
  deedscan init

  # Write a project-local file
  deedscan init -o deedscan.yaml`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.XDGConfigFile(), "Output file path")
	cmd.Flags().BoolP("force", "f", false, "Overwrite an existing file")

	return cmd
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	path, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if force {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", path, err)
		}
	}
	if err := config.NewConfig().WriteFile(path); err != nil {
		if errors.Is(err, config.ErrConfigExists) {
			return fmt.Errorf("%w (use -f to overwrite)", err)
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created configuration file: %s\n", path)
	return nil
}
