package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tsawler/deedscan/fetch"
)

// cookieEnv lets the session cookie stay out of shell history.
const cookieEnv = "DEEDSCAN_COOKIE"

// NewProbeCmd creates the probe command.
func NewProbeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check that a registry session cookie reaches the community page",
		Long: `Probe requests the community page with a browser session cookie and
reports whether the unit table and owner links are present. Use it to confirm
a session before collecting records. The cookie is never printed or logged.

Examples:
  deedscan probe --cookie 'ASP.NET_SessionId=...'
  DEEDSCAN_COOKIE='ASP.NET_SessionId=...' deedscan probe`,
		Args: cobra.NoArgs,
		RunE: runProbeCmd,
	}

	cmd.Flags().String("cookie", "", "Cookie header value copied from the browser (or $"+cookieEnv+")")
	cmd.Flags().String("url", fetch.CommunityURL, "Community page URL")

	return cmd
}

func runProbeCmd(cmd *cobra.Command, _ []string) error {
	cookie, _ := cmd.Flags().GetString("cookie")
	if cookie == "" {
		cookie = os.Getenv(cookieEnv)
	}
	if cookie == "" {
		return errors.New("a session cookie is required: pass --cookie or set " + cookieEnv)
	}
	url, _ := cmd.Flags().GetString("url")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)

	rep, err := newDownloader(cfg, logger).Probe(cmd.Context(), url, cookie)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Status:  %d\n", rep.StatusCode)
	fmt.Fprintf(out, "Title:   %s\n", rep.Title)
	if !rep.TableFound {
		fmt.Fprintln(out, "Table:   not found (session expired or not logged in)")
		return nil
	}
	fmt.Fprintf(out, "Table:   %d rows\n", rep.Rows)
	fmt.Fprintf(out, "Owners:  %d links\n", rep.Markers)
	if rep.FirstMarker != "" {
		fmt.Fprintf(out, "First:   %s\n", rep.FirstMarker)
	}
	return nil
}
