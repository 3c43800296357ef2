package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/polite-crawler/internal/document"
	"github.com/user/polite-crawler/pkg/config"
	"github.com/user/polite-crawler/pkg/logger"
	"github.com/user/polite-crawler/pkg/utils"
)

// NewFetchCmd creates the fetch command.
func NewFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Fetch one URL honouring robots.txt and print a summary",
		Long: `Fetch performs the same politeness-checked GET the crawler uses and prints
the final URL, content type, size and the configured extraction fields.

Examples:
  crawler fetch https://example.org/
  crawler fetch --no-robots https://example.org/private/`,
		Args: cobra.ExactArgs(1),
		RunE: runFetchCmd,
	}
	cmd.Flags().Bool("no-robots", false, "Skip the robots.txt check")
	return cmd
}

func runFetchCmd(cmd *cobra.Command, args []string) error {
	target, err := utils.ParseAbsolute(args[0])
	if err != nil {
		return fmt.Errorf("%q: %w", args[0], err)
	}
	noRobots, _ := cmd.Flags().GetBool("no-robots")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogLevel, "console")
	if err != nil {
		return err
	}
	client, err := newClient(cfg, log, nil)
	if err != nil {
		return err
	}

	get := client.Get
	if noRobots {
		get = client.GetNoCheck
	}
	res, err := get(cmd.Context(), target)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "url:          %s\n", res.URL)
	fmt.Fprintf(out, "status:       %d\n", res.Status)
	fmt.Fprintf(out, "content-type: %s\n", res.ContentType)
	fmt.Fprintf(out, "bytes:        %d\n", len(res.Body))

	doc, err := document.Parse(res.Body, res.ContentType)
	if err != nil {
		return err
	}
	for _, f := range cfg.Fields() {
		values, err := doc.Text(f[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: %q\n", f[0], values)
	}
	return nil
}
