package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/polite-crawler/pkg/config"
	"github.com/user/polite-crawler/pkg/logger"
	"github.com/user/polite-crawler/pkg/utils"
)

// NewRobotsCmd creates the robots command.
func NewRobotsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "robots <url>...",
		Short: "Report whether robots.txt allows the crawler to fetch each URL",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRobotsCmd,
	}
}

func runRobotsCmd(cmd *cobra.Command, args []string) error {
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

	out := cmd.OutOrStdout()
	for _, raw := range args {
		target, err := utils.ParseAbsolute(raw)
		if err != nil {
			return fmt.Errorf("%q: %w", raw, err)
		}
		allowed, err := client.Resolver().Allowed(cmd.Context(), target)
		if err != nil {
			return err
		}
		verdict := "disallowed"
		if allowed {
			verdict = "allowed"
		}
		fmt.Fprintf(out, "%s\t%s\n", verdict, target)
	}
	return nil
}
