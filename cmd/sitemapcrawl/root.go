package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for sitemapcrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitemapcrawl",
		Short: "Collect every URL announced by a set of sitemaps",
		Long: `sitemapcrawl reads a list of root sitemap URLs, follows nested sitemap
indexes breadth first with a bounded worker pool, and writes the sorted,
deduplicated page URLs they announce.

Each sitemap is fetched at most once per run. Depth and URL limits hold
even when many workers race to reach them. Finished runs are archived
so that earlier URL feeds can be listed and printed again.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Log every skip, retry and failure")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
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
