package main

import (
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:8000"

type commandContext struct {
	server   string
	jsonOut  bool
	timeout  time.Duration
	client   *http.Client
	terminal func(w io.Writer) bool
}

func (c *commandContext) api() *apiClient {
	client := c.client
	if client == nil {
		client = &http.Client{Timeout: c.timeout}
	}
	return &apiClient{base: strings.TrimRight(c.server, "/"), http: client}
}

// wantJSON reports whether output should be JSON instead of a table.
func (c *commandContext) wantJSON(cmd *cobra.Command) bool {
	return c.jsonOut || !c.terminal(cmd.OutOrStdout())
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func newRootCommand() *cobra.Command {
	return newRootCommandWithContext(&commandContext{terminal: isTerminal})
}

func newRootCommandWithContext(ctx *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "affiliatectl",
		Short:         "Operate the affiliate content server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	server := os.Getenv("AFFILIATE_SERVER")
	if server == "" {
		server = defaultServer
	}
	rootCmd.PersistentFlags().StringVar(&ctx.server, "server", server, "Base URL of the affiliate server")
	rootCmd.PersistentFlags().BoolVar(&ctx.jsonOut, "json", false, "Print JSON instead of tables")
	rootCmd.PersistentFlags().DurationVar(&ctx.timeout, "timeout", 3*time.Minute, "Request timeout")

	rootCmd.AddCommand(newCrawlCommand(ctx))
	rootCmd.AddCommand(newThreadsCommand(ctx))
	rootCmd.AddCommand(newCampaignsCommand(ctx))
	rootCmd.AddCommand(newLinksCommand(ctx))
	rootCmd.AddCommand(newShortenCommand(ctx))
	rootCmd.AddCommand(newPublishCommand(ctx))
	rootCmd.AddCommand(newStatsCommand(ctx))

	return rootCmd
}
