package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	arxivmcp "github.com/matsen/arxivterm/internal/mcpserver"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server on stdio for LLM agents",
	Long: `Run axt as an MCP (Model Context Protocol) server on stdio.

Tools: semantic_search, text_search, similar_papers, recent_papers,
mark_viewed, paper_stats.

Log records go to the log file only; stdout carries the protocol.`,
	Example: `  # Configure in an MCP client's config file:
  # {
  #   "mcpServers": {
  #     "arxivterm": {
  #       "command": "axt",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	s := mustOpenSession()
	defer s.Close()

	server, _ := arxivmcp.NewServer(s.db, s.searcher(), arxivmcp.Options{
		SearchLimit: s.cfg.SearchLimit,
		ShowDays:    s.cfg.ShowDays,
	}, s.log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s.log.Info("MCP server starting on stdio", "db", s.cfg.DBPath)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		s.log.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}
	return nil
}
