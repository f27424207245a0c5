package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/matsen/arxivterm/internal/arxiv"
	"github.com/spf13/cobra"
)

var (
	fetchDays       int
	fetchCategories []string
	fetchMaxResults int
)

func init() {
	fetchCmd.Flags().IntVarP(&fetchDays, "num-days", "d", 0, "Days back to fetch (default from config fetch_days)")
	fetchCmd.Flags().StringSliceVarP(&fetchCategories, "categories", "c", nil, "Categories to fetch (default from config)")
	fetchCmd.Flags().IntVar(&fetchMaxResults, "max-results", 0, "Maximum entries scanned per category (0 = whole window)")
	rootCmd.AddCommand(fetchCmd)
}

// FetchResponse is the response for the fetch command.
type FetchResponse struct {
	Categories map[string]int `json:"categories"`
	Fetched    int            `json:"fetched"`
	Inserted   int            `json:"inserted"`
	Updated    int            `json:"updated"`
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch recent papers from arXiv",
	Long: `Fetch papers submitted in the last N days for each category and store them.

Papers already in the library are refreshed; their viewed flag is kept.
Requests are spaced three seconds apart as the arXiv API asks.

Examples:
  axt fetch
  axt fetch --num-days 2
  axt fetch --categories cs.CL,stat.ML`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func runFetch(cmd *cobra.Command, args []string) error {
	s := mustOpenSession()
	defer s.Close()

	days := fetchDays
	if days <= 0 {
		days = s.cfg.FetchDays
	}
	categories := fetchCategories
	if len(categories) == 0 {
		categories = s.cfg.Categories
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := arxiv.NewClient(arxiv.WithLogger(s.log))
	papers, counts, err := client.FetchCategories(ctx, categories, days, fetchMaxResults)
	if err != nil {
		exitWithError(exitCodeFor(err), "fetching papers: %v", err)
	}

	stats, err := s.db.UpsertMany(papers)
	if err != nil {
		exitWithError(exitCodeFor(err), "storing papers: %v", err)
	}
	s.log.Info("Stored fetched papers", "inserted", stats.Inserted, "updated", stats.Updated)

	if humanOutput {
		names := make([]string, 0, len(counts))
		for name := range counts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%-12s %d papers\n", name, counts[name])
		}
		fmt.Printf("\nFetched %d papers: %d new, %d updated\n", len(papers), stats.Inserted, stats.Updated)
	} else {
		outputJSON(FetchResponse{
			Categories: counts,
			Fetched:    len(papers),
			Inserted:   stats.Inserted,
			Updated:    stats.Updated,
		})
	}
	return nil
}
