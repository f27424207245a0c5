package main

import (
	"github.com/matsen/arxivterm/internal/lexical"
	"github.com/spf13/cobra"
)

var searchLimit int

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 0, "Maximum results to return (default from config search_limit)")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search titles and abstracts for a substring",
	Long: `Search stored papers whose title or abstract contains the query.

Matching is case-insensitive and literal: % and _ have no special meaning.
Results are ordered by publication date, oldest first.

Examples:
  axt search "diffusion"
  axt search "graph neural" -l 5 --human`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	s := mustOpenSession()
	defer s.Close()

	limit := searchLimit
	if limit <= 0 {
		limit = s.cfg.SearchLimit
	}

	papers, err := lexical.Search(s.db, args[0], limit)
	if err != nil {
		exitWithError(exitCodeFor(err), "searching: %v", err)
	}

	if humanOutput {
		printPapersHuman(papers, "No papers found")
	} else {
		outputJSON(papers)
	}
	return nil
}
