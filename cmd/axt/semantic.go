package main

import (
	"fmt"

	"github.com/matsen/arxivterm/internal/paper"
	"github.com/matsen/arxivterm/internal/semantic"
	"github.com/spf13/cobra"
)

var (
	semanticLimit   int
	semanticRefresh bool
	similarLimit    int
)

func init() {
	semanticCmd.Flags().IntVarP(&semanticLimit, "limit", "l", 0, "Maximum results to return (default from config search_limit)")
	semanticCmd.Flags().BoolVar(&semanticRefresh, "refresh", false, "Retrain the model on all stored papers before searching")
	similarCmd.Flags().IntVarP(&similarLimit, "limit", "l", 0, "Maximum results to return (default from config search_limit)")
	rootCmd.AddCommand(semanticCmd)
	rootCmd.AddCommand(similarCmd)
}

// SemanticResponse is the response for the semantic command.
type SemanticResponse struct {
	Query   string            `json:"query"`
	Results []semantic.Result `json:"results"`
	Total   int               `json:"total"`
}

// SimilarResponse is the response for the similar command.
type SimilarResponse struct {
	Source  paper.Paper       `json:"source"`
	Similar []semantic.Result `json:"similar"`
	Total   int               `json:"total"`
}

var semanticCmd = &cobra.Command{
	Use:   "semantic <query>",
	Short: "Rank papers by semantic similarity to a query",
	Long: `Rank stored papers by how close their abstracts are to the query.

Every stored paper is a candidate. The model must be trained first with
'axt train', or pass --refresh to retrain it before searching.

Examples:
  axt semantic "uncertainty in reinforcement learning"
  axt semantic "protein structure" --refresh -l 20`,
	Args: cobra.ExactArgs(1),
	RunE: runSemantic,
}

var similarCmd = &cobra.Command{
	Use:   "similar <entry-id>",
	Short: "Find papers similar to a stored paper",
	Long: `Find papers whose abstracts are closest to the abstract of a given paper.
The paper itself is excluded from the results.

Examples:
  axt similar http://arxiv.org/abs/2403.00001v1`,
	Args: cobra.ExactArgs(1),
	RunE: runSimilar,
}

func runSemantic(cmd *cobra.Command, args []string) error {
	s := mustOpenSession()
	defer s.Close()

	limit := semanticLimit
	if limit <= 0 {
		limit = s.cfg.SearchLimit
	}

	results, err := s.searcher().Search(args[0], limit, semanticRefresh)
	if err != nil {
		exitWithSearchError(err)
	}

	if humanOutput {
		printResultsHuman(results)
	} else {
		outputJSON(SemanticResponse{Query: args[0], Results: results, Total: len(results)})
	}
	return nil
}

func runSimilar(cmd *cobra.Command, args []string) error {
	s := mustOpenSession()
	defer s.Close()

	limit := similarLimit
	if limit <= 0 {
		limit = s.cfg.SearchLimit
	}

	source := s.mustGetPaper(args[0])
	results, err := s.searcher().Similar(source.EntryID, limit)
	if err != nil {
		exitWithSearchError(err)
	}

	if humanOutput {
		fmt.Printf("Papers similar to %s\n  %s\n\n", source.ShortID(), truncateString(source.Title, SearchTitleMaxLen))
		printResultsHuman(results)
	} else {
		outputJSON(SimilarResponse{Source: *source, Similar: results, Total: len(results)})
	}
	return nil
}

func exitWithSearchError(err error) {
	if exitCodeFor(err) == ExitModelNotTrained {
		exitWithError(ExitModelNotTrained, "%v\n\nRun 'axt train' or pass --refresh to train the model.", err)
	}
	exitWithError(exitCodeFor(err), "semantic search: %v", err)
}
