package main

import (
	"time"

	"github.com/matsen/arxivterm/internal/paper"
	"github.com/spf13/cobra"
)

var (
	showDaysAgo  int
	showUnviewed bool
)

func init() {
	showCmd.Flags().IntVarP(&showDaysAgo, "days-ago", "d", 0, "Show papers published in the last N days (default from config show_days)")
	showCmd.Flags().BoolVarP(&showUnviewed, "unviewed", "u", false, "Only show papers not yet viewed")
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "List recently published papers",
	Long: `List stored papers published in the last N days, oldest first.

Examples:
  axt show
  axt show --days-ago 2 --unviewed --human`,
	Args: cobra.NoArgs,
	RunE: runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	s := mustOpenSession()
	defer s.Close()

	days := showDaysAgo
	if days <= 0 {
		days = s.cfg.ShowDays
	}

	papers, err := s.db.PublishedAfter(time.Now().Add(-time.Duration(days) * 24 * time.Hour))
	if err != nil {
		exitWithError(exitCodeFor(err), "listing papers: %v", err)
	}
	if showUnviewed {
		papers = unviewedOnly(papers)
	}
	if papers == nil {
		papers = []paper.Paper{}
	}

	if humanOutput {
		printPapersHuman(papers, "No papers found")
	} else {
		outputJSON(papers)
	}
	return nil
}

func unviewedOnly(papers []paper.Paper) []paper.Paper {
	var out []paper.Paper
	for _, p := range papers {
		if !p.Viewed {
			out = append(out, p)
		}
	}
	return out
}
