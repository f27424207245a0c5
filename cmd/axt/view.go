package main

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(viewCmd)
}

var viewCmd = &cobra.Command{
	Use:   "view <entry-id>",
	Short: "Print a paper and mark it viewed",
	Long: `Print every field of a stored paper, including its abstract,
and mark it as viewed.

Examples:
  axt view http://arxiv.org/abs/2403.00001v1 --human`,
	Args: cobra.ExactArgs(1),
	RunE: runView,
}

func runView(cmd *cobra.Command, args []string) error {
	s := mustOpenSession()
	defer s.Close()

	p := s.mustGetPaper(args[0])
	if err := s.db.MarkViewed(p.EntryID); err != nil {
		exitWithError(exitCodeFor(err), "marking viewed: %v", err)
	}
	p.Viewed = true

	if humanOutput {
		printPaperDetail(*p)
	} else {
		outputJSON(p)
	}
	return nil
}
