package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var deleteYes bool

func init() {
	deleteAllCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(deleteAllCmd)
}

var deleteAllCmd = &cobra.Command{
	Use:   "delete-all",
	Short: "Delete every stored paper",
	Long: `Delete every stored paper. The trained model file is left in place.

Without --yes the command asks for confirmation on stdin.`,
	Args: cobra.NoArgs,
	RunE: runDeleteAll,
}

func runDeleteAll(cmd *cobra.Command, args []string) error {
	s := mustOpenSession()
	defer s.Close()

	count, err := s.db.Count()
	if err != nil {
		exitWithError(exitCodeFor(err), "counting papers: %v", err)
	}

	if !deleteYes {
		fmt.Fprintf(os.Stderr, "Delete all %d papers from %s? [y/N] ", count, s.db.Path())
		if !confirmed(bufio.NewReader(os.Stdin)) {
			exitWithError(ExitError, "aborted")
		}
	}

	if err := s.db.DeleteAll(); err != nil {
		exitWithError(exitCodeFor(err), "deleting papers: %v", err)
	}
	s.log.Info("Deleted all papers", "count", count)

	if humanOutput {
		fmt.Printf("Deleted %d papers\n", count)
	} else {
		outputJSON(StatusResponse{Status: "deleted", Path: s.db.Path(), Count: count})
	}
	return nil
}

// confirmed reads one line and reports whether it is a yes.
func confirmed(r *bufio.Reader) bool {
	line, _ := r.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
