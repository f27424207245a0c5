package main

import (
	"fmt"

	"github.com/matsen/arxivterm/internal/storage"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export every stored paper as JSON Lines",
	Long: `Export every stored paper, oldest first, to a JSON Lines file.
The file can be loaded into another library with 'axt import'.

Examples:
  axt export papers.jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import papers from a JSON Lines file",
	Long: `Import papers from a JSON Lines file written by 'axt export'.

Papers already stored are refreshed. A paper viewed in the file is
marked viewed; a viewed paper in the library stays viewed.

Examples:
  axt import papers.jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

// ImportResponse is the response for the import command.
type ImportResponse struct {
	Path     string `json:"path"`
	Read     int    `json:"read"`
	Inserted int    `json:"inserted"`
	Updated  int    `json:"updated"`
}

func runExport(cmd *cobra.Command, args []string) error {
	s := mustOpenSession()
	defer s.Close()

	papers, err := s.db.ListAll()
	if err != nil {
		exitWithError(exitCodeFor(err), "listing papers: %v", err)
	}
	if err := storage.WriteJSONL(args[0], papers); err != nil {
		exitWithError(ExitError, "writing %s: %v", args[0], err)
	}
	s.log.Info("Exported papers", "path", args[0], "count", len(papers))

	if humanOutput {
		fmt.Printf("Exported %d papers to %s\n", len(papers), args[0])
	} else {
		outputJSON(StatusResponse{Status: "exported", Path: args[0], Count: len(papers)})
	}
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	s := mustOpenSession()
	defer s.Close()

	papers, err := storage.ReadJSONL(args[0])
	if err != nil {
		exitWithError(ExitDataError, "reading %s: %v", args[0], err)
	}
	stats, err := s.db.ImportPapers(papers)
	if err != nil {
		exitWithError(exitCodeFor(err), "importing: %v", err)
	}
	s.log.Info("Imported papers", "path", args[0], "inserted", stats.Inserted, "updated", stats.Updated)

	if humanOutput {
		fmt.Printf("Imported %d papers from %s: %d new, %d updated\n", len(papers), args[0], stats.Inserted, stats.Updated)
	} else {
		outputJSON(ImportResponse{Path: args[0], Read: len(papers), Inserted: stats.Inserted, Updated: stats.Updated})
	}
	return nil
}
