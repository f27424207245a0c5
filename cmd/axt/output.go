package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/matsen/arxivterm/internal/arxiv"
	"github.com/matsen/arxivterm/internal/config"
	"github.com/matsen/arxivterm/internal/lsa"
	"github.com/matsen/arxivterm/internal/paper"
	"github.com/matsen/arxivterm/internal/pdf"
	"github.com/matsen/arxivterm/internal/semantic"
	"github.com/matsen/arxivterm/internal/storage"
)

// Constants for output formatting.
const (
	SearchTitleMaxLen = 70 // Used in result summaries
	MaxListedAuthors  = 3  // Authors shown before "et al." in summaries

	TextWrapWidth = 76 // Abstract wrap width in detail views
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// exitCodeFor maps library errors onto exit codes.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, pdf.ErrNotDownloaded):
		return ExitNotFound
	case errors.Is(err, lsa.ErrNotTrained), errors.Is(err, lsa.ErrUnsupportedVersion):
		return ExitModelNotTrained
	case errors.Is(err, config.ErrInvalidConfig), errors.Is(err, config.ErrUnknownKey),
		errors.Is(err, storage.ErrStoreUnavailable):
		return ExitConfigError
	case errors.Is(err, lsa.ErrTrainingConfig), errors.Is(err, pdf.ErrInvalidPDF),
		errors.Is(err, storage.ErrEmptyEntryID), errors.Is(err, arxiv.ErrInvalidResponse):
		return ExitDataError
	}
	return ExitError
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
	Count  int    `json:"count,omitempty"`
}

// printPaperSummary prints a short multi-line entry for a paper.
func printPaperSummary(num int, p paper.Paper) {
	mark := " "
	if p.Viewed {
		mark = "*"
	}
	fmt.Printf("[%d]%s %s  %s\n", num, mark, p.ShortID(), p.Published.Format("2006-01-02"))
	fmt.Printf("    %s\n", truncateString(p.Title, SearchTitleMaxLen))
	if len(p.Authors) > 0 {
		fmt.Printf("    %s\n", paper.FormatAuthors(p.Authors, MaxListedAuthors))
	}
	fmt.Println()
}

// printPapersHuman prints a list of papers, or a note when there are none.
func printPapersHuman(papers []paper.Paper, empty string) {
	if len(papers) == 0 {
		fmt.Println(empty)
		return
	}
	for i, p := range papers {
		printPaperSummary(i+1, p)
	}
	fmt.Printf("%d papers (* = viewed)\n", len(papers))
}

// printResultsHuman prints ranked semantic search results.
func printResultsHuman(results []semantic.Result) {
	if len(results) == 0 {
		fmt.Println("No papers found")
		return
	}
	for i, r := range results {
		fmt.Printf("%d. [%.3f] %s\n", i+1, r.Similarity, r.Paper.ShortID())
		fmt.Printf("   %s\n", truncateString(r.Paper.Title, SearchTitleMaxLen))
		if len(r.Paper.Authors) > 0 {
			fmt.Printf("   %s\n", paper.FormatAuthors(r.Paper.Authors, MaxListedAuthors))
		}
		fmt.Println()
	}
}

// printPaperDetail prints every field of a paper.
func printPaperDetail(p paper.Paper) {
	fmt.Println(p.Title)
	fmt.Println(strings.Repeat("=", min(len(p.Title), TextWrapWidth)))
	fmt.Println()
	fmt.Printf("ID:         %s\n", p.EntryID)
	fmt.Printf("Published:  %s\n", p.Published.Format("2006-01-02 15:04"))
	if !p.Updated.Equal(p.Published) && !p.Updated.IsZero() {
		fmt.Printf("Updated:    %s\n", p.Updated.Format("2006-01-02 15:04"))
	}
	if len(p.Authors) > 0 {
		fmt.Printf("Authors:    %s\n", wrapText(strings.Join(p.Authors, ", "), TextWrapWidth-12, strings.Repeat(" ", 12)))
	}
	if len(p.Categories) > 0 {
		fmt.Printf("Categories: %s\n", strings.Join(p.Categories, ", "))
	}
	fmt.Printf("PDF:        %s/%s\n", pdf.PDFBaseURL, p.ShortID())
	fmt.Println()
	fmt.Println(wrapText(p.Summary, TextWrapWidth, ""))
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// wrapText wraps text to the specified width with indentation on subsequent lines.
func wrapText(text string, width int, indent string) string {
	if len(text) <= width {
		return text
	}

	var lines []string
	words := strings.Fields(text)
	var currentLine strings.Builder

	for _, word := range words {
		if currentLine.Len() == 0 {
			currentLine.WriteString(word)
		} else if currentLine.Len()+1+len(word) <= width {
			currentLine.WriteString(" ")
			currentLine.WriteString(word)
		} else {
			lines = append(lines, currentLine.String())
			currentLine.Reset()
			currentLine.WriteString(word)
		}
	}
	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}

	return strings.Join(lines, "\n"+indent)
}
