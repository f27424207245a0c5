// Package paper defines the core domain types for tracked research papers.
package paper

import (
	"strings"
	"time"
)

// Paper represents a research paper pulled from the arXiv feed.
type Paper struct {
	// Identity
	EntryID string `json:"entry_id"` // Stable external identifier, e.g. http://arxiv.org/abs/2301.00001v1

	// Timestamps
	Updated   time.Time `json:"updated"`
	Published time.Time `json:"published"`

	// Metadata
	Title      string   `json:"title"`
	Summary    string   `json:"summary"` // Abstract; the field that is embedded and searched
	Authors    []string `json:"authors"`
	Categories []string `json:"categories"`

	// Reading state
	Viewed bool `json:"viewed"`
}

// DateCount is the number of papers published on a calendar date.
type DateCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// ShortID returns the arXiv identifier of the paper: the part of the entry
// ID after "/abs/" ("2301.00001v1", or "hep-th/9901001v1" for old-style
// IDs). Entry IDs without "/abs/" fall back to their last path component.
func (p Paper) ShortID() string {
	id := strings.TrimRight(p.EntryID, "/")
	if i := strings.LastIndex(id, "/abs/"); i >= 0 {
		return id[i+len("/abs/"):]
	}
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[i+1:]
	}
	return id
}

// FileName returns ShortID made safe for use as a single file name.
func (p Paper) FileName() string {
	return strings.ReplaceAll(p.ShortID(), "/", "_")
}

// JoinList joins a list of names with commas for storage.
// Names are assumed not to contain commas themselves.
func JoinList(items []string) string {
	return strings.Join(items, ",")
}

// SplitList is the inverse of JoinList. An empty string yields nil.
func SplitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// FormatAuthors formats authors as "A, B, C, et al." with at most maxCount names.
func FormatAuthors(authors []string, maxCount int) string {
	if len(authors) == 0 {
		return ""
	}
	if maxCount <= 0 || len(authors) <= maxCount {
		return strings.Join(authors, ", ")
	}
	return strings.Join(authors[:maxCount], ", ") + ", et al."
}

// TotalCount sums the counts of a DateCount list.
func TotalCount(stats []DateCount) int {
	total := 0
	for _, s := range stats {
		total += s.Count
	}
	return total
}
