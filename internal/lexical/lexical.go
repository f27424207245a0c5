// Package lexical implements substring search over stored papers.
// It does not depend on the embedding model and is always available.
package lexical

import "github.com/matsen/arxivterm/internal/paper"

// TextSearcher finds papers containing a substring in title or summary.
// *storage.DB satisfies it.
type TextSearcher interface {
	SearchText(query string) ([]paper.Paper, error)
}

// Search returns at most limit papers matching query, in the source's
// order (oldest published first for the SQLite store).
func Search(source TextSearcher, query string, limit int) ([]paper.Paper, error) {
	if limit <= 0 {
		return []paper.Paper{}, nil
	}

	papers, err := source.SearchText(query)
	if err != nil {
		return nil, err
	}
	if len(papers) > limit {
		papers = papers[:limit]
	}
	if papers == nil {
		papers = []paper.Paper{}
	}
	return papers, nil
}
