// Package semantic ranks stored papers by relevance to free text using the
// trained embedding model.
package semantic

import (
	"fmt"

	"github.com/matsen/arxivterm/internal/logging"
	"github.com/matsen/arxivterm/internal/lsa"
	"github.com/matsen/arxivterm/internal/paper"
)

// PaperSource provides the candidate set for a search.
// *storage.DB satisfies it.
type PaperSource interface {
	ListAll() ([]paper.Paper, error)
	Get(entryID string) (*paper.Paper, error)
}

// Result is a paper found by semantic search.
type Result struct {
	Paper      paper.Paper `json:"paper"`
	Similarity float64     `json:"similarity"`
}

// TrainStats describes a training run.
type TrainStats struct {
	Trained   bool     `json:"trained"` // false when an existing model was kept
	Documents int      `json:"documents"`
	Model     lsa.Info `json:"model"`
}

// Searcher ties a paper source to an embedding model.
type Searcher struct {
	source PaperSource
	model  *lsa.Model
	cfg    lsa.Config
	log    *logging.Logger
}

// NewSearcher returns a Searcher that trains with cfg when asked to.
func NewSearcher(source PaperSource, model *lsa.Model, cfg lsa.Config, log *logging.Logger) *Searcher {
	if log == nil {
		log = logging.Nop()
	}
	return &Searcher{source: source, model: model, cfg: cfg, log: log}
}

// Search returns up to limit papers ranked by similarity to query, most similar first.
// If forceRefresh is set the model is retrained on the current summaries first.
// Without a trained model, and without forceRefresh, it returns lsa.ErrNotTrained.
func (s *Searcher) Search(query string, limit int, forceRefresh bool) ([]Result, error) {
	if limit <= 0 {
		return []Result{}, nil
	}

	papers, err := s.source.ListAll()
	if err != nil {
		return nil, err
	}
	if len(papers) == 0 {
		return []Result{}, nil
	}

	summaries := summariesOf(papers)
	if forceRefresh {
		if _, err := s.model.Fit(summaries, s.cfg, true); err != nil {
			return nil, err
		}
	}

	candidates, err := s.model.Transform(summaries)
	if err != nil {
		return nil, err
	}
	queryVecs, err := s.model.Transform([]string{query})
	if err != nil {
		return nil, err
	}

	sims := lsa.Similarities(queryVecs[0], candidates)
	ranked := lsa.Rank(sims, limit)

	results := make([]Result, len(ranked))
	for i, idx := range ranked {
		results[i] = Result{Paper: papers[idx], Similarity: sims[idx]}
	}

	s.log.Debug("Semantic search", "query", query, "candidates", len(papers), "results", len(results))
	return results, nil
}

// Similar returns up to limit papers whose summaries are closest to the
// summary of the paper with entryID. The paper itself is excluded.
func (s *Searcher) Similar(entryID string, limit int) ([]Result, error) {
	if limit <= 0 {
		return []Result{}, nil
	}

	src, err := s.source.Get(entryID)
	if err != nil {
		return nil, err
	}

	// Ask for one extra so the source paper can be dropped.
	results, err := s.Search(src.Summary, limit+1, false)
	if err != nil {
		return nil, err
	}

	filtered := make([]Result, 0, limit)
	for _, r := range results {
		if r.Paper.EntryID == entryID {
			continue
		}
		if len(filtered) == limit {
			break
		}
		filtered = append(filtered, r)
	}
	return filtered, nil
}

// Train fits the model on every stored summary. With force false an
// already trained model is kept as is.
func (s *Searcher) Train(force bool) (TrainStats, error) {
	papers, err := s.source.ListAll()
	if err != nil {
		return TrainStats{}, err
	}
	if len(papers) == 0 {
		return TrainStats{}, fmt.Errorf("%w: no papers stored; run 'axt fetch' first", lsa.ErrTrainingConfig)
	}

	trained, err := s.model.Fit(summariesOf(papers), s.cfg, force)
	if err != nil {
		return TrainStats{}, err
	}
	return TrainStats{Trained: trained, Documents: len(papers), Model: s.model.Info()}, nil
}

// Model returns the underlying embedding model.
func (s *Searcher) Model() *lsa.Model {
	return s.model
}

func summariesOf(papers []paper.Paper) []string {
	out := make([]string, len(papers))
	for i, p := range papers {
		out[i] = p.Summary
	}
	return out
}
