package semantic

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/matsen/arxivterm/internal/lsa"
	"github.com/matsen/arxivterm/internal/paper"
	"github.com/matsen/arxivterm/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var summaries = []string{
	"Graph neural networks predict properties of small molecules.",
	"Protein folding structures learned with deep networks.",
	"Reinforcement learning agents master classic board games.",
	"Bayesian inference of phylogenetic trees from sequence alignments.",
	"Quantum error correction codes on superconducting hardware.",
}

func testConfig() lsa.Config {
	return lsa.Config{
		MinDF:        lsa.Count(1),
		MaxDF:        lsa.Fraction(1.0),
		NgramMin:     1,
		NgramMax:     1,
		SublinearTF:  true,
		EmbeddingDim: len(summaries),
	}
}

func setup(t *testing.T, n int) (*storage.DB, *Searcher) {
	t.Helper()
	dir := t.TempDir()

	db, err := storage.OpenDB(filepath.Join(dir, "papers.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	papers := make([]paper.Paper, n)
	for i := 0; i < n; i++ {
		papers[i] = paper.Paper{
			EntryID:   fmt.Sprintf("http://arxiv.org/abs/2403.0000%dv1", i+1),
			Published: base.Add(time.Duration(i) * time.Hour),
			Updated:   base.Add(time.Duration(i) * time.Hour),
			Title:     fmt.Sprintf("Paper %d", i+1),
			Summary:   summaries[i],
		}
	}
	if n > 0 {
		_, err = db.UpsertMany(papers)
		require.NoError(t, err)
	}

	model, err := lsa.Open(filepath.Join(dir, "model.gob"), nil)
	require.NoError(t, err)

	return db, NewSearcher(db, model, testConfig(), nil)
}

func TestSearchEndToEnd(t *testing.T) {
	_, s := setup(t, 5)

	results, err := s.Search("phylogenetic trees inferred with Bayesian methods", 1, true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "http://arxiv.org/abs/2403.00004v1", results[0].Paper.EntryID)
	assert.Greater(t, results[0].Similarity, 0.5)
	assert.True(t, s.Model().IsTrained())
}

func TestSearchOrderingAndLimit(t *testing.T) {
	_, s := setup(t, 5)

	results, err := s.Search("quantum codes", 3, true)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "Paper 5", results[0].Paper.Title)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Similarity, results[i].Similarity)
	}

	all, err := s.Search("quantum codes", 100, false)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestSearchNotTrained(t *testing.T) {
	_, s := setup(t, 5)

	_, err := s.Search("anything", 5, false)
	assert.True(t, errors.Is(err, lsa.ErrNotTrained), "got %v", err)
}

func TestSearchShortCircuits(t *testing.T) {
	t.Run("empty store", func(t *testing.T) {
		_, s := setup(t, 0)
		results, err := s.Search("anything", 5, false)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("non-positive limit", func(t *testing.T) {
		_, s := setup(t, 5)
		for _, limit := range []int{0, -3} {
			results, err := s.Search("anything", limit, false)
			require.NoError(t, err)
			assert.Empty(t, results)
		}
	})
}

func TestSearchAfterDeleteAll(t *testing.T) {
	db, s := setup(t, 5)
	_, err := s.Train(false)
	require.NoError(t, err)

	require.NoError(t, db.DeleteAll())
	results, err := s.Search("quantum", 5, false)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSimilar(t *testing.T) {
	_, s := setup(t, 5)
	_, err := s.Train(false)
	require.NoError(t, err)

	id := "http://arxiv.org/abs/2403.00002v1"
	results, err := s.Similar(id, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.NotEqual(t, id, r.Paper.EntryID)
	}

	results, err = s.Similar(id, 10)
	require.NoError(t, err)
	assert.Len(t, results, 4)

	_, err = s.Similar("http://arxiv.org/abs/missing", 2)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTrain(t *testing.T) {
	_, s := setup(t, 5)

	stats, err := s.Train(false)
	require.NoError(t, err)
	assert.True(t, stats.Trained)
	assert.Equal(t, 5, stats.Documents)
	assert.Equal(t, 5, stats.Model.EmbeddingDim)

	stats, err = s.Train(false)
	require.NoError(t, err)
	assert.False(t, stats.Trained)

	stats, err = s.Train(true)
	require.NoError(t, err)
	assert.True(t, stats.Trained)
}

func TestTrainEmptyStore(t *testing.T) {
	_, s := setup(t, 0)

	_, err := s.Train(true)
	assert.ErrorIs(t, err, lsa.ErrTrainingConfig)
	assert.False(t, s.Model().IsTrained())
}
