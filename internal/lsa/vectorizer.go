package lsa

import (
	"fmt"
	"math"
	"sort"
)

// SparseVector is a sparse row of term weights, sorted by index.
type SparseVector struct {
	Indices []int
	Values  []float64
}

// Vectorizer is a fitted TF-IDF term weighting stage.
type Vectorizer struct {
	Vocabulary  map[string]int // term -> column index, columns in term order
	IDF         []float64
	NgramMin    int
	NgramMax    int
	SublinearTF bool
}

// NumFeatures returns the vocabulary size.
func (v *Vectorizer) NumFeatures() int {
	return len(v.IDF)
}

// FitVectorizer learns the vocabulary and IDF weights of a corpus.
func FitVectorizer(docs []string, cfg Config) (*Vectorizer, error) {
	nDocs := len(docs)
	if nDocs == 0 {
		return nil, fmt.Errorf("%w: empty training corpus", ErrTrainingConfig)
	}

	docFreq := make(map[string]int)
	termFreq := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool)
		for _, term := range analyze(doc, cfg.NgramMin, cfg.NgramMax) {
			termFreq[term]++
			if !seen[term] {
				seen[term] = true
				docFreq[term]++
			}
		}
	}

	maxDocCount := cfg.MaxDF.resolve(nDocs)
	minDocCount := cfg.MinDF.resolve(nDocs)
	if maxDocCount < minDocCount {
		return nil, fmt.Errorf("%w: max_df %s corresponds to fewer documents than min_df %s", ErrTrainingConfig, cfg.MaxDF, cfg.MinDF)
	}

	var terms []string
	for term, df := range docFreq {
		if float64(df) >= minDocCount && float64(df) <= maxDocCount {
			terms = append(terms, term)
		}
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w: after pruning, no terms remain; try a lower min_df or a higher max_df", ErrTrainingConfig)
	}

	if cfg.MaxFeatures > 0 && len(terms) > cfg.MaxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if termFreq[terms[i]] != termFreq[terms[j]] {
				return termFreq[terms[i]] > termFreq[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:cfg.MaxFeatures]
	}
	sort.Strings(terms)

	v := &Vectorizer{
		Vocabulary:  make(map[string]int, len(terms)),
		IDF:         make([]float64, len(terms)),
		NgramMin:    cfg.NgramMin,
		NgramMax:    cfg.NgramMax,
		SublinearTF: cfg.SublinearTF,
	}
	for i, term := range terms {
		v.Vocabulary[term] = i
		// Smoothed IDF: as if one extra document contained every term.
		v.IDF[i] = math.Log(float64(1+nDocs)/float64(1+docFreq[term])) + 1
	}
	return v, nil
}

// Transform maps a document to its L2-normalized TF-IDF vector.
// Terms outside the vocabulary are ignored.
func (v *Vectorizer) Transform(doc string) SparseVector {
	counts := make(map[int]int)
	for _, term := range analyze(doc, v.NgramMin, v.NgramMax) {
		if idx, ok := v.Vocabulary[term]; ok {
			counts[idx]++
		}
	}

	vec := SparseVector{
		Indices: make([]int, 0, len(counts)),
		Values:  make([]float64, 0, len(counts)),
	}
	for idx := range counts {
		vec.Indices = append(vec.Indices, idx)
	}
	sort.Ints(vec.Indices)

	var norm float64
	for _, idx := range vec.Indices {
		tf := float64(counts[idx])
		if v.SublinearTF {
			tf = 1 + math.Log(tf)
		}
		w := tf * v.IDF[idx]
		vec.Values = append(vec.Values, w)
		norm += w * w
	}

	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec.Values {
			vec.Values[i] /= norm
		}
	}
	return vec
}
