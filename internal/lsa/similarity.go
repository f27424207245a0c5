package lsa

import (
	"math"
	"sort"
)

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns 0 when either vector is zero or the lengths differ.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	denominator := math.Sqrt(normA) * math.Sqrt(normB)
	if denominator == 0 {
		return 0
	}
	return dot / denominator
}

// Similarities scores every candidate against the query.
func Similarities(query []float64, candidates [][]float64) []float64 {
	sims := make([]float64, len(candidates))
	for i, c := range candidates {
		sims[i] = CosineSimilarity(query, c)
	}
	return sims
}

// Rank returns the indices of the k highest scores, highest first.
// Ties keep their original order. k <= 0 yields no indices.
func Rank(scores []float64, k int) []int {
	if k <= 0 {
		return []int{}
	}

	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return scores[idx[i]] > scores[idx[j]]
	})

	if len(idx) > k {
		idx = idx[:k]
	}
	return idx
}
