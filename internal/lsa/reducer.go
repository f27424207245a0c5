package lsa

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Reducer is a fitted truncated SVD projection from term space to a dense space.
type Reducer struct {
	// Components holds one row per output dimension, each of NumFeatures loadings.
	Components     [][]float64
	SingularValues []float64
}

// Dim returns the output dimensionality.
func (r *Reducer) Dim() int {
	return len(r.Components)
}

// Randomized decomposition settings, following Halko, Martinsson and Tropp.
const (
	svdOversample = 10
	svdSeed       = 42
)

// FitReducer computes the top dim right singular vectors of the document-term matrix.
// Small corpora get an exact thin SVD. Larger ones use a randomized range
// finder over the sparse rows, which only ever factorizes matrices with
// dim+oversample columns.
// If the corpus has rank below dim, the remaining components are zero.
func FitReducer(rows []SparseVector, numFeatures, dim int) (*Reducer, error) {
	if dim > numFeatures {
		return nil, fmt.Errorf("%w: embedding_dim %d exceeds vocabulary size %d", ErrTrainingConfig, dim, numFeatures)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty training corpus", ErrTrainingConfig)
	}

	var (
		v      *mat.Dense
		values []float64
		err    error
	)
	if dim+svdOversample >= min(len(rows), numFeatures) {
		v, values, err = exactSVD(rows, numFeatures)
	} else {
		v, values, err = randomizedSVD(rows, numFeatures, dim)
	}
	if err != nil {
		return nil, err
	}
	_, rank := v.Dims()

	r := &Reducer{
		Components:     make([][]float64, dim),
		SingularValues: make([]float64, dim),
	}
	for j := 0; j < dim; j++ {
		comp := make([]float64, numFeatures)
		if j < rank {
			for t := 0; t < numFeatures; t++ {
				comp[t] = v.At(t, j)
			}
			flipSign(comp)
			r.SingularValues[j] = values[j]
		}
		r.Components[j] = comp
	}
	return r, nil
}

// exactSVD returns the right singular vectors (numFeatures x min(n, numFeatures))
// and singular values of the dense document-term matrix.
func exactSVD(rows []SparseVector, numFeatures int) (*mat.Dense, []float64, error) {
	x := mat.NewDense(len(rows), numFeatures, nil)
	for i, row := range rows {
		for k, idx := range row.Indices {
			x.Set(i, idx, row.Values[k])
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return nil, nil, fmt.Errorf("singular value decomposition failed to converge")
	}
	var v mat.Dense
	svd.VTo(&v)
	return &v, svd.Values(nil), nil
}

// randomizedSVD approximates the top dim right singular vectors. It samples the
// range of X with a seeded Gaussian matrix, sharpens it with power iterations,
// then takes the exact SVD of the small projection Q^T X.
func randomizedSVD(rows []SparseVector, numFeatures, dim int) (*mat.Dense, []float64, error) {
	n := len(rows)
	l := dim + svdOversample
	iters := 4
	if float64(dim) < 0.1*float64(min(n, numFeatures)) {
		iters = 7
	}

	rng := rand.New(rand.NewPCG(svdSeed, svdSeed))
	omega := mat.NewDense(numFeatures, l, nil)
	for i := 0; i < numFeatures; i++ {
		for j := 0; j < l; j++ {
			omega.Set(i, j, rng.NormFloat64())
		}
	}

	q, err := orthonormalize(mulSparse(rows, omega))
	if err != nil {
		return nil, nil, err
	}
	for i := 0; i < iters; i++ {
		z, err := orthonormalize(mulSparseT(rows, numFeatures, q))
		if err != nil {
			return nil, nil, err
		}
		if q, err = orthonormalize(mulSparse(rows, z)); err != nil {
			return nil, nil, err
		}
	}

	// B = Q^T X is l x numFeatures; its right singular vectors approximate those of X.
	var b mat.Dense
	b.CloneFrom(mulSparseT(rows, numFeatures, q).T())

	var svd mat.SVD
	if ok := svd.Factorize(&b, mat.SVDThin); !ok {
		return nil, nil, fmt.Errorf("singular value decomposition failed to converge")
	}
	var v mat.Dense
	svd.VTo(&v)
	return &v, svd.Values(nil), nil
}

// orthonormalize returns an orthonormal basis for the columns of y.
func orthonormalize(y *mat.Dense) (*mat.Dense, error) {
	var svd mat.SVD
	if ok := svd.Factorize(y, mat.SVDThin); !ok {
		return nil, fmt.Errorf("singular value decomposition failed to converge")
	}
	var u mat.Dense
	svd.UTo(&u)
	return &u, nil
}

// mulSparse returns X*m where X has the given sparse rows.
func mulSparse(rows []SparseVector, m *mat.Dense) *mat.Dense {
	_, c := m.Dims()
	out := mat.NewDense(len(rows), c, nil)
	for i, row := range rows {
		dst := out.RawRowView(i)
		for k, idx := range row.Indices {
			floats.AddScaled(dst, row.Values[k], m.RawRowView(idx))
		}
	}
	return out
}

// mulSparseT returns X^T*m where X has the given sparse rows.
func mulSparseT(rows []SparseVector, numFeatures int, m *mat.Dense) *mat.Dense {
	_, c := m.Dims()
	out := mat.NewDense(numFeatures, c, nil)
	for i, row := range rows {
		src := m.RawRowView(i)
		for k, idx := range row.Indices {
			floats.AddScaled(out.RawRowView(idx), row.Values[k], src)
		}
	}
	return out
}

// flipSign makes the largest-magnitude loading positive so that
// components are deterministic across runs.
func flipSign(comp []float64) {
	var maxAbs, sign float64 = 0, 1
	for _, c := range comp {
		if math.Abs(c) > maxAbs {
			maxAbs = math.Abs(c)
			sign = math.Copysign(1, c)
		}
	}
	if sign < 0 {
		for i := range comp {
			comp[i] = -comp[i]
		}
	}
}

// Transform projects a sparse term vector onto the components.
func (r *Reducer) Transform(vec SparseVector) []float64 {
	out := make([]float64, len(r.Components))
	for j, comp := range r.Components {
		var sum float64
		for k, idx := range vec.Indices {
			sum += vec.Values[k] * comp[idx]
		}
		out[j] = sum
	}
	return out
}

// Normalizer scales dense vectors to unit L2 norm. Zero vectors are left as is.
type Normalizer struct{}

// Transform normalizes v in place and returns it.
func (Normalizer) Transform(v []float64) []float64 {
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] /= norm
	}
	return v
}
