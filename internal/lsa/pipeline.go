package lsa

// Pipeline is the fixed three-stage embedding pipeline:
// TF-IDF vectorizer, truncated SVD reducer, L2 normalizer.
type Pipeline struct {
	Vectorizer *Vectorizer
	Reducer    *Reducer
	Normalizer Normalizer
}

// FitPipeline trains every stage on the corpus in order.
func FitPipeline(texts []string, cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	vectorizer, err := FitVectorizer(texts, cfg)
	if err != nil {
		return nil, err
	}

	rows := make([]SparseVector, len(texts))
	for i, text := range texts {
		rows[i] = vectorizer.Transform(text)
	}

	reducer, err := FitReducer(rows, vectorizer.NumFeatures(), cfg.EmbeddingDim)
	if err != nil {
		return nil, err
	}

	return &Pipeline{Vectorizer: vectorizer, Reducer: reducer}, nil
}

// Transform embeds each text as a unit-length (or zero) dense vector.
func (p *Pipeline) Transform(texts []string) [][]float64 {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = p.Normalizer.Transform(p.Reducer.Transform(p.Vectorizer.Transform(text)))
	}
	return out
}
