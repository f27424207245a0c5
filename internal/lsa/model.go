package lsa

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/matsen/arxivterm/internal/logging"
)

// CurrentModelVersion is the artifact format version.
// Increment this when making breaking changes to the artifact format.
const CurrentModelVersion = 1

// artifact is the on-disk form of a trained model.
type artifact struct {
	Version    int
	Config     Config
	TrainedAt  time.Time
	Documents  int
	Vectorizer *Vectorizer
	Reducer    *Reducer
}

// Info describes the state of a model.
type Info struct {
	Path           string    `json:"path"`
	Trained        bool      `json:"trained"`
	TrainedAt      time.Time `json:"trained_at,omitempty"`
	Documents      int       `json:"documents,omitempty"`
	VocabularySize int       `json:"vocabulary_size,omitempty"`
	EmbeddingDim   int       `json:"embedding_dim,omitempty"`
	Config         *Config   `json:"config,omitempty"`
}

// Model is an embedding model bound to a single artifact path.
type Model struct {
	path     string
	log      *logging.Logger
	pipeline *Pipeline
	meta     artifact
}

// Open binds a model to path, loading the artifact if the file exists.
// A missing file yields an untrained model.
func Open(path string, log *logging.Logger) (*Model, error) {
	if log == nil {
		log = logging.Nop()
	}
	m := &Model{path: path, log: log}

	a, err := load(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, err
	}
	m.install(a)
	return m, nil
}

// Path returns the artifact path.
func (m *Model) Path() string {
	return m.path
}

// IsTrained reports whether a fitted pipeline is available.
func (m *Model) IsTrained() bool {
	return m.pipeline != nil
}

// Info returns metadata about the model.
func (m *Model) Info() Info {
	info := Info{Path: m.path, Trained: m.IsTrained()}
	if !info.Trained {
		return info
	}
	cfg := m.meta.Config
	info.TrainedAt = m.meta.TrainedAt
	info.Documents = m.meta.Documents
	info.VocabularySize = m.pipeline.Vectorizer.NumFeatures()
	info.EmbeddingDim = m.pipeline.Reducer.Dim()
	info.Config = &cfg
	return info
}

// Fit trains the pipeline on texts and saves it to the artifact path.
// If the model is already trained and force is false, nothing happens and
// Fit returns false. The model changes only after the artifact is saved.
func (m *Model) Fit(texts []string, cfg Config, force bool) (bool, error) {
	if m.IsTrained() && !force {
		m.log.Info("Model already trained", "path", m.path)
		return false, nil
	}

	pipeline, err := FitPipeline(texts, cfg)
	if err != nil {
		return false, err
	}

	a := artifact{
		Version:    CurrentModelVersion,
		Config:     cfg,
		TrainedAt:  time.Now().UTC(),
		Documents:  len(texts),
		Vectorizer: pipeline.Vectorizer,
		Reducer:    pipeline.Reducer,
	}
	if err := save(m.path, a); err != nil {
		return false, err
	}
	m.install(&a)

	m.log.Info("Trained and saved model",
		"path", m.path,
		"documents", a.Documents,
		"terms", pipeline.Vectorizer.NumFeatures(),
		"dim", pipeline.Reducer.Dim())
	return true, nil
}

// Transform embeds texts with the fitted pipeline.
func (m *Model) Transform(texts []string) ([][]float64, error) {
	if !m.IsTrained() {
		return nil, ErrNotTrained
	}
	return m.pipeline.Transform(texts), nil
}

func (m *Model) install(a *artifact) {
	m.meta = *a
	m.pipeline = &Pipeline{Vectorizer: a.Vectorizer, Reducer: a.Reducer}
}

// save writes the artifact to a uniquely named temp file, then renames it over path.
func save(path string, a artifact) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating model directory: %w", err)
	}

	tempPath := path + "." + uuid.NewString() + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	if err := gob.NewEncoder(f).Encode(&a); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("encoding model: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("closing file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// load reads an artifact. A missing file is returned as an os.IsNotExist error.
func load(path string) (*artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("opening model file: %w", err)
	}
	defer f.Close()

	var a artifact
	if err := gob.NewDecoder(f).Decode(&a); err != nil {
		return nil, fmt.Errorf("decoding model: %w", err)
	}

	if a.Version != CurrentModelVersion {
		return nil, fmt.Errorf("%w: got %d, want %d (retrain with 'axt train --force')",
			ErrUnsupportedVersion, a.Version, CurrentModelVersion)
	}
	if a.Vectorizer == nil || a.Reducer == nil {
		return nil, fmt.Errorf("decoding model: incomplete artifact")
	}
	return &a, nil
}
