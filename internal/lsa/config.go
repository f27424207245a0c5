// Package lsa implements a latent semantic analysis text embedding model:
// a TF-IDF vectorizer, a truncated SVD projection and L2 normalization,
// trained once over a corpus and persisted to disk.
package lsa

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Errors returned by model operations.
var (
	ErrNotTrained         = errors.New("embedding model is not trained")
	ErrTrainingConfig     = errors.New("invalid training configuration")
	ErrUnsupportedVersion = errors.New("unsupported model version")
)

// DocFrequency is a document-frequency bound: either an absolute document
// count or a fraction of the corpus.
type DocFrequency struct {
	Value    float64
	Absolute bool
}

// Count returns an absolute document-count bound.
func Count(n int) DocFrequency {
	return DocFrequency{Value: float64(n), Absolute: true}
}

// Fraction returns a bound expressed as a fraction of the corpus size.
func Fraction(f float64) DocFrequency {
	return DocFrequency{Value: f}
}

// resolve converts the bound to a document count for a corpus of nDocs documents.
func (d DocFrequency) resolve(nDocs int) float64 {
	if d.Absolute {
		return d.Value
	}
	return d.Value * float64(nDocs)
}

// String renders counts as integers and fractions with a decimal point,
// so the text form parses back to the same kind of bound.
func (d DocFrequency) String() string {
	if d.Absolute {
		return strconv.Itoa(int(d.Value))
	}
	s := strconv.FormatFloat(d.Value, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ParseDocFrequency parses "5" as a count and "0.7" or "1.0" as a fraction.
func ParseDocFrequency(s string) (DocFrequency, error) {
	s = strings.TrimSpace(s)
	if strings.ContainsAny(s, ".eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return DocFrequency{}, fmt.Errorf("parsing document frequency %q: %w", s, err)
		}
		return Fraction(f), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return DocFrequency{}, fmt.Errorf("parsing document frequency %q: %w", s, err)
	}
	return Count(n), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *DocFrequency) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseDocFrequency(node.Value)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d DocFrequency) MarshalYAML() (interface{}, error) {
	tag := "!!float"
	if d.Absolute {
		tag = "!!int"
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: d.String()}, nil
}

// MarshalJSON implements json.Marshaler.
func (d DocFrequency) MarshalJSON() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *DocFrequency) UnmarshalJSON(data []byte) error {
	parsed, err := ParseDocFrequency(string(data))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Config holds the training parameters of the pipeline.
type Config struct {
	MinDF        DocFrequency `yaml:"min_df" json:"min_df"`
	MaxDF        DocFrequency `yaml:"max_df" json:"max_df"`
	NgramMin     int          `yaml:"ngram_min" json:"ngram_min"`
	NgramMax     int          `yaml:"ngram_max" json:"ngram_max"`
	MaxFeatures  int          `yaml:"max_features" json:"max_features"` // 0 = unlimited
	SublinearTF  bool         `yaml:"sublinear_tf" json:"sublinear_tf"`
	EmbeddingDim int          `yaml:"embedding_dim" json:"embedding_dim"`
}

// DefaultConfig returns the default training parameters.
func DefaultConfig() Config {
	return Config{
		MinDF:        Count(5),
		MaxDF:        Fraction(0.7),
		NgramMin:     1,
		NgramMax:     2,
		MaxFeatures:  3000,
		SublinearTF:  true,
		EmbeddingDim: 64,
	}
}

// Validate checks parameters that do not depend on the corpus.
func (c Config) Validate() error {
	for name, df := range map[string]DocFrequency{"min_df": c.MinDF, "max_df": c.MaxDF} {
		if df.Value < 0 {
			return fmt.Errorf("%w: %s must be non-negative, got %s", ErrTrainingConfig, name, df)
		}
		if !df.Absolute && df.Value > 1 {
			return fmt.Errorf("%w: %s fraction must be in [0, 1], got %s", ErrTrainingConfig, name, df)
		}
	}
	if c.NgramMin < 1 || c.NgramMax < c.NgramMin {
		return fmt.Errorf("%w: invalid n-gram range (%d, %d)", ErrTrainingConfig, c.NgramMin, c.NgramMax)
	}
	if c.MaxFeatures < 0 {
		return fmt.Errorf("%w: max_features must be non-negative, got %d", ErrTrainingConfig, c.MaxFeatures)
	}
	if c.EmbeddingDim < 1 {
		return fmt.Errorf("%w: embedding_dim must be positive, got %d", ErrTrainingConfig, c.EmbeddingDim)
	}
	return nil
}
