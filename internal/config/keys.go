package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/matsen/arxivterm/internal/lsa"
	"gopkg.in/yaml.v3"
)

// ErrUnknownKey is returned for a config key that cannot be read or set.
var ErrUnknownKey = errors.New("unknown config key")

type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindBool
	kindList
	kindDocFrequency
)

var keyKinds = map[string]keyKind{
	"data_dir":            kindString,
	"db_path":             kindString,
	"model_path":          kindString,
	"log_path":            kindString,
	"download_dir":        kindString,
	"pdf_reader":          kindString,
	"log_level":           kindString,
	"categories":          kindList,
	"fetch_days":          kindInt,
	"show_days":           kindInt,
	"search_limit":        kindInt,
	"model.min_df":        kindDocFrequency,
	"model.max_df":        kindDocFrequency,
	"model.ngram_min":     kindInt,
	"model.ngram_max":     kindInt,
	"model.max_features":  kindInt,
	"model.sublinear_tf":  kindBool,
	"model.embedding_dim": kindInt,
}

// Keys returns the settable keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(keyKinds))
	for k := range keyKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the effective value of key as text.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "data_dir":
		return c.DataDir, nil
	case "db_path":
		return c.DBPath, nil
	case "model_path":
		return c.ModelPath, nil
	case "log_path":
		return c.LogPath, nil
	case "download_dir":
		return c.DownloadDir, nil
	case "pdf_reader":
		return c.PDFReader, nil
	case "log_level":
		return c.LogLevel, nil
	case "categories":
		return strings.Join(c.Categories, ","), nil
	case "fetch_days":
		return strconv.Itoa(c.FetchDays), nil
	case "show_days":
		return strconv.Itoa(c.ShowDays), nil
	case "search_limit":
		return strconv.Itoa(c.SearchLimit), nil
	case "model.min_df":
		return c.Model.MinDF.String(), nil
	case "model.max_df":
		return c.Model.MaxDF.String(), nil
	case "model.ngram_min":
		return strconv.Itoa(c.Model.NgramMin), nil
	case "model.ngram_max":
		return strconv.Itoa(c.Model.NgramMax), nil
	case "model.max_features":
		return strconv.Itoa(c.Model.MaxFeatures), nil
	case "model.sublinear_tf":
		return strconv.FormatBool(c.Model.SublinearTF), nil
	case "model.embedding_dim":
		return strconv.Itoa(c.Model.EmbeddingDim), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
}

// Set writes key=value into the YAML file at path, keeping every other
// entry as written. The resulting file must load as a valid configuration.
func Set(path, key, value string) error {
	kind, ok := keyKinds[key]
	if !ok {
		return fmt.Errorf("%w: %s (valid: %s)", ErrUnknownKey, key, strings.Join(Keys(), ", "))
	}

	valueNode, err := buildNode(kind, value)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}

	var doc yaml.Node
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode}}}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("parsing config %s: top level is not a mapping", path)
	}

	setPath(root, strings.Split(key, "."), valueNode)

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	check := Default()
	if err := yaml.Unmarshal(out, check); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	check.resolve()
	if err := check.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func buildNode(kind keyKind, value string) (*yaml.Node, error) {
	value = strings.TrimSpace(value)
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %q", value)
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(n)}, nil
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("not a boolean: %q", value)
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(b)}, nil
	case kindList:
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: item})
			}
		}
		return seq, nil
	case kindDocFrequency:
		df, err := lsa.ParseDocFrequency(value)
		if err != nil {
			return nil, err
		}
		node, err := df.MarshalYAML()
		if err != nil {
			return nil, err
		}
		return node.(*yaml.Node), nil
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}, nil
	}
}

// setPath sets the value at a dotted path inside a mapping node,
// creating intermediate mappings as needed.
func setPath(mapping *yaml.Node, path []string, value *yaml.Node) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value != path[0] {
			continue
		}
		if len(path) == 1 {
			mapping.Content[i+1] = value
			return
		}
		child := mapping.Content[i+1]
		if child.Kind != yaml.MappingNode {
			child = &yaml.Node{Kind: yaml.MappingNode}
			mapping.Content[i+1] = child
		}
		setPath(child, path[1:], value)
		return
	}

	keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: path[0]}
	if len(path) == 1 {
		mapping.Content = append(mapping.Content, keyNode, value)
		return
	}
	child := &yaml.Node{Kind: yaml.MappingNode}
	mapping.Content = append(mapping.Content, keyNode, child)
	setPath(child, path[1:], value)
}
