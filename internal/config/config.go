// Package config loads arxivterm's configuration from defaults, a YAML file,
// an optional .env file and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/matsen/arxivterm/internal/lsa"
	"gopkg.in/yaml.v3"
)

// Config is the effective configuration, passed explicitly to constructors.
type Config struct {
	DataDir     string     `yaml:"data_dir" json:"data_dir"`
	DBPath      string     `yaml:"db_path" json:"db_path"`
	ModelPath   string     `yaml:"model_path" json:"model_path"`
	LogPath     string     `yaml:"log_path" json:"log_path"`
	DownloadDir string     `yaml:"download_dir" json:"download_dir"`
	PDFReader   string     `yaml:"pdf_reader" json:"pdf_reader"` // system, skim, zathura, evince, okular
	Categories  []string   `yaml:"categories" json:"categories"`
	FetchDays   int        `yaml:"fetch_days" json:"fetch_days"`
	ShowDays    int        `yaml:"show_days" json:"show_days"`
	SearchLimit int        `yaml:"search_limit" json:"search_limit"`
	LogLevel    string     `yaml:"log_level" json:"log_level"`
	Model       lsa.Config `yaml:"model" json:"model"`

	// Path is the config file this configuration was read from.
	Path string `yaml:"-" json:"config_path"`
}

// Environment variables that override the config file.
const (
	EnvConfig   = "ARXIVTERM_CONFIG"
	EnvDataDir  = "ARXIVTERM_DATA_DIR"
	EnvLogLevel = "ARXIVTERM_LOG_LEVEL"
)

// ErrInvalidConfig is returned when a configuration value is out of range.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidReaders lists the supported PDF reader values.
var ValidReaders = []string{"system", "skim", "zathura", "evince", "okular"}

// Default returns the built-in configuration. Paths derived from DataDir
// are left empty until resolve fills them in.
func Default() *Config {
	return &Config{
		DataDir:     DefaultDataDir(),
		LogPath:     DefaultLogPath(),
		DownloadDir: "arxiv_papers",
		PDFReader:   "system",
		Categories:  []string{"cs.AI", "cs.LG"},
		FetchDays:   7,
		ShowDays:    7,
		SearchLimit: 10,
		LogLevel:    "info",
		Model:       lsa.DefaultConfig(),
	}
}

// LoadOptions controls where Load looks for its inputs.
type LoadOptions struct {
	ConfigPath string // overrides ARXIVTERM_CONFIG and the XDG default
	EnvFile    string // defaults to ".env" in the working directory
}

// Load builds the effective configuration. Later sources win: defaults,
// the YAML file, then environment variables (including those set by the .env file).
// A missing config file or .env file is not an error.
func Load(opts LoadOptions) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading %s: %w", envFile, err)
	}

	path := opts.ConfigPath
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		path = ConfigPath()
	}

	cfg := Default()
	cfg.Path = ExpandPath(path)

	data, err := os.ReadFile(cfg.Path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", cfg.Path, err)
		}
	}

	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}

	cfg.resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolve expands ~ and fills in paths derived from DataDir.
func (c *Config) resolve() {
	c.DataDir = ExpandPath(c.DataDir)
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, DBFile)
	}
	if c.ModelPath == "" {
		c.ModelPath = filepath.Join(c.DataDir, ModelFile)
	}
	c.DBPath = ExpandPath(c.DBPath)
	c.ModelPath = ExpandPath(c.ModelPath)
	c.LogPath = ExpandPath(c.LogPath)
	c.DownloadDir = ExpandPath(c.DownloadDir)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir is empty", ErrInvalidConfig)
	}
	if err := ValidatePDFReader(c.PDFReader); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if len(c.Categories) == 0 {
		return fmt.Errorf("%w: categories is empty", ErrInvalidConfig)
	}
	for name, v := range map[string]int{"fetch_days": c.FetchDays, "show_days": c.ShowDays, "search_limit": c.SearchLimit} {
		if v < 1 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, name, v)
		}
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	if err := c.Model.Validate(); err != nil {
		return fmt.Errorf("%w: model: %v", ErrInvalidConfig, err)
	}
	return nil
}

// EnsureDirs creates the data, model and log directories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.DataDir, filepath.Dir(c.DBPath), filepath.Dir(c.ModelPath), filepath.Dir(c.LogPath)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// ValidatePDFReader checks that the reader value is valid.
func ValidatePDFReader(reader string) error {
	if reader == "" {
		return nil // Empty defaults to "system"
	}

	for _, valid := range ValidReaders {
		if reader == valid {
			return nil
		}
	}

	return fmt.Errorf("invalid pdf_reader: %s (valid: %v)", reader, ValidReaders)
}
