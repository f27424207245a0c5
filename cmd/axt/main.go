// Package main provides the axt CLI entry point.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/matsen/arxivterm/internal/config"
	"github.com/matsen/arxivterm/internal/logging"
	"github.com/matsen/arxivterm/internal/lsa"
	"github.com/matsen/arxivterm/internal/paper"
	"github.com/matsen/arxivterm/internal/semantic"
	"github.com/matsen/arxivterm/internal/storage"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	configPath  string
	verbose     bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// SilenceErrors is set, so cobra's own errors (unknown flags, bad args) are printed here.
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "axt",
	Short: "Track, search and read recent arXiv papers from the terminal",
	Long: `axt keeps a local library of recent arXiv papers.

Core features:
  - Fetch new submissions for the configured categories
  - Substring search over titles and abstracts
  - Semantic search with a locally trained LSA embedding model
  - PDF download and opening
  - An MCP server so LLM agents can query the library

Papers live in a single SQLite file under the data directory.
All commands output JSON by default; pass --human for readable output.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/arxivterm/config.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Also write log records to stderr")
	rootCmd.Version = Version
}

// mustLoadConfig loads configuration and creates its directories, exits on error.
func mustLoadConfig() *config.Config {
	cfg, err := config.Load(config.LoadOptions{ConfigPath: configPath})
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	if err := cfg.EnsureDirs(); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return cfg
}

// mustOpenLogger opens the log file named by the config, exits on error.
// The caller should defer Sync on the returned logger.
func mustOpenLogger(cfg *config.Config) *logging.Logger {
	log, err := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		LogPath: cfg.LogPath,
		Stderr:  verbose,
	})
	if err != nil {
		exitWithError(ExitConfigError, "opening log: %v", err)
	}
	return log
}

// mustOpenDatabase opens the SQLite database, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenDatabase(cfg *config.Config, log *logging.Logger) *storage.DB {
	db, err := storage.OpenDB(cfg.DBPath, log)
	if err != nil {
		exitWithError(ExitConfigError, "opening database: %v", err)
	}
	return db
}

// mustOpenModel loads the embedding model, exits on error.
// A missing model file yields an untrained model, not an error.
func mustOpenModel(cfg *config.Config, log *logging.Logger) *lsa.Model {
	model, err := lsa.Open(cfg.ModelPath, log)
	if err != nil {
		if errors.Is(err, lsa.ErrUnsupportedVersion) {
			exitWithError(ExitModelNotTrained, "%v", err)
		}
		exitWithError(ExitDataError, "loading model: %v", err)
	}
	return model
}

// session bundles the resources most commands need.
type session struct {
	cfg *config.Config
	log *logging.Logger
	db  *storage.DB
}

// mustOpenSession loads config, logger and database, exits on error.
func mustOpenSession() *session {
	cfg := mustLoadConfig()
	log := mustOpenLogger(cfg)
	return &session{cfg: cfg, log: log, db: mustOpenDatabase(cfg, log)}
}

// searcher builds a semantic searcher over the session's database.
func (s *session) searcher() *semantic.Searcher {
	return semantic.NewSearcher(s.db, mustOpenModel(s.cfg, s.log), s.cfg.Model, s.log)
}

// mustGetPaper looks up a paper by entry ID, exits on error.
func (s *session) mustGetPaper(entryID string) *paper.Paper {
	p, err := s.db.Get(entryID)
	if err != nil {
		exitWithError(exitCodeFor(err), "%v", err)
	}
	return p
}

func (s *session) Close() {
	s.db.Close()
	s.log.Sync()
}
