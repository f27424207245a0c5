package config

import (
	"os"
	"path/filepath"
)

const (
	// AppDir is the directory name under the XDG base directories.
	AppDir = "arxivterm"
	// ConfigFile is the config file name.
	ConfigFile = "config.yml"
	// DBFile is the paper store file name inside the data directory.
	DBFile = "papers.db"
	// ModelFile is the embedding model artifact name inside the data directory.
	ModelFile = "model.gob"
	// LogFile is the log file name inside the state directory.
	LogFile = "arxivterm.log"
)

// ConfigPath returns the path to the config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/arxivterm/config.yml.
func ConfigPath() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), AppDir, ConfigFile)
}

// DefaultDataDir returns $XDG_DATA_HOME/arxivterm, defaulting to ~/.local/share/arxivterm.
func DefaultDataDir() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share")), AppDir)
}

// DefaultLogPath returns $XDG_STATE_HOME/arxivterm/arxivterm.log,
// defaulting to ~/.local/state/arxivterm/arxivterm.log.
func DefaultLogPath() string {
	return filepath.Join(xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state")), AppDir, LogFile)
}

func xdgDir(envVar, homeRelative string) string {
	if dir := os.Getenv(envVar); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return homeRelative
	}
	return filepath.Join(home, homeRelative)
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}
