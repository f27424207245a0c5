package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/matsen/arxivterm/internal/paper"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (1MB per line).
const MaxJSONLLineCapacity = 1024 * 1024

// ReadJSONL reads all papers from a JSONL file.
func ReadJSONL(path string) ([]paper.Paper, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening papers file: %w", err)
	}
	defer f.Close()

	var papers []paper.Paper
	scanner := bufio.NewScanner(f)

	// Increase buffer size for long abstracts
	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue // Skip empty lines
		}

		var p paper.Paper
		if err := json.Unmarshal(line, &p); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		papers = append(papers, p)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading papers file: %w", err)
	}

	return papers, nil
}

// WriteJSONL writes all papers to a JSONL file, replacing existing content.
// The file is written to a temporary path and renamed into place.
func WriteJSONL(path string, papers []paper.Paper) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}
	}

	tempPath := path + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("creating papers file: %w", err)
	}

	w := bufio.NewWriter(f)
	for i, p := range papers {
		data, err := json.Marshal(p)
		if err != nil {
			f.Close()
			os.Remove(tempPath)
			return fmt.Errorf("encoding paper %d: %w", i, err)
		}
		w.Write(data)
		w.WriteByte('\n')
	}

	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("writing papers: %w", err)
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
