// Package pdf downloads, validates and opens arXiv paper PDFs.
package pdf

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/matsen/arxivterm/internal/paper"
)

// ErrNotDownloaded is returned when a paper's PDF is not in the download directory.
var ErrNotDownloaded = errors.New("PDF not downloaded")

// Opener handles resolving and opening downloaded PDF files.
type Opener struct {
	dir       string
	pdfReader string
}

// NewOpener creates a new PDF opener for PDFs stored in dir.
func NewOpener(dir, pdfReader string) *Opener {
	if pdfReader == "" {
		pdfReader = "system"
	}
	return &Opener{
		dir:       dir,
		pdfReader: pdfReader,
	}
}

// ResolvePath returns the path of the downloaded PDF for p.
func (o *Opener) ResolvePath(p paper.Paper) (string, error) {
	id := p.FileName()
	if id == "" {
		return "", fmt.Errorf("paper has no entry id")
	}

	fullPath := filepath.Join(o.dir, id+".pdf")

	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotDownloaded, fullPath)
		}
		return "", fmt.Errorf("checking PDF: %w", err)
	}

	return fullPath, nil
}

// Open opens a PDF file using the configured reader.
// The fullPath should be an absolute path to an existing PDF file.
func (o *Opener) Open(fullPath string) error {
	// Fail fast if file doesn't exist
	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("PDF file does not exist: %s", fullPath)
		}
		return fmt.Errorf("checking PDF file: %w", err)
	}

	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = o.darwinCommand(fullPath)
	case "linux":
		cmd = o.linuxCommand(fullPath)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}

// darwinCommand returns the command to open a PDF on macOS.
func (o *Opener) darwinCommand(path string) *exec.Cmd {
	switch o.pdfReader {
	case "skim":
		return exec.Command("open", "-a", "Skim", path)
	case "preview":
		return exec.Command("open", "-a", "Preview", path)
	default: // "system"
		return exec.Command("open", path)
	}
}

// linuxCommand returns the command to open a PDF on Linux.
func (o *Opener) linuxCommand(path string) *exec.Cmd {
	switch o.pdfReader {
	case "zathura":
		return exec.Command("zathura", path)
	case "evince":
		return exec.Command("evince", path)
	case "okular":
		return exec.Command("okular", path)
	default: // "system"
		return exec.Command("xdg-open", path)
	}
}
