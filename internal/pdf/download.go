package pdf

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/matsen/arxivterm/internal/logging"
	"github.com/matsen/arxivterm/internal/paper"
)

// PDFBaseURL serves arXiv PDFs by short identifier.
const PDFBaseURL = "https://arxiv.org/pdf"

// Download is the outcome of a download request.
type Download struct {
	Path           string `json:"path"`
	AlreadyPresent bool   `json:"already_present"` // the file existed and was not fetched again
	Pages          int    `json:"pages,omitempty"`
}

// Downloader saves paper PDFs into a directory as <short id>.pdf.
type Downloader struct {
	dir        string
	baseURL    string
	httpClient *http.Client
	log        *logging.Logger
}

// NewDownloader creates a downloader writing into dir.
func NewDownloader(dir string, log *logging.Logger) *Downloader {
	if log == nil {
		log = logging.Nop()
	}
	return &Downloader{
		dir:        dir,
		baseURL:    PDFBaseURL,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		log:        log,
	}
}

// WithBaseURL returns a copy of d that downloads from baseURL (for testing).
func (d *Downloader) WithBaseURL(baseURL string) *Downloader {
	c := *d
	c.baseURL = strings.TrimRight(baseURL, "/")
	return &c
}

// PathFor returns where the PDF of p is stored.
func (d *Downloader) PathFor(p paper.Paper) string {
	return filepath.Join(d.dir, p.FileName()+".pdf")
}

// URLFor returns the arXiv PDF URL of p.
func (d *Downloader) URLFor(p paper.Paper) string {
	return d.baseURL + "/" + p.ShortID()
}

// Download fetches the PDF of p unless it is already present.
// The file is written under a temporary name and renamed into place only
// after it validates as a PDF.
func (d *Downloader) Download(ctx context.Context, p paper.Paper) (Download, error) {
	id := p.ShortID()
	if id == "" {
		return Download{}, fmt.Errorf("paper has no entry id")
	}
	dest := d.PathFor(p)

	if _, err := os.Stat(dest); err == nil {
		d.log.Info("Paper is already downloaded", "path", dest)
		return Download{Path: dest, AlreadyPresent: true}, nil
	} else if !os.IsNotExist(err) {
		return Download{}, fmt.Errorf("checking %s: %w", dest, err)
	}

	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return Download{}, fmt.Errorf("creating download directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URLFor(p), nil)
	if err != nil {
		return Download{}, fmt.Errorf("creating request: %w", err)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return Download{}, fmt.Errorf("downloading %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Download{}, fmt.Errorf("downloading %s: HTTP %d", id, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(d.dir, p.FileName()+".*.tmp")
	if err != nil {
		return Download{}, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return Download{}, fmt.Errorf("writing %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return Download{}, fmt.Errorf("closing file: %w", err)
	}

	info, err := Inspect(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return Download{}, err
	}
	if info.ArxivID != "" && !sameArticle(info.ArxivID, id) {
		d.log.Warn("Downloaded PDF carries a different arXiv id", "want", id, "got", info.ArxivID)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return Download{}, fmt.Errorf("renaming temp file: %w", err)
	}

	d.log.Info("Saved paper", "path", dest, "pages", info.Pages)
	return Download{Path: dest, Pages: info.Pages}, nil
}
