package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/matsen/arxivterm/internal/paper"
)

// minimalPDF builds a structurally valid PDF with the given number of blank pages.
func minimalPDF(pages int) []byte {
	var objects []string
	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages),
	)
	for i := 0; i < pages; i++ {
		objects = append(objects, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func testPaper() paper.Paper {
	return paper.Paper{EntryID: "http://arxiv.org/abs/2403.00001v2"}
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "valid.pdf")
	if err := os.WriteFile(valid, minimalPDF(2), 0644); err != nil {
		t.Fatal(err)
	}
	info, err := Inspect(valid)
	if err != nil {
		t.Fatalf("Inspect(valid) error = %v", err)
	}
	if info.Pages != 2 {
		t.Errorf("Pages = %d, want 2", info.Pages)
	}

	invalid := filepath.Join(dir, "invalid.pdf")
	if err := os.WriteFile(invalid, []byte("<html>not a pdf</html>"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Inspect(invalid); !errors.Is(err, ErrInvalidPDF) {
		t.Errorf("Inspect(invalid) error = %v, want ErrInvalidPDF", err)
	}

	if _, err := Inspect(filepath.Join(dir, "missing.pdf")); !errors.Is(err, ErrInvalidPDF) {
		t.Errorf("Inspect(missing) error = %v, want ErrInvalidPDF", err)
	}
}

func TestFindArxivID(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"arXiv:2403.00001v2 [cs.AI] 10 Mar 2024", "2403.00001v2"},
		{"preprint arXiv:1501.0001 [stat.ML]", "1501.0001"},
		{"no identifier here", ""},
	}
	for _, tt := range tests {
		if got := findArxivID(tt.text); got != tt.want {
			t.Errorf("findArxivID(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}

	if !sameArticle("2403.00001v1", "2403.00001v2") {
		t.Error("sameArticle should ignore versions")
	}
	if sameArticle("2403.00001v1", "2403.00002v1") {
		t.Error("sameArticle matched different articles")
	}
}

func TestDownload(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		if r.URL.Path != "/pdf/2403.00001v2" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(minimalPDF(1))
	}))
	defer server.Close()

	dir := filepath.Join(t.TempDir(), "papers")
	d := NewDownloader(dir, nil).WithBaseURL(server.URL + "/pdf")

	got, err := d.Download(context.Background(), testPaper())
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	want := filepath.Join(dir, "2403.00001v2.pdf")
	if got.Path != want {
		t.Errorf("Path = %q, want %q", got.Path, want)
	}
	if got.AlreadyPresent {
		t.Error("AlreadyPresent = true on first download")
	}
	if got.Pages != 1 {
		t.Errorf("Pages = %d, want 1", got.Pages)
	}

	// Second call reports the existing file without fetching.
	again, err := d.Download(context.Background(), testPaper())
	if err != nil {
		t.Fatalf("second Download() error = %v", err)
	}
	if !again.AlreadyPresent || again.Path != want {
		t.Errorf("second Download() = %+v, want already present at %s", again, want)
	}
	if n := atomic.LoadInt32(&requests); n != 1 {
		t.Errorf("server saw %d requests, want 1", n)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("download dir has %d entries, want 1", len(entries))
	}
}

func TestDownloadRejectsInvalidPDF(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>captcha</html>"))
	}))
	defer server.Close()

	dir := t.TempDir()
	d := NewDownloader(dir, nil).WithBaseURL(server.URL)

	_, err := d.Download(context.Background(), testPaper())
	if !errors.Is(err, ErrInvalidPDF) {
		t.Fatalf("Download() error = %v, want ErrInvalidPDF", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("invalid download left %d files behind", len(entries))
	}
}

func TestDownloadHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	d := NewDownloader(t.TempDir(), nil).WithBaseURL(server.URL)
	if _, err := d.Download(context.Background(), testPaper()); err == nil {
		t.Fatal("Download() succeeded on 404")
	}
}

func TestURLFor(t *testing.T) {
	d := NewDownloader("papers", nil)
	if got, want := d.URLFor(testPaper()), "https://arxiv.org/pdf/2403.00001v2"; got != want {
		t.Errorf("URLFor() = %q, want %q", got, want)
	}
}

func TestDownloadOldStyleID(t *testing.T) {
	old := paper.Paper{EntryID: "http://arxiv.org/abs/hep-th/9901001v1"}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pdf/hep-th/9901001v1" {
			http.NotFound(w, r)
			return
		}
		w.Write(minimalPDF(2))
	}))
	defer server.Close()

	dir := t.TempDir()
	d := NewDownloader(dir, nil).WithBaseURL(server.URL + "/pdf")

	got, err := d.Download(context.Background(), old)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	want := filepath.Join(dir, "hep-th_9901001v1.pdf")
	if got.Path != want {
		t.Errorf("Path = %q, want %q", got.Path, want)
	}

	resolved, err := NewOpener(dir, "").ResolvePath(old)
	if err != nil {
		t.Fatalf("ResolvePath() error = %v", err)
	}
	if resolved != want {
		t.Errorf("ResolvePath() = %q, want %q", resolved, want)
	}
}

func TestOpenerResolvePath(t *testing.T) {
	dir := t.TempDir()
	o := NewOpener(dir, "")

	if _, err := o.ResolvePath(testPaper()); !errors.Is(err, ErrNotDownloaded) {
		t.Errorf("ResolvePath() error = %v, want ErrNotDownloaded", err)
	}

	path := filepath.Join(dir, "2403.00001v2.pdf")
	if err := os.WriteFile(path, minimalPDF(1), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := o.ResolvePath(testPaper())
	if err != nil {
		t.Fatalf("ResolvePath() error = %v", err)
	}
	if got != path {
		t.Errorf("ResolvePath() = %q, want %q", got, path)
	}
}

func TestOpenerCommands(t *testing.T) {
	tests := []struct {
		reader string
		linux  []string
		darwin []string
	}{
		{"system", []string{"xdg-open", "f.pdf"}, []string{"open", "f.pdf"}},
		{"zathura", []string{"zathura", "f.pdf"}, []string{"open", "f.pdf"}},
		{"skim", []string{"xdg-open", "f.pdf"}, []string{"open", "-a", "Skim", "f.pdf"}},
	}
	for _, tt := range tests {
		o := NewOpener("", tt.reader)
		if got := o.linuxCommand("f.pdf").Args; !equal(got, tt.linux) {
			t.Errorf("%s linux args = %v, want %v", tt.reader, got, tt.linux)
		}
		if got := o.darwinCommand("f.pdf").Args; !equal(got, tt.darwin) {
			t.Errorf("%s darwin args = %v, want %v", tt.reader, got, tt.darwin)
		}
	}
}

func TestOpenMissingFile(t *testing.T) {
	o := NewOpener(t.TempDir(), "")
	if err := o.Open(filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Error("Open() succeeded for a missing file")
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
