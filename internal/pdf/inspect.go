package pdf

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrInvalidPDF is returned when a file does not parse as a PDF with pages.
var ErrInvalidPDF = errors.New("invalid PDF")

// arXiv stamps new-style identifiers in the left margin of the first page,
// e.g. "arXiv:2403.00001v1 [cs.AI] 10 Mar 2024".
var arxivIDPattern = regexp.MustCompile(`arXiv:(\d{4}\.\d{4,5}(?:v\d+)?)`)

// Info describes a validated PDF.
type Info struct {
	Pages   int
	ArxivID string // from the first-page stamp, empty when not found
}

// Inspect opens the PDF at path, checks that it has at least one page and
// looks for the arXiv identifier stamp on the first page.
func Inspect(path string) (Info, error) {
	f, r, err := openPDF(path)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %s: %v", ErrInvalidPDF, path, err)
	}
	defer f.Close()

	info := Info{Pages: r.NumPage()}
	if info.Pages < 1 {
		return Info{}, fmt.Errorf("%w: %s has no pages", ErrInvalidPDF, path)
	}

	info.ArxivID = findArxivID(firstPageText(r))
	return info, nil
}

// openPDF wraps pdf.Open, which panics on some malformed inputs.
func openPDF(path string) (f *os.File, r *pdf.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			if f != nil {
				f.Close()
			}
			f, r, err = nil, nil, fmt.Errorf("malformed PDF: %v", p)
		}
	}()
	return pdf.Open(path)
}

// firstPageText returns the plain text of page 1, or "" if it cannot be read.
func firstPageText(r *pdf.Reader) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()
	page := r.Page(1)
	if page.V.IsNull() {
		return ""
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return text
}

// findArxivID finds an arXiv identifier stamp in text.
func findArxivID(text string) string {
	m := arxivIDPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// sameArticle reports whether two arXiv identifiers name the same article,
// ignoring version suffixes.
func sameArticle(a, b string) bool {
	return stripVersion(a) == stripVersion(b)
}

func stripVersion(id string) string {
	if i := strings.LastIndex(id, "v"); i > 0 {
		return id[:i]
	}
	return id
}
