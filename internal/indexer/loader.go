package indexer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"

	"econ-rag/internal/config"
)

// ErrUnsupportedFormat is returned for files the loader cannot extract text from.
var ErrUnsupportedFormat = errors.New("unsupported file type")

var supportedExtensions = map[string]struct{}{
	".pdf": {},
	".txt": {},
	".md":  {},
}

// IsSupported reports whether path has an extension the loader handles.
func IsSupported(path string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Loader extracts text from PDF, plain text and markdown files.
type Loader struct {
	markdown *markdownRenderer
}

// NewLoader returns a loader. A non-empty unidocKey activates the metered
// UniPDF license; without one PDF extraction fails per document.
func NewLoader(unidocKey string) (*Loader, error) {
	if unidocKey != "" {
		if err := license.SetMeteredKey(unidocKey); err != nil {
			return nil, &config.ConfigurationError{Field: "UNIDOC_LICENSE_KEY", Message: err.Error(), Err: err}
		}
	}
	return &Loader{markdown: newMarkdownRenderer()}, nil
}

// Load returns the pages of the document at path.
func (l *Loader) Load(path string) ([]Page, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt":
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return []Page{{Text: string(content)}}, nil
	case ".md":
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return []Page{{Text: l.markdown.PlainText(content)}}, nil
	case ".pdf":
		return loadPDF(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func loadPDF(path string) ([]Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	pdfReader, err := model.NewPdfReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return nil, fmt.Errorf("failed to count pages: %w", err)
	}

	pages := make([]Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read page %d: %w", i, err)
		}

		ex, err := extractor.New(page)
		if err != nil {
			return nil, fmt.Errorf("failed to create extractor for page %d: %w", i, err)
		}

		pageText, err := ex.ExtractText()
		if err != nil {
			return nil, fmt.Errorf("failed to extract page %d: %w", i, err)
		}
		pages = append(pages, Page{Number: i, Text: pageText})
	}

	return pages, nil
}
