// Package extractor turns HTML pages, PDFs and DOCX files into a cleaned
// title plus flattened body text. Each origin kind has its own Extractor; they
// share one Loader that reads local files or fetches URLs.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xhad/sitekb/internal/models"
	"github.com/xhad/sitekb/internal/types"
)

var (
	ErrUnsupportedOrigin = errors.New("unsupported origin")
	// ErrNoContentRoot means the markup had no main, article or body region.
	ErrNoContentRoot = errors.New("no main, article or body region")
)

type Config struct {
	TitleSuffixes []string
	Fetch         FetcherConfig
}

// Set holds one extractor per origin kind.
type Set struct {
	byOrigin map[models.OriginKind]types.Extractor
}

func NewWithConfig(config Config) *Set {
	loader := &Loader{fetcher: NewFetcher(config.Fetch)}
	return &Set{
		byOrigin: map[models.OriginKind]types.Extractor{
			models.OriginMarkup: &HTMLExtractor{loader: loader, titleSuffixes: config.TitleSuffixes},
			models.OriginPDF:    &PDFExtractor{loader: loader},
			models.OriginOffice: &DOCXExtractor{loader: loader},
		},
	}
}

// For returns the extractor registered for kind.
func (s *Set) For(kind models.OriginKind) (types.Extractor, error) {
	e, ok := s.byOrigin[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedOrigin, kind)
	}
	return e, nil
}

// Extract dispatches on the document's origin kind.
func (s *Set) Extract(ctx context.Context, doc models.Document) (models.ExtractedContent, error) {
	e, err := s.For(doc.Origin)
	if err != nil {
		return models.ExtractedContent{}, err
	}
	return e.Extract(ctx, doc)
}

// Loader reads the raw bytes behind a document.
type Loader struct {
	fetcher *Fetcher
}

func (l *Loader) Load(ctx context.Context, doc models.Document) ([]byte, string, error) {
	if doc.Remote() {
		return l.fetcher.Get(ctx, doc.URL)
	}
	data, err := os.ReadFile(doc.Path)
	if err != nil {
		return nil, "", err
	}
	return data, "", nil
}

// titleFromName is the file or URL base name without its extension.
func titleFromName(doc models.Document) string {
	base := filepath.Base(strings.TrimRight(doc.Location(), "/"))
	return strings.TrimSuffix(base, filepath.Ext(base))
}
