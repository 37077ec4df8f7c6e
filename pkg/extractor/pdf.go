package extractor

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/xhad/sitekb/internal/models"
)

type PDFExtractor struct {
	loader *Loader
}

// Extract titles the document after its file name. A failure on any page
// discards the whole body.
func (e *PDFExtractor) Extract(ctx context.Context, doc models.Document) (models.ExtractedContent, error) {
	content := models.ExtractedContent{Title: titleFromName(doc)}

	data, _, err := e.loader.Load(ctx, doc)
	if err != nil {
		return content, err
	}

	body, err := ParsePDF(data)
	if err != nil {
		return content, fmt.Errorf("pdf %s: %w", doc.Location(), err)
	}
	content.Body = body
	return content, nil
}

// ParsePDF joins the trimmed text of every non-empty page with single spaces.
func ParsePDF(data []byte) (body string, err error) {
	// the reader panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			body = ""
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var parts []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		if txt := strings.TrimSpace(text); txt != "" {
			parts = append(parts, txt)
		}
	}
	return strings.Join(parts, " "), nil
}
