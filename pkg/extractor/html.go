package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/xhad/sitekb/internal/models"
)

// Structural regions removed before any text is read.
const boilerplateTags = "header, footer, nav, aside"

// Theme and page-builder regions that carry site chrome.
var boilerplateSelectors = []string{
	".site-header",
	".site-footer",
	"#site-header",
	"#site-footer",
	".main-navigation",
	".menu-principal",
	".elementor-location-header",
	".elementor-location-footer",
}

const textSelector = "h1, h2, h3, h4, p, li"

// HTMLExtractor handles markup pages, local or fetched.
type HTMLExtractor struct {
	loader        *Loader
	titleSuffixes []string
}

func (e *HTMLExtractor) Extract(ctx context.Context, doc models.Document) (models.ExtractedContent, error) {
	data, contentType, err := e.loader.Load(ctx, doc)
	if err != nil {
		return models.ExtractedContent{}, err
	}

	var r io.Reader
	if doc.Remote() {
		r, err = charset.NewReader(bytes.NewReader(data), contentType)
		if err != nil {
			return models.ExtractedContent{}, fmt.Errorf("decode %s: %w", doc.URL, err)
		}
	} else {
		if !utf8.Valid(data) {
			return models.ExtractedContent{}, fmt.Errorf("%s is not valid UTF-8", doc.Path)
		}
		r = bytes.NewReader(data)
	}

	return ParseHTML(r, e.titleSuffixes)
}

// ParseHTML strips boilerplate regions and flattens headings, paragraphs and
// list items of the main content region into one space-joined string.
func ParseHTML(r io.Reader, titleSuffixes []string) (models.ExtractedContent, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return models.ExtractedContent{}, fmt.Errorf("parse html: %w", err)
	}

	doc.Find(boilerplateTags).Remove()
	for _, selector := range boilerplateSelectors {
		doc.Find(selector).Remove()
	}

	content := models.ExtractedContent{
		Title: NormalizeTitle(doc.Find("title").First().Text(), titleSuffixes),
	}

	root := contentRoot(doc)
	if root == nil {
		return content, ErrNoContentRoot
	}

	var parts []string
	root.Find(textSelector).Each(func(_ int, s *goquery.Selection) {
		if txt := collapseSpaces(s.Text()); txt != "" {
			parts = append(parts, txt)
		}
	})
	content.Body = strings.Join(parts, " ")

	return content, nil
}

// contentRoot picks the first of main, article, body.
func contentRoot(doc *goquery.Document) *goquery.Selection {
	for _, selector := range []string{"main", "article", "body"} {
		if selected := doc.Find(selector).First(); selected.Length() > 0 {
			return selected
		}
	}
	return nil
}

// NormalizeTitle removes every configured site-name suffix and trims the result.
// Applying it twice yields the same string.
func NormalizeTitle(raw string, suffixes []string) string {
	title := strings.TrimSpace(raw)
	for {
		next := title
		for _, suffix := range suffixes {
			if suffix == "" {
				continue
			}
			next = strings.TrimSpace(strings.ReplaceAll(next, suffix, ""))
		}
		// removal can splice a new occurrence together
		if next == title {
			return title
		}
		title = next
	}
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
