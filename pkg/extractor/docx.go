package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xhad/sitekb/internal/models"
)

const wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

var errNoDocumentPart = errors.New("word/document.xml not found")

type DOCXExtractor struct {
	loader *Loader
}

func (e *DOCXExtractor) Extract(ctx context.Context, doc models.Document) (models.ExtractedContent, error) {
	content := models.ExtractedContent{Title: titleFromName(doc)}

	data, _, err := e.loader.Load(ctx, doc)
	if err != nil {
		return content, err
	}

	body, err := ParseDOCX(data)
	if err != nil {
		return content, fmt.Errorf("docx %s: %w", doc.Location(), err)
	}
	content.Body = body
	return content, nil
}

// ParseDOCX joins the trimmed text of the body's top-level paragraphs.
// Only the paragraph's own runs (directly or under a hyperlink) count, so
// tables and text boxes are not part of the body.
func ParseDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}

	var part *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			part = f
			break
		}
	}
	if part == nil {
		return "", errNoDocumentPart
	}

	rc, err := part.Open()
	if err != nil {
		return "", fmt.Errorf("open document part: %w", err)
	}
	defer rc.Close()

	paragraphs, err := bodyParagraphs(rc)
	if err != nil {
		return "", fmt.Errorf("read document part: %w", err)
	}

	var parts []string
	for _, p := range paragraphs {
		if txt := strings.TrimSpace(p); txt != "" {
			parts = append(parts, txt)
		}
	}
	return strings.Join(parts, " "), nil
}

func bodyParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		paragraphs []string
		stack      []string
		current    strings.Builder
		paraDepth  = -1 // stack depth of the open body paragraph
		inText     bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return paragraphs, nil
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			if t.Name.Space != wordNamespace {
				name = "?" + name
			}
			if name == "p" && paraDepth < 0 && len(stack) > 0 && stack[len(stack)-1] == "body" {
				paraDepth = len(stack)
				current.Reset()
			}
			if paraDepth >= 0 && ownRun(stack, paraDepth) {
				switch name {
				case "t":
					inText = true
				case "tab":
					current.WriteByte('\t')
				case "br", "cr":
					current.WriteByte('\n')
				}
			}
			stack = append(stack, name)
		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			name := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if name == "t" && ownRun(stack, paraDepth) {
				inText = false
			}
			if name == "p" && len(stack) == paraDepth {
				paragraphs = append(paragraphs, current.String())
				paraDepth = -1
			}
		case xml.CharData:
			if inText && paraDepth >= 0 {
				current.Write(t)
			}
		}
	}
}

// ownRun reports whether the innermost open element is a run that belongs
// to the paragraph opened at stack index paraDepth.
func ownRun(stack []string, paraDepth int) bool {
	n := len(stack)
	if paraDepth < 0 || n == 0 || stack[n-1] != "r" {
		return false
	}
	switch n - paraDepth {
	case 2:
		return true
	case 3:
		return stack[n-2] == "hyperlink"
	}
	return false
}
