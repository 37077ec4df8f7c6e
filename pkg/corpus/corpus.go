// Package corpus enumerates the documents a run will process, either by
// walking a directory tree or from an explicit URL list.
package corpus

import (
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xhad/sitekb/internal/models"
)

const (
	// DefaultFileCategory is used for files sitting at the corpus root.
	DefaultFileCategory = "general"
	// DefaultURLCategory is used for URLs with an empty path.
	DefaultURLCategory = "inicio"
)

var originByExt = map[string]models.OriginKind{
	".html": models.OriginMarkup,
	".pdf":  models.OriginPDF,
	".docx": models.OriginOffice,
}

// OriginForExt maps a lower-cased file extension to its origin kind.
func OriginForExt(ext string) (models.OriginKind, bool) {
	kind, ok := originByExt[strings.ToLower(ext)]
	return kind, ok
}

// Walk lists every recognised file under root in lexical order. Only
// extensions in allowed are considered; an empty allowed list means all
// recognised extensions.
func Walk(root, baseURL string, allowed []string) ([]models.Document, error) {
	allow := make(map[string]bool, len(allowed))
	for _, ext := range allowed {
		allow[strings.ToLower(ext)] = true
	}

	var docs []models.Document
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		kind, ok := OriginForExt(ext)
		if !ok || (len(allow) > 0 && !allow[ext]) {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		category, sourceURL := FileCategoryAndURL(rel, baseURL)
		docs = append(docs, models.Document{
			ID:        filepath.ToSlash(rel),
			Path:      p,
			Origin:    kind,
			Category:  category,
			SourceURL: sourceURL,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// FileCategoryAndURL derives the category from the first directory segment of
// a path relative to the corpus root and synthesises the public URL of the
// file. Nested directories stay in the URL.
func FileCategoryAndURL(rel, baseURL string) (string, string) {
	rel = filepath.ToSlash(rel)
	dir := strings.Trim(path.Dir(rel), "/")
	name := path.Base(rel)

	category := DefaultFileCategory
	if dir != "" && dir != "." {
		category = strings.SplitN(dir, "/", 2)[0]
	} else {
		dir = ""
	}

	base := strings.TrimRight(baseURL, "/")
	sourceURL := base + "/" + name
	if dir != "" {
		sourceURL = base + "/" + dir + "/" + name
	}
	return category, strings.TrimSuffix(sourceURL, ".html")
}

// FromURLs builds one markup document per URL, keeping the given order.
func FromURLs(urls []string) ([]models.Document, error) {
	docs := make([]models.Document, 0, len(urls))
	for _, raw := range urls {
		category, err := URLCategory(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, models.Document{
			ID:        raw,
			URL:       raw,
			Origin:    models.OriginMarkup,
			Category:  category,
			SourceURL: raw,
		})
	}
	return docs, nil
}

// URLCategory is the first path segment of the URL, or DefaultURLCategory.
func URLCategory(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", raw, err)
	}
	p := strings.Trim(u.Path, "/")
	if p == "" {
		return DefaultURLCategory, nil
	}
	return strings.SplitN(p, "/", 2)[0], nil
}
