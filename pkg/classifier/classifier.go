package classifier

import (
	"net/url"
	"strings"

	"github.com/xhad/sitekb/internal/models"
)

var blogMarkers = []string{"blog", "/categoria/", "/category/"}

var legalMarkers = []string{"terminos", "condiciones", "tratamiento-de-datos", "politica"}

// Classifier assigns a page type from a locator and its category.
type Classifier struct {
	services map[string]bool
}

// New builds a classifier that treats the given categories as service pages.
func New(serviceCategories []string) *Classifier {
	services := make(map[string]bool, len(serviceCategories))
	for _, c := range serviceCategories {
		services[c] = true
	}
	return &Classifier{services: services}
}

// Classify applies, in order: home, blog, legal, known service, other.
// An unparseable locator is matched on its raw text.
func (c *Classifier) Classify(locator, category string) models.PageType {
	p := locator
	if u, err := url.Parse(locator); err == nil {
		p = u.Path
	}
	p = strings.ToLower(strings.Trim(p, "/"))

	switch {
	case p == "" || p == "inicio":
		return models.PageHome
	case containsAny(p, blogMarkers):
		return models.PageBlog
	case containsAny(p, legalMarkers):
		return models.PageLegal
	case c.services[category]:
		return models.PageService
	default:
		return models.PageOther
	}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
