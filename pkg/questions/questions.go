// Package questions holds the fixed question templates asked about each
// document. Every set is ordered and parameterised only by the title.
package questions

import (
	"strings"

	"github.com/xhad/sitekb/internal/models"
)

// Mode selects between the two template configurations.
type Mode int

const (
	// ModeFiles is the file-tree run: no classification, one service set.
	ModeFiles Mode = iota
	// ModeClassified is the URL-list run: one set per page type, with the
	// duplicated time and scope questions folded together.
	ModeClassified
)

type template struct {
	prefix, suffix string
}

func (t template) render(base string) string {
	return t.prefix + base + t.suffix
}

var fileServiceTemplates = []template{
	{"¿Qué hace exactamente paso a paso el servicio de ", "?"},
	{"¿Para qué sirve exactamente el servicio de ", "?"},
	{"¿Quién lo hace o quién presta el servicio de ", "?"},
	{"¿Para quién es recomendable el servicio de ", "?"},
	{"¿Dónde se presta o aplica el servicio de ", "?"},
	{"¿Cuánto Demora o cuanto tiempo suele tardar el servicio de ", "?"},
	{"¿Cuáles son los precios o rangos de inversión del servicio de ", "?"},
	{"¿Qué incluye el servicio de ", "?"},
	{"¿Tiene licencia el servicio de ", "?"},
	{"¿Cómo puedo contratar o solicitar más información sobre ", "?"},
}

var serviceTemplates = []template{
	{"¿Qué incluye y cómo se realiza paso a paso el servicio de ", "?"},
	{"¿Para qué sirve exactamente el servicio de ", "?"},
	{"¿Quién lo hace o quién presta el servicio de ", "?"},
	{"¿Para quién es recomendable el servicio de ", "?"},
	{"¿Dónde se presta o aplica el servicio de ", "?"},
	{"¿Cuánto tiempo suele tardar o cuánto se demora el servicio de ", "?"},
	{"¿Cuáles son los precios o rangos de inversión del servicio de ", "?"},
	{"¿Tiene licencia el servicio de ", "?"},
	{"¿Cómo puedo contratar o solicitar más información sobre ", "?"},
}

var legalTemplates = []template{
	{"¿Qué es ", " y para qué sirve?"},
	{"¿Qué información cubre exactamente ", "?"},
	{"¿Qué derechos y deberes tiene el usuario según ", "?"},
	{"¿Qué datos personales se tratan según ", "?"},
	{"¿Cómo puede un usuario ejercer sus derechos de protección de datos según ", "?"},
}

var blogTemplates = []template{
	{"¿De qué trata ", " en pocas palabras?"},
	{"¿Qué problema o necesidad aborda ", "?"},
	{"¿Cuáles son las principales recomendaciones o conclusiones de ", "?"},
	{"¿Qué relación tiene ", " con la seguridad y salud en el trabajo?"},
	{"¿Qué debería hacer una empresa después de leer ", "?"},
}

var homeTemplates = []template{
	{"¿Qué ofrece exactamente ", " a las empresas en Colombia?"},
	{"¿Qué tipo de servicios de seguridad y salud en el trabajo ofrece ", "?"},
	{"¿Por qué una empresa debería trabajar con ", "?"},
	{"¿Cómo puedo empezar a trabajar con ", "?"},
}

// Engine renders question sets for one site.
type Engine struct {
	siteName string
}

func New(siteName string) *Engine {
	return &Engine{siteName: siteName}
}

// Questions returns the ordered question set for a page type and title.
// In ModeFiles the page type is ignored.
func (e *Engine) Questions(mode Mode, pageType models.PageType, title string) []string {
	if mode == ModeFiles {
		return renderAll(fileServiceTemplates, fallback(title, "este servicio"))
	}

	switch pageType {
	case models.PageService:
		return renderAll(serviceTemplates, fallback(title, "este servicio"))
	case models.PageLegal:
		return renderAll(legalTemplates, fallback(title, "este documento"))
	case models.PageBlog:
		return renderAll(blogTemplates, fallback(title, "este artículo del blog"))
	case models.PageHome:
		return renderAll(homeTemplates, fallback(title, e.siteName))
	default:
		base := fallback(title, "esta página")
		return []string{
			"¿De qué trata " + base + " y qué información principal ofrece?",
			"¿Cómo se relaciona " + base + " con los servicios de " + e.siteName + "?",
		}
	}
}

// Count is the number of questions Questions returns for the same inputs.
func (e *Engine) Count(mode Mode, pageType models.PageType) int {
	return len(e.Questions(mode, pageType, ""))
}

func renderAll(templates []template, base string) []string {
	out := make([]string, len(templates))
	for i, t := range templates {
		out[i] = t.render(base)
	}
	return out
}

func fallback(title, filler string) string {
	if strings.TrimSpace(title) == "" {
		return filler
	}
	return title
}
