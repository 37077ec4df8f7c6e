// Package synth answers one question about one document by prompting the
// backend with the document's own text. A failed or empty backend reply
// is replaced by a fixed invitation to request a quote at the source URL.
package synth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/xhad/sitekb/internal/models"
	"github.com/xhad/sitekb/internal/types"
	"github.com/xhad/sitekb/pkg/logger"
	"github.com/xhad/sitekb/pkg/processor"
)

type Config struct {
	SiteName  string
	Processor processor.Processor
	Logger    *zerolog.Logger
}

// Request carries everything a prompt is built from. An empty PageType
// means the document was not classified.
type Request struct {
	Question  string
	Title     string
	Body      string
	PageType  models.PageType
	SourceURL string
}

// Answer is the outcome of one synthesis. Text is never empty. When
// Fallback is set, Err holds the backend failure, if there was one.
type Answer struct {
	Text     string
	Fallback bool
	Err      error
	Latency  time.Duration
}

type Synthesizer struct {
	backend  types.Backend
	prep     processor.Processor
	siteName string
	log      zerolog.Logger
}

func NewWithConfig(backend types.Backend, cfg Config) *Synthesizer {
	if cfg.SiteName == "" {
		cfg.SiteName = "Deseguridad.net"
	}
	if cfg.Processor.MaxChars() == 0 {
		cfg.Processor = processor.NewWithConfig(processor.ProcessorConfig{})
	}
	log := logger.WithComponent("synth")
	if cfg.Logger != nil {
		log = cfg.Logger.With().Str("component", "synth").Logger()
	}
	return &Synthesizer{
		backend:  backend,
		prep:     cfg.Processor,
		siteName: cfg.SiteName,
		log:      log,
	}
}

var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Synthesize calls the backend exactly once. Answers use LF line breaks.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request) Answer {
	prompt := s.Prompt(req)
	s.log.Debug().
		Str("url", req.SourceURL).
		Int("prompt_chars", len([]rune(prompt))).
		Msg("prompting backend")

	start := time.Now()
	text, err := s.backend.Complete(ctx, prompt)
	latency := time.Since(start)

	text = strings.TrimSpace(lineBreaks.Replace(text))
	if err == nil && text != "" {
		return Answer{Text: text, Latency: latency}
	}

	if err != nil {
		s.log.Warn().Err(err).
			Str("url", req.SourceURL).
			Str("question", req.Question).
			Msg("backend call failed, using fallback answer")
	}
	return Answer{
		Text:     Fallback(req.Title, req.SourceURL),
		Fallback: true,
		Err:      err,
		Latency:  latency,
	}
}

// Prompt renders the grounding prompt for req.
func (s *Synthesizer) Prompt(req Request) string {
	content := s.prep.Prepare(req.Body)

	var b strings.Builder
	fmt.Fprintf(&b, "Eres un asistente experto en los servicios y contenidos de %s\n", s.siteName)
	b.WriteString("(consultoría, mediciones, calibraciones, riesgos, normativa, etc.).\n\n")
	fmt.Fprintf(&b, "A partir del siguiente contenido de %s titulado \"%s\", responde de forma clara,\n", Descriptor(s.siteName, req.PageType), req.Title)
	b.WriteString("concreta y profesional la siguiente pregunta.\n\n")
	b.WriteString("Muy importante:\n")
	b.WriteString("- Usa solo la información que aparece en el contenido.\n")
	b.WriteString("- Si el contenido NO tiene información suficiente para responder algo (por ejemplo, licencias,\n")
	fmt.Fprintf(&b, "certificados, precios o tiempos), indica que pueden ampliar la información cotizando en %s.\n", req.SourceURL)
	b.WriteString("- No inventes datos ni normativas que no aparezcan aquí.\n")
	b.WriteString("- Responde en un solo bloque de texto, sin listas numeradas a menos que el contenido lo sugiera claramente.\n")
	fmt.Fprintf(&b, "- Responde como si fueras parte del equipo de %s, intentando acortar el camino del usuario con pasos adicionales, como contactar nuevamente a la empresa.\n\n", s.siteName)
	b.WriteString("Contenido:\n")
	b.WriteString(content)
	b.WriteString("\n\nPregunta:\n")
	b.WriteString(req.Question)
	b.WriteString("\n\nRespuesta:")
	return b.String()
}

// Descriptor names the kind of page in the prompt.
func Descriptor(siteName string, pageType models.PageType) string {
	switch pageType {
	case "":
		return "una página web"
	case models.PageService:
		return "un servicio ofrecido por " + siteName
	case models.PageLegal:
		return "un documento legal o de tratamiento de datos"
	case models.PageBlog:
		return "un artículo del blog de " + siteName
	case models.PageHome:
		return "la página principal de " + siteName
	case models.PageOther:
		return "una página informativa de " + siteName
	default:
		return "una página de " + siteName
	}
}

// Fallback is the answer used when the backend gives nothing usable.
func Fallback(title, sourceURL string) string {
	return fmt.Sprintf("Para ampliar información sobre '%s'. Te recomendamos cotizar directamente en %s, para obtener una respuesta personalizada a tu caso.", title, sourceURL)
}
