package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/sitekb/internal/models"
	"github.com/xhad/sitekb/pkg/classifier"
	"github.com/xhad/sitekb/pkg/corpus"
	"github.com/xhad/sitekb/pkg/extractor"
	"github.com/xhad/sitekb/pkg/metrics"
	"github.com/xhad/sitekb/pkg/questions"
	"github.com/xhad/sitekb/pkg/synth"
)

const siteName = "Deseguridad.net"

// echoBackend answers with the question text found in the prompt. Questions
// containing hang block until the call's own deadline passes.
type echoBackend struct {
	hang    string
	timeout time.Duration
	delay   func(question string) time.Duration

	mu    sync.Mutex
	calls int
}

func (b *echoBackend) Complete(ctx context.Context, prompt string) (string, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()

	q := prompt[strings.Index(prompt, "Pregunta:\n")+len("Pregunta:\n"):]
	q = strings.TrimSuffix(q, "\n\nRespuesta:")

	if b.hang != "" && strings.Contains(q, b.hang) {
		ctx, cancel := context.WithTimeout(ctx, b.timeout)
		defer cancel()
		<-ctx.Done()
		return "", ctx.Err()
	}
	if b.delay != nil {
		time.Sleep(b.delay(q))
	}
	return "R: " + q, nil
}

func page(title, body string) string {
	return fmt.Sprintf(`<html><head><title>%s - DeSeguridad.net</title></head>
<body><header><p>Menú</p></header><main><h1>%s</h1><p>%s</p></main><footer>Pie</footer></body></html>`, title, title, body)
}

func writeCorpus(t *testing.T, files map[string][]byte) string {
	t.Helper()
	root := t.TempDir()
	for name, data := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, data, 0644))
	}
	return root
}

func newPipeline(t *testing.T, mode questions.Mode, workers int, backend *echoBackend, m *metrics.Metrics) *Pipeline {
	t.Helper()
	p, err := NewWithConfig(PipelineConfig{
		Mode:    mode,
		Workers: workers,
		Extractor: extractor.NewWithConfig(extractor.Config{
			TitleSuffixes: []string{"- DeSeguridad.net", "| DeSeguridad.net"},
			Fetch:         extractor.FetcherConfig{Timeout: 5 * time.Second, RateLimit: 1000},
		}),
		Classifier: classifier.New([]string{"servicios", "riesgo-psicosocial"}),
		Questions:  questions.New(siteName),
		Synth:      synth.NewWithConfig(backend, synth.Config{SiteName: siteName}),
		Metrics:    m,
	})
	require.NoError(t, err)
	return p
}

func TestRunServicePageFileMode(t *testing.T) {
	root := writeCorpus(t, map[string][]byte{
		"servicios/riesgo.html": []byte(page("Riesgo Psicosocial", "Evaluamos el riesgo psicosocial.")),
	})
	docs, err := corpus.Walk(root, "https://deseguridad.net", []string{".html", ".pdf", ".docx"})
	require.NoError(t, err)

	backend := &echoBackend{}
	m := metrics.New()
	res, err := newPipeline(t, questions.ModeFiles, 1, backend, m).Run(context.Background(), docs)
	require.NoError(t, err)

	want := questions.New(siteName).Count(questions.ModeFiles, models.PageService)
	require.Len(t, res.Records, want)
	assert.Equal(t, 10, want)
	for _, r := range res.Records {
		assert.Equal(t, "servicios", r.Category)
		assert.Equal(t, "Web (HTML)", r.Source)
		assert.Equal(t, "https://deseguridad.net/servicios/riesgo", r.SourceURL)
		assert.Contains(t, r.Question, "Riesgo Psicosocial")
		assert.Equal(t, "R: "+r.Question, r.Answer)
	}
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 0, res.Fallbacks)
	assert.Equal(t, want, backend.calls)
	assert.NotEmpty(t, res.RunID)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocumentsTotal.WithLabelValues("markup", metrics.OutcomeProcessed)))
	assert.Equal(t, float64(want), testutil.ToFloat64(m.AnswersTotal.WithLabelValues(metrics.AnswerBackend)))
}

func TestRunUnreadablePDFIsSkipped(t *testing.T) {
	root := writeCorpus(t, map[string][]byte{
		"docs/broken.pdf":   []byte("%PDF-1.4 this is not really a pdf"),
		"docs/vacía.html":   []byte(`<html><head><title>Vacía</title></head><body><nav><p>solo menú</p></nav></body></html>`),
		"servicios/zz.html": []byte(page("Mediciones", "Medimos ruido.")),
	})
	docs, err := corpus.Walk(root, "https://deseguridad.net", []string{".html", ".pdf", ".docx"})
	require.NoError(t, err)
	require.Len(t, docs, 3)

	m := metrics.New()
	var progress []Progress
	p := newPipeline(t, questions.ModeFiles, 1, &echoBackend{}, m)
	p.config.OnProgress = func(pr Progress) { progress = append(progress, pr) }

	res, err := p.Run(context.Background(), docs)
	require.NoError(t, err)

	assert.Len(t, res.Records, 10)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 1, res.Processed)
	for _, r := range res.Records {
		assert.Equal(t, "https://deseguridad.net/servicios/zz", r.SourceURL)
	}

	require.Len(t, progress, 3)
	assert.Equal(t, 3, progress[2].Done)
	assert.Equal(t, 3, progress[2].Total)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocumentsTotal.WithLabelValues("pdf", metrics.OutcomeSkipped)))
}

func TestRunBackendTimeoutFallsBackForOneQuestion(t *testing.T) {
	root := writeCorpus(t, map[string][]byte{
		"servicios/riesgo.html": []byte(page("Riesgo Psicosocial", "Evaluamos el riesgo psicosocial.")),
	})
	docs, err := corpus.Walk(root, "https://deseguridad.net", []string{".html"})
	require.NoError(t, err)

	backend := &echoBackend{hang: "precios", timeout: 20 * time.Millisecond}
	res, err := newPipeline(t, questions.ModeFiles, 1, backend, nil).Run(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, res.Records, 10)
	assert.Equal(t, 1, res.Fallbacks)

	for _, r := range res.Records {
		if strings.Contains(r.Question, "precios") {
			assert.Equal(t, synth.Fallback("Riesgo Psicosocial", "https://deseguridad.net/servicios/riesgo"), r.Answer)
			continue
		}
		assert.Equal(t, "R: "+r.Question, r.Answer)
	}
}

func TestRunURLModeClassifies(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/riesgo-psicosocial/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page("Riesgo Psicosocial", "Servicio de evaluación."))
	})
	mux.HandleFunc("/blog/articulo/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page("Pausas activas", "Artículo sobre pausas."))
	})
	mux.HandleFunc("/missing/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page("Inicio", "Bienvenidos."))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	docs, err := corpus.FromURLs([]string{
		srv.URL + "/",
		srv.URL + "/riesgo-psicosocial/",
		srv.URL + "/missing/",
		srv.URL + "/blog/articulo/",
	})
	require.NoError(t, err)

	res, err := newPipeline(t, questions.ModeClassified, 1, &echoBackend{}, nil).Run(context.Background(), docs)
	require.NoError(t, err)

	e := questions.New(siteName)
	home := e.Count(questions.ModeClassified, models.PageHome)
	service := e.Count(questions.ModeClassified, models.PageService)
	blog := e.Count(questions.ModeClassified, models.PageBlog)
	require.Len(t, res.Records, home+service+blog)
	assert.Equal(t, 1, res.Skipped)

	assert.Equal(t, "inicio", res.Records[0].Category)
	assert.Equal(t, "riesgo-psicosocial", res.Records[home].Category)
	assert.Contains(t, res.Records[home].Question, "servicio de Riesgo Psicosocial")
	assert.Equal(t, "blog", res.Records[home+service].Category)
	assert.Contains(t, res.Records[home+service].Question, "Pausas activas")
}

func TestRunOrderIndependentOfWorkers(t *testing.T) {
	files := map[string][]byte{}
	for i := 0; i < 8; i++ {
		files[fmt.Sprintf("cat%d/page%d.html", i%3, i)] = []byte(page(fmt.Sprintf("Servicio %d", i), "Texto del servicio."))
	}
	root := writeCorpus(t, files)
	docs, err := corpus.Walk(root, "https://deseguridad.net", []string{".html"})
	require.NoError(t, err)

	delay := func(q string) time.Duration {
		return time.Duration(len(q)%5) * time.Millisecond
	}

	sequential, err := newPipeline(t, questions.ModeFiles, 1, &echoBackend{delay: delay}, nil).Run(context.Background(), docs)
	require.NoError(t, err)
	parallel, err := newPipeline(t, questions.ModeFiles, 4, &echoBackend{delay: delay}, nil).Run(context.Background(), docs)
	require.NoError(t, err)

	assert.Len(t, sequential.Records, 80)
	assert.Equal(t, sequential.Records, parallel.Records)
}

func TestRunCancelled(t *testing.T) {
	root := writeCorpus(t, map[string][]byte{
		"a.html": []byte(page("A", "a")),
		"b.html": []byte(page("B", "b")),
	})
	docs, err := corpus.Walk(root, "https://deseguridad.net", []string{".html"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newPipeline(t, questions.ModeFiles, 1, &echoBackend{}, nil).Run(ctx, docs)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.Records)
}

// cancellingBackend cancels the run when it receives its n-th call.
type cancellingBackend struct {
	echoBackend
	n      int
	cancel context.CancelFunc
}

func (b *cancellingBackend) Complete(ctx context.Context, prompt string) (string, error) {
	b.mu.Lock()
	call := b.calls + 1
	b.mu.Unlock()
	if call == b.n {
		b.cancel()
	}
	return b.echoBackend.Complete(ctx, prompt)
}

func TestRunCancelledDuringLastDocument(t *testing.T) {
	root := writeCorpus(t, map[string][]byte{
		"a.html": []byte(page("A", "a")),
		"b.html": []byte(page("B", "b")),
	})
	docs, err := corpus.Walk(root, "https://deseguridad.net", []string{".html"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	perDoc := questions.New(siteName).Count(questions.ModeFiles, models.PageService)
	backend := &cancellingBackend{n: perDoc + 3, cancel: cancel}

	p, err := NewWithConfig(PipelineConfig{
		Mode:      questions.ModeFiles,
		Workers:   1,
		Extractor: extractor.NewWithConfig(extractor.Config{}),
		Questions: questions.New(siteName),
		Synth:     synth.NewWithConfig(backend, synth.Config{SiteName: siteName}),
	})
	require.NoError(t, err)

	res, err := p.Run(ctx, docs)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, res.Records, perDoc, "only the finished document is kept")
	assert.Equal(t, 1, res.Processed)
}

func TestNewWithConfigValidation(t *testing.T) {
	_, err := NewWithConfig(PipelineConfig{})
	assert.Error(t, err)

	_, err = NewWithConfig(PipelineConfig{
		Mode:      questions.ModeClassified,
		Extractor: extractor.NewWithConfig(extractor.Config{}),
		Synth:     synth.NewWithConfig(&echoBackend{}, synth.Config{}),
	})
	assert.Error(t, err)

	p, err := NewWithConfig(PipelineConfig{
		Workers:   1000,
		Extractor: extractor.NewWithConfig(extractor.Config{}),
		Synth:     synth.NewWithConfig(&echoBackend{}, synth.Config{}),
	})
	require.NoError(t, err)
	assert.Equal(t, MaxWorkers, p.config.Workers)
}
