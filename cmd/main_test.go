package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/xhad/sitekb/pkg/kbtable"
	"github.com/xhad/sitekb/pkg/synth"
)

func testApp() *cli.App {
	app := newApp()
	app.ExitErrHandler = func(*cli.Context, error) {}
	return app
}

func backendServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			http.Error(w, `{"error":{"message":"unavailable"}}`, status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": "Respuesta generada."},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	for _, k := range []string{"LLM_API_URL", "LLM_API_KEY", "LLM_MODEL", "OLLAMA_BASE_URL", "DATABASE_URL", "SITEKB_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	path := filepath.Join(t.TempDir(), "sitekb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestFilesCommand(t *testing.T) {
	srv := backendServer(t, http.StatusOK)

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "servicios"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "servicios", "riesgo.html"), []byte(
		`<html><head><title>Riesgo Psicosocial | DeSeguridad.net</title></head><body><main><p>Evaluación.</p></main></body></html>`,
	), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notas.txt"), []byte("ignorado"), 0644))

	cfg := writeConfig(t, "llm:\n  api_key: test-key\nlog:\n  level: error\n")
	out := filepath.Join(t.TempDir(), "kb.csv")

	err := testApp().Run([]string{"sitekb", "--config", cfg, "files",
		"--root", root,
		"--llm-url", srv.URL + "/v1/chat/completions",
		"--output", out,
	})
	require.NoError(t, err)

	records, err := kbtable.ReadFile(out)
	require.NoError(t, err)
	require.Len(t, records, 10)
	for _, r := range records {
		assert.Equal(t, "Respuesta generada.", r.Answer)
		assert.Equal(t, "servicios", r.Category)
		assert.Equal(t, "https://deseguridad.net/servicios/riesgo", r.SourceURL)
		assert.Contains(t, r.Question, "Riesgo Psicosocial")
	}
}

func TestURLsCommandFallsBackWhenBackendFails(t *testing.T) {
	backend := backendServer(t, http.StatusInternalServerError)

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/terminos-y-condiciones/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><head><title>Términos - DeSeguridad.net</title></head><body><article><h2>Uso</h2><p>Reglas.</p></article></body></html>`)
	}))
	defer site.Close()

	urlsFile := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(urlsFile, []byte(strings.Join([]string{
		"# legales",
		site.URL + "/terminos-y-condiciones/",
		"",
		site.URL + "/no-existe/",
	}, "\n")), 0644))

	cfg := writeConfig(t, "llm:\n  api_key: test-key\nlog:\n  level: error\n")
	out := filepath.Join(t.TempDir(), "kb.csv")

	err := testApp().Run([]string{"sitekb", "--config", cfg, "urls",
		"--urls-file", urlsFile,
		"--llm-url", backend.URL + "/v1/chat/completions",
		"--output", out,
	})
	require.NoError(t, err)

	records, err := kbtable.ReadFile(out)
	require.NoError(t, err)
	require.Len(t, records, 5)
	want := synth.Fallback("Términos", site.URL+"/terminos-y-condiciones/")
	for _, r := range records {
		assert.Equal(t, want, r.Answer)
		assert.Equal(t, "terminos-y-condiciones", r.Category)
	}
}

func TestURLsCommandRequiresURLs(t *testing.T) {
	cfg := writeConfig(t, "llm:\n  api_key: test-key\n")
	err := testApp().Run([]string{"sitekb", "--config", cfg, "urls"})
	assert.Error(t, err)
}

func TestInvalidConfigIsRejected(t *testing.T) {
	cfg := writeConfig(t, "llm:\n  api_key: test-key\n")
	err := testApp().Run([]string{"sitekb", "--config", cfg, "files", "--root", t.TempDir(), "--workers", "500"})
	assert.Error(t, err)
}

func TestImportCommandValidation(t *testing.T) {
	cfg := writeConfig(t, "log:\n  level: error\n")

	err := testApp().Run([]string{"sitekb", "--config", cfg, "import", "--input", "kb.csv"})
	assert.Error(t, err, "no database configured")

	err = testApp().Run([]string{"sitekb", "--config", cfg, "import", "--input", "kb.csv", "--db-url", "postgres://localhost/x", "--mode", "merge"})
	assert.Error(t, err)
}

func TestSearchCommandValidation(t *testing.T) {
	cfg := writeConfig(t, "log:\n  level: error\n")

	err := testApp().Run([]string{"sitekb", "--config", cfg, "search", "--query", "¿Qué es SST?"})
	assert.Error(t, err, "no database configured")

	err = testApp().Run([]string{"sitekb", "--config", cfg, "search", "--query", "   ", "--db-url", "postgres://localhost/x"})
	assert.Error(t, err, "blank query")
}

func TestReadURLList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(path, []byte("https://a/\n  # comentario\n\n  https://b/  \n"), 0644))

	urls, err := readURLList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a/", "https://b/"}, urls)

	_, err = readURLList(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestFlagsWinOverEnvironment(t *testing.T) {
	var models []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		models = append(models, req.Model)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer srv.Close()

	cfg := writeConfig(t, "llm:\n  api_key: test-key\n  model: file-model\nlog:\n  level: error\n")
	t.Setenv("LLM_MODEL", "env-model")

	err := testApp().Run([]string{"sitekb", "--config", cfg, "probe", "--llm-url", srv.URL + "/v1/chat/completions"})
	require.NoError(t, err)
	err = testApp().Run([]string{"sitekb", "--config", cfg, "probe", "--llm-url", srv.URL + "/v1/chat/completions", "--llm-model", "flag-model"})
	require.NoError(t, err)

	assert.Equal(t, []string{"env-model", "flag-model"}, models)
}
