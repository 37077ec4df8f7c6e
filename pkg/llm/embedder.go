package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

type embeddingModel interface {
	CreateEmbedding(ctx context.Context, inputTexts []string) ([][]float32, error)
}

// EmbedderConfig represents the configuration for an embedder.
type EmbedderConfig struct {
	Provider   string
	Model      string
	BaseURL    string // Ollama server URL or OpenAI-compatible API base
	APIKey     string
	HTTPClient *http.Client
}

// Embedder turns text into vectors for the knowledge store.
type Embedder struct {
	Config EmbedderConfig
	embed  embeddingModel
}

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Provider == "" {
		config.Provider = ProviderOllama
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}

	var (
		emb embeddingModel
		err error
	)
	switch config.Provider {
	case ProviderOllama:
		if config.Model == "" {
			config.Model = "nomic-embed-text:latest"
		}
		if config.BaseURL == "" {
			config.BaseURL = "http://localhost:11434"
		}
		emb, err = ollama.New(ollama.WithModel(config.Model), ollama.WithServerURL(config.BaseURL))
	case ProviderOpenAI:
		if config.Model == "" {
			config.Model = "text-embedding-3-small"
		}
		emb, err = openai.New(
			openai.WithToken(config.APIKey),
			openai.WithEmbeddingModel(config.Model),
			openai.WithBaseURL(BaseURL(config.BaseURL)),
			openai.WithHTTPClient(config.HTTPClient),
		)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", config.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return &Embedder{
		Config: config,
		embed:  emb,
	}, nil
}

// CreateEmbedding returns one vector per input, in input order.
func (e *Embedder) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := e.embed.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding error: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding error: got %d vectors for %d inputs", len(vectors), len(texts))
	}
	return vectors, nil
}
