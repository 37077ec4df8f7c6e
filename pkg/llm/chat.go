package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/xhad/sitekb/internal/types"
)

// ErrEmptyAnswer is returned when the backend responds without content.
var ErrEmptyAnswer = errors.New("backend returned an empty answer")

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Provider    string
	Endpoint    string // full chat-completions URL, or the Ollama server URL
	APIKey      string
	Model       string
	Temperature float64 // 0 leaves sampling to the server
	Timeout     time.Duration
	HTTPClient  *http.Client
}

var (
	_ types.Backend  = (*ChatEngine)(nil)
	_ types.Embedder = (*Embedder)(nil)
)

// ChatEngine sends single-turn prompts to a chat model.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	if config.Provider == "" {
		config.Provider = ProviderOpenAI
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}

	var (
		model llms.Model
		err   error
	)
	switch config.Provider {
	case ProviderOpenAI:
		if config.Model == "" {
			config.Model = "gpt-4o-mini"
		}
		client := config.HTTPClient
		if config.Temperature == 0 {
			client = withDefaultTemperature(client)
		}
		model, err = openai.New(
			openai.WithToken(config.APIKey),
			openai.WithModel(config.Model),
			openai.WithBaseURL(BaseURL(config.Endpoint)),
			openai.WithHTTPClient(client),
		)
	case ProviderOllama:
		if config.Model == "" {
			config.Model = "mistral"
		}
		if config.Endpoint == "" {
			config.Endpoint = "http://localhost:11434"
		}
		model, err = ollama.New(
			ollama.WithModel(config.Model),
			ollama.WithServerURL(config.Endpoint),
		)
	default:
		return nil, fmt.Errorf("unknown provider %q", config.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &ChatEngine{
		config: config,
		llm:    model,
	}, nil
}

// Complete sends prompt as one user message and returns the first choice.
// Each call is bounded by the configured timeout.
func (ce *ChatEngine) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, ce.config.Timeout)
	defer cancel()

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	var opts []llms.CallOption
	if ce.config.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(ce.config.Temperature))
	}

	response, err := ce.llm.GenerateContent(ctx, content, opts...)
	if err != nil {
		return "", fmt.Errorf("chat error: %w", err)
	}
	if response == nil || len(response.Choices) == 0 || response.Choices[0] == nil {
		return "", ErrEmptyAnswer
	}

	answer := strings.TrimSpace(response.Choices[0].Content)
	if answer == "" {
		return "", ErrEmptyAnswer
	}
	return answer, nil
}

// Model reports the model name in use.
func (ce *ChatEngine) Model() string {
	return ce.config.Model
}

// BaseURL turns a chat-completions endpoint into the API base the
// OpenAI-compatible clients expect.
func BaseURL(endpoint string) string {
	endpoint = strings.TrimRight(endpoint, "/")
	return strings.TrimSuffix(endpoint, "/chat/completions")
}
