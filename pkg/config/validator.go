package config

import (
	"fmt"
	"net/url"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate corpus config
	if !isHTTPURL(c.Corpus.BaseURL) {
		errors = append(errors, ValidationError{
			Field:   "corpus.base_url",
			Message: "base URL must be an absolute http(s) URL",
		})
	}

	for _, raw := range c.Corpus.URLs {
		if !isHTTPURL(raw) {
			errors = append(errors, ValidationError{
				Field:   "corpus.urls",
				Message: fmt.Sprintf("invalid URL: %s", raw),
			})
		}
	}

	for _, ext := range c.Corpus.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errors = append(errors, ValidationError{
				Field:   "corpus.extensions",
				Message: fmt.Sprintf("invalid extension format: %s", ext),
			})
		}
	}

	// Validate LLM config
	switch c.LLM.Provider {
	case "openai", "ollama":
	default:
		errors = append(errors, ValidationError{
			Field:   "llm.provider",
			Message: fmt.Sprintf("unknown provider: %q", c.LLM.Provider),
		})
	}

	if !isHTTPURL(c.LLM.Endpoint) {
		errors = append(errors, ValidationError{
			Field:   "llm.endpoint",
			Message: "endpoint must be an absolute http(s) URL",
		})
	}

	if c.LLM.Timeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "llm.timeout",
			Message: "timeout must be positive",
		})
	}

	if c.LLM.MaxContentChars < 1 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_content_chars",
			Message: "max_content_chars must be positive",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	// Validate fetch config
	if c.Fetch.Timeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "fetch.timeout",
			Message: "timeout must be positive",
		})
	}

	if c.Fetch.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "fetch.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.Pipeline.Workers < 1 || c.Pipeline.Workers > 64 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.workers",
			Message: "workers must be between 1 and 64",
		})
	}

	// Validate Database config
	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	if c.Database.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.batch_size",
			Message: "batch_size must be positive",
		})
	}

	return errors
}

// RequireCorpus reports ErrNoCorpus when the selected mode has nothing to read.
func (c *Config) RequireCorpus(urlMode bool) error {
	if urlMode && len(c.Corpus.URLs) == 0 {
		return fmt.Errorf("%w: corpus.urls is empty", ErrNoCorpus)
	}
	if !urlMode && c.Corpus.Root == "" {
		return fmt.Errorf("%w: corpus.root is empty", ErrNoCorpus)
	}
	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
