package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
)

const probePrompt = "Responde solo con la palabra: ok"

// ProbeResult is the outcome of one connectivity check.
type ProbeResult struct {
	Models     []string
	ModelsErr  error
	StatusCode int
	Content    string
}

// HasContent reports whether the backend returned choices[0].message.content.
func (r ProbeResult) HasContent() bool {
	return strings.TrimSpace(r.Content) != ""
}

// Probe lists models (best effort) and sends one short prompt straight to
// an OpenAI-compatible endpoint. It returns an error only when the chat
// request itself fails.
func Probe(ctx context.Context, config ChatConfig) (ProbeResult, error) {
	transportCfg := goopenai.DefaultConfig(config.APIKey)
	transportCfg.BaseURL = BaseURL(config.Endpoint)
	if config.HTTPClient != nil {
		transportCfg.HTTPClient = config.HTTPClient
	}
	client := goopenai.NewClientWithConfig(transportCfg)

	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	var result ProbeResult
	models, err := client.ListModels(ctx)
	if err != nil {
		result.ModelsErr = err
	} else {
		for _, m := range models.Models {
			result.Models = append(result.Models, m.ID)
		}
	}

	resp, err := client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: config.Model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: probePrompt},
		},
	})
	if err != nil {
		result.StatusCode = statusCode(err)
		return result, fmt.Errorf("probe request failed: %w", err)
	}

	result.StatusCode = http.StatusOK
	if len(resp.Choices) > 0 {
		result.Content = resp.Choices[0].Message.Content
	}
	return result, nil
}

func statusCode(err error) int {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
