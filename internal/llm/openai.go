// Package llm provides chat model drivers for OpenAI-compatible endpoints
// (OpenAI, Azure OpenAI, Ollama's /v1 surface, vLLM and friends).
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kaptinlin/jsonrepair"

	"github.com/medkit-ai/diagnon/pkg/contracts"
	"github.com/medkit-ai/diagnon/pkg/models"
)

// OpenAIDriver implements contracts.ChatModel and contracts.StructuredModel
// against a chat-completions API.
type OpenAIDriver struct {
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	client      *http.Client
}

// Option configures the driver.
type Option func(*OpenAIDriver)

// WithTemperature sets the sampling temperature (default 0.2).
func WithTemperature(t float64) Option {
	return func(d *OpenAIDriver) { d.temperature = t }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *OpenAIDriver) { d.client = c }
}

// NewOpenAIDriver creates a driver for the given endpoint and model.
func NewOpenAIDriver(endpoint, apiKey, model string, opts ...Option) *OpenAIDriver {
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1"
	}
	d := &OpenAIDriver{
		endpoint:    endpoint,
		apiKey:      apiKey,
		model:       model,
		temperature: 0.2,
		client:      &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type chatRequest struct {
	Model          string               `json:"model"`
	Messages       []models.ChatMessage `json:"messages"`
	Temperature    float64              `json:"temperature"`
	ResponseFormat *responseFormat      `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
}

// Generate sends the conversation and returns the model's free-text reply.
func (d *OpenAIDriver) Generate(ctx context.Context, messages []models.ChatMessage) (*contracts.Completion, error) {
	resp, err := d.call(ctx, chatRequest{
		Model:       d.model,
		Messages:    messages,
		Temperature: d.temperature,
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GenerateStructured constrains the model to JSON output and decodes it
// into out. A repair pass handles almost-JSON before failing.
func (d *OpenAIDriver) GenerateStructured(ctx context.Context, messages []models.ChatMessage, out any) (models.TokenUsage, error) {
	resp, err := d.call(ctx, chatRequest{
		Model:          d.model,
		Messages:       messages,
		Temperature:    d.temperature,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return models.TokenUsage{}, err
	}

	if err := json.Unmarshal([]byte(resp.Content), out); err != nil {
		fixed, rerr := jsonrepair.JSONRepair(resp.Content)
		if rerr != nil {
			return resp.Usage, fmt.Errorf("decode structured output: %w", err)
		}
		if err := json.Unmarshal([]byte(fixed), out); err != nil {
			return resp.Usage, fmt.Errorf("decode structured output after repair: %w", err)
		}
	}
	return resp.Usage, nil
}

func (d *OpenAIDriver) call(ctx context.Context, reqBody chatRequest) (*contracts.Completion, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := d.endpoint + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if d.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+d.apiKey)
	}

	httpResp, err := d.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("chat API returned %d: %s", httpResp.StatusCode, string(respBody))
	}

	var resp chatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat API returned no choices")
	}

	return &contracts.Completion{
		Content: resp.Choices[0].Message.Content,
		Usage: models.TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}, nil
}
