package nl2sql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	APITypeAzure  = "azure"
	APITypeOpenAI = "openai"
)

type OpenAIConfig struct {
	APIType    string
	BaseURL    string
	APIKey     string
	Model      string
	APIVersion string
	Params     Params
	Timeout    time.Duration
	HTTPClient *http.Client
}

// OpenAICompleter calls a completions endpoint, either an Azure OpenAI
// deployment or an OpenAI-compatible /v1/completions route.
type OpenAICompleter struct {
	apiType  string
	endpoint string
	apiKey   string
	model    string
	params   Params
	client   *http.Client
}

func NewOpenAICompleter(cfg OpenAIConfig) (*OpenAICompleter, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	apiType := strings.ToLower(strings.TrimSpace(cfg.APIType))
	if apiType == "" {
		apiType = APITypeAzure
	}

	var endpoint string
	switch apiType {
	case APITypeAzure:
		version := strings.TrimSpace(cfg.APIVersion)
		if version == "" {
			version = "2022-12-01"
		}
		endpoint = baseURL + "/openai/deployments/" + url.PathEscape(model) + "/completions?api-version=" + url.QueryEscape(version)
	case APITypeOpenAI:
		if strings.HasSuffix(baseURL, "/v1") {
			endpoint = baseURL + "/completions"
		} else {
			endpoint = baseURL + "/v1/completions"
		}
	default:
		return nil, fmt.Errorf("unsupported api type %q", cfg.APIType)
	}

	params := cfg.Params
	if params.MaxTokens <= 0 {
		params = DefaultParams()
	}
	client := cfg.HTTPClient
	if client == nil {
		// A zero timeout leaves the request bounded only by ctx.
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &OpenAICompleter{
		apiType:  apiType,
		endpoint: endpoint,
		apiKey:   strings.TrimSpace(cfg.APIKey),
		model:    model,
		params:   params,
		client:   client,
	}, nil
}

type completionPayload struct {
	Model            string   `json:"model,omitempty"`
	Prompt           string   `json:"prompt"`
	Temperature      float64  `json:"temperature"`
	MaxTokens        int      `json:"max_tokens"`
	TopP             float64  `json:"top_p"`
	FrequencyPenalty float64  `json:"frequency_penalty"`
	PresencePenalty  float64  `json:"presence_penalty"`
	Stop             []string `json:"stop"`
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (Completion, error) {
	payload := completionPayload{
		Prompt:           prompt,
		Temperature:      c.params.Temperature,
		MaxTokens:        c.params.MaxTokens,
		TopP:             c.params.TopP,
		FrequencyPenalty: c.params.FrequencyPenalty,
		PresencePenalty:  c.params.PresencePenalty,
		Stop:             c.params.Stop,
	}
	if c.apiType == APITypeOpenAI {
		payload.Model = c.model
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Completion{}, fmt.Errorf("marshal completion payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Completion{}, fmt.Errorf("build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiType == APITypeAzure {
		httpReq.Header.Set("api-key", c.apiKey)
	} else {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Completion{}, fmt.Errorf("request completion: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	rawRespBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Completion{}, fmt.Errorf("read completion response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return Completion{}, fmt.Errorf("completion failed status=%d body=%s", resp.StatusCode, string(rawRespBody))
	}

	var parsed struct {
		Model   string `json:"model"`
		Choices []struct {
			Text         string `json:"text"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(rawRespBody, &parsed); err != nil {
		return Completion{}, fmt.Errorf("decode completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return Completion{}, ErrEmptyChoices
	}

	model := parsed.Model
	if model == "" {
		model = c.model
	}
	return Completion{
		Text:             parsed.Choices[0].Text,
		FinishReason:     parsed.Choices[0].FinishReason,
		Model:            model,
		PromptTokens:     parsed.Usage.PromptTokens,
		CompletionTokens: parsed.Usage.CompletionTokens,
	}, nil
}
