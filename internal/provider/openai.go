package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	openAIBaseURL = "https://api.openai.com/v1"
	openAIModel   = "gpt-4o-mini"
)

// OpenAI generates projects through the OpenAI chat completions API.
type OpenAI struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewOpenAI creates an unconfigured OpenAI adapter.
func NewOpenAI(logger *zap.Logger) *OpenAI {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAI{
		model:      openAIModel,
		baseURL:    openAIBaseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		logger:     logger,
	}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Configure(creds Credentials) error {
	if strings.TrimSpace(creds.APIKey) == "" {
		return fmt.Errorf("openai: %w: empty API key", ErrInvalidCredentials)
	}
	o.apiKey = creds.APIKey
	if creds.Model != "" {
		o.model = creds.Model
	}
	if creds.BaseURL != "" {
		o.baseURL = strings.TrimRight(creds.BaseURL, "/")
	}
	return nil
}

func (o *OpenAI) IsReady() bool { return o.apiKey != "" }

type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	Temperature    float64               `json:"temperature"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

func (o *OpenAI) complete(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	reqBody := openAIRequest{
		Model:       o.model,
		Temperature: 0.2,
		Messages: []openAIMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	if system == "" {
		reqBody.Messages = reqBody.Messages[1:]
	}
	if jsonMode {
		reqBody.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("openai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("openai: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", newAPIError(o.Name(), 0, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newAPIError(o.Name(), resp.StatusCode, "read response body", err)
	}

	var decoded openAIResponse
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &decoded) == nil && decoded.Error != nil {
			msg = decoded.Error.Message
		}
		return "", newAPIError(o.Name(), resp.StatusCode, msg, nil)
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", newAPIError(o.Name(), resp.StatusCode, "decode response", err)
	}
	if decoded.Error != nil {
		return "", newAPIError(o.Name(), resp.StatusCode, decoded.Error.Message, nil)
	}
	if len(decoded.Choices) == 0 || decoded.Choices[0].Message.Content == "" {
		return "", newAPIError(o.Name(), resp.StatusCode, "empty completion", nil)
	}
	return decoded.Choices[0].Message.Content, nil
}

func (o *OpenAI) Generate(ctx context.Context, prompt string, opts GenerateOptions) (*Project, error) {
	if !o.IsReady() {
		return nil, fmt.Errorf("openai: %w", ErrNotConfigured)
	}
	raw, err := o.complete(ctx, systemPrompt, buildUserPrompt(prompt, opts), true)
	if err != nil {
		return nil, err
	}
	return buildProject(raw, opts)
}

func (o *OpenAI) GenerateSafe(ctx context.Context, prompt string, opts GenerateOptions) *SafeResult {
	return generateSafe(ctx, o, prompt, opts, o.logger)
}

func (o *OpenAI) TestConnection(ctx context.Context) ConnectionStatus {
	if !o.IsReady() {
		return ConnectionStatus{Message: ErrNotConfigured.Error()}
	}
	if _, err := o.complete(ctx, "", "Reply with the single word: ok", false); err != nil {
		return ConnectionStatus{Message: err.Error()}
	}
	return ConnectionStatus{Success: true, Message: "connected to " + o.model}
}
