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
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicModel   = "claude-sonnet-4-20250514"
	anthropicVersion = "2023-06-01"
)

// Anthropic generates projects through the Anthropic messages API.
type Anthropic struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewAnthropic creates an unconfigured Anthropic adapter.
func NewAnthropic(logger *zap.Logger) *Anthropic {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Anthropic{
		model:      anthropicModel,
		baseURL:    anthropicBaseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		logger:     logger,
	}
}

func (a *Anthropic) Name() string { return "anthropic" }

func (a *Anthropic) Configure(creds Credentials) error {
	if strings.TrimSpace(creds.APIKey) == "" {
		return fmt.Errorf("anthropic: %w: empty API key", ErrInvalidCredentials)
	}
	a.apiKey = creds.APIKey
	if creds.Model != "" {
		a.model = creds.Model
	}
	if creds.BaseURL != "" {
		a.baseURL = strings.TrimRight(creds.BaseURL, "/")
	}
	return nil
}

func (a *Anthropic) IsReady() bool { return a.apiKey != "" }

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (a *Anthropic) complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	reqBody := anthropicRequest{
		Model:     a.model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  []anthropicMessage{{Role: "user", Content: user}},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("anthropic: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("anthropic: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", newAPIError(a.Name(), 0, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newAPIError(a.Name(), resp.StatusCode, "read response body", err)
	}

	var decoded anthropicResponse
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &decoded) == nil && decoded.Error != nil {
			msg = decoded.Error.Message
		}
		return "", newAPIError(a.Name(), resp.StatusCode, msg, nil)
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", newAPIError(a.Name(), resp.StatusCode, "decode response", err)
	}
	if decoded.Error != nil {
		return "", newAPIError(a.Name(), resp.StatusCode, decoded.Error.Message, nil)
	}

	var text strings.Builder
	for _, block := range decoded.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", newAPIError(a.Name(), resp.StatusCode, "empty completion", nil)
	}
	return text.String(), nil
}

func (a *Anthropic) Generate(ctx context.Context, prompt string, opts GenerateOptions) (*Project, error) {
	if !a.IsReady() {
		return nil, fmt.Errorf("anthropic: %w", ErrNotConfigured)
	}
	raw, err := a.complete(ctx, systemPrompt, buildUserPrompt(prompt, opts), 8192)
	if err != nil {
		return nil, err
	}
	return buildProject(raw, opts)
}

func (a *Anthropic) GenerateSafe(ctx context.Context, prompt string, opts GenerateOptions) *SafeResult {
	return generateSafe(ctx, a, prompt, opts, a.logger)
}

func (a *Anthropic) TestConnection(ctx context.Context) ConnectionStatus {
	if !a.IsReady() {
		return ConnectionStatus{Message: ErrNotConfigured.Error()}
	}
	if _, err := a.complete(ctx, "", "Reply with the single word: ok", 16); err != nil {
		return ConnectionStatus{Message: err.Error()}
	}
	return ConnectionStatus{Success: true, Message: "connected to " + a.model}
}
