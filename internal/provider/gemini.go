package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const geminiModel = "gemini-2.0-flash"

// Gemini generates projects through the Google GenAI SDK.
type Gemini struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewGemini creates an unconfigured Gemini adapter.
func NewGemini(logger *zap.Logger) *Gemini {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gemini{
		model:  geminiModel,
		logger: logger,
	}
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Configure(creds Credentials) error {
	if strings.TrimSpace(creds.APIKey) == "" {
		return fmt.Errorf("gemini: %w: empty API key", ErrInvalidCredentials)
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: creds.APIKey,
	})
	if err != nil {
		return fmt.Errorf("gemini: create client: %w", err)
	}
	g.client = client
	if creds.Model != "" {
		g.model = creds.Model
	}
	return nil
}

func (g *Gemini) IsReady() bool { return g.client != nil }

func (g *Gemini) complete(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.2),
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if jsonMode {
		config.ResponseMIMEType = "application/json"
	}

	contents := []*genai.Content{
		genai.NewContentFromText(user, genai.RoleUser),
	}
	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", newAPIError(g.Name(), genaiStatus(err), err.Error(), err)
	}

	text := result.Text()
	if text == "" {
		return "", newAPIError(g.Name(), 0, "empty completion", nil)
	}
	return text, nil
}

// genaiStatus pulls the HTTP status out of an SDK API error so the shared
// classifier can use the status table.
func genaiStatus(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}

func (g *Gemini) Generate(ctx context.Context, prompt string, opts GenerateOptions) (*Project, error) {
	if !g.IsReady() {
		return nil, fmt.Errorf("gemini: %w", ErrNotConfigured)
	}
	raw, err := g.complete(ctx, systemPrompt, buildUserPrompt(prompt, opts), true)
	if err != nil {
		return nil, err
	}
	return buildProject(raw, opts)
}

func (g *Gemini) GenerateSafe(ctx context.Context, prompt string, opts GenerateOptions) *SafeResult {
	return generateSafe(ctx, g, prompt, opts, g.logger)
}

func (g *Gemini) TestConnection(ctx context.Context) ConnectionStatus {
	if !g.IsReady() {
		return ConnectionStatus{Message: ErrNotConfigured.Error()}
	}
	if _, err := g.complete(ctx, "", "Reply with the single word: ok", false); err != nil {
		return ConnectionStatus{Message: err.Error()}
	}
	return ConnectionStatus{Success: true, Message: "connected to " + g.model}
}
