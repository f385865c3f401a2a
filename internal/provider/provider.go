// Package provider defines the capability contract for interchangeable LLM
// generation backends and implements the adapters for the supported APIs.
// Each adapter turns a project prompt into a validated task hierarchy: it
// calls its backend, recovers JSON from the raw response, and runs the
// hierarchy builder and validator before returning a project.
package provider

import (
	"context"
	"errors"
	"time"

	"planforge/internal/analysis"
	"planforge/internal/hierarchy"
)

// Provider is the capability set every generation backend implements.
// Configure must be called before any generation; IsReady reports whether it
// was. Generate performs a single attempt, GenerateSafe wraps it in the
// classified retry loop, and TestConnection issues a minimal round-trip.
type Provider interface {
	Name() string
	Configure(creds Credentials) error
	IsReady() bool
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (*Project, error)
	GenerateSafe(ctx context.Context, prompt string, opts GenerateOptions) *SafeResult
	TestConnection(ctx context.Context) ConnectionStatus
}

// Credentials configures one provider. Model and BaseURL are optional
// overrides; each adapter supplies its own defaults.
type Credentials struct {
	APIKey  string
	Model   string
	BaseURL string
}

// GenerateOptions tunes a generation request.
type GenerateOptions struct {
	Complexity         string // basic, medium, detailed
	IncludeTeamMembers bool
	MaxTasks           int

	// Retry tuning for GenerateSafe. Zero values take the defaults.
	MaxRetries int
	BaseDelay  time.Duration
	CapDelay   time.Duration

	// Analysis is the prompt structure descriptor. The orchestrator fills it
	// in when the caller did not.
	Analysis *analysis.PromptAnalysis
}

// Retry defaults for GenerateSafe.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 1000 * time.Millisecond
	DefaultCapDelay   = 10 * time.Second
	DefaultMaxTasks   = 20
)

func (o GenerateOptions) maxRetries() int {
	if o.MaxRetries > 0 {
		return o.MaxRetries
	}
	return DefaultMaxRetries
}

func (o GenerateOptions) baseDelay() time.Duration {
	if o.BaseDelay > 0 {
		return o.BaseDelay
	}
	return DefaultBaseDelay
}

func (o GenerateOptions) capDelay() time.Duration {
	if o.CapDelay > 0 {
		return o.CapDelay
	}
	return DefaultCapDelay
}

func (o GenerateOptions) maxTasks() int {
	if o.MaxTasks > 0 {
		return o.MaxTasks
	}
	return DefaultMaxTasks
}

// Draft is the untrusted project shape decoded from LLM output.
type Draft struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Tasks       []hierarchy.RawTask `json:"tasks"`
	TeamMembers []TeamMember        `json:"teamMembers,omitempty"`
}

// Project is a fully built and validated generation result.
type Project struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Tasks       []hierarchy.Task `json:"tasks"`
	TeamMembers []TeamMember     `json:"teamMembers,omitempty"`
}

// TeamMember is an optional project staffing suggestion.
type TeamMember struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// SafeResult is the outcome of one provider's full retry loop.
type SafeResult struct {
	Success      bool
	Project      *Project
	Errors       []string
	RetryCount   int
	RetryHistory []RetryAttempt
}

// RetryAttempt records one failed attempt inside GenerateSafe.
type RetryAttempt struct {
	Attempt int
	Delay   time.Duration
	Error   string
	Class   ErrorClass
}

// ConnectionStatus reports the result of TestConnection.
type ConnectionStatus struct {
	Success bool
	Message string
}

var (
	// ErrInvalidCredentials is returned by Configure for unusable credentials.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotConfigured is returned when generation is requested from a
	// provider that was never configured.
	ErrNotConfigured = errors.New("provider not configured")
)
