// Package orchestrator coordinates generation across the registered providers:
// it keeps the registry, tracks the active provider, and runs the fallback
// chain when a provider's full retry budget fails.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"planforge/internal/analysis"
	"planforge/internal/provider"
)

var (
	// ErrUnknownProvider is returned for a provider name outside the registry.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrProviderNotReady is returned when selecting a provider that has no
	// usable credentials.
	ErrProviderNotReady = errors.New("provider not ready")

	// ErrNoProviderReady means no registered provider has usable credentials.
	ErrNoProviderReady = errors.New("no provider is configured and ready")
)

// Attempt records one provider's turn in the fallback chain.
type Attempt struct {
	Provider   string
	Success    bool
	TimeMs     int64
	RetryCount int
	Error      string
}

// Outcome is the result of a fallback generation run.
type Outcome struct {
	Success  bool
	Project  *provider.Project
	Provider string
	Errors   []string
	Attempts []Attempt
}

// Orchestrator owns the provider registry and the fallback policy. It is not
// safe for concurrent use; each caller owns its own instance.
type Orchestrator struct {
	providers map[string]provider.Provider
	order     []string
	current   string
	logger    *zap.Logger
}

// New builds an orchestrator with the standard registry: anthropic, openai,
// gemini, in fallback order.
func New(logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		providers: make(map[string]provider.Provider),
		logger:    logger,
	}
	o.register(provider.NewAnthropic(logger))
	o.register(provider.NewOpenAI(logger))
	o.register(provider.NewGemini(logger))
	return o
}

func (o *Orchestrator) register(p provider.Provider) {
	o.providers[p.Name()] = p
	o.order = append(o.order, p.Name())
}

// Providers returns the registry names in fallback order.
func (o *Orchestrator) Providers() []string {
	out := make([]string, len(o.order))
	copy(out, o.order)
	return out
}

// Configure applies credentials per provider. A failure configuring one
// provider does not block the others; all failures are returned joined.
func (o *Orchestrator) Configure(creds map[string]provider.Credentials) error {
	var errs []error
	for _, name := range o.order {
		c, ok := creds[name]
		if !ok {
			continue
		}
		if err := o.providers[name].Configure(c); err != nil {
			errs = append(errs, err)
			o.logger.Warn("provider configuration failed",
				zap.String("provider", name), zap.Error(err))
			continue
		}
		o.logger.Info("provider configured", zap.String("provider", name))
	}
	return errors.Join(errs...)
}

// SetProvider pins the active provider.
func (o *Orchestrator) SetProvider(name string) error {
	p, ok := o.providers[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	if !p.IsReady() {
		return fmt.Errorf("%w: %q", ErrProviderNotReady, name)
	}
	o.current = name
	return nil
}

// ActiveProvider returns the current provider, switching to the first ready
// one when the current selection is empty or no longer ready.
func (o *Orchestrator) ActiveProvider() (provider.Provider, error) {
	if o.current != "" {
		if p := o.providers[o.current]; p != nil && p.IsReady() {
			return p, nil
		}
	}
	for _, name := range o.order {
		if p := o.providers[name]; p.IsReady() {
			o.current = name
			return p, nil
		}
	}
	return nil, ErrNoProviderReady
}

// TestProvider runs a connection check against one named provider.
func (o *Orchestrator) TestProvider(ctx context.Context, name string) (provider.ConnectionStatus, error) {
	p, ok := o.providers[name]
	if !ok {
		return provider.ConnectionStatus{}, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p.TestConnection(ctx), nil
}

// GenerateWithFallback runs the full chain: the active provider first, then
// every other ready provider in registry order, each with its own retry
// budget. The first success wins. A provider panic is contained and treated
// as that provider's failure.
func (o *Orchestrator) GenerateWithFallback(ctx context.Context, prompt string, opts provider.GenerateOptions) *Outcome {
	if opts.Analysis == nil {
		an := analysis.Analyze(prompt)
		opts.Analysis = &an
	}

	outcome := &Outcome{}
	chain := o.readyChain()
	if len(chain) == 0 {
		outcome.Errors = append(outcome.Errors, ErrNoProviderReady.Error())
		return outcome
	}

	for _, p := range chain {
		attempt := o.runProvider(ctx, p, prompt, opts)
		outcome.Attempts = append(outcome.Attempts, attempt.Attempt)
		if attempt.Success {
			outcome.Success = true
			outcome.Provider = attempt.Provider
			outcome.Project = attempt.project
			o.current = attempt.Provider
			return outcome
		}
		outcome.Errors = append(outcome.Errors, attempt.Error)
	}

	summary := fmt.Sprintf("all %d providers failed", len(chain))
	outcome.Errors = append([]string{summary}, outcome.Errors...)
	o.logger.Error("generation failed on every provider",
		zap.Int("providers", len(chain)), zap.Strings("errors", outcome.Errors))
	return outcome
}

// readyChain orders the ready providers: the current selection first, the
// rest in registry order.
func (o *Orchestrator) readyChain() []provider.Provider {
	var chain []provider.Provider
	if o.current != "" {
		if p := o.providers[o.current]; p != nil && p.IsReady() {
			chain = append(chain, p)
		}
	}
	for _, name := range o.order {
		if name == o.current {
			continue
		}
		if p := o.providers[name]; p.IsReady() {
			chain = append(chain, p)
		}
	}
	return chain
}

type providerAttempt struct {
	Attempt
	project *provider.Project
}

func (o *Orchestrator) runProvider(ctx context.Context, p provider.Provider, prompt string, opts provider.GenerateOptions) (attempt providerAttempt) {
	attempt.Provider = p.Name()
	start := time.Now()

	defer func() {
		attempt.TimeMs = time.Since(start).Milliseconds()
		if r := recover(); r != nil {
			attempt.Success = false
			attempt.project = nil
			attempt.Error = fmt.Sprintf("%s: panic during generation: %v", p.Name(), r)
			o.logger.Error("provider panicked",
				zap.String("provider", p.Name()), zap.Any("panic", r))
		}
	}()

	o.logger.Info("trying provider", zap.String("provider", p.Name()))
	res := p.GenerateSafe(ctx, prompt, opts)
	attempt.RetryCount = res.RetryCount
	if res.Success {
		attempt.Success = true
		attempt.project = res.Project
		o.logger.Info("generation succeeded",
			zap.String("provider", p.Name()),
			zap.Int("retries", res.RetryCount),
			zap.Int64("elapsed_ms", time.Since(start).Milliseconds()))
		return attempt
	}

	attempt.Error = fmt.Sprintf("%s: %s", p.Name(), lastError(res.Errors))
	o.logger.Warn("provider exhausted",
		zap.String("provider", p.Name()),
		zap.Int("retries", res.RetryCount),
		zap.Strings("errors", res.Errors))
	return attempt
}

func lastError(errs []string) string {
	if len(errs) == 0 {
		return "unknown failure"
	}
	return errs[len(errs)-1]
}
