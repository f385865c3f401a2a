package provider

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// backoffDelay computes the wait before retry attempt n (0-based):
// min(base * 2^n * rand(0.5, 1.0), cap). The jitter spreads concurrent
// callers; the cap bounds a fully exhausted schedule.
func backoffDelay(base, ceiling time.Duration, attempt int) time.Duration {
	d := base << uint(attempt)
	if d <= 0 || d > ceiling {
		d = ceiling
	}
	jittered := time.Duration(float64(d) * (0.5 + rand.Float64()*0.5))
	if jittered > ceiling {
		jittered = ceiling
	}
	return jittered
}

// generateSafe is the retry loop shared by every adapter: up to maxRetries
// additional attempts with jittered exponential backoff, stopping immediately
// when a failure classifies as permanent. The result is never an error; all
// failures are folded into the SafeResult.
func generateSafe(ctx context.Context, p Provider, prompt string, opts GenerateOptions, logger *zap.Logger) *SafeResult {
	if logger == nil {
		logger = zap.NewNop()
	}
	result := &SafeResult{}

	maxRetries := opts.maxRetries()
	for attempt := 0; attempt <= maxRetries; attempt++ {
		var delay time.Duration
		if attempt > 0 {
			delay = backoffDelay(opts.baseDelay(), opts.capDelay(), attempt-1)
			time.Sleep(delay)
		}

		project, err := p.Generate(ctx, prompt, opts)
		if err == nil {
			result.Success = true
			result.Project = project
			result.RetryCount = attempt
			return result
		}

		class := classifyFailure(p.Name(), err)
		result.Errors = append(result.Errors, err.Error())
		result.RetryHistory = append(result.RetryHistory, RetryAttempt{
			Attempt: attempt,
			Delay:   delay,
			Error:   err.Error(),
			Class:   class,
		})
		result.RetryCount = attempt

		logger.Warn("generation attempt failed",
			zap.String("provider", p.Name()),
			zap.Int("attempt", attempt),
			zap.String("class", class.String()),
			zap.Error(err))

		if class == ClassPermanent {
			break
		}
	}
	return result
}
