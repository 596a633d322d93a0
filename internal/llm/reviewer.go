package llm

import (
	"context"
	"fmt"
	"sync"
)

// Limiter throttles provider calls by key
type Limiter interface {
	Wait(ctx context.Context, key string) error
}

// Outcome is the result of one clause review. NoResult marks an explicit
// absence of judgment: the provider is disabled, unavailable or failed.
type Outcome struct {
	Judgment *Judgment
	NoResult bool
	Warning  string
}

// Reviewer wraps a provider and converts failures into no-result outcomes
// so a run never fails because judgment is unavailable
type Reviewer struct {
	provider Provider
	config   Config
	limiter  Limiter

	availableOnce sync.Once
	available     bool
}

// NewReviewer creates a reviewer from configuration. An empty provider
// name yields a disabled reviewer.
func NewReviewer(config Config) (*Reviewer, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return &Reviewer{provider: provider, config: config}, nil
}

// NewReviewerWithProvider wraps an already constructed provider
func NewReviewerWithProvider(provider Provider, config Config) *Reviewer {
	return &Reviewer{provider: provider, config: config}
}

// WithLimiter throttles provider calls, keyed by provider name
func (r *Reviewer) WithLimiter(l Limiter) *Reviewer {
	r.limiter = l
	return r
}

// IsEnabled reports whether a provider is configured
func (r *Reviewer) IsEnabled() bool {
	return r != nil && r.provider != nil
}

// ProviderName returns the configured provider name, or ""
func (r *Reviewer) ProviderName() string {
	if !r.IsEnabled() {
		return ""
	}
	return r.provider.Name()
}

// Model returns the configured model name
func (r *Reviewer) Model() string {
	if r == nil {
		return ""
	}
	return r.config.Model
}

// Available checks provider availability once per reviewer
func (r *Reviewer) Available(ctx context.Context) bool {
	if !r.IsEnabled() {
		return false
	}
	r.availableOnce.Do(func() {
		r.available = r.provider.IsAvailable(ctx)
	})
	return r.available
}

// Review judges one clause
func (r *Reviewer) Review(ctx context.Context, req JudgeRequest) Outcome {
	if !r.IsEnabled() {
		return Outcome{NoResult: true, Warning: "judgment provider disabled"}
	}
	if !r.Available(ctx) {
		return Outcome{NoResult: true, Warning: fmt.Sprintf("LLM provider %s is not available", r.provider.Name())}
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx, r.provider.Name()); err != nil {
			return Outcome{NoResult: true, Warning: fmt.Sprintf("rate limit wait for clause %s: %v", req.ClauseID, err)}
		}
	}

	if req.Model == "" {
		req.Model = r.config.Model
	}

	judgment, err := r.provider.Judge(ctx, req)
	if err != nil {
		return Outcome{NoResult: true, Warning: fmt.Sprintf("judgment failed for clause %s: %v", req.ClauseID, err)}
	}
	return Outcome{Judgment: judgment}
}
