package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Router tries registered providers in registration order and returns the
// first success. Each provider is attempted at most once per request.
type Router struct {
	providers map[string]Provider
	fallback  []string // ordered fallback chain
	mu        sync.RWMutex
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the end of the fallback chain. Registering a
// name twice replaces the provider but keeps its position.
func (r *Router) Register(name string, provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[name]; !ok {
		r.fallback = append(r.fallback, name)
	}
	r.providers[name] = provider
}

// Names returns the provider names in fallback order.
func (r *Router) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.fallback...)
}

// Complete routes a request to the first provider that succeeds. When all
// fail the returned error joins every provider's failure.
func (r *Router) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.fallback) == 0 {
		return CompletionResponse{}, ErrNoProviders
	}

	var errs []error
	for _, name := range r.fallback {
		if err := ctx.Err(); err != nil {
			return CompletionResponse{}, err
		}

		resp, err := r.providers[name].Complete(ctx, req)
		if err != nil {
			slog.Warn("AI provider failed, trying next",
				"provider", name,
				"task", req.Task.String(),
				"error", err,
			)
			errs = append(errs, tag(name, err))
			continue
		}

		resp.Provider = name
		slog.Debug("AI request completed",
			"provider", name,
			"task", req.Task.String(),
			"model", resp.Model,
			"input_tokens", resp.InputTokens,
			"output_tokens", resp.OutputTokens,
		)
		return resp, nil
	}

	return CompletionResponse{}, fmt.Errorf("all AI providers failed: %w", errors.Join(errs...))
}

// StreamComplete opens a stream on the first provider that accepts the
// request. Failures after the stream has started are reported in-band.
func (r *Router) StreamComplete(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.fallback) == 0 {
		return nil, ErrNoProviders
	}

	var errs []error
	for _, name := range r.fallback {
		ch, err := r.providers[name].StreamComplete(ctx, req)
		if err != nil {
			slog.Warn("AI provider stream failed, trying next", "provider", name, "error", err)
			errs = append(errs, tag(name, err))
			continue
		}
		return ch, nil
	}
	return nil, fmt.Errorf("all AI providers failed: %w", errors.Join(errs...))
}

// Models lists the models of every registered provider.
func (r *Router) Models() []ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []ModelInfo
	for _, name := range r.fallback {
		out = append(out, r.providers[name].Models()...)
	}
	return out
}

// HealthCheck succeeds when at least one provider is healthy.
func (r *Router) HealthCheck(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.fallback) == 0 {
		return ErrNoProviders
	}
	var errs []error
	for _, name := range r.fallback {
		err := r.providers[name].HealthCheck(ctx)
		if err == nil {
			return nil
		}
		errs = append(errs, tag(name, err))
	}
	return errors.Join(errs...)
}

// HasProvider returns true if at least one provider is registered.
func (r *Router) HasProvider() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers) > 0
}

var _ Provider = (*Router)(nil)

// tag prefixes err with the provider name unless a ProviderError already
// carries it.
func tag(name string, err error) error {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return fmt.Errorf("%s: %w", name, err)
}
