package router

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zen-systems/flowroute/pkg/adapter"
	"github.com/zen-systems/flowroute/pkg/config"
)

// Route is a recommendation bound to the provider adapter that serves it.
type Route struct {
	Recommendation *ModelRecommendation `json:"recommendation"`
	Adapter        string               `json:"adapter"`
	Model          string               `json:"model"`
}

// Result is the outcome of sending a prompt along its route.
type Result struct {
	Route    Route              `json:"route"`
	Response *adapter.Response  `json:"response"`
	Report   adapter.CallReport `json:"report"`
}

// Dispatcher recommends a model for a prompt and sends the prompt to it.
type Dispatcher struct {
	engine        *Engine
	adapters      map[string]adapter.Adapter
	aliases       *config.ModelAliases
	providerRules []ProviderRule
	retry         config.RetryConfig
	logger        *slog.Logger
}

// DispatchOption configures a Dispatcher.
type DispatchOption func(*Dispatcher)

// WithCatalogue sets the model catalogue used to find providers and prices.
func WithCatalogue(aliases *config.ModelAliases) DispatchOption {
	return func(d *Dispatcher) {
		d.aliases = aliases
	}
}

// WithRetryConfig sets the retry policy for provider calls.
func WithRetryConfig(cfg config.RetryConfig) DispatchOption {
	return func(d *Dispatcher) {
		d.retry = cfg
	}
}

// WithProviderRules replaces the rules used for models missing from the catalogue.
func WithProviderRules(rules []ProviderRule) DispatchOption {
	return func(d *Dispatcher) {
		d.providerRules = rules
	}
}

// WithDispatchLogger sets the dispatcher's logger.
func WithDispatchLogger(logger *slog.Logger) DispatchOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher creates a dispatcher over the given adapters, keyed by adapter name.
func NewDispatcher(engine *Engine, adapters map[string]adapter.Adapter, opts ...DispatchOption) *Dispatcher {
	d := &Dispatcher{
		engine:        engine,
		adapters:      adapters,
		providerRules: DefaultProviderRules,
		retry:         config.DefaultRetryConfig(),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Route recommends a model for prompt and finds the provider serving it.
func (d *Dispatcher) Route(ctx context.Context, prompt string, opts *config.RouterOptions) (*Route, error) {
	rec, err := d.engine.Recommend(ctx, prompt, opts)
	if err != nil {
		return nil, err
	}
	model := d.aliases.Resolve(rec.RecommendedModel)
	return &Route{
		Recommendation: rec,
		Adapter:        d.ProviderFor(model),
		Model:          model,
	}, nil
}

// ProviderFor returns the adapter name serving model: the catalogue first,
// then the provider rules. Returns "" when neither knows the model.
func (d *Dispatcher) ProviderFor(model string) string {
	if provider := d.aliases.GetProviderForModel(model); provider != "" {
		return provider
	}
	return ProviderForModel(model, d.providerRules)
}

// Send routes prompt and generates a response, retrying transient failures.
func (d *Dispatcher) Send(ctx context.Context, prompt string, opts *config.RouterOptions) (*Result, error) {
	route, err := d.Route(ctx, prompt, opts)
	if err != nil {
		return nil, err
	}
	a, ok := d.adapters[route.Adapter]
	if !ok {
		return nil, fmt.Errorf("no adapter available for model %s (provider %q)", route.Model, route.Adapter)
	}

	resp, report, err := d.callWithRetry(ctx, a, route.Model, prompt)
	result := &Result{Route: *route, Response: resp, Report: report}
	if err != nil {
		return result, fmt.Errorf("%s/%s: %w", route.Adapter, route.Model, err)
	}
	return result, nil
}

func (d *Dispatcher) callWithRetry(ctx context.Context, a adapter.Adapter, model, prompt string) (*adapter.Response, adapter.CallReport, error) {
	report := adapter.CallReport{
		Adapter: a.Name(),
		Model:   model,
		Cost:    adapter.Cost{Currency: "USD"},
	}

	maxRetries := max(d.retry.MaxRetries, 0)
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		report.Retries = attempt
		resp, err := a.Generate(ctx, model, prompt)
		if err == nil {
			report.Usage = normalizeUsage(resp.Usage)
			report.Cost = d.estimateCost(model, report.Usage)
			return resp, report, nil
		}

		lastErr = err
		if !adapter.IsTransient(err) || attempt == maxRetries {
			break
		}

		backoff := computeBackoff(d.retry.BaseBackoffMs, d.retry.MaxBackoffMs, attempt)
		d.logger.Debug("retrying provider call", "adapter", a.Name(), "model", model, "attempt", attempt+1, "backoff", backoff, "error", err)
		if err := sleepWithContext(ctx, backoff); err != nil {
			lastErr = err
			break
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("%s/%s: no attempt made", a.Name(), model)
	}
	report.Error = lastErr.Error()
	return nil, report, lastErr
}

func (d *Dispatcher) estimateCost(model string, usage adapter.Usage) adapter.Cost {
	pricing, ok := d.aliases.PricingFor(model)
	if !ok {
		return adapter.Cost{Currency: "USD"}
	}
	return adapter.Cost{
		Currency:     "USD",
		Amount:       pricing.Cost(usage.PromptTokens, usage.CompletionTokens),
		IsEstimate:   true,
		PricingModel: "per_1k_tokens",
	}
}

func normalizeUsage(usage *adapter.Usage) adapter.Usage {
	if usage == nil {
		return adapter.Usage{}
	}
	out := *usage
	if out.TotalTokens == 0 {
		out.TotalTokens = out.PromptTokens + out.CompletionTokens
	}
	return out
}

func computeBackoff(baseMs, maxMs, attempt int) time.Duration {
	backoff := time.Duration(baseMs) * time.Millisecond
	limit := time.Duration(maxMs) * time.Millisecond
	for i := 0; i < attempt; i++ {
		backoff *= 2
		if backoff >= limit {
			return limit
		}
	}
	if backoff > limit {
		return limit
	}
	return backoff
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
