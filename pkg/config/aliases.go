package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// ModelAliases maps short names to canonical model ids and records which
// provider serves each model.
type ModelAliases struct {
	Aliases   map[string]string       `yaml:"aliases"`
	Providers map[string][]string     `yaml:"providers"`
	Pricing   map[string]ModelPricing `yaml:"pricing,omitempty"`
}

// ModelPricing is the per-1k token price of a model, in USD.
type ModelPricing struct {
	PromptPer1K     float64 `yaml:"prompt_per_1k,omitempty"`
	CompletionPer1K float64 `yaml:"completion_per_1k,omitempty"`
}

// AliasesFile is the alias catalogue name under the config directory.
const AliasesFile = "models.yaml"

// LoadAliases reads model aliases from a YAML file.
func LoadAliases(path string) (*ModelAliases, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var aliases ModelAliases
	if err := yaml.Unmarshal(data, &aliases); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if aliases.Aliases == nil {
		aliases.Aliases = make(map[string]string)
	}
	if aliases.Providers == nil {
		aliases.Providers = make(map[string][]string)
	}
	if aliases.Pricing == nil {
		aliases.Pricing = make(map[string]ModelPricing)
	}

	return &aliases, nil
}

// LoadAliasesForDir looks for models.yaml in the project config directory,
// then in ~/.flowroute, and falls back to DefaultAliases.
func LoadAliasesForDir(dir string) (*ModelAliases, error) {
	candidates := []string{filepath.Join(dir, DefaultConfigDir, AliasesFile)}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigDir, AliasesFile))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return LoadAliases(path)
		}
	}
	return DefaultAliases(), nil
}

// Resolve returns the canonical model name for an alias.
// If the input is not an alias, it returns the input unchanged.
func (a *ModelAliases) Resolve(modelOrAlias string) string {
	if a == nil || a.Aliases == nil {
		return modelOrAlias
	}
	if canonical, ok := a.Aliases[modelOrAlias]; ok {
		return canonical
	}
	return modelOrAlias
}

// ResolveAll resolves each entry of models, preserving order and nil-ness.
func (a *ModelAliases) ResolveAll(models []string) []string {
	if models == nil {
		return nil
	}
	out := make([]string, len(models))
	for i, m := range models {
		out[i] = a.Resolve(m)
	}
	return out
}

// ListAliases returns a copy of the aliases map.
func (a *ModelAliases) ListAliases() map[string]string {
	if a == nil || a.Aliases == nil {
		return make(map[string]string)
	}
	result := make(map[string]string, len(a.Aliases))
	for k, v := range a.Aliases {
		result[k] = v
	}
	return result
}

// ListProviders returns a sorted list of provider names.
func (a *ModelAliases) ListProviders() []string {
	if a == nil || a.Providers == nil {
		return nil
	}
	providers := make([]string, 0, len(a.Providers))
	for p := range a.Providers {
		providers = append(providers, p)
	}
	sort.Strings(providers)
	return providers
}

// GetProviderModels returns the models for a given provider.
func (a *ModelAliases) GetProviderModels(provider string) []string {
	if a == nil || a.Providers == nil {
		return nil
	}
	return a.Providers[provider]
}

// GetProviderForModel returns the provider serving a model or alias, or "" if
// the catalogue does not list it.
func (a *ModelAliases) GetProviderForModel(model string) string {
	if a == nil || a.Providers == nil {
		return ""
	}
	model = a.Resolve(model)
	for _, provider := range a.ListProviders() {
		for _, m := range a.Providers[provider] {
			if m == model {
				return provider
			}
		}
	}
	return ""
}

// PricingFor returns the price of a model or alias.
func (a *ModelAliases) PricingFor(model string) (ModelPricing, bool) {
	if a == nil || a.Pricing == nil {
		return ModelPricing{}, false
	}
	p, ok := a.Pricing[a.Resolve(model)]
	return p, ok
}

// Cost returns the estimated USD cost of a call with the given token counts.
func (p ModelPricing) Cost(promptTokens, completionTokens int) float64 {
	return float64(promptTokens)/1000.0*p.PromptPer1K + float64(completionTokens)/1000.0*p.CompletionPer1K
}

// ValidateRouterOptions checks that the default model and every allow-listed
// model resolve to a model some provider serves. Returns nil when the
// catalogue has no provider information.
func (a *ModelAliases) ValidateRouterOptions(opts RouterOptions) []error {
	if a == nil || len(a.Providers) == 0 {
		return nil
	}

	var errs []error
	if opts.DefaultModel != "" && a.GetProviderForModel(opts.DefaultModel) == "" {
		errs = append(errs, fmt.Errorf("defaultModel: unknown model %q", opts.DefaultModel))
	}
	for i, m := range opts.Models {
		if a.GetProviderForModel(m) == "" {
			errs = append(errs, fmt.Errorf("models[%d]: unknown model %q", i, m))
		}
	}
	return errs
}

// DefaultAliases returns the built-in model catalogue.
func DefaultAliases() *ModelAliases {
	return &ModelAliases{
		Aliases: map[string]string{
			// Anthropic
			"sonnet": "claude-sonnet-4-5-20250929",
			"opus":   "claude-opus-4-1-20250805",
			"haiku":  "claude-haiku-4-5-20251001",
			// OpenAI
			"gpt":   "gpt-5",
			"codex": "gpt-5-codex",
			"o3":    "o3",
			// Google
			"gemini": "gemini-2.5-pro",
			"flash":  "gemini-2.5-flash",
		},
		Providers: map[string][]string{
			"anthropic": {"claude-sonnet-4-5-20250929", "claude-opus-4-1-20250805", "claude-haiku-4-5-20251001"},
			"openai":    {"gpt-5", "gpt-5-codex", "o3"},
			"google":    {"gemini-2.5-pro", "gemini-2.5-flash"},
		},
		Pricing: map[string]ModelPricing{
			"claude-sonnet-4-5-20250929": {PromptPer1K: 0.003, CompletionPer1K: 0.015},
			"claude-opus-4-1-20250805":   {PromptPer1K: 0.015, CompletionPer1K: 0.075},
			"claude-haiku-4-5-20251001":  {PromptPer1K: 0.001, CompletionPer1K: 0.005},
			"gpt-5":                      {PromptPer1K: 0.00125, CompletionPer1K: 0.01},
			"gpt-5-codex":                {PromptPer1K: 0.00125, CompletionPer1K: 0.01},
			"o3":                         {PromptPer1K: 0.002, CompletionPer1K: 0.008},
			"gemini-2.5-pro":             {PromptPer1K: 0.00125, CompletionPer1K: 0.01},
			"gemini-2.5-flash":           {PromptPer1K: 0.0003, CompletionPer1K: 0.0025},
		},
	}
}
