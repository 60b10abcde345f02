package router

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/zen-systems/flowroute/pkg/config"
	"github.com/zen-systems/flowroute/pkg/evals"
)

//go:generate go tool mockgen -destination=mock_source_test.go -package=router github.com/zen-systems/flowroute/pkg/evals Source

// Engine recommends a model for a prompt from eval history. An Engine holds
// no per-call state and is safe for concurrent use.
type Engine struct {
	source     evals.Source
	loadConfig func(dir string) config.RouterOptions
	aliases    *config.ModelAliases
	workDir    string
	logger     *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithConfigLoader replaces how file options are loaded for the working directory.
func WithConfigLoader(load func(dir string) config.RouterOptions) EngineOption {
	return func(e *Engine) {
		if load != nil {
			e.loadConfig = load
		}
	}
}

// WithAliases sets the alias catalogue applied to the default model and allow-list.
func WithAliases(aliases *config.ModelAliases) EngineOption {
	return func(e *Engine) {
		e.aliases = aliases
	}
}

// WithWorkDir sets the directory configuration and relative eval paths are resolved against.
func WithWorkDir(dir string) EngineOption {
	return func(e *Engine) {
		e.workDir = dir
	}
}

// NewEngine creates an engine reading eval records from source.
func NewEngine(source evals.Source, opts ...EngineOption) *Engine {
	e := &Engine{
		source:     source,
		loadConfig: config.LoadRouterOptions,
		workDir:    ".",
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Options returns the router options a call with callSite would use.
func (e *Engine) Options(callSite *config.RouterOptions) config.RouterOptions {
	var cs config.RouterOptions
	if callSite != nil {
		cs = *callSite
	}
	opts := config.ResolveRouterOptions(cs, e.loadConfig(e.workDir))
	opts.DefaultModel = e.aliases.Resolve(opts.DefaultModel)
	opts.Models = e.aliases.ResolveAll(opts.Models)
	return opts
}

// Recommend picks the model to run prompt with. Thin or unusable history
// degrades to the configured default model with InsufficientData set; the
// only error is a failure of the record source.
func (e *Engine) Recommend(ctx context.Context, prompt string, callSite *config.RouterOptions) (*ModelRecommendation, error) {
	opts := e.Options(callSite)
	chars := AnalyzePrompt(prompt)
	taskType := chars.TaskType

	records, err := e.source.ReadRecords(ctx, e.evalsDir(opts.EvalsDir))
	if err != nil {
		return nil, fmt.Errorf("reading eval records: %w", err)
	}

	minRecords := opts.MinRecordsValue()
	minModels := opts.MinModelsValue()
	distinct := evals.DistinctModels(records)

	if len(records) < minRecords || distinct < minModels {
		e.logger.Debug("insufficient eval data",
			"records", len(records), "models", distinct,
			"minRecords", minRecords, "minModels", minModels)
		reasoning := fmt.Sprintf(
			"Insufficient eval data: %d records across %d models (need at least %d records and %d models). Using default model %s.",
			len(records), distinct, minRecords, minModels, opts.DefaultModel)
		return e.fallback(opts, chars, reasoning), nil
	}

	candidates := AggregateEvalHistory(records, taskType)
	if len(opts.Models) > 0 {
		candidates = filterCandidates(candidates, opts.Models)
	}
	if len(candidates) == 0 {
		e.logger.Debug("no candidates after allow-list", "models", opts.Models)
		reasoning := fmt.Sprintf(
			"No eval data for the configured candidate models (%s). Using default model %s.",
			strings.Join(opts.Models, ", "), opts.DefaultModel)
		return e.fallback(opts, chars, reasoning), nil
	}

	winner := candidates[0]
	confidence := ConfidenceFor(winner.TaskTypeRecords)
	agent := ResolveAgent(winner.ModelID, opts.AgentMap, opts.DefaultAgent)

	e.logger.Debug("recommended model",
		"model", winner.ModelID, "agent", agent, "taskType", taskType,
		"confidence", confidence, "candidates", len(candidates))

	return &ModelRecommendation{
		RecommendedModel:      winner.ModelID,
		RecommendedAgent:      agent,
		Confidence:            confidence,
		Reasoning:             buildReasoning(winner, taskType, confidence),
		TaskType:              taskType,
		PromptCharacteristics: chars,
		Candidates:            candidates,
		InsufficientData:      false,
		CostEstimate:          CostEstimateFor(winner.AvgWorkflowCost),
	}, nil
}

func (e *Engine) fallback(opts config.RouterOptions, chars PromptCharacteristics, reasoning string) *ModelRecommendation {
	return &ModelRecommendation{
		RecommendedModel:      opts.DefaultModel,
		RecommendedAgent:      ResolveAgent(opts.DefaultModel, opts.AgentMap, opts.DefaultAgent),
		Confidence:            ConfidenceLow,
		Reasoning:             reasoning,
		TaskType:              chars.TaskType,
		PromptCharacteristics: chars,
		Candidates:            []CandidateScore{},
		InsufficientData:      true,
		CostEstimate:          CostMedium,
	}
}

// evalsDir resolves a relative eval directory against the working directory.
func (e *Engine) evalsDir(dir string) string {
	if dir == "" || filepath.IsAbs(dir) || e.workDir == "" || e.workDir == "." {
		return dir
	}
	return filepath.Join(e.workDir, dir)
}

func filterCandidates(candidates []ModelStats, allowed []string) []ModelStats {
	allow := make(map[string]struct{}, len(allowed))
	for _, m := range allowed {
		allow[m] = struct{}{}
	}
	filtered := make([]ModelStats, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := allow[c.ModelID]; ok {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

func buildReasoning(winner ModelStats, taskType TaskType, confidence Confidence) string {
	var b strings.Builder
	if winner.TaskTypeAvgScore != nil {
		fmt.Fprintf(&b, "%s has the best average score for %s tasks (%.2f across %d task-specific records of %d total).",
			winner.ModelID, taskType, *winner.TaskTypeAvgScore, winner.TaskTypeRecords, winner.TotalRecords)
	} else {
		fmt.Fprintf(&b, "%s has the best overall average score (%.2f across %d records); no %s-specific history, so all-task evidence was used.",
			winner.ModelID, winner.AvgScore, winner.TotalRecords, taskType)
	}
	if confidence == ConfidenceLow {
		fmt.Fprintf(&b, " Confidence is low: fewer than %d task-specific records support this choice.", mediumConfidenceRecords)
	}
	return b.String()
}
