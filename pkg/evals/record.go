// Package evals reads the historical eval records that routing decisions are
// based on. Records are produced by the eval judge and are never modified here.
package evals

import "context"

// DefaultDir is where eval records live, relative to the repository root.
const DefaultDir = ".flowroute/evals"

// SuccessScore is the minimum score counted as a successful run.
const SuccessScore = 0.8

// Record is one historical outcome of a model executing a task.
type Record struct {
	ModelID           string   `json:"modelId"`
	Score             float64  `json:"score"`
	TimeSeconds       float64  `json:"timeSeconds"`
	InterventionCount int      `json:"interventionCount"`
	OriginalPrompt    string   `json:"originalPrompt"`
	WorkflowCost      *float64 `json:"workflowCost,omitempty"`
	SourceRepo        string   `json:"sourceRepo,omitempty"`
}

// Source provides eval records. Implementations return an empty slice and a nil
// error when no records exist.
type Source interface {
	// ReadRecords returns all records under dir. An empty dir selects the
	// source's default location.
	ReadRecords(ctx context.Context, dir string) ([]Record, error)
}

// DistinctModels returns the number of distinct non-empty model IDs among records.
func DistinctModels(records []Record) int {
	seen := make(map[string]struct{})
	for _, r := range records {
		if r.ModelID != "" {
			seen[r.ModelID] = struct{}{}
		}
	}
	return len(seen)
}

func valid(r Record) bool {
	return r.ModelID != "" && r.Score >= 0 && r.Score <= 1 && r.TimeSeconds >= 0 && r.InterventionCount >= 0
}
