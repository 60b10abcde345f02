package router

import (
	"cmp"
	"slices"
	"strings"

	"github.com/zen-systems/flowroute/pkg/evals"
)

// ModelStats summarizes a model's eval history.
type ModelStats struct {
	ModelID              string   `json:"modelId"`
	TotalRecords         int      `json:"totalRecords"`
	TaskTypeRecords      int      `json:"taskTypeRecords"`
	AvgScore             float64  `json:"avgScore"`
	TaskTypeAvgScore     *float64 `json:"taskTypeAvgScore"`
	SuccessRate          float64  `json:"successRate"`
	AvgTimeSeconds       float64  `json:"avgTimeSeconds"`
	AvgInterventionCount float64  `json:"avgInterventionCount"`
	AvgWorkflowCost      *float64 `json:"avgWorkflowCost,omitempty"`
}

// RankScore is the score candidates are ranked by: the task-type average when
// there is task-type evidence, the overall average otherwise.
func (s ModelStats) RankScore() float64 {
	if s.TaskTypeAvgScore != nil {
		return *s.TaskTypeAvgScore
	}
	return s.AvgScore
}

type statsAccumulator struct {
	total         int
	scoreSum      float64
	successes     int
	timeSum       float64
	interventions int
	taskRecords   int
	taskScoreSum  float64
	costRecords   int
	costSum       float64
}

// AggregateEvalHistory groups records by model and ranks the models for
// taskType. Records without a model id are ignored.
func AggregateEvalHistory(records []evals.Record, taskType TaskType) []ModelStats {
	accs := make(map[string]*statsAccumulator)
	var order []string

	for _, r := range records {
		if r.ModelID == "" {
			continue
		}
		acc, ok := accs[r.ModelID]
		if !ok {
			acc = &statsAccumulator{}
			accs[r.ModelID] = acc
			order = append(order, r.ModelID)
		}

		acc.total++
		acc.scoreSum += r.Score
		acc.timeSum += r.TimeSeconds
		acc.interventions += r.InterventionCount
		if r.Score >= evals.SuccessScore {
			acc.successes++
		}
		if r.WorkflowCost != nil {
			acc.costRecords++
			acc.costSum += *r.WorkflowCost
		}
		if ClassifyTaskType(r.OriginalPrompt) == taskType {
			acc.taskRecords++
			acc.taskScoreSum += r.Score
		}
	}

	stats := make([]ModelStats, 0, len(order))
	for _, id := range order {
		acc := accs[id]
		n := float64(acc.total)
		s := ModelStats{
			ModelID:              id,
			TotalRecords:         acc.total,
			TaskTypeRecords:      acc.taskRecords,
			AvgScore:             acc.scoreSum / n,
			SuccessRate:          float64(acc.successes) / n,
			AvgTimeSeconds:       acc.timeSum / n,
			AvgInterventionCount: float64(acc.interventions) / n,
		}
		if acc.taskRecords > 0 {
			avg := acc.taskScoreSum / float64(acc.taskRecords)
			s.TaskTypeAvgScore = &avg
		}
		if acc.costRecords > 0 {
			avg := acc.costSum / float64(acc.costRecords)
			s.AvgWorkflowCost = &avg
		}
		stats = append(stats, s)
	}

	slices.SortFunc(stats, compareStats)
	return stats
}

// compareStats orders by rank score descending, then fewer interventions,
// then less time, then model id.
func compareStats(a, b ModelStats) int {
	if c := cmp.Compare(b.RankScore(), a.RankScore()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.AvgInterventionCount, b.AvgInterventionCount); c != 0 {
		return c
	}
	if c := cmp.Compare(a.AvgTimeSeconds, b.AvgTimeSeconds); c != 0 {
		return c
	}
	return strings.Compare(a.ModelID, b.ModelID)
}
