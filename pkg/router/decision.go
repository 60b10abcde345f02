package router

// Confidence is how much task-type evidence backs a recommendation.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Task-type record counts at which confidence rises.
const (
	highConfidenceRecords   = 10
	mediumConfidenceRecords = 5
)

// ConfidenceFor bands a task-type record count.
func ConfidenceFor(taskTypeRecords int) Confidence {
	switch {
	case taskTypeRecords >= highConfidenceRecords:
		return ConfidenceHigh
	case taskTypeRecords >= mediumConfidenceRecords:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// CostEstimate is a coarse per-workflow cost band.
type CostEstimate string

const (
	CostLow    CostEstimate = "low"
	CostMedium CostEstimate = "medium"
	CostHigh   CostEstimate = "high"
)

// Workflow cost thresholds in USD.
const (
	lowCostMax    = 10.0
	mediumCostMax = 25.0
)

// CostEstimateFor bands an average workflow cost. Unknown cost is medium.
func CostEstimateFor(avgWorkflowCost *float64) CostEstimate {
	switch {
	case avgWorkflowCost == nil:
		return CostMedium
	case *avgWorkflowCost < lowCostMax:
		return CostLow
	case *avgWorkflowCost <= mediumCostMax:
		return CostMedium
	default:
		return CostHigh
	}
}

// CandidateScore is a ranked alternative considered for a recommendation.
type CandidateScore = ModelStats

// ModelRecommendation is the engine's routing decision.
type ModelRecommendation struct {
	RecommendedModel      string                `json:"recommendedModel"`
	RecommendedAgent      string                `json:"recommendedAgent"`
	Confidence            Confidence            `json:"confidence"`
	Reasoning             string                `json:"reasoning"`
	TaskType              TaskType              `json:"taskType"`
	PromptCharacteristics PromptCharacteristics `json:"promptCharacteristics"`
	Candidates            []CandidateScore      `json:"candidates"`
	InsufficientData      bool                  `json:"insufficientData"`
	CostEstimate          CostEstimate          `json:"costEstimate"`
}
