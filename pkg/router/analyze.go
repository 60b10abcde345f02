package router

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// LengthBucket is a coarse prompt size class.
type LengthBucket string

const (
	LengthShort  LengthBucket = "short"
	LengthMedium LengthBucket = "medium"
	LengthLong   LengthBucket = "long"
)

const (
	shortPromptChars  = 200
	mediumPromptChars = 1000
)

// PromptCharacteristics are features derived from a prompt.
type PromptCharacteristics struct {
	Length          LengthBucket `json:"length"`
	CharCount       int          `json:"charCount"`
	ComplexityScore int          `json:"complexityScore"`
	FileTypes       []string     `json:"fileTypes"`
	TaskType        TaskType     `json:"taskType"`
	RiskFlags       []string     `json:"riskFlags"`
	Greenfield      bool         `json:"greenfield"`
}

type complexityCategory struct {
	name    string
	pattern *regexp.Regexp
}

// complexityCategories each add at most one point to the complexity score.
var complexityCategories = []complexityCategory{
	{"concurrency", regexp.MustCompile(`(?i)\bconcurren(cy|t)\b`)},
	{"async", regexp.MustCompile(`(?i)\basync`)},
	{"distributed", regexp.MustCompile(`(?i)\bdistributed\b`)},
	{"security", regexp.MustCompile(`(?i)\bsecurity\b`)},
	{"performance", regexp.MustCompile(`(?i)\bperformance\b`)},
	{"scaling", regexp.MustCompile(`(?i)\bscal(e|es|ing|ability|able)\b`)},
	{"caching", regexp.MustCompile(`(?i)\bcach(e|es|ed|ing)\b`)},
	{"encryption", regexp.MustCompile(`(?i)\bencrypt`)},
	{"auth", regexp.MustCompile(`(?i)\b(auth[nz]?|authenticat\w*|authoriz\w*|oauth\w*)\b`)},
	{"transactions", regexp.MustCompile(`(?i)\btransactions?\b`)},
	{"multi-threading", regexp.MustCompile(`(?i)\bmulti-?thread`)},
	{"race conditions", regexp.MustCompile(`(?i)\brace conditions?\b`)},
	{"deadlocks", regexp.MustCompile(`(?i)\bdeadlocks?\b`)},
	{"real-time", regexp.MustCompile(`(?i)\breal-?time\b`)},
	{"websockets", regexp.MustCompile(`(?i)\bwebsockets?\b`)},
	{"streaming", regexp.MustCompile(`(?i)\bstream(s|ing)?\b`)},
}

var fileTypePattern = regexp.MustCompile(`(?i)\.(tsx|ts|jsx|js|py|sh|json|yaml|yml|md|css|html|sql|go|rs|rb)\b`)

// AnalyzePrompt derives the characteristics of a prompt.
func AnalyzePrompt(prompt string) PromptCharacteristics {
	charCount := utf8.RuneCountInString(prompt)
	return PromptCharacteristics{
		Length:          lengthBucket(charCount),
		CharCount:       charCount,
		ComplexityScore: complexityScore(prompt),
		FileTypes:       fileTypes(prompt),
		TaskType:        ClassifyTaskType(prompt),
		RiskFlags:       DetectRiskFlags(prompt),
		Greenfield:      IsGreenfield(prompt),
	}
}

func lengthBucket(charCount int) LengthBucket {
	switch {
	case charCount < shortPromptChars:
		return LengthShort
	case charCount < mediumPromptChars:
		return LengthMedium
	default:
		return LengthLong
	}
}

func complexityScore(prompt string) int {
	score := 0
	for _, c := range complexityCategories {
		if c.pattern.MatchString(prompt) {
			score++
		}
	}
	return score
}

// fileTypes returns the sorted, lowercased, deduplicated extensions mentioned in prompt.
func fileTypes(prompt string) []string {
	seen := make(map[string]bool)
	for _, m := range fileTypePattern.FindAllStringSubmatch(prompt, -1) {
		seen[strings.ToLower(m[1])] = true
	}
	types := make([]string, 0, len(seen))
	for ext := range seen {
		types = append(types, ext)
	}
	sort.Strings(types)
	return types
}
