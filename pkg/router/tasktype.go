package router

import "regexp"

// TaskType is a coarse category of work inferred from prompt text.
type TaskType string

const (
	TaskBugfix         TaskType = "bugfix"
	TaskRefactor       TaskType = "refactor"
	TaskTest           TaskType = "test"
	TaskDocumentation  TaskType = "documentation"
	TaskInfrastructure TaskType = "infrastructure"
	TaskFeature        TaskType = "feature"
	TaskUnknown        TaskType = "unknown"
)

// TaskTypes lists every task type, in classification priority order, followed by unknown.
var TaskTypes = []TaskType{
	TaskBugfix,
	TaskRefactor,
	TaskTest,
	TaskDocumentation,
	TaskInfrastructure,
	TaskFeature,
	TaskUnknown,
}

// ParseTaskType returns the task type named by s, or false if s is not one.
func ParseTaskType(s string) (TaskType, bool) {
	for _, t := range TaskTypes {
		if string(t) == s {
			return t, true
		}
	}
	return TaskUnknown, false
}

// taskRule pairs a task type with the patterns that select it.
type taskRule struct {
	taskType TaskType
	patterns []*regexp.Regexp
}

// taskRules is evaluated in order; the first rule with any matching pattern wins.
// A prompt mentioning both "fix" and "new feature" is a bugfix.
var taskRules = []taskRule{
	{TaskBugfix, compileAll(`\bfix\b`, `\bbug\b`, `\bbroken\b`, `\berror\b`)},
	{TaskRefactor, compileAll(`\brefactor\b`, `\brestructur`, `\bclean\s*up\b`)},
	{TaskTest, compileAll(`\btests?\b`, `\bspec\b`, `\bcoverage\b`)},
	{TaskDocumentation, compileAll(`\bdocument`, `\breadme\b`)},
	{TaskInfrastructure, compileAll(`\bdeploy`, `\bdocker`, `\bmigration\b`)},
	{TaskFeature, compileAll(`\badd\b`, `\bimplement`, `\bcreate\b`, `\bnew\b`)},
}

// ClassifyTaskType maps prompt text to a task type. It is total: prompts that
// match no rule classify as TaskUnknown.
func ClassifyTaskType(prompt string) TaskType {
	for _, rule := range taskRules {
		if matchesAny(prompt, rule.patterns) {
			return rule.taskType
		}
	}
	return TaskUnknown
}

// compileAll compiles case-insensitive patterns.
func compileAll(exprs ...string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		patterns = append(patterns, regexp.MustCompile(`(?i)`+expr))
	}
	return patterns
}

func matchesAny(text string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func countMatches(text string, patterns []*regexp.Regexp) int {
	n := 0
	for _, p := range patterns {
		if p.MatchString(text) {
			n++
		}
	}
	return n
}
