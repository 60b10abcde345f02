package router

import "regexp"

type riskRule struct {
	flag      string
	threshold int
	patterns  []*regexp.Regexp
}

// riskRules raise a flag when at least threshold of its patterns match.
var riskRules = []riskRule{
	{"modifies-existing-runtime", 3, compileAll(
		`\b(fix|update|modify|change|patch|refactor)\b`,
		`\b(existing|current|legacy)\b`,
		`\bquery\b.*\b(prisma|sql)\b`,
	)},
	{"schema-migration", 2, compileAll(
		`\bprisma\b`,
		`\bmigration\b`,
		`\bbackward.?compat`,
		`\bschema\b.*\b(change|update|add)\b`,
	)},
	{"large-scope-refactor", 2, compileAll(
		`\bmodulariz`,
		`\brestructur`,
		`\brefactor\b`,
	)},
	{"cross-service", 2, compileAll(
		`\bcross[- ]?repo\b`,
		`\bmulti[- ]?service\b`,
		`\bauth[- ]?service\b.*\bsite\b`,
	)},
	{"rsc-serialization", 1, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bserver.?component`),
		regexp.MustCompile(`\bRSC\b`),
		regexp.MustCompile(`(?i)\bserialization\b`),
	}},
	{"test-infrastructure", 2, compileAll(
		`\bfix.*test`,
		`\bpytest\b`,
		`\bCI\b.*\b(fix|broken|fail)`,
	)},
}

var greenfieldPatterns = compileAll(
	`\bnew\s+(page|component|endpoint|service)\b`,
	`\bcreate\s+(a|the|new)\b`,
	`\badd\s+(a|the|new)\b`,
	`\bbuild\s+(a|the|new)\b`,
)

var modificationPatterns = compileAll(
	`\bfix\b`,
	`\bupdate\b`,
	`\bmodify\b`,
	`\brefactor\b`,
	`\bchange\b`,
	`\bremove\b`,
	`\bexisting\b`,
)

// DetectRiskFlags returns the risk flags whose pattern hits reach their threshold,
// in rule order.
func DetectRiskFlags(prompt string) []string {
	flags := []string{}
	for _, rule := range riskRules {
		if countMatches(prompt, rule.patterns) >= rule.threshold {
			flags = append(flags, rule.flag)
		}
	}
	return flags
}

// IsGreenfield estimates whether a prompt asks for new code rather than changes
// to existing code.
func IsGreenfield(prompt string) bool {
	return countMatches(prompt, greenfieldPatterns) > countMatches(prompt, modificationPatterns)
}
