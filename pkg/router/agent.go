package router

import (
	"regexp"
	"strings"
)

// AgentRule maps model ids matching Match to Agent.
type AgentRule struct {
	Name  string
	Match func(modelID string) bool
	Agent string
}

// DefaultAgentRules are consulted in order when a model has no explicit agent mapping.
var DefaultAgentRules = []AgentRule{
	{Name: "anthropic", Match: HasPrefix("claude-"), Agent: "claude"},
	{Name: "openai-gpt", Match: HasPrefix("gpt-"), Agent: "codex"},
	{Name: "openai-reasoning", Match: MatchRegexp(`^o\d`), Agent: "codex"},
}

// ProviderRule maps model ids matching Match to the provider adapter serving them.
type ProviderRule struct {
	Match    func(modelID string) bool
	Provider string
}

// DefaultProviderRules infer the provider of models missing from the alias catalogue.
var DefaultProviderRules = []ProviderRule{
	{Match: HasPrefix("claude-"), Provider: "anthropic"},
	{Match: HasPrefix("gpt-"), Provider: "openai"},
	{Match: MatchRegexp(`^o\d`), Provider: "openai"},
	{Match: HasPrefix("gemini-"), Provider: "google"},
	{Match: HasPrefix("mock-"), Provider: "mock"},
}

// HasPrefix returns a matcher for model ids starting with prefix.
func HasPrefix(prefix string) func(string) bool {
	return func(modelID string) bool {
		return strings.HasPrefix(modelID, prefix)
	}
}

// MatchRegexp returns a matcher for model ids matching expr. It panics if expr
// does not compile.
func MatchRegexp(expr string) func(string) bool {
	re := regexp.MustCompile(expr)
	return re.MatchString
}

// ResolveAgent returns the runtime agent for modelID using DefaultAgentRules.
func ResolveAgent(modelID string, agentMap map[string]string, defaultAgent string) string {
	return ResolveAgentWithRules(modelID, agentMap, defaultAgent, DefaultAgentRules)
}

// ResolveAgentWithRules returns agentMap[modelID] if present, else the agent
// of the first matching rule, else defaultAgent.
func ResolveAgentWithRules(modelID string, agentMap map[string]string, defaultAgent string, rules []AgentRule) string {
	if agent, ok := agentMap[modelID]; ok {
		return agent
	}
	for _, rule := range rules {
		if rule.Match != nil && rule.Match(modelID) {
			return rule.Agent
		}
	}
	return defaultAgent
}

// ProviderForModel returns the provider of the first matching rule, or "".
func ProviderForModel(modelID string, rules []ProviderRule) string {
	for _, rule := range rules {
		if rule.Match != nil && rule.Match(modelID) {
			return rule.Provider
		}
	}
	return ""
}
