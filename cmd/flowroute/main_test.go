package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zen-systems/flowroute/pkg/router"
)

func runCLI(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--dir", dir}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeEvals(t *testing.T, dir string) {
	t.Helper()
	evalsDir := filepath.Join(dir, ".flowroute", "evals")
	require.NoError(t, os.MkdirAll(evalsDir, 0o755))

	var lines []string
	for i := 0; i < 6; i++ {
		lines = append(lines,
			fmt.Sprintf(`{"modelId":"claude-opus-4-1-20250805","score":0.9,"timeSeconds":%d,"interventionCount":0,"originalPrompt":"fix the crash"}`, 30+i),
			fmt.Sprintf(`{"modelId":"gpt-5","score":0.6,"timeSeconds":%d,"interventionCount":1,"originalPrompt":"fix the bug"}`, 20+i),
		)
	}
	require.NoError(t, os.WriteFile(filepath.Join(evalsDir, "runs.jsonl"), []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

func writeConfigFile(t *testing.T, dir, name, content string) {
	t.Helper()
	cfgDir := filepath.Join(dir, ".flowroute")
	require.NoError(t, os.MkdirAll(cfgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, name), []byte(content), 0o644))
}

func decodeRecommendation(t *testing.T, out string) router.ModelRecommendation {
	t.Helper()
	var rec router.ModelRecommendation
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	return rec
}

func TestRecommend_InsufficientData(t *testing.T) {
	dir := t.TempDir()

	out, _, err := runCLI(t, dir, "recommend", "--json", "fix the login bug")
	require.NoError(t, err)

	rec := decodeRecommendation(t, out)
	assert.True(t, rec.InsufficientData)
	assert.Equal(t, "claude-sonnet-4-5-20250929", rec.RecommendedModel)
	assert.Equal(t, "claude", rec.RecommendedAgent)
	assert.Equal(t, router.ConfidenceLow, rec.Confidence)
	assert.Equal(t, router.TaskBugfix, rec.TaskType)
}

func TestRecommend_FromHistory(t *testing.T) {
	dir := t.TempDir()
	writeEvals(t, dir)

	out, _, err := runCLI(t, dir, "recommend", "--json", "--min-records", "10", "fix the parser")
	require.NoError(t, err)

	rec := decodeRecommendation(t, out)
	assert.False(t, rec.InsufficientData)
	assert.Equal(t, "claude-opus-4-1-20250805", rec.RecommendedModel)
	assert.Equal(t, router.ConfidenceMedium, rec.Confidence)
	require.Len(t, rec.Candidates, 2)
	assert.Equal(t, "gpt-5", rec.Candidates[1].ModelID)
}

func TestRecommend_AllowListFromFlags(t *testing.T) {
	dir := t.TempDir()
	writeEvals(t, dir)

	out, _, err := runCLI(t, dir, "recommend", "--json", "--min-records", "10", "--model", "gpt", "fix the parser")
	require.NoError(t, err)

	rec := decodeRecommendation(t, out)
	assert.Equal(t, "gpt-5", rec.RecommendedModel)
	assert.Equal(t, "codex", rec.RecommendedAgent)
}

func TestRecommend_ReadsPromptFromStdin(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", t.TempDir())

	cmd := newRootCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader("  write docs for the readme \n"))
	cmd.SetArgs([]string{"--dir", dir, "recommend", "--json"})
	require.NoError(t, cmd.Execute())

	rec := decodeRecommendation(t, stdout.String())
	assert.Equal(t, router.TaskDocumentation, rec.TaskType)
}

func TestRecommend_EmptyPrompt(t *testing.T) {
	_, _, err := runCLI(t, t.TempDir(), "recommend")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prompt is required")
}

func TestRecommend_WritesDecision(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "decisions")

	_, stderr, err := runCLI(t, dir, "recommend", "--out", outDir, "add a settings page")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Decision recorded:")

	files, err := filepath.Glob(filepath.Join(outDir, "*.json"))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestRecommend_HumanOutput(t *testing.T) {
	dir := t.TempDir()
	writeEvals(t, dir)

	out, _, err := runCLI(t, dir, "recommend", "--min-records", "10", "fix the parser")
	require.NoError(t, err)
	assert.Contains(t, out, "Model:")
	assert.Contains(t, out, "claude-opus-4-1-20250805")
	assert.Contains(t, out, "MODEL")
}

func TestClassify(t *testing.T) {
	out, _, err := runCLI(t, t.TempDir(), "classify", "--json", "fix the new feature in app.ts")
	require.NoError(t, err)

	var chars router.PromptCharacteristics
	require.NoError(t, json.Unmarshal([]byte(out), &chars))
	assert.Equal(t, router.TaskBugfix, chars.TaskType)
	assert.Equal(t, []string{"ts"}, chars.FileTypes)
}

func TestStats(t *testing.T) {
	dir := t.TempDir()
	writeEvals(t, dir)

	out, _, err := runCLI(t, dir, "stats", "--task-type", "bugfix")
	require.NoError(t, err)
	assert.Contains(t, out, "12 records across 2 models")
	assert.Contains(t, out, "gpt-5")

	_, _, err = runCLI(t, dir, "stats", "--task-type", "nonsense")
	assert.Error(t, err)
}

func TestEnabled(t *testing.T) {
	dir := t.TempDir()

	out, _, err := runCLI(t, dir, "enabled")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)

	writeConfigFile(t, dir, "config.json", `{"router":{"enabled":false}}`)
	out, _, err = runCLI(t, dir, "enabled")
	require.NoError(t, err)
	assert.Equal(t, "false\n", out)
}

func TestValidateConfig(t *testing.T) {
	dir := t.TempDir()

	out, _, err := runCLI(t, dir, "validate-config")
	require.NoError(t, err)
	assert.Contains(t, out, "No configuration file found")

	writeConfigFile(t, dir, "config.yaml", "router:\n  defaultModel: sonnet\n  minRecords: 5\n")
	out, _, err = runCLI(t, dir, "validate-config")
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")
}

func TestValidateConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "config.json", `{"router":{"minRecords":-1,"defaultModel":"no-such-model"}}`)

	_, stderr, err := runCLI(t, dir, "validate-config")
	require.Error(t, err)
	assert.Contains(t, stderr, "/router/minRecords")
	assert.Contains(t, stderr, `unknown model "no-such-model"`)
}

func TestModels(t *testing.T) {
	out, _, err := runCLI(t, t.TempDir(), "models")
	require.NoError(t, err)
	assert.Contains(t, out, "ALIAS")
	assert.Contains(t, out, "sonnet")
	assert.Contains(t, out, "anthropic")
}

func TestEvalsImportAndRecommendFromDB(t *testing.T) {
	dir := t.TempDir()
	writeEvals(t, dir)
	db := filepath.Join(dir, "evals.db")

	out, _, err := runCLI(t, dir, "evals", "import", "--db", db, filepath.Join(dir, ".flowroute", "evals"))
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 12 records")

	out, _, err = runCLI(t, dir, "--evals-db", db, "recommend", "--json", "--min-records", "10", "fix the parser")
	require.NoError(t, err)
	rec := decodeRecommendation(t, out)
	assert.False(t, rec.InsufficientData)
	assert.Equal(t, "claude-opus-4-1-20250805", rec.RecommendedModel)
}

func TestAsk_Mock(t *testing.T) {
	dir := t.TempDir()

	out, stderr, err := runCLI(t, dir, "ask", "--default-model", "mock-1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "mock response:\nhello\n", out)
	assert.Contains(t, stderr, "Routing to mock/mock-1")
}

func TestAsk_DryRun(t *testing.T) {
	dir := t.TempDir()

	out, _, err := runCLI(t, dir, "ask", "--dry-run", "--default-model", "mock-1", "hello")
	require.NoError(t, err)

	var route router.Route
	require.NoError(t, json.Unmarshal([]byte(out), &route))
	assert.Equal(t, "mock", route.Adapter)
	assert.Equal(t, "mock-1", route.Model)
}

func TestResolveDir(t *testing.T) {
	assert.Equal(t, "x", resolveDir(".", "x"))
	assert.Equal(t, filepath.Join("repo", "x"), resolveDir("repo", "x"))
	assert.Equal(t, "/abs", resolveDir("repo", "/abs"))
	assert.Equal(t, "", resolveDir("repo", ""))
}

func TestDecisionsListAndShow(t *testing.T) {
	dir := t.TempDir()
	logDir := filepath.Join(dir, ".flowroute", "decisions")

	_, stderr, err := runCLI(t, dir, "recommend", "--out", logDir, "fix the login bug")
	require.NoError(t, err)
	id := strings.TrimSpace(strings.TrimPrefix(stderr, "Decision recorded:"))

	out, _, err := runCLI(t, dir, "decisions", "list")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "claude-sonnet-4-5-20250929")

	out, _, err = runCLI(t, dir, "decisions", "show", id)
	require.NoError(t, err)
	var record struct {
		ID             string                     `json:"id"`
		Recommendation router.ModelRecommendation `json:"recommendation"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &record))
	assert.Equal(t, id, record.ID)
	assert.Equal(t, router.TaskBugfix, record.Recommendation.TaskType)

	_, _, err = runCLI(t, dir, "decisions", "show", "not-a-uuid")
	assert.Error(t, err)
}

func TestDecisionsMissingLog(t *testing.T) {
	_, _, err := runCLI(t, t.TempDir(), "decisions", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no decision log")
}
