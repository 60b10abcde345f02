package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	configDir := filepath.Join(dir, DefaultConfigDir)
	require.NoError(t, os.MkdirAll(configDir, 0755))
	path := filepath.Join(configDir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFileConfig_Missing(t *testing.T) {
	cfg := LoadFileConfig(t.TempDir())

	assert.Empty(t, cfg.Path)
	assert.Equal(t, RouterFileConfig{}, cfg.Router)
	assert.Equal(t, DefaultRetryConfig(), cfg.Retry)
}

func TestLoadFileConfig_JSON(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.json", `{
  "router": {
    "enabled": true,
    "defaultModel": "gpt-5",
    "minRecords": 5,
    "minModels": 3,
    "models": ["gpt-5", "o3"],
    "agentMap": {"o3": "custom"},
    "defaultAgent": "codex",
    "evalsDir": "data/evals"
  },
  "retry": {"maxRetries": 4}
}`)

	cfg := LoadFileConfig(dir)

	assert.Equal(t, path, cfg.Path)
	require.NotNil(t, cfg.Router.Enabled)
	assert.True(t, *cfg.Router.Enabled)
	opts := cfg.Router.RouterOptions
	assert.Equal(t, "gpt-5", opts.DefaultModel)
	assert.Equal(t, 5, opts.MinRecordsValue())
	assert.Equal(t, 3, opts.MinModelsValue())
	assert.Equal(t, []string{"gpt-5", "o3"}, opts.Models)
	assert.Equal(t, map[string]string{"o3": "custom"}, opts.AgentMap)
	assert.Equal(t, "codex", opts.DefaultAgent)
	assert.Equal(t, "data/evals", opts.EvalsDir)
	assert.Equal(t, 4, cfg.Retry.MaxRetries)
	assert.Equal(t, 200, cfg.Retry.BaseBackoffMs)
}

func TestLoadFileConfig_YAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", `router:
  defaultModel: sonnet
  minRecords: 7
  models:
    - sonnet
`)

	opts := LoadRouterOptions(dir)

	assert.Equal(t, "sonnet", opts.DefaultModel)
	assert.Equal(t, 7, opts.MinRecordsValue())
	assert.Equal(t, []string{"sonnet"}, opts.Models)
	assert.Nil(t, opts.MinModels)
}

func TestLoadFileConfig_JSONPreferredOverYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", "router:\n  defaultModel: from-yaml\n")
	writeConfig(t, dir, "config.json", `{"router": {"defaultModel": "from-json"}}`)

	assert.Equal(t, "from-json", LoadRouterOptions(dir).DefaultModel)
}

func TestLoadFileConfig_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "invalid json", content: `{"router": {`},
		{name: "not an object", content: `[1, 2, 3]`},
		{name: "wrong router type", content: `{"router": "yes"}`},
		{name: "wrong field type", content: `{"router": {"models": {"a": 1}}}`},
		{name: "empty file", content: ``},
		{name: "null", content: `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, "config.json", tt.content)

			opts := LoadRouterOptions(dir)
			assert.Equal(t, RouterOptions{}, opts)
			assert.True(t, IsRouterEnabled(dir))
		})
	}
}

func TestLoadFileConfig_NoRouterSection(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.json", `{"other": {"defaultModel": "x"}}`)

	assert.Equal(t, RouterOptions{}, LoadRouterOptions(dir))
}

func TestIsRouterEnabled(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{name: "no file", content: "", want: true},
		{name: "enabled omitted", content: `{"router": {"defaultModel": "x"}}`, want: true},
		{name: "enabled true", content: `{"router": {"enabled": true}}`, want: true},
		{name: "enabled false", content: `{"router": {"enabled": false}}`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.content != "" {
				writeConfig(t, dir, "config.json", tt.content)
			}
			assert.Equal(t, tt.want, IsRouterEnabled(dir))
		})
	}
}

func TestLoadFileConfig_NegativeRetryUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", "retry:\n  maxRetries: -1\n  baseBackoffMs: -5\n")

	cfg := LoadFileConfig(dir)
	assert.Equal(t, DefaultRetryConfig(), cfg.Retry)
}
