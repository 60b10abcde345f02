package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"
)

// configExtensions are tried in order; the first existing file is used.
var configExtensions = []string{".json", ".yaml", ".yml"}

// FileConfig is the parsed configuration file.
type FileConfig struct {
	Path   string
	Router RouterFileConfig
	Retry  RetryConfig
}

// RouterFileConfig is the "router" object of the configuration file.
type RouterFileConfig struct {
	// Enabled gates routing as a whole. Nil means enabled.
	Enabled       *bool `mapstructure:"enabled"`
	RouterOptions `mapstructure:",squash"`
}

// ConfigPath returns the configuration file that applies to dir, or "" if none exists.
func ConfigPath(dir string) string {
	for _, ext := range configExtensions {
		p := filepath.Join(dir, DefaultConfigDir, defaultConfigPrefix+ext)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// LoadFileConfig reads the configuration file for dir. A missing or malformed
// file yields an empty config; this function never fails.
func LoadFileConfig(dir string) FileConfig {
	cfg := FileConfig{Retry: DefaultRetryConfig()}
	path := ConfigPath(dir)
	if path == "" {
		return cfg
	}

	cfg.Path = path
	doc, err := readDocument(path)
	if err != nil {
		slog.Debug("ignoring unreadable config", "path", path, "error", err)
		return cfg
	}

	var router RouterFileConfig
	if err := decodeSection(doc, "router", &router); err != nil {
		slog.Debug("ignoring malformed router config", "path", path, "error", err)
	} else {
		cfg.Router = router
	}

	var retry RetryConfig
	if err := decodeSection(doc, "retry", &retry); err != nil {
		slog.Debug("ignoring malformed retry config", "path", path, "error", err)
	} else {
		applyRetryDefaults(&retry)
		cfg.Retry = retry
	}

	return cfg
}

// decodeSection decodes doc[key] into out. A missing section leaves out untouched.
func decodeSection(doc map[string]any, key string, out any) error {
	section, ok := doc[key]
	if !ok || section == nil {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(section)
}

// LoadRouterOptions returns the router options configured for dir.
func LoadRouterOptions(dir string) RouterOptions {
	return LoadFileConfig(dir).Router.RouterOptions
}

// IsRouterEnabled reports whether routing is enabled for dir. Routing is on
// unless the config explicitly sets router.enabled to false.
func IsRouterEnabled(dir string) bool {
	enabled := LoadFileConfig(dir).Router.Enabled
	return enabled == nil || *enabled
}

// readDocument parses a JSON or YAML file into a generic map.
func readDocument(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	default:
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if doc == nil {
		return nil, errors.New("empty document")
	}
	return doc, nil
}
