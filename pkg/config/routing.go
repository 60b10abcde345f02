package config

// Hard defaults for router options. Everything else reads them from here.
const (
	DefaultMinRecords   = 20
	DefaultMinModels    = 2
	DefaultModel        = "claude-sonnet-4-5-20250929"
	DefaultAgent        = "claude"
	DefaultEvalsDir     = ".flowroute/evals"
	DefaultConfigDir    = ".flowroute"
	defaultConfigPrefix = "config"
)

// RouterOptions configures a recommendation. Unset fields (empty strings, nil
// pointers, nil slices and maps) defer to the next layer when merged.
type RouterOptions struct {
	EvalsDir     string            `json:"evalsDir,omitempty" yaml:"evalsDir,omitempty" mapstructure:"evalsDir"`
	MinRecords   *int              `json:"minRecords,omitempty" yaml:"minRecords,omitempty" mapstructure:"minRecords"`
	MinModels    *int              `json:"minModels,omitempty" yaml:"minModels,omitempty" mapstructure:"minModels"`
	DefaultModel string            `json:"defaultModel,omitempty" yaml:"defaultModel,omitempty" mapstructure:"defaultModel"`
	Models       []string          `json:"models,omitempty" yaml:"models,omitempty" mapstructure:"models"`
	AgentMap     map[string]string `json:"agentMap,omitempty" yaml:"agentMap,omitempty" mapstructure:"agentMap"`
	DefaultAgent string            `json:"defaultAgent,omitempty" yaml:"defaultAgent,omitempty" mapstructure:"defaultAgent"`
}

// DefaultRouterOptions returns options with every hard default populated.
func DefaultRouterOptions() RouterOptions {
	return RouterOptions{
		EvalsDir:     DefaultEvalsDir,
		MinRecords:   intPtr(DefaultMinRecords),
		MinModels:    intPtr(DefaultMinModels),
		DefaultModel: DefaultModel,
		Models:       []string{},
		AgentMap:     map[string]string{},
		DefaultAgent: DefaultAgent,
	}
}

// MergeRouterOptions overlays the set fields of src onto dst. The merge is
// shallow: a non-nil Models or AgentMap in src replaces dst's wholesale.
func MergeRouterOptions(dst *RouterOptions, src RouterOptions) {
	if src.EvalsDir != "" {
		dst.EvalsDir = src.EvalsDir
	}
	if src.MinRecords != nil {
		dst.MinRecords = intPtr(*src.MinRecords)
	}
	if src.MinModels != nil {
		dst.MinModels = intPtr(*src.MinModels)
	}
	if src.DefaultModel != "" {
		dst.DefaultModel = src.DefaultModel
	}
	if src.Models != nil {
		dst.Models = append([]string{}, src.Models...)
	}
	if src.AgentMap != nil {
		m := make(map[string]string, len(src.AgentMap))
		for k, v := range src.AgentMap {
			m[k] = v
		}
		dst.AgentMap = m
	}
	if src.DefaultAgent != "" {
		dst.DefaultAgent = src.DefaultAgent
	}
}

// ResolveRouterOptions layers call-site options over file options over hard
// defaults.
func ResolveRouterOptions(callSite, file RouterOptions) RouterOptions {
	opts := DefaultRouterOptions()
	MergeRouterOptions(&opts, file)
	MergeRouterOptions(&opts, callSite)
	return opts
}

// MinRecordsValue returns the record threshold, or the default when unset.
func (o RouterOptions) MinRecordsValue() int {
	if o.MinRecords == nil {
		return DefaultMinRecords
	}
	return *o.MinRecords
}

// MinModelsValue returns the model-count threshold, or the default when unset.
func (o RouterOptions) MinModelsValue() int {
	if o.MinModels == nil {
		return DefaultMinModels
	}
	return *o.MinModels
}

// Int returns a pointer to v, for setting numeric options.
func Int(v int) *int {
	return intPtr(v)
}

func intPtr(v int) *int {
	return &v
}
