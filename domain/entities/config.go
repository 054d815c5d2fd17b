package entities

// DefaultModuleName is the host module name guests import the bridge from.
const DefaultModuleName = "os_call"

// BridgeConfig controls bridge behavior for one host runtime.
type BridgeConfig struct {
	// Grants restricts which native modules and symbols guests may bind.
	// A nil Grants means no restriction.
	Grants *GrantSet `json:"grants,omitempty" yaml:"grants,omitempty"`

	// ModuleName is the wasm import module the bridge functions are exported under.
	ModuleName string `json:"module_name" yaml:"module_name" validate:"required" jsonschema:"default=os_call"`

	// LogLevel is the logging verbosity level ("debug", "info", "warn", "error").
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`

	// GrantsFile is an optional YAML file holding persisted grants.
	GrantsFile string `json:"grants_file,omitempty" yaml:"grants_file,omitempty"`

	// Allocator names the guest exports backing malloc/free/realloc.
	Allocator AllocatorConfig `json:"allocator" yaml:"allocator"`

	// MaxParameters caps the parameter count accepted at bind time.
	MaxParameters int `json:"max_parameters" yaml:"max_parameters" validate:"min=0,max=16" jsonschema:"minimum=0,maximum=16"`

	// MaxModules caps concurrently loaded native modules.
	MaxModules int `json:"max_modules" yaml:"max_modules" validate:"min=1,max=1023" jsonschema:"minimum=1,maximum=1023"`

	// MaxBindingsPerModule caps bindings per loaded module.
	MaxBindingsPerModule int `json:"max_bindings_per_module" yaml:"max_bindings_per_module" validate:"min=1,max=1023" jsonschema:"minimum=1,maximum=1023"`

	// MaxStringLength bounds NUL-terminated string scans in guest memory.
	MaxStringLength uint32 `json:"max_string_length" yaml:"max_string_length" validate:"min=1"`
}

// AllocatorConfig names the guest allocator exports.
type AllocatorConfig struct {
	Alloc   string `json:"alloc" yaml:"alloc" validate:"required"`
	Free    string `json:"free" yaml:"free" validate:"required"`
	Realloc string `json:"realloc,omitempty" yaml:"realloc,omitempty"`
}

// DefaultBridgeConfig returns the default configuration.
func DefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		ModuleName:           DefaultModuleName,
		LogLevel:             "info",
		MaxParameters:        MaxParameters,
		MaxModules:           MaxSlots,
		MaxBindingsPerModule: MaxSlots,
		MaxStringLength:      4096,
		Allocator: AllocatorConfig{
			Alloc:   "allocate",
			Free:    "deallocate",
			Realloc: "reallocate",
		},
	}
}

// BridgeConfigOption is a functional option for BridgeConfig.
type BridgeConfigOption func(*BridgeConfig)

// WithModuleName sets the import module name.
func WithModuleName(name string) BridgeConfigOption {
	return func(c *BridgeConfig) {
		if name != "" {
			c.ModuleName = name
		}
	}
}

// WithMaxParameters sets the parameter cap. Values above MaxParameters are clamped.
func WithMaxParameters(n int) BridgeConfigOption {
	return func(c *BridgeConfig) {
		if n > MaxParameters {
			n = MaxParameters
		}
		if n >= 0 {
			c.MaxParameters = n
		}
	}
}

// WithGrants sets the native grants.
func WithGrants(g *GrantSet) BridgeConfigOption {
	return func(c *BridgeConfig) {
		c.Grants = g
	}
}

// NewBridgeConfig creates a config from defaults and options.
func NewBridgeConfig(opts ...BridgeConfigOption) BridgeConfig {
	cfg := DefaultBridgeConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
