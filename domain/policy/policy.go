package policy

import (
	"path/filepath"
	"strconv"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/reglet-dev/reglet-oscall/domain/entities"
	"github.com/reglet-dev/reglet-oscall/domain/ports"
)

// policyConfig holds configuration for the Policy engine.
type policyConfig struct {
	denialHandler ports.DenialHandler // Handler invoked on policy denials
	matchBasename bool                // Also match module patterns against the file name
}

func defaultPolicyConfig() policyConfig {
	return policyConfig{
		denialHandler: &StderrDenialHandler{}, // Log to stderr by default
		matchBasename: true,
	}
}

// PolicyOption configures the Policy.
type PolicyOption func(*policyConfig)

// WithDenialHandler sets the denial handler.
func WithDenialHandler(h ports.DenialHandler) PolicyOption {
	return func(c *policyConfig) {
		c.denialHandler = h
	}
}

// WithBasenameMatching enables/disables matching module patterns against the
// base name of a module path ("/usr/lib/libm.so.6" matches "libm.so*").
// Default is true.
func WithBasenameMatching(enabled bool) PolicyOption {
	return func(c *policyConfig) {
		c.matchBasename = enabled
	}
}

// Policy implements the Policy interface with stateless enforcement.
type Policy struct {
	config policyConfig
	cache  sync.Map // key: *entities.GrantSet, value: *compiledGrantSet
}

type compiledGrantSet struct {
	nativeRules []compiledNativeRule
}

type compiledNativeRule struct {
	modules []string
	symbols []string
}

// NewPolicy creates a new Policy.
func NewPolicy(opts ...PolicyOption) ports.Policy {
	cfg := defaultPolicyConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Policy{config: cfg}
}

func (p *Policy) getCompiled(grants *entities.GrantSet) *compiledGrantSet {
	if grants == nil {
		return nil
	}
	if v, ok := p.cache.Load(grants); ok {
		return v.(*compiledGrantSet)
	}

	c := &compiledGrantSet{}
	if grants.Native != nil {
		for _, rule := range grants.Native.Rules {
			cr := compiledNativeRule{}
			for _, m := range rule.Modules {
				if doublestar.ValidatePattern(m) {
					cr.modules = append(cr.modules, m)
				}
			}
			for _, s := range rule.Symbols {
				if doublestar.ValidatePattern(s) {
					cr.symbols = append(cr.symbols, s)
				}
			}
			c.nativeRules = append(c.nativeRules, cr)
		}
	}

	p.cache.Store(grants, c)
	return c
}

// CheckNative reports whether req is covered by a native grant rule.
// Ordinal requests are matched against symbol patterns as "#<ordinal>".
func (p *Policy) CheckNative(req entities.NativeRequest, grants *entities.GrantSet) bool {
	c := p.getCompiled(grants)
	if c == nil {
		p.config.denialHandler.OnDenial("native", req, "no grants")
		return false
	}

	symbol := req.Symbol
	if symbol == "" {
		symbol = "#" + strconv.Itoa(int(req.Ordinal))
	}

	for _, rule := range c.nativeRules {
		if !p.matchModule(rule.modules, req.Module) {
			continue
		}
		if len(rule.symbols) == 0 {
			return true
		}
		for _, pattern := range rule.symbols {
			if matched, _ := doublestar.Match(pattern, symbol); matched {
				return true
			}
		}
	}

	p.config.denialHandler.OnDenial("native", req, "no matching grant")
	return false
}

func (p *Policy) matchModule(patterns []string, module string) bool {
	base := filepath.Base(module)
	for _, pattern := range patterns {
		if matched, _ := doublestar.Match(pattern, module); matched {
			return true
		}
		if p.config.matchBasename && base != module {
			if matched, _ := doublestar.Match(pattern, base); matched {
				return true
			}
		}
	}
	return false
}
