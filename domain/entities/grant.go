package entities

// GrantSet is the collection of native capabilities granted to a guest.
type GrantSet struct {
	Native *NativeCapability `json:"native,omitempty" yaml:"native,omitempty"`
}

// NativeCapability lists what a guest may bind.
// Modules and Symbols are glob patterns; an empty Symbols list grants every
// symbol of a granted module.
type NativeCapability struct {
	Rules []NativeRule `json:"rules" yaml:"rules"`
}

// NativeRule grants a set of symbols within a set of modules.
type NativeRule struct {
	Modules []string `json:"modules" yaml:"modules"`
	Symbols []string `json:"symbols,omitempty" yaml:"symbols,omitempty"`
}

// NativeRequest describes a bind attempt for policy evaluation.
type NativeRequest struct {
	Module string `json:"module"`
	// Symbol is empty for ordinal binds.
	Symbol  string `json:"symbol,omitempty"`
	Ordinal uint16 `json:"ordinal,omitempty"`
}

// IsEmpty returns true if no capabilities are present.
func (g *GrantSet) IsEmpty() bool {
	if g == nil {
		return true
	}
	return g.Native == nil || len(g.Native.Rules) == 0
}

// Merge unions two grant sets.
func (g *GrantSet) Merge(other *GrantSet) {
	if other == nil || other.Native == nil || len(other.Native.Rules) == 0 {
		return
	}
	if g.Native == nil {
		g.Native = &NativeCapability{}
	}
	for _, rule := range other.Native.Rules {
		if !g.containsNativeRule(rule) {
			g.Native.Rules = append(g.Native.Rules, rule.clone())
		}
	}
}

// Clone returns a deep copy of the GrantSet.
func (g *GrantSet) Clone() *GrantSet {
	if g == nil {
		return nil
	}
	clone := &GrantSet{}
	if g.Native != nil {
		clone.Native = &NativeCapability{Rules: make([]NativeRule, len(g.Native.Rules))}
		for i, rule := range g.Native.Rules {
			clone.Native.Rules[i] = rule.clone()
		}
	}
	return clone
}

// Difference returns the rules in g that are not present in other.
func (g *GrantSet) Difference(other *GrantSet) *GrantSet {
	if g == nil {
		return nil
	}
	if other == nil {
		return g.Clone()
	}
	result := &GrantSet{}
	if g.Native == nil {
		return result
	}
	var rules []NativeRule
	for _, rule := range g.Native.Rules {
		if !other.containsNativeRule(rule) {
			rules = append(rules, rule.clone())
		}
	}
	if len(rules) > 0 {
		result.Native = &NativeCapability{Rules: rules}
	}
	return result
}

func (g *GrantSet) containsNativeRule(rule NativeRule) bool {
	if g == nil || g.Native == nil {
		return false
	}
	for _, r := range g.Native.Rules {
		if equalStrings(r.Modules, rule.Modules) && equalStrings(r.Symbols, rule.Symbols) {
			return true
		}
	}
	return false
}

func (r NativeRule) clone() NativeRule {
	return NativeRule{
		Modules: append([]string(nil), r.Modules...),
		Symbols: append([]string(nil), r.Symbols...),
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
