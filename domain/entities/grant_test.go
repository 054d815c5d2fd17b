package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grants(rules ...NativeRule) *GrantSet {
	return &GrantSet{Native: &NativeCapability{Rules: rules}}
}

func TestGrantSet_IsEmpty(t *testing.T) {
	var nilSet *GrantSet
	assert.True(t, nilSet.IsEmpty())
	assert.True(t, (&GrantSet{}).IsEmpty())
	assert.True(t, grants().IsEmpty())
	assert.False(t, grants(NativeRule{Modules: []string{"libc.so*"}}).IsEmpty())
}

func TestGrantSet_Merge(t *testing.T) {
	tests := []struct {
		name     string
		initial  *GrantSet
		toMerge  *GrantSet
		expected []NativeRule
	}{
		{
			name:     "duplicates are dropped",
			initial:  grants(NativeRule{Modules: []string{"libc.so.6"}, Symbols: []string{"strlen"}}),
			toMerge:  grants(NativeRule{Modules: []string{"libc.so.6"}, Symbols: []string{"strlen"}}),
			expected: []NativeRule{{Modules: []string{"libc.so.6"}, Symbols: []string{"strlen"}}},
		},
		{
			name:    "different symbols are kept",
			initial: grants(NativeRule{Modules: []string{"libc.so.6"}, Symbols: []string{"strlen"}}),
			toMerge: grants(NativeRule{Modules: []string{"libc.so.6"}, Symbols: []string{"getpid"}}),
			expected: []NativeRule{
				{Modules: []string{"libc.so.6"}, Symbols: []string{"strlen"}},
				{Modules: []string{"libc.so.6"}, Symbols: []string{"getpid"}},
			},
		},
		{
			name:     "into empty",
			initial:  &GrantSet{},
			toMerge:  grants(NativeRule{Modules: []string{"libm.so*"}}),
			expected: []NativeRule{{Modules: []string{"libm.so*"}}},
		},
		{
			name:     "nil other",
			initial:  grants(NativeRule{Modules: []string{"libm.so*"}}),
			expected: []NativeRule{{Modules: []string{"libm.so*"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.initial.Merge(tt.toMerge)
			require.NotNil(t, tt.initial.Native)
			assert.Equal(t, tt.expected, tt.initial.Native.Rules)
		})
	}
}

func TestGrantSet_MergeCopiesRules(t *testing.T) {
	other := grants(NativeRule{Modules: []string{"libc.so.6"}})
	g := &GrantSet{}
	g.Merge(other)

	other.Native.Rules[0].Modules[0] = "changed"
	assert.Equal(t, "libc.so.6", g.Native.Rules[0].Modules[0])
}

func TestGrantSet_Clone(t *testing.T) {
	var nilSet *GrantSet
	assert.Nil(t, nilSet.Clone())

	g := grants(NativeRule{Modules: []string{"a"}, Symbols: []string{"f"}})
	c := g.Clone()
	assert.Equal(t, g, c)

	c.Native.Rules[0].Symbols[0] = "g"
	assert.Equal(t, "f", g.Native.Rules[0].Symbols[0])
}

func TestGrantSet_Difference(t *testing.T) {
	a := NativeRule{Modules: []string{"a"}}
	b := NativeRule{Modules: []string{"b"}, Symbols: []string{"f"}}

	diff := grants(a, b).Difference(grants(a))
	require.NotNil(t, diff.Native)
	assert.Equal(t, []NativeRule{b}, diff.Native.Rules)

	assert.True(t, grants(a).Difference(grants(a)).IsEmpty())
	assert.Equal(t, grants(a), grants(a).Difference(nil))
}
