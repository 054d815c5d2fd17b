package policy_test

import (
	"testing"

	"github.com/reglet-dev/reglet-oscall/domain/entities"
	"github.com/reglet-dev/reglet-oscall/domain/policy"
	"github.com/stretchr/testify/assert"
)

type recordingHandler struct {
	denials []string
}

func (h *recordingHandler) OnDenial(kind string, request interface{}, reason string) {
	h.denials = append(h.denials, kind+":"+reason)
}

func TestPolicy_CheckNative(t *testing.T) {
	p := policy.NewPolicy(policy.WithDenialHandler(&policy.NopDenialHandler{}))

	grants := &entities.GrantSet{
		Native: &entities.NativeCapability{
			Rules: []entities.NativeRule{
				{Modules: []string{"libc.so*"}, Symbols: []string{"strlen", "abs", "str*"}},
				{Modules: []string{"libm.so.6"}},
				{Modules: []string{"kernel32.dll"}, Symbols: []string{"#12"}},
			},
		},
	}

	tests := []struct {
		name string
		req  entities.NativeRequest
		want bool
	}{
		{"Allowed symbol", entities.NativeRequest{Module: "libc.so.6", Symbol: "strlen"}, true},
		{"Allowed symbol glob", entities.NativeRequest{Module: "libc.so.6", Symbol: "strncmp"}, true},
		{"Denied symbol", entities.NativeRequest{Module: "libc.so.6", Symbol: "system"}, false},
		{"Whole module granted", entities.NativeRequest{Module: "libm.so.6", Symbol: "cos"}, true},
		{"Module path matched by basename", entities.NativeRequest{Module: "/usr/lib/libm.so.6", Symbol: "sin"}, true},
		{"Denied module", entities.NativeRequest{Module: "libssl.so", Symbol: "SSL_new"}, false},
		{"Allowed ordinal", entities.NativeRequest{Module: "kernel32.dll", Ordinal: 12}, true},
		{"Denied ordinal", entities.NativeRequest{Module: "kernel32.dll", Ordinal: 13}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.CheckNative(tt.req, grants))
		})
	}
}

func TestPolicy_CheckNative_BasenameMatchingDisabled(t *testing.T) {
	p := policy.NewPolicy(
		policy.WithDenialHandler(&policy.NopDenialHandler{}),
		policy.WithBasenameMatching(false),
	)
	grants := &entities.GrantSet{
		Native: &entities.NativeCapability{
			Rules: []entities.NativeRule{{Modules: []string{"libm.so.6"}}},
		},
	}

	assert.True(t, p.CheckNative(entities.NativeRequest{Module: "libm.so.6", Symbol: "cos"}, grants))
	assert.False(t, p.CheckNative(entities.NativeRequest{Module: "/usr/lib/libm.so.6", Symbol: "cos"}, grants))
	assert.True(t, p.CheckNative(entities.NativeRequest{Module: "/usr/lib/libm.so.6", Symbol: "cos"}, &entities.GrantSet{
		Native: &entities.NativeCapability{
			Rules: []entities.NativeRule{{Modules: []string{"/usr/lib/*.so.6"}}},
		},
	}))
}

func TestPolicy_CheckNative_DenialHandler(t *testing.T) {
	h := &recordingHandler{}
	p := policy.NewPolicy(policy.WithDenialHandler(h))

	assert.False(t, p.CheckNative(entities.NativeRequest{Module: "libc.so.6", Symbol: "abs"}, nil))
	assert.False(t, p.CheckNative(entities.NativeRequest{Module: "libc.so.6", Symbol: "abs"}, &entities.GrantSet{}))

	assert.Equal(t, []string{"native:no grants", "native:no matching grant"}, h.denials)
}

func TestPolicy_CheckNative_InvalidPatternIgnored(t *testing.T) {
	p := policy.NewPolicy(policy.WithDenialHandler(&policy.NopDenialHandler{}))
	grants := &entities.GrantSet{
		Native: &entities.NativeCapability{
			Rules: []entities.NativeRule{{Modules: []string{"lib[c.so"}}},
		},
	}

	assert.False(t, p.CheckNative(entities.NativeRequest{Module: "lib[c.so", Symbol: "abs"}, grants))
}

func FuzzCheckNative(f *testing.F) {
	p := policy.NewPolicy(policy.WithDenialHandler(&policy.NopDenialHandler{}))
	grants := &entities.GrantSet{
		Native: &entities.NativeCapability{
			Rules: []entities.NativeRule{
				{Modules: []string{"libc.so*", "**/libm.so*"}, Symbols: []string{"str*"}},
			},
		},
	}
	f.Add("libc.so.6", "strlen")
	f.Add("/usr/lib/libm.so.6", "cos")
	f.Add("evil.so", "system")

	f.Fuzz(func(t *testing.T, module, symbol string) {
		// We just ensure it doesn't panic
		p.CheckNative(entities.NativeRequest{Module: module, Symbol: symbol}, grants)
	})
}

func BenchmarkCheckNative(b *testing.B) {
	p := policy.NewPolicy(policy.WithDenialHandler(&policy.NopDenialHandler{}))
	grants := &entities.GrantSet{
		Native: &entities.NativeCapability{
			Rules: []entities.NativeRule{
				{Modules: []string{"libc.so*"}, Symbols: []string{"strlen", "abs"}},
			},
		},
	}
	req := entities.NativeRequest{Module: "libc.so.6", Symbol: "abs"}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.CheckNative(req, grants)
	}
}
