package host

import (
	"io"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/reglet-dev/reglet-oscall/domain/entities"
	"github.com/reglet-dev/reglet-oscall/domain/ports"
	"github.com/reglet-dev/reglet-oscall/hostfuncs"
)

// Option defines a functional option for configuring the Executor.
type Option func(*Executor)

// WithConfig sets the bridge configuration.
func WithConfig(cfg entities.BridgeConfig) Option {
	return func(e *Executor) {
		e.config = cfg
	}
}

// WithLogger sets the logger shared by the executor, bridge and adapter.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithNativeLoader replaces the platform loader.
func WithNativeLoader(l ports.NativeLoader) Option {
	return func(e *Executor) {
		e.loader = l
	}
}

// WithNativeCaller replaces the platform call trampoline.
func WithNativeCaller(c ports.NativeCaller) Option {
	return func(e *Executor) {
		e.caller = c
	}
}

// WithGrantStore loads default grants from store. It takes precedence over
// the config's grants_file.
func WithGrantStore(s ports.GrantStore) Option {
	return func(e *Executor) {
		e.store = s
	}
}

// WithPrompter asks p about binds the grants deny. Setting a prompter
// enforces grants even when none are configured.
func WithPrompter(p ports.Prompter) Option {
	return func(e *Executor) {
		e.prompter = p
	}
}

// WithGuestGrants sets grants for individual guests by name.
func WithGuestGrants(grants map[string]*entities.GrantSet) Option {
	return func(e *Executor) {
		e.guests = grants
	}
}

// WithMiddleware adds native call middleware after the built-in ones.
func WithMiddleware(mw ...hostfuncs.Middleware) Option {
	return func(e *Executor) {
		e.middlewares = append(e.middlewares, mw...)
	}
}

// WithRuntimeConfig sets the wazero runtime configuration.
func WithRuntimeConfig(cfg wazero.RuntimeConfig) Option {
	return func(e *Executor) {
		e.runtimeConfig = cfg
	}
}

// WithStdio sets the WASI standard streams of guests. Nil streams are discarded.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(e *Executor) {
		e.stdin = stdin
		e.stdout = stdout
		e.stderr = stderr
	}
}
