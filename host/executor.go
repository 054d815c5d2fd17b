package host

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/reglet-dev/reglet-oscall/domain/entities"
	"github.com/reglet-dev/reglet-oscall/domain/policy"
	"github.com/reglet-dev/reglet-oscall/domain/ports"
	"github.com/reglet-dev/reglet-oscall/hostfuncs"
	grant_store "github.com/reglet-dev/reglet-oscall/infrastructure/grantstore"
	"github.com/reglet-dev/reglet-oscall/infrastructure/native"
	infrawazero "github.com/reglet-dev/reglet-oscall/infrastructure/wazero"
)

// ErrUnrestricted is returned by grant operations on an executor that does
// not enforce grants.
var ErrUnrestricted = errors.New("host: executor does not enforce native grants")

// Executor manages a wazero runtime with the bridge registered in it.
type Executor struct {
	runtime       wazero.Runtime
	runtimeConfig wazero.RuntimeConfig
	bridge        *hostfuncs.Bridge
	checker       *hostfuncs.CapabilityChecker
	logger        *zap.Logger
	loader        ports.NativeLoader
	caller        ports.NativeCaller
	store         ports.GrantStore
	prompter      ports.Prompter
	guests        map[string]*entities.GrantSet
	middlewares   []hostfuncs.Middleware
	stdin         io.Reader
	stdout        io.Writer
	stderr        io.Writer
	config        entities.BridgeConfig
}

// NewExecutor creates an executor with the given options.
func NewExecutor(ctx context.Context, opts ...Option) (*Executor, error) {
	e := &Executor{
		config: entities.DefaultBridgeConfig(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.loader == nil {
		e.loader = native.NewLoader(native.WithLogger(e.logger))
	}
	if e.caller == nil {
		e.caller = native.NewCaller()
	}
	if e.store == nil && e.config.GrantsFile != "" {
		e.store = grant_store.NewFileStore(
			grant_store.WithPath(e.config.GrantsFile),
			grant_store.WithLogger(e.logger),
		)
	}

	bridgeOpts := []hostfuncs.BridgeOption{
		hostfuncs.WithLoader(e.loader),
		hostfuncs.WithCaller(e.caller),
		hostfuncs.WithLogger(e.logger),
		hostfuncs.WithConfig(e.config),
		hostfuncs.WithMiddleware(
			hostfuncs.PanicRecoveryMiddleware(),
			hostfuncs.LoggingMiddleware(e.logger),
		),
	}
	if e.restricted() {
		checker, err := infrawazero.NewCapabilityChecker(e.store, e.guests,
			hostfuncs.WithCapabilityPolicy(policy.NewPolicy(
				policy.WithDenialHandler(&policy.LoggerDenialHandler{Logger: e.logger}),
			)),
			hostfuncs.WithDefaultGrants(e.config.Grants),
		)
		if err != nil {
			return nil, err
		}
		e.checker = checker
		var guard hostfuncs.BindGuard = checker
		if e.prompter != nil {
			guard = infrawazero.NewPromptingGuard(checker, e.prompter, e.store, e.logger)
		}
		bridgeOpts = append(bridgeOpts,
			hostfuncs.WithBindGuard(guard),
			hostfuncs.WithMiddleware(infrawazero.WithCapabilityMiddleware(checker)),
		)
	}
	bridgeOpts = append(bridgeOpts, hostfuncs.WithMiddleware(e.middlewares...))

	bridge, err := hostfuncs.NewBridge(bridgeOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bridge: %w", err)
	}
	e.bridge = bridge

	rtConfig := e.runtimeConfig
	if rtConfig == nil {
		rtConfig = wazero.NewRuntimeConfig()
	}
	rt := wazero.NewRuntimeWithConfig(ctx, rtConfig)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate WASI: %w", err)
	}
	if err := infrawazero.RegisterWithRuntime(ctx, rt, bridge, infrawazero.WithLogger(e.logger)); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("failed to register host functions: %w", err)
	}
	e.runtime = rt

	e.logger.Debug("executor ready",
		zap.String("module", bridge.Config().ModuleName),
		zap.Bool("restricted", e.checker != nil))
	return e, nil
}

func (e *Executor) restricted() bool {
	return e.config.Grants != nil || e.store != nil || e.prompter != nil || len(e.guests) > 0
}

// Bridge returns the bridge shared by every guest of this executor.
func (e *Executor) Bridge() *hostfuncs.Bridge {
	return e.bridge
}

// Grant replaces the grants of one guest. Existing handles of the guest are
// re-checked on their next call.
func (e *Executor) Grant(guest string, g *entities.GrantSet) error {
	if e.checker == nil {
		return ErrUnrestricted
	}
	e.checker.Grant(guest, g)
	return nil
}

// Revoke removes the grants of one guest.
func (e *Executor) Revoke(guest string) error {
	if e.checker == nil {
		return ErrUnrestricted
	}
	e.checker.Revoke(guest)
	return nil
}

// PersistGrants adds g to the grant store and to the default grants. The
// store is written only when g holds rules it lacks.
func (e *Executor) PersistGrants(g *entities.GrantSet) error {
	if e.checker == nil {
		return ErrUnrestricted
	}
	if e.store == nil {
		return errors.New("host: no grant store configured")
	}
	current, err := e.store.Load()
	if err != nil {
		return fmt.Errorf("load grants: %w", err)
	}
	if current == nil {
		current = &entities.GrantSet{}
	}
	if !g.Difference(current).IsEmpty() {
		current.Merge(g)
		if err := e.store.Save(current); err != nil {
			return fmt.Errorf("save grants to %s: %w", e.store.ConfigPath(), err)
		}
	}
	e.checker.MergeDefaults(g)
	return nil
}

// Close releases the runtime and unloads every native module.
func (e *Executor) Close(ctx context.Context) error {
	return errors.Join(e.runtime.Close(ctx), e.bridge.Close())
}
