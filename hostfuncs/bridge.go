package hostfuncs

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"

	"github.com/reglet-dev/reglet-oscall/domain/entities"
	domainerrors "github.com/reglet-dev/reglet-oscall/domain/errors"
	"github.com/reglet-dev/reglet-oscall/domain/ports"
)

// ordinalTag marks a function identifier that carries an ordinal in its low
// 16 bits instead of a guest string offset.
const ordinalTag uint32 = 0xFFFF0000

// OrdinalFunctionID encodes an ordinal as a bind function identifier.
func OrdinalFunctionID(ordinal uint16) uint32 {
	return ordinalTag | uint32(ordinal)
}

// SplitFunctionID reports whether id is the ordinal form and returns the ordinal.
func SplitFunctionID(id uint32) (ordinal uint16, byOrdinal bool) {
	if id&ordinalTag == ordinalTag {
		return uint16(id), true
	}
	return 0, false
}

// BindRequest carries the raw guest arguments of a bind call.
type BindRequest struct {
	ModuleAddr uint32
	FunctionID uint32
	ReturnCode uint32
	ParamCount uint32
	ArgsAddr   uint32
}

// InvokeRequest carries the raw guest arguments of an invoke call.
// ResultAddr 0 discards the return value.
type InvokeRequest struct {
	Handle     entities.Handle
	ArgCount   uint32
	ArgsAddr   uint32
	ResultAddr uint32
}

// Bridge resolves, binds and calls native functions on behalf of guests.
// One Bridge owns one registry; it is safe for concurrent use by any number
// of guest instances.
type Bridge struct {
	registry *ModuleRegistry
	loader   ports.NativeLoader
	caller   ports.NativeCaller
	guard    BindGuard
	logger   *zap.Logger
	call     CallHandler
	config   entities.BridgeConfig
}

// NewBridge creates a bridge. A loader and a caller are required.
func NewBridge(opts ...BridgeOption) (*Bridge, error) {
	bb := &bridgeBuilder{
		logger: zap.NewNop(),
		config: entities.DefaultBridgeConfig(),
	}
	for _, opt := range opts {
		opt(bb)
	}
	if bb.loader == nil {
		return nil, errors.New("hostfuncs: native loader is required")
	}
	if bb.caller == nil {
		return nil, errors.New("hostfuncs: native caller is required")
	}

	cfg := bb.config
	if cfg.MaxParameters <= 0 || cfg.MaxParameters > entities.MaxParameters {
		cfg.MaxParameters = entities.MaxParameters
	}
	if cfg.MaxStringLength == 0 {
		cfg.MaxStringLength = entities.DefaultBridgeConfig().MaxStringLength
	}

	b := &Bridge{
		registry: NewModuleRegistry(cfg.MaxModules, cfg.MaxBindingsPerModule),
		loader:   bb.loader,
		caller:   bb.caller,
		guard:    bb.guard,
		logger:   bb.logger,
		config:   cfg,
	}
	b.call = chain(b.dispatch, bb.middlewares)
	return b, nil
}

// Config returns the effective configuration.
func (b *Bridge) Config() entities.BridgeConfig {
	return b.config
}

// Stats returns registry occupancy.
func (b *Bridge) Stats() RegistryStats {
	return b.registry.Stats()
}

func (b *Bridge) dispatch(_ context.Context, fb *FunctionBinding, args []uintptr) (uintptr, error) {
	return b.caller.Call(fb.fn, args)
}

// fault raises the guest exception for an out-of-bounds access and returns err.
func (b *Bridge) fault(mem ports.AddressTranslator, err error) error {
	b.logger.Warn("guest address rejected", zap.Error(err))
	mem.SetException(domainerrors.ErrInvalidGuestAddress.Error())
	return err
}

// Bind resolves a native function and returns a handle naming the binding.
//
// Out-of-bounds guest addresses raise the guest exception and return an
// InvalidGuestAddressError. Every other failure returns NoBinding with a
// ResolutionError and leaves the registry unchanged.
func (b *Bridge) Bind(ctx context.Context, mem ports.AddressTranslator, req BindRequest) (entities.Handle, error) {
	const op = "bind"

	ordinal, byOrdinal := SplitFunctionID(req.FunctionID)
	if !mem.ValidateAppAddr(req.ModuleAddr, wordSize) {
		return entities.NoBinding, b.fault(mem, invalidAddr(op, req.ModuleAddr, wordSize))
	}
	if !byOrdinal && !mem.ValidateAppAddr(req.FunctionID, wordSize) {
		return entities.NoBinding, b.fault(mem, invalidAddr(op, req.FunctionID, wordSize))
	}
	if !mem.ValidateAppAddr(req.ArgsAddr, wordSize) {
		return entities.NoBinding, b.fault(mem, invalidAddr(op, req.ArgsAddr, wordSize))
	}

	moduleName, ok := mem.ReadAppString(req.ModuleAddr, b.config.MaxStringLength)
	if !ok {
		return entities.NoBinding, b.fault(mem, invalidAddr(op, req.ModuleAddr, b.config.MaxStringLength))
	}
	native := entities.NativeRequest{Module: moduleName, Ordinal: ordinal}
	if !byOrdinal {
		native.Symbol, ok = mem.ReadAppString(req.FunctionID, b.config.MaxStringLength)
		if !ok {
			return entities.NoBinding, b.fault(mem, invalidAddr(op, req.FunctionID, b.config.MaxStringLength))
		}
	}
	symbol := requestSymbol(native)

	if req.ParamCount > uint32(b.config.MaxParameters) {
		return b.unresolved(&domainerrors.ResolutionError{
			Module: moduleName, Symbol: symbol,
			Reason: "parameter count " + strconv.FormatUint(uint64(req.ParamCount), 10) +
				" exceeds capacity " + strconv.Itoa(b.config.MaxParameters),
		})
	}
	ret := entities.TypeCode(req.ReturnCode)
	if err := entities.ValidateReturn(ret); err != nil {
		return b.unresolved(&domainerrors.ResolutionError{Module: moduleName, Symbol: symbol, Err: err})
	}
	if b.guard != nil {
		if err := b.guard.CheckBind(ctx, native); err != nil {
			return b.unresolved(&domainerrors.ResolutionError{Module: moduleName, Symbol: symbol, Reason: "denied", Err: err})
		}
	}

	cursor, err := NewArgCursor(mem, op, req.ArgsAddr)
	if err != nil {
		return entities.NoBinding, b.fault(mem, err)
	}

	b.registry.mu.Lock()
	defer b.registry.mu.Unlock()

	h, err := b.bindLocked(native, symbol, ret, int(req.ParamCount), cursor)
	if err != nil {
		if IsGuestFault(err) {
			return entities.NoBinding, b.fault(mem, err)
		}
		return b.unresolved(err)
	}
	b.logger.Debug("bound native function",
		zap.String("module", moduleName),
		zap.String("symbol", symbol),
		zap.Uint32("handle", uint32(h)))
	return h, nil
}

func (b *Bridge) unresolved(err error) (entities.Handle, error) {
	b.logger.Warn("native resolution failed", zap.Error(err))
	return entities.NoBinding, err
}

// bindLocked performs the registry part of Bind. A module loaded here is
// unloaded again on every failure path so no entry outlives the call.
func (b *Bridge) bindLocked(req entities.NativeRequest, symbol string, ret entities.TypeCode, paramCount int, cursor *ArgCursor) (entities.Handle, error) {
	reg := b.registry
	resolutionErr := func(err error, reason string) error {
		return &domainerrors.ResolutionError{Module: req.Module, Symbol: symbol, Err: err, Reason: reason}
	}

	m := reg.moduleByNameLocked(req.Module)
	var (
		loaded  uintptr
		aliased bool
	)
	if m == nil {
		native, err := b.loader.Open(req.Module)
		if err != nil {
			return entities.NoBinding, resolutionErr(err, "module not found")
		}
		if existing := reg.moduleByNativeLocked(native); existing != nil {
			// Same module under another name; keep a single loader reference.
			// The alias is recorded only once the bind succeeds.
			b.closeModule(req.Module, native)
			m, aliased = existing, true
		} else {
			loaded = native
			b.logger.Info("loaded native module", zap.String("module", req.Module))
		}
	}
	release := func() {
		if loaded != 0 {
			b.closeModule(req.Module, loaded)
		}
	}

	moduleHandle := loaded
	if m != nil {
		moduleHandle = m.native
	}

	var (
		fn  uintptr
		err error
	)
	if req.Symbol == "" {
		fn, err = b.loader.Ordinal(moduleHandle, req.Ordinal)
	} else {
		fn, err = b.loader.Symbol(moduleHandle, req.Symbol)
	}
	if err != nil || fn == 0 {
		release()
		return entities.NoBinding, resolutionErr(err, "function not found")
	}

	if m != nil {
		if h, ok := reg.lookupBindingLocked(m, fn); ok {
			if aliased {
				reg.aliasLocked(m, req.Module)
			}
			return h, nil
		}
	}

	params := make([]entities.TypeCode, paramCount)
	for i := range params {
		w, err := cursor.Next()
		if err != nil {
			release()
			return entities.NoBinding, err
		}
		params[i] = entities.TypeCode(w)
	}
	sig := entities.Signature{Return: ret, Params: params}
	if err := sig.Validate(); err != nil {
		release()
		return entities.NoBinding, resolutionErr(err, "")
	}

	if m == nil {
		m, err = reg.insertModuleLocked(req.Module, loaded)
		if err != nil {
			release()
			return entities.NoBinding, resolutionErr(err, "")
		}
	}
	h, err := reg.insertBindingLocked(m, &FunctionBinding{fn: fn, symbol: symbol, sig: sig})
	if err != nil {
		if loaded != 0 {
			reg.removeModuleLocked(m)
		}
		release()
		return entities.NoBinding, resolutionErr(err, "")
	}
	if aliased {
		reg.aliasLocked(m, req.Module)
	}
	return h, nil
}

func (b *Bridge) closeModule(name string, native uintptr) {
	if err := b.loader.Close(native); err != nil {
		b.logger.Warn("unload native module", zap.String("module", name), zap.Error(err))
		return
	}
	b.logger.Info("unloaded native module", zap.String("module", name))
}

// unload waits for calls still running in m and releases the native module.
// m must already be detached from the registry.
func (b *Bridge) unload(m *moduleEntry) {
	m.inflight.Wait()
	b.closeModule(m.name, m.native)
}

// Unbind releases a binding. Releasing the last binding of a module unloads
// the module once no invocation of it is in flight.
func (b *Bridge) Unbind(_ context.Context, h entities.Handle) error {
	b.registry.mu.Lock()
	fb, detached, ok := b.registry.removeBindingLocked(h)
	b.registry.mu.Unlock()
	if !ok {
		return &domainerrors.UnknownBindingError{Handle: h}
	}

	b.logger.Debug("unbound native function",
		zap.String("module", fb.module.name),
		zap.String("symbol", fb.symbol),
		zap.Uint32("handle", uint32(h)))
	if detached != nil {
		b.unload(detached)
	}
	return nil
}

// Invoke calls a bound function with arguments read from guest memory and
// returns the result widened to 64 bits. The registry lock is held only while
// the handle is resolved.
func (b *Bridge) Invoke(ctx context.Context, mem ports.AddressTranslator, req InvokeRequest) (uint64, error) {
	const op = "invoke"

	b.registry.mu.Lock()
	fb, ok := b.registry.resolveLocked(req.Handle)
	if ok {
		fb.module.inflight.Add(1)
	}
	b.registry.mu.Unlock()
	if !ok {
		return 0, &domainerrors.UnknownBindingError{Handle: req.Handle}
	}
	defer fb.module.inflight.Done()

	sig := fb.sig
	if int64(req.ArgCount) != int64(len(sig.Params)) {
		return 0, &domainerrors.ArityMismatchError{Handle: req.Handle, Want: len(sig.Params), Got: int(req.ArgCount)}
	}
	if req.ResultAddr != 0 && !mem.ValidateAppAddr(req.ResultAddr, 8) {
		return 0, b.fault(mem, invalidAddr(op, req.ResultAddr, 8))
	}

	raw, err := readArgs(mem, op, sig, req.ArgsAddr)
	if err != nil {
		return 0, b.fault(mem, err)
	}
	args, err := marshalArgs(mem, op, sig, raw, b.config.MaxStringLength)
	if err != nil {
		return 0, b.fault(mem, err)
	}
	if len(args) > b.caller.MaxArgs() {
		return 0, &domainerrors.NativeCallError{
			Symbol: fb.symbol,
			Err:    errors.New("too many arguments for the platform calling convention"),
		}
	}

	r, err := b.call(NewCallContext(ctx, fb), fb, args)
	if err != nil {
		var nce *domainerrors.NativeCallError
		if !errors.As(err, &nce) {
			err = &domainerrors.NativeCallError{Symbol: fb.symbol, Err: err}
		}
		return 0, err
	}

	result := b.unmarshalReturn(mem, fb, r)
	if req.ResultAddr != 0 && !mem.WriteUint64(req.ResultAddr, result) {
		return 0, b.fault(mem, invalidAddr(op, req.ResultAddr, 8))
	}
	return result, nil
}

// Close unloads every module. Handles issued before Close are invalid after it.
func (b *Bridge) Close() error {
	b.registry.mu.Lock()
	modules := b.registry.detachAllLocked()
	b.registry.mu.Unlock()

	var errs []error
	for _, m := range modules {
		m.inflight.Wait()
		if err := b.loader.Close(m.native); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
