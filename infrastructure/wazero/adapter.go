package wazero

import (
	"context"
	"errors"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/reglet-dev/reglet-oscall/domain/entities"
	domainerrors "github.com/reglet-dev/reglet-oscall/domain/errors"
	"github.com/reglet-dev/reglet-oscall/hostfuncs"
)

// Guest-visible export names.
const (
	FuncBind    = "wwrap"
	FuncInvoke  = "wcall"
	FuncUnbind  = "wunwrap"
	FuncMalloc  = "malloc"
	FuncCalloc  = "calloc"
	FuncRealloc = "realloc"
	FuncFree    = "free"
	FuncAbort   = "abort"
)

// AdapterConfig holds configuration for the wazero adapter.
type AdapterConfig struct {
	// Logger receives adapter diagnostics. Default is a no-op logger.
	Logger *zap.Logger

	// ModuleName is the host module name (default: the bridge's configured name).
	ModuleName string

	// Allocator names the guest exports used by malloc, free and realloc.
	Allocator entities.AllocatorConfig

	// CustomHandlers adds further functions to the host module.
	CustomHandlers []CustomHandler
}

// CustomHandler is an extra function exported from the host module.
type CustomHandler struct {
	// Name is the exported function name.
	Name string

	// Handler is the wazero GoModuleFunc implementation.
	Handler api.GoModuleFunc

	// ParamTypes are the WASM parameter types.
	ParamTypes []api.ValueType

	// ResultTypes are the WASM result types.
	ResultTypes []api.ValueType
}

// AdapterOption configures the adapter.
type AdapterOption func(*AdapterConfig)

// WithModuleName sets the host module name.
func WithModuleName(name string) AdapterOption {
	return func(c *AdapterConfig) {
		c.ModuleName = name
	}
}

// WithAllocator sets the guest allocator export names.
func WithAllocator(names entities.AllocatorConfig) AdapterOption {
	return func(c *AdapterConfig) {
		c.Allocator = names
	}
}

// WithLogger sets the adapter logger.
func WithLogger(l *zap.Logger) AdapterOption {
	return func(c *AdapterConfig) {
		c.Logger = l
	}
}

// WithCustomHandler adds a custom wazero handler.
func WithCustomHandler(h CustomHandler) AdapterOption {
	return func(c *AdapterConfig) {
		c.CustomHandlers = append(c.CustomHandlers, h)
	}
}

func defaultAdapterConfig(bridge *hostfuncs.Bridge) AdapterConfig {
	cfg := bridge.Config()
	return AdapterConfig{
		ModuleName: cfg.ModuleName,
		Allocator:  cfg.Allocator,
		Logger:     zap.NewNop(),
	}
}

type adapter struct {
	bridge *hostfuncs.Bridge
	logger *zap.Logger
	config AdapterConfig
}

var (
	i32  = api.ValueTypeI32
	none = []api.ValueType{}
)

// RegisterWithRuntime instantiates a host module exporting the bridge:
//
//	wwrap(module_name, function_id, return_code, param_count, codes) -> handle
//	wcall(handle, argc, args, result_ptr) -> status
//	wunwrap(handle) -> status
//	malloc(size) -> ptr
//	calloc(n, size) -> ptr
//	realloc(ptr, size) -> ptr
//	free(ptr)
//	abort(code)
//
// All parameters and results are i32. Guest faults abort the calling guest
// function with a *GuestException error.
//
// Example:
//
//	bridge, _ := hostfuncs.NewBridge(
//	    hostfuncs.WithLoader(native.NewLoader()),
//	    hostfuncs.WithCaller(native.NewCaller()),
//	)
//	err := wazero.RegisterWithRuntime(ctx, runtime, bridge)
func RegisterWithRuntime(ctx context.Context, runtime wazero.Runtime, bridge *hostfuncs.Bridge, opts ...AdapterOption) error {
	if bridge == nil {
		return errors.New("wazero: bridge is required")
	}
	cfg := defaultAdapterConfig(bridge)
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.ModuleName == "" {
		cfg.ModuleName = entities.DefaultModuleName
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	a := &adapter{bridge: bridge, logger: cfg.Logger, config: cfg}

	builder := runtime.NewHostModuleBuilder(cfg.ModuleName)
	export := func(name string, fn api.GoModuleFunc, params, results []api.ValueType) {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(fn, params, results).
			WithName(name).
			Export(name)
	}

	export(FuncBind, a.bind, []api.ValueType{i32, i32, i32, i32, i32}, []api.ValueType{i32})
	export(FuncInvoke, a.invoke, []api.ValueType{i32, i32, i32, i32}, []api.ValueType{i32})
	export(FuncUnbind, a.unbind, []api.ValueType{i32}, []api.ValueType{i32})
	export(FuncMalloc, a.malloc, []api.ValueType{i32}, []api.ValueType{i32})
	export(FuncCalloc, a.calloc, []api.ValueType{i32, i32}, []api.ValueType{i32})
	export(FuncRealloc, a.realloc, []api.ValueType{i32, i32}, []api.ValueType{i32})
	export(FuncFree, a.free, []api.ValueType{i32}, none)
	export(FuncAbort, a.abort, []api.ValueType{i32}, none)

	for _, ch := range cfg.CustomHandlers {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(ch.Handler, ch.ParamTypes, ch.ResultTypes).
			Export(ch.Name)
	}

	_, err := builder.Instantiate(ctx)
	return err
}

func (a *adapter) context(ctx context.Context, mod api.Module) context.Context {
	if _, ok := hostfuncs.GuestNameFromContext(ctx); ok {
		return ctx
	}
	return hostfuncs.WithGuestName(ctx, GetGuestName(ctx, mod))
}

func (a *adapter) bind(ctx context.Context, mod api.Module, stack []uint64) {
	mem := newGuestMemory(mod)
	h, err := a.bridge.Bind(a.context(ctx, mod), mem, hostfuncs.BindRequest{
		ModuleAddr: api.DecodeU32(stack[0]),
		FunctionID: api.DecodeU32(stack[1]),
		ReturnCode: api.DecodeU32(stack[2]),
		ParamCount: api.DecodeU32(stack[3]),
		ArgsAddr:   api.DecodeU32(stack[4]),
	})
	mem.raise()
	if err != nil {
		a.failed(FuncBind, mod, err)
	}
	stack[0] = api.EncodeU32(uint32(h))
}

// failed logs an error that reaches the guest only as a status code.
func (a *adapter) failed(op string, mod api.Module, err error) {
	d := domainerrors.ToErrorDetail(err)
	fields := []zap.Field{
		zap.String("guest", mod.Name()),
		zap.String("type", d.Type),
		zap.Error(err),
	}
	if d.Code != "" {
		fields = append(fields, zap.String("code", d.Code))
	}
	if len(d.Details) > 0 {
		fields = append(fields, zap.Any("details", d.Details))
	}
	a.logger.Debug(op+" failed", fields...)
}

func (a *adapter) invoke(ctx context.Context, mod api.Module, stack []uint64) {
	mem := newGuestMemory(mod)
	_, err := a.bridge.Invoke(a.context(ctx, mod), mem, hostfuncs.InvokeRequest{
		Handle:     entities.Handle(api.DecodeU32(stack[0])),
		ArgCount:   api.DecodeU32(stack[1]),
		ArgsAddr:   api.DecodeU32(stack[2]),
		ResultAddr: api.DecodeU32(stack[3]),
	})
	mem.raise()
	if err != nil {
		a.failed(FuncInvoke, mod, err)
	}
	stack[0] = api.EncodeI32(int32(hostfuncs.StatusFromError(err)))
}

func (a *adapter) unbind(ctx context.Context, mod api.Module, stack []uint64) {
	err := a.bridge.Unbind(a.context(ctx, mod), entities.Handle(api.DecodeU32(stack[0])))
	if err != nil {
		a.failed(FuncUnbind, mod, err)
	}
	stack[0] = api.EncodeI32(int32(hostfuncs.StatusFromError(err)))
}

func (a *adapter) malloc(ctx context.Context, mod api.Module, stack []uint64) {
	heap := newGuestAllocator(mod, a.config.Allocator)
	stack[0] = api.EncodeU32(a.bridge.Malloc(ctx, heap, api.DecodeU32(stack[0])))
}

func (a *adapter) calloc(ctx context.Context, mod api.Module, stack []uint64) {
	mem := newGuestMemory(mod)
	heap := newGuestAllocator(mod, a.config.Allocator)
	stack[0] = api.EncodeU32(a.bridge.Calloc(ctx, mem, heap, api.DecodeU32(stack[0]), api.DecodeU32(stack[1])))
}

func (a *adapter) realloc(ctx context.Context, mod api.Module, stack []uint64) {
	heap := newGuestAllocator(mod, a.config.Allocator)
	stack[0] = api.EncodeU32(a.bridge.Realloc(ctx, heap, api.DecodeU32(stack[0]), api.DecodeU32(stack[1])))
}

func (a *adapter) free(ctx context.Context, mod api.Module, stack []uint64) {
	mem := newGuestMemory(mod)
	heap := newGuestAllocator(mod, a.config.Allocator)
	a.bridge.Free(ctx, mem, heap, api.DecodeU32(stack[0]))
}

func (a *adapter) abort(_ context.Context, mod api.Module, stack []uint64) {
	mem := newGuestMemory(mod)
	_ = a.bridge.Abort(mem, api.DecodeI32(stack[0]))
	mem.raise()
}
