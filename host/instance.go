package host

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"

	infrawazero "github.com/reglet-dev/reglet-oscall/infrastructure/wazero"
)

// Instance is an instantiated guest. Calls into it carry its name so grants
// are checked against it.
type Instance struct {
	module api.Module
	name   string
}

func (e *Executor) moduleConfig(name string) wazero.ModuleConfig {
	cfg := wazero.NewModuleConfig().
		WithName(name).
		WithSysWalltime().
		WithSysNanotime().
		WithRandSource(rand.Reader)
	if e.stdin != nil {
		cfg = cfg.WithStdin(e.stdin)
	}
	if e.stdout != nil {
		cfg = cfg.WithStdout(e.stdout)
	}
	if e.stderr != nil {
		cfg = cfg.WithStderr(e.stderr)
	}
	return cfg
}

// Instantiate loads a reactor guest: its _initialize export runs, if present,
// and exports are then called through Instance.Call.
func (e *Executor) Instantiate(ctx context.Context, name string, wasmBytes []byte) (*Instance, error) {
	ctx = infrawazero.WithGuestName(ctx, name)
	mod, err := e.runtime.InstantiateWithConfig(ctx, wasmBytes,
		e.moduleConfig(name).WithStartFunctions("_initialize"))
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate module %s: %w", name, err)
	}
	e.logger.Info("guest instantiated", zap.String("guest", name))
	return &Instance{module: mod, name: name}, nil
}

// Run executes a WASI command guest to completion. A zero exit code is not
// an error; any other exit code is returned as *sys.ExitError.
func (e *Executor) Run(ctx context.Context, name string, wasmBytes []byte, args ...string) error {
	ctx = infrawazero.WithGuestName(ctx, name)
	cfg := e.moduleConfig(name).WithArgs(append([]string{name}, args...)...)

	mod, err := e.runtime.InstantiateWithConfig(ctx, wasmBytes, cfg)
	if mod != nil {
		defer mod.Close(ctx)
	}
	var exitErr *sys.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 0 {
		return nil
	}
	if err != nil {
		return fmt.Errorf("guest %s: %w", name, err)
	}
	return nil
}

// Name returns the guest name.
func (i *Instance) Name() string {
	return i.name
}

// Memory returns the guest's exported memory.
func (i *Instance) Memory() api.Memory {
	return i.module.Memory()
}

// Call invokes an exported guest function.
func (i *Instance) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	f := i.module.ExportedFunction(name)
	if f == nil {
		return nil, fmt.Errorf("export %q not found", name)
	}
	return f.Call(infrawazero.WithGuestName(ctx, i.name), params...)
}

// Close closes the guest module.
func (i *Instance) Close(ctx context.Context) error {
	return i.module.Close(ctx)
}
