// Command oscall-run runs a wasm guest with the native-call bridge attached.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"

	"github.com/reglet-dev/reglet-oscall/application/schema"
	"github.com/reglet-dev/reglet-oscall/domain/entities"
	"github.com/reglet-dev/reglet-oscall/host"
	grant_store "github.com/reglet-dev/reglet-oscall/infrastructure/grantstore"
	"github.com/reglet-dev/reglet-oscall/infrastructure/prompter"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, exit, err := Parse(args, stderr)
	if exit {
		return 0
	}
	if err != nil {
		var ee *ExitError
		if errors.As(err, &ee) {
			return ee.Code
		}
		return 1
	}

	if opts.Schema {
		out, err := schema.BridgeConfigSchema()
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, string(out))
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := execute(ctx, opts, stdin, stdout, stderr); err != nil {
		var exitErr *sys.ExitError
		if errors.As(err, &exitErr) {
			return int(exitErr.ExitCode())
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func loadConfig(opts *Options) (*entities.BridgeConfig, error) {
	loader, err := host.NewConfigLoader()
	if err != nil {
		return nil, err
	}
	var cfg *entities.BridgeConfig
	if opts.ConfigPath != "" {
		cfg, err = loader.LoadFile(opts.ConfigPath)
	} else {
		cfg, err = loader.Load(nil)
	}
	if err != nil {
		return nil, err
	}

	if opts.ModuleName != "" {
		cfg.ModuleName = opts.ModuleName
	}
	if opts.GrantsFile != "" {
		cfg.GrantsFile = opts.GrantsFile
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if len(opts.Allow) > 0 && !opts.Save {
		if cfg.Grants == nil {
			cfg.Grants = &entities.GrantSet{}
		}
		cfg.Grants.Merge(&entities.GrantSet{Native: &entities.NativeCapability{Rules: opts.Allow}})
	}
	return cfg, nil
}

func newLogger(level, format string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if format == "json" {
		cfg = zap.NewProductionConfig()
	}
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = lvl
	}
	return cfg.Build()
}

func execute(ctx context.Context, opts *Options, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel, opts.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()

	wasmBytes, err := os.ReadFile(opts.WasmPath)
	if err != nil {
		return fmt.Errorf("read guest: %w", err)
	}

	execOpts := []host.Option{
		host.WithConfig(*cfg),
		host.WithLogger(logger),
		host.WithStdio(stdin, stdout, stderr),
	}
	if opts.Prompt {
		execOpts = append(execOpts, host.WithPrompter(prompter.NewCliPrompter(stdin, stderr)))
	}
	if opts.Save || opts.Prompt {
		execOpts = append(execOpts, host.WithGrantStore(grant_store.NewFileStore(
			grant_store.WithPath(cfg.GrantsFile),
			grant_store.WithLogger(logger),
		)))
	}

	e, err := host.NewExecutor(ctx, execOpts...)
	if err != nil {
		return err
	}
	defer e.Close(ctx)

	if opts.Save && len(opts.Allow) > 0 {
		if err := e.PersistGrants(&entities.GrantSet{Native: &entities.NativeCapability{Rules: opts.Allow}}); err != nil {
			return err
		}
	}

	name := strings.TrimSuffix(filepath.Base(opts.WasmPath), filepath.Ext(opts.WasmPath))
	if opts.Invoke == "" {
		return e.Run(ctx, name, wasmBytes, opts.Args...)
	}

	inst, err := e.Instantiate(ctx, name, wasmBytes)
	if err != nil {
		return err
	}
	defer inst.Close(ctx)

	results, err := inst.Call(ctx, opts.Invoke)
	if err != nil {
		return fmt.Errorf("call %s: %w", opts.Invoke, err)
	}
	for _, r := range results {
		fmt.Fprintln(stdout, r)
	}
	return nil
}
