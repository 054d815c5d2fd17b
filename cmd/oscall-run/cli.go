package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/reglet-dev/reglet-oscall/domain/entities"
)

// ExitError carries the process exit code of a failed run.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// Options are the parsed command line.
type Options struct {
	WasmPath   string
	ConfigPath string
	ModuleName string
	GrantsFile string
	Invoke     string
	LogLevel   string
	LogFormat  string
	Args       []string
	Allow      []entities.NativeRule
	Save       bool
	Prompt     bool
	Schema     bool
}

// allowList collects repeated -allow flags of the form
// "module[:symbol,symbol...]".
type allowList []entities.NativeRule

func (a *allowList) String() string {
	parts := make([]string, 0, len(*a))
	for _, r := range *a {
		parts = append(parts, strings.Join(r.Modules, "|")+":"+strings.Join(r.Symbols, ","))
	}
	return strings.Join(parts, " ")
}

func (a *allowList) Set(v string) error {
	module, symbols, _ := strings.Cut(v, ":")
	if module == "" {
		return fmt.Errorf("missing module in %q", v)
	}
	rule := entities.NativeRule{Modules: []string{module}}
	if symbols != "" {
		for _, s := range strings.Split(symbols, ",") {
			if s = strings.TrimSpace(s); s != "" {
				rule.Symbols = append(rule.Symbols, s)
			}
		}
	}
	*a = append(*a, rule)
	return nil
}

// Parse processes command-line arguments. It returns the options, whether
// the program should exit cleanly, or an *ExitError.
func Parse(args []string, output io.Writer) (*Options, bool, error) {
	fs := flag.NewFlagSet("oscall-run", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprint(output, `
oscall-run - run a wasm guest with native calls bridged to the host.

Usage:
  oscall-run [options] GUEST.wasm [guest args...]

Options:
`)
		fs.PrintDefaults()
	}

	var allow allowList
	opts := &Options{}
	fs.StringVar(&opts.ConfigPath, "config", "", "Path to a YAML bridge config.")
	fs.StringVar(&opts.ModuleName, "module-name", "", "Host module name guests import the bridge from.")
	fs.StringVar(&opts.GrantsFile, "grants", "", "Path to a YAML grants file.")
	fs.StringVar(&opts.Invoke, "invoke", "", "Call this export of a reactor guest instead of running _start.")
	fs.StringVar(&opts.LogLevel, "log-level", "", "Logging level: debug, info, warn, error.")
	fs.StringVar(&opts.LogFormat, "log-format", "console", "Log output format: console or json.")
	fs.Var(&allow, "allow", "Grant module[:symbol,...]; repeatable. Any grant restricts the guest to granted functions.")
	fs.BoolVar(&opts.Save, "save", false, "Persist -allow grants to the grants file.")
	fs.BoolVar(&opts.Prompt, "prompt", false, "Ask on stdin before allowing binds that are not granted.")
	fs.BoolVar(&opts.Schema, "schema", false, "Print the config JSON schema and exit.")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	opts.Allow = allow

	if opts.LogFormat != "console" && opts.LogFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("invalid -log-format %q", opts.LogFormat)}
	}
	if opts.Schema {
		return opts, false, nil
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return nil, true, nil
	}
	opts.WasmPath = fs.Arg(0)
	opts.Args = fs.Args()[1:]
	return opts, false, nil
}
