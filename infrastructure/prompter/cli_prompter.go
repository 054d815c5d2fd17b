package prompter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/reglet-dev/reglet-oscall/domain/entities"
	"github.com/reglet-dev/reglet-oscall/domain/ports"
)

var _ ports.Prompter = (*CliPrompter)(nil)

// CliPrompter implements ports.Prompter for CLI environments.
// Prompts are serialized; concurrent guests wait their turn.
type CliPrompter struct {
	in    io.Reader
	out   io.Writer
	lines *bufio.Reader
	mu    sync.Mutex
}

// NewCliPrompter creates a new CliPrompter.
func NewCliPrompter(in io.Reader, out io.Writer) *CliPrompter {
	p := &CliPrompter{in: in, out: out}
	if in != nil {
		p.lines = bufio.NewReader(in)
	}
	return p
}

// IsInteractive checks if the input is a terminal.
func (p *CliPrompter) IsInteractive() bool {
	if f, ok := p.in.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil {
			return false
		}
		return (stat.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// PromptForNative asks the user to allow a single bind.
func (p *CliPrompter) PromptForNative(guest string, req entities.NativeRequest) (granted bool, always bool, err error) {
	if p.lines == nil {
		return false, false, io.EOF
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if guest == "" {
		guest = "guest"
	}
	_, _ = fmt.Fprintf(p.out, "%s wants to call native %s\n", guest, describe(req))
	_, _ = fmt.Fprintf(p.out, "Allow? [y/n/always]: ")

	line, err := p.lines.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return false, false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, false, nil
	case "a", "always":
		return true, true, nil
	default:
		return false, false, nil
	}
}

// FormatNonInteractiveError creates an error naming the grant to add.
func (p *CliPrompter) FormatNonInteractiveError(guest string, req entities.NativeRequest) error {
	if guest == "" {
		return fmt.Errorf("native %s is not granted; add it to the grants file or pass -allow", describe(req))
	}
	return fmt.Errorf("guest %s: native %s is not granted; add it to the grants file or pass -allow", guest, describe(req))
}

func describe(req entities.NativeRequest) string {
	if req.Symbol == "" {
		return fmt.Sprintf("%s!#%d", req.Module, req.Ordinal)
	}
	return req.Module + "!" + req.Symbol
}
