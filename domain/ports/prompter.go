package ports

import "github.com/reglet-dev/reglet-oscall/domain/entities"

// Prompter handles interactive authorization of denied binds.
type Prompter interface {
	// IsInteractive returns true if running in an interactive terminal.
	IsInteractive() bool

	// PromptForNative asks the user to allow a bind the grants deny.
	// Returns: granted (allow for this run), always (persist to store), error.
	PromptForNative(guest string, req entities.NativeRequest) (granted bool, always bool, err error)

	// FormatNonInteractiveError creates a helpful error for non-interactive mode.
	FormatNonInteractiveError(guest string, req entities.NativeRequest) error
}
