package wazero

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/reglet-dev/reglet-oscall/domain/entities"
	"github.com/reglet-dev/reglet-oscall/domain/ports"
	"github.com/reglet-dev/reglet-oscall/hostfuncs"
)

var _ hostfuncs.BindGuard = (*PromptingGuard)(nil)

// PromptingGuard asks the user about binds the checker denies. An approved
// bind is added to the checker for the rest of the run; "always" also saves
// it to the grant store.
type PromptingGuard struct {
	checker  *hostfuncs.CapabilityChecker
	prompter ports.Prompter
	store    ports.GrantStore
	logger   *zap.Logger
}

// NewPromptingGuard wraps checker. store may be nil, in which case "always"
// answers last only for this run.
func NewPromptingGuard(checker *hostfuncs.CapabilityChecker, prompter ports.Prompter, store ports.GrantStore, logger *zap.Logger) *PromptingGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromptingGuard{checker: checker, prompter: prompter, store: store, logger: logger}
}

// CheckBind implements hostfuncs.BindGuard.
func (g *PromptingGuard) CheckBind(ctx context.Context, req entities.NativeRequest) error {
	denied := g.checker.CheckBind(ctx, req)
	if denied == nil {
		return nil
	}

	guest, _ := hostfuncs.GuestNameFromContext(ctx)
	if !g.prompter.IsInteractive() {
		return fmt.Errorf("%w: %w", denied, g.prompter.FormatNonInteractiveError(guest, req))
	}

	granted, always, err := g.prompter.PromptForNative(guest, req)
	if err != nil {
		return fmt.Errorf("prompt: %w", err)
	}
	if !granted {
		return denied
	}

	grant := requestGrant(req)
	g.checker.Extend(guest, grant)
	g.logger.Info("native bind approved interactively",
		zap.String("guest", guest),
		zap.String("module", req.Module),
		zap.String("symbol", requestName(req)),
		zap.Bool("persist", always))

	if always && g.store != nil {
		if err := persistGrant(g.store, grant); err != nil {
			g.logger.Warn("failed to persist grant", zap.String("path", g.store.ConfigPath()), zap.Error(err))
		}
	}
	return nil
}

// requestGrant builds the narrowest grant that allows req.
func requestGrant(req entities.NativeRequest) *entities.GrantSet {
	return &entities.GrantSet{Native: &entities.NativeCapability{Rules: []entities.NativeRule{{
		Modules: []string{req.Module},
		Symbols: []string{requestName(req)},
	}}}}
}

func requestName(req entities.NativeRequest) string {
	if req.Symbol != "" {
		return req.Symbol
	}
	return fmt.Sprintf("#%d", req.Ordinal)
}

func persistGrant(store ports.GrantStore, grant *entities.GrantSet) error {
	current, err := store.Load()
	if err != nil {
		return err
	}
	if current == nil {
		current = &entities.GrantSet{}
	}
	if grant.Difference(current).IsEmpty() {
		return nil
	}
	current.Merge(grant)
	return store.Save(current)
}
