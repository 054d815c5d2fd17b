package hostfuncs

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/reglet-dev/reglet-oscall/domain/entities"
	domainerrors "github.com/reglet-dev/reglet-oscall/domain/errors"
	"github.com/reglet-dev/reglet-oscall/domain/policy"
	"github.com/reglet-dev/reglet-oscall/domain/ports"
)

// BindGuard decides whether a guest may bind a native function.
// A non-nil error denies the bind; the guest sees a resolution failure.
type BindGuard interface {
	CheckBind(ctx context.Context, req entities.NativeRequest) error
}

var _ BindGuard = (*CapabilityChecker)(nil)

// CapabilityChecker checks bind requests against the native grants of the
// calling guest. Guests are identified by WithGuestName; a guest with no
// entry of its own falls back to the default grants.
type CapabilityChecker struct {
	policy   ports.Policy
	defaults *entities.GrantSet
	grants   map[string]*entities.GrantSet
	mu       sync.RWMutex
}

// CapabilityCheckerOption configures a CapabilityChecker.
type CapabilityCheckerOption func(*CapabilityChecker)

// WithCapabilityPolicy replaces the default glob policy.
func WithCapabilityPolicy(p ports.Policy) CapabilityCheckerOption {
	return func(c *CapabilityChecker) {
		if p != nil {
			c.policy = p
		}
	}
}

// WithDefaultGrants sets the grants used for guests without an entry.
func WithDefaultGrants(g *entities.GrantSet) CapabilityCheckerOption {
	return func(c *CapabilityChecker) {
		c.defaults = g
	}
}

// NewCapabilityChecker creates a checker over per-guest grants.
func NewCapabilityChecker(grants map[string]*entities.GrantSet, opts ...CapabilityCheckerOption) *CapabilityChecker {
	c := &CapabilityChecker{
		policy: policy.NewPolicy(),
		grants: make(map[string]*entities.GrantSet, len(grants)),
	}
	for name, g := range grants {
		c.grants[name] = g
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Grant replaces the grants of one guest.
func (c *CapabilityChecker) Grant(guest string, g *entities.GrantSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.grants[guest] = g
}

// Revoke removes the grants of one guest.
func (c *CapabilityChecker) Revoke(guest string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.grants, guest)
}

// MergeDefaults adds g to the grants used for guests without an entry.
func (c *CapabilityChecker) MergeDefaults(g *entities.GrantSet) {
	if g.IsEmpty() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	merged := c.defaults.Clone()
	if merged == nil {
		merged = &entities.GrantSet{}
	}
	merged.Merge(g)
	c.defaults = merged
}

// Extend adds g to whatever grants currently apply to guest: its own entry
// when it has one, the defaults otherwise.
func (c *CapabilityChecker) Extend(guest string, g *entities.GrantSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if own, ok := c.grants[guest]; ok {
		merged := own.Clone()
		if merged == nil {
			merged = &entities.GrantSet{}
		}
		merged.Merge(g)
		c.grants[guest] = merged
		return
	}
	merged := c.defaults.Clone()
	if merged == nil {
		merged = &entities.GrantSet{}
	}
	merged.Merge(g)
	c.defaults = merged
}

func (c *CapabilityChecker) grantsFor(guest string) *entities.GrantSet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if g, ok := c.grants[guest]; ok {
		return g
	}
	return c.defaults
}

// CheckBind implements BindGuard.
func (c *CapabilityChecker) CheckBind(ctx context.Context, req entities.NativeRequest) error {
	guest, _ := GuestNameFromContext(ctx)
	grants := c.grantsFor(guest)
	if grants.IsEmpty() {
		if guest == "" {
			return fmt.Errorf("no native capabilities granted")
		}
		return fmt.Errorf("no native capabilities granted to guest %s", guest)
	}
	if c.policy.CheckNative(req, grants) {
		return nil
	}
	return &domainerrors.CapabilityError{Required: "native:" + req.Module, Pattern: requestSymbol(req)}
}

func requestSymbol(req entities.NativeRequest) string {
	if req.Symbol != "" {
		return req.Symbol
	}
	return "#" + strconv.Itoa(int(req.Ordinal))
}
