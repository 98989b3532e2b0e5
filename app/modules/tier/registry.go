package tier

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTier indicates a tier with no registered configuration.
	ErrUnknownTier = errors.New("unknown tier")

	// ErrDuplicateTier indicates the same tier was configured twice.
	ErrDuplicateTier = errors.New("tier configured twice")
)

// Config holds the immutable per-tier configuration: the roles that confer
// membership, the slash command that posts the tier's entry point, and the
// channel a misrouted user should be redirected to.
type Config struct {
	Tier        Tier
	RoleIDs     []RoleID
	CommandName string
	ChannelLink string
}

// Registry is the immutable tier→role mapping plus the single override
// role. It is built once at process start and never mutated afterwards.
type Registry struct {
	configs      map[Tier]Config
	overrideRole RoleID
}

// NewRegistry validates the per-tier configs and builds a Registry. Every
// tier must be configured exactly once.
func NewRegistry(configs []Config, overrideRole RoleID) (*Registry, error) {
	byTier := make(map[Tier]Config, len(configs))
	for _, cfg := range configs {
		if !cfg.Tier.IsValid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTier, cfg.Tier)
		}
		if _, exists := byTier[cfg.Tier]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTier, cfg.Tier)
		}
		byTier[cfg.Tier] = cfg
	}
	for _, t := range TiersByPriority {
		if _, ok := byTier[t]; !ok {
			return nil, fmt.Errorf("missing configuration for tier %q", t)
		}
	}
	return &Registry{configs: byTier, overrideRole: overrideRole}, nil
}

// Config returns the configuration for a tier.
func (r *Registry) Config(t Tier) (Config, bool) {
	cfg, ok := r.configs[t]
	return cfg, ok
}

// ByCommand returns the tier configuration whose setup command matches name.
func (r *Registry) ByCommand(name string) (Config, bool) {
	for _, t := range TiersByPriority {
		if cfg := r.configs[t]; cfg.CommandName == name {
			return cfg, true
		}
	}
	return Config{}, false
}

// OverrideRole returns the role that grants stacking rights into the
// lowest tier.
func (r *Registry) OverrideRole() RoleID {
	return r.overrideRole
}

// MatchingRole returns the first role in t's configured role list that the
// member holds. Callers use it to resolve the display label recorded with a
// submission.
func (r *Registry) MatchingRole(roles RoleSet, t Tier) (RoleID, bool) {
	cfg, ok := r.configs[t]
	if !ok {
		return "", false
	}
	for _, id := range cfg.RoleIDs {
		if roles.Contains(id) {
			return id, true
		}
	}
	return "", false
}
