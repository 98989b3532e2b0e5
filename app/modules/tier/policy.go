package tier

// Reason classifies why a submission was rejected.
type Reason string

const (
	// ReasonNoRole means the member holds no role from any tier.
	ReasonNoRole Reason = "no_role"
	// ReasonHigherTierAvailable means the member's highest tier outranks
	// the target and they must submit in their own tier's channel instead.
	ReasonHigherTierAvailable Reason = "higher_tier_available"
	// ReasonInvalidTier means the target outranks the member's highest
	// tier. Unreachable through the posted entry points.
	ReasonInvalidTier Reason = "invalid_tier"
)

// Decision is the outcome of a policy evaluation. UserTier is set whenever
// the member matched any tier, including on rejections so the caller can
// redirect them. Stacking marks the override-role grant into the lowest
// tier; LabelTier is the tier whose role list should be used to resolve the
// member's display label (the primary tier for stacking grants, the target
// otherwise).
type Decision struct {
	Allowed   bool
	Reason    Reason
	UserTier  Tier
	LabelTier Tier
	Stacking  bool
}

// HighestTier scans tiers from highest to lowest priority and returns the
// first whose role set intersects the member's roles. A member matching
// several tiers is assigned only the highest.
func (r *Registry) HighestTier(roles RoleSet) (Tier, bool) {
	for _, t := range TiersByPriority {
		if _, ok := r.MatchingRole(roles, t); ok {
			return t, true
		}
	}
	return "", false
}

// CanSubmit evaluates whether a member with the given roles may submit to
// the target tier. Eligibility can change between the entry button and the
// final commit, so callers re-run this at every decision point.
func (r *Registry) CanSubmit(roles RoleSet, target Tier) Decision {
	userTier, ok := r.HighestTier(roles)
	if !ok {
		return Decision{Reason: ReasonNoRole}
	}

	switch {
	case userTier.Priority() < target.Priority():
		// The override role lets privileged members participate in the
		// open lowest-tier pool in addition to their reserved tier. It
		// never unlocks any other tier pair.
		if target.Lowest() && roles.Contains(r.overrideRole) {
			return Decision{
				Allowed:   true,
				UserTier:  userTier,
				LabelTier: userTier,
				Stacking:  true,
			}
		}
		return Decision{Reason: ReasonHigherTierAvailable, UserTier: userTier}

	case userTier == target:
		return Decision{Allowed: true, UserTier: userTier, LabelTier: target}

	default:
		return Decision{Reason: ReasonInvalidTier, UserTier: userTier}
	}
}
