package tier

// Tier identifies one of the three ordered allocation tiers.
type Tier string

const (
	// Tier2GTD is the highest tier (2 guaranteed allocations).
	Tier2GTD Tier = "2GTD"
	// TierGTD is the middle tier (1 guaranteed allocation).
	TierGTD Tier = "GTD"
	// TierFCFS is the lowest, first-come-first-served tier.
	TierFCFS Tier = "FCFS"
)

// TiersByPriority lists all tiers from highest to lowest priority. Scan
// order everywhere in the codebase (policy, store lookups, statistics)
// follows this slice.
var TiersByPriority = []Tier{Tier2GTD, TierGTD, TierFCFS}

// IsValid reports whether t is one of the known tiers.
func (t Tier) IsValid() bool {
	switch t {
	case Tier2GTD, TierGTD, TierFCFS:
		return true
	}
	return false
}

// Priority returns the tier's rank; lower is higher priority.
func (t Tier) Priority() int {
	switch t {
	case Tier2GTD:
		return 1
	case TierGTD:
		return 2
	case TierFCFS:
		return 3
	}
	return 0
}

// SheetName returns the worksheet title the tier persists under. The GTD
// tier stores under the short label "1GTD"; the mapping is part of the
// persisted layout and must not change.
func (t Tier) SheetName() string {
	switch t {
	case Tier2GTD:
		return "2GTD"
	case TierGTD:
		return "1GTD"
	case TierFCFS:
		return "FCFS"
	}
	return ""
}

// Lowest reports whether t is the lowest-priority tier, the only valid
// stacking target.
func (t Tier) Lowest() bool {
	return t == TierFCFS
}

// RoleID is a Discord role snowflake.
type RoleID string

// RoleSet is the set of role IDs a member holds at one decision point. It
// is derived fresh per interaction and never cached across them.
type RoleSet map[RoleID]struct{}

// NewRoleSet builds a RoleSet from raw snowflakes.
func NewRoleSet(ids ...string) RoleSet {
	set := make(RoleSet, len(ids))
	for _, id := range ids {
		set[RoleID(id)] = struct{}{}
	}
	return set
}

// Contains reports whether the set holds the given role.
func (rs RoleSet) Contains(id RoleID) bool {
	_, ok := rs[id]
	return ok
}
