package submissiondb

import "github.com/clubmint/allowgate/app/modules/tier"

// HeaderRow is the exact first row of every tier sheet. EnsureSchema
// rewrites it whenever it drifts.
var HeaderRow = []string{"Discord Username", "Discord ID", "Role", "EVM Wallet"}

// Record is one wallet submission. UserID is the immutable key within a
// tier; every other field is last-write-wins.
type Record struct {
	Tier      tier.Tier
	Username  string
	UserID    string
	RoleLabel string
	Wallet    string
}

// RowRecord is a Record tagged with its physical 1-based row number, for
// administrative tooling (export, row deletion).
type RowRecord struct {
	Record
	RowNumber int64
}

// TierStats aggregates one tier's submissions.
type TierStats struct {
	Total  int
	ByRole map[string]int
}

// Stats maps every tier to its aggregate. Derived by scanning, never
// stored.
type Stats map[tier.Tier]TierStats

// UpsertOutcome reports what an upsert did.
type UpsertOutcome string

const (
	// Inserted means a new row was appended.
	Inserted UpsertOutcome = "inserted"
	// Updated means an existing row for the same (tier, user) was
	// overwritten in place.
	Updated UpsertOutcome = "updated"
	// Skipped means the tier did not map to a known sheet. Defensive;
	// unreachable through validated callers.
	Skipped UpsertOutcome = "skipped"
)

func (r Record) row() []string {
	return []string{r.Username, r.UserID, r.RoleLabel, r.Wallet}
}

// recordFromRow rebuilds a Record from a sheet row, tolerating rows
// shorter than the schema.
func recordFromRow(t tier.Tier, row []string) Record {
	cell := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}
	return Record{
		Tier:      t,
		Username:  cell(0),
		UserID:    cell(1),
		RoleLabel: cell(2),
		Wallet:    cell(3),
	}
}
