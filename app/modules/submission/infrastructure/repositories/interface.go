package submissiondb

import (
	"context"

	"github.com/clubmint/allowgate/app/modules/tier"
)

// Store is the at-most-one-record-per-(tier,user) table the bot persists
// submissions to.
type Store interface {
	// EnsureSchema verifies all tier sheets exist with the expected
	// header row, creating or rewriting as needed. Idempotent; called
	// defensively before every other operation.
	EnsureSchema(ctx context.Context) error

	// Upsert writes rec into its tier's sheet, overwriting the user's
	// existing row if one is found.
	Upsert(ctx context.Context, t tier.Tier, rec Record) (UpsertOutcome, error)

	// GetOne returns the first record for the user across tiers in
	// priority order, or ErrRecordNotFound.
	GetOne(ctx context.Context, userID string) (*Record, error)

	// GetAll returns every record for the user, tier-tagged, or
	// ErrRecordNotFound when there are none.
	GetAll(ctx context.Context, userID string) ([]Record, error)

	// Statistics scans all tiers and aggregates totals and per-role
	// counts.
	Statistics(ctx context.Context) (Stats, error)

	// ListRows returns every row across all tiers with physical row
	// numbers.
	ListRows(ctx context.Context) ([]RowRecord, error)

	// DeleteRow removes one physical row from a tier sheet.
	// Administrative primitive; not part of the user flows.
	DeleteRow(ctx context.Context, t tier.Tier, rowNumber int64) error
}

// SheetsAPI is the transport seam the sheet-backed store needs. Satisfied
// by *sheetsapi.Client and by in-memory fakes in tests.
type SheetsAPI interface {
	SheetTitles(ctx context.Context) (map[string]int64, error)
	AddSheets(ctx context.Context, titles []string) error
	GetValues(ctx context.Context, rng string) ([][]string, error)
	UpdateValues(ctx context.Context, rng string, rows [][]string) error
	AppendValues(ctx context.Context, rng string, rows [][]string) error
	DeleteRows(ctx context.Context, sheetID, start, end int64) error
}
