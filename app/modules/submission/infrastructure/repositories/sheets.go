package submissiondb

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/clubmint/allowgate/app/modules/tier"
)

// SheetStore implements Store over the remote spreadsheet, one sheet per
// tier. The backing store has no uniqueness constraint; the
// one-row-per-(tier,user) invariant is enforced here by scan-then-write
// under a per-key mutex (see DESIGN.md).
type SheetStore struct {
	api    SheetsAPI
	logger *slog.Logger

	// keyLocks serializes concurrent upserts for the same (tier, user).
	keyLocks sync.Map
}

var _ Store = (*SheetStore)(nil)

// NewSheetStore creates a SheetStore.
func NewSheetStore(api SheetsAPI, logger *slog.Logger) *SheetStore {
	return &SheetStore{api: api, logger: logger}
}

func dataRange(t tier.Tier) string {
	return fmt.Sprintf("%s!A2:D", t.SheetName())
}

func headerRange(t tier.Tier) string {
	return fmt.Sprintf("%s!A1:D1", t.SheetName())
}

func rowRange(t tier.Tier, rowNumber int64) string {
	return fmt.Sprintf("%s!A%d:D%d", t.SheetName(), rowNumber, rowNumber)
}

// EnsureSchema creates any missing tier sheets and rewrites any header row
// that drifted from the expected schema. Safe to call repeatedly and
// concurrently; every step is an overwrite with the desired end state.
func (s *SheetStore) EnsureSchema(ctx context.Context) error {
	titles, err := s.api.SheetTitles(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sheets: %w", err)
	}

	var missing []string
	for _, t := range tier.TiersByPriority {
		if _, ok := titles[t.SheetName()]; !ok {
			missing = append(missing, t.SheetName())
		}
	}
	if len(missing) > 0 {
		s.logger.InfoContext(ctx, "creating missing tier sheets", slog.Any("sheets", missing))
		if err := s.api.AddSheets(ctx, missing); err != nil {
			return fmt.Errorf("failed to create tier sheets: %w", err)
		}
	}

	for _, t := range tier.TiersByPriority {
		rows, err := s.api.GetValues(ctx, headerRange(t))
		if err != nil {
			return fmt.Errorf("failed to read header for %s: %w", t.SheetName(), err)
		}
		if len(rows) > 0 && slices.Equal(rows[0], HeaderRow) {
			continue
		}
		if err := s.api.UpdateValues(ctx, headerRange(t), [][]string{HeaderRow}); err != nil {
			return fmt.Errorf("failed to write header for %s: %w", t.SheetName(), err)
		}
	}
	return nil
}

// Upsert scans only the target tier's sheet for the user's row, updating
// it in place when found and appending otherwise. Stacking across tiers is
// deliberately not checked here; the store allows one row per tier
// regardless of how policy let it be created.
func (s *SheetStore) Upsert(ctx context.Context, t tier.Tier, rec Record) (UpsertOutcome, error) {
	if !t.IsValid() {
		return Skipped, nil
	}

	if err := s.EnsureSchema(ctx); err != nil {
		return "", err
	}

	// Two near-simultaneous submissions by the same user would both take
	// the append branch without this lock, leaving a duplicate row.
	lock := s.lockFor(t, rec.UserID)
	lock.Lock()
	defer lock.Unlock()

	rows, err := s.api.GetValues(ctx, dataRange(t))
	if err != nil {
		return "", fmt.Errorf("failed to scan %s for existing row: %w", t.SheetName(), err)
	}

	for i, row := range rows {
		if len(row) > 1 && row[1] == rec.UserID {
			rowNumber := int64(i) + 2
			if err := s.api.UpdateValues(ctx, rowRange(t, rowNumber), [][]string{rec.row()}); err != nil {
				return "", fmt.Errorf("failed to update row %d in %s: %w", rowNumber, t.SheetName(), err)
			}
			return Updated, nil
		}
	}

	if err := s.api.AppendValues(ctx, dataRange(t), [][]string{rec.row()}); err != nil {
		return "", fmt.Errorf("failed to append row to %s: %w", t.SheetName(), err)
	}
	return Inserted, nil
}

// GetOne scans tiers in priority order and returns the first match. Only
// one record surfaces even when the user has stacked submissions; GetAll
// is the stacking-aware lookup.
func (s *SheetStore) GetOne(ctx context.Context, userID string) (*Record, error) {
	if err := s.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	for _, t := range tier.TiersByPriority {
		rows, err := s.api.GetValues(ctx, dataRange(t))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", t.SheetName(), err)
		}
		for _, row := range rows {
			if len(row) > 1 && row[1] == userID {
				rec := recordFromRow(t, row)
				return &rec, nil
			}
		}
	}
	return nil, ErrRecordNotFound
}

// GetAll returns every record the user holds across all tiers.
func (s *SheetStore) GetAll(ctx context.Context, userID string) ([]Record, error) {
	if err := s.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	var records []Record
	for _, t := range tier.TiersByPriority {
		rows, err := s.api.GetValues(ctx, dataRange(t))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", t.SheetName(), err)
		}
		for _, row := range rows {
			if len(row) > 1 && row[1] == userID {
				records = append(records, recordFromRow(t, row))
			}
		}
	}
	if len(records) == 0 {
		return nil, ErrRecordNotFound
	}
	return records, nil
}

// Statistics aggregates per-tier totals and per-role counts across a full
// scan. Rows with a blank role bucket under "Unknown".
func (s *SheetStore) Statistics(ctx context.Context) (Stats, error) {
	if err := s.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	stats := make(Stats, len(tier.TiersByPriority))
	for _, t := range tier.TiersByPriority {
		rows, err := s.api.GetValues(ctx, dataRange(t))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", t.SheetName(), err)
		}

		tierStats := TierStats{Total: len(rows), ByRole: make(map[string]int)}
		for _, row := range rows {
			if len(row) == 0 {
				continue
			}
			role := "Unknown"
			if len(row) > 2 && row[2] != "" {
				role = row[2]
			}
			tierStats.ByRole[role]++
		}
		stats[t] = tierStats
	}
	return stats, nil
}

// ListRows returns every data row across all tiers with its physical row
// number, skipping blank rows.
func (s *SheetStore) ListRows(ctx context.Context) ([]RowRecord, error) {
	if err := s.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	var out []RowRecord
	for _, t := range tier.TiersByPriority {
		rows, err := s.api.GetValues(ctx, dataRange(t))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", t.SheetName(), err)
		}
		for i, row := range rows {
			if len(row) == 0 {
				continue
			}
			out = append(out, RowRecord{
				Record:    recordFromRow(t, row),
				RowNumber: int64(i) + 2,
			})
		}
	}
	return out, nil
}

// DeleteRow removes one physical row from a tier sheet by 1-based row
// number.
func (s *SheetStore) DeleteRow(ctx context.Context, t tier.Tier, rowNumber int64) error {
	if !t.IsValid() {
		return fmt.Errorf("%w: %q", tier.ErrUnknownTier, t)
	}

	titles, err := s.api.SheetTitles(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sheets: %w", err)
	}
	sheetID, ok := titles[t.SheetName()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSheetMissing, t.SheetName())
	}

	if err := s.api.DeleteRows(ctx, sheetID, rowNumber-1, rowNumber); err != nil {
		return fmt.Errorf("failed to delete row %d from %s: %w", rowNumber, t.SheetName(), err)
	}
	return nil
}

func (s *SheetStore) lockFor(t tier.Tier, userID string) *sync.Mutex {
	key := string(t) + "/" + userID
	actual, _ := s.keyLocks.LoadOrStore(key, &sync.Mutex{})
	return actual.(*sync.Mutex)
}
