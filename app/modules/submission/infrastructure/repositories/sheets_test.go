package submissiondb

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubmint/allowgate/app/modules/tier"
)

func newTestStore(t *testing.T) (*SheetStore, *fakeSheetsAPI) {
	t.Helper()
	api := newFakeSheetsAPI()
	return NewSheetStore(api, slog.New(slog.DiscardHandler)), api
}

func testRecord(userID string) Record {
	return Record{
		Username:  gofakeit.Username(),
		UserID:    userID,
		RoleLabel: "OG Mint",
		Wallet:    gofakeit.Regex(`0x[0-9a-f]{40}`),
	}
}

func TestSheetStore_EnsureSchema_CreatesSheetsAndHeaders(t *testing.T) {
	store, api := newTestStore(t)

	require.NoError(t, store.EnsureSchema(context.Background()))

	for _, name := range []string{"2GTD", "1GTD", "FCFS"} {
		grid, ok := api.sheets[name]
		require.True(t, ok, "sheet %s not created", name)
		require.NotEmpty(t, grid)
		assert.Equal(t, HeaderRow, grid[0])
	}
}

func TestSheetStore_EnsureSchema_HealsDriftedHeader(t *testing.T) {
	store, api := newTestStore(t)
	api.addSheet("2GTD")
	api.addSheet("1GTD")
	api.addSheet("FCFS")
	api.sheets["1GTD"] = [][]string{{"Username", "ID"}}

	require.NoError(t, store.EnsureSchema(context.Background()))

	assert.Equal(t, HeaderRow, api.sheets["1GTD"][0])
}

func TestSheetStore_EnsureSchema_Idempotent(t *testing.T) {
	store, api := newTestStore(t)

	require.NoError(t, store.EnsureSchema(context.Background()))
	updates := api.updateCalls

	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.Equal(t, updates, api.updateCalls, "intact headers must not be rewritten")
}

func TestSheetStore_Upsert_InsertThenUpdate(t *testing.T) {
	store, api := newTestStore(t)
	ctx := context.Background()

	rec := testRecord("user-1")
	outcome, err := store.Upsert(ctx, tier.TierGTD, rec)
	require.NoError(t, err)
	require.Equal(t, Inserted, outcome)

	// Same key again with a different wallet: exactly one row, second
	// call's values, reported as updated.
	rec.Wallet = "0xABCDEF0123456789abcdef0123456789ABCDEF01"
	outcome, err = store.Upsert(ctx, tier.TierGTD, rec)
	require.NoError(t, err)
	require.Equal(t, Updated, outcome)

	grid := api.sheets["1GTD"]
	require.Len(t, grid, 2, "header plus exactly one data row")
	assert.Equal(t, rec.row(), grid[1])
}

func TestSheetStore_Upsert_DistinctUsersGetDistinctRows(t *testing.T) {
	store, api := newTestStore(t)
	ctx := context.Background()

	_, err := store.Upsert(ctx, tier.TierFCFS, testRecord("user-1"))
	require.NoError(t, err)
	_, err = store.Upsert(ctx, tier.TierFCFS, testRecord("user-2"))
	require.NoError(t, err)

	require.Len(t, api.sheets["FCFS"], 3)
}

func TestSheetStore_Upsert_SameUserAcrossTiers(t *testing.T) {
	store, api := newTestStore(t)
	ctx := context.Background()

	// Stacking writes rows in two sheets; the store does not police how
	// policy allowed them.
	_, err := store.Upsert(ctx, tier.Tier2GTD, testRecord("user-1"))
	require.NoError(t, err)
	_, err = store.Upsert(ctx, tier.TierFCFS, testRecord("user-1"))
	require.NoError(t, err)

	assert.Len(t, api.sheets["2GTD"], 2)
	assert.Len(t, api.sheets["FCFS"], 2)
}

func TestSheetStore_Upsert_UnknownTierSkips(t *testing.T) {
	store, api := newTestStore(t)

	outcome, err := store.Upsert(context.Background(), tier.Tier("VIP"), testRecord("user-1"))
	require.NoError(t, err)
	assert.Equal(t, Skipped, outcome)
	assert.Empty(t, api.sheets, "skipped upsert must not touch the store")
}

func TestSheetStore_Upsert_ConcurrentSameKey(t *testing.T) {
	store, api := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureSchema(ctx))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Upsert(ctx, tier.TierGTD, testRecord("user-1"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Len(t, api.sheets["1GTD"], 2, "per-key lock must prevent duplicate rows")
}

func TestSheetStore_GetOne_PriorityScanOrder(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	fcfs := testRecord("user-1")
	_, err := store.Upsert(ctx, tier.TierFCFS, fcfs)
	require.NoError(t, err)
	gtd := testRecord("user-1")
	_, err = store.Upsert(ctx, tier.TierGTD, gtd)
	require.NoError(t, err)

	got, err := store.GetOne(ctx, "user-1")
	require.NoError(t, err)
	want := gtd
	want.Tier = tier.TierGTD
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("GetOne() mismatch (-want +got):\n%s", diff)
	}
}

func TestSheetStore_GetOne_NotFound(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.GetOne(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestSheetStore_GetAll_ReflectsStacking(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Upsert(ctx, tier.Tier2GTD, testRecord("user-1"))
	require.NoError(t, err)
	_, err = store.Upsert(ctx, tier.TierFCFS, testRecord("user-1"))
	require.NoError(t, err)
	_, err = store.Upsert(ctx, tier.TierFCFS, testRecord("user-2"))
	require.NoError(t, err)

	records, err := store.GetAll(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, tier.Tier2GTD, records[0].Tier)
	assert.Equal(t, tier.TierFCFS, records[1].Tier)
}

func TestSheetStore_GetAll_NotFound(t *testing.T) {
	store, _ := newTestStore(t)

	records, err := store.GetAll(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrRecordNotFound)
	assert.Nil(t, records)
}

func TestSheetStore_Statistics(t *testing.T) {
	store, api := newTestStore(t)
	ctx := context.Background()

	recA := testRecord("user-1")
	recA.RoleLabel = "OG Mint"
	_, err := store.Upsert(ctx, tier.TierGTD, recA)
	require.NoError(t, err)

	recB := testRecord("user-2")
	recB.RoleLabel = "OG Mint"
	_, err = store.Upsert(ctx, tier.TierGTD, recB)
	require.NoError(t, err)

	// Row with a blank role, written around the store.
	api.sheets["FCFS"] = append(api.sheets["FCFS"], []string{"legacy", "user-3"})

	stats, err := store.Statistics(ctx)
	require.NoError(t, err)

	assert.Equal(t, TierStats{Total: 2, ByRole: map[string]int{"OG Mint": 2}}, stats[tier.TierGTD])
	assert.Equal(t, TierStats{Total: 1, ByRole: map[string]int{"Unknown": 1}}, stats[tier.TierFCFS])
	assert.Equal(t, TierStats{Total: 0, ByRole: map[string]int{}}, stats[tier.Tier2GTD])
}

func TestSheetStore_ListRows(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Upsert(ctx, tier.Tier2GTD, testRecord("user-1"))
	require.NoError(t, err)
	_, err = store.Upsert(ctx, tier.Tier2GTD, testRecord("user-2"))
	require.NoError(t, err)

	rows, err := store.ListRows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(2), rows[0].RowNumber)
	assert.Equal(t, int64(3), rows[1].RowNumber)
	assert.Equal(t, tier.Tier2GTD, rows[0].Tier)
}

func TestSheetStore_DeleteRow(t *testing.T) {
	store, api := newTestStore(t)
	ctx := context.Background()

	_, err := store.Upsert(ctx, tier.TierFCFS, testRecord("user-1"))
	require.NoError(t, err)
	_, err = store.Upsert(ctx, tier.TierFCFS, testRecord("user-2"))
	require.NoError(t, err)

	require.NoError(t, store.DeleteRow(ctx, tier.TierFCFS, 2))

	grid := api.sheets["FCFS"]
	require.Len(t, grid, 2)
	assert.Equal(t, "user-2", grid[1][1], "remaining row shifts up")

	require.ErrorIs(t, store.DeleteRow(ctx, tier.Tier("VIP"), 2), tier.ErrUnknownTier)
}

func TestSheetStore_PropagatesTransportErrors(t *testing.T) {
	store, api := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureSchema(ctx))

	transportErr := errors.New("googleapi: Error 401: unauthorized")
	api.failOnce("get", transportErr)

	_, err := store.Upsert(ctx, tier.TierGTD, testRecord("user-1"))
	require.ErrorIs(t, err, transportErr)
}
