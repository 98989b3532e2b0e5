package submissionservice

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	submissiondb "github.com/clubmint/allowgate/app/modules/submission/infrastructure/repositories"
	"github.com/clubmint/allowgate/app/modules/tier"
)

const validWallet = "0xABCDEF0123456789abcdef0123456789ABCDEF01"

func TestPrepareSubmission(t *testing.T) {
	tests := []struct {
		name        string
		roles       tier.RoleSet
		target      tier.Tier
		wantAllowed bool
		wantReason  tier.Reason
		wantLink    string
	}{
		{
			name:        "member of the target tier may open the form",
			roles:       tier.NewRoleSet(string(roleGTDOne)),
			target:      tier.TierGTD,
			wantAllowed: true,
		},
		{
			name:        "override role stacks into the lowest tier",
			roles:       tier.NewRoleSet(string(role2GTD), string(roleOverride)),
			target:      tier.TierFCFS,
			wantAllowed: true,
		},
		{
			name:       "no tier role at all",
			roles:      tier.NewRoleSet("999999999999999999"),
			target:     tier.TierFCFS,
			wantReason: tier.ReasonNoRole,
		},
		{
			name:       "higher tier member is redirected to their own channel",
			roles:      tier.NewRoleSet(string(role2GTD)),
			target:     tier.TierGTD,
			wantReason: tier.ReasonHigherTierAvailable,
			wantLink:   link2GTD,
		},
		{
			name:       "lower tier member cannot reach a higher pool",
			roles:      tier.NewRoleSet(string(roleFCFS)),
			target:     tier.Tier2GTD,
			wantReason: tier.ReasonInvalidTier,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _ := newTestService(t)

			result, err := service.PrepareSubmission(context.Background(), "user-1", tt.roles, tt.target)
			require.NoError(t, err)

			if tt.wantAllowed {
				ticket, ok := result.Success.(SubmissionTicket)
				require.True(t, ok, "expected SubmissionTicket, got %T", result.Success)
				require.True(t, ticket.Decision.Allowed)
				require.Nil(t, result.Failure)
				return
			}

			blocked, ok := result.Failure.(SubmitBlocked)
			require.True(t, ok, "expected SubmitBlocked, got %T", result.Failure)
			require.Equal(t, tt.wantReason, blocked.Decision.Reason)
			require.Equal(t, tt.wantLink, blocked.RedirectLink)
			require.Nil(t, result.Success)
		})
	}
}

func TestSubmitWallet_Accepted(t *testing.T) {
	tests := []struct {
		name        string
		roles       tier.RoleSet
		target      tier.Tier
		outcome     submissiondb.UpsertOutcome
		wantStack   bool
		wantPrimary tier.Tier
	}{
		{
			name:    "ordinary grant inserts into the member's own tier",
			roles:   tier.NewRoleSet(string(roleGTDTwo)),
			target:  tier.TierGTD,
			outcome: submissiondb.Inserted,
		},
		{
			name:    "resubmission updates in place",
			roles:   tier.NewRoleSet(string(roleFCFS)),
			target:  tier.TierFCFS,
			outcome: submissiondb.Updated,
		},
		{
			name:        "stacking grant lands in the lowest tier with the primary tier recorded",
			roles:       tier.NewRoleSet(string(role2GTD), string(roleOverride)),
			target:      tier.TierFCFS,
			outcome:     submissiondb.Inserted,
			wantStack:   true,
			wantPrimary: tier.Tier2GTD,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, store := newTestService(t)

			record := submissiondb.Record{
				Username:  "alice",
				UserID:    "user-1",
				RoleLabel: "Gold",
				Wallet:    validWallet,
			}
			store.EXPECT().Upsert(gomock.Any(), tt.target, record).Return(tt.outcome, nil)

			result, err := service.SubmitWallet(context.Background(), SubmitRequest{
				UserID:    "user-1",
				Username:  "alice",
				RoleLabel: "Gold",
				Roles:     tt.roles,
				Target:    tt.target,
				Wallet:    validWallet,
			})
			require.NoError(t, err)

			accepted, ok := result.Success.(SubmitAccepted)
			require.True(t, ok, "expected SubmitAccepted, got %T", result.Success)

			want := SubmitAccepted{
				Tier:        tt.target,
				Outcome:     tt.outcome,
				Stacking:    tt.wantStack,
				PrimaryTier: tt.wantPrimary,
			}
			if !tt.wantStack {
				want.PrimaryTier = tt.target
			}
			if diff := cmp.Diff(want, accepted); diff != "" {
				t.Errorf("SubmitAccepted mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSubmitWallet_PolicyRecheckBlocks(t *testing.T) {
	// Roles changed between the entry button and the modal commit; the
	// fresh check must block and the store must never be touched.
	service, _ := newTestService(t)

	result, err := service.SubmitWallet(context.Background(), SubmitRequest{
		UserID: "user-1",
		Roles:  tier.NewRoleSet(string(role2GTD)),
		Target: tier.TierGTD,
		Wallet: validWallet,
	})
	require.NoError(t, err)

	blocked, ok := result.Failure.(SubmitBlocked)
	require.True(t, ok, "expected SubmitBlocked, got %T", result.Failure)
	require.Equal(t, tier.ReasonHigherTierAvailable, blocked.Decision.Reason)
	require.Equal(t, link2GTD, blocked.RedirectLink)
}

func TestSubmitWallet_RejectsInvalidWallets(t *testing.T) {
	tests := []struct {
		name   string
		wallet string
	}{
		{name: "empty", wallet: ""},
		{name: "missing prefix", wallet: "ABCDEF0123456789abcdef0123456789ABCDEF0123"},
		{name: "non-hex characters", wallet: "0xZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZ"},
		{name: "too short", wallet: "0xABCDEF0123456789abcdef0123456789ABCDEF0"},
		{name: "too long", wallet: validWallet + "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _ := newTestService(t)

			result, err := service.SubmitWallet(context.Background(), SubmitRequest{
				UserID: "user-1",
				Roles:  tier.NewRoleSet(string(roleFCFS)),
				Target: tier.TierFCFS,
				Wallet: tt.wallet,
			})
			require.NoError(t, err)

			rejected, ok := result.Failure.(WalletRejected)
			require.True(t, ok, "expected WalletRejected, got %T", result.Failure)
			require.Equal(t, tt.wallet, rejected.Wallet)
			require.ErrorIs(t, result.Error, ErrInvalidWallet)
		})
	}
}

func TestSubmitWallet_StoreErrors(t *testing.T) {
	t.Run("transport failure is wrapped", func(t *testing.T) {
		service, store := newTestService(t)
		store.EXPECT().Upsert(gomock.Any(), tier.TierFCFS, gomock.Any()).
			Return(submissiondb.UpsertOutcome(""), errors.New("quota exceeded"))

		_, err := service.SubmitWallet(context.Background(), SubmitRequest{
			UserID: "user-1",
			Roles:  tier.NewRoleSet(string(roleFCFS)),
			Target: tier.TierFCFS,
			Wallet: validWallet,
		})
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to persist submission")
	})

	t.Run("skipped outcome surfaces as an error", func(t *testing.T) {
		service, store := newTestService(t)
		store.EXPECT().Upsert(gomock.Any(), tier.TierFCFS, gomock.Any()).
			Return(submissiondb.Skipped, nil)

		_, err := service.SubmitWallet(context.Background(), SubmitRequest{
			UserID: "user-1",
			Roles:  tier.NewRoleSet(string(roleFCFS)),
			Target: tier.TierFCFS,
			Wallet: validWallet,
		})
		require.ErrorIs(t, err, ErrTierNotPersistable)
	})
}
