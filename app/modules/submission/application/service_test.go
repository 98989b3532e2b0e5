package submissionservice

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/mock/gomock"

	"github.com/clubmint/allowgate/app/modules/submission/infrastructure/repositories/mocks"
	"github.com/clubmint/allowgate/app/modules/tier"
	"github.com/clubmint/allowgate/internal/observability"
)

const (
	role2GTD     = tier.RoleID("1334873841780002937")
	roleGTDOne   = tier.RoleID("1334873106854187008")
	roleGTDTwo   = tier.RoleID("1360990505021870144")
	roleFCFS     = tier.RoleID("1334873797085626398")
	roleOverride = tier.RoleID("1412995630181118010")

	link2GTD = "https://discord.com/channels/1282268775709802568/1437876379982237766"
	linkGTD  = "https://discord.com/channels/1282268775709802568/1437876707502592143"
	linkFCFS = "https://discord.com/channels/1282268775709802568/1437876834476884100"
)

func testRegistry(t *testing.T) *tier.Registry {
	t.Helper()
	registry, err := tier.NewRegistry([]tier.Config{
		{Tier: tier.Tier2GTD, RoleIDs: []tier.RoleID{role2GTD}, CommandName: "setup-2gtd", ChannelLink: link2GTD},
		{Tier: tier.TierGTD, RoleIDs: []tier.RoleID{roleGTDOne, roleGTDTwo}, CommandName: "setup-gtd", ChannelLink: linkGTD},
		{Tier: tier.TierFCFS, RoleIDs: []tier.RoleID{roleFCFS}, CommandName: "setup-fcfs", ChannelLink: linkFCFS},
	}, roleOverride)
	require.NoError(t, err)
	return registry
}

func newTestService(t *testing.T) (*SubmissionService, *mocks.MockStore) {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	service := NewSubmissionService(
		store,
		testRegistry(t),
		slog.New(slog.DiscardHandler),
		observability.NoOpMetrics{},
		noop.NewTracerProvider().Tracer("test"),
	)
	return service, store
}

func Test_withTelemetry(t *testing.T) {
	tests := []struct {
		name          string
		op            operationFunc
		wantErr       bool
		errContains   string
		wantSuccess   bool
		wantZeroValue bool
	}{
		{
			name: "passes through a success result",
			op: func(ctx context.Context) (OperationResult, error) {
				return OperationResult{Success: "ok"}, nil
			},
			wantSuccess: true,
		},
		{
			name: "wraps errors with the operation name",
			op: func(ctx context.Context) (OperationResult, error) {
				return OperationResult{}, errors.New("store unreachable")
			},
			wantErr:     true,
			errContains: "TestOp: store unreachable",
		},
		{
			name: "recovers from panics",
			op: func(ctx context.Context) (OperationResult, error) {
				panic("boom")
			},
			wantErr:       true,
			errContains:   "panic in TestOp: boom",
			wantZeroValue: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _ := newTestService(t)

			result, err := service.withTelemetry(context.Background(), "TestOp", "user-1", tt.op)

			if tt.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), tt.errContains)
			} else {
				require.NoError(t, err)
			}
			if tt.wantSuccess {
				require.Equal(t, "ok", result.Success)
			}
			if tt.wantZeroValue {
				require.Equal(t, OperationResult{}, result)
			}
		})
	}
}
