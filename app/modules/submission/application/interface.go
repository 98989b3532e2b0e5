package submissionservice

import (
	"context"

	submissiondb "github.com/clubmint/allowgate/app/modules/submission/infrastructure/repositories"
	"github.com/clubmint/allowgate/app/modules/tier"
)

// Service is the application surface the gateway drives. Every method
// returns an OperationResult whose Success/Failure payloads the gateway
// renders; non-nil errors are transport-level and render as a generic
// retry message.
type Service interface {
	// PrepareSubmission runs the entry-point policy check. Success:
	// SubmissionTicket. Failure: SubmitBlocked.
	PrepareSubmission(ctx context.Context, userID string, roles tier.RoleSet, target tier.Tier) (OperationResult, error)

	// SubmitWallet re-evaluates policy against fresh roles, validates
	// the wallet and upserts. Success: SubmitAccepted. Failure:
	// SubmitBlocked or WalletRejected.
	SubmitWallet(ctx context.Context, req SubmitRequest) (OperationResult, error)

	// CheckStatus fetches every record the user holds. Success:
	// StatusReport. Failure: NoSubmissions.
	CheckStatus(ctx context.Context, userID string) (OperationResult, error)

	// Statistics aggregates per-tier totals and role breakdowns.
	// Success: StatsReport.
	Statistics(ctx context.Context) (OperationResult, error)

	// ExportWorkbook snapshots every tier sheet into an .xlsx file.
	// Success: ExportFile.
	ExportWorkbook(ctx context.Context) (OperationResult, error)
}

// SubmitRequest carries one wallet submission at commit time. Roles is
// the set resolved freshly for this step, never reused from the entry
// button.
type SubmitRequest struct {
	UserID    string
	Username  string
	RoleLabel string
	Roles     tier.RoleSet
	Target    tier.Tier
	Wallet    string
}

// SubmissionTicket is the successful entry-point check.
type SubmissionTicket struct {
	Decision tier.Decision
}

// SubmitBlocked is the policy rejection payload. RedirectLink is set when
// the member belongs in a higher tier's channel.
type SubmitBlocked struct {
	Decision     tier.Decision
	RedirectLink string
}

// WalletRejected is the validation failure payload; the store is never
// reached.
type WalletRejected struct {
	Wallet string
}

// SubmitAccepted is the successful commit payload.
type SubmitAccepted struct {
	Tier     tier.Tier
	Outcome  submissiondb.UpsertOutcome
	Stacking bool
	// PrimaryTier names the member's reserved tier on stacking grants.
	PrimaryTier tier.Tier
}

// StatusReport lists the member's records across tiers. Stacking is set
// when more than one exists.
type StatusReport struct {
	Records  []submissiondb.Record
	Stacking bool
}

// NoSubmissions reports an empty status lookup.
type NoSubmissions struct {
	UserID string
}

// StatsReport carries the per-tier aggregates.
type StatsReport struct {
	Stats submissiondb.Stats
}

// ExportFile is a rendered workbook snapshot.
type ExportFile struct {
	Filename string
	Content  []byte
}
