package submissionservice

import (
	"context"
	"fmt"

	submissiondb "github.com/clubmint/allowgate/app/modules/submission/infrastructure/repositories"
	"github.com/clubmint/allowgate/app/modules/tier"
)

// PrepareSubmission evaluates whether the member may open the submission
// form for the target tier. The decision is advisory only: roles can
// change before the form comes back, so SubmitWallet repeats the check.
func (s *SubmissionService) PrepareSubmission(ctx context.Context, userID string, roles tier.RoleSet, target tier.Tier) (OperationResult, error) {
	return s.withTelemetry(ctx, "PrepareSubmission", userID, func(ctx context.Context) (OperationResult, error) {
		decision := s.registry.CanSubmit(roles, target)
		if !decision.Allowed {
			return OperationResult{Failure: s.blocked(decision)}, nil
		}
		return OperationResult{Success: SubmissionTicket{Decision: decision}}, nil
	})
}

// SubmitWallet commits one submission: policy re-check against the fresh
// role set, wallet validation, then upsert. Validation and policy
// failures never reach the store.
func (s *SubmissionService) SubmitWallet(ctx context.Context, req SubmitRequest) (OperationResult, error) {
	return s.withTelemetry(ctx, "SubmitWallet", req.UserID, func(ctx context.Context) (OperationResult, error) {
		decision := s.registry.CanSubmit(req.Roles, req.Target)
		if !decision.Allowed {
			return OperationResult{Failure: s.blocked(decision)}, nil
		}

		if err := s.validate.Var(req.Wallet, "required,eth_addr"); err != nil {
			return OperationResult{
				Failure: WalletRejected{Wallet: req.Wallet},
				Error:   fmt.Errorf("%w: %q", ErrInvalidWallet, req.Wallet),
			}, nil
		}

		outcome, err := s.store.Upsert(ctx, req.Target, submissiondb.Record{
			Username:  req.Username,
			UserID:    req.UserID,
			RoleLabel: req.RoleLabel,
			Wallet:    req.Wallet,
		})
		if err != nil {
			return OperationResult{}, fmt.Errorf("failed to persist submission: %w", err)
		}
		if outcome == submissiondb.Skipped {
			return OperationResult{}, fmt.Errorf("%w: %q", ErrTierNotPersistable, req.Target)
		}

		s.metrics.RecordSubmission(ctx, string(req.Target), string(outcome))

		return OperationResult{Success: SubmitAccepted{
			Tier:        req.Target,
			Outcome:     outcome,
			Stacking:    decision.Stacking,
			PrimaryTier: decision.UserTier,
		}}, nil
	})
}

func (s *SubmissionService) blocked(decision tier.Decision) SubmitBlocked {
	payload := SubmitBlocked{Decision: decision}
	if decision.Reason == tier.ReasonHigherTierAvailable {
		if cfg, ok := s.registry.Config(decision.UserTier); ok {
			payload.RedirectLink = cfg.ChannelLink
		}
	}
	return payload
}
