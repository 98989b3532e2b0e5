package submissionservice

import (
	"context"
	"errors"
	"fmt"

	submissiondb "github.com/clubmint/allowgate/app/modules/submission/infrastructure/repositories"
)

// CheckStatus returns every submission the member holds, tier-tagged.
// Zero records is a business outcome, not an error.
func (s *SubmissionService) CheckStatus(ctx context.Context, userID string) (OperationResult, error) {
	return s.withTelemetry(ctx, "CheckStatus", userID, func(ctx context.Context) (OperationResult, error) {
		records, err := s.store.GetAll(ctx, userID)
		if err != nil {
			if errors.Is(err, submissiondb.ErrRecordNotFound) {
				return OperationResult{Failure: NoSubmissions{UserID: userID}}, nil
			}
			return OperationResult{}, fmt.Errorf("failed to fetch submissions: %w", err)
		}

		return OperationResult{Success: StatusReport{
			Records:  records,
			Stacking: len(records) > 1,
		}}, nil
	})
}
