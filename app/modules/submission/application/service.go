package submissionservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	submissiondb "github.com/clubmint/allowgate/app/modules/submission/infrastructure/repositories"
	"github.com/clubmint/allowgate/app/modules/tier"
	"github.com/clubmint/allowgate/internal/observability"
)

// OperationResult separates business outcomes from transport failures.
// Exactly one of Success or Failure is set on a nil-error return; Error
// carries the cause alongside a Failure payload when both exist.
type OperationResult struct {
	Success any
	Failure any
	Error   error
}

// SubmissionService implements Service on top of the tier registry and
// the sheet-backed store.
type SubmissionService struct {
	store    submissiondb.Store
	registry *tier.Registry
	logger   *slog.Logger
	metrics  observability.SubmissionMetrics
	tracer   trace.Tracer
	validate *validator.Validate
}

// NewSubmissionService creates a SubmissionService.
func NewSubmissionService(
	store submissiondb.Store,
	registry *tier.Registry,
	logger *slog.Logger,
	metrics observability.SubmissionMetrics,
	tracer trace.Tracer,
) *SubmissionService {
	return &SubmissionService{
		store:    store,
		registry: registry,
		logger:   logger,
		metrics:  metrics,
		tracer:   tracer,
		validate: validator.New(),
	}
}

var _ Service = (*SubmissionService)(nil)

// operationFunc is the signature for service operation functions.
type operationFunc func(ctx context.Context) (OperationResult, error)

// withTelemetry wraps a service operation with tracing, metrics, and
// panic recovery, and prefixes returned errors with the operation name.
func (s *SubmissionService) withTelemetry(
	ctx context.Context,
	operationName string,
	userID string,
	op operationFunc,
) (result OperationResult, err error) {
	ctx, span := s.tracer.Start(ctx, operationName, trace.WithAttributes(
		attribute.String("operation", operationName),
		attribute.String("user_id", userID),
	))
	defer span.End()

	s.metrics.RecordOperationAttempt(ctx, operationName)

	startTime := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(ctx, operationName, time.Since(startTime))
	}()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				slog.String("operation", operationName),
				slog.String("user_id", userID),
				slog.Any("error", err),
			)
			s.metrics.RecordOperationFailure(ctx, operationName)
			span.RecordError(err)
			result = OperationResult{}
		}
	}()

	result, err = op(ctx)
	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			slog.String("operation", operationName),
			slog.String("user_id", userID),
			slog.Any("error", wrappedErr),
		)
		s.metrics.RecordOperationFailure(ctx, operationName)
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if result.Failure != nil {
		s.logger.WarnContext(ctx, "Operation returned failure result",
			slog.String("operation", operationName),
			slog.String("user_id", userID),
			slog.String("failure_type", fmt.Sprintf("%T", result.Failure)),
		)
		return result, nil
	}

	s.logger.InfoContext(ctx, "Operation completed successfully",
		slog.String("operation", operationName),
		slog.String("user_id", userID),
		slog.String("success_type", fmt.Sprintf("%T", result.Success)),
	)
	return result, nil
}
