package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/msmebazaar/platform/internal/jobs"
	"github.com/msmebazaar/platform/internal/txmatch"
)

// MatchRebuilder recomputes one user's match set.
type MatchRebuilder interface {
	Rebuild(ctx context.Context, userID uuid.UUID) error
}

// HandleMatchRebuildTask returns the handler for TaskMatchRebuild.
func HandleMatchRebuildTask(rebuilder MatchRebuilder, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload MatchRebuildPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		userID, err := uuid.Parse(payload.UserID)
		if err != nil {
			return asynq.SkipRetry
		}
		if err := rebuilder.Rebuild(ctx, userID); err != nil {
			return err
		}
		logger.Info("match set rebuilt", slog.String("user_id", payload.UserID))
		return nil
	}
}

// BuyerSource enumerates users whose match sets are worth keeping warm.
type BuyerSource interface {
	ActiveUserIDs(ctx context.Context, since time.Time) ([]uuid.UUID, error)
}

// RebuildEnqueuer submits per-user rebuild tasks back onto the queue.
type RebuildEnqueuer interface {
	EnqueueMatchRebuild(ctx context.Context, userID string) error
}

const matchSweepWindow = 30 * 24 * time.Hour

// HandleMatchSweepTask returns the handler for TaskMatchSweep. It enqueues one
// TaskMatchRebuild per active buyer rather than rebuilding inline, so a slow
// recompute cannot stall the sweep.
func HandleMatchSweepTask(buyers BuyerSource, enqueuer RebuildEnqueuer, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload MatchSweepPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.Since.IsZero() {
			payload.Since = time.Now().Add(-matchSweepWindow)
		}
		ids, err := buyers.ActiveUserIDs(ctx, payload.Since)
		if err != nil {
			return err
		}
		enqueued := 0
		for _, id := range ids {
			if err := enqueuer.EnqueueMatchRebuild(ctx, id.String()); err != nil {
				logger.Warn("enqueue match rebuild",
					slog.String("user_id", id.String()),
					slog.Any("error", err))
				continue
			}
			enqueued++
		}
		logger.Info("match sweep fanned out",
			slog.Int("active", len(ids)),
			slog.Int("enqueued", enqueued))
		return nil
	}
}

// Reconciler runs one payment reconciliation pass.
type Reconciler interface {
	Reconcile(ctx context.Context, from, to time.Time) (*txmatch.Report, error)
}

// HandleReconcileTask returns the handler for TaskReconcile.
func HandleReconcileTask(reconciler Reconciler, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ReconcilePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.To.IsZero() {
			payload.To = time.Now()
		}
		if payload.From.IsZero() {
			payload.From = payload.To.Add(-24 * time.Hour)
		}
		report, err := reconciler.Reconcile(ctx, payload.From, payload.To)
		if err != nil {
			logger.Error("reconciliation run failed", slog.Any("error", err))
			return err
		}
		metrics.AddUnmatched("payment", len(report.UnmatchedPayments))
		metrics.AddUnmatched("expectation", len(report.UnmatchedExpectations))
		return nil
	}
}

// PointsAwarder credits gamification events.
type PointsAwarder interface {
	Award(ctx context.Context, userID, event string) error
}

// HandleAwardPointsTask returns the handler for TaskAwardPoints.
func HandleAwardPointsTask(awarder PointsAwarder, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload AwardPointsPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if err := awarder.Award(ctx, payload.UserID, payload.Event); err != nil {
			return err
		}
		logger.Info("points awarded",
			slog.String("user_id", payload.UserID),
			slog.String("event", payload.Event))
		return nil
	}
}
