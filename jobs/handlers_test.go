package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type stubBuyers struct {
	ids   []uuid.UUID
	since time.Time
}

func (s *stubBuyers) ActiveUserIDs(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	s.since = since
	return s.ids, nil
}

type recordingEnqueuer struct {
	userIDs []string
	failFor string
}

func (r *recordingEnqueuer) EnqueueMatchRebuild(ctx context.Context, userID string) error {
	if userID == r.failFor {
		return errors.New("queue unavailable")
	}
	r.userIDs = append(r.userIDs, userID)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMatchSweepFansOutRebuilds(t *testing.T) {
	first := uuid.New()
	second := uuid.New()
	buyers := &stubBuyers{ids: []uuid.UUID{first, second}}
	enqueuer := &recordingEnqueuer{}

	task, err := NewMatchSweepTask(MatchSweepPayload{})
	require.NoError(t, err)

	handler := HandleMatchSweepTask(buyers, enqueuer, discardLogger())
	require.NoError(t, handler(context.Background(), task))

	require.Equal(t, []string{first.String(), second.String()}, enqueuer.userIDs)

	cutoff := time.Now().Add(-matchSweepWindow)
	require.WithinDuration(t, cutoff, buyers.since, time.Minute)
}

func TestMatchSweepHonoursExplicitWindow(t *testing.T) {
	buyers := &stubBuyers{}
	since := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	task, err := NewMatchSweepTask(MatchSweepPayload{Since: since})
	require.NoError(t, err)

	handler := HandleMatchSweepTask(buyers, &recordingEnqueuer{}, discardLogger())
	require.NoError(t, handler(context.Background(), task))
	require.True(t, buyers.since.Equal(since))
}

func TestMatchSweepContinuesPastEnqueueFailures(t *testing.T) {
	first := uuid.New()
	second := uuid.New()
	buyers := &stubBuyers{ids: []uuid.UUID{first, second}}
	enqueuer := &recordingEnqueuer{failFor: first.String()}

	task, err := NewMatchSweepTask(MatchSweepPayload{})
	require.NoError(t, err)

	handler := HandleMatchSweepTask(buyers, enqueuer, discardLogger())
	require.NoError(t, handler(context.Background(), task))
	require.Equal(t, []string{second.String()}, enqueuer.userIDs)
}

func TestMatchSweepRejectsMalformedPayload(t *testing.T) {
	handler := HandleMatchSweepTask(&stubBuyers{}, &recordingEnqueuer{}, discardLogger())
	err := handler(context.Background(), asynq.NewTask(TaskMatchSweep, []byte("not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}
