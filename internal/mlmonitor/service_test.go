package mlmonitor

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/msmebazaar/platform/internal/shared"
)

type memoryRepo struct {
	snapshots []Snapshot
}

func (m *memoryRepo) Insert(ctx context.Context, snapshot *Snapshot) error {
	snapshot.CreatedAt = time.Now()
	m.snapshots = append(m.snapshots, *snapshot)
	return nil
}

func (m *memoryRepo) Latest(ctx context.Context, model string) (*Snapshot, error) {
	var latest *Snapshot
	for i := range m.snapshots {
		s := m.snapshots[i]
		if s.Model != model {
			continue
		}
		if latest == nil || s.EvaluatedAt.After(latest.EvaluatedAt) {
			latest = &m.snapshots[i]
		}
	}
	if latest == nil {
		return nil, shared.ErrNotFound
	}
	clone := *latest
	return &clone, nil
}

func (m *memoryRepo) BestAccuracy(ctx context.Context, model string) (float64, error) {
	var best float64
	for _, s := range m.snapshots {
		if s.Model == model && s.Accuracy > best {
			best = s.Accuracy
		}
	}
	return best, nil
}

func (m *memoryRepo) History(ctx context.Context, model string, limit int) ([]Snapshot, error) {
	var out []Snapshot
	for _, s := range m.snapshots {
		if s.Model == model {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EvaluatedAt.After(out[j].EvaluatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryRepo) Models(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var models []string
	for _, s := range m.snapshots {
		if !seen[s.Model] {
			seen[s.Model] = true
			models = append(models, s.Model)
		}
	}
	sort.Strings(models)
	return models, nil
}

func snapshot(model string, accuracy, drift float64, at time.Time) SnapshotInput {
	return SnapshotInput{
		Model:       model,
		Version:     "v1",
		Accuracy:    accuracy,
		Drift:       drift,
		LatencyMS:   12,
		EvaluatedAt: at,
	}
}

func TestIngestValidation(t *testing.T) {
	svc := NewService(&memoryRepo{}, prometheus.NewRegistry())
	now := time.Now()

	cases := []SnapshotInput{
		snapshot("", 0.9, 0.1, now),
		{Model: "scorer", Accuracy: 0.9, Drift: 0.1, EvaluatedAt: now},
		snapshot("scorer", 1.2, 0.1, now),
		snapshot("scorer", 0.9, -0.1, now),
		snapshot("scorer", 0.9, 0.1, time.Time{}),
	}
	for _, input := range cases {
		_, err := svc.Ingest(context.Background(), input)
		require.ErrorIs(t, err, shared.ErrValidation)
	}
}

func TestStatusFlagsAccuracyDrop(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo, prometheus.NewRegistry())
	now := time.Now()

	_, err := svc.Ingest(context.Background(), snapshot("scorer", 0.92, 0.05, now.Add(-2*time.Hour)))
	require.NoError(t, err)

	status, err := svc.Status(context.Background(), "scorer")
	require.NoError(t, err)
	require.False(t, status.Degraded)

	_, err = svc.Ingest(context.Background(), snapshot("scorer", 0.80, 0.05, now.Add(-time.Hour)))
	require.NoError(t, err)

	status, err = svc.Status(context.Background(), "scorer")
	require.NoError(t, err)
	require.True(t, status.Degraded)
	require.Contains(t, status.Reasons, "accuracy_drop")
}

func TestStatusFlagsDrift(t *testing.T) {
	svc := NewService(&memoryRepo{}, prometheus.NewRegistry())

	_, err := svc.Ingest(context.Background(), snapshot("scorer", 0.9, 0.4, time.Now()))
	require.NoError(t, err)

	status, err := svc.Status(context.Background(), "scorer")
	require.NoError(t, err)
	require.True(t, status.Degraded)
	require.Contains(t, status.Reasons, "drift")
}

func TestStatusUnknownModel(t *testing.T) {
	svc := NewService(&memoryRepo{}, prometheus.NewRegistry())

	_, err := svc.Status(context.Background(), "ghost")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestHistoryAndModels(t *testing.T) {
	svc := NewService(&memoryRepo{}, prometheus.NewRegistry())
	now := time.Now()

	for i := 0; i < 3; i++ {
		_, err := svc.Ingest(context.Background(), snapshot("scorer", 0.9, 0.05, now.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}
	_, err := svc.Ingest(context.Background(), snapshot("ranker", 0.8, 0.05, now))
	require.NoError(t, err)

	history, err := svc.History(context.Background(), "scorer", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.True(t, history[0].EvaluatedAt.After(history[1].EvaluatedAt))

	models, err := svc.Models(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"ranker", "scorer"}, models)
}
