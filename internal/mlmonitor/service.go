package mlmonitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/msmebazaar/platform/internal/shared"
)

// Service ingests model evaluation snapshots and exposes their health.
type Service struct {
	repo Repository

	accuracy *prometheus.GaugeVec
	drift    *prometheus.GaugeVec
	latency  *prometheus.GaugeVec
	degraded *prometheus.GaugeVec
}

// NewService constructs a Service and registers its gauges. A nil registerer
// skips metric export, which the tests use.
func NewService(repo Repository, reg prometheus.Registerer) *Service {
	labels := []string{"model", "version"}
	s := &Service{
		repo: repo,
		accuracy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "msme_ml_model_accuracy",
			Help: "Latest reported model accuracy.",
		}, labels),
		drift: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "msme_ml_model_drift",
			Help: "Latest reported model drift score.",
		}, labels),
		latency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "msme_ml_model_latency_ms",
			Help: "Latest reported model inference latency in milliseconds.",
		}, labels),
		degraded: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "msme_ml_model_degraded",
			Help: "1 when the model is flagged as degraded.",
		}, []string{"model"}),
	}
	if reg != nil {
		reg.MustRegister(s.accuracy, s.drift, s.latency, s.degraded)
	}
	return s
}

// SnapshotInput carries one evaluation report.
type SnapshotInput struct {
	Model       string
	Version     string
	Accuracy    float64
	Drift       float64
	LatencyMS   float64
	EvaluatedAt time.Time
}

// Ingest stores a snapshot and refreshes the exported gauges.
func (s *Service) Ingest(ctx context.Context, input SnapshotInput) (*Snapshot, error) {
	input.Model = strings.TrimSpace(input.Model)
	if input.Model == "" {
		return nil, fmt.Errorf("%w: model required", shared.ErrValidation)
	}
	if input.Version == "" {
		return nil, fmt.Errorf("%w: version required", shared.ErrValidation)
	}
	if input.Accuracy < 0 || input.Accuracy > 1 {
		return nil, fmt.Errorf("%w: accuracy must be in [0,1]", shared.ErrValidation)
	}
	if input.Drift < 0 {
		return nil, fmt.Errorf("%w: drift must be non-negative", shared.ErrValidation)
	}
	if input.EvaluatedAt.IsZero() {
		return nil, fmt.Errorf("%w: evaluated_at required", shared.ErrValidation)
	}

	best, err := s.repo.BestAccuracy(ctx, input.Model)
	if err != nil {
		return nil, err
	}

	snapshot := &Snapshot{
		ID:          uuid.New(),
		Model:       input.Model,
		Version:     input.Version,
		Accuracy:    input.Accuracy,
		Drift:       input.Drift,
		LatencyMS:   input.LatencyMS,
		EvaluatedAt: input.EvaluatedAt.UTC(),
	}
	if err := s.repo.Insert(ctx, snapshot); err != nil {
		return nil, err
	}

	s.accuracy.WithLabelValues(snapshot.Model, snapshot.Version).Set(snapshot.Accuracy)
	s.drift.WithLabelValues(snapshot.Model, snapshot.Version).Set(snapshot.Drift)
	s.latency.WithLabelValues(snapshot.Model, snapshot.Version).Set(snapshot.LatencyMS)

	flagged, _ := evaluate(snapshot, best)
	gauge := 0.0
	if flagged {
		gauge = 1
	}
	s.degraded.WithLabelValues(snapshot.Model).Set(gauge)

	return snapshot, nil
}

// Status returns the latest snapshot for a model with the degradation
// verdict against its best recorded accuracy.
func (s *Service) Status(ctx context.Context, model string) (*Status, error) {
	latest, err := s.repo.Latest(ctx, model)
	if err != nil {
		return nil, err
	}
	best, err := s.repo.BestAccuracy(ctx, model)
	if err != nil {
		return nil, err
	}
	degraded, reasons := evaluate(latest, best)
	return &Status{Latest: latest, Degraded: degraded, Reasons: reasons}, nil
}

// History lists recent snapshots for a model, newest first.
func (s *Service) History(ctx context.Context, model string, limit int) ([]Snapshot, error) {
	return s.repo.History(ctx, model, limit)
}

// Models lists every model that has reported at least once.
func (s *Service) Models(ctx context.Context) ([]string, error) {
	return s.repo.Models(ctx)
}
