package mlmonitor

import (
	"time"

	"github.com/google/uuid"
)

// Degradation thresholds. A model is flagged when its accuracy drops this
// far below the best it has reported, or its drift crosses the ceiling.
const (
	accuracyDropThreshold = 0.05
	driftThreshold        = 0.25
)

// Snapshot is one model evaluation report.
type Snapshot struct {
	ID          uuid.UUID `json:"id"`
	Model       string    `json:"model"`
	Version     string    `json:"version"`
	Accuracy    float64   `json:"accuracy"`
	Drift       float64   `json:"drift"`
	LatencyMS   float64   `json:"latency_ms"`
	EvaluatedAt time.Time `json:"evaluated_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// Status is the latest snapshot plus the degradation verdict.
type Status struct {
	Latest   *Snapshot `json:"latest"`
	Degraded bool      `json:"degraded"`
	Reasons  []string  `json:"reasons,omitempty"`
}

// Degraded evaluates a snapshot against the model's best known accuracy.
func evaluate(latest *Snapshot, bestAccuracy float64) (bool, []string) {
	var reasons []string
	if bestAccuracy > 0 && bestAccuracy-latest.Accuracy > accuracyDropThreshold {
		reasons = append(reasons, "accuracy_drop")
	}
	if latest.Drift > driftThreshold {
		reasons = append(reasons, "drift")
	}
	return len(reasons) > 0, reasons
}
