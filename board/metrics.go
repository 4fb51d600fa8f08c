package board

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// dragMetrics collects per-drop timings and context for a single structured
// log line emitted when the drop settles.
type dragMetrics struct {
	logger *log.Logger
	g      Gesture
	start  time.Time

	moveAt      time.Time
	updateAt    time.Time
	refetchAt   time.Time
	errorStage  string
	updateError error
}

func newDragMetrics(logger *log.Logger, g Gesture) *dragMetrics {
	return &dragMetrics{logger: logger, g: g, start: time.Now()}
}

func (m *dragMetrics) ObserveMove()    { m.moveAt = time.Now() }
func (m *dragMetrics) ObserveUpdate()  { m.updateAt = time.Now() }
func (m *dragMetrics) ObserveRefetch() { m.refetchAt = time.Now() }

func (m *dragMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

func (m *dragMetrics) SetUpdateError(err error) {
	m.updateError = err
}

func (m *dragMetrics) Log(outcome Outcome, err error) {
	if m == nil || m.logger == nil {
		return
	}

	fields := log.Fields{
		"task_id":  m.g.TaskID,
		"from":     string(m.g.From),
		"to":       string(m.g.To),
		"to_index": m.g.ToIndex,
		"outcome":  outcome.String(),
		"total_ms": durationToMillis(time.Since(m.start)),
	}
	if !m.moveAt.IsZero() {
		fields["move_ms"] = durationToMillis(m.moveAt.Sub(m.start))
	}
	if !m.updateAt.IsZero() {
		fields["update_ms"] = durationToMillis(m.updateAt.Sub(m.moveAt))
	}
	if !m.refetchAt.IsZero() {
		fields["refetch_ms"] = durationToMillis(m.refetchAt.Sub(m.moveAt))
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
	}
	if m.updateError != nil {
		fields["update_error"] = m.updateError.Error()
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	m.logger.WithFields(fields).Info("board.drop.metrics")
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
