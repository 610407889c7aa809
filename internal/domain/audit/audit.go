package audit

import (
	"context"
	"time"

	"golang.org/x/exp/slog"
)

// Event — событие журнала аудита
type Event struct {
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	BranchID   string         `json:"branch_id"`
	Details    map[string]any `json:"details,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Recorder — приемник событий аудита. Вызывающая сторона обязана
// трактовать ошибку как best-effort: залогировать и продолжить.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// SlogRecorder пишет события аудита в структурированный лог.
// Операционные дашборды читают их из лог-пайплайна.
type SlogRecorder struct {
	log *slog.Logger
}

// NewSlogRecorder создает журнал аудита поверх slog
func NewSlogRecorder(log *slog.Logger) *SlogRecorder {
	return &SlogRecorder{log: log.With("component", "audit")}
}

func (r *SlogRecorder) Record(_ context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	r.log.Info("audit event",
		"action", event.Action,
		"entity_type", event.EntityType,
		"entity_id", event.EntityID,
		"branch_id", event.BranchID,
		"details", event.Details,
		"occurred_at", event.OccurredAt,
	)

	return nil
}
