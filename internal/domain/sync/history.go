package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

// HistoryRecorder ведет журнал выполненных пакетов — аудиторский след
// для операционных дашбордов
type HistoryRecorder struct {
	store SyncStateStore
	log   *slog.Logger
}

// NewHistoryRecorder создает рекордер журнала синхронизации
func NewHistoryRecorder(store SyncStateStore, log *slog.Logger) *HistoryRecorder {
	return &HistoryRecorder{
		store: store,
		log:   log.With("component", "sync_history"),
	}
}

// RecordBatch пишет одну запись журнала о выполненном пакете.
// Вызывается только когда применена хотя бы одна операция;
// applied всегда равен числу фактически примененных операций.
func (r *HistoryRecorder) RecordBatch(
	ctx context.Context,
	branchID string,
	direction SyncDirection,
	applied int,
	startedAt time.Time,
	status SyncStatus,
	opErrors []OperationError,
) error {
	entry := &SyncHistoryEntry{
		ID:             uuid.NewString(),
		BranchID:       branchID,
		Direction:      direction,
		OperationCount: applied,
		StartedAt:      startedAt,
		CompletedAt:    time.Now(),
		Status:         status,
		ErrorDetails:   formatOperationErrors(opErrors),
	}

	if err := r.store.SaveHistoryEntry(ctx, entry); err != nil {
		return fmt.Errorf("save history entry: %w", err)
	}

	return nil
}

// History возвращает последние записи журнала филиала
func (r *HistoryRecorder) History(ctx context.Context, branchID string, limit int) ([]*SyncHistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.store.ListHistory(ctx, branchID, limit)
}

func formatOperationErrors(opErrors []OperationError) string {
	if len(opErrors) == 0 {
		return ""
	}

	parts := make([]string, 0, len(opErrors))
	for _, e := range opErrors {
		parts = append(parts, fmt.Sprintf("[%d] %s: %s", e.Index, e.Type, e.Message))
	}
	return strings.Join(parts, "; ")
}
