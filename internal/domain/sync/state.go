package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/exp/slog"
)

// Трекер pull-состояния: по каждому типу сущности хранится момент и id
// последней выдачи, что позволяет терминалам забирать изменения
// инкрементально. Симметричен push-пути, но данных не меняет.

// pullableEntities — типы сущностей, доступные инкрементальному pull
var pullableEntities = map[string]struct{}{
	"orders": {}, "shifts": {}, "customers": {}, "inventory_items": {},
	"ingredients": {}, "menu_items": {}, "tables": {}, "promo_codes": {},
	"purchase_orders": {}, "receipt_settings": {},
}

// StateTracker отслеживает инкрементальное pull-состояние филиала
type StateTracker struct {
	store SyncStateStore
	log   *slog.Logger
}

// NewStateTracker создает трекер pull-состояния
func NewStateTracker(store SyncStateStore, log *slog.Logger) *StateTracker {
	return &StateTracker{
		store: store,
		log:   log.With("component", "sync_state"),
	}
}

// Changes возвращает сущности, измененные после точки последней
// выдачи, и сдвигает ее вперед
func (t *StateTracker) Changes(ctx context.Context, branchID, entityType string, since time.Time, limit int) ([]json.RawMessage, *EntitySyncState, error) {
	if _, ok := pullableEntities[entityType]; !ok {
		return nil, nil, NewValidationError("unknown entity type %q", entityType)
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	state, err := t.store.GetEntitySyncState(ctx, branchID, entityType)
	if err != nil {
		return nil, nil, fmt.Errorf("get entity sync state: %w", err)
	}
	if !state.SyncEnabled {
		return nil, state, nil
	}

	if since.IsZero() {
		since = state.LastSyncTimestamp
	}

	changes, err := t.store.ChangedEntities(ctx, branchID, entityType, since, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("changed entities: %w", err)
	}

	state.LastSyncTimestamp = time.Now()
	state.TotalCount += int64(len(changes))
	state.UpdatedAt = time.Now()
	if err := t.store.UpsertEntitySyncState(ctx, state); err != nil {
		// pull не должен падать из-за трекинга
		t.log.Warn("failed to advance entity sync state",
			"branch_id", branchID, "entity_type", entityType, "error", err)
	}

	return changes, state, nil
}

// States возвращает pull-состояние всех типов сущностей филиала
func (t *StateTracker) States(ctx context.Context, branchID string) ([]*EntitySyncState, error) {
	return t.store.ListEntitySyncStates(ctx, branchID)
}
