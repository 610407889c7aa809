package sync

import (
	"context"

	"golang.org/x/exp/slog"
)

// IdempotencyGuard защищает от повторного применения операций.
// Деградирует в fail-open: при недоступном хранилище Check считает
// операцию непримененной, Record пишет предупреждение и молчит —
// доступность синхронизации важнее идеальной дедупликации.
type IdempotencyGuard struct {
	store SyncStateStore
	log   *slog.Logger
}

// NewIdempotencyGuard создает guard поверх хранилища движка
func NewIdempotencyGuard(store SyncStateStore, log *slog.Logger) *IdempotencyGuard {
	return &IdempotencyGuard{
		store: store,
		log:   log.With("component", "idempotency_guard"),
	}
}

// Check сообщает, применялся ли ключ раньше
func (g *IdempotencyGuard) Check(ctx context.Context, key string) bool {
	if key == "" {
		return false
	}

	applied, err := g.store.CheckIdempotencyKey(ctx, key)
	if err != nil {
		g.log.Warn("idempotency check failed, assuming not processed",
			"key", key, "error", err)
		return false
	}
	return applied
}

// Record фиксирует примененный ключ. Повторная запись того же ключа
// безвредна.
func (g *IdempotencyGuard) Record(ctx context.Context, key, branchID string) {
	if key == "" {
		return
	}

	if err := g.store.RecordIdempotencyKey(ctx, key, branchID); err != nil {
		g.log.Warn("failed to record idempotency key",
			"key", key, "branch_id", branchID, "error", err)
	}
}
