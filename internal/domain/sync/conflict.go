package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

// ConflictResolver — стратегия разрешения конфликта.
// Возвращает полезную нагрузку, которая станет новым авторитетным
// представлением сущности после перевода конфликта в resolved.
type ConflictResolver interface {
	Resolve(conflict *Conflict) (json.RawMessage, error)
}

// Compile-time проверка реализации стратегий
var _ ConflictResolver = (*lastWriteWinsResolver)(nil)

// lastWriteWinsResolver — входящая версия перезаписывает сохраненную
type lastWriteWinsResolver struct{}

func (r *lastWriteWinsResolver) Resolve(conflict *Conflict) (json.RawMessage, error) {
	return conflict.IncomingPayload, nil
}

// Поля, которые считает сервер: исключаются из пополевого сравнения,
// чтобы не ловить ложные конфликты
var serverComputedFields = map[string]struct{}{
	"id": {}, "branchid": {}, "createdat": {}, "updatedat": {},
	"closingorders": {}, "closingrevenue": {},
	"loyaltypoints": {}, "tier": {}, "usedcount": {},
}

// ConflictManager находит и разрешает расхождения между входящими
// обновлениями и текущим состоянием сущностей
type ConflictManager struct {
	store           SyncStateStore
	log             *slog.Logger
	resolvers       map[ConflictStrategy]ConflictResolver
	defaultStrategy ConflictStrategy
}

// NewConflictManager создает менеджер конфликтов со стратегией
// LAST_WRITE_WINS по умолчанию
func NewConflictManager(store SyncStateStore, log *slog.Logger) *ConflictManager {
	return &ConflictManager{
		store: store,
		log:   log.With("component", "conflict_manager"),
		resolvers: map[ConflictStrategy]ConflictResolver{
			StrategyLastWriteWins: &lastWriteWinsResolver{},
		},
		defaultStrategy: StrategyLastWriteWins,
	}
}

// DetectConflict сравнивает входящее обновление с сохраненным
// состоянием. Конфликт фиксируется, когда сервер менял сущность после
// клиентской метки операции и хотя бы одно присланное изменяемое поле
// расходится с сохраненным значением. Сравнение пополевое, а не
// по всей строке: серверные вычисляемые поля не сравниваются.
// Возвращает nil, если конфликта нет.
func (m *ConflictManager) DetectConflict(
	ctx context.Context,
	entityType, entityID, branchID string,
	incoming json.RawMessage,
	stored any,
	storedUpdatedAt time.Time,
	clientTime time.Time,
) (*Conflict, error) {
	if !storedUpdatedAt.After(clientTime) {
		// клиент правил актуальную версию
		return nil, nil
	}

	snapshot, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("marshal stored snapshot: %w", err)
	}

	storedFields := payloadFields(snapshot)
	normalized := make(map[string]any, len(storedFields))
	for k, v := range storedFields {
		normalized[normalizeFieldKey(k)] = v
	}

	var diverged bool
	for key, incomingValue := range payloadFields(incoming) {
		nk := normalizeFieldKey(key)
		if _, computed := serverComputedFields[nk]; computed {
			continue
		}
		storedValue, tracked := normalized[nk]
		if !tracked {
			continue
		}
		if !reflect.DeepEqual(incomingValue, storedValue) {
			diverged = true
			break
		}
	}

	if !diverged {
		return nil, nil
	}

	conflict := &Conflict{
		ID:              uuid.NewString(),
		EntityType:      entityType,
		EntityID:        entityID,
		BranchID:        branchID,
		IncomingPayload: incoming,
		StoredSnapshot:  snapshot,
		DetectedAt:      time.Now(),
		Status:          ConflictPending,
	}

	if err := m.store.SaveConflict(ctx, conflict); err != nil {
		return nil, fmt.Errorf("save conflict: %w", err)
	}

	m.log.Info("conflict detected",
		"conflict_id", conflict.ID,
		"entity_type", entityType,
		"entity_id", entityID,
	)

	return conflict, nil
}

// ResolveConflict применяет стратегию и переводит конфликт в resolved.
// Только после этого ResolvedPayload становится авторитетным
// представлением. Разрешение уже разрешенного конфликта — no-op.
func (m *ConflictManager) ResolveConflict(ctx context.Context, id string, strategy ConflictStrategy, resolvedBy string) (*Conflict, error) {
	conflict, err := m.store.GetConflict(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get conflict: %w", err)
	}
	if conflict.Status == ConflictResolved {
		return conflict, nil
	}

	if strategy == "" {
		strategy = m.defaultStrategy
	}
	resolver, ok := m.resolvers[strategy]
	if !ok {
		return nil, fmt.Errorf("unknown conflict strategy %q", strategy)
	}

	resolved, err := resolver.Resolve(conflict)
	if err != nil {
		return nil, fmt.Errorf("resolve conflict %s: %w", id, err)
	}

	now := time.Now()
	conflict.Status = ConflictResolved
	conflict.Strategy = strategy
	conflict.ResolvedPayload = resolved
	conflict.ResolvedBy = resolvedBy
	conflict.ResolvedAt = &now

	if err := m.store.MarkConflictResolved(ctx, conflict); err != nil {
		return nil, fmt.Errorf("mark conflict resolved: %w", err)
	}

	return conflict, nil
}

// AutoResolveConflicts разрешает все ожидающие конфликты стратегией
// по умолчанию. Вызывается оркестратором в конце каждого пакета, чтобы
// ни один конфликт не оставался открытым между запросами.
func (m *ConflictManager) AutoResolveConflicts(ctx context.Context) (int, error) {
	pending, err := m.store.PendingConflicts(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending conflicts: %w", err)
	}

	var resolved int
	for _, c := range pending {
		if _, err := m.ResolveConflict(ctx, c.ID, m.defaultStrategy, "auto"); err != nil {
			m.log.Warn("failed to auto-resolve conflict",
				"conflict_id", c.ID, "error", err)
			continue
		}
		resolved++
	}

	return resolved, nil
}

// AllConflicts возвращает конфликты филиала для интроспекции
func (m *ConflictManager) AllConflicts(ctx context.Context, branchID string, limit int) ([]*Conflict, error) {
	return m.store.ListConflicts(ctx, branchID, limit)
}

// Stats возвращает агрегированную статистику по конфликтам
func (m *ConflictManager) Stats(ctx context.Context) (*ConflictStats, error) {
	return m.store.ConflictCounts(ctx)
}

// normalizeFieldKey приводит camelCase и snake_case имена к общему
// виду: клиент шлет minLevel, хранилище отдает min_level
func normalizeFieldKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), "_", "")
}
