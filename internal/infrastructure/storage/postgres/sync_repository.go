package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"possync/internal/domain/sync"

	"github.com/jackc/pgx/v5"
)

// Таблицы самого движка: ключи идемпотентности, конфликты, журнал
// пакетов и pull-состояние по типам сущностей.

func (s *Store) CheckIdempotencyKey(ctx context.Context, key string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM idempotency_keys WHERE key = $1)`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, key).Scan(&exists); err != nil {
		return false, fmt.Errorf("check idempotency key: %w", err)
	}
	return exists, nil
}

func (s *Store) RecordIdempotencyKey(ctx context.Context, key, branchID string) error {
	// ON CONFLICT DO NOTHING: повторная запись того же ключа не ошибка
	const query = `
		INSERT INTO idempotency_keys (key, branch_id, recorded_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO NOTHING`

	if _, err := s.pool.Exec(ctx, query, key, branchID); err != nil {
		return fmt.Errorf("record idempotency key: %w", err)
	}
	return nil
}

const conflictColumns = `id, entity_type, entity_id, branch_id,
	incoming_payload, stored_snapshot, detected_at, status, strategy,
	resolved_payload, resolved_by, resolved_at`

func (s *Store) SaveConflict(ctx context.Context, conflict *sync.Conflict) error {
	const query = `
		INSERT INTO sync_conflicts
			(id, entity_type, entity_id, branch_id, incoming_payload,
			stored_snapshot, detected_at, status, strategy,
			resolved_payload, resolved_by, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := s.pool.Exec(ctx, query,
		conflict.ID, conflict.EntityType, conflict.EntityID,
		conflict.BranchID, conflict.IncomingPayload, conflict.StoredSnapshot,
		conflict.DetectedAt, conflict.Status, conflict.Strategy,
		conflict.ResolvedPayload, conflict.ResolvedBy, conflict.ResolvedAt,
	)
	if err != nil {
		s.log.Error("failed to save conflict", "conflict_id", conflict.ID, "error", err)
		return fmt.Errorf("save conflict: %w", err)
	}
	return nil
}

func (s *Store) GetConflict(ctx context.Context, id string) (*sync.Conflict, error) {
	query := `SELECT ` + conflictColumns + ` FROM sync_conflicts WHERE id = $1`

	conflict, err := scanConflict(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sync.ErrConflictNotFound
		}
		return nil, fmt.Errorf("get conflict: %w", err)
	}
	return conflict, nil
}

func (s *Store) PendingConflicts(ctx context.Context) ([]*sync.Conflict, error) {
	query := `
		SELECT ` + conflictColumns + `
		FROM sync_conflicts
		WHERE status = 'pending'
		ORDER BY detected_at`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pending conflicts: %w", err)
	}
	defer rows.Close()

	return collectConflicts(rows)
}

func (s *Store) ListConflicts(ctx context.Context, branchID string, limit int) ([]*sync.Conflict, error) {
	query := `
		SELECT ` + conflictColumns + `
		FROM sync_conflicts
		WHERE ($1 = '' OR branch_id = $1)
		ORDER BY detected_at DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, branchID, limit)
	if err != nil {
		return nil, fmt.Errorf("list conflicts: %w", err)
	}
	defer rows.Close()

	return collectConflicts(rows)
}

func (s *Store) MarkConflictResolved(ctx context.Context, conflict *sync.Conflict) error {
	const query = `
		UPDATE sync_conflicts SET
			status = $2, strategy = $3, resolved_payload = $4,
			resolved_by = $5, resolved_at = $6
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		conflict.ID, conflict.Status, conflict.Strategy,
		conflict.ResolvedPayload, conflict.ResolvedBy, conflict.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("mark conflict resolved: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sync.ErrConflictNotFound
	}
	return nil
}

func (s *Store) ConflictCounts(ctx context.Context) (*sync.ConflictStats, error) {
	stats := &sync.ConflictStats{
		ByEntity:   make(map[string]int),
		ByStrategy: make(map[string]int),
	}

	const totalsQuery = `
		SELECT
			count(*),
			count(*) FILTER (WHERE status = 'pending'),
			count(*) FILTER (WHERE status = 'resolved')
		FROM sync_conflicts`

	if err := s.pool.QueryRow(ctx, totalsQuery).Scan(
		&stats.Total, &stats.Pending, &stats.Resolved,
	); err != nil {
		return nil, fmt.Errorf("conflict totals: %w", err)
	}

	const entityQuery = `
		SELECT entity_type, count(*) FROM sync_conflicts GROUP BY entity_type`

	rows, err := s.pool.Query(ctx, entityQuery)
	if err != nil {
		return nil, fmt.Errorf("conflicts by entity: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var entity string
		var n int
		if err := rows.Scan(&entity, &n); err != nil {
			return nil, fmt.Errorf("scan entity count: %w", err)
		}
		stats.ByEntity[entity] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conflicts by entity: %w", err)
	}

	const strategyQuery = `
		SELECT strategy, count(*)
		FROM sync_conflicts
		WHERE status = 'resolved' AND strategy <> ''
		GROUP BY strategy`

	rows, err = s.pool.Query(ctx, strategyQuery)
	if err != nil {
		return nil, fmt.Errorf("conflicts by strategy: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var strategy string
		var n int
		if err := rows.Scan(&strategy, &n); err != nil {
			return nil, fmt.Errorf("scan strategy count: %w", err)
		}
		stats.ByStrategy[strategy] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conflicts by strategy: %w", err)
	}

	return stats, nil
}

func (s *Store) SaveHistoryEntry(ctx context.Context, entry *sync.SyncHistoryEntry) error {
	const query = `
		INSERT INTO sync_history
			(id, branch_id, direction, operation_count, started_at,
			completed_at, status, error_details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.pool.Exec(ctx, query,
		entry.ID, entry.BranchID, entry.Direction, entry.OperationCount,
		entry.StartedAt, entry.CompletedAt, entry.Status, entry.ErrorDetails,
	)
	if err != nil {
		return fmt.Errorf("save history entry: %w", err)
	}
	return nil
}

func (s *Store) ListHistory(ctx context.Context, branchID string, limit int) ([]*sync.SyncHistoryEntry, error) {
	const query = `
		SELECT id, branch_id, direction, operation_count, started_at,
			completed_at, status, error_details
		FROM sync_history
		WHERE ($1 = '' OR branch_id = $1)
		ORDER BY completed_at DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, branchID, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []*sync.SyncHistoryEntry
	for rows.Next() {
		var entry sync.SyncHistoryEntry
		if err := rows.Scan(
			&entry.ID, &entry.BranchID, &entry.Direction,
			&entry.OperationCount, &entry.StartedAt, &entry.CompletedAt,
			&entry.Status, &entry.ErrorDetails,
		); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

// GetEntitySyncState возвращает состояние pull-курсора; если строки
// еще нет — дефолтное включенное состояние с нулевым курсором
func (s *Store) GetEntitySyncState(ctx context.Context, branchID, entityType string) (*sync.EntitySyncState, error) {
	const query = `
		SELECT branch_id, entity_type, last_sync_timestamp, last_sync_id,
			total_count, sync_enabled, updated_at
		FROM entity_sync_state
		WHERE branch_id = $1 AND entity_type = $2`

	var state sync.EntitySyncState
	err := s.pool.QueryRow(ctx, query, branchID, entityType).Scan(
		&state.BranchID, &state.EntityType, &state.LastSyncTimestamp,
		&state.LastSyncID, &state.TotalCount, &state.SyncEnabled,
		&state.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &sync.EntitySyncState{
				BranchID:    branchID,
				EntityType:  entityType,
				SyncEnabled: true,
			}, nil
		}
		return nil, fmt.Errorf("get entity sync state: %w", err)
	}
	return &state, nil
}

func (s *Store) UpsertEntitySyncState(ctx context.Context, state *sync.EntitySyncState) error {
	const query = `
		INSERT INTO entity_sync_state
			(branch_id, entity_type, last_sync_timestamp, last_sync_id,
			total_count, sync_enabled, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (branch_id, entity_type) DO UPDATE SET
			last_sync_timestamp = EXCLUDED.last_sync_timestamp,
			last_sync_id = EXCLUDED.last_sync_id,
			total_count = EXCLUDED.total_count,
			sync_enabled = EXCLUDED.sync_enabled,
			updated_at = EXCLUDED.updated_at`

	_, err := s.pool.Exec(ctx, query,
		state.BranchID, state.EntityType, state.LastSyncTimestamp,
		state.LastSyncID, state.TotalCount, state.SyncEnabled,
		state.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert entity sync state: %w", err)
	}
	return nil
}

func (s *Store) ListEntitySyncStates(ctx context.Context, branchID string) ([]*sync.EntitySyncState, error) {
	const query = `
		SELECT branch_id, entity_type, last_sync_timestamp, last_sync_id,
			total_count, sync_enabled, updated_at
		FROM entity_sync_state
		WHERE branch_id = $1
		ORDER BY entity_type`

	rows, err := s.pool.Query(ctx, query, branchID)
	if err != nil {
		return nil, fmt.Errorf("list entity sync states: %w", err)
	}
	defer rows.Close()

	var states []*sync.EntitySyncState
	for rows.Next() {
		var state sync.EntitySyncState
		if err := rows.Scan(
			&state.BranchID, &state.EntityType, &state.LastSyncTimestamp,
			&state.LastSyncID, &state.TotalCount, &state.SyncEnabled,
			&state.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan entity sync state: %w", err)
		}
		states = append(states, &state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entity sync states: %w", err)
	}
	return states, nil
}

// entityTables — whitelist таблиц для инкрементального pull. Имя
// таблицы подставляется в запрос строкой, поэтому любое значение
// не из карты отклоняется до обращения к БД.
var entityTables = map[string]string{
	"orders":           "orders",
	"shifts":           "shifts",
	"customers":        "customers",
	"inventory_items":  "inventory_items",
	"ingredients":      "ingredients",
	"menu_items":       "menu_items",
	"tables":           "tables",
	"promo_codes":      "promo_codes",
	"purchase_orders":  "purchase_orders",
	"receipt_settings": "receipt_settings",
}

func (s *Store) ChangedEntities(ctx context.Context, branchID, entityType string, since time.Time, limit int) ([]json.RawMessage, error) {
	table, ok := entityTables[entityType]
	if !ok {
		return nil, fmt.Errorf("%w: unknown entity type %q", sync.ErrEntityNotFound, entityType)
	}

	query := fmt.Sprintf(`
		SELECT row_to_json(t)
		FROM %s t
		WHERE branch_id = $1 AND updated_at > $2
		ORDER BY updated_at
		LIMIT $3`, table)

	rows, err := s.pool.Query(ctx, query, branchID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("changed entities: %w", err)
	}
	defer rows.Close()

	var out []json.RawMessage
	for rows.Next() {
		var raw json.RawMessage
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan changed entity: %w", err)
		}
		out = append(out, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("changed entities: %w", err)
	}
	return out, nil
}

func scanConflict(row pgx.Row) (*sync.Conflict, error) {
	var c sync.Conflict
	err := row.Scan(
		&c.ID, &c.EntityType, &c.EntityID, &c.BranchID,
		&c.IncomingPayload, &c.StoredSnapshot, &c.DetectedAt,
		&c.Status, &c.Strategy, &c.ResolvedPayload,
		&c.ResolvedBy, &c.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func collectConflicts(rows pgx.Rows) ([]*sync.Conflict, error) {
	var conflicts []*sync.Conflict
	for rows.Next() {
		conflict, err := scanConflict(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conflict: %w", err)
		}
		conflicts = append(conflicts, conflict)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("collect conflicts: %w", err)
	}
	return conflicts, nil
}
