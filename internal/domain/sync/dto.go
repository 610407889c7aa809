package sync

import (
	"encoding/json"
	"time"
)

// BatchPushRequest — один сброс офлайн-очереди терминала.
// Порядок операций семантически значим: поздние операции могут
// ссылаться на id, созданные ранними.
type BatchPushRequest struct {
	BranchID   string          `json:"branchId"`
	Operations []SyncOperation `json:"operations"`
}

// OperationError — ошибка одной операции пакета
type OperationError struct {
	Index       int           `json:"index"`
	OperationID string        `json:"operationId,omitempty"`
	Type        OperationType `json:"type"`
	Message     string        `json:"message"`
}

// BatchPushResponse — итог выполнения пакета
type BatchPushResponse struct {
	Success           bool             `json:"success"`
	Processed         int              `json:"processed"`
	Failed            int              `json:"failed"`
	FailedIDs         []string         `json:"failedIds"`
	Errors            []OperationError `json:"errors"`
	ConflictsDetected int              `json:"conflictsDetected"`
	ConflictsResolved int              `json:"conflictsResolved"`
	ConflictStats     *ConflictStats   `json:"conflictStats,omitempty"`
}

// ChangesRequest — запрос инкрементального pull по типу сущности
type ChangesRequest struct {
	BranchID   string    `json:"branchId"`
	EntityType string    `json:"entityType"`
	Since      time.Time `json:"since,omitempty"`
	Limit      int       `json:"limit,omitempty"`
}

// ChangesResponse — изменения после точки последней выдачи
type ChangesResponse struct {
	Records    []json.RawMessage `json:"records"`
	HasMore    bool              `json:"hasMore"`
	ServerTime time.Time         `json:"serverTime"`
	State      *EntitySyncState  `json:"state,omitempty"`
}
