package sync

import (
	"encoding/json"
	"time"
)

// OperationType — закрытый набор типов операций офлайн-очереди терминала
type OperationType string

const (
	OpCreateOrder                OperationType = "CREATE_ORDER"
	OpUpdateOrder                OperationType = "UPDATE_ORDER"
	OpCreateInventory            OperationType = "CREATE_INVENTORY"
	OpUpdateInventory            OperationType = "UPDATE_INVENTORY"
	OpCreateWaste                OperationType = "CREATE_WASTE"
	OpCreateShift                OperationType = "CREATE_SHIFT"
	OpUpdateShift                OperationType = "UPDATE_SHIFT"
	OpCloseShift                 OperationType = "CLOSE_SHIFT"
	OpCreateCustomer             OperationType = "CREATE_CUSTOMER"
	OpUpdateCustomer             OperationType = "UPDATE_CUSTOMER"
	OpUpdateUser                 OperationType = "UPDATE_USER"
	OpCreateDailyExpense         OperationType = "CREATE_DAILY_EXPENSE"
	OpCreateVoidedItem           OperationType = "CREATE_VOIDED_ITEM"
	OpCreatePromoCode            OperationType = "CREATE_PROMO_CODE"
	OpUsePromoCode               OperationType = "USE_PROMO_CODE"
	OpCreateLoyaltyTransaction   OperationType = "CREATE_LOYALTY_TRANSACTION"
	OpCreateTable                OperationType = "CREATE_TABLE"
	OpUpdateTable                OperationType = "UPDATE_TABLE"
	OpCloseTable                 OperationType = "CLOSE_TABLE"
	OpCreateInventoryTransaction OperationType = "CREATE_INVENTORY_TRANSACTION"
	OpCreateIngredient           OperationType = "CREATE_INGREDIENT"
	OpUpdateIngredient           OperationType = "UPDATE_INGREDIENT"
	OpCreateMenuItem             OperationType = "CREATE_MENU_ITEM"
	OpUpdateMenuItem             OperationType = "UPDATE_MENU_ITEM"
	OpCreateTransfer             OperationType = "CREATE_TRANSFER"
	OpCreatePurchaseOrder        OperationType = "CREATE_PURCHASE_ORDER"
	OpUpdatePurchaseOrder        OperationType = "UPDATE_PURCHASE_ORDER"
	OpCreateReceiptSettings      OperationType = "CREATE_RECEIPT_SETTINGS"
	OpUpdateReceiptSettings      OperationType = "UPDATE_RECEIPT_SETTINGS"
)

// knownOperations используется для валидации типа на границе запроса
var knownOperations = map[OperationType]struct{}{
	OpCreateOrder: {}, OpUpdateOrder: {},
	OpCreateInventory: {}, OpUpdateInventory: {},
	OpCreateWaste: {},
	OpCreateShift: {}, OpUpdateShift: {}, OpCloseShift: {},
	OpCreateCustomer: {}, OpUpdateCustomer: {},
	OpUpdateUser:         {},
	OpCreateDailyExpense: {}, OpCreateVoidedItem: {},
	OpCreatePromoCode: {}, OpUsePromoCode: {},
	OpCreateLoyaltyTransaction: {},
	OpCreateTable:              {}, OpUpdateTable: {}, OpCloseTable: {},
	OpCreateInventoryTransaction: {},
	OpCreateIngredient:           {}, OpUpdateIngredient: {},
	OpCreateMenuItem: {}, OpUpdateMenuItem: {},
	OpCreateTransfer:    {},
	OpCreatePurchaseOrder: {}, OpUpdatePurchaseOrder: {},
	OpCreateReceiptSettings: {}, OpUpdateReceiptSettings: {},
}

// Known сообщает, входит ли тип в закрытый набор операций
func (t OperationType) Known() bool {
	_, ok := knownOperations[t]
	return ok
}

// SyncOperation — одна операция из офлайн-очереди терминала.
// Неизменяема после постановки в пакет.
type SyncOperation struct {
	OperationID    string          `json:"operationId,omitempty"`
	Type           OperationType   `json:"type"`
	Data           json.RawMessage `json:"data"`
	Timestamp      int64           `json:"timestamp"`
	IdempotencyKey string          `json:"idempotencyKey,omitempty"`
}

// ClientTime переводит клиентскую метку (unix ms) во время
func (op SyncOperation) ClientTime() time.Time {
	return time.UnixMilli(op.Timestamp)
}

// IdempotencyRecord — примененный ключ идемпотентности. Append-only:
// повторная вставка того же ключа не считается ошибкой.
type IdempotencyRecord struct {
	Key        string    `json:"key"`
	BranchID   string    `json:"branch_id"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ConflictStatus статус конфликта синхронизации
type ConflictStatus string

const (
	ConflictPending  ConflictStatus = "pending"
	ConflictResolved ConflictStatus = "resolved"
)

// ConflictStrategy стратегия разрешения конфликта
type ConflictStrategy string

const (
	// StrategyLastWriteWins — входящая версия перезаписывает сохраненную
	StrategyLastWriteWins ConflictStrategy = "LAST_WRITE_WINS"
)

// Conflict — расхождение между входящим обновлением и текущим
// состоянием сущности на сервере
type Conflict struct {
	ID              string           `json:"id"`
	EntityType      string           `json:"entity_type"`
	EntityID        string           `json:"entity_id"`
	BranchID        string           `json:"branch_id"`
	IncomingPayload json.RawMessage  `json:"incoming_payload"`
	StoredSnapshot  json.RawMessage  `json:"stored_snapshot"`
	DetectedAt      time.Time        `json:"detected_at"`
	Status          ConflictStatus   `json:"status"`
	Strategy        ConflictStrategy `json:"strategy,omitempty"`
	ResolvedPayload json.RawMessage  `json:"resolved_payload,omitempty"`
	ResolvedBy      string           `json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time       `json:"resolved_at,omitempty"`
}

// SyncDirection направление синхронизации
type SyncDirection string

const (
	DirectionUp   SyncDirection = "up"
	DirectionDown SyncDirection = "down"
)

// SyncStatus итоговый статус пакета
type SyncStatus string

const (
	SyncSuccess SyncStatus = "success"
	SyncPartial SyncStatus = "partial"
	SyncFailed  SyncStatus = "failed"
)

// SyncHistoryEntry — запись журнала о выполненном пакете.
// Пишется только если применена хотя бы одна операция;
// OperationCount всегда равен числу фактически примененных операций.
type SyncHistoryEntry struct {
	ID             string        `json:"id"`
	BranchID       string        `json:"branch_id"`
	Direction      SyncDirection `json:"direction"`
	OperationCount int           `json:"operation_count"`
	StartedAt      time.Time     `json:"started_at"`
	CompletedAt    time.Time     `json:"completed_at"`
	Status         SyncStatus    `json:"status"`
	ErrorDetails   string        `json:"error_details,omitempty"`
}

// EntitySyncState — инкрементальное состояние pull-синхронизации
// по типу сущности в рамках филиала
type EntitySyncState struct {
	BranchID          string    `json:"branch_id"`
	EntityType        string    `json:"entity_type"`
	LastSyncTimestamp time.Time `json:"last_sync_timestamp"`
	LastSyncID        string    `json:"last_sync_id,omitempty"`
	TotalCount        int64     `json:"total_count"`
	SyncEnabled       bool      `json:"sync_enabled"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ConflictStats агрегированная статистика по конфликтам
type ConflictStats struct {
	Total      int            `json:"total"`
	Pending    int            `json:"pending"`
	Resolved   int            `json:"resolved"`
	ByEntity   map[string]int `json:"by_entity"`
	ByStrategy map[string]int `json:"by_strategy"`
}
