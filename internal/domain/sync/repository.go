package sync

import (
	"context"
	"encoding/json"
	"time"

	"possync/internal/domain/audit"
	"possync/internal/domain/loyalty"
)

// Интерфейсы долговременного хранилища. Движок синхронизации видит
// хранилище только через find/create/update вызовы по сущностям;
// реализация — в infrastructure/storage/postgres.

type BranchStore interface {
	BranchExists(ctx context.Context, branchID string) (bool, error)
}

// Settlement — агрегаты закрытия смены на момент закрытия
type Settlement struct {
	Orders           int
	Subtotal         float64
	LoyaltyDiscounts float64
}

type ShiftStore interface {
	GetShift(ctx context.Context, id string) (*Shift, error)
	CreateShift(ctx context.Context, shift *Shift) error
	UpdateShift(ctx context.Context, shift *Shift) error

	// FindShiftNear ищет смену кассира со стартом в пределах tolerance
	// от start; ErrEntityNotFound, если совпадений нет
	FindShiftNear(ctx context.Context, branchID, cashierID string, start time.Time, tolerance time.Duration) (*Shift, error)
	// FindOpenShiftNear — то же, но только среди открытых смен,
	// окно считается от момента закрытия
	FindOpenShiftNear(ctx context.Context, branchID, cashierID string, at time.Time, tolerance time.Duration) (*Shift, error)
	// LatestOpenShift возвращает последнюю открытую смену кассира
	LatestOpenShift(ctx context.Context, branchID, cashierID string) (*Shift, error)
	// LatestShiftWithin возвращает последнюю смену кассира в любом
	// состоянии, открытую не раньше чем за tolerance до at
	LatestShiftWithin(ctx context.Context, branchID, cashierID string, at time.Time, tolerance time.Duration) (*Shift, error)

	// ShiftSettlement считает агрегаты закрытия: число заказов смены,
	// сумму их subtotal и расходы категории "Loyalty Discounts"
	ShiftSettlement(ctx context.Context, shiftID string) (*Settlement, error)
}

type OrderStore interface {
	GetOrder(ctx context.Context, id string) (*Order, error)
	CreateOrder(ctx context.Context, order *Order) error
	UpdateOrder(ctx context.Context, order *Order) error
}

type CustomerStore interface {
	GetCustomer(ctx context.Context, id string) (*Customer, error)
	CreateCustomer(ctx context.Context, customer *Customer) error
	UpdateCustomer(ctx context.Context, customer *Customer) error
	FindCustomerByPhone(ctx context.Context, branchID, phone string) (*Customer, error)
}

type UserStore interface {
	GetUser(ctx context.Context, id string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
}

type InventoryStore interface {
	GetInventoryItem(ctx context.Context, id string) (*InventoryItem, error)
	CreateInventoryItem(ctx context.Context, item *InventoryItem) error
	UpdateInventoryItem(ctx context.Context, item *InventoryItem) error

	CreateInventoryTransaction(ctx context.Context, tx *InventoryTransaction) error
	CreateWasteEntry(ctx context.Context, waste *WasteEntry) error

	GetIngredient(ctx context.Context, id string) (*Ingredient, error)
	CreateIngredient(ctx context.Context, ing *Ingredient) error
	UpdateIngredient(ctx context.Context, ing *Ingredient) error
	// DeductIngredientStock уменьшает остаток и пишет append-only
	// проводку в одной транзакции; ErrInsufficientStock, если остаток
	// ушел бы в минус
	DeductIngredientStock(ctx context.Context, ingredientID string, quantity float64, referenceID string) error
	// DeductIngredientUsages списывает весь расход заказа в одной
	// транзакции: либо применяются все списания с проводками, либо ни
	// одно — нехватка любого ингредиента откатывает остальные
	DeductIngredientUsages(ctx context.Context, deductions []StockDeduction, referenceID string) error
}

// StockDeduction — одно списание в составе расхода заказа
type StockDeduction struct {
	IngredientID string
	Quantity     float64
}

type CatalogStore interface {
	GetMenuItem(ctx context.Context, id string) (*MenuItem, error)
	CreateMenuItem(ctx context.Context, item *MenuItem) error
	UpdateMenuItem(ctx context.Context, item *MenuItem) error

	FindPromoCodeByCode(ctx context.Context, branchID, code string) (*PromoCode, error)
	CreatePromoCode(ctx context.Context, promo *PromoCode) error
	// ConsumePromoCode атомарно увеличивает used_count с проверкой
	// лимита и активности; ErrPromoExhausted при отказе
	ConsumePromoCode(ctx context.Context, id string) error
}

type VenueStore interface {
	GetTable(ctx context.Context, id string) (*Table, error)
	CreateTable(ctx context.Context, table *Table) error
	UpdateTable(ctx context.Context, table *Table) error
}

type ExpenseStore interface {
	CreateDailyExpense(ctx context.Context, expense *DailyExpense) error
	CreateVoidedItem(ctx context.Context, item *VoidedItem) error
	CreateTransfer(ctx context.Context, transfer *Transfer) error

	GetPurchaseOrder(ctx context.Context, id string) (*PurchaseOrder, error)
	CreatePurchaseOrder(ctx context.Context, po *PurchaseOrder) error
	UpdatePurchaseOrder(ctx context.Context, po *PurchaseOrder) error

	GetReceiptSettings(ctx context.Context, branchID string) (*ReceiptSettings, error)
	CreateReceiptSettings(ctx context.Context, rs *ReceiptSettings) error
	UpdateReceiptSettings(ctx context.Context, rs *ReceiptSettings) error
}

// SyncStateStore — таблицы, принадлежащие самому движку:
// ключи идемпотентности, конфликты, журнал, pull-состояние.
type SyncStateStore interface {
	CheckIdempotencyKey(ctx context.Context, key string) (bool, error)
	RecordIdempotencyKey(ctx context.Context, key, branchID string) error

	SaveConflict(ctx context.Context, conflict *Conflict) error
	GetConflict(ctx context.Context, id string) (*Conflict, error)
	PendingConflicts(ctx context.Context) ([]*Conflict, error)
	ListConflicts(ctx context.Context, branchID string, limit int) ([]*Conflict, error)
	MarkConflictResolved(ctx context.Context, conflict *Conflict) error
	ConflictCounts(ctx context.Context) (*ConflictStats, error)

	SaveHistoryEntry(ctx context.Context, entry *SyncHistoryEntry) error
	ListHistory(ctx context.Context, branchID string, limit int) ([]*SyncHistoryEntry, error)

	GetEntitySyncState(ctx context.Context, branchID, entityType string) (*EntitySyncState, error)
	UpsertEntitySyncState(ctx context.Context, state *EntitySyncState) error
	ListEntitySyncStates(ctx context.Context, branchID string) ([]*EntitySyncState, error)

	// ChangedEntities возвращает сущности типа entityType, измененные
	// после since — источник инкрементального pull
	ChangedEntities(ctx context.Context, branchID, entityType string, since time.Time, limit int) ([]json.RawMessage, error)
}

// Store — полный контракт хранилища для движка
type Store interface {
	BranchStore
	ShiftStore
	OrderStore
	CustomerStore
	UserStore
	InventoryStore
	CatalogStore
	VenueStore
	ExpenseStore
	SyncStateStore
}

// LoyaltyService начисляет и проводит баллы. AwardPoints вызывается
// best-effort: отказ логируется и не роняет операцию.
type LoyaltyService interface {
	AwardPoints(ctx context.Context, customerID, orderID string, subtotal float64) (*loyalty.Award, error)
	RecordTransaction(ctx context.Context, tx *loyalty.Transaction) error
}

// Auditor — журнал аудита. Вызывается fire-and-forget после успешных
// мутаций заказов и промокодов.
type Auditor interface {
	Record(ctx context.Context, event audit.Event) error
}
