package sync

import "time"

// Сущности POS, которыми оперируют обработчики мутаций.
// Схема самого хранилища (миграции, индексы) живет в infrastructure.

// Branch — филиал, единица партиционирования данных
type Branch struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Shift — кассовая смена; единица инкассации
type Shift struct {
	ID             string     `json:"id"`
	BranchID       string     `json:"branch_id"`
	CashierID      string     `json:"cashier_id"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	OpeningCash    float64    `json:"opening_cash"`
	ClosingCash    float64    `json:"closing_cash"`
	IsClosed       bool       `json:"is_closed"`
	ClosingOrders  int        `json:"closing_orders"`
	ClosingRevenue float64    `json:"closing_revenue"`
	Notes          string     `json:"notes,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Order — заказ, пробитый на терминале
type Order struct {
	ID         string      `json:"id"`
	BranchID   string      `json:"branch_id"`
	ShiftID    *string     `json:"shift_id,omitempty"`
	CustomerID *string     `json:"customer_id,omitempty"`
	TableID    *string     `json:"table_id,omitempty"`
	Status     string      `json:"status"`
	Subtotal   float64     `json:"subtotal"`
	Discount   float64     `json:"discount"`
	Total      float64     `json:"total"`
	Items      []OrderItem `json:"items,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// OrderItem — позиция заказа
type OrderItem struct {
	MenuItemID string  `json:"menu_item_id"`
	Name       string  `json:"name"`
	Quantity   float64 `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
}

// Customer — гость программы лояльности
type Customer struct {
	ID            string    `json:"id"`
	BranchID      string    `json:"branch_id"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email,omitempty"`
	LoyaltyPoints int64     `json:"loyalty_points"`
	Tier          string    `json:"tier,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// User — сотрудник филиала (правится с терминала только частично)
type User struct {
	ID        string    `json:"id"`
	BranchID  string    `json:"branch_id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	PINHash   string    `json:"pin_hash,omitempty"`
	IsActive  bool      `json:"is_active"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InventoryItem — складская позиция готовой продукции
type InventoryItem struct {
	ID        string    `json:"id"`
	BranchID  string    `json:"branch_id"`
	Name      string    `json:"name"`
	Unit      string    `json:"unit"`
	Quantity  float64   `json:"quantity"`
	MinLevel  float64   `json:"min_level"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Ingredient — ингредиент с остатком, расходуемым заказами
type Ingredient struct {
	ID        string    `json:"id"`
	BranchID  string    `json:"branch_id"`
	Name      string    `json:"name"`
	Unit      string    `json:"unit"`
	Stock     float64   `json:"stock"`
	Cost      float64   `json:"cost"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StockLedgerEntry — append-only проводка изменения остатка
type StockLedgerEntry struct {
	ID           string    `json:"id"`
	IngredientID string    `json:"ingredient_id"`
	Delta        float64   `json:"delta"`
	Reason       string    `json:"reason"`
	ReferenceID  string    `json:"reference_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// InventoryTransaction — движение по складу (приход/списание/инвентаризация)
type InventoryTransaction struct {
	ID        string    `json:"id"`
	BranchID  string    `json:"branch_id"`
	ItemID    *string   `json:"item_id,omitempty"`
	Kind      string    `json:"kind"`
	Quantity  float64   `json:"quantity"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// WasteEntry — списание порчи
type WasteEntry struct {
	ID           string    `json:"id"`
	BranchID     string    `json:"branch_id"`
	IngredientID *string   `json:"ingredient_id,omitempty"`
	Quantity     float64   `json:"quantity"`
	Reason       string    `json:"reason"`
	RecordedBy   *string   `json:"recorded_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// DailyExpense — дневной расход филиала; категория
// "Loyalty Discounts" участвует в расчете инкассации смены
type DailyExpense struct {
	ID          string    `json:"id"`
	BranchID    string    `json:"branch_id"`
	ShiftID     *string   `json:"shift_id,omitempty"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	Amount      float64   `json:"amount"`
	CreatedAt   time.Time `json:"created_at"`
}

// VoidedItem — аннулированная позиция
type VoidedItem struct {
	ID         string    `json:"id"`
	BranchID   string    `json:"branch_id"`
	OrderID    *string   `json:"order_id,omitempty"`
	MenuItemID *string   `json:"menu_item_id,omitempty"`
	Quantity   float64   `json:"quantity"`
	Reason     string    `json:"reason,omitempty"`
	VoidedBy   *string   `json:"voided_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// PromoCode — промокод
type PromoCode struct {
	ID         string     `json:"id"`
	BranchID   string     `json:"branch_id"`
	Code       string     `json:"code"`
	Discount   float64    `json:"discount"`
	IsPercent  bool       `json:"is_percent"`
	MaxUses    int        `json:"max_uses"`
	UsedCount  int        `json:"used_count"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Table — стол зала
type Table struct {
	ID        string    `json:"id"`
	BranchID  string    `json:"branch_id"`
	Name      string    `json:"name"`
	Seats     int       `json:"seats"`
	Status    string    `json:"status"`
	OrderID   *string   `json:"order_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MenuItem — позиция меню
type MenuItem struct {
	ID          string    `json:"id"`
	BranchID    string    `json:"branch_id"`
	Name        string    `json:"name"`
	Category    string    `json:"category,omitempty"`
	Price       float64   `json:"price"`
	IsAvailable bool      `json:"is_available"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Transfer — перемещение между филиалами
type Transfer struct {
	ID           string    `json:"id"`
	FromBranchID string    `json:"from_branch_id"`
	ToBranchID   string    `json:"to_branch_id"`
	ItemID       *string   `json:"item_id,omitempty"`
	Quantity     float64   `json:"quantity"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// PurchaseOrder — заказ поставщику
type PurchaseOrder struct {
	ID        string    `json:"id"`
	BranchID  string    `json:"branch_id"`
	Supplier  string    `json:"supplier"`
	Status    string    `json:"status"`
	Total     float64   `json:"total"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReceiptSettings — настройки чека филиала
type ReceiptSettings struct {
	ID        string    `json:"id"`
	BranchID  string    `json:"branch_id"`
	Header    string    `json:"header,omitempty"`
	Footer    string    `json:"footer,omitempty"`
	ShowLogo  bool      `json:"show_logo"`
	TaxID     string    `json:"tax_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
