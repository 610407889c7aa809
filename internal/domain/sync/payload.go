package sync

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Типизированные полезные нагрузки операций. Сырые данные операции —
// tagged union по OperationType: декодируются и проверяются на границе,
// обработчики дальше работают только с типизированными структурами.

var errBadPayload = errors.New("malformed operation payload")

// IngredientUsage — расход ингредиента позицией заказа
type IngredientUsage struct {
	IngredientID string  `json:"ingredientId"`
	Quantity     float64 `json:"quantity"`
}

// OrderItemPayload — позиция заказа в составе операции
type OrderItemPayload struct {
	MenuItemID  string            `json:"menuItemId"`
	Name        string            `json:"name"`
	Quantity    float64           `json:"quantity"`
	UnitPrice   float64           `json:"unitPrice"`
	Ingredients []IngredientUsage `json:"ingredients,omitempty"`
}

type CreateOrderPayload struct {
	ID         string             `json:"id"`
	ShiftID    *string            `json:"shiftId,omitempty"`
	CustomerID *string            `json:"customerId,omitempty"`
	TableID    *string            `json:"tableId,omitempty"`
	Status     string             `json:"status,omitempty"`
	Subtotal   float64            `json:"subtotal"`
	Discount   float64            `json:"discount,omitempty"`
	Total      float64            `json:"total"`
	Items      []OrderItemPayload `json:"items,omitempty"`
}

type UpdateOrderPayload struct {
	ID       string   `json:"id"`
	Status   *string  `json:"status,omitempty"`
	Subtotal *float64 `json:"subtotal,omitempty"`
	Discount *float64 `json:"discount,omitempty"`
	Total    *float64 `json:"total,omitempty"`
	TableID  *string  `json:"tableId,omitempty"`
}

type CreateInventoryPayload struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Unit     string  `json:"unit,omitempty"`
	Quantity float64 `json:"quantity"`
	MinLevel float64 `json:"minLevel,omitempty"`
}

type UpdateInventoryPayload struct {
	ID       string   `json:"id"`
	Name     *string  `json:"name,omitempty"`
	Unit     *string  `json:"unit,omitempty"`
	Quantity *float64 `json:"quantity,omitempty"`
	MinLevel *float64 `json:"minLevel,omitempty"`
}

type CreateWastePayload struct {
	ID           string  `json:"id"`
	IngredientID *string `json:"ingredientId,omitempty"`
	Quantity     float64 `json:"quantity"`
	Reason       string  `json:"reason,omitempty"`
	RecordedBy   *string `json:"recordedBy,omitempty"`
}

type CreateShiftPayload struct {
	ID          string  `json:"id"`
	CashierID   string  `json:"cashierId"`
	StartTime   string  `json:"startTime"`
	OpeningCash float64 `json:"openingCash,omitempty"`
}

type UpdateShiftPayload struct {
	ID          string   `json:"id"`
	OpeningCash *float64 `json:"openingCash,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
}

type CloseShiftPayload struct {
	ID          string   `json:"id"`
	CashierID   string   `json:"cashierId,omitempty"`
	EndTime     string   `json:"endTime"`
	ClosingCash *float64 `json:"closingCash,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
}

type CreateCustomerPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

type UpdateCustomerPayload struct {
	ID    string  `json:"id"`
	Name  *string `json:"name,omitempty"`
	Phone *string `json:"phone,omitempty"`
	Email *string `json:"email,omitempty"`
}

type UpdateUserPayload struct {
	ID       string  `json:"id"`
	Name     *string `json:"name,omitempty"`
	Role     *string `json:"role,omitempty"`
	IsActive *bool   `json:"isActive,omitempty"`
}

type CreateDailyExpensePayload struct {
	ID          string  `json:"id"`
	ShiftID     *string `json:"shiftId,omitempty"`
	Category    string  `json:"category"`
	Description string  `json:"description,omitempty"`
	Amount      float64 `json:"amount"`
}

type CreateVoidedItemPayload struct {
	ID         string  `json:"id"`
	OrderID    *string `json:"orderId,omitempty"`
	MenuItemID *string `json:"menuItemId,omitempty"`
	Quantity   float64 `json:"quantity"`
	Reason     string  `json:"reason,omitempty"`
	VoidedBy   *string `json:"voidedBy,omitempty"`
}

type CreatePromoCodePayload struct {
	ID        string  `json:"id"`
	Code      string  `json:"code"`
	Discount  float64 `json:"discount"`
	IsPercent bool    `json:"isPercent,omitempty"`
	MaxUses   int     `json:"maxUses,omitempty"`
	ExpiresAt *string `json:"expiresAt,omitempty"`
}

type UsePromoCodePayload struct {
	Code    string  `json:"code"`
	OrderID *string `json:"orderId,omitempty"`
}

type CreateLoyaltyTransactionPayload struct {
	ID         string  `json:"id"`
	CustomerID string  `json:"customerId"`
	OrderID    *string `json:"orderId,omitempty"`
	Points     int64   `json:"points"`
	Kind       string  `json:"kind,omitempty"`
}

type CreateTablePayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Seats int    `json:"seats,omitempty"`
}

type UpdateTablePayload struct {
	ID      string  `json:"id"`
	Name    *string `json:"name,omitempty"`
	Seats   *int    `json:"seats,omitempty"`
	Status  *string `json:"status,omitempty"`
	OrderID *string `json:"orderId,omitempty"`
}

type CloseTablePayload struct {
	ID string `json:"id"`
}

type CreateInventoryTransactionPayload struct {
	ID       string  `json:"id"`
	ItemID   *string `json:"itemId,omitempty"`
	Kind     string  `json:"kind"`
	Quantity float64 `json:"quantity"`
	Notes    string  `json:"notes,omitempty"`
}

type CreateIngredientPayload struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Unit  string  `json:"unit,omitempty"`
	Stock float64 `json:"stock"`
	Cost  float64 `json:"cost,omitempty"`
}

type UpdateIngredientPayload struct {
	ID    string   `json:"id"`
	Name  *string  `json:"name,omitempty"`
	Unit  *string  `json:"unit,omitempty"`
	Stock *float64 `json:"stock,omitempty"`
	Cost  *float64 `json:"cost,omitempty"`
}

type CreateMenuItemPayload struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category,omitempty"`
	Price       float64 `json:"price"`
	IsAvailable *bool   `json:"isAvailable,omitempty"`
}

type UpdateMenuItemPayload struct {
	ID          string   `json:"id"`
	Name        *string  `json:"name,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	IsAvailable *bool    `json:"isAvailable,omitempty"`
}

type CreateTransferPayload struct {
	ID         string  `json:"id"`
	ToBranchID string  `json:"toBranchId"`
	ItemID     *string `json:"itemId,omitempty"`
	Quantity   float64 `json:"quantity"`
}

type CreatePurchaseOrderPayload struct {
	ID       string  `json:"id"`
	Supplier string  `json:"supplier"`
	Total    float64 `json:"total,omitempty"`
}

type UpdatePurchaseOrderPayload struct {
	ID     string   `json:"id"`
	Status *string  `json:"status,omitempty"`
	Total  *float64 `json:"total,omitempty"`
}

type CreateReceiptSettingsPayload struct {
	ID       string `json:"id"`
	Header   string `json:"header,omitempty"`
	Footer   string `json:"footer,omitempty"`
	ShowLogo bool   `json:"showLogo,omitempty"`
	TaxID    string `json:"taxId,omitempty"`
}

type UpdateReceiptSettingsPayload struct {
	ID       string  `json:"id"`
	Header   *string `json:"header,omitempty"`
	Footer   *string `json:"footer,omitempty"`
	ShowLogo *bool   `json:"showLogo,omitempty"`
	TaxID    *string `json:"taxId,omitempty"`
}

// decodePayload декодирует данные операции в типизированную структуру
// ее типа. Ошибка декодирования остается в границах операции.
func decodePayload(op SyncOperation) (any, error) {
	var (
		payload any
		err     error
	)

	unmarshal := func(v any) error {
		if len(op.Data) == 0 {
			return fmt.Errorf("%w: empty data", errBadPayload)
		}
		if err := json.Unmarshal(op.Data, v); err != nil {
			return fmt.Errorf("%w: %v", errBadPayload, err)
		}
		return nil
	}

	switch op.Type {
	case OpCreateOrder:
		payload, err = decodeAs[CreateOrderPayload](unmarshal)
	case OpUpdateOrder:
		payload, err = decodeAs[UpdateOrderPayload](unmarshal)
	case OpCreateInventory:
		payload, err = decodeAs[CreateInventoryPayload](unmarshal)
	case OpUpdateInventory:
		payload, err = decodeAs[UpdateInventoryPayload](unmarshal)
	case OpCreateWaste:
		payload, err = decodeAs[CreateWastePayload](unmarshal)
	case OpCreateShift:
		payload, err = decodeAs[CreateShiftPayload](unmarshal)
	case OpUpdateShift:
		payload, err = decodeAs[UpdateShiftPayload](unmarshal)
	case OpCloseShift:
		payload, err = decodeAs[CloseShiftPayload](unmarshal)
	case OpCreateCustomer:
		payload, err = decodeAs[CreateCustomerPayload](unmarshal)
	case OpUpdateCustomer:
		payload, err = decodeAs[UpdateCustomerPayload](unmarshal)
	case OpUpdateUser:
		payload, err = decodeAs[UpdateUserPayload](unmarshal)
	case OpCreateDailyExpense:
		payload, err = decodeAs[CreateDailyExpensePayload](unmarshal)
	case OpCreateVoidedItem:
		payload, err = decodeAs[CreateVoidedItemPayload](unmarshal)
	case OpCreatePromoCode:
		payload, err = decodeAs[CreatePromoCodePayload](unmarshal)
	case OpUsePromoCode:
		payload, err = decodeAs[UsePromoCodePayload](unmarshal)
	case OpCreateLoyaltyTransaction:
		payload, err = decodeAs[CreateLoyaltyTransactionPayload](unmarshal)
	case OpCreateTable:
		payload, err = decodeAs[CreateTablePayload](unmarshal)
	case OpUpdateTable:
		payload, err = decodeAs[UpdateTablePayload](unmarshal)
	case OpCloseTable:
		payload, err = decodeAs[CloseTablePayload](unmarshal)
	case OpCreateInventoryTransaction:
		payload, err = decodeAs[CreateInventoryTransactionPayload](unmarshal)
	case OpCreateIngredient:
		payload, err = decodeAs[CreateIngredientPayload](unmarshal)
	case OpUpdateIngredient:
		payload, err = decodeAs[UpdateIngredientPayload](unmarshal)
	case OpCreateMenuItem:
		payload, err = decodeAs[CreateMenuItemPayload](unmarshal)
	case OpUpdateMenuItem:
		payload, err = decodeAs[UpdateMenuItemPayload](unmarshal)
	case OpCreateTransfer:
		payload, err = decodeAs[CreateTransferPayload](unmarshal)
	case OpCreatePurchaseOrder:
		payload, err = decodeAs[CreatePurchaseOrderPayload](unmarshal)
	case OpUpdatePurchaseOrder:
		payload, err = decodeAs[UpdatePurchaseOrderPayload](unmarshal)
	case OpCreateReceiptSettings:
		payload, err = decodeAs[CreateReceiptSettingsPayload](unmarshal)
	case OpUpdateReceiptSettings:
		payload, err = decodeAs[UpdateReceiptSettingsPayload](unmarshal)
	default:
		return nil, fmt.Errorf("%w: unknown operation type %q", errBadPayload, op.Type)
	}

	if err != nil {
		return nil, err
	}
	return payload, nil
}

func decodeAs[T any](unmarshal func(any) error) (*T, error) {
	var v T
	if err := unmarshal(&v); err != nil {
		return nil, err
	}
	return &v, nil
}

// payloadFields возвращает поля полезной нагрузки как map — основа
// пополевого сравнения при поиске конфликтов
func payloadFields(data json.RawMessage) map[string]any {
	fields := make(map[string]any)
	if len(data) == 0 {
		return fields
	}
	// ошибки здесь не важны: кривые данные отсеются при decodePayload
	_ = json.Unmarshal(data, &fields)
	return fields
}
