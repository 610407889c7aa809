package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// dispatch декодирует операцию и передает ее обработчику сущности.
// Любая ошибка здесь операционная: перехватывается оркестратором и
// не прерывает пакет.
func (s *Service) dispatch(ctx context.Context, bc *batchContext, op SyncOperation) error {
	if !op.Type.Known() {
		return NewDomainError(errBadPayload, "unknown operation type %q", op.Type)
	}

	payload, err := decodePayload(op)
	if err != nil {
		return NewDomainError(err, "decode %s payload: %v", op.Type, err)
	}

	switch p := payload.(type) {
	case *CreateOrderPayload:
		return s.createOrder(ctx, bc, p)
	case *UpdateOrderPayload:
		return s.updateOrder(ctx, bc, p, op)
	case *CreateInventoryPayload:
		return s.createInventoryItem(ctx, bc, p)
	case *UpdateInventoryPayload:
		return s.updateInventoryItem(ctx, bc, p, op)
	case *CreateWastePayload:
		return s.createWaste(ctx, bc, p)
	case *CreateShiftPayload:
		return s.createShift(ctx, bc, p)
	case *UpdateShiftPayload:
		return s.updateShift(ctx, bc, p, op)
	case *CloseShiftPayload:
		return s.closeShift(ctx, bc, p)
	case *CreateCustomerPayload:
		return s.createCustomer(ctx, bc, p)
	case *UpdateCustomerPayload:
		return s.updateCustomer(ctx, bc, p, op)
	case *UpdateUserPayload:
		return s.updateUser(ctx, bc, p, op)
	case *CreateDailyExpensePayload:
		return s.createDailyExpense(ctx, bc, p)
	case *CreateVoidedItemPayload:
		return s.createVoidedItem(ctx, bc, p)
	case *CreatePromoCodePayload:
		return s.createPromoCode(ctx, bc, p)
	case *UsePromoCodePayload:
		return s.usePromoCode(ctx, bc, p)
	case *CreateLoyaltyTransactionPayload:
		return s.createLoyaltyTransaction(ctx, bc, p)
	case *CreateTablePayload:
		return s.createTable(ctx, bc, p)
	case *UpdateTablePayload:
		return s.updateTable(ctx, bc, p, op)
	case *CloseTablePayload:
		return s.closeTable(ctx, bc, p)
	case *CreateInventoryTransactionPayload:
		return s.createInventoryTransaction(ctx, bc, p)
	case *CreateIngredientPayload:
		return s.createIngredient(ctx, bc, p)
	case *UpdateIngredientPayload:
		return s.updateIngredient(ctx, bc, p, op)
	case *CreateMenuItemPayload:
		return s.createMenuItem(ctx, bc, p)
	case *UpdateMenuItemPayload:
		return s.updateMenuItem(ctx, bc, p, op)
	case *CreateTransferPayload:
		return s.createTransfer(ctx, bc, p)
	case *CreatePurchaseOrderPayload:
		return s.createPurchaseOrder(ctx, bc, p)
	case *UpdatePurchaseOrderPayload:
		return s.updatePurchaseOrder(ctx, bc, p, op)
	case *CreateReceiptSettingsPayload:
		return s.createReceiptSettings(ctx, bc, p)
	case *UpdateReceiptSettingsPayload:
		return s.updateReceiptSettings(ctx, bc, p, op)
	default:
		return NewDomainError(errBadPayload, "no handler for operation type %s", op.Type)
	}
}

// durableID выбирает долговременный id создаваемой сущности: клиентский
// id без префикса плейсхолдера используется как есть, плейсхолдер
// заменяется новым uuid и привязывается в таблице пакета
func (bc *batchContext) durableID(clientID string) string {
	if clientID != "" && !IsTempID(clientID) {
		return clientID
	}

	id := uuid.NewString()
	if clientID != "" {
		bc.temps.Bind(clientID, id)
	}
	return id
}

// resolveTarget разрешает id сущности, на которую нацелена операция.
// Непривязанный плейсхолдер означает, что сущность в этом пакете так
// и не была создана — операционная ошибка.
func (bc *batchContext) resolveTarget(id string) (string, error) {
	if id == "" {
		return "", NewDomainError(errBadPayload, "entity id is required")
	}
	resolved, ok := bc.temps.Resolve(id)
	if !ok {
		return "", NewDomainError(ErrEntityNotFound, "unresolved placeholder id %q", id)
	}
	return resolved, nil
}

// noteConflict прогоняет update-операцию через менеджер конфликтов.
// Конфликт — не ошибка: он фиксируется, считается и разрешается в
// конце пакета, а обновление все равно применяется (LAST_WRITE_WINS).
// Ошибка самой детекции логируется и не мешает применению.
func (s *Service) noteConflict(ctx context.Context, bc *batchContext, entityType, entityID string, op SyncOperation, stored any, storedUpdatedAt time.Time) {
	conflict, err := s.conflicts.DetectConflict(
		ctx, entityType, entityID, bc.branchID,
		op.Data, stored, storedUpdatedAt, op.ClientTime(),
	)
	if err != nil {
		s.log.Warn("conflict detection failed",
			"entity_type", entityType, "entity_id", entityID, "error", err)
		return
	}
	if conflict != nil {
		bc.conflictsDetected++
	}
}

func requiredField(field string) error {
	return NewDomainError(errBadPayload, "%s is required", field)
}
