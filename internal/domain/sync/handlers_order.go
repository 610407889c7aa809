package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"possync/internal/domain/audit"
)

// createOrder применяет CREATE_ORDER. Ссылки на смену, гостя и стол
// разрешаются через таблицу пакета; неразрешенный плейсхолдер
// обнуляет поле — заказ создается без связи, а не падает целиком.
// Списание ингредиентов идет тем же путем, что и у любого другого
// создания заказа: атомарный декремент с проводкой в леджер.
func (s *Service) createOrder(ctx context.Context, bc *batchContext, p *CreateOrderPayload) error {
	if len(p.Items) == 0 && p.Subtotal <= 0 {
		return requiredField("items")
	}

	orderID := bc.durableID(p.ID)

	// расход ингредиентов до записи заказа: нехватка остатка — отказ
	// всей операции до появления строки заказа. Все списания заказа
	// идут одной транзакцией: частично списанный проваленный заказ при
	// ретрае списал бы ингредиенты дважды.
	deductions := make([]StockDeduction, 0)
	for _, item := range p.Items {
		for _, usage := range item.Ingredients {
			ingredientID, ok := bc.temps.Resolve(usage.IngredientID)
			if !ok {
				return NewDomainError(ErrEntityNotFound,
					"unresolved ingredient reference %q", usage.IngredientID)
			}
			deductions = append(deductions, StockDeduction{
				IngredientID: ingredientID,
				Quantity:     usage.Quantity * item.Quantity,
			})
		}
	}
	if err := s.store.DeductIngredientUsages(ctx, deductions, orderID); err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			return NewDomainError(err, "insufficient ingredient stock for order")
		}
		return fmt.Errorf("deduct ingredient stock: %w", err)
	}

	items := make([]OrderItem, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, OrderItem{
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
		})
	}

	status := p.Status
	if status == "" {
		status = "completed"
	}

	order := &Order{
		ID:         orderID,
		BranchID:   bc.branchID,
		ShiftID:    bc.temps.ResolveRef(p.ShiftID),
		CustomerID: bc.temps.ResolveRef(p.CustomerID),
		TableID:    bc.temps.ResolveRef(p.TableID),
		Status:     status,
		Subtotal:   p.Subtotal,
		Discount:   p.Discount,
		Total:      p.Total,
		Items:      items,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	// начисление баллов — best-effort: отказ логируется, заказ уже создан
	if order.CustomerID != nil && s.loyalty != nil {
		if _, err := s.loyalty.AwardPoints(ctx, *order.CustomerID, order.ID, order.Subtotal); err != nil {
			s.log.Warn("loyalty award failed",
				"order_id", order.ID, "customer_id", *order.CustomerID, "error", err)
		}
	}

	s.recordAudit(ctx, audit.Event{
		Action:     "order.created",
		EntityType: "orders",
		EntityID:   order.ID,
		BranchID:   bc.branchID,
		Details:    map[string]any{"total": order.Total, "items": len(order.Items)},
	})

	return nil
}

func (s *Service) updateOrder(ctx context.Context, bc *batchContext, p *UpdateOrderPayload, op SyncOperation) error {
	id, err := bc.resolveTarget(p.ID)
	if err != nil {
		return err
	}

	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return fmt.Errorf("get order %s: %w", id, err)
	}

	s.noteConflict(ctx, bc, "orders", id, op, order, order.UpdatedAt)

	if p.Status != nil {
		order.Status = *p.Status
	}
	if p.Subtotal != nil {
		order.Subtotal = *p.Subtotal
	}
	if p.Discount != nil {
		order.Discount = *p.Discount
	}
	if p.Total != nil {
		order.Total = *p.Total
	}
	if p.TableID != nil {
		order.TableID = bc.temps.ResolveRef(p.TableID)
	}
	order.UpdatedAt = time.Now()

	if err := s.store.UpdateOrder(ctx, order); err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	s.recordAudit(ctx, audit.Event{
		Action:     "order.updated",
		EntityType: "orders",
		EntityID:   order.ID,
		BranchID:   bc.branchID,
	})

	return nil
}

func (s *Service) createVoidedItem(ctx context.Context, bc *batchContext, p *CreateVoidedItemPayload) error {
	if p.Quantity <= 0 {
		return requiredField("quantity")
	}

	item := &VoidedItem{
		ID:         bc.durableID(p.ID),
		BranchID:   bc.branchID,
		OrderID:    bc.temps.ResolveRef(p.OrderID),
		MenuItemID: bc.temps.ResolveRef(p.MenuItemID),
		Quantity:   p.Quantity,
		Reason:     p.Reason,
		VoidedBy:   bc.temps.ResolveRef(p.VoidedBy),
		CreatedAt:  time.Now(),
	}

	if err := s.store.CreateVoidedItem(ctx, item); err != nil {
		return fmt.Errorf("create voided item: %w", err)
	}
	return nil
}

// recordAudit пишет событие аудита fire-and-forget: подавление ошибки
// здесь намеренное и видимое, отказ журнала не роняет синхронизацию
func (s *Service) recordAudit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, event); err != nil {
		s.log.Warn("audit record failed", "action", event.Action, "error", err)
	}
}
