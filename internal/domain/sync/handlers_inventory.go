package sync

import (
	"context"
	"fmt"
	"time"
)

func (s *Service) createInventoryItem(ctx context.Context, bc *batchContext, p *CreateInventoryPayload) error {
	if p.Name == "" {
		return requiredField("name")
	}

	item := &InventoryItem{
		ID:        bc.durableID(p.ID),
		BranchID:  bc.branchID,
		Name:      p.Name,
		Unit:      p.Unit,
		Quantity:  p.Quantity,
		MinLevel:  p.MinLevel,
		UpdatedAt: time.Now(),
	}

	if err := s.store.CreateInventoryItem(ctx, item); err != nil {
		return fmt.Errorf("create inventory item: %w", err)
	}
	return nil
}

func (s *Service) updateInventoryItem(ctx context.Context, bc *batchContext, p *UpdateInventoryPayload, op SyncOperation) error {
	id, err := bc.resolveTarget(p.ID)
	if err != nil {
		return err
	}

	item, err := s.store.GetInventoryItem(ctx, id)
	if err != nil {
		return fmt.Errorf("get inventory item %s: %w", id, err)
	}

	s.noteConflict(ctx, bc, "inventory_items", id, op, item, item.UpdatedAt)

	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Unit != nil {
		item.Unit = *p.Unit
	}
	if p.Quantity != nil {
		item.Quantity = *p.Quantity
	}
	if p.MinLevel != nil {
		item.MinLevel = *p.MinLevel
	}
	item.UpdatedAt = time.Now()

	if err := s.store.UpdateInventoryItem(ctx, item); err != nil {
		return fmt.Errorf("update inventory item: %w", err)
	}
	return nil
}

func (s *Service) createWaste(ctx context.Context, bc *batchContext, p *CreateWastePayload) error {
	if p.Quantity <= 0 {
		return requiredField("quantity")
	}

	waste := &WasteEntry{
		ID:           bc.durableID(p.ID),
		BranchID:     bc.branchID,
		IngredientID: bc.temps.ResolveRef(p.IngredientID),
		Quantity:     p.Quantity,
		Reason:       p.Reason,
		RecordedBy:   bc.temps.ResolveRef(p.RecordedBy),
		CreatedAt:    time.Now(),
	}

	if err := s.store.CreateWasteEntry(ctx, waste); err != nil {
		return fmt.Errorf("create waste entry: %w", err)
	}

	// порча уменьшает остаток тем же атомарным путем, что и заказы
	if waste.IngredientID != nil {
		if err := s.store.DeductIngredientStock(ctx, *waste.IngredientID, p.Quantity, waste.ID); err != nil {
			return fmt.Errorf("deduct wasted stock: %w", err)
		}
	}

	return nil
}

func (s *Service) createInventoryTransaction(ctx context.Context, bc *batchContext, p *CreateInventoryTransactionPayload) error {
	if p.Kind == "" {
		return requiredField("kind")
	}

	tx := &InventoryTransaction{
		ID:        bc.durableID(p.ID),
		BranchID:  bc.branchID,
		ItemID:    bc.temps.ResolveRef(p.ItemID),
		Kind:      p.Kind,
		Quantity:  p.Quantity,
		Notes:     p.Notes,
		CreatedAt: time.Now(),
	}

	if err := s.store.CreateInventoryTransaction(ctx, tx); err != nil {
		return fmt.Errorf("create inventory transaction: %w", err)
	}
	return nil
}

func (s *Service) createIngredient(ctx context.Context, bc *batchContext, p *CreateIngredientPayload) error {
	if p.Name == "" {
		return requiredField("name")
	}

	ing := &Ingredient{
		ID:        bc.durableID(p.ID),
		BranchID:  bc.branchID,
		Name:      p.Name,
		Unit:      p.Unit,
		Stock:     p.Stock,
		Cost:      p.Cost,
		UpdatedAt: time.Now(),
	}

	if err := s.store.CreateIngredient(ctx, ing); err != nil {
		return fmt.Errorf("create ingredient: %w", err)
	}
	return nil
}

func (s *Service) updateIngredient(ctx context.Context, bc *batchContext, p *UpdateIngredientPayload, op SyncOperation) error {
	id, err := bc.resolveTarget(p.ID)
	if err != nil {
		return err
	}

	ing, err := s.store.GetIngredient(ctx, id)
	if err != nil {
		return fmt.Errorf("get ingredient %s: %w", id, err)
	}

	s.noteConflict(ctx, bc, "ingredients", id, op, ing, ing.UpdatedAt)

	if p.Name != nil {
		ing.Name = *p.Name
	}
	if p.Unit != nil {
		ing.Unit = *p.Unit
	}
	if p.Stock != nil {
		ing.Stock = *p.Stock
	}
	if p.Cost != nil {
		ing.Cost = *p.Cost
	}
	ing.UpdatedAt = time.Now()

	if err := s.store.UpdateIngredient(ctx, ing); err != nil {
		return fmt.Errorf("update ingredient: %w", err)
	}
	return nil
}

func (s *Service) createTransfer(ctx context.Context, bc *batchContext, p *CreateTransferPayload) error {
	if p.ToBranchID == "" {
		return requiredField("toBranchId")
	}

	exists, err := s.store.BranchExists(ctx, p.ToBranchID)
	if err != nil {
		return fmt.Errorf("check destination branch: %w", err)
	}
	if !exists {
		return NewDomainError(ErrEntityNotFound,
			"destination branch %q not found", p.ToBranchID)
	}

	transfer := &Transfer{
		ID:           bc.durableID(p.ID),
		FromBranchID: bc.branchID,
		ToBranchID:   p.ToBranchID,
		ItemID:       bc.temps.ResolveRef(p.ItemID),
		Quantity:     p.Quantity,
		Status:       "pending",
		CreatedAt:    time.Now(),
	}

	if err := s.store.CreateTransfer(ctx, transfer); err != nil {
		return fmt.Errorf("create transfer: %w", err)
	}
	return nil
}

func (s *Service) createPurchaseOrder(ctx context.Context, bc *batchContext, p *CreatePurchaseOrderPayload) error {
	if p.Supplier == "" {
		return requiredField("supplier")
	}

	po := &PurchaseOrder{
		ID:        bc.durableID(p.ID),
		BranchID:  bc.branchID,
		Supplier:  p.Supplier,
		Status:    "draft",
		Total:     p.Total,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := s.store.CreatePurchaseOrder(ctx, po); err != nil {
		return fmt.Errorf("create purchase order: %w", err)
	}
	return nil
}

func (s *Service) updatePurchaseOrder(ctx context.Context, bc *batchContext, p *UpdatePurchaseOrderPayload, op SyncOperation) error {
	id, err := bc.resolveTarget(p.ID)
	if err != nil {
		return err
	}

	po, err := s.store.GetPurchaseOrder(ctx, id)
	if err != nil {
		return fmt.Errorf("get purchase order %s: %w", id, err)
	}

	s.noteConflict(ctx, bc, "purchase_orders", id, op, po, po.UpdatedAt)

	if p.Status != nil {
		po.Status = *p.Status
	}
	if p.Total != nil {
		po.Total = *p.Total
	}
	po.UpdatedAt = time.Now()

	if err := s.store.UpdatePurchaseOrder(ctx, po); err != nil {
		return fmt.Errorf("update purchase order: %w", err)
	}
	return nil
}
