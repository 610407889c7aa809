package sync

import (
	"context"
	"errors"
	"fmt"
	"time"
)

func (s *Service) createTable(ctx context.Context, bc *batchContext, p *CreateTablePayload) error {
	if p.Name == "" {
		return requiredField("name")
	}

	table := &Table{
		ID:        bc.durableID(p.ID),
		BranchID:  bc.branchID,
		Name:      p.Name,
		Seats:     p.Seats,
		Status:    "free",
		UpdatedAt: time.Now(),
	}

	if err := s.store.CreateTable(ctx, table); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

func (s *Service) updateTable(ctx context.Context, bc *batchContext, p *UpdateTablePayload, op SyncOperation) error {
	id, err := bc.resolveTarget(p.ID)
	if err != nil {
		return err
	}

	table, err := s.store.GetTable(ctx, id)
	if err != nil {
		return fmt.Errorf("get table %s: %w", id, err)
	}

	s.noteConflict(ctx, bc, "tables", id, op, table, table.UpdatedAt)

	if p.Name != nil {
		table.Name = *p.Name
	}
	if p.Seats != nil {
		table.Seats = *p.Seats
	}
	if p.Status != nil {
		table.Status = *p.Status
	}
	if p.OrderID != nil {
		table.OrderID = bc.temps.ResolveRef(p.OrderID)
	}
	table.UpdatedAt = time.Now()

	if err := s.store.UpdateTable(ctx, table); err != nil {
		return fmt.Errorf("update table: %w", err)
	}
	return nil
}

// closeTable применяет CLOSE_TABLE: стол освобождается, связь с
// заказом снимается. Закрытие уже свободного стола — no-op.
func (s *Service) closeTable(ctx context.Context, bc *batchContext, p *CloseTablePayload) error {
	id, err := bc.resolveTarget(p.ID)
	if err != nil {
		return err
	}

	table, err := s.store.GetTable(ctx, id)
	if err != nil {
		return fmt.Errorf("get table %s: %w", id, err)
	}

	if table.Status == "free" && table.OrderID == nil {
		return nil
	}

	table.Status = "free"
	table.OrderID = nil
	table.UpdatedAt = time.Now()

	if err := s.store.UpdateTable(ctx, table); err != nil {
		return fmt.Errorf("close table: %w", err)
	}
	return nil
}

func (s *Service) createReceiptSettings(ctx context.Context, bc *batchContext, p *CreateReceiptSettingsPayload) error {
	// настройки чека единственны на филиал: повторное создание
	// переиспользует существующую строку
	existing, err := s.store.GetReceiptSettings(ctx, bc.branchID)
	if err == nil {
		if p.ID != "" && IsTempID(p.ID) {
			bc.temps.Bind(p.ID, existing.ID)
		}
		return nil
	}
	if !errors.Is(err, ErrEntityNotFound) {
		return fmt.Errorf("get receipt settings: %w", err)
	}

	rs := &ReceiptSettings{
		ID:        bc.durableID(p.ID),
		BranchID:  bc.branchID,
		Header:    p.Header,
		Footer:    p.Footer,
		ShowLogo:  p.ShowLogo,
		TaxID:     p.TaxID,
		UpdatedAt: time.Now(),
	}

	if err := s.store.CreateReceiptSettings(ctx, rs); err != nil {
		return fmt.Errorf("create receipt settings: %w", err)
	}
	return nil
}

func (s *Service) updateReceiptSettings(ctx context.Context, bc *batchContext, p *UpdateReceiptSettingsPayload, op SyncOperation) error {
	rs, err := s.store.GetReceiptSettings(ctx, bc.branchID)
	if err != nil {
		return fmt.Errorf("get receipt settings: %w", err)
	}

	s.noteConflict(ctx, bc, "receipt_settings", rs.ID, op, rs, rs.UpdatedAt)

	if p.Header != nil {
		rs.Header = *p.Header
	}
	if p.Footer != nil {
		rs.Footer = *p.Footer
	}
	if p.ShowLogo != nil {
		rs.ShowLogo = *p.ShowLogo
	}
	if p.TaxID != nil {
		rs.TaxID = *p.TaxID
	}
	rs.UpdatedAt = time.Now()

	if err := s.store.UpdateReceiptSettings(ctx, rs); err != nil {
		return fmt.Errorf("update receipt settings: %w", err)
	}
	return nil
}
