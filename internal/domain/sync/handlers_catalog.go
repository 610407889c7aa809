package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"possync/internal/domain/audit"
)

func (s *Service) createMenuItem(ctx context.Context, bc *batchContext, p *CreateMenuItemPayload) error {
	if p.Name == "" {
		return requiredField("name")
	}

	available := true
	if p.IsAvailable != nil {
		available = *p.IsAvailable
	}

	item := &MenuItem{
		ID:          bc.durableID(p.ID),
		BranchID:    bc.branchID,
		Name:        p.Name,
		Category:    p.Category,
		Price:       p.Price,
		IsAvailable: available,
		UpdatedAt:   time.Now(),
	}

	if err := s.store.CreateMenuItem(ctx, item); err != nil {
		return fmt.Errorf("create menu item: %w", err)
	}
	return nil
}

func (s *Service) updateMenuItem(ctx context.Context, bc *batchContext, p *UpdateMenuItemPayload, op SyncOperation) error {
	id, err := bc.resolveTarget(p.ID)
	if err != nil {
		return err
	}

	item, err := s.store.GetMenuItem(ctx, id)
	if err != nil {
		return fmt.Errorf("get menu item %s: %w", id, err)
	}

	s.noteConflict(ctx, bc, "menu_items", id, op, item, item.UpdatedAt)

	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	if p.Price != nil {
		item.Price = *p.Price
	}
	if p.IsAvailable != nil {
		item.IsAvailable = *p.IsAvailable
	}
	item.UpdatedAt = time.Now()

	if err := s.store.UpdateMenuItem(ctx, item); err != nil {
		return fmt.Errorf("update menu item: %w", err)
	}
	return nil
}

func (s *Service) createPromoCode(ctx context.Context, bc *batchContext, p *CreatePromoCodePayload) error {
	if p.Code == "" {
		return requiredField("code")
	}

	promo := &PromoCode{
		ID:        bc.durableID(p.ID),
		BranchID:  bc.branchID,
		Code:      p.Code,
		Discount:  p.Discount,
		IsPercent: p.IsPercent,
		MaxUses:   p.MaxUses,
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if p.ExpiresAt != nil {
		expires, err := parseClientTime(*p.ExpiresAt)
		if err != nil {
			return NewDomainError(errBadPayload, "expiresAt does not parse: %v", err)
		}
		promo.ExpiresAt = &expires
	}

	if err := s.store.CreatePromoCode(ctx, promo); err != nil {
		return fmt.Errorf("create promo code: %w", err)
	}

	s.recordAudit(ctx, audit.Event{
		Action:     "promo.created",
		EntityType: "promo_codes",
		EntityID:   promo.ID,
		BranchID:   bc.branchID,
		Details:    map[string]any{"code": promo.Code},
	})

	return nil
}

// usePromoCode применяет USE_PROMO_CODE: атомарное погашение с
// проверкой лимита на стороне хранилища
func (s *Service) usePromoCode(ctx context.Context, bc *batchContext, p *UsePromoCodePayload) error {
	if p.Code == "" {
		return requiredField("code")
	}

	promo, err := s.store.FindPromoCodeByCode(ctx, bc.branchID, p.Code)
	if err != nil {
		if errors.Is(err, ErrEntityNotFound) {
			return NewDomainError(err, "promo code %q not found", p.Code)
		}
		return fmt.Errorf("find promo code: %w", err)
	}

	if promo.ExpiresAt != nil && promo.ExpiresAt.Before(time.Now()) {
		return NewDomainError(ErrPromoExhausted, "promo code %q expired", p.Code)
	}

	if err := s.store.ConsumePromoCode(ctx, promo.ID); err != nil {
		if errors.Is(err, ErrPromoExhausted) {
			return NewDomainError(err, "promo code %q exhausted", p.Code)
		}
		return fmt.Errorf("consume promo code: %w", err)
	}

	s.recordAudit(ctx, audit.Event{
		Action:     "promo.used",
		EntityType: "promo_codes",
		EntityID:   promo.ID,
		BranchID:   bc.branchID,
		Details:    map[string]any{"code": promo.Code},
	})

	return nil
}
