package postgres

import (
	"context"
	"errors"
	"fmt"

	"possync/internal/domain/sync"

	"github.com/jackc/pgx/v5"
)

func (s *Store) GetMenuItem(ctx context.Context, id string) (*sync.MenuItem, error) {
	const query = `
		SELECT id, branch_id, name, category, price, is_available, updated_at
		FROM menu_items
		WHERE id = $1`

	var item sync.MenuItem
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&item.ID, &item.BranchID, &item.Name, &item.Category,
		&item.Price, &item.IsAvailable, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sync.ErrEntityNotFound
		}
		return nil, fmt.Errorf("get menu item: %w", err)
	}
	return &item, nil
}

func (s *Store) CreateMenuItem(ctx context.Context, item *sync.MenuItem) error {
	const query = `
		INSERT INTO menu_items
			(id, branch_id, name, category, price, is_available, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query,
		item.ID, item.BranchID, item.Name, item.Category,
		item.Price, item.IsAvailable, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create menu item: %w", err)
	}
	return nil
}

func (s *Store) UpdateMenuItem(ctx context.Context, item *sync.MenuItem) error {
	const query = `
		UPDATE menu_items SET
			name = $2, category = $3, price = $4, is_available = $5,
			updated_at = $6
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		item.ID, item.Name, item.Category, item.Price,
		item.IsAvailable, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update menu item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sync.ErrEntityNotFound
	}
	return nil
}

const promoColumns = `id, branch_id, code, discount, is_percent,
	max_uses, used_count, expires_at, is_active, created_at, updated_at`

func (s *Store) FindPromoCodeByCode(ctx context.Context, branchID, code string) (*sync.PromoCode, error) {
	query := `
		SELECT ` + promoColumns + `
		FROM promo_codes
		WHERE branch_id = $1 AND code = $2
		LIMIT 1`

	promo, err := scanPromoCode(s.pool.QueryRow(ctx, query, branchID, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sync.ErrEntityNotFound
		}
		return nil, fmt.Errorf("find promo code: %w", err)
	}
	return promo, nil
}

func (s *Store) CreatePromoCode(ctx context.Context, promo *sync.PromoCode) error {
	const query = `
		INSERT INTO promo_codes
			(id, branch_id, code, discount, is_percent, max_uses,
			used_count, expires_at, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.pool.Exec(ctx, query,
		promo.ID, promo.BranchID, promo.Code, promo.Discount,
		promo.IsPercent, promo.MaxUses, promo.UsedCount,
		promo.ExpiresAt, promo.IsActive, promo.CreatedAt, promo.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create promo code: %w", err)
	}
	return nil
}

// ConsumePromoCode атомарно инкрементирует used_count. Проверка
// лимита и активности входит в сам UPDATE, отдельного SELECT нет —
// два терминала не спишут последнее использование дважды.
func (s *Store) ConsumePromoCode(ctx context.Context, id string) error {
	const query = `
		UPDATE promo_codes
		SET used_count = used_count + 1, updated_at = now()
		WHERE id = $1 AND is_active
			AND (max_uses = 0 OR used_count < max_uses)`

	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("consume promo code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM promo_codes WHERE id = $1)`, id,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check promo code: %w", err)
		}
		if !exists {
			return sync.ErrEntityNotFound
		}
		return sync.ErrPromoExhausted
	}
	return nil
}

func scanPromoCode(row pgx.Row) (*sync.PromoCode, error) {
	var promo sync.PromoCode
	err := row.Scan(
		&promo.ID, &promo.BranchID, &promo.Code, &promo.Discount,
		&promo.IsPercent, &promo.MaxUses, &promo.UsedCount,
		&promo.ExpiresAt, &promo.IsActive, &promo.CreatedAt, &promo.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &promo, nil
}
