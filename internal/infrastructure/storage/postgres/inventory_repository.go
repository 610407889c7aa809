package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"possync/internal/domain/sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (s *Store) GetInventoryItem(ctx context.Context, id string) (*sync.InventoryItem, error) {
	const query = `
		SELECT id, branch_id, name, unit, quantity, min_level, updated_at
		FROM inventory_items
		WHERE id = $1`

	var item sync.InventoryItem
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&item.ID, &item.BranchID, &item.Name, &item.Unit,
		&item.Quantity, &item.MinLevel, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sync.ErrEntityNotFound
		}
		return nil, fmt.Errorf("get inventory item: %w", err)
	}
	return &item, nil
}

func (s *Store) CreateInventoryItem(ctx context.Context, item *sync.InventoryItem) error {
	const query = `
		INSERT INTO inventory_items
			(id, branch_id, name, unit, quantity, min_level, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query,
		item.ID, item.BranchID, item.Name, item.Unit,
		item.Quantity, item.MinLevel, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create inventory item: %w", err)
	}
	return nil
}

func (s *Store) UpdateInventoryItem(ctx context.Context, item *sync.InventoryItem) error {
	const query = `
		UPDATE inventory_items SET
			name = $2, unit = $3, quantity = $4, min_level = $5,
			updated_at = $6
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		item.ID, item.Name, item.Unit, item.Quantity, item.MinLevel,
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update inventory item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sync.ErrEntityNotFound
	}
	return nil
}

func (s *Store) CreateInventoryTransaction(ctx context.Context, tx *sync.InventoryTransaction) error {
	const query = `
		INSERT INTO inventory_transactions
			(id, branch_id, item_id, kind, quantity, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query,
		tx.ID, tx.BranchID, tx.ItemID, tx.Kind, tx.Quantity,
		tx.Notes, tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create inventory transaction: %w", err)
	}
	return nil
}

func (s *Store) CreateWasteEntry(ctx context.Context, waste *sync.WasteEntry) error {
	const query = `
		INSERT INTO waste_entries
			(id, branch_id, ingredient_id, quantity, reason, recorded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query,
		waste.ID, waste.BranchID, waste.IngredientID, waste.Quantity,
		waste.Reason, waste.RecordedBy, waste.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create waste entry: %w", err)
	}
	return nil
}

func (s *Store) GetIngredient(ctx context.Context, id string) (*sync.Ingredient, error) {
	const query = `
		SELECT id, branch_id, name, unit, stock, cost, updated_at
		FROM ingredients
		WHERE id = $1`

	var ing sync.Ingredient
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&ing.ID, &ing.BranchID, &ing.Name, &ing.Unit,
		&ing.Stock, &ing.Cost, &ing.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sync.ErrEntityNotFound
		}
		return nil, fmt.Errorf("get ingredient: %w", err)
	}
	return &ing, nil
}

func (s *Store) CreateIngredient(ctx context.Context, ing *sync.Ingredient) error {
	const query = `
		INSERT INTO ingredients
			(id, branch_id, name, unit, stock, cost, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query,
		ing.ID, ing.BranchID, ing.Name, ing.Unit, ing.Stock,
		ing.Cost, ing.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create ingredient: %w", err)
	}
	return nil
}

func (s *Store) UpdateIngredient(ctx context.Context, ing *sync.Ingredient) error {
	const query = `
		UPDATE ingredients SET
			name = $2, unit = $3, stock = $4, cost = $5, updated_at = $6
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		ing.ID, ing.Name, ing.Unit, ing.Stock, ing.Cost, ing.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update ingredient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sync.ErrEntityNotFound
	}
	return nil
}

// DeductIngredientStock списывает остаток и пишет проводку в одной
// транзакции. Условие stock >= $2 в UPDATE не даёт остатку уйти в
// минус при конкурентных батчах.
func (s *Store) DeductIngredientStock(ctx context.Context, ingredientID string, quantity float64, referenceID string) error {
	return s.DeductIngredientUsages(ctx,
		[]sync.StockDeduction{{IngredientID: ingredientID, Quantity: quantity}},
		referenceID,
	)
}

// DeductIngredientUsages списывает весь расход заказа в одной
// транзакции. Отказ любого списания откатывает уже применённые: ретрай
// проваленной операции не должен списывать дважды.
func (s *Store) DeductIngredientUsages(ctx context.Context, deductions []sync.StockDeduction, referenceID string) error {
	if len(deductions) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin deduct tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, d := range deductions {
		if err := deductInTx(ctx, tx, d, referenceID); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit deduct tx: %w", err)
	}
	return nil
}

func deductInTx(ctx context.Context, tx pgx.Tx, d sync.StockDeduction, referenceID string) error {
	const deductQuery = `
		UPDATE ingredients
		SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2`

	tag, err := tx.Exec(ctx, deductQuery, d.IngredientID, d.Quantity)
	if err != nil {
		return fmt.Errorf("deduct stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM ingredients WHERE id = $1)`,
			d.IngredientID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check ingredient: %w", err)
		}
		if !exists {
			return sync.ErrEntityNotFound
		}
		return sync.ErrInsufficientStock
	}

	const ledgerQuery = `
		INSERT INTO stock_ledger
			(id, ingredient_id, delta, reason, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = tx.Exec(ctx, ledgerQuery,
		uuid.New().String(), d.IngredientID, -d.Quantity, "deduction",
		referenceID, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("stock ledger: %w", err)
	}
	return nil
}
