package postgres

import (
	"context"
	"errors"
	"fmt"

	"possync/internal/domain/sync"

	"github.com/jackc/pgx/v5"
)

// Позиции заказа хранятся в колонке items как JSONB: pgx сам
// сериализует []OrderItem в обе стороны.

func (s *Store) GetOrder(ctx context.Context, id string) (*sync.Order, error) {
	const query = `
		SELECT id, branch_id, shift_id, customer_id, table_id, status,
			subtotal, discount, total, items, created_at, updated_at
		FROM orders
		WHERE id = $1`

	var order sync.Order
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&order.ID, &order.BranchID, &order.ShiftID, &order.CustomerID,
		&order.TableID, &order.Status, &order.Subtotal, &order.Discount,
		&order.Total, &order.Items, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sync.ErrEntityNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &order, nil
}

func (s *Store) CreateOrder(ctx context.Context, order *sync.Order) error {
	const query = `
		INSERT INTO orders
			(id, branch_id, shift_id, customer_id, table_id, status,
			subtotal, discount, total, items, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := s.pool.Exec(ctx, query,
		order.ID, order.BranchID, order.ShiftID, order.CustomerID,
		order.TableID, order.Status, order.Subtotal, order.Discount,
		order.Total, order.Items, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		s.log.Error("failed to create order", "order_id", order.ID, "error", err)
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (s *Store) UpdateOrder(ctx context.Context, order *sync.Order) error {
	const query = `
		UPDATE orders SET
			shift_id = $2, customer_id = $3, table_id = $4, status = $5,
			subtotal = $6, discount = $7, total = $8, items = $9,
			updated_at = $10
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		order.ID, order.ShiftID, order.CustomerID, order.TableID,
		order.Status, order.Subtotal, order.Discount, order.Total,
		order.Items, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sync.ErrEntityNotFound
	}
	return nil
}
