package postgres

import (
	"context"
	"errors"
	"fmt"

	"possync/internal/domain/loyalty"
	"possync/internal/domain/sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"
)

var _ loyalty.Repository = (*LoyaltyStore)(nil)

// LoyaltyStore — хранилище баллов поверх тех же таблиц customers и
// loyalty_transactions, что и основное хранилище движка
type LoyaltyStore struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewLoyaltyStore(storage *Storage, log *slog.Logger) *LoyaltyStore {
	return &LoyaltyStore{
		pool: storage.Pool(),
		log:  log.With("component", "loyalty_store"),
	}
}

// AddPoints атомарно изменяет баланс: инкремент в самом UPDATE, без
// чтения старого значения на стороне приложения
func (s *LoyaltyStore) AddPoints(ctx context.Context, customerID string, points int64) (int64, error) {
	const query = `
		UPDATE customers
		SET loyalty_points = loyalty_points + $2, updated_at = now()
		WHERE id = $1
		RETURNING loyalty_points`

	var total int64
	err := s.pool.QueryRow(ctx, query, customerID, points).Scan(&total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, sync.ErrEntityNotFound
		}
		return 0, fmt.Errorf("add points: %w", err)
	}
	return total, nil
}

func (s *LoyaltyStore) SaveTransaction(ctx context.Context, ltx *loyalty.Transaction) error {
	const query = `
		INSERT INTO loyalty_transactions
			(id, customer_id, order_id, points, kind, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.pool.Exec(ctx, query,
		ltx.ID, ltx.CustomerID, ltx.OrderID, ltx.Points, ltx.Kind,
		ltx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save loyalty transaction: %w", err)
	}
	return nil
}

func (s *LoyaltyStore) SetCustomerTier(ctx context.Context, customerID string, tier loyalty.Tier) error {
	const query = `
		UPDATE customers SET tier = $2, updated_at = now() WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, customerID, string(tier))
	if err != nil {
		return fmt.Errorf("set customer tier: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sync.ErrEntityNotFound
	}
	return nil
}
