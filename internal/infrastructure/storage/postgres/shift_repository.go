package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"possync/internal/domain/sync"

	"github.com/jackc/pgx/v5"
)

const shiftColumns = `id, branch_id, cashier_id, start_time, end_time,
	opening_cash, closing_cash, is_closed, closing_orders, closing_revenue,
	notes, updated_at`

func (s *Store) GetShift(ctx context.Context, id string) (*sync.Shift, error) {
	query := `SELECT ` + shiftColumns + ` FROM shifts WHERE id = $1`

	shift, err := scanShift(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sync.ErrEntityNotFound
		}
		return nil, fmt.Errorf("get shift: %w", err)
	}
	return shift, nil
}

func (s *Store) CreateShift(ctx context.Context, shift *sync.Shift) error {
	const query = `
		INSERT INTO shifts
			(id, branch_id, cashier_id, start_time, opening_cash, notes, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query,
		shift.ID, shift.BranchID, shift.CashierID, shift.StartTime,
		shift.OpeningCash, shift.Notes, shift.UpdatedAt,
	)
	if err != nil {
		s.log.Error("failed to create shift", "shift_id", shift.ID, "error", err)
		return fmt.Errorf("create shift: %w", err)
	}
	return nil
}

func (s *Store) UpdateShift(ctx context.Context, shift *sync.Shift) error {
	const query = `
		UPDATE shifts SET
			end_time = $2, opening_cash = $3, closing_cash = $4,
			is_closed = $5, closing_orders = $6, closing_revenue = $7,
			notes = $8, updated_at = $9
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		shift.ID, shift.EndTime, shift.OpeningCash, shift.ClosingCash,
		shift.IsClosed, shift.ClosingOrders, shift.ClosingRevenue,
		shift.Notes, shift.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update shift: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sync.ErrEntityNotFound
	}
	return nil
}

func (s *Store) FindShiftNear(ctx context.Context, branchID, cashierID string, start time.Time, tolerance time.Duration) (*sync.Shift, error) {
	query := `
		SELECT ` + shiftColumns + `
		FROM shifts
		WHERE branch_id = $1 AND cashier_id = $2
			AND start_time BETWEEN $3 AND $4
		ORDER BY abs(extract(epoch FROM start_time - $5::timestamptz))
		LIMIT 1`

	row := s.pool.QueryRow(ctx, query,
		branchID, cashierID, start.Add(-tolerance), start.Add(tolerance), start)

	shift, err := scanShift(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sync.ErrEntityNotFound
		}
		return nil, fmt.Errorf("find shift near: %w", err)
	}
	return shift, nil
}

func (s *Store) FindOpenShiftNear(ctx context.Context, branchID, cashierID string, at time.Time, tolerance time.Duration) (*sync.Shift, error) {
	query := `
		SELECT ` + shiftColumns + `
		FROM shifts
		WHERE branch_id = $1 AND cashier_id = $2 AND NOT is_closed
			AND start_time BETWEEN $3 AND $4
		ORDER BY start_time DESC
		LIMIT 1`

	row := s.pool.QueryRow(ctx, query,
		branchID, cashierID, at.Add(-tolerance), at.Add(tolerance))

	shift, err := scanShift(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sync.ErrEntityNotFound
		}
		return nil, fmt.Errorf("find open shift near: %w", err)
	}
	return shift, nil
}

func (s *Store) LatestOpenShift(ctx context.Context, branchID, cashierID string) (*sync.Shift, error) {
	query := `
		SELECT ` + shiftColumns + `
		FROM shifts
		WHERE branch_id = $1 AND cashier_id = $2 AND NOT is_closed
		ORDER BY start_time DESC
		LIMIT 1`

	shift, err := scanShift(s.pool.QueryRow(ctx, query, branchID, cashierID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sync.ErrEntityNotFound
		}
		return nil, fmt.Errorf("latest open shift: %w", err)
	}
	return shift, nil
}

func (s *Store) LatestShiftWithin(ctx context.Context, branchID, cashierID string, at time.Time, tolerance time.Duration) (*sync.Shift, error) {
	query := `
		SELECT ` + shiftColumns + `
		FROM shifts
		WHERE branch_id = $1 AND cashier_id = $2
			AND start_time >= $3
		ORDER BY start_time DESC
		LIMIT 1`

	shift, err := scanShift(s.pool.QueryRow(ctx, query, branchID, cashierID, at.Add(-tolerance)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sync.ErrEntityNotFound
		}
		return nil, fmt.Errorf("latest shift within: %w", err)
	}
	return shift, nil
}

// ShiftSettlement — агрегаты закрытия на момент вызова: число и
// subtotal заказов смены, расходы категории "Loyalty Discounts"
func (s *Store) ShiftSettlement(ctx context.Context, shiftID string) (*sync.Settlement, error) {
	const ordersQuery = `
		SELECT count(*), coalesce(sum(subtotal), 0)
		FROM orders
		WHERE shift_id = $1`

	var settlement sync.Settlement
	if err := s.pool.QueryRow(ctx, ordersQuery, shiftID).Scan(
		&settlement.Orders, &settlement.Subtotal,
	); err != nil {
		return nil, fmt.Errorf("settlement orders: %w", err)
	}

	const discountsQuery = `
		SELECT coalesce(sum(amount), 0)
		FROM daily_expenses
		WHERE shift_id = $1 AND category = 'Loyalty Discounts'`

	if err := s.pool.QueryRow(ctx, discountsQuery, shiftID).Scan(
		&settlement.LoyaltyDiscounts,
	); err != nil {
		return nil, fmt.Errorf("settlement discounts: %w", err)
	}

	return &settlement, nil
}

func scanShift(row pgx.Row) (*sync.Shift, error) {
	var shift sync.Shift
	err := row.Scan(
		&shift.ID, &shift.BranchID, &shift.CashierID, &shift.StartTime,
		&shift.EndTime, &shift.OpeningCash, &shift.ClosingCash,
		&shift.IsClosed, &shift.ClosingOrders, &shift.ClosingRevenue,
		&shift.Notes, &shift.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &shift, nil
}
