package postgres

import (
	"context"
	"errors"
	"fmt"

	"possync/internal/domain/sync"

	"github.com/jackc/pgx/v5"
)

func (s *Store) GetTable(ctx context.Context, id string) (*sync.Table, error) {
	const query = `
		SELECT id, branch_id, name, seats, status, order_id, updated_at
		FROM tables
		WHERE id = $1`

	var table sync.Table
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&table.ID, &table.BranchID, &table.Name, &table.Seats,
		&table.Status, &table.OrderID, &table.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sync.ErrEntityNotFound
		}
		return nil, fmt.Errorf("get table: %w", err)
	}
	return &table, nil
}

func (s *Store) CreateTable(ctx context.Context, table *sync.Table) error {
	const query = `
		INSERT INTO tables
			(id, branch_id, name, seats, status, order_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query,
		table.ID, table.BranchID, table.Name, table.Seats,
		table.Status, table.OrderID, table.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

func (s *Store) UpdateTable(ctx context.Context, table *sync.Table) error {
	const query = `
		UPDATE tables SET
			name = $2, seats = $3, status = $4, order_id = $5,
			updated_at = $6
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		table.ID, table.Name, table.Seats, table.Status,
		table.OrderID, table.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update table: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sync.ErrEntityNotFound
	}
	return nil
}

func (s *Store) CreateDailyExpense(ctx context.Context, expense *sync.DailyExpense) error {
	const query = `
		INSERT INTO daily_expenses
			(id, branch_id, shift_id, category, description, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query,
		expense.ID, expense.BranchID, expense.ShiftID, expense.Category,
		expense.Description, expense.Amount, expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create daily expense: %w", err)
	}
	return nil
}

func (s *Store) CreateVoidedItem(ctx context.Context, item *sync.VoidedItem) error {
	const query = `
		INSERT INTO voided_items
			(id, branch_id, order_id, menu_item_id, quantity, reason,
			voided_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.pool.Exec(ctx, query,
		item.ID, item.BranchID, item.OrderID, item.MenuItemID,
		item.Quantity, item.Reason, item.VoidedBy, item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create voided item: %w", err)
	}
	return nil
}

func (s *Store) CreateTransfer(ctx context.Context, transfer *sync.Transfer) error {
	const query = `
		INSERT INTO transfers
			(id, from_branch_id, to_branch_id, item_id, quantity, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query,
		transfer.ID, transfer.FromBranchID, transfer.ToBranchID,
		transfer.ItemID, transfer.Quantity, transfer.Status,
		transfer.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create transfer: %w", err)
	}
	return nil
}

func (s *Store) GetPurchaseOrder(ctx context.Context, id string) (*sync.PurchaseOrder, error) {
	const query = `
		SELECT id, branch_id, supplier, status, total, created_at, updated_at
		FROM purchase_orders
		WHERE id = $1`

	var po sync.PurchaseOrder
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&po.ID, &po.BranchID, &po.Supplier, &po.Status,
		&po.Total, &po.CreatedAt, &po.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sync.ErrEntityNotFound
		}
		return nil, fmt.Errorf("get purchase order: %w", err)
	}
	return &po, nil
}

func (s *Store) CreatePurchaseOrder(ctx context.Context, po *sync.PurchaseOrder) error {
	const query = `
		INSERT INTO purchase_orders
			(id, branch_id, supplier, status, total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query,
		po.ID, po.BranchID, po.Supplier, po.Status, po.Total,
		po.CreatedAt, po.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create purchase order: %w", err)
	}
	return nil
}

func (s *Store) UpdatePurchaseOrder(ctx context.Context, po *sync.PurchaseOrder) error {
	const query = `
		UPDATE purchase_orders SET
			supplier = $2, status = $3, total = $4, updated_at = $5
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		po.ID, po.Supplier, po.Status, po.Total, po.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update purchase order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sync.ErrEntityNotFound
	}
	return nil
}

func (s *Store) GetReceiptSettings(ctx context.Context, branchID string) (*sync.ReceiptSettings, error) {
	const query = `
		SELECT id, branch_id, header, footer, show_logo, tax_id, updated_at
		FROM receipt_settings
		WHERE branch_id = $1`

	var rs sync.ReceiptSettings
	err := s.pool.QueryRow(ctx, query, branchID).Scan(
		&rs.ID, &rs.BranchID, &rs.Header, &rs.Footer,
		&rs.ShowLogo, &rs.TaxID, &rs.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sync.ErrEntityNotFound
		}
		return nil, fmt.Errorf("get receipt settings: %w", err)
	}
	return &rs, nil
}

func (s *Store) CreateReceiptSettings(ctx context.Context, rs *sync.ReceiptSettings) error {
	const query = `
		INSERT INTO receipt_settings
			(id, branch_id, header, footer, show_logo, tax_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query,
		rs.ID, rs.BranchID, rs.Header, rs.Footer, rs.ShowLogo,
		rs.TaxID, rs.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create receipt settings: %w", err)
	}
	return nil
}

func (s *Store) UpdateReceiptSettings(ctx context.Context, rs *sync.ReceiptSettings) error {
	const query = `
		UPDATE receipt_settings SET
			header = $2, footer = $3, show_logo = $4, tax_id = $5,
			updated_at = $6
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		rs.ID, rs.Header, rs.Footer, rs.ShowLogo, rs.TaxID, rs.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update receipt settings: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sync.ErrEntityNotFound
	}
	return nil
}
