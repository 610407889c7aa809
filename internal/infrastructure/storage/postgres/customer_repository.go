package postgres

import (
	"context"
	"errors"
	"fmt"

	"possync/internal/domain/sync"

	"github.com/jackc/pgx/v5"
)

const customerColumns = `id, branch_id, name, phone, email,
	loyalty_points, tier, created_at, updated_at`

func (s *Store) GetCustomer(ctx context.Context, id string) (*sync.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

	customer, err := scanCustomer(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sync.ErrEntityNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return customer, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer *sync.Customer) error {
	const query = `
		INSERT INTO customers
			(id, branch_id, name, phone, email, loyalty_points, tier,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.pool.Exec(ctx, query,
		customer.ID, customer.BranchID, customer.Name, customer.Phone,
		customer.Email, customer.LoyaltyPoints, customer.Tier,
		customer.CreatedAt, customer.UpdatedAt,
	)
	if err != nil {
		s.log.Error("failed to create customer", "customer_id", customer.ID, "error", err)
		return fmt.Errorf("create customer: %w", err)
	}
	return nil
}

func (s *Store) UpdateCustomer(ctx context.Context, customer *sync.Customer) error {
	const query = `
		UPDATE customers SET
			name = $2, phone = $3, email = $4, loyalty_points = $5,
			tier = $6, updated_at = $7
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		customer.ID, customer.Name, customer.Phone, customer.Email,
		customer.LoyaltyPoints, customer.Tier, customer.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sync.ErrEntityNotFound
	}
	return nil
}

// FindCustomerByPhone — поиск дубликата при офлайн-регистрации гостя
func (s *Store) FindCustomerByPhone(ctx context.Context, branchID, phone string) (*sync.Customer, error) {
	query := `
		SELECT ` + customerColumns + `
		FROM customers
		WHERE branch_id = $1 AND phone = $2
		ORDER BY created_at
		LIMIT 1`

	customer, err := scanCustomer(s.pool.QueryRow(ctx, query, branchID, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sync.ErrEntityNotFound
		}
		return nil, fmt.Errorf("find customer by phone: %w", err)
	}
	return customer, nil
}

func scanCustomer(row pgx.Row) (*sync.Customer, error) {
	var customer sync.Customer
	err := row.Scan(
		&customer.ID, &customer.BranchID, &customer.Name, &customer.Phone,
		&customer.Email, &customer.LoyaltyPoints, &customer.Tier,
		&customer.CreatedAt, &customer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*sync.User, error) {
	const query = `
		SELECT id, branch_id, name, role, pin_hash, is_active, updated_at
		FROM users
		WHERE id = $1`

	var user sync.User
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.BranchID, &user.Name, &user.Role,
		&user.PINHash, &user.IsActive, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sync.ErrEntityNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

func (s *Store) UpdateUser(ctx context.Context, user *sync.User) error {
	const query = `
		UPDATE users SET
			name = $2, role = $3, pin_hash = $4, is_active = $5,
			updated_at = $6
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		user.ID, user.Name, user.Role, user.PINHash, user.IsActive,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sync.ErrEntityNotFound
	}
	return nil
}
