package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"possync/internal/domain/loyalty"
)

// createCustomer применяет CREATE_CUSTOMER. У гостя есть устойчивый
// естественный ключ — телефон, поэтому дедупликация точная, без
// временных окон: повторная отправка того же гостя переиспользует
// существующую строку.
func (s *Service) createCustomer(ctx context.Context, bc *batchContext, p *CreateCustomerPayload) error {
	if p.Phone == "" {
		return requiredField("phone")
	}

	if p.ID != "" && IsTempID(p.ID) {
		if _, ok := bc.temps.Bound(p.ID); ok {
			return nil
		}
	}

	existing, err := s.store.FindCustomerByPhone(ctx, bc.branchID, p.Phone)
	if err == nil {
		if p.ID != "" && IsTempID(p.ID) {
			bc.temps.Bind(p.ID, existing.ID)
		}
		s.log.Debug("customer create deduplicated by phone",
			"customer_id", existing.ID, "phone", p.Phone)
		return nil
	}
	if !errors.Is(err, ErrEntityNotFound) {
		return fmt.Errorf("find customer by phone: %w", err)
	}

	customer := &Customer{
		ID:        bc.durableID(p.ID),
		BranchID:  bc.branchID,
		Name:      p.Name,
		Phone:     p.Phone,
		Email:     p.Email,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := s.store.CreateCustomer(ctx, customer); err != nil {
		return fmt.Errorf("create customer: %w", err)
	}
	return nil
}

func (s *Service) updateCustomer(ctx context.Context, bc *batchContext, p *UpdateCustomerPayload, op SyncOperation) error {
	id, err := bc.resolveTarget(p.ID)
	if err != nil {
		return err
	}

	customer, err := s.store.GetCustomer(ctx, id)
	if err != nil {
		return fmt.Errorf("get customer %s: %w", id, err)
	}

	s.noteConflict(ctx, bc, "customers", id, op, customer, customer.UpdatedAt)

	if p.Name != nil {
		customer.Name = *p.Name
	}
	if p.Phone != nil {
		customer.Phone = *p.Phone
	}
	if p.Email != nil {
		customer.Email = *p.Email
	}
	customer.UpdatedAt = time.Now()

	if err := s.store.UpdateCustomer(ctx, customer); err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	return nil
}

// updateUser применяет UPDATE_USER: терминал правит только
// отображаемые атрибуты сотрудника
func (s *Service) updateUser(ctx context.Context, bc *batchContext, p *UpdateUserPayload, op SyncOperation) error {
	id, err := bc.resolveTarget(p.ID)
	if err != nil {
		return err
	}

	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return fmt.Errorf("get user %s: %w", id, err)
	}

	s.noteConflict(ctx, bc, "users", id, op, user, user.UpdatedAt)

	if p.Name != nil {
		user.Name = *p.Name
	}
	if p.Role != nil {
		user.Role = *p.Role
	}
	if p.IsActive != nil {
		user.IsActive = *p.IsActive
	}
	user.UpdatedAt = time.Now()

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// createLoyaltyTransaction применяет CREATE_LOYALTY_TRANSACTION —
// движение баллов, уже посчитанное терминалом
func (s *Service) createLoyaltyTransaction(ctx context.Context, bc *batchContext, p *CreateLoyaltyTransactionPayload) error {
	if p.CustomerID == "" {
		return requiredField("customerId")
	}
	customerID, ok := bc.temps.Resolve(p.CustomerID)
	if !ok {
		return NewDomainError(ErrEntityNotFound,
			"unresolved customer reference %q", p.CustomerID)
	}

	kind := p.Kind
	if kind == "" {
		if p.Points < 0 {
			kind = "redeem"
		} else {
			kind = "earn"
		}
	}

	tx := &loyalty.Transaction{
		CustomerID: customerID,
		Points:     p.Points,
		Kind:       kind,
		CreatedAt:  time.Now(),
	}
	if ref := bc.temps.ResolveRef(p.OrderID); ref != nil {
		tx.OrderID = *ref
	}

	if s.loyalty == nil {
		return NewDomainError(errBadPayload, "loyalty service is not configured")
	}
	if err := s.loyalty.RecordTransaction(ctx, tx); err != nil {
		return fmt.Errorf("record loyalty transaction: %w", err)
	}
	return nil
}
