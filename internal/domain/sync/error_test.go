package sync

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsOperationScoped(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		scoped bool
	}{
		{name: "validation aborts the batch", err: NewValidationError("branchId is required"), scoped: false},
		{name: "unknown branch aborts the batch", err: fmt.Errorf("check: %w", ErrBranchNotFound), scoped: false},
		{name: "missing entity stays in the operation", err: NewDomainError(ErrEntityNotFound, "shift %q", "s1"), scoped: true},
		{name: "insufficient stock stays in the operation", err: NewDomainError(ErrInsufficientStock, "milk"), scoped: true},
		{name: "infrastructure error stays in the operation", err: errors.New("connection reset"), scoped: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.scoped, IsOperationScoped(tt.err))
		})
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	err := NewDomainError(ErrPromoExhausted, "code %q", "SAVE10")
	assert.ErrorIs(t, err, ErrPromoExhausted)
	assert.Contains(t, err.Error(), "SAVE10")
}
