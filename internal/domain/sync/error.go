package sync

import (
	"errors"
	"fmt"
)

var (
	ErrBranchNotFound    = errors.New("branch not found")
	ErrEntityNotFound    = errors.New("entity not found")
	ErrConflictNotFound  = errors.New("conflict not found")
	ErrInsufficientStock = errors.New("insufficient ingredient stock")
	ErrPromoExhausted    = errors.New("promo code exhausted or inactive")
)

// ValidationError — некорректная форма запроса. Прерывает весь пакет
// до выполнения операций (HTTP 400).
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError создает ошибку валидации запроса
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// DomainError — нарушение бизнес-правила внутри одной операции.
// Перехватывается оркестратором и не прерывает пакет.
type DomainError struct {
	Err     error
	Message string
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError оборачивает причину в операционную ошибку
func NewDomainError(err error, format string, args ...any) *DomainError {
	return &DomainError{Err: err, Message: fmt.Sprintf(format, args...)}
}

// IsOperationScoped сообщает, остается ли ошибка в границах одной
// операции пакета. Ошибки валидации запроса и неизвестный филиал
// прерывают пакет целиком, все остальное — нет.
func IsOperationScoped(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return false
	}
	if errors.Is(err, ErrBranchNotFound) {
		return false
	}
	return true
}
