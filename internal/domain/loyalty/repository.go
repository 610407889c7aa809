package loyalty

import "context"

// Repository — хранилище баллов и движений
type Repository interface {
	// AddPoints атомарно изменяет баланс гостя и возвращает новый итог.
	// Проводку движения пишет вызывающий через SaveTransaction.
	AddPoints(ctx context.Context, customerID string, points int64) (int64, error)
	SaveTransaction(ctx context.Context, tx *Transaction) error
	SetCustomerTier(ctx context.Context, customerID string, tier Tier) error
}
