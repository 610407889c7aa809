package loyalty

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

// Servicer интерфейс сервиса лояльности
type Servicer interface {
	// AwardPoints начисляет баллы за оплаченный заказ
	AwardPoints(ctx context.Context, customerID, orderID string, subtotal float64) (*Award, error)

	// RecordTransaction применяет движение баллов, посчитанное терминалом
	RecordTransaction(ctx context.Context, tx *Transaction) error
}

// Compile-time проверка реализации интерфейса
var _ Servicer = (*Service)(nil)

// Service реализация сервиса лояльности
type Service struct {
	repo Repository
	log  *slog.Logger

	// EarnRate — баллов за единицу валюты заказа
	earnRate float64
}

// NewService создает новый сервис лояльности
func NewService(repo Repository, log *slog.Logger, earnRate float64) *Service {
	if earnRate <= 0 {
		earnRate = 1
	}
	return &Service{
		repo:     repo,
		log:      log.With("component", "loyalty_service"),
		earnRate: earnRate,
	}
}

// AwardPoints начисляет баллы за оплаченный заказ
func (s *Service) AwardPoints(ctx context.Context, customerID, orderID string, subtotal float64) (*Award, error) {
	points := int64(math.Floor(subtotal * s.earnRate))
	if points <= 0 {
		return &Award{PointsEarned: 0}, nil
	}

	total, err := s.repo.AddPoints(ctx, customerID, points)
	if err != nil {
		return nil, fmt.Errorf("add points: %w", err)
	}

	tx := &Transaction{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		OrderID:    orderID,
		Points:     points,
		Kind:       "earn",
		CreatedAt:  time.Now(),
	}
	if err := s.repo.SaveTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("save loyalty transaction: %w", err)
	}

	tier := TierFor(total)
	if err := s.repo.SetCustomerTier(ctx, customerID, tier); err != nil {
		s.log.Warn("failed to update customer tier",
			"customer_id", customerID, "error", err)
	}

	return &Award{
		PointsEarned: points,
		TotalPoints:  total,
		Tier:         tier,
		Transaction:  tx,
	}, nil
}

// RecordTransaction применяет движение баллов, посчитанное терминалом
func (s *Service) RecordTransaction(ctx context.Context, tx *Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}

	if tx.Points != 0 {
		total, err := s.repo.AddPoints(ctx, tx.CustomerID, tx.Points)
		if err != nil {
			return fmt.Errorf("add points: %w", err)
		}
		if err := s.repo.SetCustomerTier(ctx, tx.CustomerID, TierFor(total)); err != nil {
			s.log.Warn("failed to update customer tier",
				"customer_id", tx.CustomerID, "error", err)
		}
	}

	if err := s.repo.SaveTransaction(ctx, tx); err != nil {
		return fmt.Errorf("save loyalty transaction: %w", err)
	}

	return nil
}
