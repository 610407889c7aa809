package loyalty

import "time"

// Tier уровень гостя в программе лояльности
type Tier string

const (
	TierBronze Tier = "bronze"
	TierSilver Tier = "silver"
	TierGold   Tier = "gold"
)

// Пороговые значения накопленных баллов для уровней
const (
	silverThreshold = 1000
	goldThreshold   = 5000
)

// Transaction — движение баллов по гостю
type Transaction struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	OrderID    string    `json:"order_id,omitempty"`
	Points     int64     `json:"points"`
	Kind       string    `json:"kind"` // earn, redeem, adjust
	CreatedAt  time.Time `json:"created_at"`
}

// Award — результат начисления баллов за заказ
type Award struct {
	PointsEarned int64        `json:"points_earned"`
	TotalPoints  int64        `json:"total_points"`
	Tier         Tier         `json:"tier"`
	Transaction  *Transaction `json:"transaction"`
}

// TierFor возвращает уровень по накопленным баллам
func TierFor(total int64) Tier {
	switch {
	case total >= goldThreshold:
		return TierGold
	case total >= silverThreshold:
		return TierSilver
	default:
		return TierBronze
	}
}
