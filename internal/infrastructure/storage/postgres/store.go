package postgres

import (
	"context"
	"fmt"

	"possync/internal/domain/sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"
)

// Compile-time проверка контракта хранилища движка
var _ sync.Store = (*Store)(nil)

// Store — реализация sync.Store поверх PostgreSQL.
// Методы разложены по файлам *_repository.go по сущностям.
type Store struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewStore создает хранилище движка синхронизации
func NewStore(storage *Storage, log *slog.Logger) *Store {
	return &Store{
		pool: storage.Pool(),
		log:  log.With("component", "postgres_store"),
	}
}

// BranchExists проверяет, что филиал существует и активен
func (s *Store) BranchExists(ctx context.Context, branchID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM branches WHERE id = $1)`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, branchID).Scan(&exists); err != nil {
		return false, fmt.Errorf("branch exists: %w", err)
	}
	return exists, nil
}
