//POST /api/sync/batch-push              # Применить пакет офлайн-операций терминала
//POST /api/sync/changes                 # Инкрементальный pull изменений
//GET  /api/sync/conflicts               # Конфликты синхронизации
//GET  /api/sync/conflicts/stats         # Статистика конфликтов
//POST /api/sync/conflicts/{id}/resolve  # Разрешить конфликт
//GET  /api/sync/history                 # Журнал пакетов
//GET  /api/sync/state                   # Pull-состояние по типам сущностей
//GET  /api/v1/health                    # Liveness

package api

import (
	healthAPI "possync/internal/app/server/api/http/health"
	"possync/internal/app/server/api/http/middleware"
	"possync/internal/app/server/api/http/middleware/logger"
	syncAPI "possync/internal/app/server/api/http/sync"
	"possync/internal/app/server/config"
	"possync/internal/domain/audit"
	"possync/internal/domain/loyalty"
	"possync/internal/domain/sync"
	"possync/internal/infrastructure/storage/postgres"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"
)

type Handlers struct {
	Health *healthAPI.Handler
	Sync   *syncAPI.Handler
}

// New создает *chi.Mux с ВСЕМИ операциями через huma.Register
func New(storage *postgres.Storage, cfg *config.Config, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	humaConfig := huma.DefaultConfig("POS Sync API", "1.0.0")
	API := humachi.New(mux, humaConfig)

	h := handlers(storage, cfg, log)
	h.Health.SetupRoutes(API)
	h.Sync.SetupRoutes(API)

	return mux
}

func handlers(storage *postgres.Storage, cfg *config.Config, log *slog.Logger) *Handlers {
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	middlewares.Add(loggerMW.Middleware())
	healthHandler := healthAPI.NewHandler(log, middlewares.GetAllAndClear())

	store := postgres.NewStore(storage, log)
	loyaltyStore := postgres.NewLoyaltyStore(storage, log)
	loyaltyService := loyalty.NewService(loyaltyStore, log, cfg.Sync.LoyaltyEarnRate)
	auditor := audit.NewSlogRecorder(log)
	syncService := sync.NewService(store, loyaltyService, auditor, log, &sync.ServiceConfig{
		OperationTimeout: cfg.Sync.OperationTimeout,
	})
	middlewares.Add(loggerMW.Middleware())
	syncHandler := syncAPI.NewHandler(syncService, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health: healthHandler,
		Sync:   syncHandler,
	}
}
