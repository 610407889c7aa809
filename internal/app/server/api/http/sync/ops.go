package sync

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) batchPushOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-batch-push",
		Method:      http.MethodPost,
		Path:        "/api/sync/batch-push",
		Summary:     "Применить пакет офлайн-операций",
		Description: "Принимает очередь операций терминала и применяет их последовательно",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) changesOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-changes",
		Method:      http.MethodPost,
		Path:        "/api/sync/changes",
		Summary:     "Получить изменения для синхронизации",
		Description: "Возвращает сущности, измененные после точки последней выдачи",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) conflictsOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-conflicts",
		Method:      http.MethodGet,
		Path:        "/api/sync/conflicts",
		Summary:     "Получить конфликты синхронизации",
		Description: "Возвращает конфликты, при необходимости с фильтром по филиалу",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) conflictStatsOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-conflict-stats",
		Method:      http.MethodGet,
		Path:        "/api/sync/conflicts/stats",
		Summary:     "Статистика конфликтов",
		Description: "Возвращает агрегированную статистику по конфликтам",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) resolveConflictOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-resolve-conflict",
		Method:      http.MethodPost,
		Path:        "/api/sync/conflicts/{id}/resolve",
		Summary:     "Разрешить конфликт синхронизации",
		Description: "Разрешает указанный конфликт выбранной стратегией",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) historyOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-history",
		Method:      http.MethodGet,
		Path:        "/api/sync/history",
		Summary:     "Журнал синхронизаций",
		Description: "Возвращает журнал выполненных пакетов",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) statesOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-states",
		Method:      http.MethodGet,
		Path:        "/api/sync/state",
		Summary:     "Состояние pull-синхронизации",
		Description: "Возвращает состояние инкрементального pull по типам сущностей",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}
