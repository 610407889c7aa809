package sync

import (
	"fmt"
	"strings"
)

// Префиксы клиентских плейсхолдеров. Все остальные id считаются
// долговременными.
var tempIDPrefixes = []string{"temp_", "local_"}

// IsTempID распознает клиентский плейсхолдер
func IsTempID(id string) bool {
	for _, p := range tempIDPrefixes {
		if strings.HasPrefix(id, p) {
			return true
		}
	}
	return false
}

// TempIDTable — таблица привязок tempId → durableId в рамках одного
// выполнения пакета. Создается на запрос, передается по ссылке в
// каждый обработчик и уничтожается вместе с запросом; никогда не
// сохраняется и не разделяется между запросами.
type TempIDTable struct {
	bindings map[string]string
	// порядок установки привязок: нужен для отката привязок
	// проваленной операции
	order []string
}

// NewTempIDTable создает пустую таблицу привязок
func NewTempIDTable() *TempIDTable {
	return &TempIDTable{bindings: make(map[string]string)}
}

// Bind привязывает плейсхолдер к долговременному id. Повторная
// привязка к тому же id идемпотентна; привязка к другому id — баг
// реализации, а не клиентская ошибка, поэтому паника.
func (t *TempIDTable) Bind(tempID, durableID string) {
	if existing, ok := t.bindings[tempID]; ok {
		if existing == durableID {
			return
		}
		panic(fmt.Sprintf(
			"temp id %q rebound to %q, already bound to %q",
			tempID, durableID, existing,
		))
	}
	t.bindings[tempID] = durableID
	t.order = append(t.order, tempID)
}

// Checkpoint возвращает отметку текущего числа привязок
func (t *TempIDTable) Checkpoint() int {
	return len(t.order)
}

// Rollback снимает привязки, установленные после отметки. Вызывается
// при отказе операции: плейсхолдер проваленного создания должен
// остаться неразрешенным, а не указывать на несуществующую строку.
func (t *TempIDTable) Rollback(mark int) {
	if mark < 0 || mark >= len(t.order) {
		return
	}
	for _, tempID := range t.order[mark:] {
		delete(t.bindings, tempID)
	}
	t.order = t.order[:mark]
}

// Bound возвращает привязку плейсхолдера, если она уже установлена
func (t *TempIDTable) Bound(tempID string) (string, bool) {
	durable, ok := t.bindings[tempID]
	return durable, ok
}

// Resolve разрешает id. Долговременный id возвращается без изменений;
// привязанный плейсхолдер — своим долговременным id; непривязанный
// плейсхолдер дает ("", false) — вызывающий обязан трактовать это как
// "связать сейчас, починить позже": записать поле пустым и продолжить.
func (t *TempIDTable) Resolve(id string) (string, bool) {
	if !IsTempID(id) {
		return id, true
	}
	if durable, ok := t.bindings[id]; ok {
		return durable, true
	}
	return "", false
}

// ResolveRef разрешает необязательную ссылку на сущность.
// nil и пустая строка остаются nil; неразрешенный плейсхолдер тоже
// становится nil, операция продолжается без связи.
func (t *TempIDTable) ResolveRef(id *string) *string {
	if id == nil || *id == "" {
		return nil
	}
	resolved, ok := t.Resolve(*id)
	if !ok {
		return nil
	}
	return &resolved
}

// Len — число установленных привязок
func (t *TempIDTable) Len() int {
	return len(t.bindings)
}
