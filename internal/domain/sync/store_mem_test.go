package sync

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"time"
)

// memStore — хранилище в памяти для тестов движка. Повторяет контракт
// Store, включая сентинельные ошибки и семантику поисковых запросов.
type memStore struct {
	branches      map[string]*Branch
	shifts        map[string]*Shift
	orders        map[string]*Order
	customers     map[string]*Customer
	users         map[string]*User
	items         map[string]*InventoryItem
	ingredients   map[string]*Ingredient
	ledger        []*StockLedgerEntry
	invTxs        map[string]*InventoryTransaction
	waste         map[string]*WasteEntry
	expenses      map[string]*DailyExpense
	voided        map[string]*VoidedItem
	menuItems     map[string]*MenuItem
	promos        map[string]*PromoCode
	tables        map[string]*Table
	transfers     map[string]*Transfer
	purchases     map[string]*PurchaseOrder
	receipts      map[string]*ReceiptSettings
	idemKeys      map[string]IdempotencyRecord
	conflicts     map[string]*Conflict
	history       []*SyncHistoryEntry
	states        map[string]*EntitySyncState
	changedByType map[string][]json.RawMessage

	// инъекция ошибок для отдельных сценариев
	checkIdemErr  error
	recordIdemErr error
	createOrderFn func(*Order) error
}

var _ Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		branches:      make(map[string]*Branch),
		shifts:        make(map[string]*Shift),
		orders:        make(map[string]*Order),
		customers:     make(map[string]*Customer),
		users:         make(map[string]*User),
		items:         make(map[string]*InventoryItem),
		ingredients:   make(map[string]*Ingredient),
		invTxs:        make(map[string]*InventoryTransaction),
		waste:         make(map[string]*WasteEntry),
		expenses:      make(map[string]*DailyExpense),
		voided:        make(map[string]*VoidedItem),
		menuItems:     make(map[string]*MenuItem),
		promos:        make(map[string]*PromoCode),
		tables:        make(map[string]*Table),
		transfers:     make(map[string]*Transfer),
		purchases:     make(map[string]*PurchaseOrder),
		receipts:      make(map[string]*ReceiptSettings),
		idemKeys:      make(map[string]IdempotencyRecord),
		conflicts:     make(map[string]*Conflict),
		states:        make(map[string]*EntitySyncState),
		changedByType: make(map[string][]json.RawMessage),
	}
}

func (m *memStore) addBranch(id string) {
	m.branches[id] = &Branch{ID: id, Name: id, IsActive: true, CreatedAt: time.Now()}
}

func (m *memStore) BranchExists(_ context.Context, branchID string) (bool, error) {
	_, ok := m.branches[branchID]
	return ok, nil
}

func (m *memStore) GetShift(_ context.Context, id string) (*Shift, error) {
	shift, ok := m.shifts[id]
	if !ok {
		return nil, ErrEntityNotFound
	}
	cp := *shift
	return &cp, nil
}

func (m *memStore) CreateShift(_ context.Context, shift *Shift) error {
	cp := *shift
	m.shifts[shift.ID] = &cp
	return nil
}

func (m *memStore) UpdateShift(_ context.Context, shift *Shift) error {
	if _, ok := m.shifts[shift.ID]; !ok {
		return ErrEntityNotFound
	}
	cp := *shift
	m.shifts[shift.ID] = &cp
	return nil
}

func (m *memStore) FindShiftNear(_ context.Context, branchID, cashierID string, start time.Time, tolerance time.Duration) (*Shift, error) {
	var best *Shift
	bestDist := time.Duration(math.MaxInt64)
	for _, s := range m.shifts {
		if s.BranchID != branchID || s.CashierID != cashierID {
			continue
		}
		dist := s.StartTime.Sub(start)
		if dist < 0 {
			dist = -dist
		}
		if dist <= tolerance && dist < bestDist {
			cp := *s
			best = &cp
			bestDist = dist
		}
	}
	if best == nil {
		return nil, ErrEntityNotFound
	}
	return best, nil
}

func (m *memStore) FindOpenShiftNear(_ context.Context, branchID, cashierID string, at time.Time, tolerance time.Duration) (*Shift, error) {
	var best *Shift
	for _, s := range m.shifts {
		if s.BranchID != branchID || s.CashierID != cashierID || s.IsClosed {
			continue
		}
		dist := s.StartTime.Sub(at)
		if dist < 0 {
			dist = -dist
		}
		if dist > tolerance {
			continue
		}
		if best == nil || s.StartTime.After(best.StartTime) {
			cp := *s
			best = &cp
		}
	}
	if best == nil {
		return nil, ErrEntityNotFound
	}
	return best, nil
}

func (m *memStore) LatestOpenShift(_ context.Context, branchID, cashierID string) (*Shift, error) {
	var best *Shift
	for _, s := range m.shifts {
		if s.BranchID != branchID || s.CashierID != cashierID || s.IsClosed {
			continue
		}
		if best == nil || s.StartTime.After(best.StartTime) {
			cp := *s
			best = &cp
		}
	}
	if best == nil {
		return nil, ErrEntityNotFound
	}
	return best, nil
}

func (m *memStore) LatestShiftWithin(_ context.Context, branchID, cashierID string, at time.Time, tolerance time.Duration) (*Shift, error) {
	var best *Shift
	for _, s := range m.shifts {
		if s.BranchID != branchID || s.CashierID != cashierID {
			continue
		}
		if s.StartTime.Before(at.Add(-tolerance)) {
			continue
		}
		if best == nil || s.StartTime.After(best.StartTime) {
			cp := *s
			best = &cp
		}
	}
	if best == nil {
		return nil, ErrEntityNotFound
	}
	return best, nil
}

func (m *memStore) ShiftSettlement(_ context.Context, shiftID string) (*Settlement, error) {
	settlement := &Settlement{}
	for _, o := range m.orders {
		if o.ShiftID != nil && *o.ShiftID == shiftID {
			settlement.Orders++
			settlement.Subtotal += o.Subtotal
		}
	}
	for _, e := range m.expenses {
		if e.ShiftID != nil && *e.ShiftID == shiftID && e.Category == "Loyalty Discounts" {
			settlement.LoyaltyDiscounts += e.Amount
		}
	}
	return settlement, nil
}

func (m *memStore) GetOrder(_ context.Context, id string) (*Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, ErrEntityNotFound
	}
	cp := *order
	return &cp, nil
}

func (m *memStore) CreateOrder(_ context.Context, order *Order) error {
	if m.createOrderFn != nil {
		if err := m.createOrderFn(order); err != nil {
			return err
		}
	}
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

func (m *memStore) UpdateOrder(_ context.Context, order *Order) error {
	if _, ok := m.orders[order.ID]; !ok {
		return ErrEntityNotFound
	}
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

func (m *memStore) GetCustomer(_ context.Context, id string) (*Customer, error) {
	customer, ok := m.customers[id]
	if !ok {
		return nil, ErrEntityNotFound
	}
	cp := *customer
	return &cp, nil
}

func (m *memStore) CreateCustomer(_ context.Context, customer *Customer) error {
	cp := *customer
	m.customers[customer.ID] = &cp
	return nil
}

func (m *memStore) UpdateCustomer(_ context.Context, customer *Customer) error {
	if _, ok := m.customers[customer.ID]; !ok {
		return ErrEntityNotFound
	}
	cp := *customer
	m.customers[customer.ID] = &cp
	return nil
}

func (m *memStore) FindCustomerByPhone(_ context.Context, branchID, phone string) (*Customer, error) {
	var best *Customer
	for _, c := range m.customers {
		if c.BranchID != branchID || c.Phone != phone {
			continue
		}
		if best == nil || c.CreatedAt.Before(best.CreatedAt) {
			cp := *c
			best = &cp
		}
	}
	if best == nil {
		return nil, ErrEntityNotFound
	}
	return best, nil
}

func (m *memStore) GetUser(_ context.Context, id string) (*User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, ErrEntityNotFound
	}
	cp := *user
	return &cp, nil
}

func (m *memStore) UpdateUser(_ context.Context, user *User) error {
	if _, ok := m.users[user.ID]; !ok {
		return ErrEntityNotFound
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memStore) GetInventoryItem(_ context.Context, id string) (*InventoryItem, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, ErrEntityNotFound
	}
	cp := *item
	return &cp, nil
}

func (m *memStore) CreateInventoryItem(_ context.Context, item *InventoryItem) error {
	cp := *item
	m.items[item.ID] = &cp
	return nil
}

func (m *memStore) UpdateInventoryItem(_ context.Context, item *InventoryItem) error {
	if _, ok := m.items[item.ID]; !ok {
		return ErrEntityNotFound
	}
	cp := *item
	m.items[item.ID] = &cp
	return nil
}

func (m *memStore) CreateInventoryTransaction(_ context.Context, tx *InventoryTransaction) error {
	cp := *tx
	m.invTxs[tx.ID] = &cp
	return nil
}

func (m *memStore) CreateWasteEntry(_ context.Context, waste *WasteEntry) error {
	cp := *waste
	m.waste[waste.ID] = &cp
	return nil
}

func (m *memStore) GetIngredient(_ context.Context, id string) (*Ingredient, error) {
	ing, ok := m.ingredients[id]
	if !ok {
		return nil, ErrEntityNotFound
	}
	cp := *ing
	return &cp, nil
}

func (m *memStore) CreateIngredient(_ context.Context, ing *Ingredient) error {
	cp := *ing
	m.ingredients[ing.ID] = &cp
	return nil
}

func (m *memStore) UpdateIngredient(_ context.Context, ing *Ingredient) error {
	if _, ok := m.ingredients[ing.ID]; !ok {
		return ErrEntityNotFound
	}
	cp := *ing
	m.ingredients[ing.ID] = &cp
	return nil
}

func (m *memStore) DeductIngredientStock(ctx context.Context, ingredientID string, quantity float64, referenceID string) error {
	return m.DeductIngredientUsages(ctx,
		[]StockDeduction{{IngredientID: ingredientID, Quantity: quantity}},
		referenceID,
	)
}

func (m *memStore) DeductIngredientUsages(_ context.Context, deductions []StockDeduction, referenceID string) error {
	// сначала проверка всех списаний с накоплением, потом применение:
	// частичного списания не бывает, как и в транзакционной реализации
	required := make(map[string]float64)
	for _, d := range deductions {
		ing, ok := m.ingredients[d.IngredientID]
		if !ok {
			return ErrEntityNotFound
		}
		required[d.IngredientID] += d.Quantity
		if ing.Stock < required[d.IngredientID] {
			return ErrInsufficientStock
		}
	}

	for _, d := range deductions {
		m.ingredients[d.IngredientID].Stock -= d.Quantity
		m.ledger = append(m.ledger, &StockLedgerEntry{
			IngredientID: d.IngredientID,
			Delta:        -d.Quantity,
			Reason:       "deduction",
			ReferenceID:  referenceID,
			CreatedAt:    time.Now(),
		})
	}
	return nil
}

func (m *memStore) GetMenuItem(_ context.Context, id string) (*MenuItem, error) {
	item, ok := m.menuItems[id]
	if !ok {
		return nil, ErrEntityNotFound
	}
	cp := *item
	return &cp, nil
}

func (m *memStore) CreateMenuItem(_ context.Context, item *MenuItem) error {
	cp := *item
	m.menuItems[item.ID] = &cp
	return nil
}

func (m *memStore) UpdateMenuItem(_ context.Context, item *MenuItem) error {
	if _, ok := m.menuItems[item.ID]; !ok {
		return ErrEntityNotFound
	}
	cp := *item
	m.menuItems[item.ID] = &cp
	return nil
}

func (m *memStore) FindPromoCodeByCode(_ context.Context, branchID, code string) (*PromoCode, error) {
	for _, p := range m.promos {
		if p.BranchID == branchID && p.Code == code {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrEntityNotFound
}

func (m *memStore) CreatePromoCode(_ context.Context, promo *PromoCode) error {
	cp := *promo
	m.promos[promo.ID] = &cp
	return nil
}

func (m *memStore) ConsumePromoCode(_ context.Context, id string) error {
	promo, ok := m.promos[id]
	if !ok {
		return ErrEntityNotFound
	}
	if !promo.IsActive || (promo.MaxUses > 0 && promo.UsedCount >= promo.MaxUses) {
		return ErrPromoExhausted
	}
	promo.UsedCount++
	return nil
}

func (m *memStore) GetTable(_ context.Context, id string) (*Table, error) {
	table, ok := m.tables[id]
	if !ok {
		return nil, ErrEntityNotFound
	}
	cp := *table
	return &cp, nil
}

func (m *memStore) CreateTable(_ context.Context, table *Table) error {
	cp := *table
	m.tables[table.ID] = &cp
	return nil
}

func (m *memStore) UpdateTable(_ context.Context, table *Table) error {
	if _, ok := m.tables[table.ID]; !ok {
		return ErrEntityNotFound
	}
	cp := *table
	m.tables[table.ID] = &cp
	return nil
}

func (m *memStore) CreateDailyExpense(_ context.Context, expense *DailyExpense) error {
	cp := *expense
	m.expenses[expense.ID] = &cp
	return nil
}

func (m *memStore) CreateVoidedItem(_ context.Context, item *VoidedItem) error {
	cp := *item
	m.voided[item.ID] = &cp
	return nil
}

func (m *memStore) CreateTransfer(_ context.Context, transfer *Transfer) error {
	cp := *transfer
	m.transfers[transfer.ID] = &cp
	return nil
}

func (m *memStore) GetPurchaseOrder(_ context.Context, id string) (*PurchaseOrder, error) {
	po, ok := m.purchases[id]
	if !ok {
		return nil, ErrEntityNotFound
	}
	cp := *po
	return &cp, nil
}

func (m *memStore) CreatePurchaseOrder(_ context.Context, po *PurchaseOrder) error {
	cp := *po
	m.purchases[po.ID] = &cp
	return nil
}

func (m *memStore) UpdatePurchaseOrder(_ context.Context, po *PurchaseOrder) error {
	if _, ok := m.purchases[po.ID]; !ok {
		return ErrEntityNotFound
	}
	cp := *po
	m.purchases[po.ID] = &cp
	return nil
}

func (m *memStore) GetReceiptSettings(_ context.Context, branchID string) (*ReceiptSettings, error) {
	for _, rs := range m.receipts {
		if rs.BranchID == branchID {
			cp := *rs
			return &cp, nil
		}
	}
	return nil, ErrEntityNotFound
}

func (m *memStore) CreateReceiptSettings(_ context.Context, rs *ReceiptSettings) error {
	cp := *rs
	m.receipts[rs.ID] = &cp
	return nil
}

func (m *memStore) UpdateReceiptSettings(_ context.Context, rs *ReceiptSettings) error {
	if _, ok := m.receipts[rs.ID]; !ok {
		return ErrEntityNotFound
	}
	cp := *rs
	m.receipts[rs.ID] = &cp
	return nil
}

func (m *memStore) CheckIdempotencyKey(_ context.Context, key string) (bool, error) {
	if m.checkIdemErr != nil {
		return false, m.checkIdemErr
	}
	_, ok := m.idemKeys[key]
	return ok, nil
}

func (m *memStore) RecordIdempotencyKey(_ context.Context, key, branchID string) error {
	if m.recordIdemErr != nil {
		return m.recordIdemErr
	}
	if _, ok := m.idemKeys[key]; ok {
		return nil
	}
	m.idemKeys[key] = IdempotencyRecord{Key: key, BranchID: branchID, RecordedAt: time.Now()}
	return nil
}

func (m *memStore) SaveConflict(_ context.Context, conflict *Conflict) error {
	cp := *conflict
	m.conflicts[conflict.ID] = &cp
	return nil
}

func (m *memStore) GetConflict(_ context.Context, id string) (*Conflict, error) {
	conflict, ok := m.conflicts[id]
	if !ok {
		return nil, ErrConflictNotFound
	}
	cp := *conflict
	return &cp, nil
}

func (m *memStore) PendingConflicts(_ context.Context) ([]*Conflict, error) {
	var out []*Conflict
	for _, c := range m.conflicts {
		if c.Status == ConflictPending {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DetectedAt.Before(out[j].DetectedAt)
	})
	return out, nil
}

func (m *memStore) ListConflicts(_ context.Context, branchID string, limit int) ([]*Conflict, error) {
	var out []*Conflict
	for _, c := range m.conflicts {
		if branchID != "" && c.BranchID != branchID {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DetectedAt.After(out[j].DetectedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) MarkConflictResolved(_ context.Context, conflict *Conflict) error {
	if _, ok := m.conflicts[conflict.ID]; !ok {
		return ErrConflictNotFound
	}
	cp := *conflict
	m.conflicts[conflict.ID] = &cp
	return nil
}

func (m *memStore) ConflictCounts(_ context.Context) (*ConflictStats, error) {
	stats := &ConflictStats{
		ByEntity:   make(map[string]int),
		ByStrategy: make(map[string]int),
	}
	for _, c := range m.conflicts {
		stats.Total++
		switch c.Status {
		case ConflictPending:
			stats.Pending++
		case ConflictResolved:
			stats.Resolved++
			if c.Strategy != "" {
				stats.ByStrategy[string(c.Strategy)]++
			}
		}
		stats.ByEntity[c.EntityType]++
	}
	return stats, nil
}

func (m *memStore) SaveHistoryEntry(_ context.Context, entry *SyncHistoryEntry) error {
	cp := *entry
	m.history = append(m.history, &cp)
	return nil
}

func (m *memStore) ListHistory(_ context.Context, branchID string, limit int) ([]*SyncHistoryEntry, error) {
	var out []*SyncHistoryEntry
	for _, e := range m.history {
		if branchID != "" && e.BranchID != branchID {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func stateKey(branchID, entityType string) string {
	return branchID + "/" + entityType
}

func (m *memStore) GetEntitySyncState(_ context.Context, branchID, entityType string) (*EntitySyncState, error) {
	state, ok := m.states[stateKey(branchID, entityType)]
	if !ok {
		return &EntitySyncState{
			BranchID:    branchID,
			EntityType:  entityType,
			SyncEnabled: true,
		}, nil
	}
	cp := *state
	return &cp, nil
}

func (m *memStore) UpsertEntitySyncState(_ context.Context, state *EntitySyncState) error {
	cp := *state
	m.states[stateKey(state.BranchID, state.EntityType)] = &cp
	return nil
}

func (m *memStore) ListEntitySyncStates(_ context.Context, branchID string) ([]*EntitySyncState, error) {
	var out []*EntitySyncState
	for _, s := range m.states {
		if s.BranchID != branchID {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].EntityType < out[j].EntityType
	})
	return out, nil
}

func (m *memStore) ChangedEntities(_ context.Context, _, entityType string, _ time.Time, limit int) ([]json.RawMessage, error) {
	changes := m.changedByType[entityType]
	if limit > 0 && len(changes) > limit {
		changes = changes[:limit]
	}
	return changes, nil
}
