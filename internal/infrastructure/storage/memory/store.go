// Package memory provides an in-memory implementation of the storage
// repositories and the transaction manager, for tests and local development.
//
// A single mutex serializes transactions; rollback is simulated with a
// snapshot of all maps taken before the transaction body runs.
package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"tradebook/internal/core/apperror"
	"tradebook/internal/core/id"
	"tradebook/internal/core/tx"
	"tradebook/internal/core/types"
	"tradebook/internal/domain"
	"tradebook/internal/domain/bill"
	"tradebook/internal/domain/payment"
	"tradebook/internal/domain/stock"
)

// Store holds all ledger state in maps.
type Store struct {
	mu      sync.RWMutex
	bills   map[id.ID]bill.Bill
	items   map[string]stock.Item
	history map[id.ID]payment.HistoryRecord
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		bills:   make(map[id.ID]bill.Bill),
		items:   make(map[string]stock.Item),
		history: make(map[id.ID]payment.HistoryRecord),
	}
}

// Ensure compile-time interface compliance.
var _ tx.Manager = (*Store)(nil)

// txMarker flags a context as being inside a transaction, so nested
// RunInTransaction calls reuse it and repo methods skip locking.
type txMarker struct{}

// RunInTransaction implements tx.Manager with snapshot + rollback semantics.
// Transactions are fully serialized, which also satisfies every row-lock
// expectation the domain services have.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txMarker{}) != nil {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txMarker{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type storeSnapshot struct {
	bills   map[id.ID]bill.Bill
	items   map[string]stock.Item
	history map[id.ID]payment.HistoryRecord
}

func (s *Store) snapshot() storeSnapshot {
	snap := storeSnapshot{
		bills:   make(map[id.ID]bill.Bill, len(s.bills)),
		items:   make(map[string]stock.Item, len(s.items)),
		history: make(map[id.ID]payment.HistoryRecord, len(s.history)),
	}
	for k, v := range s.bills {
		snap.bills[k] = v
	}
	for k, v := range s.items {
		snap.items[k] = v
	}
	for k, v := range s.history {
		snap.history[k] = cloneRecord(v)
	}
	return snap
}

func (s *Store) restore(snap storeSnapshot) {
	s.bills = snap.bills
	s.items = snap.items
	s.history = snap.history
}

// rlock takes the read lock unless the context is already inside a
// transaction, which holds the write lock for its whole duration.
func (s *Store) rlock(ctx context.Context) func() {
	if ctx.Value(txMarker{}) != nil {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) wlock(ctx context.Context) func() {
	if ctx.Value(txMarker{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func cloneRecord(rec payment.HistoryRecord) payment.HistoryRecord {
	out := rec
	if rec.ReversedAt != nil {
		at := *rec.ReversedAt
		out.ReversedAt = &at
	}
	out.Distributions = append([]payment.Distribution(nil), rec.Distributions...)
	return out
}

// --- bill.Repository ---

// BillStore implements bill.Repository over the shared Store.
type BillStore struct {
	s *Store
}

// Bills returns the bill repository view.
func (s *Store) Bills() *BillStore { return &BillStore{s: s} }

var _ bill.Repository = (*BillStore)(nil)

func (r *BillStore) Create(ctx context.Context, b *bill.Bill) error {
	defer r.s.wlock(ctx)()
	r.s.bills[b.ID] = *b
	return nil
}

func (r *BillStore) GetByID(ctx context.Context, billID id.ID) (*bill.Bill, error) {
	defer r.s.rlock(ctx)()
	stored, ok := r.s.bills[billID]
	if !ok {
		return nil, apperror.NewNotFound("bill", billID.String())
	}
	return &stored, nil
}

func (r *BillStore) GetForUpdate(ctx context.Context, billID id.ID) (*bill.Bill, error) {
	return r.GetByID(ctx, billID)
}

func (r *BillStore) GetManyForUpdate(ctx context.Context, ids []id.ID) ([]*bill.Bill, error) {
	defer r.s.rlock(ctx)()

	seen := make(map[id.ID]bool, len(ids))
	bills := make([]*bill.Bill, 0, len(ids))
	for _, billID := range ids {
		if seen[billID] {
			continue
		}
		seen[billID] = true

		stored, ok := r.s.bills[billID]
		if !ok {
			return nil, apperror.NewNotFound("bill", billID.String())
		}
		bills = append(bills, &stored)
	}

	sort.Slice(bills, func(i, j int) bool {
		return bytes.Compare(bills[i].ID[:], bills[j].ID[:]) < 0
	})
	return bills, nil
}

func (r *BillStore) Update(ctx context.Context, b *bill.Bill) error {
	defer r.s.wlock(ctx)()

	stored, ok := r.s.bills[b.ID]
	if !ok {
		return apperror.NewNotFound("bill", b.ID.String())
	}
	if stored.Version != b.Version-1 {
		return apperror.NewConcurrentModification("bill", b.ID.String())
	}

	r.s.bills[b.ID] = *b
	return nil
}

func (r *BillStore) Delete(ctx context.Context, billID id.ID) error {
	defer r.s.wlock(ctx)()

	if _, ok := r.s.bills[billID]; !ok {
		return apperror.NewNotFound("bill", billID.String())
	}
	delete(r.s.bills, billID)
	return nil
}

func (r *BillStore) ListOutstanding(ctx context.Context, kind bill.Kind, counterparty string) ([]*bill.Bill, error) {
	defer r.s.rlock(ctx)()

	var bills []*bill.Bill
	for _, stored := range r.s.bills {
		if stored.Kind != kind || !stored.Outstanding.IsPositive() {
			continue
		}
		if counterparty != "" && stored.Counterparty != counterparty {
			continue
		}
		b := stored
		bills = append(bills, &b)
	}

	sort.Slice(bills, func(i, j int) bool {
		if !bills[i].Date.Equal(bills[j].Date) {
			return bills[i].Date.Before(bills[j].Date)
		}
		return bytes.Compare(bills[i].ID[:], bills[j].ID[:]) < 0
	})
	return bills, nil
}

func (r *BillStore) LockOutstanding(ctx context.Context, kind bill.Kind, counterparty string) ([]*bill.Bill, error) {
	return r.ListOutstanding(ctx, kind, counterparty)
}

func (r *BillStore) OutstandingTotal(ctx context.Context, kind bill.Kind, counterparty string) (types.MinorUnits, error) {
	defer r.s.rlock(ctx)()

	var total types.MinorUnits
	for _, stored := range r.s.bills {
		if stored.Kind != kind {
			continue
		}
		if counterparty != "" && stored.Counterparty != counterparty {
			continue
		}
		total += stored.Outstanding
	}
	return total, nil
}

func (r *BillStore) List(ctx context.Context, kind bill.Kind, filter domain.ListFilter) (domain.ListResult[*bill.Bill], error) {
	defer r.s.rlock(ctx)()

	var bills []*bill.Bill
	for _, stored := range r.s.bills {
		if stored.Kind != kind {
			continue
		}
		if filter.Counterparty != "" && stored.Counterparty != filter.Counterparty {
			continue
		}
		if filter.Item != "" && stored.Item != filter.Item {
			continue
		}
		b := stored
		bills = append(bills, &b)
	}

	sort.Slice(bills, func(i, j int) bool {
		if !bills[i].Date.Equal(bills[j].Date) {
			return bills[i].Date.After(bills[j].Date)
		}
		return bills[i].CreatedAt.After(bills[j].CreatedAt)
	})

	result := domain.ListResult[*bill.Bill]{
		TotalCount: int64(len(bills)),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	result.Items = page(bills, filter)
	return result, nil
}

// --- stock.Repository ---

// StockStore implements stock.Repository over the shared Store.
type StockStore struct {
	s *Store
}

// Stock returns the stock repository view.
func (s *Store) Stock() *StockStore { return &StockStore{s: s} }

var _ stock.Repository = (*StockStore)(nil)

func (r *StockStore) Get(ctx context.Context, name string) (stock.Item, error) {
	defer r.s.rlock(ctx)()
	item, ok := r.s.items[name]
	if !ok {
		return stock.Item{}, apperror.NewNotFound("stock item", name)
	}
	return item, nil
}

func (r *StockStore) GetForUpdate(ctx context.Context, name string) (stock.Item, bool, error) {
	defer r.s.rlock(ctx)()
	item, ok := r.s.items[name]
	return item, ok, nil
}

func (r *StockStore) Upsert(ctx context.Context, item stock.Item) error {
	defer r.s.wlock(ctx)()
	r.s.items[item.Name] = item
	return nil
}

func (r *StockStore) List(ctx context.Context) ([]stock.Item, error) {
	defer r.s.rlock(ctx)()

	items := make([]stock.Item, 0, len(r.s.items))
	for _, item := range r.s.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (r *StockStore) ListLowStock(ctx context.Context) ([]stock.Item, error) {
	defer r.s.rlock(ctx)()

	var items []stock.Item
	for _, item := range r.s.items {
		if item.IsLow() {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

// --- payment.Repository ---

// PaymentStore implements payment.Repository over the shared Store.
type PaymentStore struct {
	s *Store
}

// Payments returns the payment history repository view.
func (s *Store) Payments() *PaymentStore { return &PaymentStore{s: s} }

var _ payment.Repository = (*PaymentStore)(nil)

func (r *PaymentStore) Append(ctx context.Context, rec *payment.HistoryRecord) error {
	defer r.s.wlock(ctx)()
	r.s.history[rec.ID] = cloneRecord(*rec)
	return nil
}

func (r *PaymentStore) GetByID(ctx context.Context, historyID id.ID) (*payment.HistoryRecord, error) {
	defer r.s.rlock(ctx)()
	stored, ok := r.s.history[historyID]
	if !ok {
		return nil, apperror.NewNotFound("payment", historyID.String())
	}
	rec := cloneRecord(stored)
	return &rec, nil
}

func (r *PaymentStore) GetForUpdate(ctx context.Context, historyID id.ID) (*payment.HistoryRecord, error) {
	return r.GetByID(ctx, historyID)
}

func (r *PaymentStore) MarkReversed(ctx context.Context, rec *payment.HistoryRecord) error {
	defer r.s.wlock(ctx)()

	stored, ok := r.s.history[rec.ID]
	if !ok {
		return apperror.NewNotFound("payment", rec.ID.String())
	}
	if stored.Version != rec.Version-1 {
		return apperror.NewConcurrentModification("payment", rec.ID.String())
	}

	r.s.history[rec.ID] = cloneRecord(*rec)
	return nil
}

func (r *PaymentStore) List(ctx context.Context, kind bill.Kind, filter domain.ListFilter) (domain.ListResult[*payment.HistoryRecord], error) {
	defer r.s.rlock(ctx)()

	var records []*payment.HistoryRecord
	for _, stored := range r.s.history {
		if stored.Kind != kind {
			continue
		}
		if filter.Counterparty != "" && stored.Counterparty != filter.Counterparty {
			continue
		}
		rec := cloneRecord(stored)
		records = append(records, &rec)
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.After(records[j].Date)
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	result := domain.ListResult[*payment.HistoryRecord]{
		TotalCount: int64(len(records)),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	result.Items = page(records, filter)
	return result, nil
}

// page applies offset and limit to a sorted slice.
func page[T any](items []T, filter domain.ListFilter) []T {
	if filter.Offset >= len(items) {
		return nil
	}
	items = items[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(items) {
		items = items[:filter.Limit]
	}
	return items
}
