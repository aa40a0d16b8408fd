package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tradebook/internal/core/apperror"
	"tradebook/internal/core/id"
	"tradebook/internal/core/types"
	"tradebook/internal/domain"
	"tradebook/internal/domain/bill"
)

const billsTable = "bills"

// BillRepo implements bill.Repository on PostgreSQL.
type BillRepo struct {
	txm     *TxManager
	builder squirrel.StatementBuilderType
	columns []string
}

// NewBillRepo creates a new bill repository.
func NewBillRepo(txm *TxManager) *BillRepo {
	return &BillRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns: ExtractDBColumns[bill.Bill](),
	}
}

func (r *BillRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder.Select(r.columns...).From(billsTable)
}

// Create inserts a new bill.
func (r *BillRepo) Create(ctx context.Context, b *bill.Bill) error {
	data := StructToMap(b)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in bill")
	}

	q := r.builder.Insert(billsTable).SetMap(data)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert bill: %w", err)
	}

	return nil
}

// GetByID retrieves a bill by ID.
func (r *BillRepo) GetByID(ctx context.Context, billID id.ID) (*bill.Bill, error) {
	return r.get(ctx, billID, false)
}

// GetForUpdate retrieves a bill with a row lock.
func (r *BillRepo) GetForUpdate(ctx context.Context, billID id.ID) (*bill.Bill, error) {
	return r.get(ctx, billID, true)
}

func (r *BillRepo) get(ctx context.Context, billID id.ID, forUpdate bool) (*bill.Bill, error) {
	q := r.baseSelect().Where(squirrel.Eq{"id": billID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var b bill.Bill
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &b, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("bill", billID.String())
		}
		return nil, fmt.Errorf("get bill: %w", err)
	}

	return &b, nil
}

// GetManyForUpdate retrieves and locks the given bills in id order.
// Locking in a stable order avoids deadlocks between concurrent payments
// touching overlapping bill sets.
func (r *BillRepo) GetManyForUpdate(ctx context.Context, ids []id.ID) ([]*bill.Bill, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	q := r.baseSelect().
		Where(squirrel.Eq{"id": ids}).
		OrderBy("id").
		Suffix("FOR UPDATE")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var bills []*bill.Bill
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &bills, sql, args...); err != nil {
		return nil, fmt.Errorf("lock bills: %w", err)
	}

	if len(bills) != len(uniqueIDs(ids)) {
		found := make(map[id.ID]bool, len(bills))
		for _, b := range bills {
			found[b.ID] = true
		}
		for _, billID := range ids {
			if !found[billID] {
				return nil, apperror.NewNotFound("bill", billID.String())
			}
		}
	}

	return bills, nil
}

// Update writes a bill with an optimistic version check. The entity arrives
// already touched, so the stored row must still hold the previous version.
func (r *BillRepo) Update(ctx context.Context, b *bill.Bill) error {
	data := StructToMap(b)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in bill")
	}
	delete(data, "id")
	delete(data, "created_at")

	q := r.builder.Update(billsTable).
		SetMap(data).
		Where(squirrel.Eq{"id": b.ID}).
		Where(squirrel.Eq{"version": b.Version - 1})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update bill: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("bill", b.ID.String())
	}

	return nil
}

// Delete removes a bill permanently. History lines referencing it stay.
func (r *BillRepo) Delete(ctx context.Context, billID id.ID) error {
	q := r.builder.Delete(billsTable).Where(squirrel.Eq{"id": billID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete bill: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("bill", billID.String())
	}

	return nil
}

// ListOutstanding returns unpaid and partially paid bills, oldest first.
func (r *BillRepo) ListOutstanding(ctx context.Context, kind bill.Kind, counterparty string) ([]*bill.Bill, error) {
	return r.listOutstanding(ctx, kind, counterparty, false)
}

// LockOutstanding is ListOutstanding with row locks for payment distribution.
func (r *BillRepo) LockOutstanding(ctx context.Context, kind bill.Kind, counterparty string) ([]*bill.Bill, error) {
	return r.listOutstanding(ctx, kind, counterparty, true)
}

func (r *BillRepo) listOutstanding(ctx context.Context, kind bill.Kind, counterparty string, forUpdate bool) ([]*bill.Bill, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"kind": kind}).
		Where(squirrel.Gt{"outstanding": int64(0)}).
		OrderBy("date", "id")

	if counterparty != "" {
		q = q.Where(squirrel.Eq{"counterparty": counterparty})
	}
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var bills []*bill.Bill
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &bills, sql, args...); err != nil {
		return nil, fmt.Errorf("select outstanding: %w", err)
	}

	return bills, nil
}

// OutstandingTotal sums outstanding amounts for one counterparty.
func (r *BillRepo) OutstandingTotal(ctx context.Context, kind bill.Kind, counterparty string) (types.MinorUnits, error) {
	q := r.builder.Select("COALESCE(SUM(outstanding), 0)").
		From(billsTable).
		Where(squirrel.Eq{"kind": kind})

	if counterparty != "" {
		q = q.Where(squirrel.Eq{"counterparty": counterparty})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var total int64
	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum outstanding: %w", err)
	}

	return types.MinorUnits(total), nil
}

// List retrieves bills of one kind with filtering and pagination, newest first.
func (r *BillRepo) List(ctx context.Context, kind bill.Kind, filter domain.ListFilter) (domain.ListResult[*bill.Bill], error) {
	result := domain.ListResult[*bill.Bill]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect().Where(squirrel.Eq{"kind": kind})

	if filter.Counterparty != "" {
		q = q.Where(squirrel.Eq{"counterparty": filter.Counterparty})
	}
	if filter.Item != "" {
		q = q.Where(squirrel.Eq{"item": filter.Item})
	}

	// Count
	countQ := r.builder.Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count bills: %w", err)
	}

	q = q.OrderBy("date DESC", "created_at DESC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list bills: %w", err)
	}

	return result, nil
}

func uniqueIDs(ids []id.ID) []id.ID {
	seen := make(map[id.ID]bool, len(ids))
	out := ids[:0:0]
	for _, v := range ids {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// Ensure interface compliance.
var _ bill.Repository = (*BillRepo)(nil)
