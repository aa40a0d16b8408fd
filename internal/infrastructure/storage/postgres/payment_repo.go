package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tradebook/internal/core/apperror"
	"tradebook/internal/core/id"
	"tradebook/internal/domain"
	"tradebook/internal/domain/bill"
	"tradebook/internal/domain/payment"
)

const (
	paymentHistoryTable       = "payment_history"
	paymentDistributionsTable = "payment_distributions"
)

// PaymentRepo implements payment.Repository on PostgreSQL.
// The history table is append-only: the only UPDATE it ever sees is
// MarkReversed flipping the reversed flag.
type PaymentRepo struct {
	txm        *TxManager
	builder    squirrel.StatementBuilderType
	recordCols []string
	lineCols   []string
	lineInsert *BatchInserter
}

// NewPaymentRepo creates a new payment history repository.
func NewPaymentRepo(txm *TxManager) *PaymentRepo {
	return &PaymentRepo{
		txm:        txm,
		builder:    squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		recordCols: ExtractDBColumns[payment.HistoryRecord](),
		lineCols:   ExtractDBColumns[payment.Distribution](),
		lineInsert: NewBatchInserter(txm),
	}
}

func (r *PaymentRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder.Select(r.recordCols...).From(paymentHistoryTable)
}

// Append stores a record with its distribution lines.
func (r *PaymentRepo) Append(ctx context.Context, rec *payment.HistoryRecord) error {
	data := StructToMap(rec)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in history record")
	}

	q := r.builder.Insert(paymentHistoryTable).SetMap(data)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert history record: %w", err)
	}

	return r.insertLines(ctx, rec.Distributions)
}

// insertLines writes distribution lines, via COPY when inside a transaction.
func (r *PaymentRepo) insertLines(ctx context.Context, lines []payment.Distribution) error {
	if len(lines) == 0 {
		return nil
	}

	if tx := r.txm.GetTx(ctx); tx != nil {
		rows := make([][]any, 0, len(lines))
		for _, d := range lines {
			rows = append(rows, []any{
				d.LineID, d.HistoryID, d.BillID, d.Amount,
				d.BillNumber, d.BillDate, d.Item, d.BillTotal,
			})
		}
		if _, err := r.lineInsert.CopyFromSlice(ctx, paymentDistributionsTable, r.lineCols, rows); err != nil {
			return fmt.Errorf("copy distribution lines: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(paymentDistributionsTable).Columns(r.lineCols...)
	for _, d := range lines {
		q = q.Values(
			d.LineID, d.HistoryID, d.BillID, d.Amount,
			d.BillNumber, d.BillDate, d.Item, d.BillTotal,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert distribution lines: %w", err)
	}

	return nil
}

// GetByID retrieves a record with its lines.
func (r *PaymentRepo) GetByID(ctx context.Context, historyID id.ID) (*payment.HistoryRecord, error) {
	return r.get(ctx, historyID, false)
}

// GetForUpdate retrieves a record with a row lock.
func (r *PaymentRepo) GetForUpdate(ctx context.Context, historyID id.ID) (*payment.HistoryRecord, error) {
	return r.get(ctx, historyID, true)
}

func (r *PaymentRepo) get(ctx context.Context, historyID id.ID, forUpdate bool) (*payment.HistoryRecord, error) {
	q := r.baseSelect().Where(squirrel.Eq{"id": historyID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rec payment.HistoryRecord
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &rec, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("payment", historyID.String())
		}
		return nil, fmt.Errorf("get history record: %w", err)
	}

	lines, err := r.loadLines(ctx, []id.ID{historyID})
	if err != nil {
		return nil, err
	}
	rec.Distributions = lines[historyID]

	return &rec, nil
}

// loadLines fetches distribution lines for the given records in one query.
func (r *PaymentRepo) loadLines(ctx context.Context, historyIDs []id.ID) (map[id.ID][]payment.Distribution, error) {
	if len(historyIDs) == 0 {
		return nil, nil
	}

	q := r.builder.Select(r.lineCols...).
		From(paymentDistributionsTable).
		Where(squirrel.Eq{"history_id": historyIDs}).
		OrderBy("bill_date", "bill_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []payment.Distribution
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select distribution lines: %w", err)
	}

	byRecord := make(map[id.ID][]payment.Distribution, len(historyIDs))
	for _, line := range lines {
		byRecord[line.HistoryID] = append(byRecord[line.HistoryID], line)
	}

	return byRecord, nil
}

// MarkReversed persists the reversed flag with an optimistic version check.
func (r *PaymentRepo) MarkReversed(ctx context.Context, rec *payment.HistoryRecord) error {
	q := r.builder.Update(paymentHistoryTable).
		Set("reversed", rec.Reversed).
		Set("reversed_at", rec.ReversedAt).
		Set("version", rec.Version).
		Set("updated_at", rec.UpdatedAt).
		Where(squirrel.Eq{"id": rec.ID}).
		Where(squirrel.Eq{"version": rec.Version - 1})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("mark reversed: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("payment", rec.ID.String())
	}

	return nil
}

// List retrieves records of one kind, payment date descending.
func (r *PaymentRepo) List(ctx context.Context, kind bill.Kind, filter domain.ListFilter) (domain.ListResult[*payment.HistoryRecord], error) {
	result := domain.ListResult[*payment.HistoryRecord]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect().Where(squirrel.Eq{"kind": kind})

	if filter.Counterparty != "" {
		q = q.Where(squirrel.Eq{"counterparty": filter.Counterparty})
	}

	// Count
	countQ := r.builder.Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count history: %w", err)
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
		return result, fmt.Errorf("list history: %w", err)
	}

	historyIDs := make([]id.ID, 0, len(result.Items))
	for _, rec := range result.Items {
		historyIDs = append(historyIDs, rec.ID)
	}

	byRecord, err := r.loadLines(ctx, historyIDs)
	if err != nil {
		return result, err
	}
	for _, rec := range result.Items {
		rec.Distributions = byRecord[rec.ID]
	}

	return result, nil
}

// Ensure interface compliance.
var _ payment.Repository = (*PaymentRepo)(nil)
