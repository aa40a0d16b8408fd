package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tradebook/internal/core/apperror"
	"tradebook/internal/domain/stock"
)

const stockItemsTable = "stock_items"

// StockRepo implements stock.Repository on PostgreSQL.
// Item name is the primary key; the quantity row is locked FOR UPDATE so
// concurrent bill mutations on the same item serialize.
type StockRepo struct {
	txm     *TxManager
	builder squirrel.StatementBuilderType
	columns []string
}

// NewStockRepo creates a new stock repository.
func NewStockRepo(txm *TxManager) *StockRepo {
	return &StockRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns: ExtractDBColumns[stock.Item](),
	}
}

func (r *StockRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder.Select(r.columns...).From(stockItemsTable)
}

// Get returns the item or NotFound.
func (r *StockRepo) Get(ctx context.Context, name string) (stock.Item, error) {
	var item stock.Item

	q := r.baseSelect().Where(squirrel.Eq{"name": name})

	sql, args, err := q.ToSql()
	if err != nil {
		return item, fmt.Errorf("build query: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &item, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return item, apperror.NewNotFound("stock item", name)
		}
		return item, fmt.Errorf("get stock item: %w", err)
	}

	return item, nil
}

// GetForUpdate returns the item with a row lock.
// Absence is reported via the second return value, not an error, because the
// first receipt of a new item creates its row on demand.
func (r *StockRepo) GetForUpdate(ctx context.Context, name string) (stock.Item, bool, error) {
	var item stock.Item

	q := r.baseSelect().
		Where(squirrel.Eq{"name": name}).
		Suffix("FOR UPDATE")

	sql, args, err := q.ToSql()
	if err != nil {
		return item, false, fmt.Errorf("build query: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &item, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return item, false, nil
		}
		return item, false, fmt.Errorf("get stock item for update: %w", err)
	}

	return item, true, nil
}

// Upsert inserts or replaces the item row.
func (r *StockRepo) Upsert(ctx context.Context, item stock.Item) error {
	data := StructToMap(item)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in stock item")
	}

	q := r.builder.Insert(stockItemsTable).
		SetMap(data).
		Suffix(`ON CONFLICT (name) DO UPDATE SET
			quantity = EXCLUDED.quantity,
			unit = EXCLUDED.unit,
			low_stock_at = EXCLUDED.low_stock_at,
			updated_at = EXCLUDED.updated_at`)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("upsert stock item: %w", err)
	}

	return nil
}

// List returns all items ordered by name.
func (r *StockRepo) List(ctx context.Context) ([]stock.Item, error) {
	q := r.baseSelect().OrderBy("name")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []stock.Item
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list stock items: %w", err)
	}

	return items, nil
}

// ListLowStock returns items at or below their low-stock threshold.
func (r *StockRepo) ListLowStock(ctx context.Context) ([]stock.Item, error) {
	q := r.baseSelect().
		Where(squirrel.Gt{"low_stock_at": int64(0)}).
		Where("quantity <= low_stock_at").
		OrderBy("name")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []stock.Item
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}

	return items, nil
}

// Ensure interface compliance.
var _ stock.Repository = (*StockRepo)(nil)
