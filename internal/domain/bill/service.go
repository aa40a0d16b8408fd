package bill

import (
	"context"
	"fmt"
	"time"

	"tradebook/internal/core/apperror"
	"tradebook/internal/core/entity"
	"tradebook/internal/core/id"
	"tradebook/internal/core/numerator"
	"tradebook/internal/core/tx"
	"tradebook/internal/core/types"
	"tradebook/internal/domain"
	"tradebook/internal/domain/stock"
	"tradebook/pkg/logger"
)

// Service orchestrates the bill lifecycle. Every mutation runs as one
// transaction spanning the bill write, the stock ledger effect and the
// balance re-derivation, so no caller can observe a half-applied bill.
type Service struct {
	repo    Repository
	stock   *stock.Service
	numbers numerator.Generator
	txm     tx.Manager
}

// NewService creates a new bill service.
func NewService(repo Repository, stockSvc *stock.Service, numbers numerator.Generator, txm tx.Manager) *Service {
	return &Service{
		repo:    repo,
		stock:   stockSvc,
		numbers: numbers,
		txm:     txm,
	}
}

// CreateInput carries the fields for a new bill. Monetary values arrive as
// decimals and are converted to minor units at this boundary.
type CreateInput struct {
	Kind         Kind
	Counterparty string
	Item         string
	Quantity     types.Quantity
	Unit         string
	Rate         types.Money
	Discount     types.Money
	Date         time.Time
}

// UpdateInput carries optional field changes; nil means keep the current value.
type UpdateInput struct {
	Counterparty *string
	Item         *string
	Quantity     *types.Quantity
	Unit         *string
	Rate         *types.Money
	Discount     *types.Money
	Date         *time.Time
}

// Create records a new bill and applies its stock effect.
// Sales require sufficient stock; purchases create the item on demand.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Bill, error) {
	rate, err := moneyToMinor(in.Rate, "rate")
	if err != nil {
		return nil, err
	}
	discount, err := moneyToMinor(in.Discount, "discount")
	if err != nil {
		return nil, err
	}

	b := &Bill{
		BaseRecord:   entity.NewBaseRecord(),
		Kind:         in.Kind,
		Counterparty: in.Counterparty,
		Item:         in.Item,
		Quantity:     in.Quantity,
		Unit:         in.Unit,
		Rate:         rate,
		Discount:     discount,
		Date:         in.Date,
	}
	if b.Date.IsZero() {
		b.Date = time.Now().UTC()
	}

	if err := b.Validate(ctx); err != nil {
		return nil, err
	}

	number, err := s.numbers.GetNextNumber(ctx, numerator.DefaultConfig(b.Kind.NumberPrefix()), b.Date)
	if err != nil {
		return nil, fmt.Errorf("generate bill number: %w", err)
	}
	b.Number = number

	b.ComputeTotal()
	b.Paid = 0
	b.RefreshBalance()

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if b.Kind == KindSale {
			if err := s.stock.Decrease(ctx, b.Item, b.Quantity); err != nil {
				return err
			}
		} else {
			if err := s.stock.Increase(ctx, b.Item, b.Quantity, b.Unit); err != nil {
				return err
			}
		}
		return s.repo.Create(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "bill created",
		"id", b.ID,
		"number", b.Number,
		"kind", b.Kind,
		"counterparty", b.Counterparty,
		"total", b.Total,
	)
	return b, nil
}

// Update edits a bill. The stock effect is reconciled as one net adjustment
// per item: delta = newQuantity*sign - oldQuantity*sign, and an item rename
// reverses the old item before applying to the new one. Paid is carried over
// and re-clamped to the recomputed total.
func (s *Service) Update(ctx context.Context, billID id.ID, kind Kind, in UpdateInput) (*Bill, error) {
	var updated *Bill

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		b, err := s.repo.GetForUpdate(ctx, billID)
		if err != nil {
			return err
		}
		if b.Kind != kind {
			return apperror.NewNotFound("bill", billID)
		}

		oldItem := b.Item
		oldQty := b.Quantity

		if in.Counterparty != nil {
			b.Counterparty = *in.Counterparty
		}
		if in.Item != nil {
			b.Item = *in.Item
		}
		if in.Quantity != nil {
			b.Quantity = *in.Quantity
		}
		if in.Unit != nil {
			b.Unit = *in.Unit
		}
		if in.Rate != nil {
			rate, err := moneyToMinor(*in.Rate, "rate")
			if err != nil {
				return err
			}
			b.Rate = rate
		}
		if in.Discount != nil {
			discount, err := moneyToMinor(*in.Discount, "discount")
			if err != nil {
				return err
			}
			b.Discount = discount
		}
		if in.Date != nil {
			b.Date = *in.Date
		}

		if err := b.Validate(ctx); err != nil {
			return err
		}

		if err := s.reconcileStock(ctx, b.Kind, oldItem, oldQty, b.Item, b.Quantity); err != nil {
			return err
		}

		b.ComputeTotal()
		if paid, clamped := ClampPaid(b.Total, b.Paid); clamped {
			// A payment cannot be orphaned above a reduced total.
			logger.Warn(ctx, "paid amount clamped to reduced bill total",
				"bill_id", b.ID,
				"number", b.Number,
				"paid", b.Paid,
				"total", b.Total,
			)
			b.Paid = paid
		}
		b.RefreshBalance()
		b.Touch()

		if err := s.repo.Update(ctx, b); err != nil {
			return err
		}
		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "bill updated", "id", updated.ID, "number", updated.Number, "total", updated.Total)
	return updated, nil
}

// reconcileStock applies the net stock effect of a bill edit.
func (s *Service) reconcileStock(ctx context.Context, kind Kind, oldItem string, oldQty types.Quantity, newItem string, newQty types.Quantity) error {
	sign := kind.StockSign()

	if oldItem != newItem {
		// Reverse the old item, then apply the new one.
		if err := s.stock.Adjust(ctx, oldItem, signedQty(oldQty, -sign)); err != nil {
			return err
		}
		return s.stock.Adjust(ctx, newItem, signedQty(newQty, sign))
	}

	delta := signedQty(newQty, sign) - signedQty(oldQty, sign)
	return s.stock.Adjust(ctx, oldItem, delta)
}

func signedQty(q types.Quantity, sign int) types.Quantity {
	if sign < 0 {
		return q.Neg()
	}
	return q
}

// Delete removes a bill and reverses its stock effect. Payment history
// records that reference the bill are kept as an audit trail of money that
// actually changed hands.
func (s *Service) Delete(ctx context.Context, billID id.ID, kind Kind) error {
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		b, err := s.repo.GetForUpdate(ctx, billID)
		if err != nil {
			return err
		}
		if b.Kind != kind {
			return apperror.NewNotFound("bill", billID)
		}

		if err := s.stock.Adjust(ctx, b.Item, b.StockDelta().Neg()); err != nil {
			return err
		}
		return s.repo.Delete(ctx, billID)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "bill deleted", "id", billID, "kind", kind)
	return nil
}

// GetByID retrieves a bill.
func (s *Service) GetByID(ctx context.Context, billID id.ID) (*Bill, error) {
	return s.repo.GetByID(ctx, billID)
}

// ListOutstanding returns outstanding bills of one kind, oldest first.
func (s *Service) ListOutstanding(ctx context.Context, kind Kind, counterparty string) ([]*Bill, error) {
	return s.repo.ListOutstanding(ctx, kind, counterparty)
}

// OutstandingTotal sums a counterparty's outstanding balance.
func (s *Service) OutstandingTotal(ctx context.Context, kind Kind, counterparty string) (types.MinorUnits, error) {
	return s.repo.OutstandingTotal(ctx, kind, counterparty)
}

// List retrieves bills with filtering and pagination.
func (s *Service) List(ctx context.Context, kind Kind, filter domain.ListFilter) (domain.ListResult[*Bill], error) {
	return s.repo.List(ctx, kind, filter.Normalize())
}

func moneyToMinor(m types.Money, field string) (types.MinorUnits, error) {
	v, err := types.MinorUnitsFromMoney(m)
	if err != nil {
		return 0, apperror.NewValidation(err.Error()).WithDetail("field", field)
	}
	return v, nil
}
