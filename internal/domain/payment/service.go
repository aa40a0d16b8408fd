package payment

import (
	"context"
	"strings"
	"time"

	"tradebook/internal/core/apperror"
	"tradebook/internal/core/id"
	"tradebook/internal/core/tx"
	"tradebook/internal/core/types"
	"tradebook/internal/domain"
	"tradebook/internal/domain/bill"
	"tradebook/pkg/logger"
)

// Service applies payments to outstanding bills and maintains the history
// ledger. Each payment or reversal is one transaction: lock bills, validate,
// write paid increments and the history record together. Conflicting
// transactions are retried a bounded number of times.
type Service struct {
	bills bill.Repository
	repo  Repository
	txm   tx.Manager
}

// NewService creates a new payment service.
func NewService(bills bill.Repository, repo Repository, txm tx.Manager) *Service {
	return &Service{
		bills: bills,
		repo:  repo,
		txm:   txm,
	}
}

// PayBulk records a payment from/to a counterparty and auto-allocates it
// across their outstanding bills, oldest first. If the amount exceeds the
// counterparty's total outstanding balance, only the outstanding part is
// applied and recorded.
func (s *Service) PayBulk(ctx context.Context, kind bill.Kind, counterparty string, amount types.Money) (*HistoryRecord, error) {
	if strings.TrimSpace(counterparty) == "" {
		return nil, apperror.NewValidation(kind.CounterpartyRole() + " is required")
	}
	minorAmount, err := types.MinorUnitsFromMoney(amount)
	if err != nil {
		return nil, apperror.NewValidation(err.Error()).WithDetail("field", "amount")
	}
	if !minorAmount.IsPositive() {
		return nil, apperror.NewValidation("payment amount must be positive").WithDetail("field", "amount")
	}

	var rec *HistoryRecord
	err = tx.RunWithRetry(ctx, s.txm, tx.DefaultRetryAttempts, func(ctx context.Context) error {
		outstanding, err := s.bills.LockOutstanding(ctx, kind, counterparty)
		if err != nil {
			return err
		}
		if len(outstanding) == 0 {
			return apperror.NewValidation("counterparty has no outstanding bills").
				WithDetail("counterparty", counterparty)
		}

		dists, distributed := Distribute(minorAmount, outstanding)

		rec = newHistoryRecord(kind, counterparty, distributed, dists)
		return s.apply(ctx, rec, billsByID(outstanding))
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "bulk payment recorded",
		"history_id", rec.ID,
		"kind", kind,
		"counterparty", counterparty,
		"amount", rec.TotalAmount,
		"bills", len(rec.Distributions),
	)
	return rec, nil
}

// PayExplicit records a payment with caller-chosen per-bill amounts.
// The whole distribution is validated before any write; the first violation
// rejects the batch with no partial application.
func (s *Service) PayExplicit(ctx context.Context, kind bill.Kind, counterparty string, amount types.Money, lines []ExplicitLine) (*HistoryRecord, error) {
	if strings.TrimSpace(counterparty) == "" {
		return nil, apperror.NewValidation(kind.CounterpartyRole() + " is required")
	}
	minorAmount, err := types.MinorUnitsFromMoney(amount)
	if err != nil {
		return nil, apperror.NewOverpaymentRejected(err.Error()).WithDetail("field", "amount")
	}
	if !minorAmount.IsPositive() {
		return nil, apperror.NewValidation("payment amount must be positive").WithDetail("field", "amount")
	}

	var rec *HistoryRecord
	err = tx.RunWithRetry(ctx, s.txm, tx.DefaultRetryAttempts, func(ctx context.Context) error {
		ids := make([]id.ID, 0, len(lines))
		for _, line := range lines {
			ids = append(ids, line.BillID)
		}

		locked, err := s.bills.GetManyForUpdate(ctx, ids)
		if err != nil {
			return err
		}

		byID := billsByID(locked)
		for _, b := range byID {
			if b.Kind != kind || b.Counterparty != counterparty {
				return apperror.NewValidation("bill does not belong to this counterparty").
					WithDetail("bill_id", b.ID)
			}
		}

		dists, err := validateExplicit(minorAmount, lines, byID)
		if err != nil {
			return err
		}

		rec = newHistoryRecord(kind, counterparty, minorAmount, dists)
		return s.apply(ctx, rec, byID)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "explicit payment recorded",
		"history_id", rec.ID,
		"kind", kind,
		"counterparty", counterparty,
		"amount", rec.TotalAmount,
		"bills", len(rec.Distributions),
	)
	return rec, nil
}

// apply increments each distributed bill's paid amount, re-derives its
// balance and appends the history record, all inside the caller's transaction.
func (s *Service) apply(ctx context.Context, rec *HistoryRecord, byID map[id.ID]*bill.Bill) error {
	for _, d := range rec.Distributions {
		b := byID[d.BillID]

		b.Paid += d.Amount
		if paid, clamped := bill.ClampPaid(b.Total, b.Paid); clamped {
			// Distribute/validateExplicit bound every line by the
			// outstanding amount, so this only trips on a logic bug.
			logger.Error(ctx, "distribution exceeded bill total",
				"bill_id", b.ID, "paid", b.Paid, "total", b.Total)
			b.Paid = paid
		}
		b.RefreshBalance()
		b.Touch()

		if err := s.bills.Update(ctx, b); err != nil {
			return err
		}
	}

	return s.repo.Append(ctx, rec)
}

// Reverse undoes a payment: each affected bill's paid amount is decremented
// and the record is marked reversed. The record itself stays in the ledger.
// Reversing twice is rejected, never double-applied. Bills deleted since the
// payment are skipped; their history lines remain as the audit trail.
func (s *Service) Reverse(ctx context.Context, historyID id.ID) error {
	err := tx.RunWithRetry(ctx, s.txm, tx.DefaultRetryAttempts, func(ctx context.Context) error {
		rec, err := s.repo.GetForUpdate(ctx, historyID)
		if err != nil {
			return err
		}
		if rec.Reversed {
			return apperror.NewConflict("payment is already reversed").
				WithDetail("history_id", historyID)
		}

		for _, d := range rec.Distributions {
			b, err := s.bills.GetForUpdate(ctx, d.BillID)
			if err != nil {
				if apperror.IsNotFound(err) {
					logger.Warn(ctx, "reversed payment references deleted bill",
						"history_id", historyID, "bill_id", d.BillID)
					continue
				}
				return err
			}

			b.Paid -= d.Amount
			if paid, clamped := bill.ClampPaid(b.Total, b.Paid); clamped {
				logger.Warn(ctx, "reversal clamped paid amount",
					"history_id", historyID, "bill_id", b.ID, "paid", b.Paid)
				b.Paid = paid
			}
			b.RefreshBalance()
			b.Touch()

			if err := s.bills.Update(ctx, b); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		rec.Reversed = true
		rec.ReversedAt = &now
		rec.Touch()
		return s.repo.MarkReversed(ctx, rec)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "payment reversed", "history_id", historyID)
	return nil
}

// GetByID retrieves one history record with its distributions.
func (s *Service) GetByID(ctx context.Context, historyID id.ID) (*HistoryRecord, error) {
	return s.repo.GetByID(ctx, historyID)
}

// List retrieves history records, payment date descending.
func (s *Service) List(ctx context.Context, kind bill.Kind, filter domain.ListFilter) (domain.ListResult[*HistoryRecord], error) {
	return s.repo.List(ctx, kind, filter.Normalize())
}

func billsByID(bills []*bill.Bill) map[id.ID]*bill.Bill {
	byID := make(map[id.ID]*bill.Bill, len(bills))
	for _, b := range bills {
		byID[b.ID] = b
	}
	return byID
}
