package payment

import (
	"bytes"
	"sort"

	"tradebook/internal/core/apperror"
	"tradebook/internal/core/id"
	"tradebook/internal/core/types"
	"tradebook/internal/domain/bill"
)

// SumTolerance is how far an explicit distribution's sum may deviate from the
// declared payment amount: one minor unit (0.01 currency units).
const SumTolerance types.MinorUnits = 1

// sortOldestFirst orders bills by date ascending, ties broken by bill id so
// the allocation is deterministic.
func sortOldestFirst(bills []*bill.Bill) {
	sort.SliceStable(bills, func(i, j int) bool {
		if !bills[i].Date.Equal(bills[j].Date) {
			return bills[i].Date.Before(bills[j].Date)
		}
		return bytes.Compare(bills[i].ID[:], bills[j].ID[:]) < 0
	})
}

// Distribute allocates amount across the given bills oldest first.
// For each bill with outstanding > 0 it applies min(remaining, outstanding)
// until the amount is exhausted or bills run out.
//
// The bill slice must already be filtered to outstanding bills of one
// counterparty; filtering is the caller's responsibility, which lets the same
// algorithm serve bulk auto-allocation and pre-filtered manual subsets.
//
// Guarantees: the returned total never exceeds amount, and every line amount
// is bounded by its bill's outstanding amount at read time.
func Distribute(amount types.MinorUnits, bills []*bill.Bill) ([]Distribution, types.MinorUnits) {
	sortOldestFirst(bills)

	var (
		dists       []Distribution
		distributed types.MinorUnits
	)
	remaining := amount

	for _, b := range bills {
		if remaining <= 0 {
			break
		}
		if !b.Outstanding.IsPositive() {
			continue
		}

		applied := remaining.Min(b.Outstanding)
		dists = append(dists, newDistribution(b, applied))
		distributed += applied
		remaining -= applied
	}

	return dists, distributed
}

// ExplicitLine is one caller-chosen allocation in manual payment mode.
// The amount stays decimal until validation so sub-minor-unit precision is
// detected and rejected instead of silently rounded.
type ExplicitLine struct {
	BillID id.ID
	Amount types.Money
}

// validateExplicit checks a caller-supplied distribution against the declared
// payment amount and the targeted bills, and converts it into distribution
// lines. The whole batch is rejected on the first violation:
//   - a line amount that is not representable in minor units, or not positive
//   - a line amount exceeding its bill's outstanding amount
//   - a sum deviating from the declared amount by more than SumTolerance
func validateExplicit(amount types.MinorUnits, lines []ExplicitLine, byID map[id.ID]*bill.Bill) ([]Distribution, error) {
	if len(lines) == 0 {
		return nil, apperror.NewValidation("at least one distribution line is required")
	}

	var (
		dists []Distribution
		sum   types.MinorUnits
	)
	seen := make(map[id.ID]bool, len(lines))

	for _, line := range lines {
		if seen[line.BillID] {
			return nil, apperror.NewValidation("duplicate bill in distribution").
				WithDetail("bill_id", line.BillID)
		}
		seen[line.BillID] = true

		lineAmount, err := types.MinorUnitsFromMoney(line.Amount)
		if err != nil {
			return nil, apperror.NewOverpaymentRejected(err.Error()).
				WithDetail("bill_id", line.BillID)
		}
		if !lineAmount.IsPositive() {
			return nil, apperror.NewValidation("distribution amount must be positive").
				WithDetail("bill_id", line.BillID)
		}

		b, ok := byID[line.BillID]
		if !ok {
			return nil, apperror.NewNotFound("bill", line.BillID)
		}
		if lineAmount > b.Outstanding {
			return nil, apperror.NewOverpaymentRejected("amount exceeds bill outstanding balance").
				WithDetail("bill_id", line.BillID).
				WithDetail("amount", lineAmount.String()).
				WithDetail("outstanding", b.Outstanding.String())
		}

		dists = append(dists, newDistribution(b, lineAmount))
		sum += lineAmount
	}

	if (sum - amount).Abs() > SumTolerance {
		return nil, apperror.NewOverpaymentRejected("distribution total does not match payment amount").
			WithDetail("distributed", sum.String()).
			WithDetail("amount", amount.String())
	}

	return dists, nil
}
