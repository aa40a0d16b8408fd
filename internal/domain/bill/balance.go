package bill

import (
	"tradebook/internal/core/types"
)

// DeriveBalance computes the outstanding amount and payment status of a bill
// from its total and paid amounts. Pure and side-effect free.
//
// Contract: paid is already clamped to [0, total] by the caller; this function
// never clamps silently. It must run after every mutation of total or paid -
// the stored Outstanding/Status fields are projections of its result, never
// facts of their own.
func DeriveBalance(total, paid types.MinorUnits) (outstanding types.MinorUnits, status PaymentStatus) {
	outstanding = total - paid

	switch {
	case paid <= 0:
		status = StatusUnpaid
	case paid >= total:
		status = StatusPaid
	default:
		status = StatusPartial
	}
	return outstanding, status
}

// ClampPaid bounds paid to [0, total]. Returns the clamped value and whether
// clamping happened, so callers can log when an edit shrinks a total below
// the amount already paid.
func ClampPaid(total, paid types.MinorUnits) (types.MinorUnits, bool) {
	if paid < 0 {
		return 0, true
	}
	if paid > total {
		return total, true
	}
	return paid, false
}

// RefreshBalance re-derives the stored Outstanding and Status fields.
// Paid must be clamped beforehand.
func (b *Bill) RefreshBalance() {
	b.Outstanding, b.Status = DeriveBalance(b.Total, b.Paid)
}
