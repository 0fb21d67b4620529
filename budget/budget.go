// Package budget implements the cooperative work-unit ledger every iterator
// operation is driven with (spec.md §3 "Budget discipline"). A Budget is a
// signed count of remaining work units plus a cancellation bit; it replaces
// the source's process-wide SABOTAGE_DECL macro with an explicit field so
// cancellation travels with the call instead of living in a global (spec.md
// DESIGN NOTES, "Global sabotage flag").
package budget

// Budget tracks remaining work units for a single call chain. Operations
// deduct from it as they do work and must stop and report NeedMoreBudget as
// soon as it goes negative; they must never deduct more than the work they
// actually performed.
type Budget struct {
	remaining  int64
	cancelled  bool
	cancelFunc func() bool
}

// New returns a Budget with n work units available.
func New(n int64) *Budget {
	return &Budget{remaining: n}
}

// WithCancel returns a Budget with n work units available and a polling
// function consulted on every Exhausted/Cancelled check; once it returns true
// the budget behaves as permanently exhausted and Cancelled reports true.
func WithCancel(n int64, poll func() bool) *Budget {
	return &Budget{remaining: n, cancelFunc: poll}
}

// Spend deducts n work units (n must be >= 0) and returns the remaining
// balance. Callers test Exhausted() (or the sign of the return value) after
// every Spend to decide whether to suspend.
func (b *Budget) Spend(n int64) int64 {
	if b == nil {
		return 1 // an absent budget is treated as unlimited by callers that check Exhausted.
	}
	b.remaining -= n
	return b.remaining
}

// Remaining reports the work units left without spending any.
func (b *Budget) Remaining() int64 {
	if b == nil {
		return 1
	}
	return b.remaining
}

// Exhausted reports whether the budget has gone negative or the caller's
// cancellation flag has been raised. Every suspension point in this tree
// tests this (spec.md §5 "Suspension points").
func (b *Budget) Exhausted() bool {
	if b == nil {
		return false
	}
	if b.cancelled {
		return true
	}
	if b.cancelFunc != nil && b.cancelFunc() {
		b.cancelled = true
		return true
	}
	return b.remaining < 0
}

// Cancelled reports whether this budget was stopped by cancellation rather
// than by running out of units — the caller should destroy the iterator
// tree rather than resume it (spec.md §5 "Cancellation").
func (b *Budget) Cancelled() bool {
	if b == nil {
		return false
	}
	return b.cancelled || (b.cancelFunc != nil && b.cancelFunc())
}

// Sub carves out a child budget of exactly n units, for handing a bounded
// slice of the remaining work to a sub-operation (e.g. one AND contest
// round's per-competitor turn). Unspent units are not returned automatically;
// callers that need that must call Refund.
func (b *Budget) Sub(n int64) *Budget {
	b.Spend(n)
	return &Budget{remaining: n, cancelFunc: b.pollFunc()}
}

// Refund gives back n previously-spent units, used when a child budget
// created with Sub finishes early with unspent capacity.
func (b *Budget) Refund(n int64) {
	if b == nil {
		return
	}
	b.remaining += n
}

func (b *Budget) pollFunc() func() bool {
	if b == nil {
		return nil
	}
	return b.cancelFunc
}
