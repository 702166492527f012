package monitor

import "sync"

// Budget caps the number of interventions across a conversation's lifetime.
// A max of zero or less means unbounded. Exhaustion is a defined suppression
// outcome, not an error: detections past the cap are observed but never
// enqueued.
type Budget struct {
	mu   sync.Mutex
	max  int
	used int
}

// NewBudget creates a budget allowing max interventions.
func NewBudget(max int) *Budget {
	return &Budget{max: max}
}

// TryConsume increments the counter and returns true iff the budget is not
// exhausted. Safe under concurrent callers; the invariant used <= max holds
// at all times.
func (b *Budget) TryConsume() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.max > 0 && b.used >= b.max {
		return false
	}
	b.used++
	return true
}

// Used returns the number of interventions consumed so far.
func (b *Budget) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}

// Remaining returns how many interventions are left, or -1 if unbounded.
func (b *Budget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.max <= 0 {
		return -1
	}
	return b.max - b.used
}
