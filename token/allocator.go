package token

import "math"

// Default budget values. The ceiling matches a 128k-context model; the
// reserve keeps room for the model's own response.
const (
	DefaultMaxTokens          = 128000
	DefaultReserveForResponse = 4000
)

// Allocation is the per-call token budget breakdown. It is recomputed on
// every build and never persisted.
type Allocation struct {
	Total            int
	Available        int
	System           int
	Schema           int
	Examples         int
	Conversation     int
	Used             int
	Remaining        int
	CompressionRatio float64
}

// AllocateParams carries the rendered prompt blocks and the candidate
// history whose cost the allocator measures.
type AllocateParams struct {
	System   string
	Schema   string
	Examples string
	History  []string
}

// BudgetAllocator partitions a total token budget among prompt blocks and
// conversation history. Pure with respect to concurrent callers.
type BudgetAllocator struct {
	maxTokens int
	reserve   int
	estimator Estimator
}

// NewBudgetAllocator creates an allocator with default ceiling and reserve.
func NewBudgetAllocator(estimator Estimator) *BudgetAllocator {
	if estimator == nil {
		estimator = NewHeuristicEstimator()
	}
	return &BudgetAllocator{
		maxTokens: DefaultMaxTokens,
		reserve:   DefaultReserveForResponse,
		estimator: estimator,
	}
}

// WithMaxTokens sets the total ceiling.
func (a *BudgetAllocator) WithMaxTokens(n int) *BudgetAllocator {
	if n > 0 {
		a.maxTokens = n
	}
	return a
}

// WithReserve sets the response reserve.
func (a *BudgetAllocator) WithReserve(n int) *BudgetAllocator {
	if n >= 0 {
		a.reserve = n
	}
	return a
}

// Estimator returns the injected estimation strategy.
func (a *BudgetAllocator) Estimator() Estimator {
	return a.estimator
}

// MaxTokens returns the total ceiling.
func (a *BudgetAllocator) MaxTokens() int {
	return a.maxTokens
}

// AvailableTokens returns the ceiling minus the response reserve.
func (a *BudgetAllocator) AvailableTokens() int {
	available := a.maxTokens - a.reserve
	if available < 0 {
		return 0
	}
	return available
}

// Allocate computes the budget split for one call: fixed overhead for the
// system/schema/examples blocks, the remainder for history, and the
// compression ratio needed to fit the actual history cost.
func (a *BudgetAllocator) Allocate(p AllocateParams) Allocation {
	alloc := Allocation{
		Total:     a.maxTokens,
		Available: a.AvailableTokens(),
		System:    a.estimator.Estimate(p.System),
		Schema:    a.estimator.Estimate(p.Schema),
		Examples:  a.estimator.Estimate(p.Examples),
	}

	overhead := alloc.System + alloc.Schema + alloc.Examples
	alloc.Conversation = alloc.Available - overhead
	if alloc.Conversation < 0 {
		alloc.Conversation = 0
	}

	historyCost := 0
	for _, text := range p.History {
		historyCost += a.estimator.Estimate(text)
	}

	alloc.Used = overhead + historyCost
	alloc.Remaining = alloc.Available - alloc.Used
	if alloc.Remaining < 0 {
		alloc.Remaining = 0
	}

	if historyCost == 0 {
		alloc.CompressionRatio = 1.0
	} else {
		alloc.CompressionRatio = math.Min(1.0, float64(alloc.Conversation)/float64(historyCost))
	}

	return alloc
}

// TrimToFit returns the longest prefix of text whose estimated cost is at
// most maxTokens. Binary search over the rune cutoff keeps this at
// O(log n) estimator calls.
func (a *BudgetAllocator) TrimToFit(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	if a.estimator.Estimate(text) <= maxTokens {
		return text
	}

	runes := []rune(text)
	lo, hi := 0, len(runes)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if a.estimator.Estimate(string(runes[:mid])) <= maxTokens {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return string(runes[:lo])
}
