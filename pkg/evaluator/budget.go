package evaluator

// Budget holds the resource limits for a program execution.
// A zero MaxDepth leaves call nesting unbounded.
type Budget struct {
	MaxDepth int
}

// BudgetTracker tracks resource consumption during execution.
type BudgetTracker struct {
	Depth    int
	MaxDepth int
	Calls    int64
	Prints   int64
}
