package core

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"
)

// PriorityThreshold is the priority above which an open goal is highlighted.
const PriorityThreshold = 5

// Progress is balance/target clamped to [.., 1]; 0 when target is not positive.
func (g Goal) Progress() float64 {
	if !g.Target.IsPositive() {
		return 0
	}
	p := g.Balance.Div(g.Target)
	if p.GreaterThan(decimal.NewFromInt(1)) {
		return 1
	}
	return p.InexactFloat64()
}

// PercentComplete is the unclamped completion percentage.
func (g Goal) PercentComplete() float64 {
	if !g.Target.IsPositive() {
		return 0
	}
	return g.Balance.Div(g.Target).Mul(hundred).InexactFloat64()
}

// Reached reports whether the balance has met the target.
func (g Goal) Reached() bool {
	return g.Balance.GreaterThanOrEqual(g.Target)
}

// PriorityGoals returns unreached goals above PriorityThreshold, highest priority first.
func PriorityGoals(goals []Goal) []Goal {
	out := make([]Goal, 0)
	for _, g := range goals {
		if g.Priority > PriorityThreshold && !g.Reached() {
			out = append(out, g)
		}
	}
	SortGoalsByPriority(out)
	return out
}

// SortGoalsByPriority orders goals by priority descending, stable on ties.
func SortGoalsByPriority(goals []Goal) {
	slices.SortStableFunc(goals, func(a, b Goal) int {
		return cmp.Compare(b.Priority, a.Priority)
	})
}
