package core

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// BudgetCategory links a budget to a category, optionally overriding the
// category limit. Spent, remaining and percentage are derived and only change
// through SetSpentAmount.
type BudgetCategory struct {
	BudgetID      string
	CategoryID    string
	CategoryName  string
	CategoryLimit *decimal.Decimal

	spent          decimal.Decimal
	remaining      decimal.Decimal
	percentageUsed float64
}

// NewBudgetCategory returns a link with zero spending.
func NewBudgetCategory(budgetID, categoryID string, limit *decimal.Decimal) BudgetCategory {
	bc := BudgetCategory{BudgetID: budgetID, CategoryID: categoryID, CategoryLimit: limit}
	bc.SetSpentAmount(decimal.Zero)
	return bc
}

// SetSpentAmount records spending and recomputes the derived fields.
// Without a positive limit remaining and percentage stay at zero.
func (bc *BudgetCategory) SetSpentAmount(spent decimal.Decimal) {
	bc.spent = spent
	bc.remaining = decimal.Zero
	bc.percentageUsed = 0
	if bc.CategoryLimit != nil && bc.CategoryLimit.IsPositive() {
		bc.remaining = bc.CategoryLimit.Sub(spent)
		bc.percentageUsed = spent.Div(*bc.CategoryLimit).Mul(hundred).InexactFloat64()
	}
}

func (bc BudgetCategory) SpentAmount() decimal.Decimal { return bc.spent }
func (bc BudgetCategory) RemainingAmount() decimal.Decimal { return bc.remaining }
func (bc BudgetCategory) PercentageUsed() float64 { return bc.percentageUsed }

// IsOverBudget is true when a limit is set and spending exceeds it.
func (bc BudgetCategory) IsOverBudget() bool {
	return bc.CategoryLimit != nil && bc.spent.GreaterThan(*bc.CategoryLimit)
}

func (bc BudgetCategory) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		BudgetID       string           `json:"budgetId"`
		CategoryID     string           `json:"categoryId"`
		CategoryName   string           `json:"categoryName,omitempty"`
		CategoryLimit  *decimal.Decimal `json:"categoryLimit,omitempty"`
		Spent          decimal.Decimal  `json:"spent"`
		Remaining      decimal.Decimal  `json:"remaining"`
		PercentageUsed float64          `json:"percentageUsed"`
		OverBudget     bool             `json:"overBudget"`
	}{
		BudgetID:       bc.BudgetID,
		CategoryID:     bc.CategoryID,
		CategoryName:   bc.CategoryName,
		CategoryLimit:  bc.CategoryLimit,
		Spent:          bc.spent,
		Remaining:      bc.remaining,
		PercentageUsed: bc.percentageUsed,
		OverBudget:     bc.IsOverBudget(),
	})
}
