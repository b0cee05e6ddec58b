package core

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// OtherBucket collects expenses without a category.
const OtherBucket = "Other"

var hundred = decimal.NewFromInt(100)

// Totals is the income/expense summary of a set of transactions.
type Totals struct {
	TotalIncome   decimal.Decimal `json:"totalIncome"`
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
	NetBalance    decimal.Decimal `json:"netBalance"`
}

// CategoryShare is one row of an expense breakdown.
type CategoryShare struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Share    float64         `json:"share"`
}

// Summarize adds up income and expenses. Anything not INCOME counts as expense.
func Summarize(txs []Transaction) Totals {
	var t Totals
	for _, tx := range txs {
		if tx.IsIncome() {
			t.TotalIncome = t.TotalIncome.Add(tx.Amount)
		} else {
			t.TotalExpenses = t.TotalExpenses.Add(tx.Amount)
		}
	}
	t.NetBalance = t.TotalIncome.Sub(t.TotalExpenses)
	return t
}

// SavingsRate is net balance as a percentage of income, 0 without income.
func (t Totals) SavingsRate() float64 {
	if !t.TotalIncome.IsPositive() {
		return 0
	}
	return t.NetBalance.Div(t.TotalIncome).Mul(hundred).InexactFloat64()
}

// ExpensesByCategory sums expense amounts per category id.
// Uncategorized expenses land in OtherBucket.
func ExpensesByCategory(txs []Transaction) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if tx.IsIncome() {
			continue
		}
		key := tx.CategoryID
		if key == "" {
			key = OtherBucket
		}
		out[key] = out[key].Add(tx.Amount)
	}
	return out
}

// CategoryBreakdown returns expense buckets sorted by amount (largest first,
// then by name) with each bucket's share of total expenses.
func CategoryBreakdown(txs []Transaction) []CategoryShare {
	buckets := ExpensesByCategory(txs)
	total := decimal.Zero
	for _, amount := range buckets {
		total = total.Add(amount)
	}

	out := make([]CategoryShare, 0, len(buckets))
	for name, amount := range buckets {
		share := 0.0
		if total.IsPositive() {
			share = amount.Div(total).InexactFloat64()
		}
		out = append(out, CategoryShare{Category: name, Amount: amount, Share: share})
	}
	slices.SortFunc(out, func(a, b CategoryShare) int {
		if c := b.Amount.Cmp(a.Amount); c != 0 {
			return c
		}
		return strings.Compare(a.Category, b.Category)
	})
	return out
}

// RecentTransactions returns up to n transactions, newest CreateTime first.
// Ties keep input order; records without a time sort last.
func RecentTransactions(txs []Transaction, n int) []Transaction {
	if n <= 0 {
		return []Transaction{}
	}
	out := slices.Clone(txs)
	slices.SortStableFunc(out, func(a, b Transaction) int {
		return strings.Compare(b.CreateTime, a.CreateTime)
	})
	if len(out) > n {
		out = out[:n]
	}
	if out == nil {
		out = []Transaction{}
	}
	return out
}
