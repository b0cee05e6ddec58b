package core

import "github.com/shopspring/decimal"

// endOfDay extends a date-only upper bound so the whole day is included.
const endOfDay = " 23:59:59"

// TransactionCriteria is a bundle of optional predicates over transactions.
// Nil pointers and empty strings mean "no constraint".
type TransactionCriteria struct {
	MinAmount  *decimal.Decimal `json:"minAmount,omitempty"`
	MaxAmount  *decimal.Decimal `json:"maxAmount,omitempty"`
	CategoryID string           `json:"categoryId,omitempty"`
	WalletID   string           `json:"walletId,omitempty"`
	DateFrom   string           `json:"dateFrom,omitempty"`
	DateTo     string           `json:"dateTo,omitempty"`
	Income     *bool            `json:"income,omitempty"`
}

// HasFilters reports whether at least one predicate is set.
func (c TransactionCriteria) HasFilters() bool {
	return c.MinAmount != nil ||
		c.MaxAmount != nil ||
		c.CategoryID != "" ||
		c.WalletID != "" ||
		c.DateFrom != "" ||
		c.DateTo != "" ||
		c.Income != nil
}

// UpperBound returns DateTo, extended to end of day when it is date-only.
func (c TransactionCriteria) UpperBound() string {
	if len(c.DateTo) == len(DateLayout) {
		return c.DateTo + endOfDay
	}
	return c.DateTo
}

// WithMinAmount returns a copy of c with MinAmount set.
func (c TransactionCriteria) WithMinAmount(d decimal.Decimal) TransactionCriteria {
	c.MinAmount = &d
	return c
}

// WithMaxAmount returns a copy of c with MaxAmount set.
func (c TransactionCriteria) WithMaxAmount(d decimal.Decimal) TransactionCriteria {
	c.MaxAmount = &d
	return c
}

// WithIncome returns a copy of c restricted to income (true) or expenses (false).
func (c TransactionCriteria) WithIncome(income bool) TransactionCriteria {
	c.Income = &income
	return c
}
