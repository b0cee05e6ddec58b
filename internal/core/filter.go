package core

import "strings"

// FilterTransactions returns the transactions matching every predicate set in c,
// in input order. The input slice is never modified and the result is always a
// new slice, even when c has no predicates.
func FilterTransactions(c TransactionCriteria, txs []Transaction) []Transaction {
	out := make([]Transaction, 0, len(txs))
	if !c.HasFilters() {
		return append(out, txs...)
	}
	for _, tx := range txs {
		if c.Matches(tx) {
			out = append(out, tx)
		}
	}
	return out
}

// Matches reports whether tx satisfies all predicates in c.
// A record missing the field a predicate inspects does not match.
func (c TransactionCriteria) Matches(tx Transaction) bool {
	if c.MinAmount != nil && tx.Amount.LessThan(*c.MinAmount) {
		return false
	}
	if c.MaxAmount != nil && tx.Amount.GreaterThan(*c.MaxAmount) {
		return false
	}
	if c.CategoryID != "" && (tx.CategoryID == "" || !strings.EqualFold(tx.CategoryID, c.CategoryID)) {
		return false
	}
	if c.WalletID != "" && (tx.WalletID == "" || !containsFold(tx.WalletID, c.WalletID)) {
		return false
	}
	if c.DateFrom != "" && (tx.CreateTime == "" || tx.CreateTime < c.DateFrom) {
		return false
	}
	if c.DateTo != "" && (tx.CreateTime == "" || tx.CreateTime > c.UpperBound()) {
		return false
	}
	if c.Income != nil && tx.IsIncome() != *c.Income {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
