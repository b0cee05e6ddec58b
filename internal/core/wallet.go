package core

import "github.com/shopspring/decimal"

// Worth splits the combined wallet balance into assets and liabilities.
type Worth struct {
	Total       decimal.Decimal `json:"total"`
	Assets      decimal.Decimal `json:"assets"`
	Liabilities decimal.Decimal `json:"liabilities"`
}

// NetWorth sums wallet balances. A positive total is all assets, a negative
// one all liabilities.
func NetWorth(wallets []Wallet) Worth {
	total := decimal.Zero
	for _, w := range wallets {
		total = total.Add(w.Balance)
	}
	return Worth{
		Total:       total,
		Assets:      decimal.Max(decimal.Zero, total),
		Liabilities: decimal.Min(decimal.Zero, total).Abs(),
	}
}

// DeriveBalance replays txs on top of an opening balance.
func DeriveBalance(opening decimal.Decimal, txs []Transaction) decimal.Decimal {
	b := opening
	for _, tx := range txs {
		b = b.Add(tx.Delta())
	}
	return b
}
