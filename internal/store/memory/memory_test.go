package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"pfm/internal/core"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func mustBalance(t *testing.T, s *Store, walletID, want string) {
	t.Helper()
	w, err := s.GetWallet(context.Background(), walletID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if !w.Balance.Equal(dec(want)) {
		t.Fatalf("wallet %s: expected balance %s, got %s", walletID, want, w.Balance)
	}
}

func TestWalletBalanceFollowsTransactions(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, w := range []core.Wallet{
		{ID: "a", Name: "Cash", Balance: dec("100"), OpeningBalance: dec("100")},
		{ID: "b", Name: "Bank"},
	} {
		if err := s.CreateWallet(ctx, w); err != nil {
			t.Fatalf("create wallet: %v", err)
		}
	}

	tx := core.Transaction{ID: "t1", Name: "Lunch", Amount: dec("30"), Kind: core.KindExpense, WalletID: "a", CreateTime: "2024-01-01 12:00:00"}
	if err := s.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("create tx: %v", err)
	}
	mustBalance(t, s, "a", "70")

	// switch to income on the other wallet
	tx.Kind, tx.WalletID, tx.Amount = core.KindIncome, "b", dec("50")
	if err := s.UpdateTransaction(ctx, tx); err != nil {
		t.Fatalf("update tx: %v", err)
	}
	mustBalance(t, s, "a", "100")
	mustBalance(t, s, "b", "50")

	if _, err := s.DeleteTransaction(ctx, "t1"); err != nil {
		t.Fatalf("delete tx: %v", err)
	}
	mustBalance(t, s, "b", "0")
}

func TestTransactionRequiresExistingWallet(t *testing.T) {
	ctx := context.Background()
	s := New()
	err := s.CreateTransaction(ctx, core.Transaction{ID: "t1", Name: "x", Amount: dec("1"), Kind: core.KindExpense, WalletID: "ghost"})
	if !errors.Is(err, core.ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}
	if txs, _ := s.ListTransactions(ctx, ""); len(txs) != 0 {
		t.Fatalf("failed create must not store the transaction")
	}
	if err := s.CreateTransaction(ctx, core.Transaction{ID: "t2", Name: "x", Amount: dec("1"), Kind: core.KindExpense}); err != nil {
		t.Fatalf("transaction without wallet should be accepted: %v", err)
	}
}

func TestListTransactionsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.CreateWallet(ctx, core.Wallet{ID: "a", Name: "A"})
	for _, tx := range []core.Transaction{
		{ID: "old", CreateTime: "2024-01-01 00:00:00", WalletID: "a"},
		{ID: "new", CreateTime: "2024-03-01 00:00:00"},
		{ID: "mid", CreateTime: "2024-02-01 00:00:00", WalletID: "a"},
	} {
		tx.Name, tx.Kind, tx.Amount = "x", core.KindExpense, dec("1")
		if err := s.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	all, _ := s.ListTransactions(ctx, "")
	if all[0].ID != "new" || all[1].ID != "mid" || all[2].ID != "old" {
		t.Fatalf("unexpected order: %+v", all)
	}
	onlyA, _ := s.ListTransactions(ctx, "a")
	if len(onlyA) != 2 || onlyA[0].ID != "mid" {
		t.Fatalf("unexpected wallet listing: %+v", onlyA)
	}
}

func TestDeleteWalletInUse(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.CreateWallet(ctx, core.Wallet{ID: "a", Name: "A"})
	_ = s.CreateTransaction(ctx, core.Transaction{ID: "t", Name: "x", Amount: dec("1"), Kind: core.KindIncome, WalletID: "a"})
	if err := s.DeleteWallet(ctx, "a"); !errors.Is(err, core.ErrWalletInUse) {
		t.Fatalf("expected ErrWalletInUse, got %v", err)
	}
	_, _ = s.DeleteTransaction(ctx, "t")
	if err := s.DeleteWallet(ctx, "a"); err != nil {
		t.Fatalf("delete wallet: %v", err)
	}
}

func TestBudgetLinks(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.CreateBudget(ctx, core.Budget{ID: "b", Name: "Jan", Limit: dec("100"), StartDate: "2024-01-01", EndDate: "2024-01-31"}); err != nil {
		t.Fatalf("create budget: %v", err)
	}
	limit := dec("40")
	if err := s.LinkCategory(ctx, "b", "1", &limit); err != nil {
		t.Fatalf("link: %v", err)
	}
	if err := s.LinkCategory(ctx, "b", "1", nil); err != nil {
		t.Fatalf("duplicate link should be ignored: %v", err)
	}
	if err := s.LinkCategory(ctx, "b", "missing", nil); !errors.Is(err, core.ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}
	links, _ := s.ListBudgetCategories(ctx, "b")
	if len(links) != 1 || links[0].CategoryName != "Groceries" || !links[0].CategoryLimit.Equal(limit) {
		t.Fatalf("unexpected links: %+v", links)
	}

	err := s.ReplaceBudgetCategories(ctx, "b", []core.BudgetCategory{{CategoryID: "2"}, {CategoryID: "missing"}})
	if !errors.Is(err, core.ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}
	if links, _ := s.ListBudgetCategories(ctx, "b"); len(links) != 1 || links[0].CategoryID != "1" {
		t.Fatalf("failed replace must keep old links: %+v", links)
	}
	if err := s.ReplaceBudgetCategories(ctx, "b", []core.BudgetCategory{{CategoryID: "2"}, {CategoryID: "4"}, {CategoryID: "2"}}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if links, _ := s.ListBudgetCategories(ctx, "b"); len(links) != 2 || links[0].CategoryID != "2" || links[1].CategoryID != "4" {
		t.Fatalf("unexpected replaced links: %+v", links)
	}

	if err := s.DeleteCategory(ctx, "4"); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	if links, _ := s.ListBudgetCategories(ctx, "b"); len(links) != 1 {
		t.Fatalf("deleting a category should drop its links: %+v", links)
	}
}

func TestNewFromFilesSeedsCategories(t *testing.T) {
	dir := t.TempDir()
	s := NewFromFiles(dir)
	cats, _ := s.ListCategories(context.Background())
	if len(cats) != 6 {
		t.Fatalf("expected only defaults when file missing, got %d", len(cats))
	}

	content := "# extras\nBooks\nBooks\nBonus,income\nBroken,transfer\n\n"
	if err := os.WriteFile(filepath.Join(dir, "categories.txt"), []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s = NewFromFiles(dir)
	cats, _ = s.ListCategories(context.Background())
	if len(cats) != 8 {
		t.Fatalf("expected 8 categories, got %d: %+v", len(cats), cats)
	}
	if cats[6].Name != "Books" || cats[6].Type != core.KindExpense || !cats[6].Custom {
		t.Fatalf("unexpected seeded category: %+v", cats[6])
	}
	if cats[7].Name != "Bonus" || cats[7].Type != core.KindIncome {
		t.Fatalf("unexpected seeded category: %+v", cats[7])
	}
}

func TestContributeGoalIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.CreateGoal(ctx, core.Goal{ID: "g", Name: "Trip", Target: dec("500")}); err != nil {
		t.Fatalf("create goal: %v", err)
	}
	var wg sync.WaitGroup
	for range 250 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.ContributeGoal(ctx, "g", dec("2")); err != nil {
				t.Errorf("contribute: %v", err)
			}
		}()
	}
	wg.Wait()
	g, _ := s.GetGoal(ctx, "g")
	if !g.Balance.Equal(dec("500")) {
		t.Fatalf("balance = %s, want 500", g.Balance)
	}
	if _, err := s.ContributeGoal(ctx, "missing", dec("1")); !errors.Is(err, core.ErrGoalNotFound) {
		t.Fatalf("expected ErrGoalNotFound, got %v", err)
	}
}
