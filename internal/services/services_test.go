package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pfm/internal/amqp"
	"pfm/internal/cache"
	"pfm/internal/core"
	"pfm/internal/store/memory"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, ev *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func fixedClock(ts string) func() time.Time {
	t, _ := time.Parse(core.TimestampLayout, ts)
	return func() time.Time { return t }
}

func newLedger(t *testing.T, pub EventPublisher) (*LedgerService, *memory.Store) {
	t.Helper()
	st := memory.New()
	svc := NewLedgerService(st, pub)
	svc.now = fixedClock("2024-01-10 09:30:00")
	return svc, st
}

func TestLedgerCreateAssignsIDAndPublishes(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc, _ := newLedger(t, pub)

	w, err := svc.CreateWallet(ctx, core.Wallet{Name: "Cash", OpeningBalance: dec("100")})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if w.ID == "" || !w.Balance.Equal(dec("100")) {
		t.Fatalf("unexpected wallet: %+v", w)
	}

	tx, err := svc.CreateTransaction(ctx, core.Transaction{Name: "Coffee", Amount: dec("3.5"), Kind: core.KindExpense, WalletID: w.ID})
	if err != nil {
		t.Fatalf("create tx: %v", err)
	}
	if tx.ID == "" || tx.CreateTime != "2024-01-10 09:30:00" {
		t.Fatalf("id/time not assigned: %+v", tx)
	}
	if len(pub.events) != 1 || pub.events[0].Type != amqp.TransactionCreated || pub.events[0].TransactionID != tx.ID {
		t.Fatalf("unexpected events: %+v", pub.events)
	}

	got, _ := svc.GetWallet(ctx, w.ID)
	if !got.Balance.Equal(dec("96.5")) {
		t.Fatalf("expected 96.5, got %s", got.Balance)
	}
}

func TestLedgerPublishFailureDoesNotFailRequest(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{err: amqp.ErrCircuitOpen}
	svc, _ := newLedger(t, pub)

	tx, err := svc.CreateTransaction(ctx, core.Transaction{Name: "Salary", Amount: dec("1000"), Kind: core.KindIncome})
	if err != nil {
		t.Fatalf("publish errors must not propagate: %v", err)
	}
	if err := svc.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	last := pub.events[len(pub.events)-1]
	if last.Type != amqp.TransactionDeleted || last.Snapshot == nil || last.Snapshot.Name != "Salary" {
		t.Fatalf("delete event should carry a snapshot: %+v", last)
	}
}

func TestLedgerValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newLedger(t, nil)

	tests := []struct {
		name string
		tx   core.Transaction
		want error
	}{
		{"negative amount", core.Transaction{Name: "x", Amount: dec("-1"), Kind: core.KindExpense}, core.ErrInvalidAmount},
		{"no name", core.Transaction{Amount: dec("1"), Kind: core.KindExpense}, core.ErrEmptyName},
		{"bad kind", core.Transaction{Name: "x", Amount: dec("1"), Kind: "TRANSFER"}, core.ErrInvalidKind},
		{"bad time", core.Transaction{Name: "x", Amount: dec("1"), Kind: core.KindIncome, CreateTime: "yesterday"}, core.ErrInvalidTimestamp},
		{"unknown wallet", core.Transaction{Name: "x", Amount: dec("1"), Kind: core.KindIncome, WalletID: "ghost"}, core.ErrWalletNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateTransaction(ctx, tt.tx); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if _, err := svc.UpdateTransaction(ctx, core.Transaction{ID: "missing", Name: "x", Amount: dec("1"), Kind: core.KindIncome}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReconcileAfterMixedOperations(t *testing.T) {
	ctx := context.Background()
	svc, st := newLedger(t, nil)

	a, _ := svc.CreateWallet(ctx, core.Wallet{Name: "A", OpeningBalance: dec("50")})
	b, _ := svc.CreateWallet(ctx, core.Wallet{Name: "B"})

	t1, _ := svc.CreateTransaction(ctx, core.Transaction{Name: "pay", Amount: dec("200"), Kind: core.KindIncome, WalletID: a.ID})
	t2, _ := svc.CreateTransaction(ctx, core.Transaction{Name: "rent", Amount: dec("120"), Kind: core.KindExpense, WalletID: a.ID})
	_, _ = svc.CreateTransaction(ctx, core.Transaction{Name: "gift", Amount: dec("30"), Kind: core.KindIncome, WalletID: b.ID})

	t2.WalletID, t2.Amount = b.ID, dec("100")
	t2.CreateTime = ""
	if _, err := svc.UpdateTransaction(ctx, t2); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := svc.DeleteTransaction(ctx, t1.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	for _, id := range []string{a.ID, b.ID} {
		r, err := svc.ReconcileWallet(ctx, id)
		if err != nil {
			t.Fatalf("reconcile: %v", err)
		}
		if !r.InSync {
			t.Fatalf("wallet %s drifted: %+v", id, r)
		}
	}
	wa, _ := st.GetWallet(ctx, a.ID)
	wb, _ := st.GetWallet(ctx, b.ID)
	if !wa.Balance.Equal(dec("50")) || !wb.Balance.Equal(dec("-70")) {
		t.Fatalf("unexpected balances a=%s b=%s", wa.Balance, wb.Balance)
	}

	worth, _ := svc.NetWorth(ctx)
	if !worth.Total.Equal(dec("-20")) || !worth.Liabilities.Equal(dec("20")) || !worth.Assets.IsZero() {
		t.Fatalf("unexpected net worth: %+v", worth)
	}
}

func TestReconcileReportsDrift(t *testing.T) {
	ctx := context.Background()
	svc, st := newLedger(t, nil)
	_ = st.CreateWallet(ctx, core.Wallet{ID: "w", Name: "W", Balance: dec("10"), OpeningBalance: dec("0")})

	r, err := svc.ReconcileWallet(ctx, "w")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if r.InSync || !r.Drift.Equal(dec("10")) || !r.Derived.IsZero() {
		t.Fatalf("expected drift of 10: %+v", r)
	}
	if _, err := svc.ReconcileWallet(ctx, "ghost"); !errors.Is(err, core.ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}
}

func seedReports(t *testing.T) (*ReportService, *memory.Store) {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	_ = st.CreateWallet(ctx, core.Wallet{ID: "main", Name: "Main"})
	_ = st.CreateWallet(ctx, core.Wallet{ID: "savings", Name: "Savings"})
	for _, tx := range []core.Transaction{
		{ID: "1", Name: "Salary", Amount: dec("1000"), Kind: core.KindIncome, CategoryID: "3", WalletID: "main", CreateTime: "2024-01-01 08:00:00"},
		{ID: "2", Name: "Food", Amount: dec("30"), Kind: core.KindExpense, CategoryID: "1", WalletID: "main", CreateTime: "2024-01-05 12:00:00"},
		{ID: "3", Name: "Bus", Amount: dec("20"), Kind: core.KindExpense, WalletID: "main", CreateTime: "2024-01-15 18:00:00"},
		{ID: "4", Name: "Cinema", Amount: dec("15"), Kind: core.KindExpense, CategoryID: "5", WalletID: "savings", CreateTime: "2024-02-01 20:00:00"},
	} {
		if err := st.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return NewReportService(st), st
}

func TestSummaryEndToEnd(t *testing.T) {
	svc, _ := seedReports(t)
	r, err := svc.Summary(context.Background(), "main", core.TransactionCriteria{DateTo: "2024-01-15"})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if r.Count != 3 {
		t.Fatalf("expected 3 transactions, got %d", r.Count)
	}
	if !r.Totals.TotalIncome.Equal(dec("1000")) || !r.Totals.TotalExpenses.Equal(dec("50")) || !r.Totals.NetBalance.Equal(dec("950")) {
		t.Fatalf("unexpected totals: %+v", r.Totals)
	}
	if r.SavingsRate != 95 {
		t.Fatalf("expected savings rate 95, got %v", r.SavingsRate)
	}
	if len(r.Breakdown) != 2 || r.Breakdown[0].Category != "1" || r.Breakdown[1].Category != core.OtherBucket {
		t.Fatalf("unexpected breakdown: %+v", r.Breakdown)
	}
}

func TestFilterAcrossWallets(t *testing.T) {
	svc, _ := seedReports(t)
	txs, err := svc.Filter(context.Background(), "", core.TransactionCriteria{WalletID: "SAV"})
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(txs) != 1 || txs[0].ID != "4" {
		t.Fatalf("unexpected result: %+v", txs)
	}
}

func TestDashboard(t *testing.T) {
	svc, st := seedReports(t)
	ctx := context.Background()
	_ = st.CreateGoal(ctx, core.Goal{ID: "g1", Name: "Car", Target: dec("5000"), Priority: 8})
	_ = st.CreateGoal(ctx, core.Goal{ID: "g2", Name: "Phone", Target: dec("500"), Balance: dec("500"), Priority: 9})
	_ = st.CreateGoal(ctx, core.Goal{ID: "g3", Name: "Books", Target: dec("50"), Priority: 2})

	d, err := svc.Dashboard(ctx)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if len(d.PriorityGoals) != 1 || d.PriorityGoals[0].ID != "g1" {
		t.Fatalf("unexpected priority goals: %+v", d.PriorityGoals)
	}
	if len(d.Recent) != 4 || d.Recent[0].ID != "4" {
		t.Fatalf("unexpected recent: %+v", d.Recent)
	}
	if !d.NetWorth.Total.Equal(dec("935")) || len(d.Wallets) != 2 {
		t.Fatalf("unexpected net worth %+v wallets %d", d.NetWorth, len(d.Wallets))
	}
}

func TestBudgetStatus(t *testing.T) {
	ctx := context.Background()
	_, st := seedReports(t)
	svc := NewBudgetService(st)

	b, err := svc.CreateBudget(ctx, core.Budget{Name: "January", Limit: dec("40"), StartDate: "2024-01-01", EndDate: "2024-01-31"})
	if err != nil {
		t.Fatalf("create budget: %v", err)
	}

	status, err := svc.Status(ctx, b.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	// no links: all January expenses
	if !status.Spent.Equal(dec("50")) || !status.OverBudget || !status.Remaining.Equal(dec("-10")) || status.PercentageUsed != 125 {
		t.Fatalf("unexpected status: %+v", status)
	}

	override := dec("20")
	if err := svc.LinkCategory(ctx, b.ID, "1", &override); err != nil {
		t.Fatalf("link: %v", err)
	}
	if err := svc.LinkCategory(ctx, b.ID, "4", nil); err != nil {
		t.Fatalf("link: %v", err)
	}
	status, err = svc.Status(ctx, b.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.Spent.Equal(dec("30")) || status.OverBudget {
		t.Fatalf("unexpected status with links: %+v", status)
	}
	food := status.Categories[0]
	if food.CategoryName != "Groceries" || !food.IsOverBudget() || !food.RemainingAmount().Equal(dec("-10")) {
		t.Fatalf("unexpected food category: %+v", food)
	}
	transport := status.Categories[1]
	if transport.IsOverBudget() || transport.PercentageUsed() != 0 {
		t.Fatalf("unlimited category should never be over: %+v", transport)
	}
}

func TestBudgetStatusWithoutLinksUsesTrackedCategories(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		tracked []string
		want    string
	}{
		{"tracks nothing counts every expense", nil, "50"},
		{"single tracked category", []string{"1"}, "30"},
		{"tracked ids ignore case and repeats", []string{"other", "OTHER", "1"}, "50"},
		{"category with no spending", []string{"4"}, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, st := seedReports(t)
			svc := NewBudgetService(st)
			b, err := svc.CreateBudget(ctx, core.Budget{Name: "January", Limit: dec("40"), StartDate: "2024-01-01", EndDate: "2024-01-31", TrackedCategories: tt.tracked})
			if err != nil {
				t.Fatalf("create budget: %v", err)
			}
			status, err := svc.Status(ctx, b.ID)
			if err != nil {
				t.Fatalf("status: %v", err)
			}
			if !status.Spent.Equal(dec(tt.want)) || !status.Budget.Balance.Equal(dec(tt.want)) {
				t.Fatalf("spent = %s, want %s", status.Spent, tt.want)
			}
		})
	}
}

func TestBudgetStatusLinkMatchesCategoryCaseInsensitively(t *testing.T) {
	ctx := context.Background()
	st := memory.New(core.Category{ID: "Books", Name: "Books", Type: core.KindExpense, Custom: true})
	_ = st.CreateWallet(ctx, core.Wallet{ID: "main", Name: "Main"})
	for _, tx := range []core.Transaction{
		{ID: "1", Name: "Novel", Amount: dec("12"), Kind: core.KindExpense, CategoryID: "books", WalletID: "main", CreateTime: "2024-01-03 10:00:00"},
		{ID: "2", Name: "Atlas", Amount: dec("8"), Kind: core.KindExpense, CategoryID: "BOOKS", WalletID: "main", CreateTime: "2024-01-04 10:00:00"},
		{ID: "3", Name: "Comic", Amount: dec("5"), Kind: core.KindExpense, CategoryID: "Books", WalletID: "main", CreateTime: "2024-01-05 10:00:00"},
	} {
		if err := st.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	svc := NewBudgetService(st)
	b, _ := svc.CreateBudget(ctx, core.Budget{Name: "Reading", Limit: dec("100"), StartDate: "2024-01-01", EndDate: "2024-01-31"})
	if err := svc.LinkCategory(ctx, b.ID, "Books", nil); err != nil {
		t.Fatalf("link: %v", err)
	}

	status, err := svc.Status(ctx, b.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.Spent.Equal(dec("25")) || len(status.Categories) != 1 || !status.Categories[0].SpentAmount().Equal(dec("25")) {
		t.Fatalf("unexpected status: spent=%s categories=%+v", status.Spent, status.Categories)
	}
}

func TestBudgetValidationAndActive(t *testing.T) {
	ctx := context.Background()
	svc := NewBudgetService(memory.New())
	svc.now = fixedClock("2024-03-15 00:00:00")

	if _, err := svc.CreateBudget(ctx, core.Budget{Name: "bad", StartDate: "2024-02-01", EndDate: "2024-01-01"}); !errors.Is(err, core.ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
	_, _ = svc.CreateBudget(ctx, core.Budget{Name: "Q1", StartDate: "2024-01-01", EndDate: "2024-03-31"})
	_, _ = svc.CreateBudget(ctx, core.Budget{Name: "Feb", StartDate: "2024-02-01", EndDate: "2024-02-29"})

	active, err := svc.ActiveBudgets(ctx, "")
	if err != nil || len(active) != 1 || active[0].Name != "Q1" {
		t.Fatalf("unexpected active budgets %+v err=%v", active, err)
	}
	active, _ = svc.ActiveBudgets(ctx, "2024-02-29")
	if len(active) != 2 {
		t.Fatalf("expected 2 active on the last day of February, got %d", len(active))
	}

	neg := dec("-1")
	if err := svc.LinkCategory(ctx, active[0].ID, "1", &neg); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestGoalService(t *testing.T) {
	ctx := context.Background()
	svc := NewGoalService(memory.New())
	svc.now = fixedClock("2024-01-01 00:00:00")

	low, _ := svc.CreateGoal(ctx, core.Goal{Name: "Low", Target: dec("100"), Priority: 1})
	high, err := svc.CreateGoal(ctx, core.Goal{Name: "High", Target: dec("100"), Priority: 9})
	if err != nil || high.CreateTime != "2024-01-01 00:00:00" {
		t.Fatalf("create goal %+v err=%v", high, err)
	}

	goals, _ := svc.List(ctx)
	if goals[0].ID != high.ID || goals[1].ID != low.ID {
		t.Fatalf("expected priority order: %+v", goals)
	}

	g, err := svc.Contribute(ctx, high.ID, dec("100"))
	if err != nil || g.Progress() != 1 {
		t.Fatalf("contribute %+v err=%v", g, err)
	}
	prio, _ := svc.Priority(ctx)
	if len(prio) != 0 {
		t.Fatalf("reached goal must not be a priority: %+v", prio)
	}
	if _, err := svc.Contribute(ctx, "missing", dec("1")); !errors.Is(err, core.ErrGoalNotFound) {
		t.Fatalf("expected ErrGoalNotFound, got %v", err)
	}
}

func TestGoalContributeConcurrent(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		start   string
		amount  string
		workers int
		want    string
	}{
		{"deposits", "0", "1", 300, "300"},
		{"withdrawals", "100", "-0.25", 200, "50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewGoalService(memory.New())
			g, err := svc.CreateGoal(ctx, core.Goal{Name: "Trip", Target: dec("1000"), Balance: dec(tt.start)})
			if err != nil {
				t.Fatalf("create goal: %v", err)
			}
			var wg sync.WaitGroup
			for range tt.workers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := svc.Contribute(ctx, g.ID, dec(tt.amount)); err != nil {
						t.Errorf("contribute: %v", err)
					}
				}()
			}
			wg.Wait()
			got, _ := svc.GetGoal(ctx, g.ID)
			if !got.Balance.Equal(dec(tt.want)) {
				t.Fatalf("balance = %s, want %s", got.Balance, tt.want)
			}
		})
	}
}

type countingCategoryStore struct {
	*memory.Store
	lists int
}

func (s *countingCategoryStore) ListCategories(ctx context.Context) ([]core.Category, error) {
	s.lists++
	return s.Store.ListCategories(ctx)
}

func TestCategoryServiceCaching(t *testing.T) {
	ctx := context.Background()
	st := &countingCategoryStore{Store: memory.New()}
	manager := cache.NewManager()
	svc := NewCategoryService(st, time.Minute, manager)

	cats, _ := svc.List(ctx)
	_, _ = svc.List(ctx)
	if len(cats) != 6 || st.lists != 1 {
		t.Fatalf("expected 6 cached categories from one load, got %d loads=%d", len(cats), st.lists)
	}

	books, err := svc.Add(ctx, core.Category{Name: "Books", Type: core.KindExpense})
	if err != nil || !books.Custom {
		t.Fatalf("add %+v err=%v", books, err)
	}
	cats, _ = svc.List(ctx)
	if len(cats) != 7 || st.lists != 2 {
		t.Fatalf("cache should be invalidated on add: %d loads=%d", len(cats), st.lists)
	}
	if _, err := svc.Add(ctx, core.Category{Name: "books", Type: core.KindExpense}); !errors.Is(err, core.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}

	income, _ := svc.ListByKind(ctx, core.KindIncome)
	if len(income) != 2 {
		t.Fatalf("expected 2 income categories, got %d", len(income))
	}

	if err := svc.Delete(ctx, "1"); !errors.Is(err, core.ErrBuiltinCategory) {
		t.Fatalf("expected ErrBuiltinCategory, got %v", err)
	}
	if err := svc.Delete(ctx, books.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if cats, _ := svc.List(ctx); len(cats) != 6 {
		t.Fatalf("expected 6 after delete, got %d", len(cats))
	}
}
