package memory

import (
	"bufio"
	"cmp"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"pfm/internal/core"
	"pfm/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store is an in-process record store. All state sits behind one mutex, so
// a transaction write and its wallet balance change are a single step.
type Store struct {
	mu         sync.Mutex
	wallets    map[string]core.Wallet
	txs        map[string]core.Transaction
	txOrder    []string
	budgets    map[string]core.Budget
	links      map[string][]core.BudgetCategory
	goals      map[string]core.Goal
	categories map[string]core.Category
	catOrder   []string
}

// New returns a store seeded with the default categories followed by extra.
func New(extra ...core.Category) *Store {
	s := &Store{
		wallets:    map[string]core.Wallet{},
		txs:        map[string]core.Transaction{},
		budgets:    map[string]core.Budget{},
		links:      map[string][]core.BudgetCategory{},
		goals:      map[string]core.Goal{},
		categories: map[string]core.Category{},
	}
	for _, c := range append(core.DefaultCategories(), extra...) {
		if _, ok := s.categories[c.ID]; ok {
			continue
		}
		s.categories[c.ID] = c
		s.catOrder = append(s.catOrder, c.ID)
	}
	return s
}

// NewFromFiles seeds custom categories from base/categories.txt.
// Each line is "Name" or "Name,KIND"; blank lines and # comments are skipped.
func NewFromFiles(base string) *Store {
	var extra []core.Category
	for i, line := range readLines(filepath.Join(base, "categories.txt")) {
		name, kind := line, core.KindExpense
		if n, k, ok := strings.Cut(line, ","); ok {
			parsed, err := core.ParseKind(k)
			if err != nil {
				continue
			}
			name, kind = strings.TrimSpace(n), parsed
		}
		extra = append(extra, core.Category{
			ID:     fmt.Sprintf("seed-%d", i+1),
			Name:   name,
			Type:   kind,
			Custom: true,
		})
	}
	return New(extra...)
}

func (s *Store) Close() error { return nil }

// Transactions

func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[tx.ID]; ok {
		return core.ErrDuplicateID
	}
	if err := s.applyLocked(tx.WalletID, tx.Delta()); err != nil {
		return err
	}
	s.txs[tx.ID] = tx
	s.txOrder = append(s.txOrder, tx.ID)
	return nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.txs[tx.ID]
	if !ok {
		return core.ErrTransactionNotFound
	}
	if tx.WalletID != "" {
		if _, ok := s.wallets[tx.WalletID]; !ok {
			return core.ErrWalletNotFound
		}
	}
	// Both wallets exist at this point, so neither apply can fail halfway.
	_ = s.applyLocked(old.WalletID, old.Delta().Neg())
	_ = s.applyLocked(tx.WalletID, tx.Delta())
	s.txs[tx.ID] = tx
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.txs[id]
	if !ok {
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	_ = s.applyLocked(old.WalletID, old.Delta().Neg())
	delete(s.txs, id)
	s.txOrder = slices.DeleteFunc(s.txOrder, func(v string) bool { return v == id })
	return old, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	return tx, nil
}

func (s *Store) ListTransactions(_ context.Context, walletID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0, len(s.txOrder))
	for _, id := range s.txOrder {
		tx := s.txs[id]
		if walletID != "" && tx.WalletID != walletID {
			continue
		}
		out = append(out, tx)
	}
	slices.SortStableFunc(out, func(a, b core.Transaction) int {
		return strings.Compare(b.CreateTime, a.CreateTime)
	})
	return out, nil
}

// applyLocked adds delta to a wallet balance. Transactions without a wallet
// do not touch any balance.
func (s *Store) applyLocked(walletID string, delta decimal.Decimal) error {
	if walletID == "" {
		return nil
	}
	w, ok := s.wallets[walletID]
	if !ok {
		return core.ErrWalletNotFound
	}
	w.Balance = w.Balance.Add(delta)
	s.wallets[walletID] = w
	return nil
}

// Wallets

func (s *Store) CreateWallet(_ context.Context, w core.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wallets[w.ID]; ok {
		return core.ErrDuplicateID
	}
	s.wallets[w.ID] = w
	return nil
}

func (s *Store) UpdateWallet(_ context.Context, w core.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.wallets[w.ID]
	if !ok {
		return core.ErrWalletNotFound
	}
	cur.Name, cur.Color, cur.Type = w.Name, w.Color, w.Type
	s.wallets[w.ID] = cur
	return nil
}

func (s *Store) DeleteWallet(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wallets[id]; !ok {
		return core.ErrWalletNotFound
	}
	for _, tx := range s.txs {
		if tx.WalletID == id {
			return core.ErrWalletInUse
		}
	}
	for gid, g := range s.goals {
		if g.WalletID == id {
			g.WalletID = ""
			s.goals[gid] = g
		}
	}
	delete(s.wallets, id)
	return nil
}

func (s *Store) GetWallet(_ context.Context, id string) (core.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[id]
	if !ok {
		return core.Wallet{}, core.ErrWalletNotFound
	}
	return w, nil
}

func (s *Store) ListWallets(_ context.Context) ([]core.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Wallet, 0, len(s.wallets))
	for _, w := range s.wallets {
		out = append(out, w)
	}
	slices.SortFunc(out, func(a, b core.Wallet) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), strings.Compare(a.ID, b.ID))
	})
	return out, nil
}

// Budgets

func (s *Store) CreateBudget(_ context.Context, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[b.ID]; ok {
		return core.ErrDuplicateID
	}
	b.TrackedCategories = slices.Clone(b.TrackedCategories)
	s.budgets[b.ID] = b
	return nil
}

func (s *Store) UpdateBudget(_ context.Context, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[b.ID]; !ok {
		return core.ErrBudgetNotFound
	}
	b.TrackedCategories = slices.Clone(b.TrackedCategories)
	s.budgets[b.ID] = b
	return nil
}

func (s *Store) DeleteBudget(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[id]; !ok {
		return core.ErrBudgetNotFound
	}
	delete(s.budgets, id)
	delete(s.links, id)
	return nil
}

func (s *Store) GetBudget(_ context.Context, id string) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok {
		return core.Budget{}, core.ErrBudgetNotFound
	}
	b.TrackedCategories = slices.Clone(b.TrackedCategories)
	return b, nil
}

func (s *Store) ListBudgets(_ context.Context) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Budget, 0, len(s.budgets))
	for _, b := range s.budgets {
		b.TrackedCategories = slices.Clone(b.TrackedCategories)
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b core.Budget) int {
		return cmp.Or(strings.Compare(a.StartDate, b.StartDate), strings.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *Store) LinkCategory(_ context.Context, budgetID, categoryID string, limit *decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLinkLocked(budgetID, categoryID); err != nil {
		return err
	}
	for _, l := range s.links[budgetID] {
		if l.CategoryID == categoryID {
			return nil
		}
	}
	s.links[budgetID] = append(s.links[budgetID], core.NewBudgetCategory(budgetID, categoryID, limit))
	return nil
}

func (s *Store) UnlinkCategory(_ context.Context, budgetID, categoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[budgetID] = slices.DeleteFunc(s.links[budgetID], func(l core.BudgetCategory) bool {
		return l.CategoryID == categoryID
	})
	return nil
}

func (s *Store) ReplaceBudgetCategories(_ context.Context, budgetID string, links []core.BudgetCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[budgetID]; !ok {
		return core.ErrBudgetNotFound
	}
	next := make([]core.BudgetCategory, 0, len(links))
	seen := map[string]bool{}
	for _, l := range links {
		if err := s.checkLinkLocked(budgetID, l.CategoryID); err != nil {
			return err
		}
		if seen[l.CategoryID] {
			continue
		}
		seen[l.CategoryID] = true
		next = append(next, core.NewBudgetCategory(budgetID, l.CategoryID, l.CategoryLimit))
	}
	s.links[budgetID] = next
	return nil
}

func (s *Store) ListBudgetCategories(_ context.Context, budgetID string) ([]core.BudgetCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[budgetID]; !ok {
		return nil, core.ErrBudgetNotFound
	}
	out := make([]core.BudgetCategory, 0, len(s.links[budgetID]))
	for _, l := range s.links[budgetID] {
		l.CategoryName = s.categories[l.CategoryID].Name
		out = append(out, l)
	}
	return out, nil
}

func (s *Store) checkLinkLocked(budgetID, categoryID string) error {
	if _, ok := s.budgets[budgetID]; !ok {
		return core.ErrBudgetNotFound
	}
	if _, ok := s.categories[categoryID]; !ok {
		return core.ErrCategoryNotFound
	}
	return nil
}

// Goals

func (s *Store) CreateGoal(_ context.Context, g core.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.goals[g.ID]; ok {
		return core.ErrDuplicateID
	}
	if err := s.checkGoalWalletLocked(g); err != nil {
		return err
	}
	s.goals[g.ID] = g
	return nil
}

func (s *Store) UpdateGoal(_ context.Context, g core.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.goals[g.ID]
	if !ok {
		return core.ErrGoalNotFound
	}
	if err := s.checkGoalWalletLocked(g); err != nil {
		return err
	}
	g.Balance, g.CreateTime = cur.Balance, cur.CreateTime
	s.goals[g.ID] = g
	return nil
}

func (s *Store) ContributeGoal(_ context.Context, id string, delta decimal.Decimal) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[id]
	if !ok {
		return core.Goal{}, core.ErrGoalNotFound
	}
	g.Balance = g.Balance.Add(delta)
	s.goals[id] = g
	return g, nil
}

func (s *Store) DeleteGoal(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.goals[id]; !ok {
		return core.ErrGoalNotFound
	}
	delete(s.goals, id)
	return nil
}

func (s *Store) GetGoal(_ context.Context, id string) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[id]
	if !ok {
		return core.Goal{}, core.ErrGoalNotFound
	}
	return g, nil
}

func (s *Store) ListGoals(_ context.Context) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Goal, 0, len(s.goals))
	for _, g := range s.goals {
		out = append(out, g)
	}
	slices.SortFunc(out, func(a, b core.Goal) int {
		return cmp.Or(strings.Compare(a.CreateTime, b.CreateTime), strings.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *Store) checkGoalWalletLocked(g core.Goal) error {
	if g.WalletID == "" {
		return nil
	}
	if _, ok := s.wallets[g.WalletID]; !ok {
		return core.ErrWalletNotFound
	}
	return nil
}

// Categories

func (s *Store) CreateCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[c.ID]; ok {
		return core.ErrDuplicateID
	}
	s.categories[c.ID] = c
	s.catOrder = append(s.catOrder, c.ID)
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return core.ErrCategoryNotFound
	}
	delete(s.categories, id)
	s.catOrder = slices.DeleteFunc(s.catOrder, func(v string) bool { return v == id })
	for bid, links := range s.links {
		s.links[bid] = slices.DeleteFunc(links, func(l core.BudgetCategory) bool { return l.CategoryID == id })
	}
	return nil
}

func (s *Store) GetCategory(_ context.Context, id string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return core.Category{}, core.ErrCategoryNotFound
	}
	return c, nil
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Category, 0, len(s.catOrder))
	for _, id := range s.catOrder {
		out = append(out, s.categories[id])
	}
	return out, nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	seen := map[string]struct{}{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
