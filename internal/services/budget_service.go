package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pfm/internal/core"
	"pfm/internal/store"
)

// BudgetStore is what BudgetService needs from the record store.
type BudgetStore interface {
	store.BudgetStore
	store.TransactionStore
	store.CategoryStore
}

// BudgetStatus is a budget's spending over its period.
type BudgetStatus struct {
	Budget         core.Budget           `json:"budget"`
	Spent          decimal.Decimal       `json:"spent"`
	Remaining      decimal.Decimal       `json:"remaining"`
	PercentageUsed float64               `json:"percentageUsed"`
	OverBudget     bool                  `json:"overBudget"`
	Categories     []core.BudgetCategory `json:"categories"`
}

type BudgetService struct {
	store BudgetStore
	now   func() time.Time
}

func NewBudgetService(st BudgetStore) *BudgetService {
	return &BudgetService{store: st, now: time.Now}
}

func (s *BudgetService) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if err := s.store.CreateBudget(ctx, b); err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	return b, nil
}

func (s *BudgetService) UpdateBudget(ctx context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	return s.store.UpdateBudget(ctx, b)
}

func (s *BudgetService) DeleteBudget(ctx context.Context, id string) error {
	return s.store.DeleteBudget(ctx, id)
}

func (s *BudgetService) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	return s.store.GetBudget(ctx, id)
}

func (s *BudgetService) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	return s.store.ListBudgets(ctx)
}

// ActiveBudgets returns budgets whose period contains today (YYYY-MM-DD).
// An empty today means the current date.
func (s *BudgetService) ActiveBudgets(ctx context.Context, today string) ([]core.Budget, error) {
	if today == "" {
		today = s.now().Format(core.DateLayout)
	}
	all, err := s.store.ListBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	active := make([]core.Budget, 0, len(all))
	for _, b := range all {
		if b.ActiveOn(today) {
			active = append(active, b)
		}
	}
	return active, nil
}

// LinkCategory tracks categoryID under budgetID. limit overrides the
// category's own limit when set.
func (s *BudgetService) LinkCategory(ctx context.Context, budgetID, categoryID string, limit *decimal.Decimal) error {
	if limit != nil && limit.IsNegative() {
		return core.ErrInvalidAmount
	}
	return s.store.LinkCategory(ctx, budgetID, categoryID, limit)
}

// UnlinkCategory stops tracking categoryID. Unlinking an untracked
// category is a no-op.
func (s *BudgetService) UnlinkCategory(ctx context.Context, budgetID, categoryID string) error {
	if _, err := s.store.GetBudget(ctx, budgetID); err != nil {
		return err
	}
	return s.store.UnlinkCategory(ctx, budgetID, categoryID)
}

// ReplaceCategories swaps all links of budgetID at once.
func (s *BudgetService) ReplaceCategories(ctx context.Context, budgetID string, links []core.BudgetCategory) error {
	for _, l := range links {
		if l.CategoryLimit != nil && l.CategoryLimit.IsNegative() {
			return core.ErrInvalidAmount
		}
	}
	return s.store.ReplaceBudgetCategories(ctx, budgetID, links)
}

func (s *BudgetService) ListCategories(ctx context.Context, budgetID string) ([]core.BudgetCategory, error) {
	return s.store.ListBudgetCategories(ctx, budgetID)
}

// Status sums the expenses inside the budget period. With linked categories
// only their expenses count. Without links the budget's tracked categories
// scope the total, and a budget tracking nothing counts every expense.
// Category IDs match case-insensitively.
func (s *BudgetService) Status(ctx context.Context, budgetID string) (BudgetStatus, error) {
	b, err := s.store.GetBudget(ctx, budgetID)
	if err != nil {
		return BudgetStatus{}, err
	}
	links, err := s.store.ListBudgetCategories(ctx, budgetID)
	if err != nil {
		return BudgetStatus{}, fmt.Errorf("list budget categories: %w", err)
	}
	txs, err := s.store.ListTransactions(ctx, "")
	if err != nil {
		return BudgetStatus{}, fmt.Errorf("list transactions: %w", err)
	}

	criteria := core.TransactionCriteria{DateFrom: b.StartDate, DateTo: b.EndDate}.WithIncome(false)
	spentBy := foldCategoryKeys(core.ExpensesByCategory(core.FilterTransactions(criteria, txs)))

	total := decimal.Zero
	categories := make([]core.BudgetCategory, 0, len(links))
	for _, link := range links {
		limit := link.CategoryLimit
		if limit == nil {
			cat, err := s.store.GetCategory(ctx, link.CategoryID)
			if err != nil {
				return BudgetStatus{}, fmt.Errorf("load category %s: %w", link.CategoryID, err)
			}
			limit = cat.Limit
		}
		bc := core.NewBudgetCategory(budgetID, link.CategoryID, limit)
		bc.CategoryName = link.CategoryName
		bc.SetSpentAmount(spentBy[strings.ToLower(link.CategoryID)])
		total = total.Add(bc.SpentAmount())
		categories = append(categories, bc)
	}
	if len(links) == 0 {
		total = scopedTotal(spentBy, b.TrackedCategories)
	}

	overall := core.NewBudgetCategory(budgetID, "", &b.Limit)
	overall.SetSpentAmount(total)
	b.Balance = total

	return BudgetStatus{
		Budget:         b,
		Spent:          total,
		Remaining:      overall.RemainingAmount(),
		PercentageUsed: overall.PercentageUsed(),
		OverBudget:     overall.IsOverBudget(),
		Categories:     categories,
	}, nil
}

func foldCategoryKeys(in map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(in))
	for k, v := range in {
		key := strings.ToLower(k)
		out[key] = out[key].Add(v)
	}
	return out
}

// scopedTotal sums spentBy over tracked, or over every bucket
// when tracked is empty. spentBy keys must already be lower case.
func scopedTotal(spentBy map[string]decimal.Decimal, tracked []string) decimal.Decimal {
	total := decimal.Zero
	if len(tracked) == 0 {
		for _, amt := range spentBy {
			total = total.Add(amt)
		}
		return total
	}
	seen := make(map[string]struct{}, len(tracked))
	for _, id := range tracked {
		key := strings.ToLower(id)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		total = total.Add(spentBy[key])
	}
	return total
}
