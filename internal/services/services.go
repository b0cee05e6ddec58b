package services

import (
	"time"

	"pfm/internal/cache"
	"pfm/internal/store"
)

// Services bundles every service over one store.
type Services struct {
	Ledger     *LedgerService
	Reports    *ReportService
	Budgets    *BudgetService
	Goals      *GoalService
	Categories *CategoryService
}

// New wires all services to st. publisher and manager may be nil.
func New(st store.Store, publisher EventPublisher, categoryTTL time.Duration, manager *cache.Manager) *Services {
	return &Services{
		Ledger:     NewLedgerService(st, publisher),
		Reports:    NewReportService(st),
		Budgets:    NewBudgetService(st),
		Goals:      NewGoalService(st),
		Categories: NewCategoryService(st, categoryTTL, manager),
	}
}
