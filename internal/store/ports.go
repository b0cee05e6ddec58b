package store

import (
	"context"

	"github.com/shopspring/decimal"

	"pfm/internal/core"
)

// Ports for the record store. Implementations live in store/memory and storage.
type (
	// TransactionStore owns the wallet balance: creating, updating and deleting
	// a transaction applies its delta to the referenced wallet in the same step.
	TransactionStore interface {
		CreateTransaction(ctx context.Context, tx core.Transaction) error
		UpdateTransaction(ctx context.Context, tx core.Transaction) error
		// DeleteTransaction removes the transaction and returns what was deleted.
		DeleteTransaction(ctx context.Context, id string) (core.Transaction, error)
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		// ListTransactions returns all transactions, or only walletID's when set,
		// newest CreateTime first.
		ListTransactions(ctx context.Context, walletID string) ([]core.Transaction, error)
	}

	WalletStore interface {
		CreateWallet(ctx context.Context, w core.Wallet) error
		// UpdateWallet changes name and tags; the balance is left untouched.
		UpdateWallet(ctx context.Context, w core.Wallet) error
		DeleteWallet(ctx context.Context, id string) error
		GetWallet(ctx context.Context, id string) (core.Wallet, error)
		ListWallets(ctx context.Context) ([]core.Wallet, error)
	}

	BudgetStore interface {
		CreateBudget(ctx context.Context, b core.Budget) error
		UpdateBudget(ctx context.Context, b core.Budget) error
		DeleteBudget(ctx context.Context, id string) error
		GetBudget(ctx context.Context, id string) (core.Budget, error)
		ListBudgets(ctx context.Context) ([]core.Budget, error)

		// LinkCategory is a no-op when the link already exists.
		LinkCategory(ctx context.Context, budgetID, categoryID string, limit *decimal.Decimal) error
		UnlinkCategory(ctx context.Context, budgetID, categoryID string) error
		// ReplaceBudgetCategories swaps every link of budgetID for links in one step.
		ReplaceBudgetCategories(ctx context.Context, budgetID string, links []core.BudgetCategory) error
		ListBudgetCategories(ctx context.Context, budgetID string) ([]core.BudgetCategory, error)
	}

	GoalStore interface {
		CreateGoal(ctx context.Context, g core.Goal) error
		// UpdateGoal edits the goal details; balance and create time are kept.
		UpdateGoal(ctx context.Context, g core.Goal) error
		// ContributeGoal adds delta to the goal balance atomically.
		ContributeGoal(ctx context.Context, id string, delta decimal.Decimal) (core.Goal, error)
		DeleteGoal(ctx context.Context, id string) error
		GetGoal(ctx context.Context, id string) (core.Goal, error)
		ListGoals(ctx context.Context) ([]core.Goal, error)
	}

	CategoryStore interface {
		CreateCategory(ctx context.Context, c core.Category) error
		DeleteCategory(ctx context.Context, id string) error
		GetCategory(ctx context.Context, id string) (core.Category, error)
		ListCategories(ctx context.Context) ([]core.Category, error)
	}

	Store interface {
		TransactionStore
		WalletStore
		BudgetStore
		GoalStore
		CategoryStore
		Close() error
	}
)
