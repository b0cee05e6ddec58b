package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"pfm/internal/core"
	"pfm/internal/store"

	_ "modernc.org/sqlite"
)

var _ store.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serializes writers, so balance read-modify-write is safe.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// withTx runs fn inside a database transaction, committing only if fn succeeds.
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Transactions

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	err := r.withTx(ctx, func(q *Queries) error {
		if err := applyDelta(ctx, q, t.WalletID, t.Delta()); err != nil {
			return err
		}
		if err := q.CreateTransaction(ctx, t); err != nil {
			return fmt.Errorf("create transaction: %w", mapConstraint(err))
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"wallet_id", t.WalletID,
		"kind", t.Kind,
		"amount", t.Amount.String())
	return nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	return r.withTx(ctx, func(q *Queries) error {
		old, err := q.GetTransaction(ctx, t.ID)
		if err != nil {
			return notFound(err, core.ErrTransactionNotFound, "get transaction")
		}
		if err := applyDelta(ctx, q, old.WalletID, old.Delta().Neg()); err != nil {
			return err
		}
		if err := applyDelta(ctx, q, t.WalletID, t.Delta()); err != nil {
			return err
		}
		if err := q.UpdateTransaction(ctx, t); err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		return nil
	})
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) (core.Transaction, error) {
	var deleted core.Transaction
	err := r.withTx(ctx, func(q *Queries) error {
		old, err := q.GetTransaction(ctx, id)
		if err != nil {
			return notFound(err, core.ErrTransactionNotFound, "get transaction")
		}
		if err := applyDelta(ctx, q, old.WalletID, old.Delta().Neg()); err != nil {
			return err
		}
		if err := q.DeleteTransaction(ctx, id); err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		deleted = old
		return nil
	})
	return deleted, err
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	t, err := r.queries.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, notFound(err, core.ErrTransactionNotFound, "get transaction")
	}
	return t, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, walletID string) ([]core.Transaction, error) {
	txs, err := r.queries.ListTransactions(ctx, walletID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// applyDelta adjusts a wallet balance inside the caller's transaction.
func applyDelta(ctx context.Context, q *Queries, walletID string, delta decimal.Decimal) error {
	if walletID == "" {
		return nil
	}
	w, err := q.GetWallet(ctx, walletID)
	if err != nil {
		return notFound(err, core.ErrWalletNotFound, "get wallet")
	}
	if err := q.SetWalletBalance(ctx, walletID, w.Balance.Add(delta)); err != nil {
		return fmt.Errorf("set wallet balance: %w", err)
	}
	return nil
}

// Wallets

func (r *SQLiteRepository) CreateWallet(ctx context.Context, w core.Wallet) error {
	if err := r.queries.CreateWallet(ctx, w); err != nil {
		return fmt.Errorf("create wallet: %w", mapConstraint(err))
	}
	return nil
}

func (r *SQLiteRepository) UpdateWallet(ctx context.Context, w core.Wallet) error {
	n, err := r.queries.UpdateWalletInfo(ctx, w)
	if err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}
	if n == 0 {
		return core.ErrWalletNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteWallet(ctx context.Context, id string) error {
	return r.withTx(ctx, func(q *Queries) error {
		count, err := q.CountWalletTransactions(ctx, id)
		if err != nil {
			return fmt.Errorf("count wallet transactions: %w", err)
		}
		if count > 0 {
			return core.ErrWalletInUse
		}
		n, err := q.DeleteWallet(ctx, id)
		if err != nil {
			return fmt.Errorf("delete wallet: %w", err)
		}
		if n == 0 {
			return core.ErrWalletNotFound
		}
		return nil
	})
}

func (r *SQLiteRepository) GetWallet(ctx context.Context, id string) (core.Wallet, error) {
	w, err := r.queries.GetWallet(ctx, id)
	if err != nil {
		return core.Wallet{}, notFound(err, core.ErrWalletNotFound, "get wallet")
	}
	return w, nil
}

func (r *SQLiteRepository) ListWallets(ctx context.Context) ([]core.Wallet, error) {
	ws, err := r.queries.ListWallets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	return ws, nil
}

// Budgets

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) error {
	if err := r.queries.CreateBudget(ctx, b); err != nil {
		return fmt.Errorf("create budget: %w", mapConstraint(err))
	}
	return nil
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b core.Budget) error {
	n, err := r.queries.UpdateBudget(ctx, b)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	if n == 0 {
		return core.ErrBudgetNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id string) error {
	n, err := r.queries.DeleteBudget(ctx, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if n == 0 {
		return core.ErrBudgetNotFound
	}
	return nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	b, err := r.queries.GetBudget(ctx, id)
	if err != nil {
		return core.Budget{}, notFound(err, core.ErrBudgetNotFound, "get budget")
	}
	return b, nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	bs, err := r.queries.ListBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return bs, nil
}

func (r *SQLiteRepository) LinkCategory(ctx context.Context, budgetID, categoryID string, limit *decimal.Decimal) error {
	return r.withTx(ctx, func(q *Queries) error {
		if err := checkLink(ctx, q, budgetID, categoryID); err != nil {
			return err
		}
		if err := q.LinkCategory(ctx, budgetID, categoryID, limit); err != nil {
			return fmt.Errorf("link category: %w", err)
		}
		return nil
	})
}

func (r *SQLiteRepository) UnlinkCategory(ctx context.Context, budgetID, categoryID string) error {
	if err := r.queries.UnlinkCategory(ctx, budgetID, categoryID); err != nil {
		return fmt.Errorf("unlink category: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ReplaceBudgetCategories(ctx context.Context, budgetID string, links []core.BudgetCategory) error {
	return r.withTx(ctx, func(q *Queries) error {
		if _, err := q.GetBudget(ctx, budgetID); err != nil {
			return notFound(err, core.ErrBudgetNotFound, "get budget")
		}
		if err := q.ClearBudgetCategories(ctx, budgetID); err != nil {
			return fmt.Errorf("clear budget categories: %w", err)
		}
		for _, l := range links {
			if err := checkLink(ctx, q, budgetID, l.CategoryID); err != nil {
				return err
			}
			if err := q.LinkCategory(ctx, budgetID, l.CategoryID, l.CategoryLimit); err != nil {
				return fmt.Errorf("link category: %w", err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) ListBudgetCategories(ctx context.Context, budgetID string) ([]core.BudgetCategory, error) {
	if _, err := r.GetBudget(ctx, budgetID); err != nil {
		return nil, err
	}
	links, err := r.queries.ListBudgetCategories(ctx, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list budget categories: %w", err)
	}
	return links, nil
}

func checkLink(ctx context.Context, q *Queries, budgetID, categoryID string) error {
	if _, err := q.GetBudget(ctx, budgetID); err != nil {
		return notFound(err, core.ErrBudgetNotFound, "get budget")
	}
	if _, err := q.GetCategory(ctx, categoryID); err != nil {
		return notFound(err, core.ErrCategoryNotFound, "get category")
	}
	return nil
}

// Goals

func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.Goal) error {
	if err := r.checkGoalWallet(ctx, g); err != nil {
		return err
	}
	if err := r.queries.CreateGoal(ctx, g); err != nil {
		return fmt.Errorf("create goal: %w", mapConstraint(err))
	}
	return nil
}

func (r *SQLiteRepository) UpdateGoal(ctx context.Context, g core.Goal) error {
	if err := r.checkGoalWallet(ctx, g); err != nil {
		return err
	}
	n, err := r.queries.UpdateGoal(ctx, g)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	if n == 0 {
		return core.ErrGoalNotFound
	}
	return nil
}

// ContributeGoal reads and rewrites the goal balance in one transaction.
func (r *SQLiteRepository) ContributeGoal(ctx context.Context, id string, delta decimal.Decimal) (core.Goal, error) {
	var g core.Goal
	err := r.withTx(ctx, func(q *Queries) error {
		cur, err := q.GetGoal(ctx, id)
		if err != nil {
			return notFound(err, core.ErrGoalNotFound, "get goal")
		}
		cur.Balance = cur.Balance.Add(delta)
		if err := q.SetGoalBalance(ctx, id, cur.Balance); err != nil {
			return fmt.Errorf("set goal balance: %w", err)
		}
		g = cur
		return nil
	})
	if err != nil {
		return core.Goal{}, err
	}
	return g, nil
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, id string) error {
	n, err := r.queries.DeleteGoal(ctx, id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	if n == 0 {
		return core.ErrGoalNotFound
	}
	return nil
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, id string) (core.Goal, error) {
	g, err := r.queries.GetGoal(ctx, id)
	if err != nil {
		return core.Goal{}, notFound(err, core.ErrGoalNotFound, "get goal")
	}
	return g, nil
}

func (r *SQLiteRepository) ListGoals(ctx context.Context) ([]core.Goal, error) {
	gs, err := r.queries.ListGoals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return gs, nil
}

func (r *SQLiteRepository) checkGoalWallet(ctx context.Context, g core.Goal) error {
	if g.WalletID == "" {
		return nil
	}
	_, err := r.GetWallet(ctx, g.WalletID)
	return err
}

// Categories

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) error {
	if err := r.queries.CreateCategory(ctx, c); err != nil {
		return fmt.Errorf("create category: %w", mapConstraint(err))
	}
	return nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	n, err := r.queries.DeleteCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n == 0 {
		return core.ErrCategoryNotFound
	}
	return nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	c, err := r.queries.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, notFound(err, core.ErrCategoryNotFound, "get category")
	}
	return c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	cs, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cs, nil
}

// notFound translates sql.ErrNoRows into the domain sentinel.
func notFound(err, sentinel error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return fmt.Errorf("%s: %w", op, err)
}

func mapConstraint(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return core.ErrDuplicateID
	}
	return err
}
