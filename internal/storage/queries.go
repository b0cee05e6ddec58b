package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"pfm/internal/core"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the SQL for every table. Use WithTx to run them in a transaction.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type scanner interface {
	Scan(dest ...any) error
}

// Wallets

const createWallet = `INSERT INTO wallets (id, name, balance, opening_balance, color, type) VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateWallet(ctx context.Context, w core.Wallet) error {
	_, err := q.db.ExecContext(ctx, createWallet, w.ID, w.Name, w.Balance, w.OpeningBalance, w.Color, w.Type)
	return err
}

const updateWalletInfo = `UPDATE wallets SET name = ?, color = ?, type = ? WHERE id = ?`

func (q *Queries) UpdateWalletInfo(ctx context.Context, w core.Wallet) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateWalletInfo, w.Name, w.Color, w.Type, w.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const setWalletBalance = `UPDATE wallets SET balance = ? WHERE id = ?`

func (q *Queries) SetWalletBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	_, err := q.db.ExecContext(ctx, setWalletBalance, balance, id)
	return err
}

const deleteWallet = `DELETE FROM wallets WHERE id = ?`

func (q *Queries) DeleteWallet(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteWallet, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getWallet = `SELECT id, name, balance, opening_balance, color, type FROM wallets WHERE id = ?`

func (q *Queries) GetWallet(ctx context.Context, id string) (core.Wallet, error) {
	return scanWallet(q.db.QueryRowContext(ctx, getWallet, id))
}

const listWallets = `SELECT id, name, balance, opening_balance, color, type FROM wallets ORDER BY name, id`

func (q *Queries) ListWallets(ctx context.Context) ([]core.Wallet, error) {
	rows, err := q.db.QueryContext(ctx, listWallets)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []core.Wallet{}
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

const countWalletTransactions = `SELECT COUNT(*) FROM transactions WHERE wallet_id = ?`

func (q *Queries) CountWalletTransactions(ctx context.Context, walletID string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countWalletTransactions, walletID).Scan(&n)
	return n, err
}

func scanWallet(row scanner) (core.Wallet, error) {
	var w core.Wallet
	err := row.Scan(&w.ID, &w.Name, &w.Balance, &w.OpeningBalance, &w.Color, &w.Type)
	return w, err
}

// Transactions

const createTransaction = `INSERT INTO transactions (id, category_id, amount, name, kind, wallet_id, create_time) VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, tx core.Transaction) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		tx.ID, nullString(tx.CategoryID), tx.Amount, tx.Name, string(tx.Kind), nullString(tx.WalletID), nullString(tx.CreateTime))
	return err
}

const updateTransaction = `UPDATE transactions SET category_id = ?, amount = ?, name = ?, kind = ?, wallet_id = ?, create_time = ? WHERE id = ?`

func (q *Queries) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	_, err := q.db.ExecContext(ctx, updateTransaction,
		nullString(tx.CategoryID), tx.Amount, tx.Name, string(tx.Kind), nullString(tx.WalletID), nullString(tx.CreateTime), tx.ID)
	return err
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteTransaction, id)
	return err
}

const transactionColumns = `id, category_id, amount, name, kind, wallet_id, create_time`

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
}

// NULL create times sort last under DESC; rowid keeps insertion order on ties.
const listTransactions = `SELECT ` + transactionColumns + ` FROM transactions ORDER BY create_time DESC, rowid ASC`

const listWalletTransactions = `SELECT ` + transactionColumns + ` FROM transactions WHERE wallet_id = ? ORDER BY create_time DESC, rowid ASC`

func (q *Queries) ListTransactions(ctx context.Context, walletID string) ([]core.Transaction, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if walletID == "" {
		rows, err = q.db.QueryContext(ctx, listTransactions)
	} else {
		rows, err = q.db.QueryContext(ctx, listWalletTransactions, walletID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []core.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func scanTransaction(row scanner) (core.Transaction, error) {
	var (
		tx                           core.Transaction
		kind                         string
		category, wallet, createTime sql.NullString
	)
	if err := row.Scan(&tx.ID, &category, &tx.Amount, &tx.Name, &kind, &wallet, &createTime); err != nil {
		return tx, err
	}
	tx.Kind = core.Kind(kind)
	tx.CategoryID, tx.WalletID, tx.CreateTime = category.String, wallet.String, createTime.String
	return tx, nil
}

// Budgets

const createBudget = `INSERT INTO budgets (id, name, budget_limit, balance, start_date, end_date, tracked_categories) VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateBudget(ctx context.Context, b core.Budget) error {
	tracked, err := encodeTracked(b.TrackedCategories)
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx, createBudget, b.ID, b.Name, b.Limit, b.Balance, b.StartDate, b.EndDate, tracked)
	return err
}

const updateBudget = `UPDATE budgets SET name = ?, budget_limit = ?, balance = ?, start_date = ?, end_date = ?, tracked_categories = ? WHERE id = ?`

func (q *Queries) UpdateBudget(ctx context.Context, b core.Budget) (int64, error) {
	tracked, err := encodeTracked(b.TrackedCategories)
	if err != nil {
		return 0, err
	}
	res, err := q.db.ExecContext(ctx, updateBudget, b.Name, b.Limit, b.Balance, b.StartDate, b.EndDate, tracked, b.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteBudget = `DELETE FROM budgets WHERE id = ?`

func (q *Queries) DeleteBudget(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteBudget, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const budgetColumns = `id, name, budget_limit, balance, start_date, end_date, tracked_categories`

const getBudget = `SELECT ` + budgetColumns + ` FROM budgets WHERE id = ?`

func (q *Queries) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	return scanBudget(q.db.QueryRowContext(ctx, getBudget, id))
}

const listBudgets = `SELECT ` + budgetColumns + ` FROM budgets ORDER BY start_date, id`

func (q *Queries) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := q.db.QueryContext(ctx, listBudgets)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []core.Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBudget(row scanner) (core.Budget, error) {
	var (
		b       core.Budget
		tracked string
	)
	if err := row.Scan(&b.ID, &b.Name, &b.Limit, &b.Balance, &b.StartDate, &b.EndDate, &tracked); err != nil {
		return b, err
	}
	if tracked != "" {
		if err := json.Unmarshal([]byte(tracked), &b.TrackedCategories); err != nil {
			return b, fmt.Errorf("decode tracked categories: %w", err)
		}
	}
	return b, nil
}

func encodeTracked(tracked []string) (string, error) {
	if tracked == nil {
		tracked = []string{}
	}
	raw, err := json.Marshal(tracked)
	if err != nil {
		return "", fmt.Errorf("encode tracked categories: %w", err)
	}
	return string(raw), nil
}

// Budget category links

const linkCategory = `INSERT OR IGNORE INTO budget_categories (budget_id, category_id, category_limit) VALUES (?, ?, ?)`

func (q *Queries) LinkCategory(ctx context.Context, budgetID, categoryID string, limit *decimal.Decimal) error {
	_, err := q.db.ExecContext(ctx, linkCategory, budgetID, categoryID, nullDecimal(limit))
	return err
}

const unlinkCategory = `DELETE FROM budget_categories WHERE budget_id = ? AND category_id = ?`

func (q *Queries) UnlinkCategory(ctx context.Context, budgetID, categoryID string) error {
	_, err := q.db.ExecContext(ctx, unlinkCategory, budgetID, categoryID)
	return err
}

const clearBudgetCategories = `DELETE FROM budget_categories WHERE budget_id = ?`

func (q *Queries) ClearBudgetCategories(ctx context.Context, budgetID string) error {
	_, err := q.db.ExecContext(ctx, clearBudgetCategories, budgetID)
	return err
}

const listBudgetCategories = `
SELECT bc.budget_id, bc.category_id, c.name, bc.category_limit
FROM budget_categories bc
JOIN categories c ON c.id = bc.category_id
WHERE bc.budget_id = ?
ORDER BY bc.rowid`

func (q *Queries) ListBudgetCategories(ctx context.Context, budgetID string) ([]core.BudgetCategory, error) {
	rows, err := q.db.QueryContext(ctx, listBudgetCategories, budgetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []core.BudgetCategory{}
	for rows.Next() {
		var (
			budget, category, name string
			limit                  decimal.NullDecimal
		)
		if err := rows.Scan(&budget, &category, &name, &limit); err != nil {
			return nil, err
		}
		bc := core.NewBudgetCategory(budget, category, fromNullDecimal(limit))
		bc.CategoryName = name
		out = append(out, bc)
	}
	return out, rows.Err()
}

// Goals

const createGoal = `INSERT INTO goals (id, name, target, balance, deadline, priority, create_time, wallet_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateGoal(ctx context.Context, g core.Goal) error {
	_, err := q.db.ExecContext(ctx, createGoal,
		g.ID, g.Name, g.Target, g.Balance, nullString(g.Deadline), g.Priority, nullString(g.CreateTime), nullString(g.WalletID))
	return err
}

const updateGoal = `UPDATE goals SET name = ?, target = ?, deadline = ?, priority = ?, wallet_id = ? WHERE id = ?`

func (q *Queries) UpdateGoal(ctx context.Context, g core.Goal) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateGoal,
		g.Name, g.Target, nullString(g.Deadline), g.Priority, nullString(g.WalletID), g.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const setGoalBalance = `UPDATE goals SET balance = ? WHERE id = ?`

func (q *Queries) SetGoalBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	_, err := q.db.ExecContext(ctx, setGoalBalance, balance, id)
	return err
}

const deleteGoal = `DELETE FROM goals WHERE id = ?`

func (q *Queries) DeleteGoal(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteGoal, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const goalColumns = `id, name, target, balance, deadline, priority, create_time, wallet_id`

const getGoal = `SELECT ` + goalColumns + ` FROM goals WHERE id = ?`

func (q *Queries) GetGoal(ctx context.Context, id string) (core.Goal, error) {
	return scanGoal(q.db.QueryRowContext(ctx, getGoal, id))
}

const listGoals = `SELECT ` + goalColumns + ` FROM goals ORDER BY create_time, id`

func (q *Queries) ListGoals(ctx context.Context) ([]core.Goal, error) {
	rows, err := q.db.QueryContext(ctx, listGoals)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []core.Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func scanGoal(row scanner) (core.Goal, error) {
	var (
		g                            core.Goal
		deadline, createTime, wallet sql.NullString
	)
	if err := row.Scan(&g.ID, &g.Name, &g.Target, &g.Balance, &deadline, &g.Priority, &createTime, &wallet); err != nil {
		return g, err
	}
	g.Deadline, g.CreateTime, g.WalletID = deadline.String, createTime.String, wallet.String
	return g, nil
}

// Categories

const createCategory = `INSERT INTO categories (id, name, description, type, budget_limit, custom) VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateCategory(ctx context.Context, c core.Category) error {
	_, err := q.db.ExecContext(ctx, createCategory, c.ID, c.Name, c.Description, string(c.Type), nullDecimal(c.Limit), c.Custom)
	return err
}

const deleteCategory = `DELETE FROM categories WHERE id = ?`

func (q *Queries) DeleteCategory(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteCategory, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const categoryColumns = `id, name, description, type, budget_limit, custom`

const getCategory = `SELECT ` + categoryColumns + ` FROM categories WHERE id = ?`

func (q *Queries) GetCategory(ctx context.Context, id string) (core.Category, error) {
	return scanCategory(q.db.QueryRowContext(ctx, getCategory, id))
}

const listCategories = `SELECT ` + categoryColumns + ` FROM categories ORDER BY rowid`

func (q *Queries) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []core.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCategory(row scanner) (core.Category, error) {
	var (
		c     core.Category
		kind  string
		limit decimal.NullDecimal
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &kind, &limit, &c.Custom); err != nil {
		return c, err
	}
	c.Type = core.Kind(kind)
	c.Limit = fromNullDecimal(limit)
	return c, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func fromNullDecimal(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := n.Decimal
	return &d
}
