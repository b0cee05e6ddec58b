package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"pfm/internal/core"
	applog "pfm/internal/log"
	"pfm/internal/store"
)

// RecentLimit is how many transactions the dashboard shows.
const RecentLimit = 10

// ReportStore is what ReportService reads.
type ReportStore interface {
	store.TransactionStore
	store.WalletStore
	store.GoalStore
}

// Report summarizes a filtered set of transactions.
type Report struct {
	Criteria    core.TransactionCriteria `json:"criteria"`
	Count       int                      `json:"count"`
	Totals      core.Totals              `json:"totals"`
	SavingsRate float64                  `json:"savingsRate"`
	Breakdown   []core.CategoryShare     `json:"breakdown"`
}

// Dashboard is the overview across all wallets.
type Dashboard struct {
	Totals        core.Totals        `json:"totals"`
	NetWorth      core.Worth         `json:"netWorth"`
	Wallets       []core.Wallet      `json:"wallets"`
	PriorityGoals []core.Goal        `json:"priorityGoals"`
	Recent        []core.Transaction `json:"recent"`
}

// ReportService runs the filter engine and aggregations over stored data.
type ReportService struct {
	store ReportStore
}

func NewReportService(st ReportStore) *ReportService {
	return &ReportService{store: st}
}

// Filter loads transactions (only walletID's when set) and applies c.
func (s *ReportService) Filter(ctx context.Context, walletID string, c core.TransactionCriteria) ([]core.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, walletID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := core.FilterTransactions(c, txs)
	slog.DebugContext(ctx, "Filtered transactions",
		applog.FieldComponent, applog.ComponentReports,
		applog.FieldOperation, applog.OpFilter,
		"total", len(txs),
		"matched", len(out))
	return out, nil
}

// Summary reports totals and the expense breakdown of the filtered transactions.
func (s *ReportService) Summary(ctx context.Context, walletID string, c core.TransactionCriteria) (Report, error) {
	txs, err := s.Filter(ctx, walletID, c)
	if err != nil {
		return Report{}, err
	}
	totals := core.Summarize(txs)
	return Report{
		Criteria:    c,
		Count:       len(txs),
		Totals:      totals,
		SavingsRate: totals.SavingsRate(),
		Breakdown:   core.CategoryBreakdown(txs),
	}, nil
}

// Dashboard loads wallets, transactions and goals concurrently.
func (s *ReportService) Dashboard(ctx context.Context) (Dashboard, error) {
	var (
		wallets []core.Wallet
		txs     []core.Transaction
		goals   []core.Goal
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		wallets, err = s.store.ListWallets(gctx)
		return err
	})
	g.Go(func() (err error) {
		txs, err = s.store.ListTransactions(gctx, "")
		return err
	})
	g.Go(func() (err error) {
		goals, err = s.store.ListGoals(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, fmt.Errorf("load dashboard: %w", err)
	}

	if wallets == nil {
		wallets = []core.Wallet{}
	}
	return Dashboard{
		Totals:        core.Summarize(txs),
		NetWorth:      core.NetWorth(wallets),
		Wallets:       wallets,
		PriorityGoals: core.PriorityGoals(goals),
		Recent:        core.RecentTransactions(txs, RecentLimit),
	}, nil
}
