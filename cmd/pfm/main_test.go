package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pfm/internal/core"
	"pfm/internal/services"
	"pfm/internal/store/memory"
)

func newTestServices() *services.Services {
	return services.New(memory.New(), nil, time.Minute, nil)
}

func decimalOf(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return d
}

func runCmd(t *testing.T, svc *services.Services, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), svc, args, &out)
	return out.String(), err
}

func TestRunUsage(t *testing.T) {
	svc := newTestServices()
	out, err := runCmd(t, svc)
	if !errors.Is(err, errUsage) || !strings.Contains(out, "budget-status") {
		t.Fatalf("expected usage listing, got err=%v out=%q", err, out)
	}
	out, err = runCmd(t, svc, "frobnicate")
	if !errors.Is(err, errUsage) || !strings.Contains(out, `unknown command "frobnicate"`) {
		t.Fatalf("expected unknown command, got err=%v out=%q", err, out)
	}
}

func TestLedgerCommands(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()

	if _, err := runCmd(t, svc, "add-wallet", "-name", "Cash", "-opening", "100"); err != nil {
		t.Fatalf("add-wallet: %v", err)
	}
	wallets, _ := svc.Ledger.ListWallets(ctx)
	if len(wallets) != 1 {
		t.Fatalf("expected one wallet, got %+v", wallets)
	}
	id := wallets[0].ID

	for _, args := range [][]string{
		{"add-tx", "-name", "Lunch", "-amount", "12,50", "-category", "1", "-wallet", id, "-at", "2024-01-10 12:00:00"},
		{"add-tx", "-name", "Salary", "-amount", "1000", "-kind", "income", "-wallet", id, "-at", "2024-01-31 09:00:00"},
	} {
		if _, err := runCmd(t, svc, args...); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
	}

	out, err := runCmd(t, svc, "wallets")
	if err != nil || !strings.Contains(out, "1087.50") {
		t.Fatalf("wallets: err=%v out=%q", err, out)
	}

	out, err = runCmd(t, svc, "list", "-income", "false")
	if err != nil || !strings.Contains(out, "Lunch") || strings.Contains(out, "Salary") {
		t.Fatalf("list: err=%v out=%q", err, out)
	}

	out, err = runCmd(t, svc, "report", "-date_from", "2024-01-01", "-date_to", "2024-01-31")
	if err != nil || !strings.Contains(out, "987.50") || !strings.Contains(out, "100.0%") {
		t.Fatalf("report: err=%v out=%q", err, out)
	}

	if _, err := runCmd(t, svc, "list", "-min_amount", "lots"); !errors.Is(err, core.ErrInvalid) {
		t.Fatalf("expected ErrInvalid for bad criteria, got %v", err)
	}
	if _, err := runCmd(t, svc, "add-tx", "-name", "x", "-amount", "1", "-kind", "transfer"); !errors.Is(err, core.ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestPlanningCommands(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()

	b, err := svc.Budgets.CreateBudget(ctx, core.Budget{Name: "January", Limit: decimalOf(t, "50"), StartDate: "2024-01-01", EndDate: "2024-01-31"})
	if err != nil {
		t.Fatalf("create budget: %v", err)
	}
	if _, err := runCmd(t, svc, "add-tx", "-name", "Food", "-amount", "80", "-category", "1", "-at", "2024-01-05 10:00:00"); err != nil {
		t.Fatalf("add-tx: %v", err)
	}

	out, err := runCmd(t, svc, "budgets")
	if err != nil || !strings.Contains(out, "January") {
		t.Fatalf("budgets: err=%v out=%q", err, out)
	}
	out, err = runCmd(t, svc, "budget-status", "-id", b.ID)
	if err != nil || !strings.Contains(out, "OVER BUDGET") || !strings.Contains(out, "-30.00") {
		t.Fatalf("budget-status: err=%v out=%q", err, out)
	}
	if _, err := runCmd(t, svc, "budget-status"); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error without -id, got %v", err)
	}

	if _, err := svc.Goals.CreateGoal(ctx, core.Goal{Name: "Bike", Target: decimalOf(t, "500"), Balance: decimalOf(t, "250"), Priority: 8}); err != nil {
		t.Fatalf("create goal: %v", err)
	}
	out, err = runCmd(t, svc, "goals")
	if err != nil || !strings.Contains(out, "Bike") || !strings.Contains(out, "50%") {
		t.Fatalf("goals: err=%v out=%q", err, out)
	}

	out, err = runCmd(t, svc, "categories", "-type", "income")
	if err != nil || strings.Contains(out, "EXPENSE") || !strings.Contains(out, "INCOME") {
		t.Fatalf("categories: err=%v out=%q", err, out)
	}
}
