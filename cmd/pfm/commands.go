package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"text/tabwriter"

	"pfm/internal/core"
	apphttp "pfm/internal/http"
	"pfm/internal/services"
)

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
}

// criteriaFlags registers the filter flags under the same names the HTTP
// API uses for query parameters.
type criteriaFlags struct {
	values map[string]*string
}

func addCriteriaFlags(fs *flag.FlagSet) *criteriaFlags {
	cf := &criteriaFlags{values: map[string]*string{}}
	for _, f := range []struct{ name, usage string }{
		{"min_amount", "minimum amount"},
		{"max_amount", "maximum amount"},
		{"category", "category id (case-insensitive)"},
		{"wallet", "wallet id substring"},
		{"date_from", "earliest date, YYYY-MM-DD"},
		{"date_to", "latest date, YYYY-MM-DD (whole day)"},
		{"income", "true for income only, false for expenses only"},
	} {
		cf.values[f.name] = fs.String(f.name, "", f.usage)
	}
	return cf
}

func (cf *criteriaFlags) criteria() (core.TransactionCriteria, error) {
	q := url.Values{}
	for k, v := range cf.values {
		if *v != "" {
			q.Set(k, *v)
		}
	}
	return apphttp.ParseCriteria(q)
}

func cmdWallets(ctx context.Context, svc *services.Services, args []string, out io.Writer) error {
	if err := newFlagSet("wallets", out).Parse(args); err != nil {
		return errUsage
	}
	wallets, err := svc.Ledger.ListWallets(ctx)
	if err != nil {
		return err
	}
	tw := newTable(out)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tBALANCE")
	for _, w := range wallets {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", w.ID, w.Name, w.Type, core.FormatAmount(w.Balance))
	}
	worth := core.NetWorth(wallets)
	fmt.Fprintf(tw, "\t\tNET WORTH\t%s\n", core.FormatAmount(worth.Total))
	return tw.Flush()
}

func cmdAddWallet(ctx context.Context, svc *services.Services, args []string, out io.Writer) error {
	fs := newFlagSet("add-wallet", out)
	name := fs.String("name", "", "wallet name")
	opening := fs.String("opening", "0", "opening balance, may be negative")
	color := fs.String("color", "", "display color")
	kind := fs.String("type", "", "wallet type, e.g. cash or bank")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	balance, err := core.ParseSignedAmount(*opening)
	if err != nil {
		return fmt.Errorf("opening balance: %w", err)
	}
	w, err := svc.Ledger.CreateWallet(ctx, core.Wallet{
		Name:           *name,
		OpeningBalance: balance,
		Color:          *color,
		Type:           *kind,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created wallet %s (%s) balance %s\n", w.ID, w.Name, core.FormatAmount(w.Balance))
	return nil
}

func cmdAddTransaction(ctx context.Context, svc *services.Services, args []string, out io.Writer) error {
	fs := newFlagSet("add-tx", out)
	name := fs.String("name", "", "description")
	amount := fs.String("amount", "", "amount, e.g. 12.50 or 12,50")
	kind := fs.String("kind", "EXPENSE", "INCOME or EXPENSE")
	category := fs.String("category", "", "category id")
	wallet := fs.String("wallet", "", "wallet id")
	at := fs.String("at", "", "create time YYYY-MM-DD HH:MM:SS, default now")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	amt, err := core.ParseAmount(*amount)
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	k, err := core.ParseKind(*kind)
	if err != nil {
		return err
	}
	tx, err := svc.Ledger.CreateTransaction(ctx, core.Transaction{
		Name:       *name,
		Amount:     amt,
		Kind:       k,
		CategoryID: *category,
		WalletID:   *wallet,
		CreateTime: *at,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "recorded %s %s %s (%s)\n", tx.Kind, core.FormatAmount(tx.Amount), tx.Name, tx.ID)
	return nil
}

func cmdList(ctx context.Context, svc *services.Services, args []string, out io.Writer) error {
	fs := newFlagSet("list", out)
	cf := addCriteriaFlags(fs)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	c, err := cf.criteria()
	if err != nil {
		return err
	}
	txs, err := svc.Reports.Filter(ctx, "", c)
	if err != nil {
		return err
	}
	tw := newTable(out)
	fmt.Fprintln(tw, "TIME\tKIND\tAMOUNT\tCATEGORY\tWALLET\tNAME")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			tx.CreateTime, tx.Kind, core.FormatAmount(tx.Amount), tx.CategoryID, tx.WalletID, tx.Name)
	}
	return tw.Flush()
}

func cmdReport(ctx context.Context, svc *services.Services, args []string, out io.Writer) error {
	fs := newFlagSet("report", out)
	cf := addCriteriaFlags(fs)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	c, err := cf.criteria()
	if err != nil {
		return err
	}
	r, err := svc.Reports.Summary(ctx, "", c)
	if err != nil {
		return err
	}
	tw := newTable(out)
	fmt.Fprintf(tw, "Transactions\t%d\n", r.Count)
	fmt.Fprintf(tw, "Income\t%s\n", core.FormatAmount(r.Totals.TotalIncome))
	fmt.Fprintf(tw, "Expenses\t%s\n", core.FormatAmount(r.Totals.TotalExpenses))
	fmt.Fprintf(tw, "Net\t%s\n", core.FormatAmount(r.Totals.NetBalance))
	fmt.Fprintf(tw, "Savings rate\t%.1f%%\n", r.SavingsRate)
	if len(r.Breakdown) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "CATEGORY\tAMOUNT\tSHARE")
		for _, s := range r.Breakdown {
			fmt.Fprintf(tw, "%s\t%s\t%.1f%%\n", s.Category, core.FormatAmount(s.Amount), s.Share*100)
		}
	}
	return tw.Flush()
}

func cmdBudgets(ctx context.Context, svc *services.Services, args []string, out io.Writer) error {
	fs := newFlagSet("budgets", out)
	active := fs.Bool("active", false, "only budgets covering today")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	var (
		budgets []core.Budget
		err     error
	)
	if *active {
		budgets, err = svc.Budgets.ActiveBudgets(ctx, "")
	} else {
		budgets, err = svc.Budgets.ListBudgets(ctx)
	}
	if err != nil {
		return err
	}
	tw := newTable(out)
	fmt.Fprintln(tw, "ID\tNAME\tLIMIT\tFROM\tTO")
	for _, b := range budgets {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", b.ID, b.Name, core.FormatAmount(b.Limit), b.StartDate, b.EndDate)
	}
	return tw.Flush()
}

func cmdBudgetStatus(ctx context.Context, svc *services.Services, args []string, out io.Writer) error {
	fs := newFlagSet("budget-status", out)
	id := fs.String("id", "", "budget id")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *id == "" {
		fmt.Fprintln(out, "budget-status: -id is required")
		return errUsage
	}
	st, err := svc.Budgets.Status(ctx, *id)
	if err != nil {
		return err
	}
	tw := newTable(out)
	fmt.Fprintf(tw, "%s\t%s .. %s\n", st.Budget.Name, st.Budget.StartDate, st.Budget.EndDate)
	fmt.Fprintf(tw, "Spent\t%s of %s (%.1f%%)\n", core.FormatAmount(st.Spent), core.FormatAmount(st.Budget.Limit), st.PercentageUsed)
	fmt.Fprintf(tw, "Remaining\t%s\n", core.FormatAmount(st.Remaining))
	if st.OverBudget {
		fmt.Fprintln(tw, "Status\tOVER BUDGET")
	}
	if len(st.Categories) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "CATEGORY\tSPENT\tLIMIT\tUSED")
		for _, c := range st.Categories {
			limit := "-"
			if c.CategoryLimit != nil {
				limit = core.FormatAmount(*c.CategoryLimit)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f%%\n", c.CategoryName, core.FormatAmount(c.SpentAmount()), limit, c.PercentageUsed())
		}
	}
	return tw.Flush()
}

func cmdGoals(ctx context.Context, svc *services.Services, args []string, out io.Writer) error {
	if err := newFlagSet("goals", out).Parse(args); err != nil {
		return errUsage
	}
	goals, err := svc.Goals.List(ctx)
	if err != nil {
		return err
	}
	tw := newTable(out)
	fmt.Fprintln(tw, "ID\tNAME\tPRIORITY\tBALANCE\tTARGET\tPROGRESS\tDEADLINE")
	for _, g := range goals {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.0f%%\t%s\n",
			g.ID, g.Name, strconv.FormatFloat(g.Priority, 'f', -1, 64),
			core.FormatAmount(g.Balance), core.FormatAmount(g.Target), g.PercentComplete(), g.Deadline)
	}
	return tw.Flush()
}

func cmdCategories(ctx context.Context, svc *services.Services, args []string, out io.Writer) error {
	fs := newFlagSet("categories", out)
	kind := fs.String("type", "", "INCOME or EXPENSE")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	var (
		cats []core.Category
		err  error
	)
	if *kind != "" {
		k, kerr := core.ParseKind(*kind)
		if kerr != nil {
			return kerr
		}
		cats, err = svc.Categories.ListByKind(ctx, k)
	} else {
		cats, err = svc.Categories.List(ctx)
	}
	if err != nil {
		return err
	}
	tw := newTable(out)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tCUSTOM")
	for _, c := range cats {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", c.ID, c.Name, c.Type, c.Custom)
	}
	return tw.Flush()
}
