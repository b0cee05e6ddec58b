package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"pfm/internal/backend"
	"pfm/internal/cli"
	applog "pfm/internal/log"
	"pfm/internal/services"
)

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		fmt.Fprintln(os.Stderr, "pfm: load .env:", err)
		os.Exit(1)
	}
	// keep stdout for command output
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(os.Getenv("LOG_LEVEL")),
		Component: applog.ComponentCLI,
		Output:    os.Stderr,
	})
	applog.SetDefault(logger)

	cfg, err := cli.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "pfm:", err)
		os.Exit(1)
	}
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pfm:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	result, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pfm:", err)
		os.Exit(1)
	}
	svc := services.New(result.Store, result.Publisher, cfg.CategoryCacheTTL, nil)

	err = run(ctx, svc, os.Args[1:], os.Stdout)
	if cerr := result.Close(); cerr != nil {
		logger.Warn("Backend cleanup failed", applog.FieldError, cerr)
	}
	switch {
	case errors.Is(err, errUsage):
		os.Exit(2)
	case err != nil:
		fmt.Fprintln(os.Stderr, "pfm:", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("usage")

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, svc *services.Services, args []string, out io.Writer) error
}

var commands = []command{
	{"wallets", "list wallets and net worth", cmdWallets},
	{"add-wallet", "create a wallet", cmdAddWallet},
	{"add-tx", "record a transaction", cmdAddTransaction},
	{"list", "list transactions matching criteria", cmdList},
	{"report", "totals and expense breakdown for criteria", cmdReport},
	{"budgets", "list budgets", cmdBudgets},
	{"budget-status", "spending against one budget", cmdBudgetStatus},
	{"goals", "list savings goals by priority", cmdGoals},
	{"categories", "list categories", cmdCategories},
}

func run(ctx context.Context, svc *services.Services, args []string, out io.Writer) error {
	if len(args) == 0 {
		usage(out)
		return errUsage
	}
	for _, c := range commands {
		if c.name == args[0] {
			return c.run(ctx, svc, args[1:], out)
		}
	}
	fmt.Fprintf(out, "unknown command %q\n\n", args[0])
	usage(out)
	return errUsage
}

func usage(out io.Writer) {
	fmt.Fprintln(out, "usage: pfm <command> [flags]")
	fmt.Fprintln(out)
	for _, c := range commands {
		fmt.Fprintf(out, "  %-14s %s\n", c.name, c.summary)
	}
}
