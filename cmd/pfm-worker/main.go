package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"pfm/internal/amqp"
	"pfm/internal/cli"
	"pfm/internal/core"
	applog "pfm/internal/log"
	gsheet "pfm/internal/sheets/google"
	"pfm/internal/worker"
)

func main() {
	backfill := flag.Bool("backfill", false, "append every stored transaction to the journal and exit")
	batchSize := flag.Int("batch-size", 100, "rows per Sheets append during backfill")
	flag.Parse()

	if err := cli.LoadEnvFile(); err != nil {
		applog.New(applog.DefaultConfig()).Error("Failed to load .env", applog.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting pfm-worker", "backfill", *backfill)

	cfg := cli.LoadAndValidateConfig(logger)
	if !*backfill {
		if err := cfg.ValidateExport(); err != nil {
			logger.Error("Export configuration invalid", applog.FieldError, err)
			os.Exit(1)
		}
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	journal, err := gsheet.NewFromEnv(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	exporter := worker.NewExportWorker(repo, journal, *batchSize)

	if *backfill {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := journal.EnsureHeader(ctx, worker.JournalHeader); err != nil {
			logger.Error("Failed to write journal header", applog.FieldError, err)
			os.Exit(1)
		}
		n, err := exporter.Backfill(ctx, core.FormatTimestamp(time.Now()))
		if err != nil {
			logger.Error("Backfill failed", applog.FieldError, err, "written", n)
			os.Exit(1)
		}
		logger.Info("Backfill complete", "written", n)
		return
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	if err := exporter.Run(ctx, client); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Export worker stopped", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
