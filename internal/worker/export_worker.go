package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"pfm/internal/amqp"
	"pfm/internal/core"
	applog "pfm/internal/log"
	"pfm/internal/sheets"
	"pfm/internal/store"
)

// JournalHeader names the journal columns in row order.
var JournalHeader = []any{"Timestamp", "Action", "Transaction ID", "Wallet", "Category", "Kind", "Amount", "Name", "Created"}

// backfillAction marks rows written by Backfill rather than by an event.
const backfillAction = "snapshot"

// Consumer delivers ledger events. *amqp.Client implements it.
type Consumer interface {
	ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *amqp.LedgerEvent) error) error
}

// ExportStore is what the worker reads to resolve transactions and names.
type ExportStore interface {
	store.TransactionStore
	store.WalletStore
	store.CategoryStore
}

// ExportWorker mirrors ledger changes into the journal sheet.
type ExportWorker struct {
	store     ExportStore
	journal   sheets.JournalWriter
	batchSize int
}

func NewExportWorker(st ExportStore, journal sheets.JournalWriter, batchSize int) *ExportWorker {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ExportWorker{store: st, journal: journal, batchSize: batchSize}
}

// Run writes the header if needed and handles events until ctx is done.
func (w *ExportWorker) Run(ctx context.Context, consumer Consumer) error {
	if err := w.journal.EnsureHeader(ctx, JournalHeader); err != nil {
		return fmt.Errorf("ensure journal header: %w", err)
	}
	return consumer.ConsumeLedgerEvents(ctx, w.HandleEvent)
}

// HandleEvent appends one journal row for ev. Returning an error requeues the
// event, so events that can never succeed are logged and dropped instead.
func (w *ExportWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	var tx core.Transaction
	switch ev.Type {
	case amqp.TransactionDeleted:
		if ev.Snapshot == nil {
			slog.WarnContext(ctx, "Dropping delete event without snapshot",
				applog.FieldComponent, applog.ComponentWorker,
				applog.FieldTransactionID, ev.TransactionID)
			return nil
		}
		tx = *ev.Snapshot
	default:
		var err error
		tx, err = w.store.GetTransaction(ctx, ev.TransactionID)
		if errors.Is(err, core.ErrNotFound) {
			// deleted since; its delete event carries the final state
			slog.WarnContext(ctx, "Transaction gone before export",
				applog.FieldComponent, applog.ComponentWorker,
				applog.FieldEventType, string(ev.Type),
				applog.FieldTransactionID, ev.TransactionID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("load transaction %s: %w", ev.TransactionID, err)
		}
	}

	row := JournalRow(ev.Timestamp.Format(core.TimestampLayout), actionOf(ev.Type), tx, w.walletName(ctx, tx.WalletID), w.categoryName(ctx, tx))
	rng, err := w.journal.AppendRows(ctx, [][]any{row})
	if err != nil {
		return fmt.Errorf("export transaction %s: %w", tx.ID, err)
	}

	slog.InfoContext(ctx, "Exported ledger event",
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldOperation, applog.OpExport,
		applog.FieldEventType, string(ev.Type),
		applog.FieldTransactionID, tx.ID,
		applog.FieldSheetsRange, rng)
	return nil
}

// Backfill appends a snapshot row for every stored transaction, oldest first,
// in batches. at is written into the timestamp column.
func (w *ExportWorker) Backfill(ctx context.Context, at string) (int, error) {
	txs, err := w.store.ListTransactions(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("list transactions: %w", err)
	}

	written := 0
	batch := make([][]any, 0, w.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := w.journal.AppendRows(ctx, batch); err != nil {
			return fmt.Errorf("append batch: %w", err)
		}
		written += len(batch)
		batch = batch[:0]
		return nil
	}

	for i := len(txs) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		tx := txs[i]
		batch = append(batch, JournalRow(at, backfillAction, tx, w.walletName(ctx, tx.WalletID), w.categoryName(ctx, tx)))
		if len(batch) == w.batchSize {
			if err := flush(); err != nil {
				return written, err
			}
		}
	}
	if err := flush(); err != nil {
		return written, err
	}

	slog.InfoContext(ctx, "Journal backfill completed",
		applog.FieldComponent, applog.ComponentWorker,
		"rows", written)
	return written, nil
}

// JournalRow renders one journal line: timestamp, action, id, wallet,
// category, kind, amount, name, create time.
func JournalRow(timestamp, action string, tx core.Transaction, wallet, category string) []any {
	return []any{
		timestamp,
		action,
		tx.ID,
		wallet,
		category,
		tx.Kind.String(),
		core.FormatAmount(tx.Amount),
		tx.Name,
		tx.CreateTime,
	}
}

func actionOf(t amqp.EventType) string {
	return strings.TrimPrefix(string(t), "transaction.")
}

// walletName falls back to the id when the wallet cannot be read.
func (w *ExportWorker) walletName(ctx context.Context, id string) string {
	if id == "" {
		return ""
	}
	if wallet, err := w.store.GetWallet(ctx, id); err == nil {
		return wallet.Name
	}
	return id
}

// categoryName labels uncategorized expenses as core.OtherBucket and leaves
// uncategorized income blank.
func (w *ExportWorker) categoryName(ctx context.Context, tx core.Transaction) string {
	if tx.CategoryID == "" {
		if tx.IsIncome() {
			return ""
		}
		return core.OtherBucket
	}
	if c, err := w.store.GetCategory(ctx, tx.CategoryID); err == nil {
		return c.Name
	}
	return tx.CategoryID
}
