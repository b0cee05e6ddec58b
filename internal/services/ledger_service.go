package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pfm/internal/amqp"
	"pfm/internal/core"
	applog "pfm/internal/log"
	"pfm/internal/store"
)

// EventPublisher announces ledger changes. *amqp.Client implements it.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// LedgerStore is what LedgerService needs from the record store.
type LedgerStore interface {
	store.TransactionStore
	store.WalletStore
}

// Reconciliation compares a wallet's stored balance with the balance derived
// from its opening balance and transactions.
type Reconciliation struct {
	WalletID string          `json:"walletId"`
	Stored   decimal.Decimal `json:"stored"`
	Derived  decimal.Decimal `json:"derived"`
	Drift    decimal.Decimal `json:"drift"`
	InSync   bool            `json:"inSync"`
}

// LedgerService orchestrates transaction and wallet operations. The store
// applies balance changes; the service adds ids, timestamps and events.
type LedgerService struct {
	store     LedgerStore
	publisher EventPublisher
	now       func() time.Time
}

// NewLedgerService builds the service. publisher may be nil.
func NewLedgerService(st LedgerStore, publisher EventPublisher) *LedgerService {
	return &LedgerService{store: st, publisher: publisher, now: time.Now}
}

// CreateTransaction assigns an id and create time when missing, saves tx and
// publishes a created event.
func (s *LedgerService) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreateTime == "" {
		tx.CreateTime = core.FormatTimestamp(s.now())
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.logTransaction(ctx, applog.OpCreate, tx)
	s.publish(ctx, amqp.TransactionCreated, tx)
	return tx, nil
}

// UpdateTransaction replaces tx. An empty create time keeps the stored one.
func (s *LedgerService) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.CreateTime == "" {
		old, err := s.store.GetTransaction(ctx, tx.ID)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
		}
		tx.CreateTime = old.CreateTime
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.store.UpdateTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	s.logTransaction(ctx, applog.OpUpdate, tx)
	s.publish(ctx, amqp.TransactionUpdated, tx)
	return tx, nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) error {
	deleted, err := s.store.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.logTransaction(ctx, applog.OpDelete, deleted)
	s.publish(ctx, amqp.TransactionDeleted, deleted)
	return nil
}

func (s *LedgerService) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

func (s *LedgerService) ListTransactions(ctx context.Context, walletID string) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, walletID)
}

// CreateWallet starts the wallet at its opening balance.
func (s *LedgerService) CreateWallet(ctx context.Context, w core.Wallet) (core.Wallet, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if err := w.Validate(); err != nil {
		return core.Wallet{}, err
	}
	w.Balance = w.OpeningBalance
	if err := s.store.CreateWallet(ctx, w); err != nil {
		return core.Wallet{}, fmt.Errorf("create wallet: %w", err)
	}
	return w, nil
}

// UpdateWallet renames or retags a wallet; balances are ignored.
func (s *LedgerService) UpdateWallet(ctx context.Context, w core.Wallet) error {
	if err := w.Validate(); err != nil {
		return err
	}
	return s.store.UpdateWallet(ctx, w)
}

func (s *LedgerService) DeleteWallet(ctx context.Context, id string) error {
	return s.store.DeleteWallet(ctx, id)
}

func (s *LedgerService) GetWallet(ctx context.Context, id string) (core.Wallet, error) {
	return s.store.GetWallet(ctx, id)
}

func (s *LedgerService) ListWallets(ctx context.Context) ([]core.Wallet, error) {
	return s.store.ListWallets(ctx)
}

// ReconcileWallet recomputes the balance of walletID from its ledger and
// reports any difference from the stored value.
func (s *LedgerService) ReconcileWallet(ctx context.Context, walletID string) (Reconciliation, error) {
	w, err := s.store.GetWallet(ctx, walletID)
	if err != nil {
		return Reconciliation{}, err
	}
	txs, err := s.store.ListTransactions(ctx, walletID)
	if err != nil {
		return Reconciliation{}, fmt.Errorf("list wallet transactions: %w", err)
	}

	derived := core.DeriveBalance(w.OpeningBalance, txs)
	r := Reconciliation{
		WalletID: walletID,
		Stored:   w.Balance,
		Derived:  derived,
		Drift:    w.Balance.Sub(derived),
	}
	r.InSync = r.Drift.IsZero()
	if !r.InSync {
		slog.WarnContext(ctx, "Wallet balance drift detected",
			applog.FieldComponent, applog.ComponentLedger,
			applog.FieldOperation, applog.OpReconcile,
			applog.FieldWalletID, walletID,
			"stored", w.Balance.String(),
			"derived", derived.String())
	}
	return r, nil
}

// NetWorth totals every wallet balance.
func (s *LedgerService) NetWorth(ctx context.Context) (core.Worth, error) {
	wallets, err := s.store.ListWallets(ctx)
	if err != nil {
		return core.Worth{}, fmt.Errorf("list wallets: %w", err)
	}
	return core.NetWorth(wallets), nil
}

// publish never fails the caller: the local write already succeeded.
func (s *LedgerService) publish(ctx context.Context, eventType amqp.EventType, tx core.Transaction) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, amqp.NewLedgerEvent(eventType, tx)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			applog.FieldComponent, applog.ComponentLedger,
			applog.FieldOperation, applog.OpPublish,
			applog.FieldEventType, string(eventType),
			applog.FieldTransactionID, tx.ID,
			applog.FieldError, err)
	}
}

func (s *LedgerService) logTransaction(ctx context.Context, op string, tx core.Transaction) {
	fields := applog.NewFields().
		WithComponent(applog.ComponentLedger).
		WithOperation(op).
		WithTransaction(tx.ID, tx.WalletID, tx.CategoryID, tx.Kind.String(), tx.Amount)
	slog.InfoContext(ctx, "Transaction saved", fields.ToSlice()...)
}
