package amqp

import (
	"encoding/json"
	"time"

	"pfm/internal/core"
)

type EventType string

const (
	TransactionCreated EventType = "transaction.created"
	TransactionUpdated EventType = "transaction.updated"
	TransactionDeleted EventType = "transaction.deleted"
)

// LedgerEvent announces a change to a transaction. Consumers load the current
// record by id; deleted events carry the removed transaction instead.
type LedgerEvent struct {
	Type          EventType         `json:"type"`
	TransactionID string            `json:"transactionId"`
	WalletID      string            `json:"walletId,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
	Snapshot      *core.Transaction `json:"snapshot,omitempty"`
}

// NewLedgerEvent creates an event for tx. The snapshot is only kept for deletions.
func NewLedgerEvent(eventType EventType, tx core.Transaction) *LedgerEvent {
	ev := &LedgerEvent{
		Type:          eventType,
		TransactionID: tx.ID,
		WalletID:      tx.WalletID,
		Timestamp:     time.Now(),
	}
	if eventType == TransactionDeleted {
		snapshot := tx
		ev.Snapshot = &snapshot
	}
	return ev
}

func (t EventType) Valid() bool {
	switch t {
	case TransactionCreated, TransactionUpdated, TransactionDeleted:
		return true
	}
	return false
}

// ToJSON converts the event to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes an event and rejects unknown types.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Type.Valid() {
		return nil, &UnknownEventError{Type: msg.Type}
	}
	return &msg, nil
}

type UnknownEventError struct {
	Type EventType
}

func (e *UnknownEventError) Error() string {
	return "unknown ledger event type " + string(e.Type)
}
