package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Ledger event operations.
const (
	OpApplied  = "applied"
	OpReversed = "reversed"
)

// LedgerEventMessage announces an applied or reversed transaction.
// It carries only identifiers; the audit worker re-reads ledger state from
// the database, so a stale message can never corrupt anything.
type LedgerEventMessage struct {
	Op            string      `json:"op"`
	TransactionID uuid.UUID   `json:"transaction_id"`
	WorkspaceID   uuid.UUID   `json:"workspace_id"`
	AccountIDs    []uuid.UUID `json:"account_ids"`
	Timestamp     time.Time   `json:"timestamp"`
}

// NewLedgerEventMessage creates an event for one transaction
func NewLedgerEventMessage(op string, transactionID, workspaceID uuid.UUID, accountIDs []uuid.UUID) *LedgerEventMessage {
	return &LedgerEventMessage{
		Op:            op,
		TransactionID: transactionID,
		WorkspaceID:   workspaceID,
		AccountIDs:    accountIDs,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON creates a message from JSON bytes
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
