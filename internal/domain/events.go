package domain

import (
	"encoding/json"
	"time"
)

// Event types
const (
	EventTypeTransactionCreated   = "transaction.created"
	EventTypeTransactionUpdated   = "transaction.updated"
	EventTypeTransferCreated      = "transfer.created"
	EventTypeTransactionSplit     = "transaction.split"
	EventTypeTransactionVoided    = "transaction.voided"
	EventTypeTransactionRestored  = "transaction.restored"
	EventTypeTransactionsSettled  = "transactions.settled"
	EventTypeAccountReconciled    = "account.reconciled"
	EventTypeTransactionsImported = "transactions.imported"
)

// Aggregate types
const (
	AggregateTypeTransaction = "transaction"
	AggregateTypeTransfer    = "transfer"
	AggregateTypeAccount     = "account"
	AggregateTypeLedger      = "ledger"
)

// OutboxEvent carries a committed command result to downstream consumers
// such as audit logging and notifications.
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	RequestID     RequestID
	Actor         string
	Payload       json.RawMessage
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// EventEnvelope is the wire form of a published outbox event.
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	RequestID     RequestID       `json:"request_id"`
	Actor         string          `json:"actor,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Result        json.RawMessage `json:"result"`
}

// Envelope converts the event to its wire form.
func (e *OutboxEvent) Envelope() EventEnvelope {
	return EventEnvelope{
		EventID:       e.ID,
		EventType:     e.EventType,
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		RequestID:     e.RequestID,
		Actor:         e.Actor,
		OccurredAt:    e.CreatedAt,
		Result:        e.Payload,
	}
}
