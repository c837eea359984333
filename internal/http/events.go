package http

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"fambudget/internal/amqp"
	"fambudget/internal/core"
)

// transactionEvent is the slice of a transaction the event bus carries.
type transactionEvent struct {
	ID          uuid.UUID
	WorkspaceID uuid.UUID
	AccountIDs  []uuid.UUID
}

func eventFor(t core.Transaction) transactionEvent {
	ev := transactionEvent{ID: t.ID, WorkspaceID: t.WorkspaceID}
	for _, ref := range []*uuid.UUID{t.Refs.AccountID, t.Refs.FromAccountID, t.Refs.ToAccountID} {
		if ref != nil {
			ev.AccountIDs = append(ev.AccountIDs, *ref)
		}
	}
	return ev
}

// AMQPPublisher publishes ledger events to the audit queue. Publishing is
// best effort: the transaction is already durable, so a failed publish is
// logged and swallowed.
type AMQPPublisher struct {
	client *amqp.Client
}

func NewAMQPPublisher(client *amqp.Client) *AMQPPublisher {
	return &AMQPPublisher{client: client}
}

func (p *AMQPPublisher) PublishApplied(ctx context.Context, ev transactionEvent) {
	p.publish(ctx, amqp.OpApplied, ev)
}

func (p *AMQPPublisher) PublishReversed(ctx context.Context, ev transactionEvent) {
	p.publish(ctx, amqp.OpReversed, ev)
}

func (p *AMQPPublisher) publish(ctx context.Context, op string, ev transactionEvent) {
	if p == nil || p.client == nil {
		return
	}
	msg := amqp.NewLedgerEventMessage(op, ev.ID, ev.WorkspaceID, ev.AccountIDs)
	if err := p.client.PublishLedgerEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"op", op, "transaction_id", ev.ID, "error", err)
	}
}

// publishApplied and publishReversed fan out through the configured
// publisher, if any.
func (s *Server) publishApplied(ctx context.Context, t core.Transaction) {
	if s.publisher != nil {
		s.publisher.PublishApplied(ctx, eventFor(t))
	}
}

func (s *Server) publishReversed(ctx context.Context, t core.Transaction) {
	if s.publisher != nil {
		s.publisher.PublishReversed(ctx, eventFor(t))
	}
}
