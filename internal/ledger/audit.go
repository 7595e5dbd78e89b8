package ledger

import (
	"context"
	"log/slog"

	"cardledger/internal/common/events"
	"cardledger/internal/common/money"
)

// Outcome is the audit result of an operation.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailed  Outcome = "FAILED"
)

// Notifier receives the outcome of every ledger operation. Implementations
// must be safe to call after the operation has committed: a notifier failure
// never rolls back or fails the operation it describes.
type Notifier interface {
	OperationResult(ctx context.Context, cardID, operation string, amount money.Amount, outcome Outcome, detail string)
}

// NopNotifier discards all outcomes.
type NopNotifier struct{}

func (NopNotifier) OperationResult(context.Context, string, string, money.Amount, Outcome, string) {
}

// EventNotifier publishes operation outcomes as events. Publish errors are
// logged and dropped.
type EventNotifier struct {
	publisher events.Publisher
	logger    *slog.Logger
}

// NewEventNotifier creates a notifier backed by an event publisher.
func NewEventNotifier(publisher events.Publisher, logger *slog.Logger) *EventNotifier {
	return &EventNotifier{publisher: publisher, logger: logger}
}

// OperationResult publishes a card.operation.recorded event.
func (n *EventNotifier) OperationResult(ctx context.Context, cardID, operation string, amount money.Amount, outcome Outcome, detail string) {
	data := events.OperationRecordedData{
		CardID:    cardID,
		Operation: operation,
		Amount:    amount.String(),
		Outcome:   string(outcome),
		Detail:    detail,
	}

	event, err := events.NewEvent(events.EventOperationRecorded, "card", cardID, data)
	if err != nil {
		n.logger.Error("building audit event", "error", err, "card_id", cardID)
		return
	}

	if err := n.publisher.Publish(ctx, event); err != nil {
		n.logger.Error("publishing audit event",
			"error", err,
			"card_id", cardID,
			"operation", operation,
			"outcome", outcome,
		)
	}
}
