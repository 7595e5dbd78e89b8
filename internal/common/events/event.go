// Package events defines the event envelope and event types the card ledger
// emits for the outside world (audit, notifications, downstream consumers).
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// Event is the envelope around every published event.
type Event struct {
	ID            string          `json:"event_id"`
	Type          string          `json:"type"`
	Version       int             `json:"version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event envelope.
func NewEvent(eventType, aggregateType, aggregateID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            ulid.Make().String(),
		Type:          eventType,
		Version:       1,
		OccurredAt:    time.Now().UTC(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Data:          dataBytes,
	}, nil
}

// WithCorrelation sets the correlation ID.
func (e *Event) WithCorrelation(correlationID string) *Event {
	e.CorrelationID = correlationID
	return e
}

// DecodeData decodes the event data into a struct.
func (e *Event) DecodeData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Publisher publishes events to a message broker.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
}

// Event types emitted by the card ledger.
const (
	EventCardIssued        = "card.issued"
	EventCardDebited       = "card.debited"
	EventCardCredited      = "card.credited"
	EventCardUpdated       = "card.updated"
	EventCardDeleted       = "card.deleted"
	EventOperationRecorded = "card.operation.recorded"
)

// CardIssuedData is the data for card.issued events.
type CardIssuedData struct {
	CardID     string `json:"card_id"`
	OwnerID    string `json:"owner_id"`
	CardType   string `json:"card_type"`
	CardNumber string `json:"card_number"`
}

// CardMutatedData is the data for card.debited / card.credited events.
type CardMutatedData struct {
	CardID     string `json:"card_id"`
	Type       string `json:"type"`
	Amount     string `json:"amount"`
	NewBalance string `json:"new_balance"`
	RecordID   string `json:"record_id"`
}

// OperationRecordedData is the audit entry for every operation outcome,
// SUCCESS and FAILED alike.
type OperationRecordedData struct {
	CardID    string `json:"card_id,omitempty"`
	Operation string `json:"operation"`
	Amount    string `json:"amount,omitempty"`
	Outcome   string `json:"outcome"`
	Detail    string `json:"detail,omitempty"`
}
