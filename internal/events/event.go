// Package events publishes domain events to a message broker.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Routing keys of the published events.
const (
	OrderPlaced           = "order.placed"
	OrderApproved         = "order.approved"
	ShipmentStatusChanged = "shipment.status_changed"
	InvoiceCreated        = "invoice.created"
)

// Event is the envelope written to the broker.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	CompanyID  int64     `json:"company_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// New builds an event with a fresh id.
func New(eventType string, companyID int64, data any) Event {
	return Event{ID: uuid.New(), Type: eventType, CompanyID: companyID, OccurredAt: time.Now().UTC(), Data: data}
}

// Publisher delivers events. The routing key is the event type.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Noop drops every event.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(context.Context, Event) error { return nil }

// PublishQuietly publishes and logs failures instead of returning them.
func PublishQuietly(ctx context.Context, pub Publisher, logger *slog.Logger, e Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, e); err != nil && logger != nil {
		logger.Warn("publish event failed",
			slog.String("type", e.Type),
			slog.Int64("company_id", e.CompanyID),
			slog.Any("error", err))
	}
}
