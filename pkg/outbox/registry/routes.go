package registry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

// ErrPermanent marks outbox rows that will fail the same way on every retry.
var ErrPermanent = errors.New("permanent outbox failure")

// Permanent tags err with ErrPermanent. A nil err still yields a tagged error.
func Permanent(err error) error {
	if err == nil {
		return ErrPermanent
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}

// Route is where one event type is published and which aggregate may emit it.
type Route struct {
	Topic     string
	Aggregate enums.OutboxAggregateType
}

// Routed is an outbox row that passed validation and is ready to publish.
type Routed struct {
	Route    Route
	Envelope outbox.PayloadEnvelope
	Payload  any
}

// Router validates outbox rows before they leave the database. Payloads are
// decoded with the same decoders consumers use so a row nobody can read is
// parked instead of published.
type Router struct {
	routes   map[enums.OutboxEventType]Route
	decoders *DecoderRegistry
}

func NewRouter(cfg config.PubSubConfig) (*Router, error) {
	if cfg.OrdersTopic == "" {
		return nil, errors.New("orders topic is required")
	}
	orders := Route{Topic: cfg.OrdersTopic, Aggregate: enums.AggregateOrder}

	decoders := NewDecoderRegistry()
	if err := errors.Join(
		RegisterJSON[payloads.OrderCreatedEvent](decoders, enums.EventOrderCreated, 1),
		RegisterJSON[payloads.OrderStatusChangedEvent](decoders, enums.EventOrderStatusChanged, 1),
	); err != nil {
		return nil, err
	}

	return &Router{
		routes: map[enums.OutboxEventType]Route{
			enums.EventOrderCreated:       orders,
			enums.EventOrderStatusChanged: orders,
		},
		decoders: decoders,
	}, nil
}

// Resolve returns a Permanent error for anything wrong with the row itself.
func (r *Router) Resolve(event models.OutboxEvent) (*Routed, error) {
	route, ok := r.routes[event.EventType]
	switch {
	case !ok:
		return nil, Permanent(fmt.Errorf("no route for event type %q", event.EventType))
	case route.Aggregate != event.AggregateType:
		return nil, Permanent(fmt.Errorf("%s is emitted by %s, row says %s", event.EventType, route.Aggregate, event.AggregateType))
	case event.AggregateID == uuid.Nil:
		return nil, Permanent(errors.New("aggregate_id is empty"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, Permanent(fmt.Errorf("decode envelope: %w", err))
	}
	payload, err := r.decoders.Decode(event.EventType, envelope.Version, envelope.Data)
	if err != nil {
		return nil, Permanent(err)
	}

	return &Routed{Route: route, Envelope: envelope, Payload: payload}, nil
}
