// Package notifications turns order events into customer emails.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/mailer"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

// ConsumerName scopes the idempotency keys of the order email consumer.
const ConsumerName = "order-notifications"

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

type processedGuard interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type payloadDecoder interface {
	Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (any, error)
}

// OrderConsumerParams wires an OrderConsumer.
type OrderConsumerParams struct {
	Subscription receiver
	Idempotency  processedGuard
	Decoders     payloadDecoder
	Mailer       mailer.Sender
	StoreName    string
	Logger       *logger.Logger
	Metrics      *metrics.DeliveryMetrics
}

// OrderConsumer sends the confirmation email for order_created and status
// emails for order_status_changed. Delivery failures are retried through
// Pub/Sub redelivery and never reach the checkout path.
type OrderConsumer struct {
	subscription receiver
	idempotency  processedGuard
	decoders     payloadDecoder
	mailer       mailer.Sender
	storeName    string
	logg         *logger.Logger
	metrics      *metrics.DeliveryMetrics
}

// NewOrderConsumer validates params.
func NewOrderConsumer(params OrderConsumerParams) (*OrderConsumer, error) {
	if params.Subscription == nil {
		return nil, fmt.Errorf("orders subscription required")
	}
	if params.Idempotency == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if params.Decoders == nil {
		return nil, fmt.Errorf("payload decoders required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	storeName := strings.TrimSpace(params.StoreName)
	if storeName == "" {
		storeName = "our store"
	}
	return &OrderConsumer{
		subscription: params.Subscription,
		idempotency:  params.Idempotency,
		decoders:     params.Decoders,
		mailer:       params.Mailer,
		storeName:    storeName,
		logg:         params.Logger,
		metrics:      params.Metrics,
	}, nil
}

// Run receives until ctx is cancelled.
func (c *OrderConsumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg) == outcomeNack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type outcome int

const (
	outcomeAck outcome = iota
	outcomeNack
)

func (c *OrderConsumer) process(ctx context.Context, msg *pubsub.Message) outcome {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != enums.EventOrderCreated && eventType != enums.EventOrderStatusChanged {
		c.logg.Debug(logCtx, "skipping event without order email")
		return outcomeAck
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return outcomeAck
	}
	logCtx = c.logg.WithEvent(logCtx, envelope.EventID, string(eventType))

	payload, err := c.decoders.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode payload", err)
		return outcomeAck
	}

	claimed, err := c.idempotency.Claim(ctx, envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return outcomeNack
	}
	if !claimed {
		c.logg.Info(logCtx, "event already processed")
		return outcomeAck
	}

	msgOut, kind, err := c.buildMessage(payload)
	if err != nil {
		c.logg.Error(logCtx, "failed to render email", err)
		return outcomeAck
	}
	if kind == "" {
		c.logg.Debug(logCtx, "status change without customer email")
		return outcomeAck
	}

	if err := c.mailer.Send(ctx, msgOut); err != nil {
		c.metrics.IncFailure(kind)
		c.logg.Error(c.logg.WithField(logCtx, "email", kind), "email delivery failed", err)
		if releaseErr := c.idempotency.Release(ctx, envelope.EventID); releaseErr != nil {
			c.logg.Error(logCtx, "failed to release idempotency key", releaseErr)
		}
		return outcomeNack
	}
	c.metrics.IncSuccess(kind)
	c.logg.Info(c.logg.WithField(logCtx, "email", kind), "order email sent")
	return outcomeAck
}

// buildMessage renders the email for payload. An empty kind means the event
// needs no email.
func (c *OrderConsumer) buildMessage(payload any) (mailer.Message, string, error) {
	switch p := payload.(type) {
	case payloads.OrderCreatedEvent:
		msg, err := confirmationEmail.render(p.CustomerEmail, p.OrderNumber, struct {
			StoreName string
			Order     payloads.OrderCreatedEvent
		}{c.storeName, p})
		return msg, "order_confirmation", err
	case payloads.OrderStatusChangedEvent:
		data := struct {
			StoreName string
			Event     payloads.OrderStatusChangedEvent
		}{c.storeName, p}
		switch {
		case p.OrderStatus == enums.OrderStatusShipped && p.PreviousOrderStatus != enums.OrderStatusShipped:
			msg, err := shippedEmail.render(p.CustomerEmail, p.OrderNumber, data)
			return msg, "order_shipped", err
		case p.PaymentStatus == enums.PaymentStatusApproved && p.PreviousPaymentStatus != enums.PaymentStatusApproved:
			msg, err := paymentEmail.render(p.CustomerEmail, p.OrderNumber, data)
			return msg, "payment_approved", err
		}
		return mailer.Message{}, "", nil
	default:
		return mailer.Message{}, "", fmt.Errorf("unexpected payload %T", payload)
	}
}
