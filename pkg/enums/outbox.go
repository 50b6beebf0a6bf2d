package enums

import "slices"

// OutboxAggregateType and OutboxEventType mirror aggregate_type_enum and
// event_type_enum on outbox_events.
type (
	OutboxAggregateType string
	OutboxEventType     string
)

const AggregateOrder OutboxAggregateType = "order"

const (
	EventOrderCreated       OutboxEventType = "order_created"
	EventOrderStatusChanged OutboxEventType = "order_status_changed"
)

var (
	aggregateTypes = []OutboxAggregateType{AggregateOrder}
	eventTypes     = []OutboxEventType{EventOrderCreated, EventOrderStatusChanged}
)

func (a OutboxAggregateType) IsValid() bool {
	_, err := ParseOutboxAggregateType(string(a))
	return err == nil
}

func ParseOutboxAggregateType(raw string) (OutboxAggregateType, error) {
	return parse("aggregate type", raw, aggregateTypes)
}

func (e OutboxEventType) IsValid() bool {
	_, err := ParseOutboxEventType(string(e))
	return err == nil
}

func ParseOutboxEventType(raw string) (OutboxEventType, error) {
	return parse("event type", raw, eventTypes)
}

// DLQReason is why the publisher gave up on an event.
type DLQReason string

const (
	DLQReasonMaxAttempts  DLQReason = "max_attempts"
	DLQReasonNonRetryable DLQReason = "non_retryable"
)

func (r DLQReason) String() string { return string(r) }

var dlqReasons = []DLQReason{DLQReasonMaxAttempts, DLQReasonNonRetryable}

func (r DLQReason) IsValid() bool {
	return slices.Contains(dlqReasons, r)
}

func ParseDLQReason(raw string) (DLQReason, error) {
	return parse("dlq reason", raw, dlqReasons)
}
