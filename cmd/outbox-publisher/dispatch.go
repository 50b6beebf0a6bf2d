package main

import (
	"context"
	"fmt"
	"maps"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

// dispatch publishes one row and writes the outcome back. Only bookkeeping
// failures are returned; publish failures are recorded on the row.
func (s *Service) dispatch(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	kind := string(event.EventType)
	fields := rowFields(event)

	routed, err := s.router.Resolve(event)
	if err != nil {
		s.metrics.IncFailure(kind)
		return s.park(ctx, tx, event, enums.DLQReasonNonRetryable, err, fields)
	}
	fields["event_id"] = routed.Envelope.EventID
	fields["occurred_at"] = routed.Envelope.OccurredAt.Format(time.RFC3339Nano)
	fields["topic"] = routed.Route.Topic

	pubErr := s.publish(ctx, event, routed)
	if pubErr == nil {
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.metrics.IncSuccess(kind)
		s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event published")
		return nil
	}

	s.metrics.IncFailure(kind)
	if registry.IsPermanent(pubErr) {
		return s.park(ctx, tx, event, enums.DLQReasonNonRetryable, pubErr, fields)
	}

	attempt := event.AttemptCount + 1
	fields["attempt_count"] = attempt
	if attempt >= s.maxAttempts {
		return s.park(ctx, tx, event, enums.DLQReasonMaxAttempts, fmt.Errorf("gave up after %d attempts: %w", attempt, pubErr), fields)
	}

	s.logg.Warn(s.logg.WithFields(ctx, withError(fields, pubErr)), "outbox publish failed")
	if err := s.repo.MarkFailedTx(tx, event.ID, pubErr); err != nil {
		return fmt.Errorf("mark failure %s: %w", event.ID, err)
	}
	return nil
}

// park copies the row into the dead letter table and stops the publisher from
// picking it up again.
func (s *Service) park(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.DLQReason, cause error, fields map[string]any) error {
	fields["error_reason"] = reason
	s.logg.Warn(s.logg.WithFields(ctx, withError(fields, cause)), "outbox event parked")

	if err := s.dlq.InsertTx(tx, event.DeadLetter(reason, cause, time.Now())); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, event models.OutboxEvent, routed *registry.Routed) error {
	topic := routed.Route.Topic
	pub := s.publishers(topic)
	if pub == nil {
		return registry.Permanent(fmt.Errorf("no publisher for topic %s", topic))
	}

	ctx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := pub.Publish(ctx, &gcppubsub.Message{
		Data:       event.Payload,
		Attributes: messageAttributes(event, routed),
	})
	if result == nil {
		return registry.Permanent(fmt.Errorf("topic %s: %w", topic, errNilPublishResult))
	}
	_, err := result.Get(ctx)
	return err
}

// messageAttributes lets subscribers filter and dedupe without decoding Data.
func messageAttributes(event models.OutboxEvent, routed *registry.Routed) map[string]string {
	return map[string]string{
		"event_id":       routed.Envelope.EventID,
		"event_type":     string(event.EventType),
		"event_version":  fmt.Sprint(routed.Envelope.Version),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
		"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
	}
}

func rowFields(event models.OutboxEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func withError(fields map[string]any, err error) map[string]any {
	out := maps.Clone(fields)
	out["error"] = err.Error()
	return out
}
