package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

func TestOutboxEventDeadLetter(t *testing.T) {
	event := OutboxEvent{
		ID:            uuid.New(),
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		EventType:     enums.EventOrderCreated,
		Payload:       json.RawMessage(`{"version":1}`),
		AttemptCount:  4,
	}
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.FixedZone("EST", -5*3600))

	entry := event.DeadLetter(enums.DLQReasonNonRetryable, errors.New("decode payload"), at)

	assert.Equal(t, uuid.Nil, entry.ID)
	assert.Equal(t, event.ID, entry.EventID)
	assert.Equal(t, event.AggregateID, entry.AggregateID)
	assert.Equal(t, event.EventType, entry.EventType)
	assert.JSONEq(t, `{"version":1}`, string(entry.Payload))
	assert.Equal(t, enums.DLQReasonNonRetryable, entry.ErrorReason)
	assert.Equal(t, 4, entry.AttemptCount)
	assert.Equal(t, time.UTC, entry.FailedAt.Location())
	require.NotNil(t, entry.ErrorMessage)
	assert.Equal(t, "decode payload", *entry.ErrorMessage)

	assert.Nil(t, event.DeadLetter(enums.DLQReasonMaxAttempts, nil, at).ErrorMessage)
}
