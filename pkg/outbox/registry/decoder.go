package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// ErrNoDecoder is returned for event type/version pairs nobody registered.
var ErrNoDecoder = errors.New("no decoder registered")

// Decoder turns one envelope payload version into a typed value.
type Decoder func(payload json.RawMessage) (any, error)

type decoderKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry maps (event type, payload version) to a decoder. Consumers
// register every version they still accept.
type DecoderRegistry struct {
	mu       sync.RWMutex
	decoders map[decoderKey]Decoder
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: make(map[decoderKey]Decoder)}
}

func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decoder Decoder) error {
	if !eventType.IsValid() {
		return fmt.Errorf("unknown event type %q", eventType)
	}
	if version < 1 {
		return fmt.Errorf("%s: version must be >= 1", eventType)
	}
	if decoder == nil {
		return fmt.Errorf("%s@v%d: decoder required", eventType, version)
	}

	key := decoderKey{eventType: eventType, version: version}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.decoders[key]; dup {
		return fmt.Errorf("%s@v%d: decoder already registered", eventType, version)
	}
	r.decoders[key] = decoder
	return nil
}

// RegisterJSON registers a decoder that unmarshals the payload into T and
// returns it by value.
func RegisterJSON[T any](r *DecoderRegistry, eventType enums.OutboxEventType, version int) error {
	return r.Register(eventType, version, func(payload json.RawMessage) (any, error) {
		if trimmed := bytes.TrimSpace(payload); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
			return nil, fmt.Errorf("%s@v%d: empty payload", eventType, version)
		}
		var out T
		if err := json.Unmarshal(payload, &out); err != nil {
			return nil, fmt.Errorf("%s@v%d: %w", eventType, version, err)
		}
		return out, nil
	})
}

func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (any, error) {
	r.mu.RLock()
	decoder, ok := r.decoders[decoderKey{eventType: eventType, version: version}]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s@v%d: %w", eventType, version, ErrNoDecoder)
	}
	return decoder(payload)
}
