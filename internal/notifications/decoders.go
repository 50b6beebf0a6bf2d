package notifications

import (
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

// NewDecoders registers the order event payloads this package understands.
// Registration only fails on programmer error, so it panics.
func NewDecoders() *registry.DecoderRegistry {
	decoders := registry.NewDecoderRegistry()
	must(registry.RegisterJSON[payloads.OrderCreatedEvent](decoders, enums.EventOrderCreated, 1))
	must(registry.RegisterJSON[payloads.OrderStatusChangedEvent](decoders, enums.EventOrderStatusChanged, 1))
	return decoders
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
