// Package events fronts the platform event bus and declares the domain
// events the modules exchange.
package events

import (
	platformevents "nurture_backend/platform/events"
	"nurture_backend/platform/logger"
)

// InMemoryBus aliases the platform implementation.
type InMemoryBus = platformevents.InMemoryBus

// NewInMemoryBus creates the in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}
