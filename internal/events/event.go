// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"nurture_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Domain Events
// =============================================================================

// LeadCreated is published when a new lead enters the nurture funnel.
type LeadCreated struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	AccountID uuid.UUID `json:"accountId"`
	Phone     string    `json:"phone"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadStatusChanged is published when the state machine moves a lead
// to a new lifecycle status.
type LeadStatusChanged struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	AccountID uuid.UUID `json:"accountId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
}

func (e LeadStatusChanged) EventName() string { return "leads.lead.status_changed" }

// LeadArchived is published when a quota sweep archives a lead.
type LeadArchived struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	AccountID uuid.UUID `json:"accountId"`
	Reason    string    `json:"reason"`
}

func (e LeadArchived) EventName() string { return "leads.lead.archived" }

// =============================================================================
// Engagement Domain Events
// =============================================================================

// InboundMessageReceived is published when the lead texts back.
type InboundMessageReceived struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	MessageID uuid.UUID `json:"messageId"`
	Body      string    `json:"body"`
}

func (e InboundMessageReceived) EventName() string { return "engagement.message.inbound" }

// AutoReplyDue fires when the reply debounce window for an inbound message
// has elapsed and the message is still the lead's latest.
type AutoReplyDue struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	MessageID uuid.UUID `json:"messageId"`
}

func (e AutoReplyDue) EventName() string { return "engagement.autoreply.due" }

// CallCompleted is published when the provider reports a call outcome.
type CallCompleted struct {
	BaseEvent
	LeadID          uuid.UUID `json:"leadId"`
	CallID          uuid.UUID `json:"callId"`
	ProviderCallID  string    `json:"providerCallId"`
	Status          string    `json:"status"`
	IsVoicemail     bool      `json:"isVoicemail"`
	DurationSeconds int       `json:"durationSeconds"`
	AttemptNumber   int       `json:"attemptNumber"`
	CallType        string    `json:"callType"`
}

func (e CallCompleted) EventName() string { return "engagement.call.completed" }

// ContactDispatched is published after a scheduled contact clears the guard
// and the gateway accepts it.
type ContactDispatched struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	ContactID uuid.UUID `json:"contactId"`
	Channel   string    `json:"channel"`
}

func (e ContactDispatched) EventName() string { return "engagement.contact.dispatched" }

// =============================================================================
// Subscription Domain Events
// =============================================================================

// SubscriptionDowngraded is published when billing reports a plan downgrade.
type SubscriptionDowngraded struct {
	BaseEvent
	AccountID   uuid.UUID `json:"accountId"`
	OldLimit    int       `json:"oldLimit"`
	NewLimit    int       `json:"newLimit"`
	EffectiveAt time.Time `json:"effectiveAt"`
}

func (e SubscriptionDowngraded) EventName() string { return "billing.subscription.downgraded" }
