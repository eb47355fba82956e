// Package gateway defines the outbound communication contract. The engine
// never talks to telephony providers directly; it hands calls and messages to
// a bridge that owns provider credentials and webhooks back the outcomes.
package gateway

import (
	"context"
	"time"
)

// PlaceCallParams describes an outbound call request.
type PlaceCallParams struct {
	LeadID        string `json:"leadId"`
	PhoneNumber   string `json:"phoneNumber"`
	CallType      string `json:"callType"`
	AttemptNumber int    `json:"attemptNumber"`
	Script        string `json:"script,omitempty"`
}

// CallRef identifies a placed call at the provider.
type CallRef struct {
	ProviderCallID string `json:"providerCallId"`
}

// SendMessageParams describes an outbound SMS request.
type SendMessageParams struct {
	LeadID      string `json:"leadId"`
	PhoneNumber string `json:"phoneNumber"`
	Body        string `json:"body"`
}

// MessageRef identifies an accepted message at the provider.
type MessageRef struct {
	ProviderMessageID string `json:"providerMessageId"`
}

// CallCompletion is the provider's report of a finished call.
type CallCompletion struct {
	ProviderCallID  string    `json:"providerCallId"`
	Status          string    `json:"status"`
	IsVoicemail     bool      `json:"isVoicemail"`
	DurationSeconds int       `json:"durationSeconds"`
	CompletedAt     time.Time `json:"completedAt"`
}

// MessageDelivery is the provider's report of a message delivery state.
type MessageDelivery struct {
	ProviderMessageID string `json:"providerMessageId"`
	Status            string `json:"status"`
}

// CallPlacer places outbound calls.
type CallPlacer interface {
	PlaceCall(ctx context.Context, params PlaceCallParams) (CallRef, error)
}

// MessageSender sends outbound messages.
type MessageSender interface {
	SendMessage(ctx context.Context, params SendMessageParams) (MessageRef, error)
}

// Gateway is the full outbound surface.
type Gateway interface {
	CallPlacer
	MessageSender
}
