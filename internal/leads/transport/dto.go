// Package transport defines the request and response shapes for the leads
// HTTP surface.
package transport

import (
	"time"

	"github.com/google/uuid"

	"nurture_backend/internal/leads/repository"
)

// Request DTOs
type CreateLeadRequest struct {
	FirstName           string `json:"firstName" validate:"required,min=1,max=100"`
	LastName            string `json:"lastName" validate:"omitempty,max=100"`
	Phone               string `json:"phone" validate:"required,min=5,max=20"`
	AIEnabled           *bool  `json:"aiEnabled,omitempty"`
	VoiceCallingEnabled *bool  `json:"voiceCallingEnabled,omitempty"`
}

type UpdateLeadStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=new in_conversation qualified appointment_set converted inactive"`
}

type DowngradeRequest struct {
	AccountID uuid.UUID `json:"accountId" validate:"required"`
	LeadLimit int       `json:"leadLimit" validate:"gte=0"`
}

// Response DTOs
type LeadResponse struct {
	ID                  uuid.UUID  `json:"id"`
	AccountID           uuid.UUID  `json:"accountId"`
	FirstName           string     `json:"firstName"`
	LastName            string     `json:"lastName"`
	PhoneNumber         string     `json:"phoneNumber"`
	Status              string     `json:"status"`
	AIEnabled           bool       `json:"aiEnabled"`
	VoiceCallingEnabled bool       `json:"voiceCallingEnabled"`
	EngagementScore     float64    `json:"engagementScore"`
	LastCallAttempt     *time.Time `json:"lastCallAttempt,omitempty"`
	ArchivedAt          *time.Time `json:"archivedAt,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// ToLeadResponse maps a repository lead to its API shape.
func ToLeadResponse(lead repository.Lead) LeadResponse {
	return LeadResponse{
		ID:                  lead.ID,
		AccountID:           lead.AccountID,
		FirstName:           lead.FirstName,
		LastName:            lead.LastName,
		PhoneNumber:         lead.PhoneNumber,
		Status:              string(lead.Status),
		AIEnabled:           lead.AIEnabled,
		VoiceCallingEnabled: lead.VoiceCallingEnabled,
		EngagementScore:     lead.EngagementScore,
		LastCallAttempt:     lead.LastCallAttempt,
		ArchivedAt:          lead.ArchivedAt,
		CreatedAt:           lead.CreatedAt,
		UpdatedAt:           lead.UpdatedAt,
	}
}

// ToLeadResponses maps a slice of repository leads.
func ToLeadResponses(leads []repository.Lead) []LeadResponse {
	out := make([]LeadResponse, 0, len(leads))
	for _, lead := range leads {
		out = append(out, ToLeadResponse(lead))
	}
	return out
}
