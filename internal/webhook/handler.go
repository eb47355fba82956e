package webhook

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"nurture_backend/internal/gateway"
	"nurture_backend/platform/httpkit"
	"nurture_backend/platform/validator"
)

// Handler exposes the bridge callback endpoints.
type Handler struct {
	service *Service
	val     *validator.Validator
}

// NewHandler creates the webhook handler.
func NewHandler(service *Service, val *validator.Validator) *Handler {
	return &Handler{service: service, val: val}
}

type callCompletedRequest struct {
	ProviderCallID  string `json:"providerCallId" validate:"required"`
	Status          string `json:"status" validate:"required"`
	IsVoicemail     bool   `json:"isVoicemail"`
	DurationSeconds int    `json:"durationSeconds" validate:"gte=0"`
	CompletedAt     string `json:"completedAt"`
}

// HandleCallCompleted receives the provider's call outcome.
func (h *Handler) HandleCallCompleted(c *gin.Context) {
	var req callCompletedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid payload", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	completedAt := time.Now()
	if req.CompletedAt != "" {
		if parsed, err := time.Parse(time.RFC3339, req.CompletedAt); err == nil {
			completedAt = parsed
		}
	}

	err := h.service.HandleCallCompleted(c.Request.Context(), gateway.CallCompletion{
		ProviderCallID:  req.ProviderCallID,
		Status:          req.Status,
		IsVoicemail:     req.IsVoicemail,
		DurationSeconds: req.DurationSeconds,
		CompletedAt:     completedAt,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"accepted": true})
}

type messageDeliveryRequest struct {
	ProviderMessageID string `json:"providerMessageId" validate:"required"`
	Status            string `json:"status" validate:"required,oneof=sent delivered failed"`
}

// HandleMessageDelivery receives a delivery state change for a sent message.
func (h *Handler) HandleMessageDelivery(c *gin.Context) {
	var req messageDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid payload", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	err := h.service.HandleMessageDelivery(c.Request.Context(), gateway.MessageDelivery{
		ProviderMessageID: req.ProviderMessageID,
		Status:            req.Status,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"accepted": true})
}

type inboundMessageRequest struct {
	LeadID            string `json:"leadId" validate:"required,uuid"`
	Body              string `json:"body" validate:"required"`
	ProviderMessageID string `json:"providerMessageId"`
}

// HandleInboundMessage receives a text the lead sent us.
func (h *Handler) HandleInboundMessage(c *gin.Context) {
	var req inboundMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid payload", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	leadID, err := uuid.Parse(req.LeadID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead id", nil)
		return
	}

	err = h.service.HandleInboundMessage(c.Request.Context(), InboundMessage{
		LeadID:            leadID,
		Body:              req.Body,
		ProviderMessageID: req.ProviderMessageID,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"accepted": true})
}
