// Package webhook ingests the bridge's callbacks: call completions, message
// delivery reports, and inbound texts from leads.
package webhook

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"nurture_backend/internal/content"
	"nurture_backend/internal/events"
	"nurture_backend/internal/gateway"
	"nurture_backend/internal/leads/repository"
	"nurture_backend/platform/apperr"
	"nurture_backend/platform/logger"
)

// CallCompleter advances the call funnel from a completion report.
type CallCompleter interface {
	OnCallCompleted(ctx context.Context, completion gateway.CallCompletion) error
}

// Evaluator re-derives a lead's status after its history changed.
type Evaluator interface {
	Evaluate(ctx context.Context, leadID uuid.UUID) error
}

// MessageCanceller drops still-pending outbound messages for a lead.
type MessageCanceller interface {
	CancelPendingMessages(ctx context.Context, leadID uuid.UUID) error
}

// AutoReplyScheduler enqueues the debounced reply to an inbound message.
type AutoReplyScheduler interface {
	ScheduleAutoReply(ctx context.Context, leadID, messageID uuid.UUID) error
}

// Repository is the data access slice webhook ingestion needs.
type Repository interface {
	repository.LeadReader
	repository.CommunicationWriter
}

// Service routes bridge callbacks into the engagement engine.
type Service struct {
	repo      Repository
	calls     CallCompleter
	eval      Evaluator
	canceller MessageCanceller
	replies   AutoReplyScheduler
	content   content.Generator
	gw        gateway.MessageSender
	bus       events.Bus
	log       *logger.Logger
}

// NewService creates the webhook service.
func NewService(repo Repository, calls CallCompleter, eval Evaluator, canceller MessageCanceller, replies AutoReplyScheduler, gen content.Generator, gw gateway.MessageSender, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		calls:     calls,
		eval:      eval,
		canceller: canceller,
		replies:   replies,
		content:   gen,
		gw:        gw,
		bus:       bus,
		log:       log,
	}
}

// HandleCallCompleted forwards the completion to the call coordinator.
func (s *Service) HandleCallCompleted(ctx context.Context, completion gateway.CallCompletion) error {
	return s.calls.OnCallCompleted(ctx, completion)
}

// HandleMessageDelivery records a delivery state change. Failures re-run the
// lead's evaluation immediately, since a run of failed sends can retire it.
func (s *Service) HandleMessageDelivery(ctx context.Context, delivery gateway.MessageDelivery) error {
	leadID, err := s.repo.UpdateMessageDeliveryStatus(ctx, delivery.ProviderMessageID, delivery.Status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("unknown provider message id")
		}
		return err
	}

	if delivery.Status == repository.DeliveryFailed {
		return s.eval.Evaluate(ctx, leadID)
	}
	return nil
}

// InboundMessage is a text a lead sent us, as relayed by the bridge.
type InboundMessage struct {
	LeadID            uuid.UUID
	Body              string
	ProviderMessageID string
}

// HandleInboundMessage records the lead's text, cancels any still-pending
// outbound messages, re-evaluates the lead, and schedules the debounced
// auto-reply.
func (s *Service) HandleInboundMessage(ctx context.Context, inbound InboundMessage) error {
	lead, err := s.repo.GetByID(ctx, inbound.LeadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("unknown lead")
		}
		return err
	}

	var providerID *string
	if inbound.ProviderMessageID != "" {
		providerID = &inbound.ProviderMessageID
	}
	msg, err := s.repo.CreateMessage(ctx, repository.CreateMessageParams{
		LeadID:            lead.ID,
		Direction:         repository.DirectionLead,
		Body:              inbound.Body,
		DeliveryStatus:    "received",
		ProviderMessageID: providerID,
	})
	if err != nil {
		return err
	}

	if err := s.canceller.CancelPendingMessages(ctx, lead.ID); err != nil {
		s.log.Error("webhook: cancelling pending messages failed", "leadId", lead.ID, "error", err)
	}

	if err := s.eval.Evaluate(ctx, lead.ID); err != nil {
		return err
	}

	if lead.AIEnabled {
		if err := s.replies.ScheduleAutoReply(ctx, lead.ID, msg.ID); err != nil {
			s.log.Error("webhook: scheduling auto-reply failed", "leadId", lead.ID, "error", err)
		}
	}

	s.bus.Publish(ctx, events.InboundMessageReceived{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		MessageID: msg.ID,
		Body:      inbound.Body,
	})
	return nil
}

// HandleAutoReplyDue generates and sends the debounced reply. Subscribed to
// the scheduler worker's AutoReplyDue event.
func (s *Service) HandleAutoReplyDue(ctx context.Context, leadID uuid.UUID) error {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return err
	}
	if !lead.AIEnabled || lead.ArchivedAt != nil {
		return nil
	}

	body, err := s.content.FollowUpMessage(ctx, content.MessageParams{
		FirstName: lead.FirstName,
		Status:    lead.Status,
	})
	if err != nil {
		return err
	}

	ref, err := s.gw.SendMessage(ctx, gateway.SendMessageParams{
		LeadID:      lead.ID.String(),
		PhoneNumber: lead.PhoneNumber,
		Body:        body,
	})
	if err != nil {
		return err
	}

	var providerID *string
	if ref.ProviderMessageID != "" {
		providerID = &ref.ProviderMessageID
	}
	if _, err := s.repo.CreateMessage(ctx, repository.CreateMessageParams{
		LeadID:            lead.ID,
		Direction:         repository.DirectionAgent,
		Body:              body,
		DeliveryStatus:    repository.DeliverySent,
		ProviderMessageID: providerID,
	}); err != nil {
		return err
	}

	s.log.Info("webhook: auto-reply sent", "leadId", lead.ID)
	return nil
}

// SubscribeAutoReplies wires the service to the worker's due events.
func (s *Service) SubscribeAutoReplies(bus events.Bus) {
	bus.Subscribe(events.AutoReplyDue{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		due, ok := e.(events.AutoReplyDue)
		if !ok {
			return nil
		}
		return s.HandleAutoReplyDue(ctx, due.LeadID)
	}))
}
