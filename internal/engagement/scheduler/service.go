// Package scheduler owns the creation and cancellation of scheduled
// contacts: follow-up messages, follow-up calls, the immediate new-lead
// call, and the post-funnel fallback text.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"nurture_backend/internal/engagement/policy"
	"nurture_backend/internal/leads/domain"
	"nurture_backend/internal/leads/repository"
	"nurture_backend/platform/logger"
)

// Repository defines the data access interface needed by the scheduler.
// This is a consumer-driven interface - only what scheduling needs.
type Repository interface {
	repository.ContactStore
	repository.PolicyReader
}

// Service creates and cancels scheduled contacts for leads.
type Service struct {
	repo Repository
	log  *logger.Logger
	now  func() time.Time
}

// New creates a new contact scheduler service.
func New(repo Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

// WithClock overrides the service clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// eligible applies the shared no-op gates: AI disabled, missing phone
// number, or a terminal status. Ineligible leads are logged, never errored.
func (s *Service) eligible(lead repository.Lead, op string) bool {
	switch {
	case !lead.AIEnabled:
		s.log.Info("scheduler: skipping lead with AI disabled", "op", op, "leadId", lead.ID)
		return false
	case lead.PhoneNumber == "":
		s.log.Info("scheduler: skipping lead without phone number", "op", op, "leadId", lead.ID)
		return false
	case domain.IsTerminal(lead.Status):
		s.log.Info("scheduler: skipping converted lead", "op", op, "leadId", lead.ID)
		return false
	}
	return true
}

// ScheduleNextFollowUp schedules the next follow-up message for a lead,
// unless one is already pending. Safe to call repeatedly: the query-then-skip
// plus the storage unique constraint make duplicate inserts a no-op.
func (s *Service) ScheduleNextFollowUp(ctx context.Context, lead repository.Lead) error {
	if !s.eligible(lead, "follow_up_message") {
		return nil
	}

	now := s.now()
	pending, err := s.repo.HasPendingContact(ctx, lead.ID, domain.ChannelMessage, now)
	if err != nil {
		return err
	}
	if pending {
		return nil
	}

	accountPolicy, err := s.repo.GetPolicy(ctx, lead.AccountID)
	if err != nil {
		return err
	}

	dueAt, known := policy.NextContactAt(now, lead.Status, accountPolicy)
	if !known {
		s.log.Warn("scheduler: unknown lead status, using conversation interval",
			"leadId", lead.ID, "status", lead.Status)
	}

	_, err = s.repo.CreatePendingContact(ctx, repository.CreateContactParams{
		LeadID:      lead.ID,
		Channel:     domain.ChannelMessage,
		ScheduledAt: dueAt,
	})
	if errors.Is(err, repository.ErrDuplicatePending) {
		// Lost a race with a concurrent evaluation; the other insert won.
		return nil
	}
	if err != nil {
		return err
	}

	s.log.Info("scheduler: follow-up message scheduled", "leadId", lead.ID, "dueAt", dueAt)
	return nil
}

// ScheduleFollowUpCalls schedules the next follow-up or reactivation call.
func (s *Service) ScheduleFollowUpCalls(ctx context.Context, lead repository.Lead) error {
	if !s.eligible(lead, "follow_up_call") {
		return nil
	}
	if !lead.VoiceCallingEnabled {
		s.log.Info("scheduler: skipping lead with voice calling disabled", "leadId", lead.ID)
		return nil
	}

	now := s.now()
	pending, err := s.repo.HasPendingContact(ctx, lead.ID, domain.ChannelCall, now)
	if err != nil {
		return err
	}
	if pending {
		return nil
	}

	accountPolicy, err := s.repo.GetPolicy(ctx, lead.AccountID)
	if err != nil {
		return err
	}

	dueAt, known := policy.NextContactAt(now, lead.Status, accountPolicy)
	if !known {
		s.log.Warn("scheduler: unknown lead status, using conversation interval",
			"leadId", lead.ID, "status", lead.Status)
	}

	callType := domain.CallTypeFollowUp
	if lead.Status == domain.StatusInactive {
		callType = domain.CallTypeReactivation
	}

	_, err = s.repo.CreatePendingContact(ctx, repository.CreateContactParams{
		LeadID:        lead.ID,
		Channel:       domain.ChannelCall,
		ScheduledAt:   dueAt,
		AttemptNumber: 1,
		CallType:      &callType,
	})
	if errors.Is(err, repository.ErrDuplicatePending) {
		return nil
	}
	if err != nil {
		return err
	}

	s.log.Info("scheduler: follow-up call scheduled", "leadId", lead.ID, "dueAt", dueAt, "callType", callType)
	return nil
}

// ScheduleNewLeadCall schedules Call #1 of the new-lead funnel, due
// immediately. Call #2 is never pre-scheduled; the call coordinator creates
// it reactively from Call #1's completion webhook.
func (s *Service) ScheduleNewLeadCall(ctx context.Context, lead repository.Lead) error {
	if !s.eligible(lead, "new_lead_call") {
		return nil
	}
	if !lead.VoiceCallingEnabled {
		s.log.Info("scheduler: skipping lead with voice calling disabled", "leadId", lead.ID)
		return nil
	}

	callType := domain.CallTypeNewLead
	_, err := s.repo.CreatePendingContact(ctx, repository.CreateContactParams{
		LeadID:        lead.ID,
		Channel:       domain.ChannelCall,
		ScheduledAt:   s.now(),
		AttemptNumber: 1,
		CallType:      &callType,
	})
	if errors.Is(err, repository.ErrDuplicatePending) {
		return nil
	}
	return err
}

// ScheduleFallbackText schedules the immediately-due SMS sent after the
// new-lead call funnel resolves without a live answer. The fallback type tag
// selects the message variant at content-generation time.
func (s *Service) ScheduleFallbackText(ctx context.Context, lead repository.Lead, fallbackType string) error {
	if !s.eligible(lead, "fallback_text") {
		return nil
	}

	_, err := s.repo.CreatePendingContact(ctx, repository.CreateContactParams{
		LeadID:           lead.ID,
		Channel:          domain.ChannelMessage,
		ScheduledAt:      s.now(),
		CallFallbackType: &fallbackType,
	})
	if errors.Is(err, repository.ErrDuplicatePending) {
		return nil
	}
	if err != nil {
		return err
	}

	s.log.Info("scheduler: fallback text scheduled", "leadId", lead.ID, "fallbackType", fallbackType)
	return nil
}

// CancelPendingMessages deletes still-scheduled outbound messages for a lead
// that just responded. Best effort: rows a concurrent tick already claimed
// as queued are not cancellable.
func (s *Service) CancelPendingMessages(ctx context.Context, leadID uuid.UUID) error {
	cancelled, err := s.repo.CancelPendingMessages(ctx, leadID)
	if err != nil {
		return err
	}
	if cancelled > 0 {
		s.log.Info("scheduler: pending messages cancelled", "leadId", leadID, "count", cancelled)
	}
	return nil
}
