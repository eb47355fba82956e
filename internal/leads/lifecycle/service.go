// Package lifecycle re-derives a lead's status from its communication
// history whenever that history changes, persists transitions, and keeps the
// follow-up schedule in step with the new status.
package lifecycle

import (
	"context"

	"github.com/google/uuid"

	"nurture_backend/internal/events"
	"nurture_backend/internal/leads/domain"
	"nurture_backend/internal/leads/repository"
	"nurture_backend/platform/logger"
)

// Repository is the data access slice the evaluator needs.
type Repository interface {
	repository.LeadReader
	repository.LeadWriter
	repository.TimelineReader
}

// FollowUpScheduler keeps the contact schedule aligned with the lead's status.
type FollowUpScheduler interface {
	ScheduleNextFollowUp(ctx context.Context, lead repository.Lead) error
	ScheduleFollowUpCalls(ctx context.Context, lead repository.Lead) error
}

// Service evaluates lead statuses.
type Service struct {
	repo      Repository
	followUps FollowUpScheduler
	bus       events.Bus
	log       *logger.Logger
}

// New creates a lifecycle evaluator.
func New(repo Repository, followUps FollowUpScheduler, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, followUps: followUps, bus: bus, log: log}
}

// Evaluate re-derives the lead's status from its full timeline, persists the
// transition if one occurred, and schedules the next follow-up. Idempotent:
// evaluating an unchanged timeline twice is a no-op.
func (s *Service) Evaluate(ctx context.Context, leadID uuid.UUID) error {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return err
	}
	if lead.ArchivedAt != nil {
		return nil
	}
	if domain.IsTerminal(lead.Status) {
		s.log.Info("lifecycle: converted lead left untouched", "leadId", leadID)
		return nil
	}

	messages, calls, err := s.repo.GetTimeline(ctx, leadID)
	if err != nil {
		return err
	}

	timeline := domain.MergeTimeline(messages, calls)
	newStatus, changed := domain.DeriveStatus(lead.Status, timeline)
	if changed {
		oldStatus := lead.Status
		lead, err = s.repo.UpdateStatus(ctx, leadID, newStatus)
		if err != nil {
			return err
		}
		s.log.Info("lifecycle: status changed",
			"leadId", leadID, "from", oldStatus, "to", newStatus)
		s.bus.Publish(ctx, events.LeadStatusChanged{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    leadID,
			AccountID: lead.AccountID,
			OldStatus: string(oldStatus),
			NewStatus: string(newStatus),
		})
	}

	if err := s.followUps.ScheduleNextFollowUp(ctx, lead); err != nil {
		return err
	}
	return s.followUps.ScheduleFollowUpCalls(ctx, lead)
}
