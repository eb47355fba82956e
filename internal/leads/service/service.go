// Package service handles lead management operations: intake, lookup,
// manual status changes, and plan downgrades.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"nurture_backend/internal/events"
	"nurture_backend/internal/leads/domain"
	"nurture_backend/internal/leads/repository"
	"nurture_backend/internal/leads/transport"
	"nurture_backend/platform/apperr"
	"nurture_backend/platform/logger"
	"nurture_backend/platform/phone"
)

// Repository defines the data access interface needed by the management
// service. This is a consumer-driven interface.
type Repository interface {
	repository.LeadReader
	Create(ctx context.Context, params repository.CreateLeadParams) (repository.Lead, error)
	ListActiveByAccount(ctx context.Context, accountID uuid.UUID) ([]repository.Lead, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) (repository.Lead, error)
	Archive(ctx context.Context, id uuid.UUID) error
	GetQuota(ctx context.Context, accountID uuid.UUID) (repository.SubscriptionQuota, error)
}

// FollowUpPlanner seeds the contact schedule for a lead.
type FollowUpPlanner interface {
	ScheduleNewLeadCall(ctx context.Context, lead repository.Lead) error
	ScheduleNextFollowUp(ctx context.Context, lead repository.Lead) error
}

// QuotaEnforcer applies subscription lead limits after a downgrade.
type QuotaEnforcer interface {
	HandleDowngrade(ctx context.Context, accountID uuid.UUID, newLimit int) error
}

// Service handles lead management operations.
type Service struct {
	repo      Repository
	followUps FollowUpPlanner
	quotas    QuotaEnforcer
	bus       events.Bus
	log       *logger.Logger
}

// New creates a new lead management service.
func New(repo Repository, followUps FollowUpPlanner, quotas QuotaEnforcer, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, followUps: followUps, quotas: quotas, bus: bus, log: log}
}

// Create registers a new lead and seeds its first contact. Voice-enabled
// leads get an immediate call; text-only leads start on the message cadence.
func (s *Service) Create(ctx context.Context, accountID uuid.UUID, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	normalized := phone.NormalizeE164(req.Phone)
	if !phone.IsDialable(normalized) {
		return transport.LeadResponse{}, apperr.Validation("phone number is not dialable")
	}

	params := repository.CreateLeadParams{
		AccountID:           accountID,
		FirstName:           req.FirstName,
		LastName:            req.LastName,
		PhoneNumber:         normalized,
		AIEnabled:           true,
		VoiceCallingEnabled: true,
	}
	if req.AIEnabled != nil {
		params.AIEnabled = *req.AIEnabled
	}
	if req.VoiceCallingEnabled != nil {
		params.VoiceCallingEnabled = *req.VoiceCallingEnabled
	}

	lead, err := s.repo.Create(ctx, params)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		AccountID: lead.AccountID,
		Phone:     lead.PhoneNumber,
	})

	if lead.AIEnabled {
		if lead.VoiceCallingEnabled {
			err = s.followUps.ScheduleNewLeadCall(ctx, lead)
		} else {
			err = s.followUps.ScheduleNextFollowUp(ctx, lead)
		}
		if err != nil {
			s.log.Error("leads: seeding first contact failed", "leadId", lead.ID, "error", err)
		}
	}

	return transport.ToLeadResponse(lead), nil
}

// GetByID retrieves a lead scoped to the caller's account.
func (s *Service) GetByID(ctx context.Context, accountID, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.loadScoped(ctx, accountID, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return transport.ToLeadResponse(lead), nil
}

// List returns the account's active leads, newest first.
func (s *Service) List(ctx context.Context, accountID uuid.UUID) ([]transport.LeadResponse, error) {
	leads, err := s.repo.ListActiveByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return transport.ToLeadResponses(leads), nil
}

// SetStatus applies a manual status override. Converted is a terminal state
// and cannot be left.
func (s *Service) SetStatus(ctx context.Context, accountID, id uuid.UUID, status domain.Status) (transport.LeadResponse, error) {
	if !domain.Valid(status) {
		return transport.LeadResponse{}, apperr.Validation("unknown lead status")
	}

	lead, err := s.loadScoped(ctx, accountID, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	if lead.Status == status {
		return transport.ToLeadResponse(lead), nil
	}
	if domain.IsTerminal(lead.Status) {
		return transport.LeadResponse{}, apperr.Conflict("converted leads cannot change status")
	}

	updated, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	s.bus.Publish(ctx, events.LeadStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    updated.ID,
		AccountID: updated.AccountID,
		OldStatus: string(lead.Status),
		NewStatus: string(updated.Status),
	})

	if status == domain.StatusConverted {
		s.log.Info("leads: lead converted", "leadId", updated.ID)
	}
	return transport.ToLeadResponse(updated), nil
}

// Archive soft-archives a lead, taking it out of every schedule and listing.
// History is kept. Archiving twice is a no-op.
func (s *Service) Archive(ctx context.Context, accountID, id uuid.UUID) error {
	lead, err := s.loadScoped(ctx, accountID, id)
	if err != nil {
		return err
	}
	if lead.ArchivedAt != nil {
		return nil
	}

	if err := s.repo.Archive(ctx, id); err != nil {
		return err
	}
	s.bus.Publish(ctx, events.LeadArchived{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		AccountID: lead.AccountID,
		Reason:    "manual",
	})
	return nil
}

// Downgrade lowers an account's lead limit and lets the quota enforcer
// decide whether a grace period is needed.
func (s *Service) Downgrade(ctx context.Context, req transport.DowngradeRequest) error {
	oldLimit := 0
	if quota, err := s.repo.GetQuota(ctx, req.AccountID); err == nil {
		oldLimit = quota.LeadLimit
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	if err := s.quotas.HandleDowngrade(ctx, req.AccountID, req.LeadLimit); err != nil {
		return err
	}

	s.bus.Publish(ctx, events.SubscriptionDowngraded{
		BaseEvent:   events.NewBaseEvent(),
		AccountID:   req.AccountID,
		OldLimit:    oldLimit,
		NewLimit:    req.LeadLimit,
		EffectiveAt: time.Now(),
	})
	return nil
}

func (s *Service) loadScoped(ctx context.Context, accountID, id uuid.UUID) (repository.Lead, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Lead{}, apperr.NotFound("lead not found")
		}
		return repository.Lead{}, err
	}
	// Cross-account lookups read as missing rather than forbidden.
	if lead.AccountID != accountID {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	return lead, nil
}
