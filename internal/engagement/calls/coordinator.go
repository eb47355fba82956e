// Package calls implements the new-lead call funnel: up to two call
// attempts, then a text fallback when neither produced a live conversation.
package calls

import (
	"context"
	"time"

	"github.com/google/uuid"

	"nurture_backend/internal/content"
	"nurture_backend/internal/engagement/sessions"
	"nurture_backend/internal/events"
	"nurture_backend/internal/gateway"
	"nurture_backend/internal/leads/domain"
	"nurture_backend/internal/leads/repository"
	"nurture_backend/platform/logger"
)

// Repository is the data access slice the coordinator needs.
type Repository interface {
	repository.LeadReader
	repository.LeadWriter
	repository.CommunicationWriter
}

// FallbackScheduler schedules the post-funnel text.
type FallbackScheduler interface {
	ScheduleFallbackText(ctx context.Context, lead repository.Lead, fallbackType string) error
}

// Evaluator re-derives a lead's status after its history changed.
type Evaluator interface {
	Evaluate(ctx context.Context, leadID uuid.UUID) error
}

// Coordinator reacts to call completion reports. Call #2 is never
// pre-scheduled; it is placed here, directly from Call #1's outcome, so the
// funnel resolves within one dispatch cycle instead of waiting for the next
// tick.
type Coordinator struct {
	registry *sessions.Registry
	repo     Repository
	placer   gateway.CallPlacer
	fallback FallbackScheduler
	eval     Evaluator
	content  content.Generator
	bus      events.Bus
	log      *logger.Logger
	now      func() time.Time
}

// New creates a call attempt coordinator.
func New(registry *sessions.Registry, repo Repository, placer gateway.CallPlacer, fallback FallbackScheduler, eval Evaluator, gen content.Generator, bus events.Bus, log *logger.Logger) *Coordinator {
	return &Coordinator{
		registry: registry,
		repo:     repo,
		placer:   placer,
		fallback: fallback,
		eval:     eval,
		content:  gen,
		bus:      bus,
		log:      log,
		now:      time.Now,
	}
}

// WithClock overrides the coordinator clock. Test hook.
func (c *Coordinator) WithClock(now func() time.Time) *Coordinator {
	c.now = now
	return c
}

// OnCallCompleted handles a provider completion report: records the call,
// advances the new-lead funnel, and re-evaluates the lead's status.
func (c *Coordinator) OnCallCompleted(ctx context.Context, completion gateway.CallCompletion) error {
	sess, ok := c.registry.Get(completion.ProviderCallID)
	if !ok {
		// Session was swept or the process restarted mid-call. The outcome
		// cannot be attributed to a lead, so it is logged and dropped.
		c.log.Warn("calls: completion for unknown session", "providerCallId", completion.ProviderCallID)
		return nil
	}
	defer c.registry.Close(completion.ProviderCallID)

	providerID := completion.ProviderCallID
	call, err := c.repo.CreateCall(ctx, repository.CreateCallParams{
		LeadID:          sess.LeadID,
		Direction:       repository.DirectionAgent,
		Status:          completion.Status,
		IsVoicemail:     completion.IsVoicemail,
		DurationSeconds: completion.DurationSeconds,
		AttemptNumber:   sess.AttemptNumber,
		CallType:        sess.CallType,
		ProviderCallID:  &providerID,
	})
	if err != nil {
		return err
	}

	c.bus.Publish(ctx, events.CallCompleted{
		BaseEvent:       events.NewBaseEvent(),
		LeadID:          sess.LeadID,
		CallID:          call.ID,
		ProviderCallID:  completion.ProviderCallID,
		Status:          completion.Status,
		IsVoicemail:     completion.IsVoicemail,
		DurationSeconds: completion.DurationSeconds,
		AttemptNumber:   sess.AttemptNumber,
		CallType:        sess.CallType,
	})

	if sess.CallType == domain.CallTypeNewLead {
		if err := c.advanceFunnel(ctx, sess, completion); err != nil {
			return err
		}
	}

	return c.eval.Evaluate(ctx, sess.LeadID)
}

// advanceFunnel applies the two-call rule. A completed call that did not hit
// voicemail ends the funnel. Voicemail skips the second attempt entirely,
// since calling right back lands in the same mailbox.
func (c *Coordinator) advanceFunnel(ctx context.Context, sess sessions.Session, completion gateway.CallCompletion) error {
	live := completion.Status == "completed" && !completion.IsVoicemail
	if live {
		return nil
	}

	lead, err := c.repo.GetByID(ctx, sess.LeadID)
	if err != nil {
		return err
	}

	if sess.AttemptNumber == 1 && !completion.IsVoicemail {
		return c.placeSecondCall(ctx, lead, sess)
	}

	fallbackType := domain.FallbackMissed
	if completion.IsVoicemail {
		fallbackType = domain.FallbackVoicemail
	}
	return c.fallback.ScheduleFallbackText(ctx, lead, fallbackType)
}

// placeSecondCall dials attempt #2 immediately, bypassing the dispatch queue.
// If the provider rejects the placement the funnel resolves to the missed
// fallback text rather than stalling.
func (c *Coordinator) placeSecondCall(ctx context.Context, lead repository.Lead, sess sessions.Session) error {
	script, err := c.content.CallScript(ctx, content.ScriptParams{
		FirstName: lead.FirstName,
		CallType:  domain.CallTypeNewLead,
	})
	if err != nil {
		c.log.Warn("calls: script generation failed, calling without one", "leadId", lead.ID, "error", err)
	}

	ref, err := c.placer.PlaceCall(ctx, gateway.PlaceCallParams{
		LeadID:        lead.ID.String(),
		PhoneNumber:   lead.PhoneNumber,
		CallType:      domain.CallTypeNewLead,
		AttemptNumber: 2,
		Script:        script,
	})
	if err != nil {
		c.log.Error("calls: second attempt placement failed", "leadId", lead.ID, "error", err)
		return c.fallback.ScheduleFallbackText(ctx, lead, domain.FallbackMissed)
	}

	c.registry.Open(sessions.Session{
		ProviderCallID: ref.ProviderCallID,
		LeadID:         lead.ID,
		ContactID:      sess.ContactID,
		AttemptNumber:  2,
		CallType:       domain.CallTypeNewLead,
	})

	if err := c.repo.SetLastCallAttempt(ctx, lead.ID, c.now()); err != nil {
		c.log.Error("calls: recording attempt time failed", "leadId", lead.ID, "error", err)
	}

	c.log.Info("calls: second attempt placed", "leadId", lead.ID, "providerCallId", ref.ProviderCallID)
	return nil
}
