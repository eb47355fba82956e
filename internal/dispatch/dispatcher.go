// Package dispatch runs the polling loop that turns due scheduled contacts
// into real calls and messages. Calls dispatch before messages on every
// tick, each pass under its own batch cap, so a backlog on one channel
// cannot starve the other.
package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"nurture_backend/internal/content"
	"nurture_backend/internal/engagement/guard"
	"nurture_backend/internal/engagement/sessions"
	"nurture_backend/internal/events"
	"nurture_backend/internal/gateway"
	"nurture_backend/internal/leads/domain"
	"nurture_backend/internal/leads/repository"
	"nurture_backend/platform/config"
	"nurture_backend/platform/logger"
)

// Repository is the data access slice the dispatcher needs.
type Repository interface {
	repository.ContactStore
	repository.LeadReader
	repository.LeadWriter
	repository.CommunicationWriter
}

// Evaluator re-derives a lead's status after a dispatched contact changed
// its history.
type Evaluator interface {
	Evaluate(ctx context.Context, leadID uuid.UUID) error
}

// Dispatcher polls for due contacts and hands them to the gateway.
type Dispatcher struct {
	repo     Repository
	guard    *guard.Guard
	gw       gateway.Gateway
	content  content.Generator
	registry *sessions.Registry
	eval     Evaluator
	bus      events.Bus
	cfg      config.DispatchConfig
	log      *logger.Logger
	now      func() time.Time
}

// New creates a dispatcher.
func New(repo Repository, g *guard.Guard, gw gateway.Gateway, gen content.Generator, registry *sessions.Registry, eval Evaluator, bus events.Bus, cfg config.DispatchConfig, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		repo:     repo,
		guard:    g,
		gw:       gw,
		content:  gen,
		registry: registry,
		eval:     eval,
		bus:      bus,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// WithClock overrides the dispatcher clock. Test hook.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Run polls until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	interval := d.cfg.GetDispatchTickInterval()
	d.log.Info("dispatch: loop started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info("dispatch: loop stopped")
			return
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Tick runs one full dispatch cycle: due calls first, then due messages.
func (d *Dispatcher) Tick(ctx context.Context) {
	d.dispatchCalls(ctx)
	d.dispatchMessages(ctx)
	d.registry.Sweep()
}

func (d *Dispatcher) dispatchCalls(ctx context.Context) {
	due, err := d.repo.ListDueContacts(ctx, domain.ChannelCall, d.now(), d.cfg.GetCallBatchLimit())
	if err != nil {
		d.log.DatabaseError("list due calls", err)
		return
	}

	for _, contact := range due {
		d.withItemTimeout(ctx, func(itemCtx context.Context) {
			if err := d.processCall(itemCtx, contact); err != nil {
				d.log.DispatchError(contact.ID.String(), contact.LeadID.String(), "call", err)
			}
		})
	}
}

func (d *Dispatcher) dispatchMessages(ctx context.Context) {
	due, err := d.repo.ListDueContacts(ctx, domain.ChannelMessage, d.now(), d.cfg.GetMessageBatchLimit())
	if err != nil {
		d.log.DatabaseError("list due messages", err)
		return
	}

	for _, contact := range due {
		d.withItemTimeout(ctx, func(itemCtx context.Context) {
			if err := d.processMessage(itemCtx, contact); err != nil {
				d.log.DispatchError(contact.ID.String(), contact.LeadID.String(), "message", err)
			}
		})
	}
}

// withItemTimeout bounds one contact's processing so a hung provider call
// cannot stall the whole cycle.
func (d *Dispatcher) withItemTimeout(ctx context.Context, fn func(context.Context)) {
	itemCtx, cancel := context.WithTimeout(ctx, d.cfg.GetDispatchItemTimeout())
	defer cancel()
	fn(itemCtx)
}

// loadDispatchableLead fetches the lead and applies the shared eligibility
// gates. A false return means the contact was retired and processing stops.
func (d *Dispatcher) loadDispatchableLead(ctx context.Context, contact repository.ScheduledContact) (repository.Lead, bool, error) {
	lead, err := d.repo.GetByID(ctx, contact.LeadID)
	if err != nil {
		return repository.Lead{}, false, err
	}
	if lead.ArchivedAt != nil || !lead.AIEnabled || domain.IsTerminal(lead.Status) {
		if err := d.repo.SetContactStatus(ctx, contact.ID, repository.DeliveryCancelled); err != nil {
			return repository.Lead{}, false, err
		}
		d.log.DispatchOutcome(contact.ID.String(), lead.ID.String(), string(contact.Channel), "cancelled_ineligible")
		return repository.Lead{}, false, nil
	}
	return lead, true, nil
}

func (d *Dispatcher) processCall(ctx context.Context, contact repository.ScheduledContact) error {
	lead, ok, err := d.loadDispatchableLead(ctx, contact)
	if err != nil || !ok {
		return err
	}
	if !lead.VoiceCallingEnabled {
		if err := d.repo.SetContactStatus(ctx, contact.ID, repository.DeliveryCancelled); err != nil {
			return err
		}
		d.log.DispatchOutcome(contact.ID.String(), lead.ID.String(), "call", "cancelled_voice_disabled")
		return nil
	}

	callType := domain.CallTypeFollowUp
	if contact.CallType != nil {
		callType = *contact.CallType
	}

	verdict, err := d.guard.AllowCall(ctx, lead, callType)
	if err != nil {
		return err
	}
	d.log.GuardDecision(lead.ID.String(), "call", decisionName(verdict.Decision), verdict.Reason)
	switch verdict.Decision {
	case guard.DecisionDefer:
		return nil
	case guard.DecisionSuppress:
		return d.repo.SetContactStatus(ctx, contact.ID, repository.DeliveryCancelled)
	}

	// Claiming flips the row out of the pending set; a concurrent worker
	// that loses this update skips the item.
	if err := d.repo.ClaimContact(ctx, contact.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}

	script, err := d.content.CallScript(ctx, content.ScriptParams{
		FirstName: lead.FirstName,
		CallType:  callType,
	})
	if err != nil {
		d.log.Warn("dispatch: script generation failed, calling without one", "leadId", lead.ID, "error", err)
	}

	ref, err := d.gw.PlaceCall(ctx, gateway.PlaceCallParams{
		LeadID:        lead.ID.String(),
		PhoneNumber:   lead.PhoneNumber,
		CallType:      callType,
		AttemptNumber: contact.AttemptNumber,
		Script:        script,
	})
	if err != nil {
		if markErr := d.repo.SetContactStatus(ctx, contact.ID, repository.DeliveryFailed); markErr != nil {
			d.log.DatabaseError("mark call contact failed", markErr)
		}
		return err
	}

	d.registry.Open(sessions.Session{
		ProviderCallID: ref.ProviderCallID,
		LeadID:         lead.ID,
		ContactID:      contact.ID,
		AttemptNumber:  contact.AttemptNumber,
		CallType:       callType,
	})

	if err := d.repo.SetLastCallAttempt(ctx, lead.ID, d.now()); err != nil {
		d.log.DatabaseError("record call attempt", err)
	}
	if err := d.repo.SetContactStatus(ctx, contact.ID, repository.DeliverySent); err != nil {
		return err
	}

	d.bus.Publish(ctx, events.ContactDispatched{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		ContactID: contact.ID,
		Channel:   string(domain.ChannelCall),
	})
	d.log.DispatchOutcome(contact.ID.String(), lead.ID.String(), "call", "placed")
	return nil
}

func (d *Dispatcher) processMessage(ctx context.Context, contact repository.ScheduledContact) error {
	lead, ok, err := d.loadDispatchableLead(ctx, contact)
	if err != nil || !ok {
		return err
	}

	if err := d.repo.ClaimContact(ctx, contact.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}

	fallbackType := ""
	if contact.CallFallbackType != nil {
		fallbackType = *contact.CallFallbackType
	}

	body, err := d.content.FollowUpMessage(ctx, content.MessageParams{
		FirstName:    lead.FirstName,
		Status:       lead.Status,
		FallbackType: fallbackType,
	})
	if err != nil {
		if markErr := d.repo.SetContactStatus(ctx, contact.ID, repository.DeliveryFailed); markErr != nil {
			d.log.DatabaseError("mark message contact failed", markErr)
		}
		return err
	}

	ref, err := d.gw.SendMessage(ctx, gateway.SendMessageParams{
		LeadID:      lead.ID.String(),
		PhoneNumber: lead.PhoneNumber,
		Body:        body,
	})
	if err != nil {
		if markErr := d.repo.SetContactStatus(ctx, contact.ID, repository.DeliveryFailed); markErr != nil {
			d.log.DatabaseError("mark message contact failed", markErr)
		}
		return err
	}

	var providerID *string
	if ref.ProviderMessageID != "" {
		providerID = &ref.ProviderMessageID
	}
	if _, err := d.repo.CreateMessage(ctx, repository.CreateMessageParams{
		LeadID:            lead.ID,
		Direction:         repository.DirectionAgent,
		Body:              body,
		DeliveryStatus:    repository.DeliverySent,
		CallFallbackType:  contact.CallFallbackType,
		ProviderMessageID: providerID,
	}); err != nil {
		return err
	}
	if err := d.repo.SetContactStatus(ctx, contact.ID, repository.DeliverySent); err != nil {
		return err
	}

	d.bus.Publish(ctx, events.ContactDispatched{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		ContactID: contact.ID,
		Channel:   string(domain.ChannelMessage),
	})
	d.log.DispatchOutcome(contact.ID.String(), lead.ID.String(), "message", "sent")

	// The sent message extends the unanswered run; re-deriving here is what
	// eventually writes off leads that never respond.
	return d.eval.Evaluate(ctx, lead.ID)
}

func decisionName(d guard.Decision) string {
	switch d {
	case guard.DecisionAllow:
		return "allow"
	case guard.DecisionDefer:
		return "defer"
	case guard.DecisionSuppress:
		return "suppress"
	}
	return "unknown"
}
