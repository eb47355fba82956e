package guard

import (
	"context"
	"time"

	"github.com/google/uuid"

	"nurture_backend/internal/events"
	"nurture_backend/internal/leads/repository"
	"nurture_backend/platform/logger"
)

// GracePeriod is how long an account keeps its full lead roster after a plan
// downgrade before excess leads are archived.
const GracePeriod = 30 * 24 * time.Hour

// QuotaEnforcer applies subscription lead limits. Downgrades start a grace
// period; the sweep archives the least engaged leads once it lapses.
type QuotaEnforcer struct {
	repo repository.QuotaStore
	bus  events.Bus
	log  *logger.Logger
	now  func() time.Time
}

// NewQuotaEnforcer creates a quota enforcer.
func NewQuotaEnforcer(repo repository.QuotaStore, bus events.Bus, log *logger.Logger) *QuotaEnforcer {
	return &QuotaEnforcer{repo: repo, bus: bus, log: log, now: time.Now}
}

// WithClock overrides the enforcer clock. Test hook.
func (q *QuotaEnforcer) WithClock(now func() time.Time) *QuotaEnforcer {
	q.now = now
	return q
}

// HandleDowngrade records the new limit. Accounts over the new limit get the
// grace period; accounts already within it are resized with no grace marker.
func (q *QuotaEnforcer) HandleDowngrade(ctx context.Context, accountID uuid.UUID, newLimit int) error {
	active, err := q.repo.CountActiveByAccount(ctx, accountID)
	if err != nil {
		return err
	}

	var graceUntil *time.Time
	if active > newLimit {
		until := q.now().Add(GracePeriod)
		graceUntil = &until
		q.log.Info("quota: downgrade grace period started",
			"accountId", accountID, "leadLimit", newLimit, "activeLeads", active, "graceUntil", until)
	}
	return q.repo.UpsertQuota(ctx, accountID, newLimit, graceUntil)
}

// SweepExpiredGrace archives excess leads for every account whose grace
// period has lapsed, lowest engagement score first, then clears the marker.
func (q *QuotaEnforcer) SweepExpiredGrace(ctx context.Context) error {
	quotas, err := q.repo.ListExpiredGraceQuotas(ctx, q.now())
	if err != nil {
		return err
	}

	for _, quota := range quotas {
		if err := q.enforce(ctx, quota); err != nil {
			// One stuck account must not block the rest of the sweep.
			q.log.Error("quota: enforcement failed", "accountId", quota.AccountID, "error", err)
		}
	}
	return nil
}

func (q *QuotaEnforcer) enforce(ctx context.Context, quota repository.SubscriptionQuota) error {
	active, err := q.repo.CountActiveByAccount(ctx, quota.AccountID)
	if err != nil {
		return err
	}

	excess := active - quota.LeadLimit
	if excess > 0 {
		candidates, err := q.repo.ListArchivalCandidates(ctx, quota.AccountID, excess)
		if err != nil {
			return err
		}
		for _, lead := range candidates {
			if err := q.repo.Archive(ctx, lead.ID); err != nil {
				return err
			}
			q.bus.Publish(ctx, events.LeadArchived{
				BaseEvent: events.NewBaseEvent(),
				LeadID:    lead.ID,
				AccountID: quota.AccountID,
				Reason:    "quota_downgrade",
			})
		}
		q.log.Info("quota: excess leads archived",
			"accountId", quota.AccountID, "archived", len(candidates), "leadLimit", quota.LeadLimit)
	}

	return q.repo.ClearGracePeriod(ctx, quota.AccountID)
}
