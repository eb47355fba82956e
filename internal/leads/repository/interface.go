package repository

import (
	"context"
	"time"

	"nurture_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// Consumer-driven interfaces. Services compose only the slices of the
// repository they actually need, which keeps fakes small in tests.

// LeadReader reads lead records.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
}

// LeadWriter mutates lead records.
type LeadWriter interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) (Lead, error)
	SetLastCallAttempt(ctx context.Context, id uuid.UUID, at time.Time) error
}

// TimelineReader loads communication history for the state-machine walk.
type TimelineReader interface {
	GetTimeline(ctx context.Context, leadID uuid.UUID) ([]domain.MessageRecord, []domain.CallRecord, error)
	CountCallsSince(ctx context.Context, leadID uuid.UUID, since time.Time) (int, error)
	LatestInboundMessageID(ctx context.Context, leadID uuid.UUID) (uuid.UUID, error)
}

// ContactStore manages scheduled contacts.
type ContactStore interface {
	CreatePendingContact(ctx context.Context, params CreateContactParams) (ScheduledContact, error)
	HasPendingContact(ctx context.Context, leadID uuid.UUID, channel domain.Channel, now time.Time) (bool, error)
	ListDueContacts(ctx context.Context, channel domain.Channel, now time.Time, limit int) ([]ScheduledContact, error)
	ClaimContact(ctx context.Context, id uuid.UUID) error
	SetContactStatus(ctx context.Context, id uuid.UUID, status string) error
	CancelPendingMessages(ctx context.Context, leadID uuid.UUID) (int64, error)
}

// CommunicationWriter records messages and calls.
type CommunicationWriter interface {
	CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error)
	CreateCall(ctx context.Context, params CreateCallParams) (Call, error)
	UpdateMessageDeliveryStatus(ctx context.Context, providerMessageID, status string) (uuid.UUID, error)
}

// PolicyReader provides account communication policies.
type PolicyReader interface {
	GetPolicy(ctx context.Context, accountID uuid.UUID) (AccountPolicy, error)
}

// QuotaStore manages subscription quotas and archival candidates.
type QuotaStore interface {
	GetQuota(ctx context.Context, accountID uuid.UUID) (SubscriptionQuota, error)
	UpsertQuota(ctx context.Context, accountID uuid.UUID, leadLimit int, graceUntil *time.Time) error
	ClearGracePeriod(ctx context.Context, accountID uuid.UUID) error
	ListExpiredGraceQuotas(ctx context.Context, now time.Time) ([]SubscriptionQuota, error)
	CountActiveByAccount(ctx context.Context, accountID uuid.UUID) (int, error)
	ListArchivalCandidates(ctx context.Context, accountID uuid.UUID, limit int) ([]Lead, error)
	Archive(ctx context.Context, id uuid.UUID) error
}
