package repository

import (
	"context"
	"errors"
	"time"

	"nurture_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Scheduled contact delivery statuses.
const (
	DeliveryScheduled = "scheduled"
	DeliveryQueued    = "queued"
	DeliverySent      = "sent"
	DeliveryFailed    = "failed"
	DeliveryCancelled = "cancelled"
)

const pgUniqueViolation = "23505"

type ScheduledContact struct {
	ID               uuid.UUID
	LeadID           uuid.UUID
	Channel          domain.Channel
	ScheduledAt      time.Time
	DeliveryStatus   string
	AttemptNumber    int
	CallType         *string
	CallFallbackType *string
	CreatedAt        time.Time
}

type CreateContactParams struct {
	LeadID           uuid.UUID
	Channel          domain.Channel
	ScheduledAt      time.Time
	AttemptNumber    int
	CallType         *string
	CallFallbackType *string
}

const contactColumns = `id, lead_id, channel, scheduled_at, delivery_status,
		attempt_number, call_type, call_fallback_type, created_at`

func scanContact(row pgx.Row) (ScheduledContact, error) {
	var c ScheduledContact
	err := row.Scan(
		&c.ID, &c.LeadID, &c.Channel, &c.ScheduledAt, &c.DeliveryStatus,
		&c.AttemptNumber, &c.CallType, &c.CallFallbackType, &c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return ScheduledContact{}, ErrNotFound
	}
	if err != nil {
		return ScheduledContact{}, err
	}
	return c, nil
}

// CreatePendingContact inserts a new scheduled contact. The partial unique
// index on (lead_id, channel) WHERE delivery_status = 'scheduled' makes the
// check-then-insert race safe: the loser gets ErrDuplicatePending.
func (r *Repository) CreatePendingContact(ctx context.Context, params CreateContactParams) (ScheduledContact, error) {
	attempt := params.AttemptNumber
	if attempt < 1 {
		attempt = 1
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO scheduled_contacts (lead_id, channel, scheduled_at, delivery_status, attempt_number, call_type, call_fallback_type)
		VALUES ($1, $2, $3, 'scheduled', $4, $5, $6)
		RETURNING `+contactColumns,
		params.LeadID, params.Channel, params.ScheduledAt, attempt, params.CallType, params.CallFallbackType,
	)

	contact, err := scanContact(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ScheduledContact{}, ErrDuplicatePending
		}
		return ScheduledContact{}, err
	}
	return contact, nil
}

// HasPendingContact reports whether a scheduled, not-yet-due contact exists
// for the lead on the given channel.
func (r *Repository) HasPendingContact(ctx context.Context, leadID uuid.UUID, channel domain.Channel, now time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM scheduled_contacts
			WHERE lead_id = $1 AND channel = $2
				AND delivery_status = 'scheduled' AND scheduled_at > $3
		)
	`, leadID, channel, now).Scan(&exists)
	return exists, err
}

// ListDueContacts returns scheduled contacts due at or before now on the
// given channel, oldest first, capped at limit.
func (r *Repository) ListDueContacts(ctx context.Context, channel domain.Channel, now time.Time, limit int) ([]ScheduledContact, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+contactColumns+`
		FROM scheduled_contacts
		WHERE channel = $1 AND delivery_status = 'scheduled' AND scheduled_at <= $2
		ORDER BY scheduled_at ASC
		LIMIT $3
	`, channel, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := make([]ScheduledContact, 0, limit)
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, contact)
	}
	return contacts, rows.Err()
}

// ClaimContact moves a scheduled contact to queued. Returns ErrNotFound when
// another tick already claimed or cancelled it.
func (r *Repository) ClaimContact(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE scheduled_contacts SET delivery_status = 'queued'
		WHERE id = $1 AND delivery_status = 'scheduled'
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetContactStatus moves a contact to a final or deferred delivery status.
func (r *Repository) SetContactStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE scheduled_contacts SET delivery_status = $2
		WHERE id = $1
	`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CancelPendingMessages deletes still-scheduled future messages for a lead.
// Best effort: rows already claimed as queued are past cancellation.
func (r *Repository) CancelPendingMessages(ctx context.Context, leadID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM scheduled_contacts
		WHERE lead_id = $1 AND channel = 'message' AND delivery_status = 'scheduled'
	`, leadID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
