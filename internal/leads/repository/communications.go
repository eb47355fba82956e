package repository

import (
	"context"
	"errors"
	"time"

	"nurture_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Communication directions.
const (
	DirectionAgent = "agent"
	DirectionLead  = "lead"
)

type Message struct {
	ID                uuid.UUID
	LeadID            uuid.UUID
	Direction         string
	Body              string
	DeliveryStatus    string
	CallFallbackType  *string
	ProviderMessageID *string
	CreatedAt         time.Time
}

type Call struct {
	ID              uuid.UUID
	LeadID          uuid.UUID
	Direction       string
	Status          string
	IsVoicemail     bool
	DurationSeconds int
	AttemptNumber   int
	CallType        string
	ProviderCallID  *string
	CreatedAt       time.Time
}

type CreateMessageParams struct {
	LeadID            uuid.UUID
	Direction         string
	Body              string
	DeliveryStatus    string
	CallFallbackType  *string
	ProviderMessageID *string
}

type CreateCallParams struct {
	LeadID          uuid.UUID
	Direction       string
	Status          string
	IsVoicemail     bool
	DurationSeconds int
	AttemptNumber   int
	CallType        string
	ProviderCallID  *string
}

func (r *Repository) CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error) {
	var m Message
	err := r.pool.QueryRow(ctx, `
		INSERT INTO lead_messages (lead_id, direction, body, delivery_status, call_fallback_type, provider_message_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, lead_id, direction, body, delivery_status, call_fallback_type, provider_message_id, created_at
	`, params.LeadID, params.Direction, params.Body, params.DeliveryStatus, params.CallFallbackType, params.ProviderMessageID).Scan(
		&m.ID, &m.LeadID, &m.Direction, &m.Body, &m.DeliveryStatus, &m.CallFallbackType, &m.ProviderMessageID, &m.CreatedAt,
	)
	return m, err
}

func (r *Repository) CreateCall(ctx context.Context, params CreateCallParams) (Call, error) {
	var c Call
	err := r.pool.QueryRow(ctx, `
		INSERT INTO lead_calls (lead_id, direction, status, is_voicemail, duration_seconds, attempt_number, call_type, provider_call_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, lead_id, direction, status, is_voicemail, duration_seconds, attempt_number, call_type, provider_call_id, created_at
	`, params.LeadID, params.Direction, params.Status, params.IsVoicemail, params.DurationSeconds,
		params.AttemptNumber, params.CallType, params.ProviderCallID).Scan(
		&c.ID, &c.LeadID, &c.Direction, &c.Status, &c.IsVoicemail, &c.DurationSeconds,
		&c.AttemptNumber, &c.CallType, &c.ProviderCallID, &c.CreatedAt,
	)
	return c, err
}

// UpdateMessageDeliveryStatus records a provider delivery callback and
// returns the owning lead so the caller can re-evaluate it.
func (r *Repository) UpdateMessageDeliveryStatus(ctx context.Context, providerMessageID, status string) (uuid.UUID, error) {
	var leadID uuid.UUID
	err := r.pool.QueryRow(ctx, `
		UPDATE lead_messages SET delivery_status = $2
		WHERE provider_message_id = $1
		RETURNING lead_id
	`, providerMessageID, status).Scan(&leadID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrNotFound
	}
	return leadID, err
}

// LatestInboundMessageID returns the newest lead-originated message ID, used
// by the auto-reply debounce to let later fragments supersede earlier ones.
func (r *Repository) LatestInboundMessageID(ctx context.Context, leadID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT id FROM lead_messages
		WHERE lead_id = $1 AND direction = 'lead'
		ORDER BY created_at DESC
		LIMIT 1
	`, leadID).Scan(&id)
	return id, err
}

// GetTimeline loads the lead's full communication history as domain records
// for the state-machine walk.
func (r *Repository) GetTimeline(ctx context.Context, leadID uuid.UUID) ([]domain.MessageRecord, []domain.CallRecord, error) {
	msgRows, err := r.pool.Query(ctx, `
		SELECT direction, delivery_status, created_at
		FROM lead_messages WHERE lead_id = $1
		ORDER BY created_at ASC
	`, leadID)
	if err != nil {
		return nil, nil, err
	}
	defer msgRows.Close()

	messages := make([]domain.MessageRecord, 0)
	for msgRows.Next() {
		var direction, status string
		var createdAt time.Time
		if err := msgRows.Scan(&direction, &status, &createdAt); err != nil {
			return nil, nil, err
		}
		messages = append(messages, domain.MessageRecord{
			Timestamp:      createdAt,
			FromLead:       direction == DirectionLead,
			DeliveryStatus: status,
		})
	}
	if msgRows.Err() != nil {
		return nil, nil, msgRows.Err()
	}

	callRows, err := r.pool.Query(ctx, `
		SELECT direction, status, created_at
		FROM lead_calls WHERE lead_id = $1
		ORDER BY created_at ASC
	`, leadID)
	if err != nil {
		return nil, nil, err
	}
	defer callRows.Close()

	calls := make([]domain.CallRecord, 0)
	for callRows.Next() {
		var direction, status string
		var createdAt time.Time
		if err := callRows.Scan(&direction, &status, &createdAt); err != nil {
			return nil, nil, err
		}
		calls = append(calls, domain.CallRecord{
			Timestamp: createdAt,
			FromLead:  direction == DirectionLead,
			Status:    status,
		})
	}
	return messages, calls, callRows.Err()
}

// CountCallsSince counts agent-originated calls to the lead since the cutoff.
// Used for the quarterly reactivation cap.
func (r *Repository) CountCallsSince(ctx context.Context, leadID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM lead_calls
		WHERE lead_id = $1 AND direction = 'agent' AND created_at >= $2
	`, leadID, since).Scan(&count)
	return count, err
}
