package repository

import (
	"context"
	"errors"
	"time"

	"nurture_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("lead not found")
	// ErrDuplicatePending is returned when an insert would violate the
	// at-most-one pending contact per (lead, channel) constraint.
	ErrDuplicatePending = errors.New("pending scheduled contact already exists")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID                  uuid.UUID
	AccountID           uuid.UUID
	FirstName           string
	LastName            string
	PhoneNumber         string
	Status              domain.Status
	AIEnabled           bool
	VoiceCallingEnabled bool
	EngagementScore     float64
	LastCallAttempt     *time.Time
	ArchivedAt          *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type CreateLeadParams struct {
	AccountID           uuid.UUID
	FirstName           string
	LastName            string
	PhoneNumber         string
	AIEnabled           bool
	VoiceCallingEnabled bool
}

const leadColumns = `id, account_id, first_name, last_name, phone_number, status,
		ai_enabled, voice_calling_enabled, engagement_score, last_call_attempt,
		archived_at, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.AccountID, &lead.FirstName, &lead.LastName, &lead.PhoneNumber,
		&lead.Status, &lead.AIEnabled, &lead.VoiceCallingEnabled, &lead.EngagementScore,
		&lead.LastCallAttempt, &lead.ArchivedAt, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, err
	}
	return lead, nil
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (account_id, first_name, last_name, phone_number, ai_enabled, voice_calling_enabled)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+leadColumns,
		params.AccountID, params.FirstName, params.LastName, params.PhoneNumber,
		params.AIEnabled, params.VoiceCallingEnabled,
	)
	return scanLead(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads WHERE id = $1
	`, id)
	return scanLead(row)
}

func (r *Repository) ListActiveByAccount(ctx context.Context, accountID uuid.UUID) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE account_id = $1 AND archived_at IS NULL
		ORDER BY created_at DESC
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns,
		id, status,
	)
	return scanLead(row)
}

func (r *Repository) SetLastCallAttempt(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET last_call_attempt = $2, updated_at = now()
		WHERE id = $1
	`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Archive soft-archives a lead. Archival never deletes history.
func (r *Repository) Archive(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET archived_at = now(), updated_at = now()
		WHERE id = $1 AND archived_at IS NULL
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) CountActiveByAccount(ctx context.Context, accountID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM leads
		WHERE account_id = $1 AND archived_at IS NULL
	`, accountID).Scan(&count)
	return count, err
}

// ListArchivalCandidates returns active leads ordered lowest priority first:
// ascending engagement score, then least recently updated.
func (r *Repository) ListArchivalCandidates(ctx context.Context, accountID uuid.UUID, limit int) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE account_id = $1 AND archived_at IS NULL
		ORDER BY engagement_score ASC, updated_at ASC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0, limit)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}
