package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type SubscriptionQuota struct {
	AccountID        uuid.UUID
	LeadLimit        int
	GracePeriodUntil *time.Time
	UpdatedAt        time.Time
}

func (r *Repository) GetQuota(ctx context.Context, accountID uuid.UUID) (SubscriptionQuota, error) {
	var q SubscriptionQuota
	err := r.pool.QueryRow(ctx, `
		SELECT account_id, lead_limit, grace_period_until, updated_at
		FROM subscription_quotas WHERE account_id = $1
	`, accountID).Scan(&q.AccountID, &q.LeadLimit, &q.GracePeriodUntil, &q.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return SubscriptionQuota{}, ErrNotFound
	}
	if err != nil {
		return SubscriptionQuota{}, err
	}
	return q, nil
}

// UpsertQuota stores the account's lead limit and grace period marker.
func (r *Repository) UpsertQuota(ctx context.Context, accountID uuid.UUID, leadLimit int, graceUntil *time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO subscription_quotas (account_id, lead_limit, grace_period_until, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (account_id)
		DO UPDATE SET lead_limit = $2, grace_period_until = $3, updated_at = now()
	`, accountID, leadLimit, graceUntil)
	return err
}

// ClearGracePeriod removes the grace marker after a completed sweep.
func (r *Repository) ClearGracePeriod(ctx context.Context, accountID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE subscription_quotas SET grace_period_until = NULL, updated_at = now()
		WHERE account_id = $1
	`, accountID)
	return err
}

// ListExpiredGraceQuotas returns quotas whose grace period has lapsed.
func (r *Repository) ListExpiredGraceQuotas(ctx context.Context, now time.Time) ([]SubscriptionQuota, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT account_id, lead_limit, grace_period_until, updated_at
		FROM subscription_quotas
		WHERE grace_period_until IS NOT NULL AND grace_period_until <= $1
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	quotas := make([]SubscriptionQuota, 0)
	for rows.Next() {
		var q SubscriptionQuota
		if err := rows.Scan(&q.AccountID, &q.LeadLimit, &q.GracePeriodUntil, &q.UpdatedAt); err != nil {
			return nil, err
		}
		quotas = append(quotas, q)
	}
	return quotas, rows.Err()
}
