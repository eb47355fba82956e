package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountPolicy is the per-account communication configuration. Columns are
// strongly typed; there is no dynamic field lookup anywhere.
type AccountPolicy struct {
	AccountID                uuid.UUID
	FollowUpNewDays          int
	FollowUpConversationDays int
	FollowUpQualifiedDays    int
	FollowUpInactiveDays     int
	CallingStartHour         int
	CallingEndHour           int
	CallingDays              []int
	Timezone                 string
	QuarterlyCallLimit       int
	CallRetryAttempts        int
	MinCallSpacingHours      int
	UpdatedAt                time.Time
}

// DefaultPolicy returns the policy applied to accounts without a stored row.
func DefaultPolicy(accountID uuid.UUID) AccountPolicy {
	return AccountPolicy{
		AccountID:                accountID,
		FollowUpNewDays:          2,
		FollowUpConversationDays: 3,
		FollowUpQualifiedDays:    5,
		FollowUpInactiveDays:     30,
		CallingStartHour:         11,
		CallingEndHour:           19,
		CallingDays:              []int{0, 1, 2, 3, 4, 5, 6},
		Timezone:                 "UTC",
		QuarterlyCallLimit:       1,
		CallRetryAttempts:        2,
		MinCallSpacingHours:      2,
	}
}

// GetPolicy returns the account's communication policy, or the defaults when
// none is configured.
func (r *Repository) GetPolicy(ctx context.Context, accountID uuid.UUID) (AccountPolicy, error) {
	var p AccountPolicy
	err := r.pool.QueryRow(ctx, `
		SELECT account_id, follow_up_new_days, follow_up_conversation_days,
			follow_up_qualified_days, follow_up_inactive_days,
			calling_start_hour, calling_end_hour, calling_days, timezone,
			quarterly_call_limit, call_retry_attempts, min_call_spacing_hours, updated_at
		FROM account_policies WHERE account_id = $1
	`, accountID).Scan(
		&p.AccountID, &p.FollowUpNewDays, &p.FollowUpConversationDays,
		&p.FollowUpQualifiedDays, &p.FollowUpInactiveDays,
		&p.CallingStartHour, &p.CallingEndHour, &p.CallingDays, &p.Timezone,
		&p.QuarterlyCallLimit, &p.CallRetryAttempts, &p.MinCallSpacingHours, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return DefaultPolicy(accountID), nil
	}
	if err != nil {
		return AccountPolicy{}, err
	}
	return p, nil
}
