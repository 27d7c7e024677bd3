package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jtmorrow/arguably/internal/domain"
)

const subscriptionColumns = `user_id, tier, basic_credits_remaining, advanced_credits_remaining, saved_argument_count, created_at, updated_at`

func scanSubscription(row interface{ Scan(...interface{}) error }) (*domain.Subscription, error) {
	var s domain.Subscription
	err := row.Scan(&s.UserID, &s.Tier, &s.BasicCreditsRemaining, &s.AdvancedCreditsRemaining, &s.SavedArgumentCount, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSubscription returns the entitlement row for a user, creating the
// implicit free-tier default on first lookup. The upsert makes concurrent
// first lookups converge on one row.
func (q *Queries) GetSubscription(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO subscriptions (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING `+subscriptionColumns, userID)
	return scanSubscription(row)
}

// DecrementCredit performs the guarded decrement for a credit kind.
//
// The balance check lives in the WHERE clause of the same UPDATE, so a zero
// balance at the moment of decrement returns no row and leaves the counter
// untouched. This is the authoritative enforcement point; eligibility
// pre-checks are only a UX hint.
//
// Returns the post-decrement row and true on success, or nil and false when
// the balance was already zero.
func (q *Queries) DecrementCredit(ctx context.Context, userID uuid.UUID, kind domain.CreditKind) (*domain.Subscription, bool, error) {
	column := "basic_credits_remaining"
	if kind == domain.CreditKindAdvanced {
		column = "advanced_credits_remaining"
	}

	row := q.db.QueryRowContext(ctx, `
		UPDATE subscriptions
		SET `+column+` = `+column+` - 1, updated_at = now()
		WHERE user_id = $1 AND `+column+` > 0
		RETURNING `+subscriptionColumns, userID)

	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return sub, true, nil
}

// CreditBonus adds bonus credits to a user's balance, returning the updated row.
func (q *Queries) CreditBonus(ctx context.Context, userID uuid.UUID, basic, advanced int) (*domain.Subscription, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE subscriptions
		SET basic_credits_remaining = basic_credits_remaining + $2,
		    advanced_credits_remaining = advanced_credits_remaining + $3,
		    updated_at = now()
		WHERE user_id = $1
		RETURNING `+subscriptionColumns, userID, basic, advanced)
	return scanSubscription(row)
}

// SetSubscriptionTier sets the tier and resets both credit counters to the
// tier's monthly allotment. Called on billing confirmation and monthly refill.
func (q *Queries) SetSubscriptionTier(ctx context.Context, userID uuid.UUID, tier domain.SubscriptionTier, basic, advanced int) (*domain.Subscription, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE subscriptions
		SET tier = $2,
		    basic_credits_remaining = $3,
		    advanced_credits_remaining = $4,
		    updated_at = now()
		WHERE user_id = $1
		RETURNING `+subscriptionColumns, userID, tier, basic, advanced)
	return scanSubscription(row)
}

// IncrementSavedArguments performs the guarded increment for the saved
// document count, bounded by the tier's allowance. Returns false without
// mutating when the user is already at max.
func (q *Queries) IncrementSavedArguments(ctx context.Context, userID uuid.UUID, max int) (*domain.Subscription, bool, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE subscriptions
		SET saved_argument_count = saved_argument_count + 1, updated_at = now()
		WHERE user_id = $1 AND saved_argument_count < $2
		RETURNING `+subscriptionColumns, userID, max)

	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return sub, true, nil
}

// DecrementSavedArguments releases one saved-document slot, flooring at zero.
func (q *Queries) DecrementSavedArguments(ctx context.Context, userID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET saved_argument_count = saved_argument_count - 1, updated_at = now()
		WHERE user_id = $1 AND saved_argument_count > 0`, userID)
	return err
}

// ListSubscriptionsByTiers returns the user IDs subscribed at any of the
// given tiers. Used by the monthly refill job.
func (q *Queries) ListSubscriptionsByTiers(ctx context.Context, tiers []domain.SubscriptionTier) ([]uuid.UUID, error) {
	names := make([]string, 0, len(tiers))
	for _, t := range tiers {
		names = append(names, string(t))
	}

	// database/sql has no portable array binding; a comma-joined list is
	// safe here because tier names never contain commas.
	rows, err := q.db.QueryContext(ctx,
		`SELECT user_id FROM subscriptions WHERE tier = ANY(string_to_array($1, ','))`,
		strings.Join(names, ","))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
