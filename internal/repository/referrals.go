package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jtmorrow/arguably/internal/domain"
)

// Structured results from the atomic redemption procedure. The procedure
// returns these directly rather than free-text errors the caller would have
// to sniff.
var (
	// ErrCodeNotFound indicates the referral code does not exist.
	ErrCodeNotFound = errors.New("referral code not found")

	// ErrAlreadyRedeemed indicates the redeeming account already redeemed a
	// code at some point, with any code.
	ErrAlreadyRedeemed = errors.New("account has already redeemed a referral code")

	// ErrSelfReferral indicates the redeemer owns the code.
	ErrSelfReferral = errors.New("cannot redeem your own referral code")
)

func scanReferralCode(row interface{ Scan(...interface{}) error }) (*domain.ReferralCode, error) {
	var rc domain.ReferralCode
	if err := row.Scan(&rc.OwnerUserID, &rc.Code, &rc.CreatedAt); err != nil {
		return nil, err
	}
	return &rc, nil
}

// GetReferralCodeByOwner returns a user's code, or sql.ErrNoRows if none exists yet.
func (q *Queries) GetReferralCodeByOwner(ctx context.Context, ownerID uuid.UUID) (*domain.ReferralCode, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT owner_user_id, code, created_at
		FROM referral_codes WHERE owner_user_id = $1`, ownerID)
	return scanReferralCode(row)
}

// GetReferralCodeByCode resolves a code to its owner.
func (q *Queries) GetReferralCodeByCode(ctx context.Context, code string) (*domain.ReferralCode, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT owner_user_id, code, created_at
		FROM referral_codes WHERE code = $1`, code)
	return scanReferralCode(row)
}

// InsertReferralCodeIfAbsent inserts a code row keyed by owner, ignoring the
// insert when the owner already has one. A collision on the code value
// itself (different owner, same code) surfaces as a unique violation the
// caller retries with a fresh code.
func (q *Queries) InsertReferralCodeIfAbsent(ctx context.Context, ownerID uuid.UUID, code string) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO referral_codes (owner_user_id, code)
		VALUES ($1, $2)
		ON CONFLICT (owner_user_id) DO NOTHING`, ownerID, code)
	return err
}

// GetRedemptionByUser returns the redemption record for an account, or
// sql.ErrNoRows if the account has never redeemed a code.
func (q *Queries) GetRedemptionByUser(ctx context.Context, userID uuid.UUID) (*domain.ReferralRedemption, error) {
	var r domain.ReferralRedemption
	err := q.db.QueryRowContext(ctx, `
		SELECT code, redeeming_user_id, redeemed_at
		FROM referral_redemptions WHERE redeeming_user_id = $1`, userID).
		Scan(&r.Code, &r.RedeemingUserID, &r.RedeemedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ApplyReferralBonusResult carries the post-redemption balances.
type ApplyReferralBonusResult struct {
	OwnerUserID uuid.UUID
	Redeemer    *domain.Subscription
}

// ApplyReferralBonus is the atomic redemption procedure.
//
// One transaction enforces all three invariants: the code exists, the
// redeemer has no prior redemption ever, and the redeemer is not the code's
// owner. The redemption record and both bonus grants commit together or not
// at all. The redeemer's one-time-ever constraint is backed by the primary
// key on referral_redemptions.redeeming_user_id, so two concurrent attempts
// by the same account cannot both commit.
func (s *Store) ApplyReferralBonus(ctx context.Context, code string, redeemingUserID uuid.UUID) (*ApplyReferralBonusResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin redemption: %w", err)
	}
	defer tx.Rollback()

	qtx := s.Queries.WithTx(tx)

	rc, err := qtx.GetReferralCodeByCode(ctx, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("look up code: %w", err)
	}

	if rc.OwnerUserID == redeemingUserID {
		return nil, ErrSelfReferral
	}

	// The primary key makes this the authoritative one-redemption-per-account
	// check; no prior SELECT is needed.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO referral_redemptions (code, redeeming_user_id)
		VALUES ($1, $2)`, code, redeemingUserID)
	if IsUniqueViolation(err, "") {
		return nil, ErrAlreadyRedeemed
	}
	if err != nil {
		return nil, fmt.Errorf("record redemption: %w", err)
	}

	// Both parties get the bonus. GetSubscription creates the implicit
	// default row first so the increments always have a target.
	if _, err := qtx.GetSubscription(ctx, rc.OwnerUserID); err != nil {
		return nil, fmt.Errorf("ensure owner subscription: %w", err)
	}
	if _, err := qtx.CreditBonus(ctx, rc.OwnerUserID, domain.ReferralBonusBasic, domain.ReferralBonusAdvanced); err != nil {
		return nil, fmt.Errorf("credit owner: %w", err)
	}

	if _, err := qtx.GetSubscription(ctx, redeemingUserID); err != nil {
		return nil, fmt.Errorf("ensure redeemer subscription: %w", err)
	}
	redeemer, err := qtx.CreditBonus(ctx, redeemingUserID, domain.ReferralBonusBasic, domain.ReferralBonusAdvanced)
	if err != nil {
		return nil, fmt.Errorf("credit redeemer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit redemption: %w", err)
	}

	return &ApplyReferralBonusResult{
		OwnerUserID: rc.OwnerUserID,
		Redeemer:    redeemer,
	}, nil
}
