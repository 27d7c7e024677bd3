// Package service contains the business logic layer.
//
// This file implements the referral ledger: one code per user, one
// redemption per account ever, bonuses granted atomically to both parties.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jtmorrow/arguably/internal/domain"
	"github.com/jtmorrow/arguably/internal/metrics"
	"github.com/jtmorrow/arguably/internal/referral"
	"github.com/jtmorrow/arguably/internal/repository"
)

// codeGenerateAttempts bounds the collision retry loop. With an 8-character
// code over a 31-character alphabet a second collision in a row means the
// random source is broken, not that we are unlucky.
const codeGenerateAttempts = 5

// =============================================================================
// Store Interface
// =============================================================================

// ReferralStore is the persistence contract for the referral ledger.
// ApplyReferralBonus must be a single server-side transaction; the service
// never check-then-writes redemption invariants on its own.
type ReferralStore interface {
	// GetReferralCodeByOwner returns the owner's code, or sql.ErrNoRows.
	GetReferralCodeByOwner(ctx context.Context, ownerID uuid.UUID) (*domain.ReferralCode, error)

	// InsertReferralCodeIfAbsent persists a code keyed by owner, ignoring
	// the insert when the owner already has one. A cross-user code
	// collision surfaces as a unique violation.
	InsertReferralCodeIfAbsent(ctx context.Context, ownerID uuid.UUID, code string) error

	// GetRedemptionByUser returns the account's redemption, or sql.ErrNoRows.
	GetRedemptionByUser(ctx context.Context, userID uuid.UUID) (*domain.ReferralRedemption, error)

	// ApplyReferralBonus atomically validates and applies a redemption,
	// returning repository.ErrCodeNotFound, ErrAlreadyRedeemed, or
	// ErrSelfReferral on invariant violations.
	ApplyReferralBonus(ctx context.Context, code string, redeemingUserID uuid.UUID) (*repository.ApplyReferralBonusResult, error)
}

// =============================================================================
// Interface Definition
// =============================================================================

// ReferralService defines the referral ledger operations.
type ReferralService interface {
	// GetOrCreateCode returns the user's referral code, generating and
	// persisting one on first request. Idempotent: repeated calls return
	// the identical code.
	GetOrCreateCode(ctx context.Context, userID uuid.UUID) (string, error)

	// HasRedeemed reports whether the account has already redeemed a code.
	HasRedeemed(ctx context.Context, userID uuid.UUID) (bool, error)

	// Redeem applies a referral code for the given account. On success both
	// the code owner and the redeemer are credited the referral bonus and
	// the redeemer's fresh balance is returned.
	//
	// Errors: ECODENOTFOUND, EREDEEMED, ESELFREFERRAL (terminal for the
	// attempt), EUNAVAILABLE (transient, retryable).
	Redeem(ctx context.Context, code string, userID uuid.UUID) (*domain.RedemptionResult, error)
}

// =============================================================================
// Implementation
// =============================================================================

type referralService struct {
	store  ReferralStore
	logger *slog.Logger
}

// NewReferralService creates a new ReferralService.
func NewReferralService(store ReferralStore, logger *slog.Logger) ReferralService {
	return &referralService{
		store:  store,
		logger: logger,
	}
}

// GetOrCreateCode returns the caller's code, creating it lazily.
//
// The insert is keyed by owner and ignores duplicates, so two concurrent
// first requests converge on whichever row won; the loser's generated code
// is discarded. A collision on the code value itself is retried with a
// fresh code.
func (s *referralService) GetOrCreateCode(ctx context.Context, userID uuid.UUID) (string, error) {
	const op = "referral.get_or_create_code"

	for attempt := 0; attempt < codeGenerateAttempts; attempt++ {
		rc, err := s.store.GetReferralCodeByOwner(ctx, userID)
		if err == nil {
			return rc.Code, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", domain.StoreUnavailable(err, op)
		}

		code, err := referral.Generate()
		if err != nil {
			return "", domain.Internal(err, op, "Failed to generate referral code")
		}

		err = s.store.InsertReferralCodeIfAbsent(ctx, userID, code)
		if repository.IsUniqueViolation(err, "") {
			// Another owner holds this code value. Loop and regenerate.
			s.logger.Warn("Referral code collision, regenerating", "attempt", attempt+1)
			continue
		}
		if err != nil {
			return "", domain.StoreUnavailable(err, op)
		}
	}

	// Read back whichever row exists now: ours, or a concurrent winner's.
	rc, err := s.store.GetReferralCodeByOwner(ctx, userID)
	if err != nil {
		return "", domain.StoreUnavailable(err, op)
	}
	return rc.Code, nil
}

// HasRedeemed reports whether the account has used its one-time redemption.
func (s *referralService) HasRedeemed(ctx context.Context, userID uuid.UUID) (bool, error) {
	const op = "referral.has_redeemed"

	_, err := s.store.GetRedemptionByUser(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, domain.StoreUnavailable(err, op)
	}
	return true, nil
}

// Redeem normalizes the code and delegates invariant enforcement to the
// store's atomic procedure, translating its structured results into domain
// errors.
func (s *referralService) Redeem(ctx context.Context, code string, userID uuid.UUID) (*domain.RedemptionResult, error) {
	const op = "referral.redeem"

	code = referral.Normalize(code)
	if !referral.Valid(code) {
		// A malformed code cannot exist, so it gets the same answer as an
		// unknown one.
		return nil, domain.Errorf(domain.ECODENOTFOUND, op, "Referral code %q not found", code)
	}

	res, err := s.store.ApplyReferralBonus(ctx, code, userID)
	switch {
	case errors.Is(err, repository.ErrCodeNotFound):
		return nil, domain.Errorf(domain.ECODENOTFOUND, op, "Referral code %q not found", code)
	case errors.Is(err, repository.ErrAlreadyRedeemed):
		return nil, domain.Errorf(domain.EREDEEMED, op, "This account has already redeemed a referral code")
	case errors.Is(err, repository.ErrSelfReferral):
		return nil, domain.Errorf(domain.ESELFREFERRAL, op, "You cannot redeem your own referral code")
	case err != nil:
		return nil, domain.StoreUnavailable(err, op)
	}

	metrics.ReferralRedemptions.Inc()
	s.logger.Info("Referral redeemed",
		"code", code,
		"owner_id", res.OwnerUserID,
		"redeemer_id", userID,
	)

	return &domain.RedemptionResult{
		Code:        code,
		OwnerUserID: res.OwnerUserID,
		Balance:     domain.BalanceOf(res.Redeemer),
	}, nil
}
