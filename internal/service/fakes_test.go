package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jtmorrow/arguably/internal/domain"
	"github.com/jtmorrow/arguably/internal/repository"
)

// fakeEntitlementStore is an in-memory entitlement store. Guards are
// evaluated under the mutex, matching the linearizable behavior of the
// guarded SQL UPDATEs it stands in for.
type fakeEntitlementStore struct {
	mu   sync.Mutex
	subs map[uuid.UUID]*domain.Subscription

	// getErr forces GetSubscription failures when set.
	getErr error
	// drainOnDecrement makes every DecrementCredit refuse, simulating a
	// balance that raced to zero after the eligibility check.
	drainOnDecrement bool
}

func newFakeEntitlementStore() *fakeEntitlementStore {
	return &fakeEntitlementStore{subs: make(map[uuid.UUID]*domain.Subscription)}
}

func (f *fakeEntitlementStore) seed(userID uuid.UUID, tier domain.SubscriptionTier, basic, advanced, saved int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[userID] = &domain.Subscription{
		UserID:                   userID,
		Tier:                     tier,
		BasicCreditsRemaining:    basic,
		AdvancedCreditsRemaining: advanced,
		SavedArgumentCount:       saved,
	}
}

func (f *fakeEntitlementStore) snapshot(userID uuid.UUID) domain.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.subs[userID]
}

func (f *fakeEntitlementStore) GetSubscription(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	sub, ok := f.subs[userID]
	if !ok {
		sub = &domain.Subscription{UserID: userID, Tier: domain.TierFree}
		f.subs[userID] = sub
	}
	cp := *sub
	return &cp, nil
}

func (f *fakeEntitlementStore) DecrementCredit(ctx context.Context, userID uuid.UUID, kind domain.CreditKind) (*domain.Subscription, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[userID]
	if !ok {
		return nil, false, sql.ErrNoRows
	}
	if f.drainOnDecrement {
		return nil, false, nil
	}
	if kind == domain.CreditKindAdvanced {
		if sub.AdvancedCreditsRemaining <= 0 {
			return nil, false, nil
		}
		sub.AdvancedCreditsRemaining--
	} else {
		if sub.BasicCreditsRemaining <= 0 {
			return nil, false, nil
		}
		sub.BasicCreditsRemaining--
	}
	cp := *sub
	return &cp, true, nil
}

func (f *fakeEntitlementStore) IncrementSavedArguments(ctx context.Context, userID uuid.UUID, max int) (*domain.Subscription, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[userID]
	if !ok {
		return nil, false, sql.ErrNoRows
	}
	if sub.SavedArgumentCount >= max {
		return nil, false, nil
	}
	sub.SavedArgumentCount++
	cp := *sub
	return &cp, true, nil
}

func (f *fakeEntitlementStore) SetSubscriptionTier(ctx context.Context, userID uuid.UUID, tier domain.SubscriptionTier, basic, advanced int) (*domain.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	sub.Tier = tier
	sub.BasicCreditsRemaining = basic
	sub.AdvancedCreditsRemaining = advanced
	cp := *sub
	return &cp, nil
}

func (f *fakeEntitlementStore) creditBonus(userID uuid.UUID, basic, advanced int) *domain.Subscription {
	sub, ok := f.subs[userID]
	if !ok {
		sub = &domain.Subscription{UserID: userID, Tier: domain.TierFree}
		f.subs[userID] = sub
	}
	sub.BasicCreditsRemaining += basic
	sub.AdvancedCreditsRemaining += advanced
	cp := *sub
	return &cp
}

// fakeReferralStore is an in-memory referral ledger over a linked
// entitlement store. ApplyReferralBonus holds both mutexes' worth of state
// under one lock, standing in for the single database transaction.
type fakeReferralStore struct {
	mu          sync.Mutex
	entitlement *fakeEntitlementStore
	codesByUser map[uuid.UUID]string
	ownersByCode map[string]uuid.UUID
	redemptions map[uuid.UUID]string
}

func newFakeReferralStore(entitlement *fakeEntitlementStore) *fakeReferralStore {
	return &fakeReferralStore{
		entitlement:  entitlement,
		codesByUser:  make(map[uuid.UUID]string),
		ownersByCode: make(map[string]uuid.UUID),
		redemptions:  make(map[uuid.UUID]string),
	}
}

func (f *fakeReferralStore) GetReferralCodeByOwner(ctx context.Context, ownerID uuid.UUID) (*domain.ReferralCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	code, ok := f.codesByUser[ownerID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &domain.ReferralCode{OwnerUserID: ownerID, Code: code, CreatedAt: time.Now()}, nil
}

func (f *fakeReferralStore) InsertReferralCodeIfAbsent(ctx context.Context, ownerID uuid.UUID, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.codesByUser[ownerID]; ok {
		return nil
	}
	f.codesByUser[ownerID] = code
	f.ownersByCode[code] = ownerID
	return nil
}

func (f *fakeReferralStore) GetRedemptionByUser(ctx context.Context, userID uuid.UUID) (*domain.ReferralRedemption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	code, ok := f.redemptions[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &domain.ReferralRedemption{Code: code, RedeemingUserID: userID, RedeemedAt: time.Now()}, nil
}

func (f *fakeReferralStore) ApplyReferralBonus(ctx context.Context, code string, redeemingUserID uuid.UUID) (*repository.ApplyReferralBonusResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ownerID, ok := f.ownersByCode[code]
	if !ok {
		return nil, repository.ErrCodeNotFound
	}
	if ownerID == redeemingUserID {
		return nil, repository.ErrSelfReferral
	}
	if _, redeemed := f.redemptions[redeemingUserID]; redeemed {
		return nil, repository.ErrAlreadyRedeemed
	}
	f.redemptions[redeemingUserID] = code

	f.entitlement.mu.Lock()
	defer f.entitlement.mu.Unlock()
	f.entitlement.creditBonus(ownerID, domain.ReferralBonusBasic, domain.ReferralBonusAdvanced)
	redeemer := f.entitlement.creditBonus(redeemingUserID, domain.ReferralBonusBasic, domain.ReferralBonusAdvanced)

	return &repository.ApplyReferralBonusResult{
		OwnerUserID: ownerID,
		Redeemer:    redeemer,
	}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func freeUser() *domain.User {
	return &domain.User{ID: uuid.New(), Email: "user@example.com"}
}
