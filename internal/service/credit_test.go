package service

import (
	"context"
	"sync"
	"testing"

	"github.com/jtmorrow/arguably/internal/domain"
)

func TestCreditService_Consume_InsufficientCredits(t *testing.T) {
	store := newFakeEntitlementStore()
	svc := NewCreditService(store, discardLogger())
	user := freeUser()

	// A fresh free-tier user has zero credits in both counters.
	_, err := svc.Consume(context.Background(), user, domain.CreditBasic)
	if got := domain.ErrorCode(err); got != domain.ECREDITS {
		t.Fatalf("Consume() error code = %q, want %q", got, domain.ECREDITS)
	}

	sub := store.snapshot(user.ID)
	if sub.BasicCreditsRemaining != 0 {
		t.Errorf("balance changed on refused consume: %d", sub.BasicCreditsRemaining)
	}
}

func TestCreditService_Consume_DecrementsOnce(t *testing.T) {
	store := newFakeEntitlementStore()
	svc := NewCreditService(store, discardLogger())
	user := freeUser()
	store.seed(user.ID, domain.TierBasic, 1, 0, 0)

	sub, err := svc.Consume(context.Background(), user, domain.CreditBasic)
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	if sub.BasicCreditsRemaining != 0 {
		t.Errorf("remaining = %d, want 0", sub.BasicCreditsRemaining)
	}

	// The second consume must be refused, not go negative.
	_, err = svc.Consume(context.Background(), user, domain.CreditBasic)
	if got := domain.ErrorCode(err); got != domain.ECREDITS {
		t.Fatalf("second Consume() error code = %q, want %q", got, domain.ECREDITS)
	}
	if got := store.snapshot(user.ID).BasicCreditsRemaining; got != 0 {
		t.Errorf("balance went negative or changed: %d", got)
	}
}

// TestCreditService_Consume_Concurrent drives many concurrent consumes over
// a small balance: exactly `initial` succeed, the rest are refused, and the
// final balance is initial - successes, never negative.
func TestCreditService_Consume_Concurrent(t *testing.T) {
	const initial = 5
	const attempts = 50

	store := newFakeEntitlementStore()
	svc := NewCreditService(store, discardLogger())
	user := freeUser()
	store.seed(user.ID, domain.TierBasic, initial, 0, 0)

	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Consume(context.Background(), user, domain.CreditBasic)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		switch {
		case err == nil:
			successes++
		case domain.ErrorCode(err) == domain.ECREDITS:
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if successes != initial {
		t.Errorf("successes = %d, want %d", successes, initial)
	}
	final := store.snapshot(user.ID).BasicCreditsRemaining
	if final != 0 {
		t.Errorf("final balance = %d, want 0", final)
	}
}

func TestCreditService_Consume_Unlimited(t *testing.T) {
	store := newFakeEntitlementStore()
	svc := NewCreditService(store, discardLogger())

	t.Run("enterprise tier", func(t *testing.T) {
		user := freeUser()
		store.seed(user.ID, domain.TierEnterprise, 0, 0, 0)

		for i := 0; i < 3; i++ {
			if _, err := svc.Consume(context.Background(), user, domain.CreditAdvanced); err != nil {
				t.Fatalf("Consume() error = %v", err)
			}
		}
		if got := store.snapshot(user.ID).AdvancedCreditsRemaining; got != 0 {
			t.Errorf("unlimited consume mutated balance: %d", got)
		}
	})

	t.Run("admin user", func(t *testing.T) {
		user := freeUser()
		user.IsAdmin = true

		if _, err := svc.Consume(context.Background(), user, domain.CreditBasic); err != nil {
			t.Fatalf("Consume() error = %v", err)
		}
		if got := store.snapshot(user.ID).BasicCreditsRemaining; got != 0 {
			t.Errorf("admin consume mutated balance: %d", got)
		}
	})
}

func TestCreditService_Consume_NewDocumentLimit(t *testing.T) {
	store := newFakeEntitlementStore()
	svc := NewCreditService(store, discardLogger())
	user := freeUser()

	max := domain.GetTier(domain.TierFree).MaxSavedArguments
	store.seed(user.ID, domain.TierFree, 0, 0, max)

	_, err := svc.Consume(context.Background(), user, domain.CreditNewDocument)
	if got := domain.ErrorCode(err); got != domain.EDOCLIMIT {
		t.Fatalf("Consume() error code = %q, want %q", got, domain.EDOCLIMIT)
	}
	if got := store.snapshot(user.ID).SavedArgumentCount; got != max {
		t.Errorf("saved count changed at limit: %d", got)
	}
}

func TestCreditService_CheckEligible(t *testing.T) {
	store := newFakeEntitlementStore()
	svc := NewCreditService(store, discardLogger())
	user := freeUser()
	store.seed(user.ID, domain.TierBasic, 1, 0, 0)

	tests := []struct {
		name     string
		category domain.CreditCategory
		wantCode string
	}{
		{"basic available", domain.CreditBasic, ""},
		{"advanced exhausted", domain.CreditAdvanced, domain.ECREDITS},
		{"new document below cap", domain.CreditNewDocument, ""},
		{"unknown category", domain.CreditCategory("export"), domain.EINVALID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.CheckEligible(context.Background(), user, tt.category)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("CheckEligible() error = %v, want nil", err)
				}
				return
			}
			if got := domain.ErrorCode(err); got != tt.wantCode {
				t.Errorf("CheckEligible() error code = %q, want %q", got, tt.wantCode)
			}
		})
	}

	// Eligibility checks never mutate the balance.
	if got := store.snapshot(user.ID).BasicCreditsRemaining; got != 1 {
		t.Errorf("CheckEligible mutated balance: %d", got)
	}
}

func TestCreditService_StoreUnavailable(t *testing.T) {
	store := newFakeEntitlementStore()
	store.getErr = context.DeadlineExceeded
	svc := NewCreditService(store, discardLogger())

	_, err := svc.Consume(context.Background(), freeUser(), domain.CreditBasic)
	if got := domain.ErrorCode(err); got != domain.EUNAVAILABLE {
		t.Fatalf("Consume() error code = %q, want %q", got, domain.EUNAVAILABLE)
	}
	if !domain.IsRetryable(err) {
		t.Error("store unavailability should be retryable")
	}
}
