package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jtmorrow/arguably/internal/domain"
)

// fakeArgumentStore is an in-memory document store linked to an entitlement
// store so saved-document slot accounting is observable from tests.
type fakeArgumentStore struct {
	mu          sync.Mutex
	entitlement *fakeEntitlementStore
	args        map[uuid.UUID]*domain.Argument

	createErr error
}

func newFakeArgumentStore(entitlement *fakeEntitlementStore) *fakeArgumentStore {
	return &fakeArgumentStore{
		entitlement: entitlement,
		args:        make(map[uuid.UUID]*domain.Argument),
	}
}

func (f *fakeArgumentStore) CreateArgument(ctx context.Context, a *domain.Argument) (*domain.Argument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	cp := *a
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	f.args[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeArgumentStore) GetArgumentByID(ctx context.Context, id uuid.UUID) (*domain.Argument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.args[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (f *fakeArgumentStore) ListArgumentsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Argument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Argument
	for _, a := range f.args {
		if a.OwnerID == ownerID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeArgumentStore) UpdateArgument(ctx context.Context, a *domain.Argument) (*domain.Argument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.args[a.ID]
	if !ok || existing.OwnerID != a.OwnerID {
		return nil, sql.ErrNoRows
	}
	existing.Title = a.Title
	existing.Blocks = a.Blocks
	existing.UpdatedAt = time.Now()
	cp := *existing
	return &cp, nil
}

func (f *fakeArgumentStore) DeleteArgument(ctx context.Context, id, ownerID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.args[id]
	if !ok || a.OwnerID != ownerID {
		return false, nil
	}
	delete(f.args, id)
	return true, nil
}

func (f *fakeArgumentStore) DecrementSavedArguments(ctx context.Context, userID uuid.UUID) error {
	f.entitlement.mu.Lock()
	defer f.entitlement.mu.Unlock()
	sub, ok := f.entitlement.subs[userID]
	if !ok {
		return sql.ErrNoRows
	}
	if sub.SavedArgumentCount > 0 {
		sub.SavedArgumentCount--
	}
	return nil
}

func newArgumentFixture() (*fakeEntitlementStore, *fakeArgumentStore, ArgumentService) {
	entitlements := newFakeEntitlementStore()
	store := newFakeArgumentStore(entitlements)
	credits := NewCreditService(entitlements, discardLogger())
	return entitlements, store, NewArgumentService(store, credits, discardLogger())
}

func TestArgumentService_Create(t *testing.T) {
	entitlements, store, svc := newArgumentFixture()
	user := freeUser()
	entitlements.seed(user.ID, domain.TierFree, 0, 0, 0)

	arg, balance, err := svc.Create(context.Background(), user, domain.CreateArgumentParams{
		OwnerID: user.ID,
		Title:   "  Mortality  ",
		Blocks: []domain.Block{
			{Type: domain.BlockConclusion, Content: "Socrates is mortal.", Position: 99},
			{Type: domain.BlockPremise, Content: "All humans are mortal."},
		},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if arg.Title != "Mortality" {
		t.Errorf("Title = %q, want trimmed %q", arg.Title, "Mortality")
	}
	if balance.Saved != 1 {
		t.Errorf("Balance.Saved = %d, want 1", balance.Saved)
	}

	// Positions follow submitted order; every block gets an ID.
	for i, b := range arg.Blocks {
		if b.Position != i {
			t.Errorf("Blocks[%d].Position = %d, want %d", i, b.Position, i)
		}
		if b.ID == uuid.Nil {
			t.Errorf("Blocks[%d] has no ID", i)
		}
	}

	if _, err := store.GetArgumentByID(context.Background(), arg.ID); err != nil {
		t.Errorf("created argument not persisted: %v", err)
	}
}

func TestArgumentService_Create_AtDocumentLimit(t *testing.T) {
	entitlements, store, svc := newArgumentFixture()
	user := freeUser()
	max := domain.GetTier(domain.TierFree).MaxSavedArguments
	entitlements.seed(user.ID, domain.TierFree, 0, 0, max)

	_, _, err := svc.Create(context.Background(), user, domain.CreateArgumentParams{
		OwnerID: user.ID,
		Title:   "One too many",
	})
	if got := domain.ErrorCode(err); got != domain.EDOCLIMIT {
		t.Fatalf("Create() error code = %q, want %q", got, domain.EDOCLIMIT)
	}

	// Nothing persisted, count unchanged.
	args, _ := store.ListArgumentsByOwner(context.Background(), user.ID)
	if len(args) != 0 {
		t.Errorf("persisted %d arguments past the limit", len(args))
	}
	if got := entitlements.snapshot(user.ID).SavedArgumentCount; got != max {
		t.Errorf("saved count = %d, want %d", got, max)
	}
}

func TestArgumentService_Create_ReleasesSlotOnStoreFailure(t *testing.T) {
	entitlements, store, svc := newArgumentFixture()
	user := freeUser()
	entitlements.seed(user.ID, domain.TierFree, 0, 0, 0)
	store.createErr = sql.ErrConnDone

	_, _, err := svc.Create(context.Background(), user, domain.CreateArgumentParams{
		OwnerID: user.ID,
		Title:   "Mortality",
	})
	if got := domain.ErrorCode(err); got != domain.EUNAVAILABLE {
		t.Fatalf("Create() error code = %q, want %q", got, domain.EUNAVAILABLE)
	}
	if got := entitlements.snapshot(user.ID).SavedArgumentCount; got != 0 {
		t.Errorf("slot not released after insert failure: count = %d, want 0", got)
	}
}

func TestArgumentService_Create_Validation(t *testing.T) {
	entitlements, _, svc := newArgumentFixture()
	user := freeUser()
	entitlements.seed(user.ID, domain.TierFree, 0, 0, 0)

	longTitle := make([]byte, MaxTitleLength+1)
	for i := range longTitle {
		longTitle[i] = 'a'
	}

	tests := []struct {
		name   string
		params domain.CreateArgumentParams
	}{
		{"empty title", domain.CreateArgumentParams{OwnerID: user.ID, Title: "   "}},
		{"title too long", domain.CreateArgumentParams{OwnerID: user.ID, Title: string(longTitle)}},
		{"unknown block type", domain.CreateArgumentParams{
			OwnerID: user.ID,
			Title:   "Mortality",
			Blocks:  []domain.Block{{Type: "thesis", Content: "x"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Create(context.Background(), user, tt.params)
			if got := domain.ErrorCode(err); got != domain.EINVALID {
				t.Errorf("Create() error code = %q, want %q", got, domain.EINVALID)
			}
		})
	}

	// Validation failures never consume a slot.
	if got := entitlements.snapshot(user.ID).SavedArgumentCount; got != 0 {
		t.Errorf("slot consumed on invalid input: count = %d", got)
	}
}

func TestArgumentService_Get_OtherOwner(t *testing.T) {
	entitlements, _, svc := newArgumentFixture()
	owner := freeUser()
	entitlements.seed(owner.ID, domain.TierFree, 0, 0, 0)

	arg, _, err := svc.Create(context.Background(), owner, domain.CreateArgumentParams{
		OwnerID: owner.ID,
		Title:   "Private",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Another user's document reads as not found, never as forbidden, so
	// document IDs are not enumerable.
	stranger := freeUser()
	_, err = svc.Get(context.Background(), stranger, arg.ID)
	if got := domain.ErrorCode(err); got != domain.ENOTFOUND {
		t.Errorf("Get() error code = %q, want %q", got, domain.ENOTFOUND)
	}
}

func TestArgumentService_Update_NotGated(t *testing.T) {
	entitlements, _, svc := newArgumentFixture()
	user := freeUser()
	max := domain.GetTier(domain.TierFree).MaxSavedArguments
	entitlements.seed(user.ID, domain.TierFree, 0, 0, max-1)

	arg, _, err := svc.Create(context.Background(), user, domain.CreateArgumentParams{
		OwnerID: user.ID,
		Title:   "Mortality",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// The user is now at the cap; updates must still succeed.
	updated, err := svc.Update(context.Background(), user, domain.UpdateArgumentParams{
		ID:      arg.ID,
		OwnerID: user.ID,
		Title:   "Mortality, revised",
		Blocks:  []domain.Block{{Type: domain.BlockPremise, Content: "All humans are mortal."}},
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Title != "Mortality, revised" {
		t.Errorf("Title = %q after update", updated.Title)
	}
	if got := entitlements.snapshot(user.ID).SavedArgumentCount; got != max {
		t.Errorf("update changed saved count: %d, want %d", got, max)
	}
}

func TestArgumentService_Delete_ReleasesSlot(t *testing.T) {
	entitlements, _, svc := newArgumentFixture()
	user := freeUser()
	entitlements.seed(user.ID, domain.TierFree, 0, 0, 0)

	arg, _, err := svc.Create(context.Background(), user, domain.CreateArgumentParams{
		OwnerID: user.ID,
		Title:   "Ephemeral",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if got := entitlements.snapshot(user.ID).SavedArgumentCount; got != 1 {
		t.Fatalf("saved count = %d after create, want 1", got)
	}

	if err := svc.Delete(context.Background(), user, arg.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if got := entitlements.snapshot(user.ID).SavedArgumentCount; got != 0 {
		t.Errorf("saved count = %d after delete, want 0", got)
	}

	// Deleting again is not found and does not underflow the count.
	err = svc.Delete(context.Background(), user, arg.ID)
	if got := domain.ErrorCode(err); got != domain.ENOTFOUND {
		t.Errorf("second Delete() error code = %q, want %q", got, domain.ENOTFOUND)
	}
	if got := entitlements.snapshot(user.ID).SavedArgumentCount; got != 0 {
		t.Errorf("saved count = %d after repeated delete, want 0", got)
	}
}
