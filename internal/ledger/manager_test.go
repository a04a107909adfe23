package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richxcame/tutor-payouts/pkg/common"
)

type memRepo struct {
	mu      sync.Mutex
	wallets map[uuid.UUID]*Wallet
	holds   map[uuid.UUID]*Hold
}

func newMemRepo() *memRepo {
	return &memRepo{wallets: map[uuid.UUID]*Wallet{}, holds: map[uuid.UUID]*Hold{}}
}

func (r *memRepo) seed(tutorID uuid.UUID, balance string) {
	r.wallets[tutorID] = &Wallet{TutorID: tutorID, Balance: decimal.RequireFromString(balance), Currency: "VND"}
}

func (r *memRepo) GetWallet(_ context.Context, id uuid.UUID) (*Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, common.NewNotFoundError("wallet not found", nil)
	}
	cp := *w
	return &cp, nil
}

func (r *memRepo) LockWallet(ctx context.Context, id uuid.UUID) (*Wallet, error) {
	return r.GetWallet(ctx, id)
}

func (r *memRepo) UpdateWallet(_ context.Context, w *Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.wallets[w.TutorID] = &cp
	return nil
}

func (r *memRepo) InsertHold(_ context.Context, h *Hold) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *h
	r.holds[h.ID] = &cp
	return nil
}

func (r *memRepo) LockHold(_ context.Context, id uuid.UUID) (*Hold, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.holds[id]
	if !ok {
		return nil, common.NewNotFoundError("hold not found", nil)
	}
	cp := *h
	return &cp, nil
}

func (r *memRepo) SettleHold(_ context.Context, h *Hold) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *h
	r.holds[h.ID] = &cp
	return nil
}

func (r *memRepo) TotalFrozen(context.Context) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := decimal.Zero
	for _, h := range r.holds {
		if h.Open() {
			total = total.Add(h.Amount)
		}
	}
	return total, nil
}

// serialTx runs every transaction under one mutex, standing in for row locks.
type serialTx struct{ mu sync.Mutex }

func (t *serialTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx)
}

func newTestManager() (*Manager, *memRepo) {
	repo := newMemRepo()
	return NewManager(repo, &serialTx{}), repo
}

func TestReserve_FreezesAmount(t *testing.T) {
	m, repo := newTestManager()
	tutor := uuid.New()
	repo.seed(tutor, "1000000")

	hold, err := m.Reserve(context.Background(), tutor, uuid.New(), decimal.RequireFromString("300000"))
	require.NoError(t, err)
	assert.Equal(t, HoldHeld, hold.Status)

	w, err := m.Wallet(context.Background(), tutor)
	require.NoError(t, err)
	assert.True(t, w.Frozen.Equal(decimal.RequireFromString("300000")))
	assert.True(t, w.Available().Equal(decimal.RequireFromString("700000")))
}

func TestReserve_InsufficientFunds(t *testing.T) {
	m, repo := newTestManager()
	tutor := uuid.New()
	repo.seed(tutor, "100")

	_, err := m.Reserve(context.Background(), tutor, uuid.New(), decimal.RequireFromString("100.01"))
	assert.True(t, errors.Is(err, common.ErrInsufficientFunds))

	w, _ := m.Wallet(context.Background(), tutor)
	assert.True(t, w.Frozen.IsZero())
}

func TestReserve_RejectsNonPositive(t *testing.T) {
	m, _ := newTestManager()
	_, err := m.Reserve(context.Background(), uuid.New(), uuid.New(), decimal.Zero)
	assert.True(t, errors.Is(err, common.ErrValidation))
}

func TestCommit_SpendsHold(t *testing.T) {
	m, repo := newTestManager()
	ctx := context.Background()
	tutor := uuid.New()
	repo.seed(tutor, "500")

	hold, err := m.Reserve(ctx, tutor, uuid.New(), decimal.RequireFromString("200"))
	require.NoError(t, err)
	require.NoError(t, m.Commit(ctx, hold.ID))

	w, _ := m.Wallet(ctx, tutor)
	assert.True(t, w.Balance.Equal(decimal.RequireFromString("300")))
	assert.True(t, w.Frozen.IsZero())
}

func TestRelease_RestoresAvailable(t *testing.T) {
	m, repo := newTestManager()
	ctx := context.Background()
	tutor := uuid.New()
	repo.seed(tutor, "500")

	hold, err := m.Reserve(ctx, tutor, uuid.New(), decimal.RequireFromString("200"))
	require.NoError(t, err)
	require.NoError(t, m.Release(ctx, hold.ID))

	w, _ := m.Wallet(ctx, tutor)
	assert.True(t, w.Balance.Equal(decimal.RequireFromString("500")))
	assert.True(t, w.Available().Equal(decimal.RequireFromString("500")))
}

func TestSettle_TwiceIsInvalidState(t *testing.T) {
	m, repo := newTestManager()
	ctx := context.Background()
	tutor := uuid.New()
	repo.seed(tutor, "500")

	hold, err := m.Reserve(ctx, tutor, uuid.New(), decimal.RequireFromString("200"))
	require.NoError(t, err)
	require.NoError(t, m.Commit(ctx, hold.ID))

	assert.True(t, errors.Is(m.Commit(ctx, hold.ID), common.ErrInvalidState))
	assert.True(t, errors.Is(m.Release(ctx, hold.ID), common.ErrInvalidState))

	w, _ := m.Wallet(ctx, tutor)
	assert.True(t, w.Balance.Equal(decimal.RequireFromString("300")))
}

func TestReserve_ConcurrentNeverOverdraws(t *testing.T) {
	m, repo := newTestManager()
	tutor := uuid.New()
	repo.seed(tutor, "1000")

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Reserve(context.Background(), tutor, uuid.New(), decimal.RequireFromString("100")); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	w, _ := m.Wallet(context.Background(), tutor)
	assert.True(t, w.Available().IsZero())

	frozen, err := m.TotalFrozen(context.Background())
	require.NoError(t, err)
	assert.True(t, frozen.Equal(w.Frozen))
}
