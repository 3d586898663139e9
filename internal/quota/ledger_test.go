package quota

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	records map[int64]UsageRecord
	puts    int
	getErr  error
	putErr  error
}

func newMemStore() *memStore {
	return &memStore{records: make(map[int64]UsageRecord)}
}

func (s *memStore) Get(_ context.Context, userID int64) (UsageRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return UsageRecord{}, false, s.getErr
	}
	rec, ok := s.records[userID]
	return rec, ok, nil
}

func (s *memStore) Put(_ context.Context, rec UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.records[rec.UserID] = rec
	s.puts++
	return nil
}

func fixedClock(day string) func() time.Time {
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t.UTC() }
}

func newTestLedger(store Store, day string) *Ledger {
	return NewLedger(Options{Store: store, Now: fixedClock(day)})
}

func TestCheckAllowanceFreshUser(t *testing.T) {
	store := newMemStore()
	ledger := newTestLedger(store, "2026-08-29")

	allowance, err := ledger.CheckAllowance(context.Background(), 42, 300)
	require.NoError(t, err)
	assert.True(t, allowance.Allowed)
	assert.Equal(t, 0, allowance.Used)

	rec, ok := store.records[42]
	require.True(t, ok, "record must be created lazily on first check")
	assert.Equal(t, "2026-08-29", rec.Day)
	assert.Equal(t, 0, rec.Used)
}

func TestChargeAccumulatesBelowLimit(t *testing.T) {
	store := newMemStore()
	ledger := newTestLedger(store, "2026-08-29")
	ctx := context.Background()

	for _, amount := range []int{10, 25, 5} {
		_, err := ledger.Charge(ctx, 7, amount, 300)
		require.NoError(t, err)
	}

	assert.Equal(t, 40, store.records[7].Used)
}

func TestChargeSaturatesAtLimit(t *testing.T) {
	store := newMemStore()
	ledger := newTestLedger(store, "2026-08-29")
	ctx := context.Background()

	used, err := ledger.Charge(ctx, 7, 250, 300)
	require.NoError(t, err)
	assert.Equal(t, 250, used)

	used, err = ledger.Charge(ctx, 7, 100, 300)
	require.NoError(t, err)
	assert.Equal(t, 300, used, "charge past the limit clamps, not rejects")

	used, err = ledger.Charge(ctx, 7, 1, 300)
	require.NoError(t, err)
	assert.Equal(t, 300, used, "used never exceeds the limit")
}

func TestDayRolloverResetsUsage(t *testing.T) {
	store := newMemStore()
	store.records[9] = UsageRecord{UserID: 9, Day: "2026-08-28", Used: 250}
	ctx := context.Background()

	t.Run("check path", func(t *testing.T) {
		ledger := newTestLedger(store, "2026-08-29")
		allowance, err := ledger.CheckAllowance(ctx, 9, 300)
		require.NoError(t, err)
		assert.True(t, allowance.Allowed)
		assert.Equal(t, 0, allowance.Used)
		assert.Equal(t, "2026-08-29", store.records[9].Day)
	})

	t.Run("charge path", func(t *testing.T) {
		store.records[9] = UsageRecord{UserID: 9, Day: "2026-08-28", Used: 250}
		ledger := newTestLedger(store, "2026-08-29")
		used, err := ledger.Charge(ctx, 9, 5, 300)
		require.NoError(t, err)
		assert.Equal(t, 5, used, "rollover happens before the charge is applied")
	})
}

func TestRolloverIsIdempotent(t *testing.T) {
	store := newMemStore()
	store.records[9] = UsageRecord{UserID: 9, Day: "2026-08-28", Used: 250}
	ledger := newTestLedger(store, "2026-08-29")
	ctx := context.Background()

	first, err := ledger.CheckAllowance(ctx, 9, 300)
	require.NoError(t, err)
	putsAfterFirst := store.puts

	second, err := ledger.CheckAllowance(ctx, 9, 300)
	require.NoError(t, err)

	assert.Equal(t, 0, first.Used)
	assert.Equal(t, 0, second.Used)
	assert.Equal(t, putsAfterFirst, store.puts, "a current record must not be rewritten on check")
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 3, WordCount("one two three"))
	assert.Equal(t, 0, WordCount(""))
	assert.Equal(t, 0, WordCount("   \t\n"))
	assert.Equal(t, 2, WordCount("  leading   trailing  "))
}

func TestChargeNegativeAmountCountsAsZero(t *testing.T) {
	store := newMemStore()
	store.records[3] = UsageRecord{UserID: 3, Day: "2026-08-29", Used: 12}
	ledger := newTestLedger(store, "2026-08-29")

	used, err := ledger.Charge(context.Background(), 3, -5, 300)
	require.NoError(t, err)
	assert.Equal(t, 12, used)
}

func TestNearLimitChargeSaturates(t *testing.T) {
	store := newMemStore()
	store.records[11] = UsageRecord{UserID: 11, Day: "2026-08-29", Used: 299}
	ledger := newTestLedger(store, "2026-08-29")
	ctx := context.Background()

	allowance, err := ledger.CheckAllowance(ctx, 11, 300)
	require.NoError(t, err)
	require.True(t, allowance.Allowed, "299 < 300 must still be allowed")

	used, err := ledger.Charge(ctx, 11, 5, 300)
	require.NoError(t, err)
	assert.Equal(t, 300, used, "299+5 saturates at 300, not 304")
}

func TestBlockedAtLimit(t *testing.T) {
	store := newMemStore()
	store.records[11] = UsageRecord{UserID: 11, Day: "2026-08-29", Used: 300}
	ledger := newTestLedger(store, "2026-08-29")

	allowance, err := ledger.CheckAllowance(context.Background(), 11, 300)
	require.NoError(t, err)
	assert.False(t, allowance.Allowed)
	assert.Equal(t, 300, allowance.Used)
}

// Two requests racing through check-then-charge may both pass the check; the
// saturating add still bounds the stored value at the limit.
func TestConcurrentChargesSaturate(t *testing.T) {
	store := newMemStore()
	store.records[5] = UsageRecord{UserID: 5, Day: "2026-08-29", Used: 299}
	ledger := newTestLedger(store, "2026-08-29")
	ctx := context.Background()

	a1, err := ledger.CheckAllowance(ctx, 5, 300)
	require.NoError(t, err)
	a2, err := ledger.CheckAllowance(ctx, 5, 300)
	require.NoError(t, err)
	require.True(t, a1.Allowed)
	require.True(t, a2.Allowed)

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = ledger.Charge(ctx, 5, 10, 300)
		}()
	}
	wg.Wait()

	assert.Equal(t, 300, store.records[5].Used)
}

func TestRolloverThenSaturation(t *testing.T) {
	store := newMemStore()
	store.records[8] = UsageRecord{UserID: 8, Day: "2026-08-28", Used: 299}
	ledger := newTestLedger(store, "2026-08-29")
	ctx := context.Background()

	allowance, err := ledger.CheckAllowance(ctx, 8, 300)
	require.NoError(t, err)
	assert.True(t, allowance.Allowed)
	assert.Equal(t, 0, allowance.Used, "stale record resets before the check")

	used, err := ledger.Charge(ctx, 8, 10, 300)
	require.NoError(t, err)
	assert.Equal(t, 10, used)

	used, err = ledger.Charge(ctx, 8, 500, 300)
	require.NoError(t, err)
	assert.Equal(t, 300, used)
	assert.Equal(t, 300, store.records[8].Used, "oversized charge clamps the stored value")
}

func TestStorageFailurePropagates(t *testing.T) {
	store := newMemStore()
	store.getErr = errors.New("connection refused")
	ledger := newTestLedger(store, "2026-08-29")

	_, err := ledger.CheckAllowance(context.Background(), 1, 300)
	require.Error(t, err)

	store.getErr = nil
	store.putErr = errors.New("connection refused")
	_, err = ledger.Charge(context.Background(), 1, 3, 300)
	require.Error(t, err)
}

func TestNextReset(t *testing.T) {
	now := time.Date(2026, 8, 29, 17, 45, 12, 0, time.UTC)
	reset := NextReset(now)
	assert.Equal(t, time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), reset)

	endOfMonth := time.Date(2026, 8, 31, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), NextReset(endOfMonth))
}
