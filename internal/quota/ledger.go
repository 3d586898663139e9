// Package quota meters per-user daily consumption of generation-API usage.
// Usage is expressed in approximate tokens: the whitespace-delimited word
// count of the generated text, used as a proxy for true token accounting.
package quota

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gembot/core/logger"
	"log/slog"
)

// UsageRecord is the per-user counter document. One record exists per user;
// it is recycled in place on day rollover, never deleted.
type UsageRecord struct {
	UserID int64  `db:"user_id"`
	Day    string `db:"day"`
	Used   int    `db:"used"`
}

// Store abstracts the persistence backend of the ledger.
type Store interface {
	// Get returns the record for userID, reporting whether one exists.
	Get(ctx context.Context, userID int64) (UsageRecord, bool, error)
	// Put writes the record, creating or replacing it.
	Put(ctx context.Context, rec UsageRecord) error
}

// Allowance is the result of a pure quota check.
type Allowance struct {
	Allowed bool
	Used    int
}

// Options configures a Ledger.
type Options struct {
	Store Store
	// Now overrides the wall clock. Defaults to time.Now.
	Now func() time.Time
}

// Ledger gates and meters per-user daily usage against a configured limit.
// It keeps no in-process state: every call reads and writes through the store,
// so consistency is whatever the store's per-record semantics provide. The
// check-then-charge pair is deliberately not atomic; concurrent requests from
// one user may jointly overshoot the limit before saturation clamps the next
// charge.
type Ledger struct {
	store Store
	now   func() time.Time
}

// NewLedger builds a Ledger over the given store.
func NewLedger(opts Options) *Ledger {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Ledger{store: opts.Store, now: now}
}

const dayFormat = "2006-01-02"

// Today returns the current UTC calendar date as "YYYY-MM-DD".
func (l *Ledger) Today() string {
	return l.now().UTC().Format(dayFormat)
}

// NextReset returns the next UTC midnight after now, when counters roll over.
func NextReset(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}

// current fetches the user's record, lazily creating it on first use and
// resetting it in place when the stored day is stale. Creation and rollover
// are persisted immediately so repeated calls within one day are idempotent.
func (l *Ledger) current(ctx context.Context, userID int64) (UsageRecord, error) {
	today := l.Today()

	rec, found, err := l.store.Get(ctx, userID)
	if err != nil {
		return UsageRecord{}, fmt.Errorf("quota: fetch record: %w", err)
	}

	if found && rec.Day == today {
		return rec, nil
	}

	fresh := UsageRecord{UserID: userID, Day: today, Used: 0}
	if err := l.store.Put(ctx, fresh); err != nil {
		return UsageRecord{}, fmt.Errorf("quota: reset record: %w", err)
	}

	if found {
		logger.Debug(ctx, "quota", "rollover",
			slog.Int64("user_id", userID),
			slog.String("day", today),
			slog.Int("prev_used", rec.Used),
		)
	}
	return fresh, nil
}

// CheckAllowance reports whether the user may make another request today.
// Pure check: nothing is deducted. Storage failures propagate to the caller.
func (l *Ledger) CheckAllowance(ctx context.Context, userID int64, limit int) (Allowance, error) {
	rec, err := l.current(ctx, userID)
	if err != nil {
		return Allowance{}, err
	}
	return Allowance{Allowed: rec.Used < limit, Used: rec.Used}, nil
}

// Charge records consumption after the fact. The new total saturates at limit
// rather than rejecting: the provider call this charge accounts for has
// already happened. Returns the post-charge used value.
func (l *Ledger) Charge(ctx context.Context, userID int64, amount, limit int) (int, error) {
	if amount < 0 {
		amount = 0
	}

	rec, err := l.current(ctx, userID)
	if err != nil {
		return 0, err
	}

	used := rec.Used + amount
	if used > limit {
		used = limit
	}
	rec.Used = used

	if err := l.store.Put(ctx, rec); err != nil {
		return 0, fmt.Errorf("quota: persist charge: %w", err)
	}

	logger.Debug(ctx, "quota", "charge",
		slog.Int64("user_id", userID),
		slog.Int("amount", amount),
		slog.Int("used", used),
		slog.Int("limit", limit),
		slog.String("day", rec.Day),
	)
	return used, nil
}

// WordCount is the consumption metric: the number of whitespace-separated
// tokens in text. Empty or blank text counts as zero.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
