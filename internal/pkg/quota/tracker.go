package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/faridopz/repurpose-smart/internal/pkg/api"
	"github.com/faridopz/repurpose-smart/internal/pkg/persistence"
	"github.com/faridopz/repurpose-smart/internal/pkg/utils"
)

// Unlimited marks a plan without a monthly cap
const Unlimited = -1

var limits = map[string]int{
	api.TierFree:       5,
	api.TierPro:        30,
	api.TierEnterprise: Unlimited,
}

// Counters is the persistence surface the tracker needs
type Counters interface {
	LoadQuota(ctx context.Context, userID string) (*persistence.QuotaCounter, error)
	ResetQuota(ctx context.Context, userID string, at time.Time) error
	AddQuotaUsage(ctx context.Context, userID string, count, limit int) (bool, error)
}

// Tracker gates monthly clip generation per user
type Tracker struct {
	db  Counters
	now func() time.Time
}

// NewTracker creates quota tracker
func NewTracker(db Counters) (*Tracker, error) {
	if db == nil {
		return nil, fmt.Errorf("no db")
	}
	return &Tracker{db: db, now: time.Now}, nil
}

// Limit returns the monthly cap for a plan, Unlimited for uncapped ones.
// Unknown plans fall back to the free cap.
func Limit(tier string) int {
	if l, ok := limits[tier]; ok {
		return l
	}
	return limits[api.TierFree]
}

// Use records count generated clips for the user, after a calendar month
// rollover reset if due. Returns ErrQuotaLimit when the cap would be passed.
func (t *Tracker) Use(ctx context.Context, userID, tier string, count int) error {
	limit := Limit(tier)
	if err := t.rolloverIfDue(ctx, userID); err != nil {
		return err
	}
	ok, err := t.db.AddQuotaUsage(ctx, userID, count, limit)
	if err != nil {
		return fmt.Errorf("can't add quota usage: %w", err)
	}
	if !ok {
		return &utils.ErrQuotaLimit{Tier: tier, Limit: limit}
	}
	return nil
}

// Remaining returns clips left this month, Unlimited for uncapped plans
func (t *Tracker) Remaining(ctx context.Context, userID, tier string) (int, error) {
	limit := Limit(tier)
	if limit == Unlimited {
		return Unlimited, nil
	}
	if err := t.rolloverIfDue(ctx, userID); err != nil {
		return 0, err
	}
	q, err := t.db.LoadQuota(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("can't load quota: %w", err)
	}
	used := 0
	if q != nil {
		used = q.ClipsThisMonth
	}
	res := limit - used
	if res < 0 {
		res = 0
	}
	return res, nil
}

func (t *Tracker) rolloverIfDue(ctx context.Context, userID string) error {
	q, err := t.db.LoadQuota(ctx, userID)
	if err != nil {
		return fmt.Errorf("can't load quota: %w", err)
	}
	if q == nil {
		return nil
	}
	now := t.now()
	if sameMonth(q.LastReset, now) {
		return nil
	}
	goapp.Log.Info().Str("user", userID).Msg("monthly quota rollover")
	if err := t.db.ResetQuota(ctx, userID, now); err != nil {
		return fmt.Errorf("can't reset quota: %w", err)
	}
	return nil
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
