package tutor

import (
	"context"
	"log/slog"
	"time"

	"github.com/hrygo/rod/server/internal/observability"
	"github.com/hrygo/rod/server/timezone"
	"github.com/hrygo/rod/store"
)

// maxStreakSwapAttempts bounds retries when concurrent requests race on the same user.
const maxStreakSwapAttempts = 3

// NextStreak computes the streak after activity on today, given the stored
// streak and last-active date. It reports false when nothing changes.
//
//   - same day: unchanged
//   - the day after last activity: streak+1
//   - never active, a longer gap or an unreadable date: reset to 1
//
// A today earlier than lastActive (clock moved back) is treated as same-day.
func NextStreak(streak int32, lastActive, today string) (int32, bool) {
	if lastActive == today {
		return streak, false
	}
	if lastActive == "" {
		return 1, true
	}

	days, err := timezone.DaysBetween(lastActive, today)
	switch {
	case err != nil:
		return 1, true
	case days <= 0:
		return streak, false
	case days == 1:
		return streak + 1, true
	default:
		return 1, true
	}
}

// StreakTracker records daily activity for users.
type StreakTracker struct {
	store    Store
	location *time.Location
	now      func() time.Time
}

// NewStreakTracker creates a tracker that decides calendar days in location.
func NewStreakTracker(store Store, location *time.Location) *StreakTracker {
	if location == nil {
		location = time.UTC
	}
	return &StreakTracker{
		store:    store,
		location: location,
		now:      time.Now,
	}
}

// Today returns the current calendar date.
func (t *StreakTracker) Today() string {
	return timezone.CalendarDate(t.now(), t.location)
}

// Touch ensures the user exists and records activity for today. Repeated calls on
// the same day are no-ops. It returns the user with the resulting streak.
func (t *StreakTracker) Touch(ctx context.Context, userID string) (*store.User, error) {
	today := t.Today()

	var user *store.User
	for attempt := 0; attempt < maxStreakSwapAttempts; attempt++ {
		var err error
		user, err = t.store.EnsureUser(ctx, &store.User{ID: userID, Level: store.DefaultLevel})
		if err != nil {
			return nil, err
		}

		next, changed := NextStreak(user.Streak, user.LastActiveDate, today)
		if !changed {
			return user, nil
		}

		swapped, err := t.store.SwapUserStreak(ctx, &store.SwapUserStreak{
			ID:                     userID,
			Streak:                 next,
			LastActiveDate:         today,
			ExpectedLastActiveDate: user.LastActiveDate,
		})
		if err != nil {
			return nil, err
		}
		if swapped {
			user.Streak, user.LastActiveDate = next, today
			return user, nil
		}
		// Another request touched the user first; re-read and decide again.
	}

	observability.Logger(ctx).Warn("streak update kept losing races, using stored value",
		slog.String(observability.LogFieldUserID, userID))
	return user, nil
}
