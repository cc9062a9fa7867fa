package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sprintdeck/sprintdeck-api/internal/domain"
	"github.com/sprintdeck/sprintdeck-api/internal/store"
)

// IneligibilityReason identifies which rule blocked a notification.
type IneligibilityReason string

// Reasons, in evaluation order. The first failing rule wins.
const (
	ReasonNotificationsDisabled IneligibilityReason = "NOTIFICATIONS_DISABLED"
	ReasonNoPushToken           IneligibilityReason = "NO_PUSH_TOKEN"
	ReasonResumableSprintExists IneligibilityReason = "RESUMABLE_SPRINT_EXISTS"
	ReasonQuietHoursActive      IneligibilityReason = "QUIET_HOURS_ACTIVE"
	ReasonCooldownActive        IneligibilityReason = "COOLDOWN_ACTIVE"
	ReasonMaxPerDayReached      IneligibilityReason = "MAX_PER_DAY_REACHED"
)

// Decision is the outcome of an eligibility evaluation. When Eligible is
// false, Reason names the first failing rule and NextEligibleAt carries
// the earliest retry time for time-based rules (nil when the block has
// no predictable end, like a missing token). When Eligible is true,
// NextEligibleAt is the evaluation instant.
type Decision struct {
	Eligible       bool
	Reason         IneligibilityReason
	NextEligibleAt *time.Time
}

// Evaluator runs the eligibility rules for one user. The rules are
// evaluated in a fixed order and the first failure short-circuits.
type Evaluator struct {
	sprints store.SprintStore
}

// NewEvaluator creates an Evaluator backed by the given sprint store.
func NewEvaluator(sprints store.SprintStore) *Evaluator {
	if sprints == nil {
		panic("sprints cannot be nil")
	}
	return &Evaluator{sprints: sprints}
}

// Check evaluates all rules for the user at the given instant. The
// resumable-sprint rule needs a store read; everything else is pure.
func (e *Evaluator) Check(ctx context.Context, user *domain.User, now time.Time) (Decision, error) {
	hasResumable := false
	_, err := e.sprints.GetResumableForUser(ctx, user.ID, now)
	switch {
	case err == nil:
		hasResumable = true
	case errors.Is(err, store.ErrSprintNotFound):
	default:
		return Decision{}, fmt.Errorf("failed to check resumable sprint: %w", err)
	}

	return Evaluate(user, hasResumable, now), nil
}

// Evaluate applies the eligibility rules without touching any store.
// Exported for table-driven testing of individual rules.
func Evaluate(user *domain.User, hasResumableSprint bool, now time.Time) Decision {
	if !user.NotificationsEnabled {
		return Decision{Reason: ReasonNotificationsDisabled}
	}

	if !user.HasPushToken() {
		return Decision{Reason: ReasonNoPushToken}
	}

	if hasResumableSprint {
		return Decision{Reason: ReasonResumableSprintExists}
	}

	if until, in := quietHoursUntil(user, now); in {
		return Decision{Reason: ReasonQuietHoursActive, NextEligibleAt: &until}
	}

	if user.LastPushSentAt != nil && user.NotificationCooldownMinutes > 0 {
		cooldownEnds := user.LastPushSentAt.Add(time.Duration(user.NotificationCooldownMinutes) * time.Minute)
		if cooldownEnds.After(now) {
			return Decision{Reason: ReasonCooldownActive, NextEligibleAt: &cooldownEnds}
		}
	}

	if sentToday(user, now) >= user.MaxNotificationsPerDay {
		midnight := nextUTCMidnight(now)
		return Decision{Reason: ReasonMaxPerDayReached, NextEligibleAt: &midnight}
	}

	return Decision{Eligible: true, NextEligibleAt: &now}
}

// sentToday returns the effective daily count: the stored counter if the
// last send happened on the current UTC day, otherwise zero. The counter
// is reset lazily at send time rather than by a scheduled job.
func sentToday(user *domain.User, now time.Time) int {
	if user.LastPushSentAt == nil {
		return 0
	}
	last := user.LastPushSentAt.UTC()
	nowUTC := now.UTC()
	if last.Year() == nowUTC.Year() && last.YearDay() == nowUTC.YearDay() {
		return user.NotificationsCountToday
	}
	return 0
}

func nextUTCMidnight(now time.Time) time.Time {
	n := now.UTC()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}

// quietHoursUntil reports whether now falls inside the user's quiet
// hours, evaluated in the user's timezone, and if so when they end. The
// window is [start, end): a send exactly at the end boundary is allowed.
// A window whose end is not after its start wraps past midnight
// (22:00-07:00 covers late evening through early morning).
func quietHoursUntil(user *domain.User, now time.Time) (time.Time, bool) {
	if user.QuietHoursStart == nil || user.QuietHoursEnd == nil {
		return time.Time{}, false
	}

	loc, err := time.LoadLocation(user.Timezone)
	if err != nil {
		// Unresolvable timezone falls back to UTC rather than dropping
		// the quiet-hours protection entirely.
		loc = time.UTC
	}

	startH, startM, err := parseClock(*user.QuietHoursStart)
	if err != nil {
		return time.Time{}, false
	}
	endH, endM, err := parseClock(*user.QuietHoursEnd)
	if err != nil {
		return time.Time{}, false
	}

	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), startH, startM, 0, 0, loc)
	end := time.Date(local.Year(), local.Month(), local.Day(), endH, endM, 0, 0, loc)

	if !end.After(start) {
		// Wrapping window: tonight's start pairs with tomorrow's end,
		// and this morning pairs with yesterday's start.
		if !local.Before(start) {
			return end.AddDate(0, 0, 1).UTC(), true
		}
		if local.Before(end) {
			return end.UTC(), true
		}
		return time.Time{}, false
	}

	if !local.Before(start) && local.Before(end) {
		return end.UTC(), true
	}
	return time.Time{}, false
}

func parseClock(s string) (hour, minute int, err error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%02d:%02d", &h, &m); err != nil {
		return 0, 0, err
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("clock value out of range: %q", s)
	}
	return h, m, nil
}
