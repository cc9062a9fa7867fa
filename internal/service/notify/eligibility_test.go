package notify_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprintdeck/sprintdeck-api/internal/domain"
	"github.com/sprintdeck/sprintdeck-api/internal/service/notify"
)

func strPtr(s string) *string { return &s }

// notifiableUser returns a user that passes every eligibility rule.
func notifiableUser() *domain.User {
	u := domain.NewUser()
	u.PushToken = strPtr("ExponentPushToken[abc123]")
	return u
}

func TestEvaluateShortCircuitOrder(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	lastSent := now.Add(-10 * time.Minute)

	tests := []struct {
		name      string
		mutate    func(u *domain.User)
		resumable bool
		want      notify.IneligibilityReason
	}{
		{
			name: "disabled wins over everything",
			mutate: func(u *domain.User) {
				u.NotificationsEnabled = false
				u.PushToken = nil
				u.LastPushSentAt = &lastSent
			},
			resumable: true,
			want:      notify.ReasonNotificationsDisabled,
		},
		{
			name: "missing token wins over resumable sprint",
			mutate: func(u *domain.User) {
				u.PushToken = nil
				u.LastPushSentAt = &lastSent
			},
			resumable: true,
			want:      notify.ReasonNoPushToken,
		},
		{
			name: "empty token counts as missing",
			mutate: func(u *domain.User) {
				u.PushToken = strPtr("")
			},
			want: notify.ReasonNoPushToken,
		},
		{
			name:      "resumable sprint wins over quiet hours",
			resumable: true,
			mutate: func(u *domain.User) {
				u.QuietHoursStart = strPtr("00:00")
				u.QuietHoursEnd = strPtr("23:59")
			},
			want: notify.ReasonResumableSprintExists,
		},
		{
			name: "quiet hours win over cooldown",
			mutate: func(u *domain.User) {
				u.QuietHoursStart = strPtr("11:00")
				u.QuietHoursEnd = strPtr("13:00")
				u.LastPushSentAt = &lastSent
			},
			want: notify.ReasonQuietHoursActive,
		},
		{
			name: "cooldown wins over daily quota",
			mutate: func(u *domain.User) {
				u.LastPushSentAt = &lastSent
				u.NotificationsCountToday = u.MaxNotificationsPerDay
			},
			want: notify.ReasonCooldownActive,
		},
		{
			name: "daily quota is checked last",
			mutate: func(u *domain.User) {
				earlier := now.Add(-5 * time.Hour)
				u.LastPushSentAt = &earlier
				u.NotificationsCountToday = u.MaxNotificationsPerDay
			},
			want: notify.ReasonMaxPerDayReached,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			user := notifiableUser()
			if tt.mutate != nil {
				tt.mutate(user)
			}

			decision := notify.Evaluate(user, tt.resumable, now)
			assert.False(t, decision.Eligible)
			assert.Equal(t, tt.want, decision.Reason)
		})
	}
}

func TestEvaluateEligible(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	user := notifiableUser()
	fiveHoursAgo := now.Add(-5 * time.Hour)
	user.LastPushSentAt = &fiveHoursAgo
	user.NotificationsCountToday = 1

	decision := notify.Evaluate(user, false, now)
	assert.True(t, decision.Eligible)
	assert.Empty(t, decision.Reason)
	require.NotNil(t, decision.NextEligibleAt)
	assert.Equal(t, now, *decision.NextEligibleAt, "an eligible user can be notified immediately")
}

func TestEvaluateQuietHoursMidnightWrap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		now     time.Time
		blocked bool
	}{
		{"late evening inside window", time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC), true},
		{"early morning inside window", time.Date(2026, 3, 1, 6, 30, 0, 0, time.UTC), true},
		{"midday outside window", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), false},
		{"exactly at start is blocked", time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC), true},
		{"exactly at end is allowed", time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			user := notifiableUser()
			user.QuietHoursStart = strPtr("22:00")
			user.QuietHoursEnd = strPtr("07:00")

			decision := notify.Evaluate(user, false, tt.now)
			if tt.blocked {
				assert.Equal(t, notify.ReasonQuietHoursActive, decision.Reason)
				require.NotNil(t, decision.NextEligibleAt)
				assert.True(t, decision.NextEligibleAt.After(tt.now))
			} else {
				assert.True(t, decision.Eligible)
			}
		})
	}
}

func TestEvaluateQuietHoursUserTimezone(t *testing.T) {
	t.Parallel()

	// 2026-03-01 is before the DST switch, so New York is UTC-5 and
	// 03:30 UTC is 22:30 local, inside a 22:00-07:00 window.
	user := notifiableUser()
	user.Timezone = "America/New_York"
	user.QuietHoursStart = strPtr("22:00")
	user.QuietHoursEnd = strPtr("07:00")

	blocked := notify.Evaluate(user, false, time.Date(2026, 3, 1, 3, 30, 0, 0, time.UTC))
	assert.Equal(t, notify.ReasonQuietHoursActive, blocked.Reason)

	// 17:00 UTC is midday local.
	open := notify.Evaluate(user, false, time.Date(2026, 3, 1, 17, 0, 0, 0, time.UTC))
	assert.True(t, open.Eligible)
}

func TestEvaluateCooldownNextEligibleAt(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	user := notifiableUser()
	lastSent := now.Add(-time.Hour)
	user.LastPushSentAt = &lastSent
	user.NotificationCooldownMinutes = 240

	decision := notify.Evaluate(user, false, now)
	assert.Equal(t, notify.ReasonCooldownActive, decision.Reason)
	require.NotNil(t, decision.NextEligibleAt)
	assert.Equal(t, lastSent.Add(4*time.Hour), *decision.NextEligibleAt)
}

func TestEvaluateDailyQuotaResetsAtUTCMidnight(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Quota hit earlier the same UTC day blocks until midnight.
	user := notifiableUser()
	sameDay := now.Add(-6 * time.Hour)
	user.LastPushSentAt = &sameDay
	user.NotificationsCountToday = user.MaxNotificationsPerDay

	decision := notify.Evaluate(user, false, now)
	assert.Equal(t, notify.ReasonMaxPerDayReached, decision.Reason)
	require.NotNil(t, decision.NextEligibleAt)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), *decision.NextEligibleAt)

	// The same counter from the previous UTC day is stale and ignored.
	yesterday := now.Add(-24 * time.Hour)
	user.LastPushSentAt = &yesterday

	decision = notify.Evaluate(user, false, now)
	assert.True(t, decision.Eligible)
}
