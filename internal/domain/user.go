package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Default session and notification settings applied to new users.
const (
	DefaultSprintSize             = 5
	DefaultMaxNotificationsPerDay = 3
	DefaultCooldownMinutes        = 240
)

// User-specific validation errors.
var (
	// ErrUserIDEmpty is returned when a user ID is empty or nil.
	ErrUserIDEmpty = errors.New("user ID cannot be empty")

	// ErrInvalidSprintSize is returned when the sprint size is not positive.
	ErrInvalidSprintSize = errors.New("sprint size must be at least 1")

	// ErrInvalidCooldown is returned when the notification cooldown is negative.
	ErrInvalidCooldown = errors.New("notification cooldown cannot be negative")

	// ErrInvalidMaxPerDay is returned when the daily notification cap is not positive.
	ErrInvalidMaxPerDay = errors.New("max notifications per day must be at least 1")

	// ErrInvalidQuietHours is returned when quiet hours are half-configured
	// or not in HH:MM form.
	ErrInvalidQuietHours = errors.New("quiet hours must be a HH:MM start/end pair")
)

// User carries the notification profile and session preferences the
// scheduling core needs. Account identity fields (email, password) live
// outside this core.
type User struct {
	ID                          uuid.UUID  `json:"id"`
	NotificationsEnabled        bool       `json:"notifications_enabled"`
	PushToken                   *string    `json:"push_token"` // nil until a device registers
	NotificationCooldownMinutes int        `json:"notification_cooldown_minutes"`
	MaxNotificationsPerDay      int        `json:"max_notifications_per_day"`
	NotificationsCountToday     int        `json:"notifications_count_today"` // Reset at UTC-day boundary relative to LastPushSentAt
	LastPushSentAt              *time.Time `json:"last_push_sent_at"`
	QuietHoursStart             *string    `json:"quiet_hours_start"` // "HH:MM", requires QuietHoursEnd
	QuietHoursEnd               *string    `json:"quiet_hours_end"`   // "HH:MM", requires QuietHoursStart
	Timezone                    string     `json:"timezone"`          // IANA name, e.g. "Europe/Berlin"
	SprintSize                  int        `json:"sprint_size"`       // Session card cap
	CreatedAt                   time.Time  `json:"created_at"`
	UpdatedAt                   time.Time  `json:"updated_at"`
}

// NewUser creates a User with default notification settings.
func NewUser() *User {
	now := time.Now().UTC()
	return &User{
		ID:                          uuid.New(),
		NotificationsEnabled:        true,
		NotificationCooldownMinutes: DefaultCooldownMinutes,
		MaxNotificationsPerDay:      DefaultMaxNotificationsPerDay,
		SprintSize:                  DefaultSprintSize,
		Timezone:                    "UTC",
		CreatedAt:                   now,
		UpdatedAt:                   now,
	}
}

// Validate checks if the User has valid data.
// Returns an error if any field fails validation.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrUserIDEmpty
	}

	if u.SprintSize < 1 {
		return ErrInvalidSprintSize
	}

	if u.NotificationCooldownMinutes < 0 {
		return ErrInvalidCooldown
	}

	if u.MaxNotificationsPerDay < 1 {
		return ErrInvalidMaxPerDay
	}

	if (u.QuietHoursStart == nil) != (u.QuietHoursEnd == nil) {
		return ErrInvalidQuietHours
	}

	return nil
}

// HasPushToken reports whether the user has a registered, non-empty
// push token.
func (u *User) HasPushToken() bool {
	return u.PushToken != nil && *u.PushToken != ""
}
