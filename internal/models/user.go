package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultGraceMinutes extends a user's day boundary to 3:00 AM local time,
// so late-night completions count toward the previous calendar day.
const DefaultGraceMinutes = 180

// User represents a user in the system. TimeZone and GraceMinutes control
// how instants are projected onto calendar days for this user's habits.
type User struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	ProviderID    *string   `json:"provider_id,omitempty"`
	Name          *string   `json:"name,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	TimeZone      string    `json:"time_zone"`
	GraceMinutes  int       `json:"grace_minutes"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
