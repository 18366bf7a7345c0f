package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/x0ba/habithing/internal/schedule"
)

// Habit is a recurring habit owned by a user. Schedule is an ordered list of
// recurrence rules; the order only affects display, evaluation is an OR
// across rules and an empty list means the habit is never due.
type Habit struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Name      string          `json:"name"`
	Schedule  []schedule.Rule `json:"schedule"`
	Position  int             `json:"position"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
