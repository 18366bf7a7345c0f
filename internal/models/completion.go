package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/x0ba/habithing/internal/dates"
)

// Completion records that a habit was marked done for one calendar day.
// There is at most one completion per (habit, date) pair; existence is the
// whole meaning, there is no quantity attached.
type Completion struct {
	ID        uuid.UUID      `json:"id"`
	HabitID   uuid.UUID      `json:"habit_id"`
	UserID    uuid.UUID      `json:"user_id"`
	Date      dates.DateKey  `json:"date"`
	CreatedAt time.Time      `json:"created_at"`
}
