package database

import (
	"context"

	"github.com/google/uuid"

	"github.com/x0ba/habithing/internal/dates"
	"github.com/x0ba/habithing/internal/models"
)

// HabitRepositoryInterface defines the interface for habit repository
// operations. It enables mock implementations in handler and worker tests.
type HabitRepositoryInterface interface {
	Create(ctx context.Context, habit *models.Habit) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Habit, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Habit, error)
	Update(ctx context.Context, habit *models.Habit) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CompletionRepositoryInterface defines the interface for completion
// repository operations.
type CompletionRepositoryInterface interface {
	Mark(ctx context.Context, completion *models.Completion) error
	Unmark(ctx context.Context, habitID uuid.UUID, date dates.DateKey) error
	GetDatesByHabit(ctx context.Context, habitID uuid.UUID, start, end dates.DateKey) (map[dates.DateKey]struct{}, error)
	CountsByDate(ctx context.Context, userID uuid.UUID, start, end dates.DateKey) (map[dates.DateKey]int, error)
}

// UserRepositoryInterface defines the interface for user repository
// operations.
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByProviderID(ctx context.Context, providerID string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdateSettings(ctx context.Context, id uuid.UUID, timeZone string, graceMinutes int) error
}

// Ensure concrete types implement the interfaces
var (
	_ HabitRepositoryInterface      = (*HabitRepository)(nil)
	_ CompletionRepositoryInterface = (*CompletionRepository)(nil)
	_ UserRepositoryInterface       = (*UserRepository)(nil)
)
