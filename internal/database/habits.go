package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/x0ba/habithing/internal/models"
	"github.com/x0ba/habithing/internal/schedule"
)

// HabitRepository handles habit database operations. The schedule rule list
// is stored as JSONB in the shape produced by schedule.Rule's JSON tags; that
// shape is the wire contract and must round-trip exactly.
type HabitRepository struct {
	db *DB
}

// NewHabitRepository creates a new habit repository
func NewHabitRepository(db *DB) *HabitRepository {
	return &HabitRepository{db: db}
}

// Create creates a new habit
func (r *HabitRepository) Create(ctx context.Context, habit *models.Habit) error {
	query := `
		INSERT INTO habits (id, user_id, name, schedule, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	scheduleJSON, err := json.Marshal(habit.Schedule)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule: %w", err)
	}

	now := time.Now()
	err = r.db.QueryRowContext(ctx, query,
		habit.ID,
		habit.UserID,
		habit.Name,
		scheduleJSON,
		habit.Position,
		now,
		now,
	).Scan(&habit.CreatedAt, &habit.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create habit: %w", err)
	}

	return nil
}

// GetByID retrieves a habit by ID
func (r *HabitRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Habit, error) {
	habit := &models.Habit{}
	var scheduleJSON []byte

	query := `
		SELECT id, user_id, name, schedule, position, created_at, updated_at
		FROM habits
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&habit.ID,
		&habit.UserID,
		&habit.Name,
		&scheduleJSON,
		&habit.Position,
		&habit.CreatedAt,
		&habit.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("habit not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get habit: %w", err)
	}

	if err := unmarshalSchedule(scheduleJSON, &habit.Schedule); err != nil {
		return nil, err
	}

	return habit, nil
}

// GetByUserID retrieves all habits for a user ordered by their display position
func (r *HabitRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Habit, error) {
	query := `
		SELECT id, user_id, name, schedule, position, created_at, updated_at
		FROM habits
		WHERE user_id = $1
		ORDER BY position ASC, created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query habits: %w", err)
	}
	defer rows.Close()

	var habits []*models.Habit
	for rows.Next() {
		habit := &models.Habit{}
		var scheduleJSON []byte

		err := rows.Scan(
			&habit.ID,
			&habit.UserID,
			&habit.Name,
			&scheduleJSON,
			&habit.Position,
			&habit.CreatedAt,
			&habit.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan habit: %w", err)
		}

		if err := unmarshalSchedule(scheduleJSON, &habit.Schedule); err != nil {
			return nil, err
		}

		habits = append(habits, habit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating habits: %w", err)
	}

	return habits, nil
}

// Update updates an existing habit
func (r *HabitRepository) Update(ctx context.Context, habit *models.Habit) error {
	query := `
		UPDATE habits
		SET name = $2, schedule = $3, position = $4, updated_at = $5
		WHERE id = $1
		RETURNING updated_at
	`

	scheduleJSON, err := json.Marshal(habit.Schedule)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule: %w", err)
	}

	err = r.db.QueryRowContext(ctx, query,
		habit.ID,
		habit.Name,
		scheduleJSON,
		habit.Position,
		time.Now(),
	).Scan(&habit.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("habit not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update habit: %w", err)
	}

	return nil
}

// Delete deletes a habit by ID. Completions are removed by the foreign key
// cascade.
func (r *HabitRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM habits WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete habit: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("habit not found")
	}

	return nil
}

// unmarshalSchedule decodes the stored rule list. A SQL NULL (legacy rows)
// decodes to an empty schedule, which means "never due".
func unmarshalSchedule(raw []byte, rules *[]schedule.Rule) error {
	if len(raw) == 0 {
		*rules = []schedule.Rule{}
		return nil
	}
	if err := json.Unmarshal(raw, rules); err != nil {
		return fmt.Errorf("failed to unmarshal schedule: %w", err)
	}
	if *rules == nil {
		*rules = []schedule.Rule{}
	}
	return nil
}
