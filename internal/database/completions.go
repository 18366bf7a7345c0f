package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/x0ba/habithing/internal/dates"
	"github.com/x0ba/habithing/internal/models"
)

// CompletionRepository handles completion-record database operations. Dates
// are stored as the DateKey text itself; since DateKeys sort
// lexicographically in chronological order, plain BETWEEN / ORDER BY on the
// text column is correct.
type CompletionRepository struct {
	db *DB
}

// NewCompletionRepository creates a new completion repository
func NewCompletionRepository(db *DB) *CompletionRepository {
	return &CompletionRepository{db: db}
}

// Mark records a completion for (habit, date). Marking an already-completed
// day is a no-op: the unique constraint on (habit_id, date) keeps at most one
// completion per pair.
func (r *CompletionRepository) Mark(ctx context.Context, completion *models.Completion) error {
	query := `
		INSERT INTO completions (id, habit_id, user_id, date, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (habit_id, date) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query,
		completion.ID,
		completion.HabitID,
		completion.UserID,
		string(completion.Date),
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to mark completion: %w", err)
	}

	return nil
}

// Unmark removes the completion for (habit, date) if one exists. Removing a
// day that was never marked is not an error.
func (r *CompletionRepository) Unmark(ctx context.Context, habitID uuid.UUID, date dates.DateKey) error {
	query := `DELETE FROM completions WHERE habit_id = $1 AND date = $2`

	if _, err := r.db.ExecContext(ctx, query, habitID, string(date)); err != nil {
		return fmt.Errorf("failed to unmark completion: %w", err)
	}

	return nil
}

// GetDatesByHabit returns the set of completed dates for a habit within
// [start, end], as a membership set keyed by DateKey.
func (r *CompletionRepository) GetDatesByHabit(ctx context.Context, habitID uuid.UUID, start, end dates.DateKey) (map[dates.DateKey]struct{}, error) {
	query := `
		SELECT date
		FROM completions
		WHERE habit_id = $1 AND date >= $2 AND date <= $3
	`

	rows, err := r.db.QueryContext(ctx, query, habitID, string(start), string(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query completions: %w", err)
	}
	defer rows.Close()

	completed := make(map[dates.DateKey]struct{})
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, fmt.Errorf("failed to scan completion date: %w", err)
		}
		completed[dates.DateKey(date)] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating completions: %w", err)
	}

	return completed, nil
}

// CountsByDate returns completion counts per date across all of a user's
// habits within [start, end], for heatmap rendering.
func (r *CompletionRepository) CountsByDate(ctx context.Context, userID uuid.UUID, start, end dates.DateKey) (map[dates.DateKey]int, error) {
	query := `
		SELECT date, COUNT(*)
		FROM completions
		WHERE user_id = $1 AND date >= $2 AND date <= $3
		GROUP BY date
	`

	rows, err := r.db.QueryContext(ctx, query, userID, string(start), string(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query completion counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[dates.DateKey]int)
	for rows.Next() {
		var date string
		var count int
		if err := rows.Scan(&date, &count); err != nil {
			return nil, fmt.Errorf("failed to scan completion count: %w", err)
		}
		counts[dates.DateKey(date)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating completion counts: %w", err)
	}

	return counts, nil
}
