package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/x0ba/habithing/internal/cache"
	"github.com/x0ba/habithing/internal/database"
	"github.com/x0ba/habithing/internal/dates"
	"github.com/x0ba/habithing/internal/models"
	"github.com/x0ba/habithing/internal/queue"
	"github.com/x0ba/habithing/internal/schedule"
	"github.com/x0ba/habithing/internal/streak"
)

// StreakStore is the write side of the streak cache.
type StreakStore interface {
	Set(ctx context.Context, habitID uuid.UUID, streak int) error
}

var _ StreakStore = (*cache.StreakCache)(nil)

// StreakRefresher processes streak refresh jobs. It recomputes a habit's
// current streak from its schedule and completion history and writes the
// result into the streak cache.
type StreakRefresher struct {
	habitRepo      database.HabitRepositoryInterface
	completionRepo database.CompletionRepositoryInterface
	userRepo       database.UserRepositoryInterface
	streakCache    StreakStore
	jobQueue       queue.JobQueue
	lookbackDays   int
	logger         *zap.Logger
}

// NewStreakRefresher creates a new streak refresher
func NewStreakRefresher(
	habitRepo database.HabitRepositoryInterface,
	completionRepo database.CompletionRepositoryInterface,
	userRepo database.UserRepositoryInterface,
	streakCache StreakStore,
	jobQueue queue.JobQueue,
	lookbackDays int,
	logger *zap.Logger,
) *StreakRefresher {
	return &StreakRefresher{
		habitRepo:      habitRepo,
		completionRepo: completionRepo,
		userRepo:       userRepo,
		streakCache:    streakCache,
		jobQueue:       jobQueue,
		lookbackDays:   lookbackDays,
		logger:         logger,
	}
}

// ProcessJob dispatches a queue message to the matching job handler and
// settles the delivery. Failed jobs are retried with a short delay until
// their retry budget runs out, then dead-lettered.
func (r *StreakRefresher) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	var err error
	switch job.Type {
	case queue.JobTypeStreakRefresh:
		err = r.ProcessStreakRefreshJob(ctx, job)
	case queue.JobTypeUserRefresh:
		err = r.ProcessUserRefreshJob(ctx, job)
	default:
		r.logger.Warn("unknown_job_type", zap.String("type", string(job.Type)))
		return msg.Nack(false)
	}

	if err == nil {
		return msg.Ack()
	}

	if job.CanRetry() && r.jobQueue != nil {
		job.IncrementRetry()
		notBefore := time.Now().Add(retryDelay)
		job.NotBefore = &notBefore
		if enqErr := r.jobQueue.Enqueue(ctx, job); enqErr != nil {
			r.logger.Error("job_retry_enqueue_failed", zap.Error(enqErr))
			_ = msg.Nack(false)
			return err
		}
		r.logger.Warn("job_retry_scheduled",
			zap.String("job_id", job.ID.String()),
			zap.Int("retry_count", job.RetryCount),
			zap.Error(err),
		)
		_ = msg.Ack()
		return err
	}

	// Retries exhausted: dead-letter the message.
	_ = msg.Nack(false)
	return err
}

const retryDelay = 10 * time.Second

// ProcessStreakRefreshJob recomputes the streak for a single habit.
func (r *StreakRefresher) ProcessStreakRefreshJob(ctx context.Context, job *queue.Job) error {
	if job.HabitID == nil {
		return fmt.Errorf("habit_id is required for streak refresh job")
	}

	habit, err := r.habitRepo.GetByID(ctx, *job.HabitID)
	if err != nil {
		return fmt.Errorf("failed to get habit: %w", err)
	}

	if habit.UserID != job.UserID {
		return fmt.Errorf("habit does not belong to user")
	}

	user, err := r.userRepo.GetByID(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	return r.refreshHabit(ctx, habit, user)
}

// ProcessUserRefreshJob recomputes streaks for every habit of a user.
// Enqueued when a settings change moves the user's day boundary, which can
// shift what "today" means for all of their habits at once.
func (r *StreakRefresher) ProcessUserRefreshJob(ctx context.Context, job *queue.Job) error {
	user, err := r.userRepo.GetByID(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	habits, err := r.habitRepo.GetByUserID(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("failed to list habits: %w", err)
	}

	for _, habit := range habits {
		if err := r.refreshHabit(ctx, habit, user); err != nil {
			r.logger.Warn("habit_streak_refresh_failed",
				zap.String("habit_id", habit.ID.String()),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (r *StreakRefresher) refreshHabit(ctx context.Context, habit *models.Habit, user *models.User) error {
	today, err := dates.ToDateKey(time.Now().UnixMilli(), user.TimeZone, user.GraceMinutes)
	if err != nil {
		return fmt.Errorf("failed to resolve today for user: %w", err)
	}

	value, err := ComputeStreak(ctx, r.completionRepo, habit, today, r.lookbackDays)
	if err != nil {
		return err
	}

	if err := r.streakCache.Set(ctx, habit.ID, value); err != nil {
		return fmt.Errorf("failed to cache streak: %w", err)
	}

	r.logger.Debug("streak_refreshed",
		zap.String("habit_id", habit.ID.String()),
		zap.Int("streak", value),
	)
	return nil
}

// ComputeStreak calculates a habit's current streak as of today, scanning
// at most lookbackDays of history. Shared between the worker and the
// handlers' cache-miss path.
func ComputeStreak(ctx context.Context, completions database.CompletionRepositoryInterface, habit *models.Habit, today dates.DateKey, lookbackDays int) (int, error) {
	start, err := dates.SubDays(today, lookbackDays)
	if err != nil {
		return 0, fmt.Errorf("failed to compute lookback start: %w", err)
	}

	scheduled, err := schedule.ScheduledInRange(habit.Schedule, start, today)
	if err != nil {
		return 0, fmt.Errorf("failed to expand schedule: %w", err)
	}

	completed, err := completions.GetDatesByHabit(ctx, habit.ID, start, today)
	if err != nil {
		return 0, fmt.Errorf("failed to load completions: %w", err)
	}

	return streak.Calculate(scheduled, completed, today), nil
}
