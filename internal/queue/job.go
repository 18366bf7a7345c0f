package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeStreakRefresh recomputes the cached streak for a single habit
	JobTypeStreakRefresh JobType = "streak_refresh"
	// JobTypeUserRefresh recomputes cached streaks for every habit of a user,
	// used after a settings change shifts the user's day boundary
	JobTypeUserRefresh JobType = "user_refresh"
)

// Job represents a job in the queue
type Job struct {
	ID         uuid.UUID  `json:"id"`
	Type       JobType    `json:"type"`
	UserID     uuid.UUID  `json:"user_id"`
	HabitID    *uuid.UUID `json:"habit_id,omitempty"` // Set for streak refresh jobs
	NotBefore  *time.Time `json:"not_before,omitempty"` // Earliest time to process job (nil = immediate)
	NotAfter   *time.Time `json:"not_after,omitempty"`  // Latest time to process job (nil = no expiration)
	CreatedAt  time.Time  `json:"created_at"`
	RetryCount int        `json:"retry_count"`
	MaxRetries int        `json:"max_retries"`
}

// NewJob creates a new job
func NewJob(jobType JobType, userID uuid.UUID, habitID *uuid.UUID) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		UserID:     userID,
		HabitID:    habitID,
		CreatedAt:  time.Now(),
		RetryCount: 0,
		MaxRetries: 3,
	}
}

// NewStreakRefreshJob creates a debounced streak refresh job. The delay lets
// a burst of completion toggles collapse into one recomputation.
func NewStreakRefreshJob(userID, habitID uuid.UUID, debounce time.Duration) *Job {
	job := NewJob(JobTypeStreakRefresh, userID, &habitID)
	if debounce > 0 {
		notBefore := time.Now().Add(debounce)
		job.NotBefore = &notBefore
	}
	return job
}

// ShouldProcess checks if the job should be processed now
func (j *Job) ShouldProcess() bool {
	now := time.Now()

	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}

	if j.NotAfter != nil && now.After(*j.NotAfter) {
		return false
	}

	return true
}

// IsExpired checks if the job has expired
func (j *Job) IsExpired() bool {
	if j.NotAfter == nil {
		return false
	}

	return time.Now().After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
