package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/x0ba/habithing/internal/cache"
	"github.com/x0ba/habithing/internal/database"
	"github.com/x0ba/habithing/internal/dates"
	"github.com/x0ba/habithing/internal/models"
	"github.com/x0ba/habithing/internal/queue"
	"github.com/x0ba/habithing/internal/request"
	"github.com/x0ba/habithing/internal/schedule"
	"github.com/x0ba/habithing/internal/validation"
	"github.com/x0ba/habithing/internal/workers"
)

const (
	// MaxHabitNameLength is the maximum length for habit names
	MaxHabitNameLength = 200
	// MaxHeatmapRangeDays caps heatmap queries to two years of days
	MaxHeatmapRangeDays = 730
	// StreakRefreshDebounce collapses rapid completion toggles into one
	// streak recomputation
	StreakRefreshDebounce = 5 * time.Second
)

// StreakCacheInterface is the handler's view of the streak cache.
type StreakCacheInterface interface {
	Get(ctx context.Context, habitID uuid.UUID) (int, bool, error)
	Set(ctx context.Context, habitID uuid.UUID, streak int) error
	Invalidate(ctx context.Context, habitID uuid.UUID) error
}

var _ StreakCacheInterface = (*cache.StreakCache)(nil)

// HabitHandler handles habit-related requests
type HabitHandler struct {
	habitRepo      database.HabitRepositoryInterface
	completionRepo database.CompletionRepositoryInterface
	jobQueue       queue.JobQueue
	streakCache    StreakCacheInterface
	lookbackDays   int
	logger         *zap.Logger
}

// NewHabitHandler creates a new habit handler
func NewHabitHandler(
	habitRepo database.HabitRepositoryInterface,
	completionRepo database.CompletionRepositoryInterface,
	jobQueue queue.JobQueue,
	streakCache StreakCacheInterface,
	lookbackDays int,
	logger *zap.Logger,
) *HabitHandler {
	return &HabitHandler{
		habitRepo:      habitRepo,
		completionRepo: completionRepo,
		jobQueue:       jobQueue,
		streakCache:    streakCache,
		lookbackDays:   lookbackDays,
		logger:         logger,
	}
}

// RegisterRoutes registers habit routes on the given router
// The router should already have the /habits prefix
func (h *HabitHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListHabits).Methods("GET")
	r.HandleFunc("", h.CreateHabit).Methods("POST")
	r.HandleFunc("/{id}", h.GetHabit).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateHabit).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteHabit).Methods("DELETE")
	r.HandleFunc("/{id}/completions/{date}", h.MarkCompletion).Methods("PUT")
	r.HandleFunc("/{id}/completions/{date}", h.UnmarkCompletion).Methods("DELETE")
	r.HandleFunc("/{id}/streak", h.GetStreak).Methods("GET")
	r.HandleFunc("/{id}/heatmap", h.GetHeatmap).Methods("GET")
}

// RegisterUserRoutes registers user-scoped aggregate routes on the API root.
func (h *HabitHandler) RegisterUserRoutes(r *mux.Router) {
	r.HandleFunc("/heatmap", h.GetUserHeatmap).Methods("GET")
}

// CreateHabitRequest represents a create habit request
type CreateHabitRequest struct {
	Name     string          `json:"name" validate:"required,min=1,max=200"`
	Schedule []schedule.Rule `json:"schedule"`
	Position *int            `json:"position,omitempty"`
}

// UpdateHabitRequest represents an update habit request
type UpdateHabitRequest struct {
	Name     *string          `json:"name,omitempty"`
	Schedule *[]schedule.Rule `json:"schedule,omitempty"`
	Position *int             `json:"position,omitempty"`
}

// HabitView is a habit decorated with derived display fields.
type HabitView struct {
	*models.Habit
	ScheduleLabel  string `json:"schedule_label"`
	DueToday       bool   `json:"due_today"`
	CompletedToday bool   `json:"completed_today"`
	Streak         int    `json:"streak"`
}

// ListHabitsResponse represents the response for listing habits
type ListHabitsResponse struct {
	Habits []*HabitView  `json:"habits"`
	Today  dates.DateKey `json:"today"`
}

// todayFor resolves the current calendar day for a user's settings.
func todayFor(user *models.User) (dates.DateKey, error) {
	return dates.ToDateKey(time.Now().UnixMilli(), user.TimeZone, user.GraceMinutes)
}

// ListHabits lists habits for the authenticated user, each decorated with
// its schedule label, due/completed state for today, and current streak.
func (h *HabitHandler) ListHabits(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	ctx := r.Context()

	today, err := todayFor(user)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to resolve current day")
		return
	}

	habits, err := h.habitRepo.GetByUserID(ctx, user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve habits")
		return
	}

	views := make([]*HabitView, 0, len(habits))
	for _, habit := range habits {
		view, err := h.buildView(ctx, habit, today)
		if err != nil {
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to build habit view")
			return
		}
		views = append(views, view)
	}

	respondJSON(w, http.StatusOK, ListHabitsResponse{Habits: views, Today: today})
}

func (h *HabitHandler) buildView(ctx context.Context, habit *models.Habit, today dates.DateKey) (*HabitView, error) {
	due, err := schedule.IsDueOn(today, habit.Schedule)
	if err != nil {
		return nil, err
	}

	completed, err := h.completionRepo.GetDatesByHabit(ctx, habit.ID, today, today)
	if err != nil {
		return nil, err
	}
	_, completedToday := completed[today]

	streakValue, err := h.currentStreak(ctx, habit, today)
	if err != nil {
		return nil, err
	}

	return &HabitView{
		Habit:          habit,
		ScheduleLabel:  schedule.FormatRules(habit.Schedule),
		DueToday:       due,
		CompletedToday: completedToday,
		Streak:         streakValue,
	}, nil
}

// currentStreak reads the cached streak, computing and backfilling the
// cache on a miss. Cache errors degrade to a direct computation.
func (h *HabitHandler) currentStreak(ctx context.Context, habit *models.Habit, today dates.DateKey) (int, error) {
	if value, ok, err := h.streakCache.Get(ctx, habit.ID); err == nil && ok {
		return value, nil
	} else if err != nil {
		h.logger.Warn("streak_cache_read_failed", zap.Error(err))
	}

	value, err := workers.ComputeStreak(ctx, h.completionRepo, habit, today, h.lookbackDays)
	if err != nil {
		return 0, err
	}

	if err := h.streakCache.Set(ctx, habit.ID, value); err != nil {
		h.logger.Warn("streak_cache_write_failed", zap.Error(err))
	}
	return value, nil
}

// CreateHabit creates a new habit
func (h *HabitHandler) CreateHabit(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreateHabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldError := range validationErrors {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", fieldError.Error()))
				return
			}
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return
	}

	req.Name = validation.SanitizeText(req.Name)
	if req.Name == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Name is required and cannot be empty after sanitization")
		return
	}
	if len(req.Name) > MaxHabitNameLength {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Name exceeds maximum length of %d characters", MaxHabitNameLength))
		return
	}

	if err := validation.ValidateRules(req.Schedule); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	ctx := r.Context()
	habit := &models.Habit{
		ID:       uuid.New(),
		UserID:   user.ID,
		Name:     req.Name,
		Schedule: req.Schedule,
	}
	if req.Position != nil {
		habit.Position = *req.Position
	}

	if err := h.habitRepo.Create(ctx, habit); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create habit")
		return
	}

	respondJSON(w, http.StatusCreated, habit)
}

// loadOwnedHabit resolves the {id} path variable and enforces ownership.
// On failure it writes the error response and returns nil.
func (h *HabitHandler) loadOwnedHabit(w http.ResponseWriter, r *http.Request, user *models.User) *models.Habit {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid habit ID")
		return nil
	}

	habit, err := h.habitRepo.GetByID(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Habit not found")
		return nil
	}

	if habit.UserID != user.ID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Habit does not belong to user")
		return nil
	}

	return habit
}

// GetHabit retrieves a habit by ID, decorated with derived fields
func (h *HabitHandler) GetHabit(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	habit := h.loadOwnedHabit(w, r, user)
	if habit == nil {
		return
	}

	today, err := todayFor(user)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to resolve current day")
		return
	}

	view, err := h.buildView(r.Context(), habit, today)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to build habit view")
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// UpdateHabit updates a habit's name, schedule, or position
func (h *HabitHandler) UpdateHabit(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	habit := h.loadOwnedHabit(w, r, user)
	if habit == nil {
		return
	}

	var req UpdateHabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	scheduleChanged := false

	if req.Name != nil {
		sanitized := validation.SanitizeText(*req.Name)
		if sanitized == "" {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Name cannot be empty after sanitization")
			return
		}
		if len(sanitized) > MaxHabitNameLength {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Name exceeds maximum length of %d characters", MaxHabitNameLength))
			return
		}
		habit.Name = sanitized
	}
	if req.Schedule != nil {
		if err := validation.ValidateRules(*req.Schedule); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		habit.Schedule = *req.Schedule
		scheduleChanged = true
	}
	if req.Position != nil {
		habit.Position = *req.Position
	}

	ctx := r.Context()
	if err := h.habitRepo.Update(ctx, habit); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update habit")
		return
	}

	if scheduleChanged {
		h.scheduleStreakRefresh(ctx, user.ID, habit.ID)
	}

	respondJSON(w, http.StatusOK, habit)
}

// DeleteHabit deletes a habit and its completions
func (h *HabitHandler) DeleteHabit(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	habit := h.loadOwnedHabit(w, r, user)
	if habit == nil {
		return
	}

	ctx := r.Context()
	if err := h.habitRepo.Delete(ctx, habit.ID); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete habit")
		return
	}

	if err := h.streakCache.Invalidate(ctx, habit.ID); err != nil {
		h.logger.Warn("streak_cache_invalidate_failed", zap.Error(err))
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseDateVar extracts and validates the {date} path variable.
func parseDateVar(w http.ResponseWriter, r *http.Request) (dates.DateKey, bool) {
	date := dates.DateKey(mux.Vars(r)["date"])
	if _, _, _, err := dates.Parse(date); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid date, expected YYYY-MM-DD")
		return "", false
	}
	return date, true
}

// MarkCompletion marks a habit done for a calendar day. Idempotent: marking
// an already-completed day succeeds without effect.
func (h *HabitHandler) MarkCompletion(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	habit := h.loadOwnedHabit(w, r, user)
	if habit == nil {
		return
	}

	date, ok := parseDateVar(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	completion := &models.Completion{
		ID:      uuid.New(),
		HabitID: habit.ID,
		UserID:  user.ID,
		Date:    date,
	}

	if err := h.completionRepo.Mark(ctx, completion); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to mark completion")
		return
	}

	h.invalidateAndRefresh(ctx, user.ID, habit.ID)

	w.WriteHeader(http.StatusNoContent)
}

// UnmarkCompletion removes a completion for a calendar day. Idempotent:
// unmarking a day that was never completed succeeds without effect.
func (h *HabitHandler) UnmarkCompletion(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	habit := h.loadOwnedHabit(w, r, user)
	if habit == nil {
		return
	}

	date, ok := parseDateVar(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	if err := h.completionRepo.Unmark(ctx, habit.ID, date); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to unmark completion")
		return
	}

	h.invalidateAndRefresh(ctx, user.ID, habit.ID)

	w.WriteHeader(http.StatusNoContent)
}

// invalidateAndRefresh drops the cached streak and enqueues a debounced
// refresh. Both are best-effort; reads recompute on a cache miss anyway.
func (h *HabitHandler) invalidateAndRefresh(ctx context.Context, userID, habitID uuid.UUID) {
	if err := h.streakCache.Invalidate(ctx, habitID); err != nil {
		h.logger.Warn("streak_cache_invalidate_failed", zap.Error(err))
	}
	h.scheduleStreakRefresh(ctx, userID, habitID)
}

func (h *HabitHandler) scheduleStreakRefresh(ctx context.Context, userID, habitID uuid.UUID) {
	job := queue.NewStreakRefreshJob(userID, habitID, StreakRefreshDebounce)
	if err := h.jobQueue.Enqueue(ctx, job); err != nil {
		h.logger.Warn("streak_refresh_enqueue_failed",
			zap.String("habit_id", habitID.String()),
			zap.Error(err),
		)
	}
}

// StreakResponse represents a habit's current streak
type StreakResponse struct {
	HabitID uuid.UUID     `json:"habit_id"`
	Streak  int           `json:"streak"`
	AsOf    dates.DateKey `json:"as_of"`
}

// GetStreak returns the habit's current streak
func (h *HabitHandler) GetStreak(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	habit := h.loadOwnedHabit(w, r, user)
	if habit == nil {
		return
	}

	today, err := todayFor(user)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to resolve current day")
		return
	}

	value, err := h.currentStreak(r.Context(), habit, today)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to compute streak")
		return
	}

	respondJSON(w, http.StatusOK, StreakResponse{HabitID: habit.ID, Streak: value, AsOf: today})
}

// HeatmapDay is one cell of a habit heatmap.
type HeatmapDay struct {
	Date      dates.DateKey `json:"date"`
	Due       bool          `json:"due"`
	Completed bool          `json:"completed"`
}

// HeatmapResponse represents a habit heatmap over a date range
type HeatmapResponse struct {
	HabitID uuid.UUID     `json:"habit_id"`
	Start   dates.DateKey `json:"start"`
	End     dates.DateKey `json:"end"`
	Days    []HeatmapDay  `json:"days"`
}

// parseRangeQuery validates the start/end query parameters and the range cap.
func parseRangeQuery(w http.ResponseWriter, r *http.Request) (start, end dates.DateKey, ok bool) {
	start = dates.DateKey(r.URL.Query().Get("start"))
	end = dates.DateKey(r.URL.Query().Get("end"))

	if _, _, _, err := dates.Parse(start); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid start date, expected YYYY-MM-DD")
		return "", "", false
	}
	if _, _, _, err := dates.Parse(end); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid end date, expected YYYY-MM-DD")
		return "", "", false
	}
	// Span is checked on normalized days, not raw strings: a denormalized
	// start like 2023-02-31 sorts before 2023-03-01 but carries past it.
	span, err := dates.DaysBetween(start, end)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid date range")
		return "", "", false
	}
	if span < 0 {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "start must not be after end")
		return "", "", false
	}
	if span >= MaxHeatmapRangeDays {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Date range exceeds %d days", MaxHeatmapRangeDays))
		return "", "", false
	}

	return start, end, true
}

// GetHeatmap returns per-day due and completion state for a habit over a range
func (h *HabitHandler) GetHeatmap(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	habit := h.loadOwnedHabit(w, r, user)
	if habit == nil {
		return
	}

	start, end, ok := parseRangeQuery(w, r)
	if !ok {
		return
	}

	ctx := r.Context()

	days, err := dates.Range(start, end)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid date range")
		return
	}

	scheduled, err := schedule.ScheduledInRange(habit.Schedule, start, end)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to expand schedule")
		return
	}
	due := make(map[dates.DateKey]struct{}, len(scheduled))
	for _, d := range scheduled {
		due[d] = struct{}{}
	}

	completed, err := h.completionRepo.GetDatesByHabit(ctx, habit.ID, start, end)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load completions")
		return
	}

	cells := make([]HeatmapDay, 0, len(days))
	for _, day := range days {
		_, isDue := due[day]
		_, isCompleted := completed[day]
		cells = append(cells, HeatmapDay{Date: day, Due: isDue, Completed: isCompleted})
	}

	respondJSON(w, http.StatusOK, HeatmapResponse{HabitID: habit.ID, Start: start, End: end, Days: cells})
}

// UserHeatmapResponse aggregates completion counts per day across all of a
// user's habits.
type UserHeatmapResponse struct {
	Start  dates.DateKey         `json:"start"`
	End    dates.DateKey         `json:"end"`
	Counts map[dates.DateKey]int `json:"counts"`
}

// GetUserHeatmap returns completion counts per day across all habits
func (h *HabitHandler) GetUserHeatmap(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	start, end, ok := parseRangeQuery(w, r)
	if !ok {
		return
	}

	counts, err := h.completionRepo.CountsByDate(r.Context(), user.ID, start, end)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load completion counts")
		return
	}

	respondJSON(w, http.StatusOK, UserHeatmapResponse{Start: start, End: end, Counts: counts})
}
