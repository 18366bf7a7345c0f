package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/x0ba/habithing/internal/dates"
	"github.com/x0ba/habithing/internal/models"
	"github.com/x0ba/habithing/internal/queue"
	"github.com/x0ba/habithing/internal/request"
	"github.com/x0ba/habithing/internal/schedule"
)

type mockHabitRepo struct {
	habits map[uuid.UUID]*models.Habit
}

func (m *mockHabitRepo) Create(ctx context.Context, habit *models.Habit) error {
	m.habits[habit.ID] = habit
	return nil
}

func (m *mockHabitRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Habit, error) {
	habit, ok := m.habits[id]
	if !ok {
		return nil, errors.New("habit not found")
	}
	return habit, nil
}

func (m *mockHabitRepo) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Habit, error) {
	var out []*models.Habit
	for _, h := range m.habits {
		if h.UserID == userID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *mockHabitRepo) Update(ctx context.Context, habit *models.Habit) error {
	m.habits[habit.ID] = habit
	return nil
}

func (m *mockHabitRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(m.habits, id)
	return nil
}

type mockCompletionRepo struct {
	completed map[uuid.UUID]map[dates.DateKey]struct{}
}

func newMockCompletionRepo() *mockCompletionRepo {
	return &mockCompletionRepo{completed: make(map[uuid.UUID]map[dates.DateKey]struct{})}
}

func (m *mockCompletionRepo) Mark(ctx context.Context, c *models.Completion) error {
	if m.completed[c.HabitID] == nil {
		m.completed[c.HabitID] = make(map[dates.DateKey]struct{})
	}
	m.completed[c.HabitID][c.Date] = struct{}{}
	return nil
}

func (m *mockCompletionRepo) Unmark(ctx context.Context, habitID uuid.UUID, date dates.DateKey) error {
	delete(m.completed[habitID], date)
	return nil
}

func (m *mockCompletionRepo) GetDatesByHabit(ctx context.Context, habitID uuid.UUID, start, end dates.DateKey) (map[dates.DateKey]struct{}, error) {
	out := make(map[dates.DateKey]struct{})
	for date := range m.completed[habitID] {
		if date >= start && date <= end {
			out[date] = struct{}{}
		}
	}
	return out, nil
}

func (m *mockCompletionRepo) CountsByDate(ctx context.Context, userID uuid.UUID, start, end dates.DateKey) (map[dates.DateKey]int, error) {
	out := make(map[dates.DateKey]int)
	for _, days := range m.completed {
		for date := range days {
			if date >= start && date <= end {
				out[date]++
			}
		}
	}
	return out, nil
}

type mockJobQueue struct {
	jobs []*queue.Job
}

func (m *mockJobQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	m.jobs = append(m.jobs, job)
	return nil
}

func (m *mockJobQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, errors.New("not implemented")
}

func (m *mockJobQueue) Close() error { return nil }

func (m *mockJobQueue) HealthCheck(ctx context.Context) error { return nil }

type mockStreakCache struct {
	values map[uuid.UUID]int
}

func newMockStreakCache() *mockStreakCache {
	return &mockStreakCache{values: make(map[uuid.UUID]int)}
}

func (m *mockStreakCache) Get(ctx context.Context, habitID uuid.UUID) (int, bool, error) {
	value, ok := m.values[habitID]
	return value, ok, nil
}

func (m *mockStreakCache) Set(ctx context.Context, habitID uuid.UUID, streak int) error {
	m.values[habitID] = streak
	return nil
}

func (m *mockStreakCache) Invalidate(ctx context.Context, habitID uuid.UUID) error {
	delete(m.values, habitID)
	return nil
}

type habitFixture struct {
	handler     *HabitHandler
	habits      *mockHabitRepo
	completions *mockCompletionRepo
	jobs        *mockJobQueue
	streaks     *mockStreakCache
	user        *models.User
	router      *mux.Router
}

func newHabitFixture(t *testing.T) *habitFixture {
	t.Helper()

	f := &habitFixture{
		habits:      &mockHabitRepo{habits: make(map[uuid.UUID]*models.Habit)},
		completions: newMockCompletionRepo(),
		jobs:        &mockJobQueue{},
		streaks:     newMockStreakCache(),
		user:        &models.User{ID: uuid.New(), Email: "test@example.com", TimeZone: "UTC", GraceMinutes: 0},
	}
	f.handler = NewHabitHandler(f.habits, f.completions, f.jobs, f.streaks, 365, zap.NewNop())

	f.router = mux.NewRouter()
	f.handler.RegisterRoutes(f.router.PathPrefix("/api/v1/habits").Subrouter())
	f.handler.RegisterUserRoutes(f.router.PathPrefix("/api/v1").Subrouter())
	return f
}

func (f *habitFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req = req.WithContext(request.WithUser(req.Context(), f.user))
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *habitFixture) addHabit(t *testing.T, rules ...schedule.Rule) *models.Habit {
	t.Helper()

	habit := &models.Habit{
		ID:       uuid.New(),
		UserID:   f.user.ID,
		Name:     "Read",
		Schedule: rules,
	}
	f.habits.habits[habit.ID] = habit
	return habit
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if !envelope.Success {
		t.Fatalf("expected success envelope, body: %s", w.Body.String())
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func TestCreateHabit(t *testing.T) {
	t.Parallel()

	t.Run("valid habit", func(t *testing.T) {
		t.Parallel()

		f := newHabitFixture(t)
		w := f.do(t, "POST", "/api/v1/habits", CreateHabitRequest{
			Name:     "Exercise",
			Schedule: []schedule.Rule{schedule.Weekly(1, 3, 5)},
		})

		if w.Code != http.StatusCreated {
			t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
		}

		var habit models.Habit
		decodeData(t, w, &habit)
		if habit.Name != "Exercise" {
			t.Errorf("Expected name Exercise, got %q", habit.Name)
		}
		if len(habit.Schedule) != 1 || habit.Schedule[0].Kind != schedule.KindWeekly {
			t.Errorf("Expected one weekly rule, got %+v", habit.Schedule)
		}
		if len(f.habits.habits) != 1 {
			t.Errorf("Expected habit persisted, got %d", len(f.habits.habits))
		}
	})

	t.Run("empty name rejected", func(t *testing.T) {
		t.Parallel()

		f := newHabitFixture(t)
		w := f.do(t, "POST", "/api/v1/habits", CreateHabitRequest{Name: ""})

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})

	t.Run("invalid rule rejected", func(t *testing.T) {
		t.Parallel()

		f := newHabitFixture(t)
		w := f.do(t, "POST", "/api/v1/habits", CreateHabitRequest{
			Name:     "Bad",
			Schedule: []schedule.Rule{{Kind: "weekly", Weekdays: []int{7}}},
		})

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400 for weekday out of range, got %d", w.Code)
		}
	})
}

func TestListHabitsDecoration(t *testing.T) {
	t.Parallel()

	f := newHabitFixture(t)
	habit := f.addHabit(t, schedule.Daily())

	today, err := dates.ToDateKey(time.Now().UnixMilli(), f.user.TimeZone, f.user.GraceMinutes)
	if err != nil {
		t.Fatalf("ToDateKey: %v", err)
	}
	if err := f.completions.Mark(context.Background(), &models.Completion{HabitID: habit.ID, Date: today}); err != nil {
		t.Fatalf("Mark: %v", err)
	}

	w := f.do(t, "GET", "/api/v1/habits", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp ListHabitsResponse
	decodeData(t, w, &resp)

	if len(resp.Habits) != 1 {
		t.Fatalf("Expected 1 habit, got %d", len(resp.Habits))
	}
	view := resp.Habits[0]
	if !view.DueToday {
		t.Error("Expected daily habit to be due today")
	}
	if !view.CompletedToday {
		t.Error("Expected habit to be completed today")
	}
	if view.ScheduleLabel != "Every day" {
		t.Errorf("Expected schedule label %q, got %q", "Every day", view.ScheduleLabel)
	}
	if view.Streak < 1 {
		t.Errorf("Expected streak of at least 1, got %d", view.Streak)
	}
}

func TestMarkCompletion(t *testing.T) {
	t.Parallel()

	f := newHabitFixture(t)
	habit := f.addHabit(t, schedule.Daily())

	path := fmt.Sprintf("/api/v1/habits/%s/completions/2024-03-05", habit.ID)

	w := f.do(t, "PUT", path, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d: %s", w.Code, w.Body.String())
	}

	if _, ok := f.completions.completed[habit.ID]["2024-03-05"]; !ok {
		t.Error("Expected completion to be recorded")
	}

	// Idempotent: marking again still succeeds.
	w = f.do(t, "PUT", path, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected repeat mark to return 204, got %d", w.Code)
	}

	if len(f.jobs.jobs) != 2 {
		t.Fatalf("Expected 2 enqueued jobs, got %d", len(f.jobs.jobs))
	}
	job := f.jobs.jobs[0]
	if job.Type != queue.JobTypeStreakRefresh {
		t.Errorf("Expected streak_refresh job, got %s", job.Type)
	}
	if job.HabitID == nil || *job.HabitID != habit.ID {
		t.Errorf("Expected job habit ID %s, got %v", habit.ID, job.HabitID)
	}
	if job.NotBefore == nil {
		t.Error("Expected debounced job to carry NotBefore")
	}
}

func TestMarkCompletionInvalidDate(t *testing.T) {
	t.Parallel()

	f := newHabitFixture(t)
	habit := f.addHabit(t, schedule.Daily())

	for _, date := range []string{"2024-3-05", "20240305", "not-a-date"} {
		w := f.do(t, "PUT", fmt.Sprintf("/api/v1/habits/%s/completions/%s", habit.ID, date), nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("date %q: expected status 400, got %d", date, w.Code)
		}
	}
}

func TestUnmarkCompletion(t *testing.T) {
	t.Parallel()

	f := newHabitFixture(t)
	habit := f.addHabit(t, schedule.Daily())

	if err := f.completions.Mark(context.Background(), &models.Completion{HabitID: habit.ID, Date: "2024-03-05"}); err != nil {
		t.Fatalf("Mark: %v", err)
	}

	path := fmt.Sprintf("/api/v1/habits/%s/completions/2024-03-05", habit.ID)
	w := f.do(t, "DELETE", path, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", w.Code)
	}
	if _, ok := f.completions.completed[habit.ID]["2024-03-05"]; ok {
		t.Error("Expected completion to be removed")
	}

	// Idempotent: unmarking a never-completed day still succeeds.
	w = f.do(t, "DELETE", path, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected repeat unmark to return 204, got %d", w.Code)
	}
}

func TestCompletionInvalidatesStreakCache(t *testing.T) {
	t.Parallel()

	f := newHabitFixture(t)
	habit := f.addHabit(t, schedule.Daily())
	f.streaks.values[habit.ID] = 7

	w := f.do(t, "PUT", fmt.Sprintf("/api/v1/habits/%s/completions/2024-03-05", habit.ID), nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", w.Code)
	}

	if _, ok := f.streaks.values[habit.ID]; ok {
		t.Error("Expected cached streak to be invalidated")
	}
}

func TestHabitOwnership(t *testing.T) {
	t.Parallel()

	f := newHabitFixture(t)

	other := &models.Habit{ID: uuid.New(), UserID: uuid.New(), Name: "Not yours", Schedule: []schedule.Rule{schedule.Daily()}}
	f.habits.habits[other.ID] = other

	for _, tc := range []struct {
		method string
		path   string
	}{
		{"GET", fmt.Sprintf("/api/v1/habits/%s", other.ID)},
		{"DELETE", fmt.Sprintf("/api/v1/habits/%s", other.ID)},
		{"PUT", fmt.Sprintf("/api/v1/habits/%s/completions/2024-03-05", other.ID)},
		{"GET", fmt.Sprintf("/api/v1/habits/%s/streak", other.ID)},
	} {
		w := f.do(t, tc.method, tc.path, nil)
		if w.Code != http.StatusForbidden {
			t.Errorf("%s %s: expected status 403, got %d", tc.method, tc.path, w.Code)
		}
	}
}

func TestGetStreak(t *testing.T) {
	t.Parallel()

	f := newHabitFixture(t)
	habit := f.addHabit(t, schedule.Daily())
	f.streaks.values[habit.ID] = 12

	w := f.do(t, "GET", fmt.Sprintf("/api/v1/habits/%s/streak", habit.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp StreakResponse
	decodeData(t, w, &resp)
	if resp.Streak != 12 {
		t.Errorf("Expected cached streak 12, got %d", resp.Streak)
	}
	if resp.HabitID != habit.ID {
		t.Errorf("Expected habit ID %s, got %s", habit.ID, resp.HabitID)
	}
}

func TestGetHeatmap(t *testing.T) {
	t.Parallel()

	f := newHabitFixture(t)
	// Due on the 31st only: never fires in April.
	habit := f.addHabit(t, schedule.Monthly(31))

	if err := f.completions.Mark(context.Background(), &models.Completion{HabitID: habit.ID, Date: "2024-03-31"}); err != nil {
		t.Fatalf("Mark: %v", err)
	}

	w := f.do(t, "GET", fmt.Sprintf("/api/v1/habits/%s/heatmap?start=2024-03-30&end=2024-04-02", habit.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp HeatmapResponse
	decodeData(t, w, &resp)

	if len(resp.Days) != 4 {
		t.Fatalf("Expected 4 days, got %d", len(resp.Days))
	}
	byDate := make(map[dates.DateKey]HeatmapDay)
	for _, day := range resp.Days {
		byDate[day.Date] = day
	}
	if !byDate["2024-03-31"].Due || !byDate["2024-03-31"].Completed {
		t.Errorf("Expected 2024-03-31 due and completed, got %+v", byDate["2024-03-31"])
	}
	if byDate["2024-04-01"].Due {
		t.Error("Expected day-31 rule to never fire in April")
	}
}

func TestGetHeatmapRangeValidation(t *testing.T) {
	t.Parallel()

	f := newHabitFixture(t)
	habit := f.addHabit(t, schedule.Daily())

	tests := []struct {
		name  string
		query string
	}{
		{"missing start", "end=2024-03-05"},
		{"malformed end", "start=2024-03-01&end=bad"},
		{"start after end", "start=2024-03-05&end=2024-03-01"},
		{"denormalized start carries past end", "start=2023-02-31&end=2023-03-01"},
		{"range too large", "start=2020-01-01&end=2024-01-01"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := f.do(t, "GET", fmt.Sprintf("/api/v1/habits/%s/heatmap?%s", habit.ID, tt.query), nil)
			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", w.Code)
			}
		})
	}
}

func TestGetUserHeatmap(t *testing.T) {
	t.Parallel()

	f := newHabitFixture(t)
	first := f.addHabit(t, schedule.Daily())
	second := f.addHabit(t, schedule.Daily())

	for _, habit := range []*models.Habit{first, second} {
		if err := f.completions.Mark(context.Background(), &models.Completion{HabitID: habit.ID, Date: "2024-03-05"}); err != nil {
			t.Fatalf("Mark: %v", err)
		}
	}

	w := f.do(t, "GET", "/api/v1/heatmap?start=2024-03-01&end=2024-03-07", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp UserHeatmapResponse
	decodeData(t, w, &resp)
	if resp.Counts["2024-03-05"] != 2 {
		t.Errorf("Expected 2 completions on 2024-03-05, got %d", resp.Counts["2024-03-05"])
	}
}

func TestUpdateHabitScheduleEnqueuesRefresh(t *testing.T) {
	t.Parallel()

	f := newHabitFixture(t)
	habit := f.addHabit(t, schedule.Daily())

	newSchedule := []schedule.Rule{schedule.Weekly(0, 6)}
	w := f.do(t, "PATCH", fmt.Sprintf("/api/v1/habits/%s", habit.ID), UpdateHabitRequest{Schedule: &newSchedule})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	if len(f.jobs.jobs) != 1 || f.jobs.jobs[0].Type != queue.JobTypeStreakRefresh {
		t.Errorf("Expected a streak refresh job after schedule change, got %+v", f.jobs.jobs)
	}

	stored := f.habits.habits[habit.ID]
	if len(stored.Schedule) != 1 || stored.Schedule[0].Kind != schedule.KindWeekly {
		t.Errorf("Expected stored schedule updated, got %+v", stored.Schedule)
	}
}

func TestUnauthenticatedRequest(t *testing.T) {
	t.Parallel()

	f := newHabitFixture(t)

	// No user injected into context.
	req := httptest.NewRequest("GET", "/api/v1/habits", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}
