package streak

import (
	"testing"

	"github.com/x0ba/habithing/internal/dates"
)

func keys(ks ...dates.DateKey) []dates.DateKey { return ks }

func set(ks ...dates.DateKey) map[dates.DateKey]struct{} {
	m := make(map[dates.DateKey]struct{}, len(ks))
	for _, k := range ks {
		m[k] = struct{}{}
	}
	return m
}

func TestCalculate(t *testing.T) {
	t.Parallel()

	daily := keys("2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05")

	tests := []struct {
		name      string
		scheduled []dates.DateKey
		completed map[dates.DateKey]struct{}
		today     dates.DateKey
		want      int
	}{
		{
			name:      "no scheduled dates",
			scheduled: nil,
			completed: set("2024-01-01"),
			today:     "2024-01-05",
			want:      0,
		},
		{
			name:      "single scheduled and completed day",
			scheduled: keys("2024-01-01"),
			completed: set("2024-01-01"),
			today:     "2024-01-01",
			want:      1,
		},
		{
			name:      "single scheduled day not completed and in the past",
			scheduled: keys("2024-01-01"),
			completed: set(),
			today:     "2024-01-05",
			want:      0,
		},
		{
			name:      "all days completed",
			scheduled: daily,
			completed: set("2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"),
			today:     "2024-01-05",
			want:      5,
		},
		{
			name:      "gap before today breaks the streak",
			scheduled: daily,
			completed: set("2024-01-01", "2024-01-02", "2024-01-03", "2024-01-05"),
			today:     "2024-01-05",
			want:      1,
		},
		{
			name:      "unfinished today is skipped not broken",
			scheduled: daily,
			completed: set("2024-01-01", "2024-01-02", "2024-01-03"),
			today:     "2024-01-04",
			want:      3,
		},
		{
			name:      "unfinished today then miss yesterday",
			scheduled: keys("2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"),
			completed: set("2024-01-02", "2024-01-04"),
			today:     "2024-01-05",
			want:      1,
		},
		{
			name:      "scheduled dates after today are ignored",
			scheduled: daily,
			completed: set("2024-01-01", "2024-01-02", "2024-01-03"),
			today:     "2024-01-03",
			want:      3,
		},
		{
			name:      "completion without matching scheduled day does not count",
			scheduled: keys("2024-01-01", "2024-01-03"),
			completed: set("2024-01-01", "2024-01-02", "2024-01-03"),
			today:     "2024-01-03",
			want:      2,
		},
		{
			name:      "weekly cadence ignores unscheduled gaps",
			scheduled: keys("2024-03-04", "2024-03-11", "2024-03-18"),
			completed: set("2024-03-04", "2024-03-11", "2024-03-18"),
			today:     "2024-03-20",
			want:      3,
		},
		{
			name:      "today not scheduled leaves past streak intact",
			scheduled: keys("2024-01-01", "2024-01-02"),
			completed: set("2024-01-01", "2024-01-02"),
			today:     "2024-01-04",
			want:      2,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Calculate(tt.scheduled, tt.completed, tt.today); got != tt.want {
				t.Errorf("Calculate = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCalculate_Idempotent(t *testing.T) {
	t.Parallel()

	scheduled := keys("2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05")
	completed := set("2024-01-01", "2024-01-02", "2024-01-03", "2024-01-05")

	first := Calculate(scheduled, completed, "2024-01-05")
	for i := 0; i < 10; i++ {
		if got := Calculate(scheduled, completed, "2024-01-05"); got != first {
			t.Fatalf("recomputation %d = %d, want %d", i, got, first)
		}
	}
}
