package dates

import (
	"errors"
	"testing"
	"time"
)

func TestNewAndParse_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		year  int
		month int
		day   int
		want  DateKey
	}{
		{"zero padded", 2024, 1, 5, "2024-01-05"},
		{"end of year", 2023, 12, 31, "2023-12-31"},
		{"leap day", 2024, 2, 29, "2024-02-29"},
		{"single digit month and day", 2025, 3, 7, "2025-03-07"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			key := New(tt.year, tt.month, tt.day)
			if key != tt.want {
				t.Fatalf("New(%d, %d, %d) = %q, want %q", tt.year, tt.month, tt.day, key, tt.want)
			}
			y, m, d, err := Parse(key)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", key, err)
			}
			if y != tt.year || m != tt.month || d != tt.day {
				t.Errorf("Parse(%q) = (%d, %d, %d), want (%d, %d, %d)", key, y, m, d, tt.year, tt.month, tt.day)
			}
		})
	}
}

func TestNew_NormalizesOverflow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		year  int
		month int
		day   int
		want  DateKey
	}{
		{"february 31 carries into march", 2024, 2, 31, "2024-03-02"},
		{"february 31 non leap year", 2023, 2, 31, "2023-03-03"},
		{"month 13 carries into next year", 2024, 13, 1, "2025-01-01"},
		{"day zero borrows from previous month", 2024, 3, 0, "2024-02-29"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := New(tt.year, tt.month, tt.day); got != tt.want {
				t.Errorf("New(%d, %d, %d) = %q, want %q", tt.year, tt.month, tt.day, got, tt.want)
			}
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		key  DateKey
	}{
		{"empty", ""},
		{"too short", "2024-1-5"},
		{"wrong separators", "2024/01/05"},
		{"letters", "2024-ab-cd"},
		{"month zero", "2024-00-10"},
		{"month thirteen", "2024-13-01"},
		{"day zero", "2024-05-00"},
		{"day thirty two", "2024-05-32"},
		{"trailing garbage", "2024-05-011"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, _, _, err := Parse(tt.key); !errors.Is(err, ErrMalformedDateKey) {
				t.Errorf("Parse(%q) error = %v, want ErrMalformedDateKey", tt.key, err)
			}
		})
	}
}

func TestParse_DoesNotCheckMonthLength(t *testing.T) {
	t.Parallel()

	// Day validity against the specific month is intentionally not enforced;
	// such keys normalize in the calendar arithmetic instead.
	y, m, d, err := Parse("2024-02-31")
	if err != nil {
		t.Fatalf("Parse(2024-02-31) returned error: %v", err)
	}
	if y != 2024 || m != 2 || d != 31 {
		t.Errorf("Parse(2024-02-31) = (%d, %d, %d), want (2024, 2, 31)", y, m, d)
	}
}

func TestToDateKey_GracePeriod(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("failed to load timezone: %v", err)
	}

	tests := []struct {
		name         string
		local        time.Time
		graceMinutes int
		want         DateKey
	}{
		{
			name:         "2am with 3h grace lands on previous day",
			local:        time.Date(2024, 3, 1, 2, 0, 0, 0, loc),
			graceMinutes: 180,
			want:         "2024-02-29",
		},
		{
			name:         "4am with 3h grace stays on the same day",
			local:        time.Date(2024, 3, 1, 4, 0, 0, 0, loc),
			graceMinutes: 180,
			want:         "2024-03-01",
		},
		{
			name:         "no grace keeps midnight boundary",
			local:        time.Date(2024, 3, 1, 0, 30, 0, 0, loc),
			graceMinutes: 0,
			want:         "2024-03-01",
		},
		{
			name:         "grace applies across dst spring forward",
			local:        time.Date(2024, 3, 10, 3, 30, 0, 0, loc), // 2:30 does not exist this day
			graceMinutes: 240,
			want:         "2024-03-09",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ToDateKey(tt.local.UnixMilli(), "America/New_York", tt.graceMinutes)
			if err != nil {
				t.Fatalf("ToDateKey returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ToDateKey(%s, grace=%d) = %q, want %q", tt.local, tt.graceMinutes, got, tt.want)
			}
		})
	}
}

func TestToDateKey_InvalidTimeZone(t *testing.T) {
	t.Parallel()

	_, err := ToDateKey(time.Now().UnixMilli(), "Not/AZone", 0)
	if !errors.Is(err, ErrInvalidTimeZone) {
		t.Errorf("ToDateKey with bad zone error = %v, want ErrInvalidTimeZone", err)
	}
}

func TestAddDays_Carry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		key  DateKey
		n    int
		want DateKey
	}{
		{"within month", "2024-01-10", 5, "2024-01-15"},
		{"across month", "2024-01-31", 1, "2024-02-01"},
		{"across leap day", "2024-02-28", 1, "2024-02-29"},
		{"past leap day", "2024-02-28", 2, "2024-03-01"},
		{"non leap february", "2023-02-28", 1, "2023-03-01"},
		{"across year", "2023-12-31", 1, "2024-01-01"},
		{"negative goes backward", "2024-03-01", -1, "2024-02-29"},
		{"zero is identity", "2024-06-15", 0, "2024-06-15"},
		{"large jump", "2024-01-01", 365, "2024-12-31"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := AddDays(tt.key, tt.n)
			if err != nil {
				t.Fatalf("AddDays(%q, %d) returned error: %v", tt.key, tt.n, err)
			}
			if got != tt.want {
				t.Errorf("AddDays(%q, %d) = %q, want %q", tt.key, tt.n, got, tt.want)
			}
		})
	}
}

func TestAddDays_SubDays_Inverse(t *testing.T) {
	t.Parallel()

	keys := []DateKey{"2024-02-29", "2023-01-01", "2024-12-31", "2000-02-28"}
	offsets := []int{1, 7, 31, 365, 366, -42, 0}

	for _, key := range keys {
		for _, n := range offsets {
			sub, err := SubDays(key, n)
			if err != nil {
				t.Fatalf("SubDays(%q, %d) returned error: %v", key, n, err)
			}
			back, err := AddDays(sub, n)
			if err != nil {
				t.Fatalf("AddDays(%q, %d) returned error: %v", sub, n, err)
			}
			if back != key {
				t.Errorf("AddDays(SubDays(%q, %d), %d) = %q, want %q", key, n, n, back, key)
			}
		}
	}
}

func TestDateKey_LexicographicOrderIsChronological(t *testing.T) {
	t.Parallel()

	// Ascending chronological sequence; every pair must compare the same way
	// as strings.
	seq := []DateKey{
		"1999-12-31", "2000-01-01", "2023-09-09", "2023-10-01",
		"2023-12-31", "2024-01-01", "2024-02-09", "2024-02-10", "2024-11-02",
	}
	for i := 0; i < len(seq); i++ {
		for j := i + 1; j < len(seq); j++ {
			if !(seq[i] < seq[j]) {
				t.Errorf("expected %q < %q", seq[i], seq[j])
			}
		}
	}
}

func TestDaysBetween(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		start DateKey
		end   DateKey
		want  int
	}{
		{"same day", "2024-05-01", "2024-05-01", 0},
		{"adjacent days", "2024-05-01", "2024-05-02", 1},
		{"reversed is negative", "2024-05-02", "2024-05-01", -1},
		{"leap year span", "2024-02-01", "2024-03-01", 29},
		{"non leap span", "2023-02-01", "2023-03-01", 28},
		{"across dst transition", "2024-03-09", "2024-03-11", 2},
		{"full year", "2024-01-01", "2025-01-01", 366},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := DaysBetween(tt.start, tt.end)
			if err != nil {
				t.Fatalf("DaysBetween(%q, %q) returned error: %v", tt.start, tt.end, err)
			}
			if got != tt.want {
				t.Errorf("DaysBetween(%q, %q) = %d, want %d", tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestRange(t *testing.T) {
	t.Parallel()

	t.Run("inclusive ascending", func(t *testing.T) {
		t.Parallel()
		got, err := Range("2024-02-27", "2024-03-02")
		if err != nil {
			t.Fatalf("Range returned error: %v", err)
		}
		want := []DateKey{"2024-02-27", "2024-02-28", "2024-02-29", "2024-03-01", "2024-03-02"}
		if len(got) != len(want) {
			t.Fatalf("Range length = %d, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("Range[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	})

	t.Run("single day", func(t *testing.T) {
		t.Parallel()
		got, err := Range("2024-06-15", "2024-06-15")
		if err != nil {
			t.Fatalf("Range returned error: %v", err)
		}
		if len(got) != 1 || got[0] != "2024-06-15" {
			t.Errorf("Range = %v, want [2024-06-15]", got)
		}
	})

	t.Run("start after end is empty", func(t *testing.T) {
		t.Parallel()
		got, err := Range("2024-06-16", "2024-06-15")
		if err != nil {
			t.Fatalf("Range returned error: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("Range = %v, want empty", got)
		}
	})

	t.Run("denormalized start carrying past end is empty", func(t *testing.T) {
		t.Parallel()
		// "2023-02-31" sorts before "2023-03-01" but normalizes to
		// 2023-03-03, which is after it.
		got, err := Range("2023-02-31", "2023-03-01")
		if err != nil {
			t.Fatalf("Range returned error: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("Range = %v, want empty", got)
		}
	})

	t.Run("denormalized start within range normalizes", func(t *testing.T) {
		t.Parallel()
		got, err := Range("2023-02-31", "2023-03-04")
		if err != nil {
			t.Fatalf("Range returned error: %v", err)
		}
		want := []DateKey{"2023-03-03", "2023-03-04"}
		if len(got) != len(want) {
			t.Fatalf("Range = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("Range[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	})

	t.Run("length matches days between plus one", func(t *testing.T) {
		t.Parallel()
		start, end := DateKey("2023-11-05"), DateKey("2024-01-20")
		got, err := Range(start, end)
		if err != nil {
			t.Fatalf("Range returned error: %v", err)
		}
		n, err := DaysBetween(start, end)
		if err != nil {
			t.Fatalf("DaysBetween returned error: %v", err)
		}
		if len(got) != n+1 {
			t.Errorf("Range length = %d, want %d", len(got), n+1)
		}
	})

	t.Run("malformed endpoint", func(t *testing.T) {
		t.Parallel()
		if _, err := Range("2024-06-15", "not-a-date"); !errors.Is(err, ErrMalformedDateKey) {
			t.Errorf("Range error = %v, want ErrMalformedDateKey", err)
		}
	})
}

func TestDayOfWeek(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key  DateKey
		want int
	}{
		{"2024-03-03", 0}, // Sunday
		{"2024-03-04", 1}, // Monday
		{"2024-03-08", 5}, // Friday
		{"2024-03-09", 6}, // Saturday
	}

	for _, tt := range tests {
		got, err := DayOfWeek(tt.key)
		if err != nil {
			t.Fatalf("DayOfWeek(%q) returned error: %v", tt.key, err)
		}
		if got != tt.want {
			t.Errorf("DayOfWeek(%q) = %d, want %d", tt.key, got, tt.want)
		}
	}
}
