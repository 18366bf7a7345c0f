package request

import (
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/x0ba/habithing/internal/models"
)

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{
			name:    "x-forwarded-for single",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.7"},
			remote:  "10.0.0.1:1234",
			want:    "203.0.113.7",
		},
		{
			name:    "x-forwarded-for chain takes first",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2"},
			remote:  "10.0.0.1:1234",
			want:    "203.0.113.7",
		},
		{
			name:    "x-real-ip fallback",
			headers: map[string]string{"X-Real-IP": " 198.51.100.4 "},
			remote:  "10.0.0.1:1234",
			want:    "198.51.100.4",
		},
		{
			name:   "remote addr strips port",
			remote: "10.0.0.1:1234",
			want:   "10.0.0.1",
		},
		{
			name:   "remote addr without port",
			remote: "10.0.0.1",
			want:   "10.0.0.1",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUserFromContext(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		user := &models.User{ID: uuid.New(), Email: "a@example.com"}
		r := httptest.NewRequest("GET", "/", nil)
		r = r.WithContext(WithUser(r.Context(), user))
		if got := UserFromContext(r); got != user {
			t.Errorf("UserFromContext = %v, want %v", got, user)
		}
	})

	t.Run("missing user returns nil", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest("GET", "/", nil)
		if got := UserFromContext(r); got != nil {
			t.Errorf("UserFromContext = %v, want nil", got)
		}
	})
}
