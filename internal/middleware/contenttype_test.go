package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		wantStatus  int
	}{
		{
			name:        "POST with JSON",
			method:      "POST",
			contentType: "application/json",
			body:        `{"name":"Read"}`,
			wantStatus:  http.StatusOK,
		},
		{
			name:        "POST with JSON and charset",
			method:      "POST",
			contentType: "application/json; charset=utf-8",
			body:        `{"name":"Read"}`,
			wantStatus:  http.StatusOK,
		},
		{
			name:       "POST without Content-Type",
			method:     "POST",
			body:       `{"name":"Read"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:        "POST with wrong Content-Type",
			method:      "POST",
			contentType: "text/plain",
			body:        "hello",
			wantStatus:  http.StatusUnsupportedMediaType,
		},
		{
			name:       "GET skips validation",
			method:     "GET",
			wantStatus: http.StatusOK,
		},
		{
			name:       "PUT without body skips validation",
			method:     "PUT",
			wantStatus: http.StatusOK,
		},
		{
			name:       "DELETE skips validation",
			method:     "DELETE",
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			mw := ContentType(handler)

			var body *strings.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			} else {
				body = strings.NewReader("")
			}
			req := httptest.NewRequest(tt.method, "/api/v1/habits", body)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()

			mw.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestMaxRequestSize(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mw := MaxRequestSize(64)(handler)

	t.Run("small body passes", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest("POST", "/api/v1/habits", strings.NewReader("small"))
		w := httptest.NewRecorder()
		mw.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
	})

	t.Run("oversized body rejected", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest("POST", "/api/v1/habits", strings.NewReader(strings.Repeat("x", 128)))
		w := httptest.NewRecorder()
		mw.ServeHTTP(w, req)
		if w.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("Expected status 413, got %d", w.Code)
		}
	})
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mw := SecurityHeaders(false)(handler)

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()

	mw.ServeHTTP(w, req)

	want := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Content-Security-Policy": "default-src 'none'",
	}
	for header, value := range want {
		if got := w.Header().Get(header); got != value {
			t.Errorf("Expected %s=%q, got %q", header, value, got)
		}
	}
	if got := w.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("Expected no HSTS header over plain HTTP, got %q", got)
	}
}
