package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"api collection", "/api/arguments", "/api/arguments"},
		{
			name: "api document id collapsed",
			path: "/api/arguments/550e8400-e29b-41d4-a716-446655440000",
			want: "/api/arguments/{id}",
		},
		{"api auth", "/api/auth/login", "/api/auth/login"},
		{"stripe webhook", "/webhooks/stripe", "/webhooks/stripe"},
		{"scanner probe", "/wp-admin/setup.php", "other"},
		{"root", "/", "other"},
		{"dotfile probe", "/.env", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizePath(tt.path); got != tt.want {
				t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestMiddleware_RecordsNormalizedSeries(t *testing.T) {
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	counter := HTTPRequestsTotal.WithLabelValues("GET", "/api/arguments/{id}", "404")
	before := testutil.ToFloat64(counter)

	req := httptest.NewRequest("GET", "/api/arguments/550e8400-e29b-41d4-a716-446655440000", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if got := testutil.ToFloat64(counter); got != before+1 {
		t.Errorf("series count = %v, want %v", got, before+1)
	}
}

func TestMiddleware_SkipsInternalEndpoints(t *testing.T) {
	for _, path := range []string{"/health", "/metrics"} {
		t.Run(path, func(t *testing.T) {
			called := false
			handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			}))

			counter := HTTPRequestsTotal.WithLabelValues("GET", path, "200")
			before := testutil.ToFloat64(counter)

			req := httptest.NewRequest("GET", path, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if !called {
				t.Fatal("request did not reach the handler")
			}
			if got := testutil.ToFloat64(counter); got != before {
				t.Errorf("internal endpoint recorded a series: %v -> %v", before, got)
			}
		})
	}
}

func TestResponseWriter_CapturesFirstStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	if rw.statusCode != http.StatusOK {
		t.Errorf("default status = %d, want %d", rw.statusCode, http.StatusOK)
	}

	rw.WriteHeader(http.StatusPaymentRequired)
	rw.WriteHeader(http.StatusInternalServerError) // superfluous; first wins
	if _, err := rw.Write([]byte("body")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if rw.statusCode != http.StatusPaymentRequired {
		t.Errorf("status = %d, want %d", rw.statusCode, http.StatusPaymentRequired)
	}
	if rw.bytesWritten != 4 {
		t.Errorf("bytesWritten = %d, want 4", rw.bytesWritten)
	}
	if rw.Unwrap() != rec {
		t.Error("Unwrap() did not return the underlying writer")
	}
}
