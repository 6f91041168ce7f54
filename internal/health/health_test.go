package health

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthz(t *testing.T) {
	h := New()
	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("unexpected response %d %q", rec.Code, rec.Body.String())
	}
}

func TestReadyzTransitions(t *testing.T) {
	h := New()

	tests := []struct {
		name string
		set  func()
		code int
	}{
		{"initial", func() {}, http.StatusServiceUnavailable},
		{"ready", h.SetReady, http.StatusOK},
		{"draining", h.SetNotReady, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		tt.set()
		rec := httptest.NewRecorder()
		h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		if rec.Code != tt.code {
			t.Errorf("%s: expected %d, got %d", tt.name, tt.code, rec.Code)
		}
	}
}
