package shared

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSessionCookieRoundTrip(t *testing.T) {
	w := httptest.NewRecorder()
	SetSessionCookie(w, "abc", 30*time.Minute)

	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != SessionCookie || c.Value != "abc" || !c.HttpOnly || c.MaxAge != 1800 {
		t.Errorf("unexpected cookie %+v", c)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(c)
	if got := SessionID(r); got != "abc" {
		t.Errorf("SessionID = %q, want abc", got)
	}
}

func TestSessionIDMissing(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := SessionID(r); got != "" {
		t.Errorf("expected empty id, got %q", got)
	}
}
