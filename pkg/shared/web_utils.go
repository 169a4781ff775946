package shared

import (
	"net/http"
	"time"
)

// SessionCookie names the cookie carrying the explorer session id.
const SessionCookie = "dicotopo_session"

// SessionID returns the explorer session id sent with r, or "".
func SessionID(r *http.Request) string {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

// SetSessionCookie stores id in the session cookie. A ttl <= 0 makes it a
// browser-session cookie.
func SetSessionCookie(w http.ResponseWriter, id string, ttl time.Duration) {
	c := &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl > 0 {
		c.MaxAge = int(ttl.Seconds())
	}
	http.SetCookie(w, c)
}
