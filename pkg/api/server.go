package api

import (
	"encoding/json"
	"net/http"

	"github.com/chartes/dicotopo/pkg/explorer"
	"github.com/chartes/dicotopo/pkg/log"
	"github.com/chartes/dicotopo/pkg/realtime"
	"github.com/chartes/dicotopo/pkg/session"
	"github.com/chartes/dicotopo/pkg/shared"
)

var logger = log.ForService("api")

type Server struct {
	store *session.Store
	hub   *realtime.MarkerHub
}

func NewServer(store *session.Store, hub *realtime.MarkerHub) *Server {
	return &Server{
		store: store,
		hub:   hub,
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, error, message string) {
	response := ErrorResponse{
		Error:   error,
		Message: message,
	}
	s.writeJSON(w, status, response)
}

// sessionState resolves the session of r, writing a 404 when it is
// missing or expired.
func (s *Server) sessionState(w http.ResponseWriter, r *http.Request) (string, explorer.State, bool) {
	id := shared.SessionID(r)
	if id == "" {
		s.writeError(w, http.StatusNotFound, "Session not found", "No explorer session cookie, load the explorer page first")
		return "", explorer.State{}, false
	}
	state, ok := s.store.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "Session not found", "The explorer session expired, reload the explorer page")
		return "", explorer.State{}, false
	}
	return id, state, true
}

func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
