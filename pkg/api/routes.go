package api

import (
	"net/http"
)

// RegisterRoutes registers the JSON routes. The marker stream is registered
// separately with RegisterStreamRoutes because it must bypass response
// compression.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/state", s.HandleState)
	mux.HandleFunc("GET /api/markers", s.HandleMarkers)
	mux.HandleFunc("GET /health", s.HandleHealth)
}

func (s *Server) RegisterStreamRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/markers/ws", s.HandleMarkerStream)
}
