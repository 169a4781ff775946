package api

import (
	"net/http"
	"time"

	"github.com/chartes/dicotopo/pkg/explorer"
	"github.com/chartes/dicotopo/pkg/realtime"
	"github.com/chartes/dicotopo/pkg/version"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

func (s *Server) HandleState(w http.ResponseWriter, r *http.Request) {
	_, state, ok := s.sessionState(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, newStateResponse(state))
}

func (s *Server) HandleMarkers(w http.ResponseWriter, r *http.Request) {
	_, state, ok := s.sessionState(w, r)
	if !ok {
		return
	}
	markers := state.Markers
	if markers == nil {
		markers = []explorer.Marker{}
	}
	s.writeJSON(w, http.StatusOK, MarkersResponse{Markers: markers, Count: len(markers)})
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.APIVersion(),
		Sessions:  s.store.Len(),
		Listeners: s.hub.Size(),
	}

	s.writeJSON(w, http.StatusOK, health)
}

// HandleMarkerStream upgrades to a WebSocket, sends the current markers of
// the session and then every marker update published for it.
func (s *Server) HandleMarkerStream(w http.ResponseWriter, r *http.Request) {
	sessionID, state, ok := s.sessionState(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("marker stream upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	listenerID, events := s.hub.Register(sessionID)
	defer s.hub.Unregister(listenerID)
	logger.Debugf("marker stream opened for session %s", sessionID)

	// The reader only handles control frames and notices the client leaving.
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := writeEvent(conn, realtime.NewMarkerEvent(sessionID, state.Markers)); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			logger.Debugf("marker stream closed by client for session %s", sessionID)
			return
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(conn, ev); err != nil {
				logger.Debugf("marker stream write failed: %v", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, ev realtime.MarkerEvent) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ev)
}
