package api

import (
	"time"

	"github.com/chartes/dicotopo/pkg/explorer"
)

type StateResponse struct {
	Panel          explorer.Panel    `json:"panel"`
	MapEnabled     bool              `json:"map_enabled"`
	CardEnabled    bool              `json:"card_enabled"`
	DetailURL      string            `json:"detail_url,omitempty"`
	CardRenderable bool              `json:"card_renderable"`
	CardVisible    bool              `json:"card_visible"`
	HasResults     bool              `json:"has_results"`
	ResultsVisible bool              `json:"results_visible"`
	ResultCount    int               `json:"result_count"`
	Markers        []explorer.Marker `json:"markers"`
}

type MarkersResponse struct {
	Markers []explorer.Marker `json:"markers"`
	Count   int               `json:"count"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Sessions  int       `json:"sessions"`
	Listeners int       `json:"listeners"`
}

func newStateResponse(state explorer.State) StateResponse {
	resp := StateResponse{
		Panel:          state.Active,
		MapEnabled:     state.Settings.MapEnabled,
		CardEnabled:    state.Settings.CardEnabled,
		CardRenderable: state.CardRenderable(),
		CardVisible:    state.CardVisible(),
		HasResults:     state.ResultsRenderable(),
		ResultsVisible: state.ResultsVisible(),
		ResultCount:    state.ResultCount(),
		Markers:        state.Markers,
	}
	if resp.CardRenderable {
		resp.DetailURL = state.DetailURL
	}
	if resp.Markers == nil {
		resp.Markers = []explorer.Marker{}
	}
	return resp
}
