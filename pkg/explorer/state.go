// Package explorer implements the placename explorer's UI state: which of
// the map, search results and placename card panels is active, the current
// search result, its map markers and the placename card URL.
//
// A State is a value. Every transition (Mount, SubmitSearch,
// SelectPlacename) returns a new State and leaves the receiver untouched, so
// the view layer can hold on to a snapshot while a newer one is computed.
//
// Map mode:
//
//	Initial --Mount--> Map --SubmitSearch--> SearchResults
//	SearchResults --SelectPlacename--> DetailCard
//	DetailCard --SelectPlacename--> DetailCard
//	SearchResults, DetailCard --SubmitSearch--> SearchResults
//
// Without the map, Mount enters DetailCard and only SelectPlacename can
// change the card URL afterwards.
package explorer

import (
	"fmt"

	"github.com/chartes/dicotopo/pkg/jsonapi"
	"github.com/chartes/dicotopo/pkg/log"
)

var logger = log.ForService("explorer")

// Panel identifies the panel currently selected for display.
type Panel int

const (
	PanelInitial Panel = iota
	PanelMap
	PanelSearchResults
	PanelDetailCard
)

func (p Panel) String() string {
	switch p {
	case PanelInitial:
		return "initial"
	case PanelMap:
		return "map"
	case PanelSearchResults:
		return "search-results"
	case PanelDetailCard:
		return "detail-card"
	default:
		return "unknown"
	}
}

// MarshalText renders the panel name in JSON documents.
func (p Panel) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Panel) UnmarshalText(text []byte) error {
	for _, candidate := range []Panel{PanelInitial, PanelMap, PanelSearchResults, PanelDetailCard} {
		if candidate.String() == string(text) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown panel %q", text)
}

// Settings is the host configuration an explorer is built from. It is read
// once when the explorer is created and never changes afterwards.
type Settings struct {
	// PlacenameEndpoint is the placename card URL template containing
	// Placeholder.
	PlacenameEndpoint string
	MapEnabled        bool
	// CardEnabled is carried for the host page; no transition depends on it.
	CardEnabled bool
}

// State is an immutable snapshot of the explorer.
type State struct {
	Settings  Settings
	Active    Panel
	DetailURL string
	Result    *jsonapi.SearchResult
	Markers   []Marker
}

// New returns the initial, not yet mounted, state. The card URL starts as
// the raw endpoint template, which is only renderable when the host already
// resolved it.
func New(settings Settings) State {
	return State{
		Settings:  settings,
		Active:    PanelInitial,
		DetailURL: settings.PlacenameEndpoint,
		Markers:   []Marker{},
	}
}

// Mount performs the first-render transition. With the map the explorer
// waits for a search; without it the lone placename card is shown.
func (s State) Mount() State {
	next := s.clone()
	if s.Settings.MapEnabled {
		if s.Active == PanelInitial {
			next.Active = PanelMap
		}
		return next
	}
	next.Active = PanelDetailCard
	return next
}

// SubmitSearch stores a new search result and shows the results panel. The
// result and its markers replace the previous ones. Without the map there
// is no search UI and the state is returned unchanged.
func (s State) SubmitSearch(result *jsonapi.SearchResult) State {
	if !s.Settings.MapEnabled {
		logger.Debugf("search submitted without map, ignored")
		return s.clone()
	}
	next := s.clone()
	next.Markers = DeriveMarkers(result)
	next.Result = result
	next.Active = PanelSearchResults
	logger.Debugf("search result with %d placename(s), %d marker(s)", result.Count(), len(next.Markers))
	return next
}

// SelectPlacename points the placename card at id and shows it, hiding the
// search results.
func (s State) SelectPlacename(id string) State {
	next := s.clone()
	next.DetailURL = ResolveDetailURL(s.Settings.PlacenameEndpoint, id)
	next.Active = PanelDetailCard
	return next
}

// CardRenderable reports whether the placename card slot renders at all.
func (s State) CardRenderable() bool {
	return DetailRenderable(s.DetailURL)
}

// CardVisible reports whether the placename card is the active panel.
func (s State) CardVisible() bool {
	return s.Active == PanelDetailCard
}

// ResultsRenderable reports whether a search happened at least once.
func (s State) ResultsRenderable() bool {
	return s.Result != nil
}

// ResultsVisible reports whether the mounted results panel is displayed.
func (s State) ResultsVisible() bool {
	return s.Active == PanelSearchResults
}

// ResultCount is the number of placenames in the current search result.
func (s State) ResultCount() int {
	return s.Result.Count()
}

// clone copies the marker slice so the returned state shares no mutable
// storage with the receiver. The search result is never mutated and is
// shared.
func (s State) clone() State {
	next := s
	next.Markers = make([]Marker, len(s.Markers))
	copy(next.Markers, s.Markers)
	return next
}
