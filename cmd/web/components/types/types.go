package types

import "github.com/chartes/dicotopo/pkg/explorer"

// PageData represents data passed to templates
type PageData struct {
	Title       string
	Version     string // Application version (for footer display)
	Query       string // Last submitted search query, echoed in the form
	Error       string // User facing search error, empty when none
	MapEnabled  bool
	CardEnabled bool
	Card        CardData
	Results     *ResultsData // nil until a search happened
	Markers     []explorer.Marker
	SelectPath  string // Prefix the map appends a commune id to
	StreamPath  string // WebSocket endpoint pushing marker updates
}

// CardData describes the placename card slot. An empty URL means the slot
// renders nothing.
type CardData struct {
	URL     string
	Visible bool
}

// ResultsData is the mounted search results panel.
type ResultsData struct {
	Visible bool
	Count   int
	Rows    []ResultRow
}

// ResultRow is one placename of the search result, in payload order.
type ResultRow struct {
	ID          string
	Label       string
	Description string // HTML, rendered without escaping
	Permalink   string
}
