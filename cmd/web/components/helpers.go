package components

import (
	"encoding/json"
	"fmt"

	"github.com/chartes/dicotopo/pkg/explorer"
)

// CountLabel is the result count line shown above the results table.
func CountLabel(n int) string {
	return fmt.Sprintf("%d résultat(s)", n)
}

// MarkersJSON encodes markers for the map's data attribute. It never
// returns "null" so the map script can iterate unconditionally.
func MarkersJSON(markers []explorer.Marker) string {
	if markers == nil {
		markers = []explorer.Marker{}
	}
	b, err := json.Marshal(markers)
	if err != nil {
		return "[]"
	}
	return string(b)
}
