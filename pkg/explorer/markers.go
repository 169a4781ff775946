package explorer

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/chartes/dicotopo/pkg/jsonapi"
)

// ErrMalformedLongLat is returned by ParseLongLat when the value is not a
// "(lat, long)" pair.
var ErrMalformedLongLat = errors.New("malformed longlat")

// Marker is a map marker for a commune. Position is stored as
// [longitude, latitude], the reverse of the backend's longlat encoding.
type Marker struct {
	Position  [2]float64 `json:"position"`
	CommuneID string     `json:"communeId"`
	Title     string     `json:"title"`
}

// Longitude returns the first component of the position.
func (m Marker) Longitude() float64 { return m.Position[0] }

// Latitude returns the second component of the position.
func (m Marker) Latitude() float64 { return m.Position[1] }

// ParseLongLat parses a backend longlat string of the form "(lat, long)".
// Components after the second comma are ignored.
func ParseLongLat(s string) (lat, long float64, err error) {
	v := strings.TrimSpace(s)
	v = strings.TrimPrefix(v, "(")
	v = strings.TrimSuffix(v, ")")

	parts := strings.Split(v, ",")
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedLongLat, s)
	}

	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: latitude in %q", ErrMalformedLongLat, s)
	}
	long, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: longitude in %q", ErrMalformedLongLat, s)
	}
	if !finite(lat) || !finite(long) {
		return 0, 0, fmt.Errorf("%w: non-finite coordinate in %q", ErrMalformedLongLat, s)
	}
	return lat, long, nil
}

// DeriveMarkers builds the marker list for a search result: one marker per
// distinct commune, in included order, first occurrence wins. Entities that
// are not communes, have no longlat or whose longlat does not parse are
// skipped before deduplication.
func DeriveMarkers(result *jsonapi.SearchResult) []Marker {
	markers := []Marker{}
	if result == nil || len(result.Included) == 0 {
		return markers
	}

	for _, entity := range result.Included {
		if !entity.IsCommune() || entity.Attributes.LongLat == "" {
			continue
		}

		lat, long, err := ParseLongLat(entity.Attributes.LongLat)
		if err != nil {
			logger.Debugf("skipping commune %q: %v", entity.Attributes.InseeCode, err)
			continue
		}

		candidate := Marker{
			Position:  [2]float64{long, lat},
			CommuneID: entity.Attributes.InseeCode,
			Title:     entity.Attributes.NCCENR,
		}

		alreadyMarked := false
		for _, m := range markers {
			if m.CommuneID == candidate.CommuneID {
				alreadyMarked = true
				break
			}
		}
		if !alreadyMarked {
			markers = append(markers, candidate)
		}
	}

	return markers
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
