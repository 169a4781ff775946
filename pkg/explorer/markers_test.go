package explorer

import (
	"errors"
	"testing"

	"github.com/chartes/dicotopo/pkg/jsonapi"
	"github.com/google/go-cmp/cmp"
)

func commune(typ, insee, title, longlat string) jsonapi.EntityRecord {
	return jsonapi.EntityRecord{
		ID:   insee,
		Type: typ,
		Attributes: jsonapi.EntityAttributes{
			InseeCode: insee,
			NCCENR:    title,
			LongLat:   longlat,
		},
	}
}

func TestParseLongLat(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		lat      float64
		long     float64
		hasError bool
	}{
		{name: "canonical", input: "(48.85, 2.35)", lat: 48.85, long: 2.35},
		{name: "no spaces", input: "(45.9584,5.3597)", lat: 45.9584, long: 5.3597},
		{name: "surrounding whitespace", input: "  ( -4.5 ,  -52.1 ) ", lat: -4.5, long: -52.1},
		{name: "no parentheses", input: "43.1, 1.2", lat: 43.1, long: 1.2},
		{name: "extra component ignored", input: "(1, 2, 3)", lat: 1, long: 2},
		{name: "single component", input: "(48.85)", hasError: true},
		{name: "empty", input: "", hasError: true},
		{name: "non numeric latitude", input: "(abc, 2.35)", hasError: true},
		{name: "non numeric longitude", input: "(48.85, )", hasError: true},
		{name: "trailing garbage", input: "(48.85x, 2.35)", hasError: true},
		{name: "nan", input: "(NaN, 2.35)", hasError: true},
		{name: "infinity", input: "(48.85, Inf)", hasError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lat, long, err := ParseLongLat(tt.input)
			if tt.hasError {
				if !errors.Is(err, ErrMalformedLongLat) {
					t.Fatalf("expected ErrMalformedLongLat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if lat != tt.lat || long != tt.long {
				t.Errorf("got (%v, %v), want (%v, %v)", lat, long, tt.lat, tt.long)
			}
		})
	}
}

func TestDeriveMarkersSwapsCoordinates(t *testing.T) {
	result := &jsonapi.SearchResult{
		Included: []jsonapi.EntityRecord{
			commune(jsonapi.TypeCommune, "75056", "Paris", "(48.85, 2.35)"),
		},
	}

	got := DeriveMarkers(result)
	want := []Marker{{Position: [2]float64{2.35, 48.85}, CommuneID: "75056", Title: "Paris"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DeriveMarkers mismatch (-want +got):\n%s", diff)
	}
	if got[0].Longitude() != 2.35 || got[0].Latitude() != 48.85 {
		t.Errorf("accessors disagree with position %v", got[0].Position)
	}
}

func TestDeriveMarkersFirstOccurrenceWins(t *testing.T) {
	result := &jsonapi.SearchResult{
		Included: []jsonapi.EntityRecord{
			commune(jsonapi.TypeCommune, "01004", "Ambérieu-en-Bugey", "(45.9584, 5.3597)"),
			commune(jsonapi.TypeCommune, "01007", "Ambronay", "(46.0055, 5.3618)"),
			commune(jsonapi.TypeLocalizationCommune, "01004", "Doublon", "(1, 1)"),
			commune(jsonapi.TypeCommune, "01007", "Doublon", "(2, 2)"),
		},
	}

	got := DeriveMarkers(result)
	want := []Marker{
		{Position: [2]float64{5.3597, 45.9584}, CommuneID: "01004", Title: "Ambérieu-en-Bugey"},
		{Position: [2]float64{5.3618, 46.0055}, CommuneID: "01007", Title: "Ambronay"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DeriveMarkers mismatch (-want +got):\n%s", diff)
	}
}

func TestDeriveMarkersFiltersEntities(t *testing.T) {
	result := &jsonapi.SearchResult{
		Included: []jsonapi.EntityRecord{
			commune("placename-old-label", "11111", "Old label", "(1, 1)"),
			commune("departement", "22222", "Ain", "(2, 2)"),
			commune(jsonapi.TypeCommune, "33333", "No coordinates", ""),
			commune(jsonapi.TypeLocalizationCommune, "44444", "Kept", "(4, 5)"),
		},
	}

	got := DeriveMarkers(result)
	want := []Marker{{Position: [2]float64{5, 4}, CommuneID: "44444", Title: "Kept"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DeriveMarkers mismatch (-want +got):\n%s", diff)
	}
}

func TestDeriveMarkersMalformedLongLatDropped(t *testing.T) {
	result := &jsonapi.SearchResult{
		Included: []jsonapi.EntityRecord{
			commune(jsonapi.TypeCommune, "01004", "Broken", "(not, numbers)"),
			commune(jsonapi.TypeCommune, "01004", "Valid duplicate", "(45.9, 5.3)"),
			commune(jsonapi.TypeCommune, "01007", "Half", "(46.0)"),
		},
	}

	got := DeriveMarkers(result)
	want := []Marker{{Position: [2]float64{5.3, 45.9}, CommuneID: "01004", Title: "Valid duplicate"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DeriveMarkers mismatch (-want +got):\n%s", diff)
	}
}

func TestDeriveMarkersEmptyInputs(t *testing.T) {
	tests := []struct {
		name   string
		result *jsonapi.SearchResult
	}{
		{name: "nil result", result: nil},
		{name: "no included", result: &jsonapi.SearchResult{Data: []jsonapi.PlacenameRecord{{ID: "1"}}}},
		{name: "empty included", result: &jsonapi.SearchResult{Included: []jsonapi.EntityRecord{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveMarkers(tt.result)
			if got == nil {
				t.Fatal("expected empty, non-nil marker list")
			}
			if len(got) != 0 {
				t.Errorf("expected no markers, got %v", got)
			}
		})
	}
}
