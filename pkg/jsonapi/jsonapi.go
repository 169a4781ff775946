// Package jsonapi holds the JSON:API documents returned by the dicotopo
// search backend. Only the members the explorer reads are modelled; unknown
// members are ignored when decoding.
package jsonapi

import (
	"encoding/json"
	"fmt"
	"io"
)

// MediaType is the content type negotiated with the backend.
const MediaType = "application/vnd.api+json"

// Resource types found in search documents.
const (
	TypePlacename           = "placename"
	TypeCommune             = "commune"
	TypeLocalizationCommune = "localization-commune"
)

// SearchResult is a top-level search document. Data keeps the order chosen
// by the backend; Included is an unordered bag of related resources.
type SearchResult struct {
	Data     []PlacenameRecord `json:"data"`
	Included []EntityRecord    `json:"included,omitempty"`
	Links    map[string]string `json:"links,omitempty"`
	Meta     map[string]any    `json:"meta,omitempty"`
}

// PlacenameRecord is a placename resource from the primary data.
type PlacenameRecord struct {
	ID         string              `json:"id"`
	Type       string              `json:"type"`
	Attributes PlacenameAttributes `json:"attributes"`
	Links      map[string]string   `json:"links,omitempty"`
}

// PlacenameAttributes are the displayed attributes of a placename.
// Desc carries HTML markup produced by the backend.
type PlacenameAttributes struct {
	Label string `json:"label"`
	Desc  string `json:"desc"`
}

// EntityRecord is a related resource from the included collection.
type EntityRecord struct {
	ID         string           `json:"id"`
	Type       string           `json:"type"`
	Attributes EntityAttributes `json:"attributes"`
}

// EntityAttributes are the commune attributes used to place markers.
// LongLat is encoded as "(lat, long)" despite its name.
type EntityAttributes struct {
	LongLat   string `json:"longlat"`
	InseeCode string `json:"insee-code"`
	NCCENR    string `json:"NCCENR"`
}

// Count returns the number of placenames in the primary data.
func (r *SearchResult) Count() int {
	if r == nil {
		return 0
	}
	return len(r.Data)
}

// IsCommune reports whether the entity is one of the commune types that can
// be shown on the map.
func (e EntityRecord) IsCommune() bool {
	return e.Type == TypeCommune || e.Type == TypeLocalizationCommune
}

// Decode reads a search document from r.
func Decode(r io.Reader) (*SearchResult, error) {
	var result SearchResult
	if err := json.NewDecoder(r).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding search document: %w", err)
	}
	return &result, nil
}

// ParseSearchResult decodes a search document held in memory.
func ParseSearchResult(data []byte) (*SearchResult, error) {
	var result SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decoding search document: %w", err)
	}
	return &result, nil
}
