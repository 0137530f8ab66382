// Package graphstore holds the canonical in-memory representation of a
// learning map: its places, the paths connecting them, and the map-wide
// style and behavior settings. A Store is reconstructed from its persisted
// record for every processing run and is owned exclusively by that run.
package graphstore

import (
	"fmt"
	"strings"
)

// Endpoint selects one of the two stored endpoints of a path.
type Endpoint int

const (
	EndpointFirst Endpoint = iota
	EndpointSecond
)

// Place is a node on the map, optionally linked to a course module.
type Place struct {
	ID             string  `json:"id"`
	LinkID         string  `json:"linkId"`
	LinkedActivity *string `json:"linkedActivity"`
	PlaceColor     *string `json:"placeColor,omitempty"`
	VisitedColor   *string `json:"visitedColor,omitempty"`
}

// Path is an edge between two places. The endpoints are semantically
// unordered but stored as first/second.
type Path struct {
	ID              string  `json:"id"`
	FID             string  `json:"fid"`
	SID             string  `json:"sid"`
	StrokeColor     *string `json:"strokeColor,omitempty"`
	StrokeDashArray *string `json:"strokeDashArray,omitempty"`
	HidePath        *bool   `json:"hidePath,omitempty"`
}

// Store aggregates all places, paths and settings of one map.
type Store struct {
	Places         []Place
	Paths          []Path
	StartingPlaces []string
	TargetPlaces   []string

	PlaceColor    string
	StrokeColor   string
	VisitedColor  string
	TextColor     string
	StrokeOpacity float64
	Width         float64
	Height        float64

	HidePaths    bool
	UseCheckmark bool
	EditMode     bool
	ShowAll      bool
	ShowText     bool
	SliceMode    bool
	ShowWayGone  bool

	NextID  int
	Version int

	// Unrecognized record keys, carried through serialization verbatim.
	extra map[string]rawValue
}

// Default returns a Store with usable built-in settings and no places.
func Default() *Store {
	return &Store{
		PlaceColor:    "#c01c28",
		StrokeColor:   "#ff0000",
		VisitedColor:  "#26a269",
		TextColor:     "#000000",
		StrokeOpacity: 1,
		Width:         800,
		Height:        600,
		Version:       CurrentVersion,
	}
}

// NewPlaceID returns the id the next added place should carry.
func (s *Store) NewPlaceID() string {
	return fmt.Sprintf("p%d", s.NextID)
}

// LinkIDFor derives the id of the link element wrapping a place's visual
// element. Places are always wrapped in a link.
func LinkIDFor(placeID string) string {
	return "pl" + strings.TrimPrefix(placeID, "p")
}

// PathID derives the document id of the path connecting two places.
func PathID(fid, sid string) string {
	return fid + "_" + strings.TrimPrefix(sid, "p")
}

// AddPlace appends a place. The very first place added to a map is also
// registered as a starting place so the map is never rendered empty.
func (s *Store) AddPlace(id, linkID string, linkedActivity *string) {
	if len(s.Places) == 0 {
		s.StartingPlaces = append(s.StartingPlaces, id)
	}
	s.Places = append(s.Places, Place{
		ID:             id,
		LinkID:         linkID,
		LinkedActivity: linkedActivity,
	})
	s.NextID++
}

// RemovePlace removes a place from the place list and from the starting and
// target sets. Paths touching the place are not removed; the caller is
// responsible for cascading.
func (s *Store) RemovePlace(id string) {
	s.StartingPlaces = removeString(s.StartingPlaces, id)
	s.TargetPlaces = removeString(s.TargetPlaces, id)
	for i, p := range s.Places {
		if p.ID == id {
			s.Places = append(s.Places[:i], s.Places[i+1:]...)
			return
		}
	}
}

// AddPath appends a path between two places.
func (s *Store) AddPath(id, fid, sid string) {
	s.Paths = append(s.Paths, Path{ID: id, FID: fid, SID: sid})
}

// RemovePath removes a path by id.
func (s *Store) RemovePath(id string) {
	for i, p := range s.Paths {
		if p.ID == id {
			s.Paths = append(s.Paths[:i], s.Paths[i+1:]...)
			return
		}
	}
}

// Place returns the place with the given id, or nil.
func (s *Store) Place(id string) *Place {
	for i := range s.Places {
		if s.Places[i].ID == id {
			return &s.Places[i]
		}
	}
	return nil
}

// Path returns the path with the given id, or nil.
func (s *Store) Path(id string) *Path {
	for i := range s.Paths {
		if s.Paths[i].ID == id {
			return &s.Paths[i]
		}
	}
	return nil
}

// TouchingPaths returns all paths with the given place as either endpoint.
func (s *Store) TouchingPaths(placeID string) []Path {
	var out []Path
	for _, p := range s.Paths {
		if p.FID == placeID || p.SID == placeID {
			out = append(out, p)
		}
	}
	return out
}

// PathsByEndpoint returns all paths whose selected endpoint is the given place.
func (s *Store) PathsByEndpoint(placeID string, which Endpoint) []Path {
	var out []Path
	for _, p := range s.Paths {
		switch which {
		case EndpointFirst:
			if p.FID == placeID {
				out = append(out, p)
			}
		case EndpointSecond:
			if p.SID == placeID {
				out = append(out, p)
			}
		}
	}
	return out
}

// PathBetween returns the path connecting the two places in either
// orientation, or nil if none exists.
func (s *Store) PathBetween(a, b string) *Path {
	for i := range s.Paths {
		p := &s.Paths[i]
		if (p.FID == a && p.SID == b) || (p.FID == b && p.SID == a) {
			return p
		}
	}
	return nil
}

// IsStartingPlace reports whether the place id is marked initially active.
func (s *Store) IsStartingPlace(id string) bool {
	return containsString(s.StartingPlaces, id)
}

// IsTargetPlace reports whether the place id is a completion goal.
func (s *Store) IsTargetPlace(id string) bool {
	return containsString(s.TargetPlaces, id)
}

func removeString(s []string, v string) []string {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

func containsString(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
