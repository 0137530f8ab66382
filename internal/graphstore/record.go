package graphstore

import (
	"encoding/json"
)

type rawValue = json.RawMessage

// record is the persisted JSON layout of a Store.
type record struct {
	Places         []Place  `json:"places"`
	Paths          []Path   `json:"paths"`
	StartingPlaces []string `json:"startingPlaces"`
	TargetPlaces   []string `json:"targetPlaces"`

	PlaceColor    string  `json:"placeColor"`
	StrokeColor   string  `json:"strokeColor"`
	VisitedColor  string  `json:"visitedColor"`
	TextColor     string  `json:"textColor"`
	StrokeOpacity float64 `json:"strokeOpacity"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`

	HidePaths    bool `json:"hidePaths"`
	UseCheckmark bool `json:"useCheckmark"`
	EditMode     bool `json:"editMode"`
	ShowAll      bool `json:"showAll"`
	ShowText     bool `json:"showText"`
	SliceMode    bool `json:"sliceMode"`
	ShowWayGone  bool `json:"showWayGone"`

	NextID  int `json:"nextId"`
	Version int `json:"version"`
}

// recordKeys is the closed set of keys the store interprets. Everything else
// in a deserialized record is carried through verbatim.
var recordKeys = map[string]struct{}{
	"places": {}, "paths": {}, "startingPlaces": {}, "targetPlaces": {},
	"placeColor": {}, "strokeColor": {}, "visitedColor": {}, "textColor": {},
	"strokeOpacity": {}, "width": {}, "height": {},
	"hidePaths": {}, "useCheckmark": {}, "editMode": {}, "showAll": {},
	"showText": {}, "sliceMode": {}, "showWayGone": {},
	"nextId": {}, "version": {},
}

// Decode reconstructs a Store from its persisted record. Decoding fails
// soft: on malformed input the returned store keeps built-in defaults and
// the error reports what went wrong, so callers can log and proceed.
func Decode(data []byte) (*Store, error) {
	s := Default()
	if len(data) == 0 {
		return s, nil
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return s, err
	}

	var all map[string]rawValue
	if err := json.Unmarshal(data, &all); err != nil {
		return s, err
	}
	for k := range all {
		if _, known := recordKeys[k]; known {
			delete(all, k)
		}
	}

	s.Places = rec.Places
	s.Paths = rec.Paths
	s.StartingPlaces = rec.StartingPlaces
	s.TargetPlaces = rec.TargetPlaces
	if rec.PlaceColor != "" {
		s.PlaceColor = rec.PlaceColor
	}
	if rec.StrokeColor != "" {
		s.StrokeColor = rec.StrokeColor
	}
	if rec.VisitedColor != "" {
		s.VisitedColor = rec.VisitedColor
	}
	if rec.TextColor != "" {
		s.TextColor = rec.TextColor
	}
	if rec.StrokeOpacity > 0 {
		s.StrokeOpacity = rec.StrokeOpacity
	}
	if rec.Width > 0 {
		s.Width = rec.Width
	}
	if rec.Height > 0 {
		s.Height = rec.Height
	}
	s.HidePaths = rec.HidePaths
	s.UseCheckmark = rec.UseCheckmark
	s.EditMode = rec.EditMode
	s.ShowAll = rec.ShowAll
	s.ShowText = rec.ShowText
	s.SliceMode = rec.SliceMode
	s.ShowWayGone = rec.ShowWayGone
	s.NextID = rec.NextID
	s.Version = rec.Version
	if len(all) > 0 {
		s.extra = all
	}

	Migrate(s)

	return s, nil
}

// Encode serializes the Store back to its record layout, merging any
// unrecognized keys that arrived with the original record.
func (s *Store) Encode() ([]byte, error) {
	rec := record{
		Places:         s.Places,
		Paths:          s.Paths,
		StartingPlaces: s.StartingPlaces,
		TargetPlaces:   s.TargetPlaces,
		PlaceColor:     s.PlaceColor,
		StrokeColor:    s.StrokeColor,
		VisitedColor:   s.VisitedColor,
		TextColor:      s.TextColor,
		StrokeOpacity:  s.StrokeOpacity,
		Width:          s.Width,
		Height:         s.Height,
		HidePaths:      s.HidePaths,
		UseCheckmark:   s.UseCheckmark,
		EditMode:       s.EditMode,
		ShowAll:        s.ShowAll,
		ShowText:       s.ShowText,
		SliceMode:      s.SliceMode,
		ShowWayGone:    s.ShowWayGone,
		NextID:         s.NextID,
		Version:        s.Version,
	}

	known, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	if len(s.extra) == 0 {
		return known, nil
	}

	var merged map[string]rawValue
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	for k, v := range s.extra {
		if _, taken := merged[k]; !taken {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}
