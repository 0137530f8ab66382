// Package learningmap manages map lifecycle and rendering: creating a map
// with its seeded record and skeleton markup, saving authored changes, and
// producing the personalized view for one learner.
package learningmap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/trailmap/trailmap/internal/engine"
	"github.com/trailmap/trailmap/internal/graphstore"
	"github.com/trailmap/trailmap/internal/store"
	"github.com/trailmap/trailmap/internal/typeid"
)

var (
	ErrNotFound  = errors.New("map not found")
	ErrForbidden = errors.New("forbidden")
)

type Service struct {
	store *store.Store
}

func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

type Map struct {
	ID        string          `json:"id"`
	CourseID  string          `json:"courseId"`
	Name      string          `json:"name"`
	OwnerID   string          `json:"ownerId"`
	SVG       string          `json:"svg"`
	Record    json.RawMessage `json:"record"`
	Version   int64           `json:"version"`
	CreatedAt string          `json:"createdAt"`
	UpdatedAt string          `json:"updatedAt"`
}

// Create seeds a new map with default settings and the skeleton markup the
// renderer expects: style rules, fog and checkmark defs, and the two empty
// layer groups.
func (s *Service) Create(ctx context.Context, courseID, name, ownerID string) (*Map, error) {
	rec := graphstore.Default()
	recJSON, err := rec.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode initial record: %w", err)
	}

	m, err := s.store.CreateMap(ctx, store.LearningMap{
		ID:       typeid.NewMapID(),
		CourseID: courseID,
		Name:     name,
		OwnerID:  ownerID,
		SVG:      Skeleton(rec),
		Record:   recJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("create map: %w", err)
	}

	return dbMapToMap(m), nil
}

func (s *Service) Get(ctx context.Context, mapID, userID string) (*Map, error) {
	m, err := s.ownedMap(ctx, mapID, userID)
	if err != nil {
		return nil, err
	}
	return dbMapToMap(*m), nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Map, error) {
	dbMaps, err := s.store.ListMapsForOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list maps: %w", err)
	}

	maps := make([]Map, len(dbMaps))
	for i, m := range dbMaps {
		maps[i] = *dbMapToMap(m)
	}
	return maps, nil
}

// Save persists authored markup and record changes. The record must at least
// parse as JSON; its semantic content fails soft at render time instead.
func (s *Service) Save(ctx context.Context, mapID, userID, svg string, record json.RawMessage, loadedVersion int64) (int64, error) {
	if _, err := s.ownedMap(ctx, mapID, userID); err != nil {
		return 0, err
	}
	if !json.Valid(record) {
		return 0, errors.New("record is not valid JSON")
	}

	version, err := s.store.SaveMap(ctx, mapID, svg, record, loadedVersion)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func (s *Service) Delete(ctx context.Context, mapID, userID string) error {
	if _, err := s.ownedMap(ctx, mapID, userID); err != nil {
		return err
	}
	return s.store.DeleteMap(ctx, mapID)
}

// Render produces the personalized document for one viewer. Any
// authenticated course member may render; ownership gates editing only.
func (s *Service) Render(ctx context.Context, mapID, userID, groupID string, editMode bool) (*engine.RenderResult, error) {
	m, err := s.store.GetMap(ctx, mapID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get map: %w", err)
	}

	registry, source, err := s.store.CourseSnapshot(ctx, m.CourseID)
	if err != nil {
		return nil, err
	}

	res, err := engine.Render(ctx, engine.RenderRequest{
		SVG:           m.SVG,
		Record:        m.Record,
		Registry:      registry,
		Source:        source,
		Groups:        s.store,
		UserID:        userID,
		GroupID:       groupID,
		EditMode:      editMode,
		CoursePageURL: "/courses/" + m.CourseID,
	})
	if err != nil {
		return nil, err
	}

	s.persistMigration(ctx, m)

	return res, nil
}

// persistMigration writes a schema-upgraded record back exactly once, so
// migrations don't re-run on every render. A concurrent save wins; the
// upgrade then happens on a later load.
func (s *Service) persistMigration(ctx context.Context, m store.LearningMap) {
	if recordVersion(m.Record) >= graphstore.CurrentVersion {
		return
	}

	upgraded, err := graphstore.Decode(m.Record)
	if err != nil {
		return
	}
	data, err := upgraded.Encode()
	if err != nil {
		slog.Error("encode migrated record failed", "map", m.ID, "error", err)
		return
	}
	if _, err := s.store.SaveMap(ctx, m.ID, m.SVG, data, m.Version); err != nil {
		if !errors.Is(err, store.ErrVersionConflict) {
			slog.Error("persist migrated record failed", "map", m.ID, "error", err)
		}
	}
}

func recordVersion(record []byte) int {
	var v struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(record, &v); err != nil {
		return 0
	}
	return v.Version
}

// UpsertModule registers or updates a course activity that places can link to.
func (s *Service) UpsertModule(ctx context.Context, m store.CourseModule) (store.CourseModule, error) {
	if m.ID == "" {
		m.ID = typeid.NewModuleID()
	}
	if err := s.store.UpsertModule(ctx, m); err != nil {
		return store.CourseModule{}, err
	}
	return m, nil
}

func (s *Service) ownedMap(ctx context.Context, mapID, userID string) (*store.LearningMap, error) {
	m, err := s.store.GetMap(ctx, mapID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get map: %w", err)
	}
	if m.OwnerID != userID {
		return nil, ErrForbidden
	}
	return &m, nil
}

func dbMapToMap(m store.LearningMap) *Map {
	return &Map{
		ID:        m.ID,
		CourseID:  m.CourseID,
		Name:      m.Name,
		OwnerID:   m.OwnerID,
		SVG:       m.SVG,
		Record:    json.RawMessage(m.Record),
		Version:   m.Version,
		CreatedAt: m.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: m.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
