package store

import (
	"context"
	"fmt"
	"time"

	"github.com/trailmap/trailmap/internal/course"
)

// CourseSnapshot prefetches the course's modules and completion states into
// immutable in-memory structures. Rendering runs answer every lookup from
// the snapshot and never touch the database mid-run.
func (s *Store) CourseSnapshot(ctx context.Context, courseID string) (course.ModuleRegistry, course.CompletionSource, error) {
	mods, err := s.ListModules(ctx, courseID)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot modules: %w", err)
	}

	registry := course.NewMemoryRegistry()
	for _, m := range mods {
		registry.Modules[m.ID] = &course.Module{
			ID:                m.ID,
			Name:              m.Name,
			ViewURL:           m.ViewURL,
			Visible:           m.Visible,
			StealthReachable:  m.StealthReachable,
			Available:         m.Available,
			PassGradeRequired: m.PassGradeRequired,
		}
	}

	completions, err := s.ListCompletions(ctx, courseID)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot completions: %w", err)
	}

	source := course.NewMemorySource()
	for _, c := range completions {
		var at time.Time
		if c.CompletedAt != nil {
			at = *c.CompletedAt
		}
		source.Set(c.ModuleID, c.MemberID, course.CompletionState(c.State), at)
	}

	return registry, source, nil
}
