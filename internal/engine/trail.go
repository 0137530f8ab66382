package engine

import (
	"github.com/trailmap/trailmap/internal/course"
)

// markTrail reconstructs the most recent traversal from the completion
// chronology and marks one edge per completion-order transition.
//
// For each consecutive pair (order[i], order[i+1]) the search starts at the
// nearest predecessor j = i and scans backward to 0, looking for an existing
// path between a place linked to order[j] and a place linked to order[i+1].
// The first match wins and ends the search for this transition. This is a
// heuristic commit, not a shortest path; when the nearest predecessor by
// completion time is not graph-adjacent to the latest node the trail can
// come out visually disconnected, which mirrors the intended behavior.
func (p *Processor) markTrail() {
	placesByModule := make(map[string][]string)
	var mods []*course.Module
	seen := make(map[string]struct{})

	for _, place := range p.store.Places {
		if place.LinkedActivity == nil {
			continue
		}
		mod, ok := p.registry.Resolve(*place.LinkedActivity)
		if !ok {
			continue
		}
		placesByModule[mod.ID] = append(placesByModule[mod.ID], place.ID)
		if _, dup := seen[mod.ID]; !dup {
			seen[mod.ID] = struct{}{}
			mods = append(mods, mod)
		}
	}

	order := p.oracle.CompletionOrder(mods)

	for i := 0; i+1 < len(order); i++ {
		p.markTransition(order, i, placesByModule)
	}
}

// markTransition finds and marks the edge for one completion transition, or
// leaves it unmarked when no qualifying path exists.
func (p *Processor) markTransition(order []string, i int, placesByModule map[string][]string) {
	for j := i; j >= 0; j-- {
		for _, from := range placesByModule[order[j]] {
			for _, to := range placesByModule[order[i+1]] {
				if path := p.store.PathBetween(from, to); path != nil {
					p.doc.AppendClass(path.ID, ClassWayGone)
					return
				}
			}
		}
	}
}
