// Package engine implements the map-processing run: it walks the graph
// store against the completion oracle and the module registry, classifies
// every place and path into a visibility category, and mutates the SVG
// document accordingly. One Processor serves exactly one run; nothing is
// retained between requests.
package engine

import (
	"sort"

	"github.com/trailmap/trailmap/internal/course"
	"github.com/trailmap/trailmap/internal/graphstore"
	"github.com/trailmap/trailmap/internal/svgdoc"
)

// Ids and references the processor expects in the document skeleton.
const (
	PlacesGroupID = "placesGroup"
	PathsGroupID  = "pathsGroup"
	OverlayID     = "fogOverlay"
	CheckmarkRef  = "#checkmark"
)

// Style classes attached during a run. The document's stylesheet gives them
// their visual meaning.
const (
	ClassReachable = "reachable"
	ClassVisited   = "visited"
	ClassWayGone   = "waygone"
)

// TargetSuffix is appended to the accessibility title of target places.
const TargetSuffix = " (target place)"

// Processor classifies one map for one viewing identity and applies the
// result to the document.
type Processor struct {
	store    *graphstore.Store
	doc      *svgdoc.Document
	registry course.ModuleRegistry
	oracle   *course.Oracle
	editMode bool

	// Course page URL used as link fallback for modules without a view page.
	coursePageURL string

	active       map[string]struct{}
	completed    map[string]struct{}
	impossible   map[string]struct{}
	notAvailable map[string]struct{}
}

// NewProcessor wires a processor for one run. The store and document must be
// freshly constructed and exclusively owned by this run.
func NewProcessor(store *graphstore.Store, doc *svgdoc.Document, registry course.ModuleRegistry, oracle *course.Oracle, editMode bool, coursePageURL string) *Processor {
	return &Processor{
		store:         store,
		doc:           doc,
		registry:      registry,
		oracle:        oracle,
		editMode:      editMode || store.EditMode,
		coursePageURL: coursePageURL,
		active:        make(map[string]struct{}),
		completed:     make(map[string]struct{}),
		impossible:    make(map[string]struct{}),
		notAvailable:  make(map[string]struct{}),
	}
}

// Run executes the full classification and mutation sequence and returns the
// serialized document. Edit mode classifies places but leaves the document
// untouched except for what the authoring view itself drew.
func (p *Processor) Run() (string, error) {
	p.classifyPlaces()

	if !p.editMode {
		p.classifyPaths()
		p.applyVisualStates()
		p.resolveRemainder()
		if p.store.SliceMode && (len(p.notAvailable) > 0 || len(p.impossible) > 0) {
			p.synthesizeOverlay()
		}
		if p.store.ShowWayGone {
			p.markTrail()
		}
	}

	return p.doc.Serialize()
}

// classifyPlaces resolves every place against the module registry and the
// completion oracle. Dangling references degrade to impossible and, outside
// edit mode, are pruned immediately together with their touching paths.
func (p *Processor) classifyPlaces() {
	for i := range p.store.Places {
		place := &p.store.Places[i]

		if place.LinkedActivity == nil {
			p.markImpossible(place.ID)
			if !p.editMode {
				p.removePlaceWithPaths(place.ID)
			}
			continue
		}

		mod, ok := p.registry.Resolve(*place.LinkedActivity)
		if !ok {
			p.markImpossible(place.ID)
			if !p.editMode {
				p.removePlaceWithPaths(place.ID)
			}
			continue
		}

		if !p.editMode {
			p.applyModuleLink(place, mod)
		}

		if p.store.IsStartingPlace(place.ID) {
			p.active[place.ID] = struct{}{}
		}
		if p.oracle.IsCompleted(mod) {
			p.completed[place.ID] = struct{}{}
			p.active[place.ID] = struct{}{}
		}
		if !mod.Available {
			p.notAvailable[place.ID] = struct{}{}
		}
		if !mod.Visible && !mod.StealthReachable {
			p.markImpossible(place.ID)
		}
	}
}

// applyModuleLink sets the place's link URL, label and accessibility title
// from the resolved module.
func (p *Processor) applyModuleLink(place *graphstore.Place, mod *course.Module) {
	url := mod.ViewURL
	if url == "" {
		url = p.coursePageURL + "#module-" + mod.ID
	}
	p.doc.SetAttribute(place.LinkID, "href", url)

	title := mod.Name
	if p.store.IsTargetPlace(place.ID) {
		title += TargetSuffix
	}
	p.doc.SetText("title"+place.ID, title)

	if p.store.ShowText {
		p.doc.SetText("text"+place.ID, mod.Name)
	}
}

// classifyPaths marks paths with a completed endpoint. The path itself is
// shown only when hidePaths is off; its endpoints become reachable either
// way, since a completed neighbor unlocks a place even when the connecting
// line is visually suppressed.
func (p *Processor) classifyPaths() {
	for _, path := range p.store.Paths {
		_, fDone := p.completed[path.FID]
		_, sDone := p.completed[path.SID]
		if !fDone && !sDone {
			continue
		}

		if !p.store.HidePaths {
			p.markActive(path.ID)
		}
		p.markActive(path.FID)
		p.markActive(path.SID)
	}
}

// applyVisualStates attaches the reachable and visited classes and, when
// enabled, checkmark glyphs on completed places.
func (p *Processor) applyVisualStates() {
	for _, place := range p.store.Places {
		if _, ok := p.active[place.ID]; ok {
			p.doc.AppendClass(place.ID, ClassReachable)
		}
	}
	for _, path := range p.store.Paths {
		if _, ok := p.active[path.ID]; ok {
			p.doc.AppendClass(path.ID, ClassReachable)
		}
	}

	for _, place := range p.store.Places {
		if _, ok := p.completed[place.ID]; !ok {
			continue
		}
		p.doc.AppendClass(place.ID, ClassVisited)
		if place.VisitedColor != nil {
			p.doc.SetAttribute(place.ID, "fill", *place.VisitedColor)
		}
		if p.store.UseCheckmark {
			p.appendCheckmark(place)
		}
	}
}

// appendCheckmark anchors a checkmark glyph at the place's center inside its
// link wrapper, so it travels with the place on removal.
func (p *Processor) appendCheckmark(place graphstore.Place) {
	markID := "check" + place.ID
	if p.doc.Has(markID) {
		return
	}
	cx, okX := p.doc.Attribute(place.ID, "cx")
	cy, okY := p.doc.Attribute(place.ID, "cy")
	if !okX || !okY {
		return
	}
	mark := p.doc.CreateElement("use", map[string]string{
		"id":   markID,
		"href": CheckmarkRef,
		"x":    cx,
		"y":    cy,
	})
	p.doc.AppendChild(place.LinkID, mark)
}

// resolveRemainder defaults everything not otherwise classified to
// notAvailable, then removes or unlinks it depending on showAll. Impossible
// ids are removed unconditionally.
func (p *Processor) resolveRemainder() {
	for _, place := range p.store.Places {
		if p.isClassified(place.ID) {
			continue
		}
		p.notAvailable[place.ID] = struct{}{}
	}
	for _, path := range p.store.Paths {
		if p.isClassified(path.ID) {
			continue
		}
		p.notAvailable[path.ID] = struct{}{}
	}

	for _, place := range p.store.Places {
		if _, ok := p.notAvailable[place.ID]; !ok {
			continue
		}
		if p.store.ShowAll {
			p.doc.RemoveAttribute(place.LinkID, "href")
		} else {
			p.doc.RemoveNode(place.ID)
		}
	}
	for _, path := range p.store.Paths {
		if _, ok := p.notAvailable[path.ID]; !ok {
			continue
		}
		if !p.store.ShowAll {
			p.doc.RemoveNode(path.ID)
		}
	}

	for _, place := range p.store.Places {
		if _, ok := p.impossible[place.ID]; ok {
			p.removePlaceWithPaths(place.ID)
		}
	}
	for _, path := range p.store.Paths {
		if _, ok := p.impossible[path.ID]; ok {
			p.doc.RemoveNode(path.ID)
		}
	}
}

func (p *Processor) isClassified(id string) bool {
	if _, ok := p.completed[id]; ok {
		return true
	}
	if _, ok := p.active[id]; ok {
		return true
	}
	_, ok := p.impossible[id]
	return ok
}

// markImpossible moves an id into the impossible set, which outranks every
// other classification.
func (p *Processor) markImpossible(id string) {
	p.impossible[id] = struct{}{}
	delete(p.active, id)
	delete(p.completed, id)
	delete(p.notAvailable, id)
}

func (p *Processor) markActive(id string) {
	if _, ok := p.impossible[id]; ok {
		return
	}
	p.active[id] = struct{}{}
}

// removePlaceWithPaths removes a place from the document together with all
// paths touching it.
func (p *Processor) removePlaceWithPaths(placeID string) {
	p.doc.RemoveNode(placeID)
	for _, path := range p.store.TouchingPaths(placeID) {
		p.doc.RemoveNode(path.ID)
	}
}

// Active returns the sorted active id set of the completed run. Exposed for
// verification; production callers consume the serialized document.
func (p *Processor) Active() []string {
	return sortedKeys(p.active)
}

// Completed returns the sorted completed place ids of the run.
func (p *Processor) Completed() []string {
	return sortedKeys(p.completed)
}

// Impossible returns the sorted impossible ids of the run.
func (p *Processor) Impossible() []string {
	return sortedKeys(p.impossible)
}

// NotAvailable returns the sorted not-available ids of the run.
func (p *Processor) NotAvailable() []string {
	return sortedKeys(p.notAvailable)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
