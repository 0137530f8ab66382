package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailmap/trailmap/internal/course"
	"github.com/trailmap/trailmap/internal/graphstore"
	"github.com/trailmap/trailmap/internal/svgdoc"
)

var trailBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func ptr(s string) *string { return &s }

// fixtureStore builds the three-place chain p0 - p1 - p2.
func fixtureStore() *graphstore.Store {
	s := graphstore.Default()
	s.AddPlace("p0", "pl0", ptr("cm0"))
	s.AddPlace("p1", "pl1", ptr("cm1"))
	s.AddPlace("p2", "pl2", ptr("cm2"))
	s.AddPath("p0_1", "p0", "p1")
	s.AddPath("p1_2", "p1", "p2")
	return s
}

const fixtureMarkup = `<svg xmlns="http://www.w3.org/2000/svg" width="800" height="600">
<g id="pathsGroup">
<path id="p0_1" d="M 60 80 Q 130 100 200 120"/>
<path id="p1_2" d="M 200 120 Q 250 160 300 200"/>
</g>
<g id="placesGroup">
<a id="pl0"><circle id="p0" cx="60" cy="80" r="10"/><text id="textp0" x="70" y="85">Start</text><title id="titlep0">Start</title></a>
<a id="pl1"><circle id="p1" cx="200" cy="120" r="10"/><text id="textp1" x="210" y="125">Middle</text><title id="titlep1">Middle</title></a>
<a id="pl2"><circle id="p2" cx="300" cy="200" r="10"/><text id="textp2" x="310" y="205">End</text><title id="titlep2">End</title></a>
</g>
</svg>`

func fixtureRegistry() *course.MemoryRegistry {
	return course.NewMemoryRegistry(
		&course.Module{ID: "cm0", Name: "Intro", ViewURL: "/mod/view/cm0", Visible: true, Available: true},
		&course.Module{ID: "cm1", Name: "Chapter One", ViewURL: "/mod/view/cm1", Visible: true, Available: true},
		&course.Module{ID: "cm2", Name: "Chapter Two", ViewURL: "/mod/view/cm2", Visible: true, Available: true},
	)
}

func sourceWithCompleted(moduleIDs ...string) *course.MemorySource {
	src := course.NewMemorySource()
	for i, id := range moduleIDs {
		src.Set(id, "u1", course.Complete, trailBase.Add(time.Duration(i)*time.Hour))
	}
	return src
}

// classOf re-parses serialized output and returns the class attribute of an
// element, so assertions don't depend on attribute ordering.
func classOf(t *testing.T, out, id string) string {
	t.Helper()
	doc, err := svgdoc.Load(out)
	require.NoError(t, err)
	class, _ := doc.Attribute(id, "class")
	return class
}

func runProcessor(t *testing.T, store *graphstore.Store, markup string, registry course.ModuleRegistry, src course.CompletionSource, editMode bool) (*Processor, string) {
	t.Helper()
	doc, err := svgdoc.Load(markup)
	require.NoError(t, err)
	oracle := course.NewOracleForMembers(src, []string{"u1"})
	p := NewProcessor(store, doc, registry, oracle, editMode, "/course/1")
	out, err := p.Run()
	require.NoError(t, err)
	return p, out
}

func TestEndToEndScenario(t *testing.T) {
	// p0 completed, p1/p2 incomplete and unrestricted, hidePaths off,
	// showAll off: p1 is unlocked through the completed path, p2 is not.
	p, out := runProcessor(t, fixtureStore(), fixtureMarkup, fixtureRegistry(), sourceWithCompleted("cm0"), false)

	assert.Equal(t, []string{"p0", "p0_1", "p1"}, p.Active())
	assert.Equal(t, []string{"p1_2", "p2"}, p.NotAvailable())

	assert.NotContains(t, out, `id="p2"`)
	assert.NotContains(t, out, `id="pl2"`)
	assert.NotContains(t, out, `id="p1_2"`)
	assert.Contains(t, out, `id="p1"`)
	assert.Contains(t, out, `id="p0_1"`)
}

func TestIdempotence(t *testing.T) {
	p1, out1 := runProcessor(t, fixtureStore(), fixtureMarkup, fixtureRegistry(), sourceWithCompleted("cm0"), false)
	p2, out2 := runProcessor(t, fixtureStore(), fixtureMarkup, fixtureRegistry(), sourceWithCompleted("cm0"), false)

	assert.Equal(t, out1, out2)
	assert.Equal(t, p1.Active(), p2.Active())
}

func TestMonotonicity(t *testing.T) {
	before, _ := runProcessor(t, fixtureStore(), fixtureMarkup, fixtureRegistry(), sourceWithCompleted("cm0"), false)
	after, _ := runProcessor(t, fixtureStore(), fixtureMarkup, fixtureRegistry(), sourceWithCompleted("cm0", "cm1"), false)

	assert.Subset(t, after.Active(), before.Active())
	assert.Subset(t, after.Completed(), before.Completed())
	assert.Contains(t, after.Active(), "p2")
}

func TestStartingPlaceInvariant(t *testing.T) {
	p, out := runProcessor(t, fixtureStore(), fixtureMarkup, fixtureRegistry(), course.NewMemorySource(), false)

	assert.Equal(t, []string{"p0"}, p.Active())
	assert.Contains(t, out, `id="p0"`)
}

func TestDanglingReference(t *testing.T) {
	danglingStore := func() *graphstore.Store {
		s := fixtureStore()
		s.Place("p2").LinkedActivity = ptr("gone")
		return s
	}

	t.Run("pruned in normal mode", func(t *testing.T) {
		p, out := runProcessor(t, danglingStore(), fixtureMarkup, fixtureRegistry(), sourceWithCompleted("cm0"), false)

		assert.Equal(t, []string{"p2"}, p.Impossible())
		assert.NotContains(t, out, `id="p2"`)
		assert.NotContains(t, out, `id="p1_2"`)
	})

	t.Run("present unmodified in edit mode", func(t *testing.T) {
		p, out := runProcessor(t, danglingStore(), fixtureMarkup, fixtureRegistry(), sourceWithCompleted("cm0"), true)

		assert.Equal(t, []string{"p2"}, p.Impossible())
		assert.Contains(t, out, `id="p2"`)
		assert.NotContains(t, out, `href=`)
	})

	t.Run("nil linked activity is impossible", func(t *testing.T) {
		s := fixtureStore()
		s.Place("p2").LinkedActivity = nil
		p, _ := runProcessor(t, s, fixtureMarkup, fixtureRegistry(), sourceWithCompleted("cm0"), false)
		assert.Equal(t, []string{"p2"}, p.Impossible())
	})
}

func TestEditModeLeavesDocumentUntouched(t *testing.T) {
	_, out := runProcessor(t, fixtureStore(), fixtureMarkup, fixtureRegistry(), sourceWithCompleted("cm0"), true)

	assert.NotContains(t, out, ClassReachable)
	assert.NotContains(t, out, ClassVisited)
	assert.Contains(t, out, `id="p2"`)
	assert.NotContains(t, out, `href=`)
}

func TestShowAllKeepsNodesButDropsLinks(t *testing.T) {
	s := fixtureStore()
	s.ShowAll = true
	_, out := runProcessor(t, s, fixtureMarkup, fixtureRegistry(), sourceWithCompleted("cm0"), false)

	assert.Contains(t, out, `id="p2"`)
	// pl2's href was stripped; reachable places keep theirs
	assert.NotContains(t, out, `/mod/view/cm2`)
	assert.Contains(t, out, `/mod/view/cm1`)
}

func TestImpossibleRemovedEvenWithShowAll(t *testing.T) {
	s := fixtureStore()
	s.ShowAll = true
	reg := fixtureRegistry()
	reg.Modules["cm2"].Visible = false

	p, out := runProcessor(t, s, fixtureMarkup, reg, sourceWithCompleted("cm0"), false)

	assert.Equal(t, []string{"p2"}, p.Impossible())
	assert.NotContains(t, out, `id="p2"`)
}

func TestStealthLinkRemainsPossible(t *testing.T) {
	reg := fixtureRegistry()
	reg.Modules["cm2"].Visible = false
	reg.Modules["cm2"].StealthReachable = true

	p, _ := runProcessor(t, fixtureStore(), fixtureMarkup, reg, sourceWithCompleted("cm0"), false)

	assert.Empty(t, p.Impossible())
}

func TestUnavailableModule(t *testing.T) {
	reg := fixtureRegistry()
	reg.Modules["cm1"].Available = false

	t.Run("hidden by default", func(t *testing.T) {
		p, out := runProcessor(t, fixtureStore(), fixtureMarkup, reg, course.NewMemorySource(), false)
		assert.Contains(t, p.NotAvailable(), "p1")
		assert.NotContains(t, out, `id="p1"`)
	})

	t.Run("rendered without link under showAll", func(t *testing.T) {
		s := fixtureStore()
		s.ShowAll = true
		_, out := runProcessor(t, s, fixtureMarkup, reg, course.NewMemorySource(), false)
		assert.Contains(t, out, `id="p1"`)
		assert.NotContains(t, out, `/mod/view/cm1`)
	})
}

func TestHidePaths(t *testing.T) {
	s := fixtureStore()
	s.HidePaths = true
	p, _ := runProcessor(t, s, fixtureMarkup, fixtureRegistry(), sourceWithCompleted("cm0"), false)

	// the connecting line stays suppressed but its endpoints unlock
	assert.Equal(t, []string{"p0", "p1"}, p.Active())
}

func TestVisualStates(t *testing.T) {
	t.Run("visited class and checkmark", func(t *testing.T) {
		s := fixtureStore()
		s.UseCheckmark = true
		_, out := runProcessor(t, s, fixtureMarkup, fixtureRegistry(), sourceWithCompleted("cm0"), false)

		assert.Contains(t, out, `class="reachable visited"`)
		assert.Contains(t, out, `id="checkp0"`)
		assert.Contains(t, out, `href="#checkmark"`)
		assert.NotContains(t, out, `id="checkp1"`)
	})

	t.Run("per-place visited color override", func(t *testing.T) {
		s := fixtureStore()
		s.Place("p0").VisitedColor = ptr("#123123")
		_, out := runProcessor(t, s, fixtureMarkup, fixtureRegistry(), sourceWithCompleted("cm0"), false)
		assert.Contains(t, out, `fill="#123123"`)
	})

	t.Run("target place title suffix", func(t *testing.T) {
		s := fixtureStore()
		s.TargetPlaces = append(s.TargetPlaces, "p1")
		_, out := runProcessor(t, s, fixtureMarkup, fixtureRegistry(), sourceWithCompleted("cm0"), false)
		assert.Contains(t, out, "Chapter One (target place)")
	})

	t.Run("labels updated only with showText", func(t *testing.T) {
		s := fixtureStore()
		s.ShowText = true
		_, out := runProcessor(t, s, fixtureMarkup, fixtureRegistry(), sourceWithCompleted("cm0"), false)
		assert.Contains(t, out, `>Intro</text>`)
	})

	t.Run("course page anchor when module has no view url", func(t *testing.T) {
		reg := fixtureRegistry()
		reg.Modules["cm0"].ViewURL = ""
		_, out := runProcessor(t, fixtureStore(), fixtureMarkup, reg, sourceWithCompleted("cm0"), false)
		assert.Contains(t, out, `href="/course/1#module-cm0"`)
	})
}

func TestTrailReconstruction(t *testing.T) {
	t.Run("consecutive completions mark the connecting paths", func(t *testing.T) {
		s := fixtureStore()
		s.ShowWayGone = true
		_, out := runProcessor(t, s, fixtureMarkup, fixtureRegistry(), sourceWithCompleted("cm0", "cm1", "cm2"), false)

		assert.Equal(t, "reachable waygone", classOf(t, out, "p0_1"))
		assert.Equal(t, "reachable waygone", classOf(t, out, "p1_2"))
	})

	t.Run("falls back to an earlier predecessor when the nearest is not adjacent", func(t *testing.T) {
		// p0 - p1 and p0 - p2, no p1 - p2 edge. Completion order
		// cm0, cm1, cm2: the cm1→cm2 transition has no direct path, so the
		// backward scan lands on p0 - p2.
		s := graphstore.Default()
		s.AddPlace("p0", "pl0", ptr("cm0"))
		s.AddPlace("p1", "pl1", ptr("cm1"))
		s.AddPlace("p2", "pl2", ptr("cm2"))
		s.AddPath("p0_1", "p0", "p1")
		s.AddPath("p0_2", "p0", "p2")
		s.ShowWayGone = true

		markup := strings.Replace(fixtureMarkup, `id="p1_2"`, `id="p0_2"`, 1)
		_, out := runProcessor(t, s, markup, fixtureRegistry(), sourceWithCompleted("cm0", "cm1", "cm2"), false)

		assert.Equal(t, "reachable waygone", classOf(t, out, "p0_1"))
		assert.Equal(t, "reachable waygone", classOf(t, out, "p0_2"))
	})

	t.Run("unconnected transition is left unmarked", func(t *testing.T) {
		s := fixtureStore()
		s.RemovePath("p1_2")
		s.ShowWayGone = true
		_, out := runProcessor(t, s, fixtureMarkup, fixtureRegistry(), sourceWithCompleted("cm0", "cm1", "cm2"), false)

		assert.Equal(t, "reachable waygone", classOf(t, out, "p0_1"))
		assert.NotContains(t, classOf(t, out, "p1_2"), ClassWayGone)
	})

	t.Run("disabled without showWayGone", func(t *testing.T) {
		_, out := runProcessor(t, fixtureStore(), fixtureMarkup, fixtureRegistry(), sourceWithCompleted("cm0", "cm1", "cm2"), false)
		assert.NotContains(t, out, ClassWayGone)
	})
}

func TestOverlay(t *testing.T) {
	t.Run("emitted when slice mode hides places", func(t *testing.T) {
		s := fixtureStore()
		s.SliceMode = true
		_, out := runProcessor(t, s, fixtureMarkup, fixtureRegistry(), sourceWithCompleted("cm0"), false)

		assert.Contains(t, out, `id="fogOverlay"`)
		assert.Contains(t, out, `fill-rule="evenodd"`)
		assert.Contains(t, out, `url(#fogPattern)`)
		assert.Contains(t, out, `url(#fogFilter)`)
	})

	t.Run("absent when everything is visible", func(t *testing.T) {
		s := fixtureStore()
		s.SliceMode = true
		_, out := runProcessor(t, s, fixtureMarkup, fixtureRegistry(), sourceWithCompleted("cm0", "cm1", "cm2"), false)
		assert.NotContains(t, out, `id="fogOverlay"`)
	})

	t.Run("small boxes get generous padding, clamped to the canvas", func(t *testing.T) {
		s := graphstore.Default()
		s.AddPlace("p0", "pl0", ptr("cm0"))
		s.AddPlace("p1", "pl1", ptr("cm1"))
		s.AddPlace("p2", "pl2", ptr("cm2"))
		s.AddPath("p0_1", "p0", "p1")
		s.SliceMode = true
		s.HidePaths = true

		markup := `<svg xmlns="http://www.w3.org/2000/svg" width="800" height="600">
<g id="pathsGroup"><path id="p0_1" d="M 0 0 Q 45 45 90 90"/></g>
<g id="placesGroup">
<a id="pl0"><circle id="p0" cx="0" cy="0" r="10"/><title id="titlep0">A</title></a>
<a id="pl1"><circle id="p1" cx="90" cy="90" r="10"/><title id="titlep1">B</title></a>
<a id="pl2"><circle id="p2" cx="400" cy="400" r="10"/><title id="titlep2">C</title></a>
</g>
</svg>`
		_, out := runProcessor(t, s, markup, fixtureRegistry(), sourceWithCompleted("cm0", "cm1"), false)

		// collected points span [0,90]x[0,90]: 50px padding, clamped at 0
		assert.Contains(t, out, `d="M 0 0 H 800 V 600 H 0 Z M 0 0 H 140 V 140 H 0 Z"`)
	})
}

func TestRenderEntryPoint(t *testing.T) {
	record := func(t *testing.T, s *graphstore.Store) []byte {
		t.Helper()
		data, err := s.Encode()
		require.NoError(t, err)
		return data
	}

	t.Run("full render over an encoded record", func(t *testing.T) {
		res, err := Render(context.Background(), RenderRequest{
			SVG:           fixtureMarkup,
			Record:        record(t, fixtureStore()),
			Registry:      fixtureRegistry(),
			Source:        sourceWithCompleted("cm0"),
			UserID:        "u1",
			CoursePageURL: "/course/1",
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"p0", "p0_1", "p1"}, res.Active)
		assert.Equal(t, []string{"p0"}, res.Completed)
		assert.Contains(t, res.SVG, `class="reachable visited"`)
	})

	t.Run("unparsable markup is terminal", func(t *testing.T) {
		_, err := Render(context.Background(), RenderRequest{
			SVG:      "<svg><g></svg>",
			Registry: fixtureRegistry(),
			Source:   course.NewMemorySource(),
			UserID:   "u1",
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, svgdoc.ErrUnparsable)
	})

	t.Run("malformed record degrades to defaults and renders", func(t *testing.T) {
		res, err := Render(context.Background(), RenderRequest{
			SVG:      fixtureMarkup,
			Record:   []byte("{broken"),
			Registry: fixtureRegistry(),
			Source:   course.NewMemorySource(),
			UserID:   "u1",
		})
		require.NoError(t, err)
		// default store has no places; every node defaults to hidden
		assert.NotContains(t, res.SVG, `class=`)
	})

	t.Run("group identity", func(t *testing.T) {
		src := course.NewMemorySource()
		src.Set("cm0", "member2", course.Complete, trailBase)
		groups := &course.MemoryGroups{Groups: map[string][]string{"grp1": {"member1", "member2"}}}

		res, err := Render(context.Background(), RenderRequest{
			SVG:      fixtureMarkup,
			Record:   record(t, fixtureStore()),
			Registry: fixtureRegistry(),
			Source:   src,
			Groups:   groups,
			UserID:   "u1",
			GroupID:  "grp1",
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"p0"}, res.Completed)
	})
}

func TestProcessorDeterminism(t *testing.T) {
	// repeated runs over richer maps must not depend on map iteration order
	s := graphstore.Default()
	var sb strings.Builder
	sb.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="800" height="600"><g id="pathsGroup">`)
	for i := 0; i < 6; i++ {
		if i > 0 {
			id := fmt.Sprintf("p%d_%d", i-1, i)
			sb.WriteString(fmt.Sprintf(`<path id="%s" d="M %d 0 Q %d 50 %d 0"/>`, id, (i-1)*100, i*100-50, i*100))
		}
	}
	sb.WriteString(`</g><g id="placesGroup">`)
	reg := course.NewMemoryRegistry()
	for i := 0; i < 6; i++ {
		modID := fmt.Sprintf("cm%d", i)
		reg.Modules[modID] = &course.Module{ID: modID, Name: modID, ViewURL: "/mod/view/" + modID, Visible: true, Available: true}
		placeID := fmt.Sprintf("p%d", i)
		s.AddPlace(placeID, "pl"+placeID[1:], ptr(modID))
		if i > 0 {
			s.AddPath(fmt.Sprintf("p%d_%d", i-1, i), fmt.Sprintf("p%d", i-1), placeID)
		}
		sb.WriteString(fmt.Sprintf(`<a id="pl%d"><circle id="%s" cx="%d" cy="0" r="10"/><title id="title%s">t</title></a>`, i, placeID, i*100, placeID))
	}
	sb.WriteString(`</g></svg>`)

	var outputs []string
	for run := 0; run < 3; run++ {
		_, out := runProcessor(t, cloneFixture(s), sb.String(), reg, sourceWithCompleted("cm0", "cm1", "cm2"), false)
		outputs = append(outputs, out)
	}
	assert.Equal(t, outputs[0], outputs[1])
	assert.Equal(t, outputs[1], outputs[2])
}

func cloneFixture(s *graphstore.Store) *graphstore.Store {
	clone := *s
	clone.Places = append([]graphstore.Place(nil), s.Places...)
	clone.Paths = append([]graphstore.Path(nil), s.Paths...)
	clone.StartingPlaces = append([]string(nil), s.StartingPlaces...)
	clone.TargetPlaces = append([]string(nil), s.TargetPlaces...)
	return &clone
}
