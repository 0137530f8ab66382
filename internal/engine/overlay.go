package engine

import (
	"fmt"

	"github.com/trailmap/trailmap/internal/svgdoc"
)

// Padding around the collected geometry. Small boxes get generous padding so
// a single revealed place doesn't produce a pinhole.
const (
	overlayPadSmall    = 50.0
	overlayPadLarge    = 15.0
	overlayTinyExtentX = 100.0
	overlayTinyExtentY = 100.0
)

// synthesizeOverlay computes the minimal bounding rectangle over all
// currently visible geometry and injects a fog shape covering everything
// outside it. The shape is the full-canvas rectangle with an even-odd hole
// at the clamped bounds; the blur filter and fog pattern it references live
// in the document's defs.
func (p *Processor) synthesizeOverlay() {
	var pts []svgdoc.Point

	if !p.store.HidePaths {
		pts = append(pts, p.doc.PathCurveMidpoints(PathsGroupID)...)
	}
	pts = append(pts, p.doc.CircleCenters(PlacesGroupID)...)
	if p.store.ShowText {
		for _, place := range p.store.Places {
			if !p.doc.Has(place.ID) {
				continue
			}
			pts = append(pts, p.doc.TextBoundingCorners("text"+place.ID, svgdoc.DefaultFontMetrics)...)
		}
	}

	if len(pts) == 0 {
		return
	}

	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := pts[0].X, pts[0].Y
	for _, pt := range pts[1:] {
		minX = min(minX, pt.X)
		minY = min(minY, pt.Y)
		maxX = max(maxX, pt.X)
		maxY = max(maxY, pt.Y)
	}

	pad := overlayPadLarge
	if maxX-minX < overlayTinyExtentX || maxY-minY < overlayTinyExtentY {
		pad = overlayPadSmall
	}

	width, height := p.store.Width, p.store.Height
	x0 := clamp(minX-pad, 0, width)
	y0 := clamp(minY-pad, 0, height)
	x1 := clamp(maxX+pad, 0, width)
	y1 := clamp(maxY+pad, 0, height)

	d := fmt.Sprintf("M 0 0 H %g V %g H 0 Z M %g %g H %g V %g H %g Z",
		width, height, x0, y0, x1, y1, x0)

	if p.doc.Has(OverlayID) {
		p.doc.RemoveNode(OverlayID)
	}
	overlay := p.doc.CreateElement("path", map[string]string{
		"id":        OverlayID,
		"d":         d,
		"fill":      "url(#fogPattern)",
		"fill-rule": "evenodd",
		"filter":    "url(#fogFilter)",
	})
	p.doc.AppendToRoot(overlay)
	p.doc.MarkOverlay(OverlayID)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
