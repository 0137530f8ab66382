package svgdoc

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/beevik/etree"
)

// Point is a coordinate in the document's user space.
type Point struct {
	X float64
	Y float64
}

// FontMetrics approximates label extents at a fixed reference size. Widths
// and vertical extents are fractions of Size.
type FontMetrics struct {
	Size      float64
	CharWidth float64
	Ascent    float64
	Descent   float64
}

// DefaultFontMetrics matches the reference size labels are rendered at.
var DefaultFontMetrics = FontMetrics{Size: 16, CharWidth: 0.6, Ascent: 0.8, Descent: 0.25}

// CircleCenters returns the center of every circle under the given group.
func (d *Document) CircleCenters(groupID string) []Point {
	group, ok := d.nodes[groupID]
	if !ok {
		return nil
	}
	var points []Point
	walk(group.el, func(el *etree.Element) {
		if el.Tag != "circle" {
			return
		}
		cx, okX := parseFloatAttr(el, "cx")
		cy, okY := parseFloatAttr(el, "cy")
		if okX && okY {
			points = append(points, Point{X: cx, Y: cy})
		}
	})
	return points
}

// PathCurveMidpoints returns, for every path under the group, the point the
// rendered curve passes through at its middle.
func (d *Document) PathCurveMidpoints(groupID string) []Point {
	group, ok := d.nodes[groupID]
	if !ok {
		return nil
	}
	var points []Point
	walk(group.el, func(el *etree.Element) {
		if el.Tag != "path" {
			return
		}
		if mid, ok := CurveMidpoint(el.SelectAttrValue("d", "")); ok {
			points = append(points, mid)
		}
	})
	return points
}

// CurveMidpoint parses a path datum holding a single segment and returns the
// point at parameter ½. For a quadratic curve `M fx fy Q bx by tx ty` that is
// 0.5·(bx,by) + 0.25·((fx,fy)+(tx,ty)) — the point on the curve, not the
// control point. A straight segment `M fx fy L tx ty` yields the segment
// midpoint.
func CurveMidpoint(d string) (Point, bool) {
	cmds := parsePathData(d)
	if len(cmds) < 2 || cmds[0].op != "M" || len(cmds[0].args) < 2 {
		return Point{}, false
	}
	fx, fy := cmds[0].args[0], cmds[0].args[1]

	switch seg := cmds[1]; seg.op {
	case "Q":
		if len(seg.args) < 4 {
			return Point{}, false
		}
		bx, by := seg.args[0], seg.args[1]
		tx, ty := seg.args[2], seg.args[3]
		return Point{
			X: 0.5*bx + 0.25*(fx+tx),
			Y: 0.5*by + 0.25*(fy+ty),
		}, true
	case "L":
		if len(seg.args) < 2 {
			return Point{}, false
		}
		return Point{
			X: (fx + seg.args[0]) / 2,
			Y: (fy + seg.args[1]) / 2,
		}, true
	}
	return Point{}, false
}

type pathCommand struct {
	op   string
	args []float64
}

func parsePathData(d string) []pathCommand {
	var cmds []pathCommand
	var sb strings.Builder
	for _, r := range d {
		switch {
		case r == ',':
			sb.WriteRune(' ')
		case (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z'):
			sb.WriteRune(' ')
			sb.WriteRune(r)
			sb.WriteRune(' ')
		default:
			sb.WriteRune(r)
		}
	}

	for _, tok := range strings.Fields(sb.String()) {
		if len(tok) == 1 && ((tok[0] >= 'A' && tok[0] <= 'Z') || (tok[0] >= 'a' && tok[0] <= 'z')) {
			cmds = append(cmds, pathCommand{op: strings.ToUpper(tok)})
			continue
		}
		val, err := strconv.ParseFloat(tok, 64)
		if err != nil || len(cmds) == 0 {
			continue
		}
		cmds[len(cmds)-1].args = append(cmds[len(cmds)-1].args, val)
	}
	return cmds
}

// TextBoundingCorners returns the four corners of a label's bounding box,
// computed from font metrics around the label's declared anchor position.
func (d *Document) TextBoundingCorners(textID string, m FontMetrics) []Point {
	n, ok := d.nodes[textID]
	if !ok {
		return nil
	}
	x, okX := parseFloatAttr(n.el, "x")
	y, okY := parseFloatAttr(n.el, "y")
	if !okX || !okY {
		return nil
	}

	width := float64(utf8.RuneCountInString(n.el.Text())) * m.CharWidth * m.Size
	top := y - m.Ascent*m.Size
	bottom := y + m.Descent*m.Size

	return []Point{
		{X: x, Y: top},
		{X: x + width, Y: top},
		{X: x, Y: bottom},
		{X: x + width, Y: bottom},
	}
}

func walk(el *etree.Element, fn func(*etree.Element)) {
	fn(el)
	for _, child := range el.ChildElements() {
		walk(child, fn)
	}
}

func parseFloatAttr(el *etree.Element, name string) (float64, bool) {
	attr := el.SelectAttr(name)
	if attr == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(attr.Value), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
