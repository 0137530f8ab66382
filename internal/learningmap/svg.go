package learningmap

import (
	"fmt"

	"github.com/trailmap/trailmap/internal/graphstore"
)

// Skeleton produces the initial markup of a freshly created map. The
// renderer relies on this exact structure: the style rules give the
// reachable, visited and waygone classes their meaning, the defs carry the
// checkmark glyph plus the fog pattern and filter the overlay references,
// and the two groups are the layers places and paths get authored into.
func Skeleton(s *graphstore.Store) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" width="%g" height="%g" viewBox="0 0 %g %g">
<style>
#placesGroup circle { fill: %s; opacity: 0; }
#pathsGroup path { stroke: %s; stroke-width: 3; stroke-opacity: %g; fill: none; opacity: 0; }
#placesGroup text { fill: %s; font-family: sans-serif; opacity: 0; }
.reachable { opacity: 1; }
.visited { fill: %s; }
.waygone { stroke-dasharray: 8 4; }
</style>
<defs>
<symbol id="checkmark" viewBox="0 0 24 24" width="16" height="16"><path d="M 4 13 L 9 18 L 20 5" fill="none" stroke="#ffffff" stroke-width="3"/></symbol>
<filter id="fogFilter"><feGaussianBlur stdDeviation="10"/></filter>
<pattern id="fogPattern" width="100" height="100" patternUnits="userSpaceOnUse"><rect width="100" height="100" fill="#808080"/></pattern>
</defs>
<g id="pathsGroup"></g>
<g id="placesGroup"></g>
</svg>`,
		s.Width, s.Height, s.Width, s.Height,
		s.PlaceColor, s.StrokeColor, s.StrokeOpacity, s.TextColor, s.VisitedColor)
}
