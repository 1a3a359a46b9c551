package emroute

import (
	"math"

	"github.com/emodeling/emod/lib/geo"
)

// LabelPoint places a link label halfway along its route by arc length.
// Degenerate routes (empty, single point, zero length) fall back to a
// defined point instead of producing NaN.
func LabelPoint(route geo.Route) *geo.Point {
	if len(route) == 0 {
		return geo.NewPoint(0, 0)
	}
	if len(route) == 1 || route.Length() == 0 {
		return route[0].Copy()
	}
	p, _ := route.GetPointAtDistance(route.Length() / 2)
	if p == nil || math.IsNaN(p.X) || math.IsNaN(p.Y) {
		return route[0].Copy()
	}
	return p
}
