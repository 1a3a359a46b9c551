// Package emroute computes edge paths live. It answers in three tiers:
// the engine's cached route when one exists, an orthogonal route through
// the gap between two slices, or a vertical jog inside one slice.
//
// Resolution is a pure function of node and slice geometry. It runs on
// every pointer move during a drag, so it allocates little and touches
// nothing it is handed.
package emroute

import (
	"github.com/emodeling/emod/emgraph"
	"github.com/emodeling/emod/lib/geo"
)

// Resolver resolves link routes against one layout generation. Rebuild it
// (or swap its maps) when a new layout result lands.
type Resolver struct {
	// Routes are engine-computed paths by link id, highest priority.
	Routes map[string]geo.Route
	// Bounds are slice bounding boxes by slice id, for inter-slice bends.
	Bounds map[string]*geo.Box
	// GridUnit snaps inter-slice bend columns. <= 0 leaves them unsnapped.
	GridUnit float64
}

// Resolve returns the route for a link between src and dst. The cached
// engine route wins; otherwise cross-slice links bend once in the gap
// between the slices, and same-slice links jog vertically. The first and
// last points always lie on the node boundaries.
func (r *Resolver) Resolve(link *emgraph.Link, src, dst *emgraph.Node) geo.Route {
	if route, ok := r.Routes[link.ID]; ok && len(route) >= 2 {
		return route.Copy()
	}
	if route := r.crossSlice(src, dst); route != nil {
		return route
	}
	return vertical(src, dst)
}

// crossSlice routes between slices: out the facing side of each node, with
// the bend column centered in the horizontal gap between the slice bounds.
// When the slices overlap horizontally there is no gap, so the column falls
// between the two node x coordinates instead. Returns nil when either
// slice's bounds are unknown.
func (r *Resolver) crossSlice(src, dst *emgraph.Node) geo.Route {
	if src.SliceID == dst.SliceID {
		return nil
	}
	sb := r.Bounds[src.SliceID]
	db := r.Bounds[dst.SliceID]
	if sb == nil || db == nil {
		return nil
	}

	var mid float64
	var start, end *geo.Point
	switch {
	case sb.MaxX() <= db.TopLeft.X:
		mid = (sb.MaxX() + db.TopLeft.X) / 2
		start, end = src.RightCenter(), dst.LeftCenter()
	case db.MaxX() <= sb.TopLeft.X:
		mid = (db.MaxX() + sb.TopLeft.X) / 2
		start, end = src.LeftCenter(), dst.RightCenter()
	default:
		mid = (src.TopLeft.X + dst.TopLeft.X) / 2
		if dst.Center().X < src.Center().X {
			start, end = src.LeftCenter(), dst.RightCenter()
		} else {
			start, end = src.RightCenter(), dst.LeftCenter()
		}
	}
	mid = geo.Snap(mid, r.GridUnit)

	return compact(geo.Route{
		start,
		geo.NewPoint(mid, start.Y),
		geo.NewPoint(mid, end.Y),
		end,
	})
}

// vertical is the same-slice route: bottom-center of the source to
// top-center of the target, jogging at the vertical midpoint.
func vertical(src, dst *emgraph.Node) geo.Route {
	start := src.BottomCenter()
	end := dst.TopCenter()
	mid := (start.Y + end.Y) / 2

	return compact(geo.Route{
		start,
		geo.NewPoint(start.X, mid),
		geo.NewPoint(end.X, mid),
		end,
	})
}

// compact drops consecutive duplicate points left behind when a jog
// degenerates.
func compact(route geo.Route) geo.Route {
	out := route[:1]
	for _, p := range route[1:] {
		if out[len(out)-1].Equals(p) {
			continue
		}
		out = append(out, p)
	}
	return out
}
