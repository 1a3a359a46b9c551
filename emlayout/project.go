package emlayout

import (
	"github.com/emodeling/emod/emgraph"
	"github.com/emodeling/emod/emlayout/emelk"
	"github.com/emodeling/emod/lib/geo"
)

// Project maps a laid-out engine graph back onto the model. Engine
// coordinates are relative to the parent container, so absolute positions
// accumulate down the walk, and an edge's sections live in the frame of the
// node that contains it. Positions and route points snap to the grid.
// Containers and ids unknown to the snapshot are skipped, and pinned nodes
// are omitted because their position is not the engine's to change.
//
// Root edges only order slice containers and carry no model route. A link
// without an extractable path is simply absent from Routes; such links get
// routed live instead.
func Project(snap *emgraph.Snapshot, g *emelk.Graph, opts *Opts) *Result {
	opts = opts.withDefaults()

	res := &Result{
		Positions: make(map[string]*geo.Point),
		Routes:    make(map[string]geo.Route),
	}

	abs := make(map[*emelk.Node]*geo.Point)
	g.Walk(func(n, parent *emelk.Node) {
		pos := geo.NewPoint(n.X, n.Y)
		if parent != nil && !n.Pinned {
			pos.X += abs[parent].X
			pos.Y += abs[parent].Y
		}
		abs[n] = pos

		if node := snap.Node(n.ID); node != nil && !node.Pinned {
			res.Positions[n.ID] = pos.Snap(opts.GridUnit)
		}

		for _, e := range n.Edges {
			if len(e.Sections) == 0 || snap.Link(e.ID) == nil {
				continue
			}
			res.Routes[e.ID] = projectRoute(e, pos, opts.GridUnit)
		}
	})

	return res
}

// projectRoute flattens an edge's sections into one polyline in origin's
// frame, dropping section junctions and points that snap together.
func projectRoute(e *emelk.Edge, origin *geo.Point, unit float64) geo.Route {
	var route geo.Route
	add := func(p emelk.Point) {
		abs := geo.NewPoint(p.X+origin.X, p.Y+origin.Y).Snap(unit)
		if len(route) > 0 && route[len(route)-1].Equals(abs) {
			return
		}
		route = append(route, abs)
	}
	for _, s := range e.Sections {
		add(s.Start)
		for _, b := range s.BendPoints {
			add(b)
		}
		add(s.End)
	}
	return route
}
