// Package emlayout turns a model snapshot into node positions and edge
// routes. It builds a two-level hierarchical graph (slices containing
// nodes), hands it to a layout engine, and projects the engine's answer
// back onto the model's id space.
//
// Engines are interchangeable: the built-in rank grid, a JS engine run
// in-process, or any subprocess speaking the same JSON graph.
package emlayout

import (
	"context"
	"time"

	"oss.terrastruct.com/xdefer"

	"github.com/emodeling/emod/emgraph"
	"github.com/emodeling/emod/emlayout/emelk"
	"github.com/emodeling/emod/lib/geo"
)

const (
	// DefaultGridUnit is the grid all computed positions snap to.
	DefaultGridUnit = 10.

	defaultNodeSpacing     = 100
	defaultEdgeNodeSpacing = 40

	// defaultDebounce is how long a session lets the model settle before
	// invoking the engine. Bursts of edits within the window collapse into
	// one layout pass.
	defaultDebounce = 55 * time.Millisecond
)

type Opts struct {
	// GridUnit <= 0 means DefaultGridUnit.
	GridUnit float64
	// Direction is the flow of slices. Defaults to left-to-right.
	Direction emelk.Direction

	NodeSpacing     int
	EdgeNodeSpacing int

	// Debounce overrides the session settle window. <= 0 means the default.
	Debounce time.Duration
}

func (o *Opts) withDefaults() *Opts {
	var out Opts
	if o != nil {
		out = *o
	}
	if out.GridUnit <= 0 {
		out.GridUnit = DefaultGridUnit
	}
	if out.Direction == "" {
		out.Direction = emelk.Right
	}
	if out.NodeSpacing <= 0 {
		out.NodeSpacing = defaultNodeSpacing
	}
	if out.EdgeNodeSpacing <= 0 {
		out.EdgeNodeSpacing = defaultEdgeNodeSpacing
	}
	if out.Debounce <= 0 {
		out.Debounce = defaultDebounce
	}
	return &out
}

// Result is a layout answer in model coordinates.
type Result struct {
	// ID is the request id the result answers. Zero for one-shot computes.
	ID int64

	// Positions holds the new top-left corner for every node the engine
	// placed. Pinned nodes are never present; their position is owned by
	// whoever pinned them.
	Positions map[string]*geo.Point

	// Routes holds engine-computed edge paths keyed by link id. Engines
	// that produce no sections leave this empty and routes resolve live.
	Routes map[string]geo.Route
}

// Compute runs a single layout pass: build, lay out, project.
func Compute(ctx context.Context, engine emelk.Engine, snap *emgraph.Snapshot, opts *Opts) (_ *Result, err error) {
	defer xdefer.Errorf(&err, "layout failed")

	opts = opts.withDefaults()
	laidOut, err := engine.Layout(ctx, Build(snap, opts))
	if err != nil {
		return nil, err
	}
	return Project(snap, laidOut, opts), nil
}
