// Package emgrid is the built-in layout engine: a deterministic rank grid.
// Slices become columns ordered by their partition, nodes stack inside their
// slice ordered by category partition, stepping right through the category
// columns. No edge sections are produced; routes resolve live.
//
// It exists so the module works with no external engine. A real layered
// engine gives better crossing minimization.
package emgrid

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/emodeling/emod/emlayout/emelk"
	"github.com/emodeling/emod/lib/go2"
)

const (
	SLICE_WIDTH    = 1200
	ROW_HEIGHT     = 180
	CATEGORY_WIDTH = 250
)

type Engine struct{}

func NewEngine() Engine {
	return Engine{}
}

var _ emelk.Engine = Engine{}

func (Engine) Layout(ctx context.Context, g *emelk.Graph) (*emelk.Graph, error) {
	out, err := cloneGraph(g)
	if err != nil {
		return nil, err
	}

	columns := make([]*emelk.Node, len(out.Children))
	copy(columns, out.Children)
	sort.SliceStable(columns, func(i, j int) bool {
		return partition(columns[i]) < partition(columns[j])
	})

	for i, slice := range columns {
		slice.X = float64(i * SLICE_WIDTH)
		slice.Y = 0
		slice.Width = 4 * CATEGORY_WIDTH
		slice.Height = float64(go2.Max(len(slice.Children), 1) * ROW_HEIGHT)

		rows := make([]*emelk.Node, len(slice.Children))
		copy(rows, slice.Children)
		sort.SliceStable(rows, func(i, j int) bool {
			return partition(rows[i]) < partition(rows[j])
		})

		row := 0
		for _, n := range rows {
			if n.Pinned {
				// pinned coordinates are absolute and pass through
				continue
			}
			n.X = categoryColumn(partition(n)) * CATEGORY_WIDTH
			n.Y = float64(row * ROW_HEIGHT)
			row++
		}
	}

	// this engine computes no edge paths
	for _, e := range out.Edges {
		e.Sections = nil
	}
	out.Walk(func(n, _ *emelk.Node) {
		n.LayoutOptions = nil
		for _, e := range n.Edges {
			e.Sections = nil
		}
	})

	return out, nil
}

// categoryColumn maps a vertical partition rank to its column inside the
// slice: triggers and screens on the left, then commands, then automations
// and events, then views.
func categoryColumn(p int) float64 {
	switch {
	case p <= 1:
		return 0
	case p == 2:
		return 1
	case p == 3 || p == 5:
		return 2
	default:
		return 3
	}
}

func partition(n *emelk.Node) int {
	if n.LayoutOptions == nil || n.LayoutOptions.Partition == nil {
		return 0
	}
	return *n.LayoutOptions.Partition
}

func cloneGraph(g *emelk.Graph) (*emelk.Graph, error) {
	raw, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	var out emelk.Graph
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
