package emgrid_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/emodeling/emod/emlayout/emelk"
	"github.com/emodeling/emod/emlayout/emgrid"
	"github.com/emodeling/emod/lib/go2"
)

func testGraph() *emelk.Graph {
	return &emelk.Graph{
		ID: "root",
		LayoutOptions: &emelk.Opts{
			PartitioningActivate: true,
		},
		Children: []*emelk.Node{
			{
				ID:            "s2",
				LayoutOptions: &emelk.Opts{Partition: go2.Pointer(2)},
				Children: []*emelk.Node{
					{ID: "evt", Width: 200, Height: 120, LayoutOptions: &emelk.Opts{Partition: go2.Pointer(5)}},
					{ID: "cmd", Width: 200, Height: 120, LayoutOptions: &emelk.Opts{Partition: go2.Pointer(2)}},
				},
				Edges: []*emelk.Edge{
					{
						ID:       "l1",
						Sources:  []string{"cmd"},
						Targets:  []string{"evt"},
						Sections: []emelk.EdgeSection{{Start: emelk.Point{X: 1, Y: 1}, End: emelk.Point{X: 2, Y: 2}}},
					},
				},
			},
			{
				ID:            "s1",
				LayoutOptions: &emelk.Opts{Partition: go2.Pointer(1)},
				Children: []*emelk.Node{
					{ID: "scr", Width: 200, Height: 120, LayoutOptions: &emelk.Opts{Partition: go2.Pointer(1)}},
					{ID: "pin", Width: 200, Height: 120, Pinned: true, X: 42, Y: 4242},
					{ID: "trg", Width: 200, Height: 120, LayoutOptions: &emelk.Opts{Partition: go2.Pointer(0)}},
				},
			},
		},
		Edges: []*emelk.Edge{
			{
				ID:       "dep:s1->s2",
				Sources:  []string{"s1"},
				Targets:  []string{"s2"},
				Sections: []emelk.EdgeSection{{Start: emelk.Point{X: 3, Y: 3}, End: emelk.Point{X: 4, Y: 4}}},
			},
		},
	}
}

func nodeByID(t *testing.T, g *emelk.Graph, id string) *emelk.Node {
	t.Helper()
	var found *emelk.Node
	g.Walk(func(n, _ *emelk.Node) {
		if n.ID == id {
			found = n
		}
	})
	if found == nil {
		t.Fatalf("node %q not in graph", id)
	}
	return found
}

func TestLayoutColumns(t *testing.T) {
	t.Parallel()

	in := testGraph()
	out, err := emgrid.Engine{}.Layout(context.Background(), in)
	assert.NoError(t, err)

	// slices are columns ordered by partition: s1 before s2
	s1 := nodeByID(t, out, "s1")
	s2 := nodeByID(t, out, "s2")
	assert.Equal(t, float64(0), s1.X)
	assert.Equal(t, float64(emgrid.SLICE_WIDTH), s2.X)

	// inside s1 the trigger stacks above the screen despite model order
	trg := nodeByID(t, out, "trg")
	scr := nodeByID(t, out, "scr")
	assert.Equal(t, float64(0), trg.Y)
	assert.Equal(t, float64(emgrid.ROW_HEIGHT), scr.Y)
	assert.Equal(t, float64(0), trg.X)
	assert.Equal(t, float64(0), scr.X)

	// commands sit one category column right, events two
	cmd := nodeByID(t, out, "cmd")
	evt := nodeByID(t, out, "evt")
	assert.Equal(t, float64(emgrid.CATEGORY_WIDTH), cmd.X)
	assert.Equal(t, float64(2*emgrid.CATEGORY_WIDTH), evt.X)
	assert.Equal(t, float64(0), cmd.Y)
	assert.Equal(t, float64(emgrid.ROW_HEIGHT), evt.Y)
}

func TestLayoutPinned(t *testing.T) {
	t.Parallel()

	out, err := emgrid.Engine{}.Layout(context.Background(), testGraph())
	assert.NoError(t, err)

	pin := nodeByID(t, out, "pin")
	assert.Equal(t, float64(42), pin.X)
	assert.Equal(t, float64(4242), pin.Y)

	// the pinned node does not occupy a row
	scr := nodeByID(t, out, "scr")
	assert.Equal(t, float64(emgrid.ROW_HEIGHT), scr.Y)
}

func TestLayoutNoSections(t *testing.T) {
	t.Parallel()

	out, err := emgrid.Engine{}.Layout(context.Background(), testGraph())
	assert.NoError(t, err)

	for _, e := range out.Edges {
		assert.Nil(t, e.Sections)
	}
	out.Walk(func(n, _ *emelk.Node) {
		for _, e := range n.Edges {
			assert.Nil(t, e.Sections, "edge %s in %s", e.ID, n.ID)
		}
	})
}

func TestLayoutInputUntouched(t *testing.T) {
	t.Parallel()

	in := testGraph()
	_, err := emgrid.Engine{}.Layout(context.Background(), in)
	assert.NoError(t, err)

	assert.Equal(t, float64(0), in.Children[0].X)
	assert.Len(t, in.Edges[0].Sections, 1)
	assert.Len(t, in.Children[0].Edges[0].Sections, 1)
}

func TestLayoutDeterministic(t *testing.T) {
	t.Parallel()

	a, err := emgrid.Engine{}.Layout(context.Background(), testGraph())
	assert.NoError(t, err)
	b, err := emgrid.Engine{}.Layout(context.Background(), testGraph())
	assert.NoError(t, err)
	assert.Equal(t, a, b)
}
