package emspatial_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emodeling/emod/emgraph"
	"github.com/emodeling/emod/emspatial"
	"github.com/emodeling/emod/lib/geo"
	"github.com/emodeling/emod/lib/log"
)

func TestIndex(t *testing.T) {
	t.Parallel()

	ix := emspatial.NewIndex()
	ix.Upsert("a", geo.NewBox(geo.NewPoint(0, 0), 100, 100))
	ix.Upsert("b", geo.NewBox(geo.NewPoint(500, 0), 100, 100))
	ix.Upsert("c", geo.NewBox(geo.NewPoint(5000, 5000), 100, 100))
	assert.Equal(t, 3, ix.Len())

	got := ix.Search(geo.NewBox(geo.NewPoint(-10, -10), 700, 200))
	assert.Equal(t, []string{"a", "b"}, got)

	// moving a rectangle replaces it, never duplicates it
	ix.Upsert("b", geo.NewBox(geo.NewPoint(6000, 6000), 100, 100))
	assert.Equal(t, 3, ix.Len())
	got = ix.Search(geo.NewBox(geo.NewPoint(-10, -10), 700, 200))
	assert.Equal(t, []string{"a"}, got)

	ix.Delete("a")
	assert.Equal(t, 2, ix.Len())
	assert.Empty(t, ix.Search(geo.NewBox(geo.NewPoint(-10, -10), 700, 200)))
}

// cullSnap spreads nodes around a 1000x800 viewport: "in" well inside,
// "edge" only inside once the viewport is buffered, "out" and "out2" far
// away.
func cullSnap(ctx context.Context) *emgraph.Snapshot {
	in := emgraph.NewNode("in", emgraph.CategoryCommand)
	in.TopLeft.X, in.TopLeft.Y = 100, 100
	edge := emgraph.NewNode("edge", emgraph.CategoryEvent)
	edge.TopLeft.X, edge.TopLeft.Y = 1150, 100
	out := emgraph.NewNode("out", emgraph.CategoryView)
	out.TopLeft.X, out.TopLeft.Y = 2000, 2000
	out2 := emgraph.NewNode("out2", emgraph.CategoryTrigger)
	out2.TopLeft.X, out2.TopLeft.Y = 2500, 2500

	return emgraph.NewSnapshot(ctx,
		[]*emgraph.Node{in, edge, out, out2},
		[]*emgraph.Link{
			{ID: "lin", SrcID: "in", DstID: "out"},
			{ID: "lout", SrcID: "out", DstID: "out2"},
		},
		nil,
	)
}

func TestCullerVisible(t *testing.T) {
	t.Parallel()
	ctx := log.WithTB(context.Background(), t, nil)

	c := emspatial.NewCuller(time.Millisecond)
	defer c.Close()
	c.Update(cullSnap(ctx))
	c.Flush()

	viewport := geo.NewBox(geo.NewPoint(0, 0), 1000, 800)

	nodes, links := c.Visible(viewport, nil)
	assert.Equal(t, []string{"edge", "in"}, nodes)
	assert.Equal(t, []string{"lin"}, links)

	// a selected node is visible wherever it is, and carries its links
	nodes, links = c.Visible(viewport, map[string]bool{"out2": true})
	assert.Equal(t, []string{"edge", "in", "out2"}, nodes)
	assert.Equal(t, []string{"lin", "lout"}, links)

	// a selected link is eligible even fully offscreen
	nodes, links = c.Visible(viewport, map[string]bool{"lout": true})
	assert.Equal(t, []string{"edge", "in"}, nodes)
	assert.Equal(t, []string{"lin", "lout"}, links)
}

func TestCullerEmpty(t *testing.T) {
	t.Parallel()

	c := emspatial.NewCuller(time.Millisecond)
	defer c.Close()
	nodes, links := c.Visible(geo.NewBox(geo.NewPoint(0, 0), 100, 100), nil)
	assert.Nil(t, nodes)
	assert.Nil(t, links)
}

func TestCullerDebounce(t *testing.T) {
	t.Parallel()
	ctx := log.WithTB(context.Background(), t, nil)

	c := emspatial.NewCuller(150 * time.Millisecond)
	defer c.Close()
	c.Update(cullSnap(ctx))

	viewport := geo.NewBox(geo.NewPoint(0, 0), 1000, 800)

	// nothing applied inside the settle window
	nodes, _ := c.Visible(viewport, nil)
	assert.Empty(t, nodes)

	require.Eventually(t, func() bool {
		nodes, _ := c.Visible(viewport, nil)
		return len(nodes) > 0
	}, time.Second, 10*time.Millisecond)
}
