package emgraph_test

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"oss.terrastruct.com/xrand"

	"github.com/emodeling/emod/emgraph"
	"github.com/emodeling/emod/lib/log"
)

func TestNewSnapshotHygiene(t *testing.T) {
	ctx := log.WithTB(context.Background(), t, nil)

	nodes := []*emgraph.Node{
		emgraph.NewNode("a", emgraph.CategoryCommand),
		emgraph.NewNode("a", emgraph.CategoryEvent), // duplicate id
		emgraph.NewNode("b", emgraph.CategoryEvent),
		emgraph.NewNode("c", emgraph.CategoryScreen),
	}
	nodes[2].SliceID = "s1"
	nodes[3].SliceID = "ghost" // never declared

	links := []*emgraph.Link{
		{ID: "l1", SrcID: "a", DstID: "b"},
		{ID: "l1", SrcID: "b", DstID: "a"}, // duplicate id
		{ID: "l2", SrcID: "a", DstID: "nope"},
		{ID: "l3", SrcID: "nope", DstID: "b"},
	}

	slices := []*emgraph.Slice{
		{ID: "s1", Order: 1},
		{ID: "s1", Order: 2}, // duplicate id
	}

	snap := emgraph.NewSnapshot(ctx, nodes, links, slices)

	assert.Equal(t, 3, len(snap.Nodes))
	assert.Equal(t, emgraph.CategoryCommand, snap.Node("a").Category)

	// only l1 survives, and the first occurrence at that
	assert.Equal(t, 1, len(snap.Links))
	assert.Equal(t, "a", snap.Link("l1").SrcID)

	// s1 declared, ghost implicit, "-" for the sliceless node "a"
	assert.Equal(t, 3, len(snap.Slices))
	assert.Equal(t, 1, snap.Slice("s1").Order)
	assert.Equal(t, emgraph.DefaultSliceID, snap.Node("a").SliceID)
	if snap.Slice("ghost") == nil {
		t.Fatal("expected the ghost slice to be declared implicitly")
	}
	if snap.Slice("ghost").Order <= snap.Slice("s1").Order {
		t.Fatal("implicit slices must order after declared ones")
	}

	// defaults fill in
	assert.Equal(t, emgraph.DefaultNodeWidth, snap.Node("a").Width)
	if snap.Node("a").Height <= 0 {
		t.Fatal("expected a default height")
	}
}

func TestSortedSlices(t *testing.T) {
	ctx := log.WithTB(context.Background(), t, nil)

	snap := emgraph.NewSnapshot(ctx, nil, nil, []*emgraph.Slice{
		{ID: "c", Order: 2},
		{ID: "a", Order: 1},
		{ID: "b", Order: 1},
	})

	sorted := snap.SortedSlices()
	assert.Equal(t, "a", sorted[0].ID)
	assert.Equal(t, "b", sorted[1].ID)
	assert.Equal(t, "c", sorted[2].ID)
}

func TestSliceBounds(t *testing.T) {
	ctx := log.WithTB(context.Background(), t, nil)

	n1 := emgraph.NewNode("n1", emgraph.CategoryCommand)
	n1.SliceID = "s1"
	n1.TopLeft.X = 0
	n1.TopLeft.Y = 0
	n1.Width = 200
	n1.Height = 100

	n2 := emgraph.NewNode("n2", emgraph.CategoryEvent)
	n2.SliceID = "s1"
	n2.TopLeft.X = 100
	n2.TopLeft.Y = 300
	n2.Width = 200
	n2.Height = 100

	snap := emgraph.NewSnapshot(ctx, []*emgraph.Node{n1, n2}, nil, nil)

	bounds := snap.SliceBounds("s1")
	if bounds == nil {
		t.Fatal("expected bounds")
	}
	assert.Equal(t, 0., bounds.TopLeft.X)
	assert.Equal(t, 0., bounds.TopLeft.Y)
	assert.Equal(t, 300., bounds.Width)
	assert.Equal(t, 400., bounds.Height)

	assert.Nil(t, snap.SliceBounds("empty"))
}

func TestParseSnapshot(t *testing.T) {
	ctx := log.WithTB(context.Background(), t, nil)

	snap, err := emgraph.ParseSnapshot(ctx, []byte(`{
		"nodes": [
			{"id": "order-screen", "category": "Screen", "text": "Order form"},
			{"id": "place-order", "category": "command", "groupId": "ordering"},
			{"id": "order-placed", "category": "EVENT"},
			{"id": "orders", "category": "readmodel"},
			{"id": "mystery", "category": "widget"}
		],
		"links": [
			{"id": "l1", "source": "place-order", "target": "order-placed"}
		],
		"groups": [
			{"id": "ordering", "memberIds": ["order-screen", "order-placed"], "order": 1}
		]
	}`))
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, emgraph.CategoryScreen, snap.Node("order-screen").Category)
	assert.Equal(t, emgraph.CategoryEvent, snap.Node("order-placed").Category)
	assert.Equal(t, emgraph.CategoryView, snap.Node("orders").Category)
	assert.Equal(t, emgraph.CategoryUnknown, snap.Node("mystery").Category)

	// membership via memberIds
	assert.Equal(t, "ordering", snap.Node("order-screen").SliceID)
	// node's own groupId wins
	assert.Equal(t, "ordering", snap.Node("place-order").SliceID)
	// neither -> default slice
	assert.Equal(t, emgraph.DefaultSliceID, snap.Node("orders").SliceID)

	ss := emgraph.Serialize(snap)
	assert.Equal(t, 5, len(ss.Nodes))
	assert.Equal(t, 1, len(ss.Links))
}

func TestSnapshotCopy(t *testing.T) {
	ctx := log.WithTB(context.Background(), t, nil)

	n := emgraph.NewNode("a", emgraph.CategoryCommand)
	snap := emgraph.NewSnapshot(ctx, []*emgraph.Node{n}, nil, nil)

	cp := snap.Copy()
	cp.Node("a").TopLeft.X = 999

	assert.Equal(t, 0., snap.Node("a").TopLeft.X)
}

// Whatever garbage comes in, every surviving link must have both endpoints
// resolvable.
func TestSnapshotHygieneRandom(t *testing.T) {
	ctx := log.WithTB(context.Background(), t, nil)

	rd := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		var nodes []*emgraph.Node
		for j := 0; j < rd.Intn(20); j++ {
			nodes = append(nodes, emgraph.NewNode(xrand.String(1+rd.Intn(8), nil), emgraph.CategoryCommand))
		}
		var links []*emgraph.Link
		for j := 0; j < rd.Intn(30); j++ {
			links = append(links, &emgraph.Link{
				ID:    fmt.Sprintf("l%d", j),
				SrcID: xrand.String(1+rd.Intn(8), nil),
				DstID: xrand.String(1+rd.Intn(8), nil),
			})
		}

		snap := emgraph.NewSnapshot(ctx, nodes, links, nil)
		for _, l := range snap.Links {
			if snap.Node(l.SrcID) == nil || snap.Node(l.DstID) == nil {
				t.Fatalf("link %q survived with a dangling endpoint", l.ID)
			}
		}
		for _, n := range snap.Nodes {
			if snap.Slice(n.SliceID) == nil {
				t.Fatalf("node %q belongs to undeclared slice %q", n.ID, n.SliceID)
			}
		}
	}
}
