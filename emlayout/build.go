package emlayout

import (
	"fmt"

	"github.com/emodeling/emod/emgraph"
	"github.com/emodeling/emod/emlayout/emelk"
	"github.com/emodeling/emod/emrank"
	"github.com/emodeling/emod/lib/go2"
)

// sliceElem namespaces slice containers so a slice and a node sharing an id
// cannot collide in the engine graph.
func sliceElem(id string) string {
	return "slice:" + id
}

// Build assembles the two-level engine graph: one container per slice,
// partitioned by slice rank so slices form ordered columns, and one child
// per node, partitioned by category so nodes stack in category order inside
// their slice.
//
// Links within a slice become edges of that slice's container, routed by
// the engine in the container's frame. Cross-slice links collapse into one
// root edge per ordered slice pair, however many links cross that boundary:
// enough to order the containers without routing every link at the top
// level. Edges against the flow carry the feedback flag. Pinned nodes are
// passed with absolute coordinates and the pinned flag; engines echo them
// unchanged.
func Build(snap *emgraph.Snapshot, opts *Opts) *emelk.Graph {
	opts = opts.withDefaults()
	ranks := emrank.Slices(snap)

	g := &emelk.Graph{
		ID: "root",
		LayoutOptions: &emelk.Opts{
			Algorithm:             "layered",
			Direction:             opts.Direction,
			HierarchyHandling:     "INCLUDE_CHILDREN",
			NodeSpacing:           opts.NodeSpacing,
			EdgeNodeSpacing:       opts.EdgeNodeSpacing,
			Padding:               "[top=50,left=50,bottom=50,right=50]",
			ConsiderModelOrder:    "NODES_AND_EDGES",
			CycleBreakingStrategy: "GREEDY_MODEL_ORDER",
			PartitioningActivate:  true,
		},
	}

	containers := make(map[string]*emelk.Node, len(snap.Slices))
	for _, sl := range snap.SortedSlices() {
		slice := &emelk.Node{
			ID: sliceElem(sl.ID),
			LayoutOptions: &emelk.Opts{
				Direction:            emelk.Down,
				Padding:              "[top=60,left=60,bottom=60,right=60]",
				PartitioningActivate: true,
				Partition:            go2.Pointer(ranks[sl.ID]),
			},
		}
		containers[sl.ID] = slice
		for _, n := range snap.SliceNodes(sl.ID) {
			child := &emelk.Node{
				ID:     n.ID,
				Width:  n.Width,
				Height: n.Height,
				LayoutOptions: &emelk.Opts{
					Partition: go2.Pointer(emrank.Category(n.Category)),
				},
			}
			if n.Pinned {
				child.Pinned = true
				child.X = n.TopLeft.X
				child.Y = n.TopLeft.Y
			}
			slice.Children = append(slice.Children, child)
		}
		g.Children = append(g.Children, slice)
	}

	seen := make(map[[2]string]struct{})
	for _, l := range snap.Links {
		if !snap.Crosses(l) {
			slice := containers[snap.Node(l.SrcID).SliceID]
			slice.Edges = append(slice.Edges, &emelk.Edge{
				ID:       l.ID,
				Sources:  []string{l.SrcID},
				Targets:  []string{l.DstID},
				Feedback: backward(snap, l),
			})
			continue
		}
		src := snap.Node(l.SrcID).SliceID
		dst := snap.Node(l.DstID).SliceID
		key := [2]string{src, dst}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		g.Edges = append(g.Edges, &emelk.Edge{
			ID:       fmt.Sprintf("dep:%s->%s", src, dst),
			Sources:  []string{sliceElem(src)},
			Targets:  []string{sliceElem(dst)},
			Feedback: ranks[dst] < ranks[src],
		})
	}

	return g
}

// backward reports whether a link inside one slice points up, to an earlier
// category row.
func backward(snap *emgraph.Snapshot, l *emgraph.Link) bool {
	src := snap.Node(l.SrcID)
	dst := snap.Node(l.DstID)
	return emrank.Category(dst.Category) < emrank.Category(src.Category)
}
