// Package emgraph holds the event model diagram: nodes of fixed categories,
// links between them, and ordered slices grouping nodes into process steps.
//
// A Snapshot is the immutable per-pass view the layout and routing packages
// consume. It is never mutated after construction; layout results are
// returned separately for the caller to apply.
package emgraph

import (
	"context"
	"sort"

	"cdr.dev/slog"

	"github.com/emodeling/emod/lib/geo"
	"github.com/emodeling/emod/lib/go2"
	"github.com/emodeling/emod/lib/log"
)

const (
	// DefaultSliceID is the reserved slice collecting nodes without an
	// explicit slice. It ranks like any other slice.
	DefaultSliceID = "-"

	DefaultNodeWidth = 200.

	nodeBaseHeight  = 120.
	nodeLineHeight  = 40.
	nodeTextColumns = 24
)

type Node struct {
	ID       string
	Category Category
	Text     string
	SliceID  string
	// Pinned nodes keep their position across layout passes. Their
	// TopLeft is authoritative; for all other nodes it is advisory.
	Pinned bool

	*geo.Box
}

func NewNode(id string, category Category) *Node {
	return &Node{
		ID:       id,
		Category: category,
		Box:      geo.NewBox(geo.NewPoint(0, 0), DefaultNodeWidth, nodeBaseHeight),
	}
}

func (n *Node) Copy() *Node {
	tmp := *n
	tmp.Box = n.Box.Copy()
	return &tmp
}

// EstimateHeight approximates the rendered height of text wrapped at
// nodeTextColumns characters. Real text metrics belong to the editing shell;
// this only fills in a plausible default when none was supplied.
func EstimateHeight(text string) float64 {
	lines := 1 + len(text)/nodeTextColumns
	return nodeBaseHeight + float64(lines-1)*nodeLineHeight
}

type Link struct {
	ID    string
	SrcID string
	DstID string
	Label string
}

func (l *Link) Copy() *Link {
	tmp := *l
	return &tmp
}

type Slice struct {
	ID string
	// Order is the display order hint. Ties keep declaration order.
	Order int
}

func (s *Slice) Copy() *Slice {
	tmp := *s
	return &tmp
}

type Snapshot struct {
	Nodes  []*Node
	Links  []*Link
	Slices []*Slice

	nodeIndex  map[string]*Node
	linkIndex  map[string]*Link
	sliceIndex map[string]*Slice
	members    map[string][]*Node
}

// NewSnapshot indexes the model and applies boundary hygiene: duplicate node,
// link, or slice ids are dropped (first occurrence wins), links with a
// missing endpoint are dropped, undeclared slices are declared implicitly
// after the declared ones, and nodes without a slice fall into the default
// slice. Dropping is logged at debug level and is never an error.
func NewSnapshot(ctx context.Context, nodes []*Node, links []*Link, slices []*Slice) *Snapshot {
	snap := &Snapshot{
		nodeIndex:  make(map[string]*Node, len(nodes)),
		linkIndex:  make(map[string]*Link, len(links)),
		sliceIndex: make(map[string]*Slice, len(slices)),
		members:    make(map[string][]*Node),
	}

	maxOrder := 0
	for _, sl := range slices {
		if _, ok := snap.sliceIndex[sl.ID]; ok {
			log.Debug(ctx, "dropping duplicate slice", slog.F("id", sl.ID))
			continue
		}
		snap.sliceIndex[sl.ID] = sl
		snap.Slices = append(snap.Slices, sl)
		maxOrder = go2.Max(maxOrder, sl.Order)
	}

	declareSlice := func(id string) {
		if _, ok := snap.sliceIndex[id]; ok {
			return
		}
		maxOrder++
		sl := &Slice{ID: id, Order: maxOrder}
		snap.sliceIndex[id] = sl
		snap.Slices = append(snap.Slices, sl)
	}

	for _, n := range nodes {
		if _, ok := snap.nodeIndex[n.ID]; ok {
			log.Debug(ctx, "dropping duplicate node", slog.F("id", n.ID))
			continue
		}
		if n.Box == nil {
			n.Box = geo.NewBox(geo.NewPoint(0, 0), 0, 0)
		}
		if n.TopLeft == nil {
			n.TopLeft = geo.NewPoint(0, 0)
		}
		if n.Width == 0 {
			n.Width = DefaultNodeWidth
		}
		if n.Height == 0 {
			n.Height = EstimateHeight(n.Text)
		}
		if n.SliceID == "" {
			n.SliceID = DefaultSliceID
		}
		declareSlice(n.SliceID)
		snap.nodeIndex[n.ID] = n
		snap.Nodes = append(snap.Nodes, n)
		snap.members[n.SliceID] = append(snap.members[n.SliceID], n)
	}

	for _, l := range links {
		if _, ok := snap.linkIndex[l.ID]; ok {
			log.Debug(ctx, "dropping duplicate link", slog.F("id", l.ID))
			continue
		}
		if snap.Node(l.SrcID) == nil || snap.Node(l.DstID) == nil {
			log.Debug(ctx, "dropping dangling link",
				slog.F("id", l.ID),
				slog.F("source", l.SrcID),
				slog.F("target", l.DstID),
			)
			continue
		}
		snap.linkIndex[l.ID] = l
		snap.Links = append(snap.Links, l)
	}

	return snap
}

func (s *Snapshot) Node(id string) *Node {
	return s.nodeIndex[id]
}

func (s *Snapshot) Link(id string) *Link {
	return s.linkIndex[id]
}

func (s *Snapshot) Slice(id string) *Slice {
	return s.sliceIndex[id]
}

// SliceOf returns the slice the node belongs to.
func (s *Snapshot) SliceOf(n *Node) *Slice {
	return s.sliceIndex[n.SliceID]
}

// SliceNodes returns the slice's member nodes in insertion order.
func (s *Snapshot) SliceNodes(sliceID string) []*Node {
	return s.members[sliceID]
}

// SortedSlices returns the slices in display order: ascending Order,
// ties keeping declaration order.
func (s *Snapshot) SortedSlices() []*Slice {
	sorted := make([]*Slice, len(s.Slices))
	copy(sorted, s.Slices)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})
	return sorted
}

// SliceBounds is the union of the member node boxes, or nil for an empty
// slice.
func (s *Snapshot) SliceBounds(sliceID string) *geo.Box {
	var bounds *geo.Box
	for _, n := range s.members[sliceID] {
		bounds = bounds.Union(n.Box)
	}
	return bounds
}

// Crosses reports whether the link's endpoints live in different slices.
func (s *Snapshot) Crosses(l *Link) bool {
	src, dst := s.Node(l.SrcID), s.Node(l.DstID)
	if src == nil || dst == nil {
		return false
	}
	return src.SliceID != dst.SliceID
}

// Boxes maps every node id to its current box.
func (s *Snapshot) Boxes() map[string]*geo.Box {
	boxes := make(map[string]*geo.Box, len(s.Nodes))
	for _, n := range s.Nodes {
		boxes[n.ID] = n.Box
	}
	return boxes
}

// Copy deep-copies the snapshot so it can cross a worker boundary without
// aliasing the caller's model.
func (s *Snapshot) Copy() *Snapshot {
	snap := &Snapshot{
		Nodes:      make([]*Node, 0, len(s.Nodes)),
		Links:      make([]*Link, 0, len(s.Links)),
		Slices:     make([]*Slice, 0, len(s.Slices)),
		nodeIndex:  make(map[string]*Node, len(s.Nodes)),
		linkIndex:  make(map[string]*Link, len(s.Links)),
		sliceIndex: make(map[string]*Slice, len(s.Slices)),
		members:    make(map[string][]*Node, len(s.members)),
	}
	for _, n := range s.Nodes {
		n2 := n.Copy()
		snap.Nodes = append(snap.Nodes, n2)
		snap.nodeIndex[n2.ID] = n2
		snap.members[n2.SliceID] = append(snap.members[n2.SliceID], n2)
	}
	for _, l := range s.Links {
		l2 := l.Copy()
		snap.Links = append(snap.Links, l2)
		snap.linkIndex[l2.ID] = l2
	}
	for _, sl := range s.Slices {
		sl2 := sl.Copy()
		snap.Slices = append(snap.Slices, sl2)
		snap.sliceIndex[sl2.ID] = sl2
	}
	return snap
}
