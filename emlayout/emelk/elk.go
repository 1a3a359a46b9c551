// Package emelk speaks the hierarchical graph protocol of ELK-style layered
// layout engines: slices are depth-1 children of the root, nodes their
// children, and every level's coordinates are relative to its parent.
//
// Pinned nodes are the one exception to relative coordinates: they carry
// absolute coordinates and engines must echo them unchanged.
package emelk

import "context"

type Direction string

const (
	Down  Direction = "DOWN"
	Up    Direction = "UP"
	Right Direction = "RIGHT"
	Left  Direction = "LEFT"
)

type Node struct {
	ID       string  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Pinned   bool    `json:"pinned,omitempty"`
	Children []*Node `json:"children,omitempty"`
	// Edges contained in this node. Their section coordinates are relative
	// to this node's frame, like child coordinates.
	Edges         []*Edge `json:"edges,omitempty"`
	LayoutOptions *Opts   `json:"layoutOptions,omitempty"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type EdgeSection struct {
	Start      Point   `json:"startPoint"`
	End        Point   `json:"endPoint"`
	BendPoints []Point `json:"bendPoints,omitempty"`
}

type Edge struct {
	ID      string   `json:"id"`
	Sources []string `json:"sources"`
	Targets []string `json:"targets"`
	// Feedback edges run against the established rank order and need
	// special routing (or backward ordering, for slice-level edges).
	Feedback bool          `json:"feedback,omitempty"`
	Sections []EdgeSection `json:"sections,omitempty"`
}

type Graph struct {
	ID            string  `json:"id"`
	LayoutOptions *Opts   `json:"layoutOptions,omitempty"`
	Children      []*Node `json:"children,omitempty"`
	Edges         []*Edge `json:"edges,omitempty"`
}

// Opts are layout options in ELK vocabulary. Only a thin slice of the option
// space: what the builder emits and engines are expected to honor.
type Opts struct {
	Algorithm             string    `json:"elk.algorithm,omitempty"`
	Direction             Direction `json:"elk.direction,omitempty"`
	HierarchyHandling     string    `json:"elk.hierarchyHandling,omitempty"`
	NodeSpacing           int       `json:"spacing.nodeNodeBetweenLayers,omitempty"`
	EdgeNodeSpacing       int       `json:"spacing.edgeNodeBetweenLayers,omitempty"`
	Padding               string    `json:"elk.padding,omitempty"`
	ConsiderModelOrder    string    `json:"elk.layered.considerModelOrder.strategy,omitempty"`
	CycleBreakingStrategy string    `json:"elk.layered.cycleBreaking.strategy,omitempty"`
	PartitioningActivate  bool      `json:"elk.partitioning.activate,omitempty"`
	// Partition is a pointer because partition 0 is meaningful.
	Partition *int `json:"elk.partitioning.partition,omitempty"`
}

// Engine runs one layout pass. Implementations must treat the input graph as
// read-only and be a pure function of it.
type Engine interface {
	Layout(ctx context.Context, g *Graph) (*Graph, error)
}

// Walk visits every node depth-first, parents before children. The root
// children's parent is nil.
func (g *Graph) Walk(fn func(n, parent *Node)) {
	var walk func(n, parent *Node)
	walk = func(n, parent *Node) {
		fn(n, parent)
		for _, ch := range n.Children {
			walk(ch, n)
		}
	}
	for _, ch := range g.Children {
		walk(ch, nil)
	}
}
