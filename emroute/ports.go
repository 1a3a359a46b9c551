package emroute

import (
	"math"
	"sort"

	"github.com/emodeling/emod/emgraph"
	"github.com/emodeling/emod/lib/geo"
)

type Side int

const (
	SideTop Side = iota
	SideBottom
	SideLeft
	SideRight
)

func (s Side) String() string {
	switch s {
	case SideTop:
		return "top"
	case SideBottom:
		return "bottom"
	case SideLeft:
		return "left"
	default:
		return "right"
	}
}

// Port is one link's attachment on one node: the side it leaves from and
// its position among the links sharing that side.
type Port struct {
	Side  Side
	Index int
	Count int
}

// Point returns the attachment point on b. Ports fan out evenly along
// their side so parallel links never collapse onto one spot.
func (p Port) Point(b *geo.Box) *geo.Point {
	t := float64(p.Index+1) / float64(p.Count+1)
	switch p.Side {
	case SideTop:
		return geo.NewPoint(b.TopLeft.X+b.Width*t, b.TopLeft.Y)
	case SideBottom:
		return geo.NewPoint(b.TopLeft.X+b.Width*t, b.MaxY())
	case SideLeft:
		return geo.NewPoint(b.TopLeft.X, b.TopLeft.Y+b.Height*t)
	default:
		return geo.NewPoint(b.MaxX(), b.TopLeft.Y+b.Height*t)
	}
}

// PortKey addresses one endpoint of one link.
type PortKey struct {
	LinkID string
	NodeID string
}

// AssignPorts buckets every node's incident links by the side facing each
// link's counterpart, then orders each bucket by the counterpart's position:
// x for top and bottom, y for left and right. Ties keep link declaration
// order, so the assignment is stable while nodes drag as long as neighbor
// ordering doesn't change.
func AssignPorts(snap *emgraph.Snapshot) map[PortKey]Port {
	incident := make(map[string][]*emgraph.Link)
	for _, l := range snap.Links {
		incident[l.SrcID] = append(incident[l.SrcID], l)
		if l.DstID != l.SrcID {
			incident[l.DstID] = append(incident[l.DstID], l)
		}
	}

	ports := make(map[PortKey]Port, 2*len(snap.Links))
	for _, n := range snap.Nodes {
		links := incident[n.ID]
		if len(links) == 0 {
			continue
		}

		sides := make(map[Side][]*emgraph.Link)
		for _, l := range links {
			s := sideFor(n, peer(snap, l, n))
			sides[s] = append(sides[s], l)
		}

		for s, bucket := range sides {
			s := s
			sort.SliceStable(bucket, func(i, j int) bool {
				pi := peer(snap, bucket[i], n).Center()
				pj := peer(snap, bucket[j], n).Center()
				if s == SideTop || s == SideBottom {
					return pi.X < pj.X
				}
				return pi.Y < pj.Y
			})
			for i, l := range bucket {
				ports[PortKey{LinkID: l.ID, NodeID: n.ID}] = Port{
					Side:  s,
					Index: i,
					Count: len(bucket),
				}
			}
		}
	}
	return ports
}

func peer(snap *emgraph.Snapshot, l *emgraph.Link, n *emgraph.Node) *emgraph.Node {
	if l.SrcID == n.ID {
		return snap.Node(l.DstID)
	}
	return snap.Node(l.SrcID)
}

// sideFor picks the side of n facing its counterpart. The dominant axis of
// the center-to-center offset decides; a perfect diagonal counts as
// horizontal, and a coincident counterpart lands on the right.
func sideFor(n, counterpart *emgraph.Node) Side {
	dx := counterpart.Center().X - n.Center().X
	dy := counterpart.Center().Y - n.Center().Y
	if math.Abs(dx) >= math.Abs(dy) {
		if dx < 0 {
			return SideLeft
		}
		return SideRight
	}
	if dy < 0 {
		return SideTop
	}
	return SideBottom
}
