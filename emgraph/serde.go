package emgraph

import (
	"context"
	"encoding/json"

	"github.com/emodeling/emod/lib/geo"
)

// The serialized shapes double as the wire format of the layout protocol, so
// slices travel under the "groups" key and membership can arrive either as
// node.groupId or as group.memberIds.

type SerializedNode struct {
	ID       string  `json:"id"`
	Category string  `json:"category,omitempty"`
	Text     string  `json:"text,omitempty"`
	Width    float64 `json:"width,omitempty"`
	Height   float64 `json:"height,omitempty"`
	GroupID  string  `json:"groupId,omitempty"`
	Pinned   bool    `json:"pinned,omitempty"`
	X        float64 `json:"x,omitempty"`
	Y        float64 `json:"y,omitempty"`
}

type SerializedLink struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
}

type SerializedSlice struct {
	ID        string   `json:"id"`
	MemberIDs []string `json:"memberIds,omitempty"`
	Order     int      `json:"order,omitempty"`
}

type SerializedSnapshot struct {
	Nodes  []*SerializedNode  `json:"nodes"`
	Links  []*SerializedLink  `json:"links"`
	Groups []*SerializedSlice `json:"groups,omitempty"`
}

// Decode builds a hygienic Snapshot from the serialized form. A node's own
// groupId wins over group memberIds listing it.
func (ss *SerializedSnapshot) Decode(ctx context.Context) *Snapshot {
	memberOf := make(map[string]string)
	slices := make([]*Slice, 0, len(ss.Groups))
	for _, sg := range ss.Groups {
		slices = append(slices, &Slice{ID: sg.ID, Order: sg.Order})
		for _, id := range sg.MemberIDs {
			if _, ok := memberOf[id]; !ok {
				memberOf[id] = sg.ID
			}
		}
	}

	nodes := make([]*Node, 0, len(ss.Nodes))
	for _, sn := range ss.Nodes {
		n := NewNode(sn.ID, ParseCategory(sn.Category))
		n.Text = sn.Text
		n.TopLeft = geo.NewPoint(sn.X, sn.Y)
		n.Width = sn.Width
		n.Height = sn.Height
		n.Pinned = sn.Pinned
		n.SliceID = sn.GroupID
		if n.SliceID == "" {
			n.SliceID = memberOf[sn.ID]
		}
		nodes = append(nodes, n)
	}

	links := make([]*Link, 0, len(ss.Links))
	for _, sl := range ss.Links {
		links = append(links, &Link{
			ID:    sl.ID,
			SrcID: sl.Source,
			DstID: sl.Target,
			Label: sl.Label,
		})
	}

	return NewSnapshot(ctx, nodes, links, slices)
}

func Serialize(s *Snapshot) *SerializedSnapshot {
	ss := &SerializedSnapshot{}
	for _, n := range s.Nodes {
		ss.Nodes = append(ss.Nodes, &SerializedNode{
			ID:       n.ID,
			Category: string(n.Category),
			Text:     n.Text,
			Width:    n.Width,
			Height:   n.Height,
			GroupID:  n.SliceID,
			Pinned:   n.Pinned,
			X:        n.TopLeft.X,
			Y:        n.TopLeft.Y,
		})
	}
	for _, l := range s.Links {
		ss.Links = append(ss.Links, &SerializedLink{
			ID:     l.ID,
			Source: l.SrcID,
			Target: l.DstID,
			Label:  l.Label,
		})
	}
	for _, sl := range s.SortedSlices() {
		sg := &SerializedSlice{ID: sl.ID, Order: sl.Order}
		for _, n := range s.SliceNodes(sl.ID) {
			sg.MemberIDs = append(sg.MemberIDs, n.ID)
		}
		ss.Groups = append(ss.Groups, sg)
	}
	return ss
}

func ParseSnapshot(ctx context.Context, b []byte) (*Snapshot, error) {
	var ss SerializedSnapshot
	if err := json.Unmarshal(b, &ss); err != nil {
		return nil, err
	}
	return ss.Decode(ctx), nil
}
