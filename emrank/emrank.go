// Package emrank orders the diagram for layout: slices get an integer rank
// driving horizontal flow, node categories a fixed rank driving vertical
// placement inside a slice.
package emrank

import (
	"github.com/emodeling/emod/emgraph"
)

// UnknownRank sorts unrecognized categories after every known one.
const UnknownRank = 99

var categoryRanks = map[emgraph.Category]int{
	emgraph.CategoryTrigger:    0,
	emgraph.CategoryScreen:     1,
	emgraph.CategoryCommand:    2,
	emgraph.CategoryAutomation: 3,
	emgraph.CategoryView:       4,
	emgraph.CategoryEvent:      5,
}

// Category returns the fixed vertical rank of a category. The table never
// changes between runs.
func Category(c emgraph.Category) int {
	if r, ok := categoryRanks[c]; ok {
		return r
	}
	return UnknownRank
}

// Slices assigns every slice a rank, walking slices in display order.
//
// A slice that is the target of links from slices earlier in display order
// ranks directly after the furthest of those sources: 1 + max(source ranks).
// Anything else takes the next sequential rank after the previous
// assignment, so independent slices keep their display order.
//
// Only forward dependencies count. A link sourced from a slice that appears
// later in display order does not influence the current slice's rank, which
// keeps cycles from requiring any breaking logic. That under-orders models
// with genuinely circular slice dependencies; this is a known approximation,
// not a bug, and it keeps ranks monotonic with display order.
func Slices(snap *emgraph.Snapshot) map[string]int {
	sorted := snap.SortedSlices()

	position := make(map[string]int, len(sorted))
	for i, sl := range sorted {
		position[sl.ID] = i
	}

	// source slices per target slice, cross-slice links only
	sources := make(map[string][]string)
	for _, l := range snap.Links {
		if !snap.Crosses(l) {
			continue
		}
		srcSlice := snap.Node(l.SrcID).SliceID
		dstSlice := snap.Node(l.DstID).SliceID
		sources[dstSlice] = append(sources[dstSlice], srcSlice)
	}

	ranks := make(map[string]int, len(sorted))
	last := -1
	for i, sl := range sorted {
		rank := -1
		for _, srcID := range sources[sl.ID] {
			if position[srcID] >= i {
				// back-reference, ignored
				continue
			}
			if r := ranks[srcID] + 1; r > rank {
				rank = r
			}
		}
		if rank == -1 {
			rank = last + 1
		}
		ranks[sl.ID] = rank
		last = rank
	}
	return ranks
}
