// Package emspatial answers the per-frame question behind viewport
// culling: which nodes and links intersect the screen and are worth
// routing and drawing. Node rectangles live in an R-tree; rebuilds during
// continuous gestures collapse into one pass per settle window.
package emspatial

import (
	"sort"
	"sync"

	"github.com/tidwall/rtree"

	"github.com/emodeling/emod/emgraph"
	"github.com/emodeling/emod/lib/geo"
)

// Index is a bounding-box index over node rectangles. Safe for concurrent
// use; queries run under a read lock.
type Index struct {
	mu    sync.RWMutex
	tree  rtree.RTreeG[string]
	boxes map[string]*geo.Box
}

func NewIndex() *Index {
	return &Index{boxes: make(map[string]*geo.Box)}
}

func corners(b *geo.Box) (min, max [2]float64) {
	return [2]float64{b.TopLeft.X, b.TopLeft.Y}, [2]float64{b.MaxX(), b.MaxY()}
}

// Reset replaces the whole index with the snapshot's node boxes.
func (ix *Index) Reset(snap *emgraph.Snapshot) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.tree = rtree.RTreeG[string]{}
	ix.boxes = make(map[string]*geo.Box, len(snap.Nodes))
	for id, b := range snap.Boxes() {
		b = b.Copy()
		min, max := corners(b)
		ix.tree.Insert(min, max, id)
		ix.boxes[id] = b
	}
}

// Upsert indexes box under id, replacing any previous rectangle.
func (ix *Index) Upsert(id string, box *geo.Box) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if old, ok := ix.boxes[id]; ok {
		min, max := corners(old)
		ix.tree.Delete(min, max, id)
	}
	box = box.Copy()
	min, max := corners(box)
	ix.tree.Insert(min, max, id)
	ix.boxes[id] = box
}

func (ix *Index) Delete(id string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	old, ok := ix.boxes[id]
	if !ok {
		return
	}
	min, max := corners(old)
	ix.tree.Delete(min, max, id)
	delete(ix.boxes, id)
}

// Search returns the ids of all rectangles intersecting rect, sorted.
// Touching counts as intersecting.
func (ix *Index) Search(rect *geo.Box) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []string
	min, max := corners(rect)
	ix.tree.Search(min, max, func(_, _ [2]float64, id string) bool {
		out = append(out, id)
		return true
	})
	sort.Strings(out)
	return out
}

func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.boxes)
}
