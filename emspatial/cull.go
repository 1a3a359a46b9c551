package emspatial

import (
	"sort"
	"sync"
	"time"

	"github.com/emodeling/emod/emgraph"
	"github.com/emodeling/emod/lib/geo"
)

const (
	// ViewportBuffer expands the query rectangle past the screen so
	// elements entering during a pan are routed before they appear.
	ViewportBuffer = 200.

	defaultRebuildDebounce = 55 * time.Millisecond
)

// Culler owns the spatial index for one open diagram. Snapshot churn during
// drags batches into one index rebuild per settle window, while Visible
// keeps answering from the last applied snapshot.
type Culler struct {
	debounce time.Duration
	index    *Index

	// applyMu keeps the index and applied coherent when the settle timer
	// and an explicit Flush race.
	applyMu sync.Mutex

	mu      sync.Mutex
	pending *emgraph.Snapshot
	applied *emgraph.Snapshot
	timer   *time.Timer
}

// NewCuller returns a culler rebuilding at most once per debounce window.
// debounce <= 0 means the default.
func NewCuller(debounce time.Duration) *Culler {
	if debounce <= 0 {
		debounce = defaultRebuildDebounce
	}
	return &Culler{
		debounce: debounce,
		index:    NewIndex(),
	}
}

// Update schedules an index rebuild for snap. Calls landing inside the
// settle window collapse into one rebuild of the newest snapshot.
func (c *Culler) Update(snap *emgraph.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = snap
	if c.timer == nil {
		c.timer = time.AfterFunc(c.debounce, c.Flush)
	} else {
		c.timer.Reset(c.debounce)
	}
}

// Flush applies any pending rebuild now instead of waiting out the settle
// window.
func (c *Culler) Flush() {
	c.apply(c.take())
}

// Close drops any pending rebuild.
func (c *Culler) Close() {
	c.take()
}

func (c *Culler) take() *emgraph.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	snap := c.pending
	c.pending = nil
	return snap
}

func (c *Culler) apply(snap *emgraph.Snapshot) {
	if snap == nil {
		return
	}
	c.applyMu.Lock()
	defer c.applyMu.Unlock()
	c.index.Reset(snap)
	c.mu.Lock()
	c.applied = snap
	c.mu.Unlock()
}

func (c *Culler) snapshot() *emgraph.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applied
}

// Visible returns the node and link ids worth processing for a viewport.
// A node is visible when its box intersects the viewport expanded by
// ViewportBuffer, or it is selected. A link is eligible when either
// endpoint is visible, or the link or either endpoint is selected.
// Selection always overrides culling.
func (c *Culler) Visible(viewport *geo.Box, selected map[string]bool) (nodes, links []string) {
	snap := c.snapshot()
	if snap == nil {
		return nil, nil
	}

	inView := make(map[string]bool)
	for _, id := range c.index.Search(viewport.Expand(ViewportBuffer)) {
		inView[id] = true
	}
	for id := range selected {
		if selected[id] && snap.Node(id) != nil {
			inView[id] = true
		}
	}

	nodes = make([]string, 0, len(inView))
	for id := range inView {
		nodes = append(nodes, id)
	}
	sort.Strings(nodes)

	for _, l := range snap.Links {
		if inView[l.SrcID] || inView[l.DstID] || selected[l.ID] {
			links = append(links, l.ID)
		}
	}
	return nodes, links
}
