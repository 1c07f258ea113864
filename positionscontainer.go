package tradesim

import "sort"

// PositionFilter selects which positions a traversal visits.
type PositionFilter func(*Position) bool

// AllPositions matches every position.
func AllPositions(*Position) bool { return true }

// OpenPositions matches only open positions.
func OpenPositions(p *Position) bool { return p.IsOpen() }

// ClosedPositions matches only closed positions.
func ClosedPositions(p *Position) bool { return p.IsClosed() }

// EnabledPositions matches only enabled positions.
func EnabledPositions(p *Position) bool { return p.IsEnabled() }

// PositionsContainer is an ordered collection of positions, with a fast
// index of currently-open positions and id lookup (§3).
type PositionsContainer struct {
	positions []*Position
	byID      map[PositionID]int // index into positions
	openIdx   map[PositionID]struct{}
}

// NewPositionsContainer returns an empty container.
func NewPositionsContainer() *PositionsContainer {
	return &PositionsContainer{
		byID:    make(map[PositionID]int),
		openIdx: make(map[PositionID]struct{}),
	}
}

// Add appends a newly created position to the container. Called by the
// positions manager when an entry order fills.
func (c *PositionsContainer) Add(p *Position) {
	c.positions = append(c.positions, p)
	c.byID[p.ID()] = len(c.positions) - 1
	if p.IsOpen() {
		c.openIdx[p.ID()] = struct{}{}
	}
}

// noteClosed removes a position from the fast open index once the manager
// closes it. Must be called exactly once per close.
func (c *PositionsContainer) noteClosed(id PositionID) {
	delete(c.openIdx, id)
}

// Count returns the total number of positions (enabled or not).
func (c *PositionsContainer) Count() int { return len(c.positions) }

// EnabledCount returns the number of positions still enabled. Disabling a
// position never decreases Count(), only EnabledCount() (§8 invariant).
func (c *PositionsContainer) EnabledCount() int {
	n := 0
	for _, p := range c.positions {
		if p.IsEnabled() {
			n++
		}
	}
	return n
}

// OpenCount returns the number of currently open positions via the fast
// index (O(1) amortized, not a full scan).
func (c *PositionsContainer) OpenCount() int { return len(c.openIdx) }

// ByID looks up a position by id, returning (nil, false) if not found.
func (c *PositionsContainer) ByID(id PositionID) (*Position, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return c.positions[idx], true
}

// Visit walks positions matching filter in container order, calling fn for
// each. fn may return false to stop early.
func (c *PositionsContainer) Visit(filter PositionFilter, fn func(*Position) bool) {
	if filter == nil {
		filter = AllPositions
	}
	for _, p := range c.positions {
		if filter(p) {
			if !fn(p) {
				return
			}
		}
	}
}

// All returns a snapshot slice of every position matching filter, in
// container order.
func (c *PositionsContainer) All(filter PositionFilter) []*Position {
	if filter == nil {
		filter = AllPositions
	}
	out := make([]*Position, 0, len(c.positions))
	for _, p := range c.positions {
		if filter(p) {
			out = append(out, p)
		}
	}
	return out
}

// Open returns every currently-open position, via the fast index, in
// container (insertion) order.
func (c *PositionsContainer) Open() []*Position {
	out := make([]*Position, 0, len(c.openIdx))
	for _, p := range c.positions {
		if _, ok := c.openIdx[p.ID()]; ok {
			out = append(out, p)
		}
	}
	return out
}

// SortByEntryTime stably sorts positions by ascending entry time.
func (c *PositionsContainer) SortByEntryTime() {
	sort.SliceStable(c.positions, func(i, j int) bool {
		return c.positions[i].EntryTime().Before(c.positions[j].EntryTime())
	})
	c.reindex()
}

// SortByExitTime stably sorts positions by ascending close time; open
// positions (no close time) sort last, in their relative order.
func (c *PositionsContainer) SortByExitTime() {
	sort.SliceStable(c.positions, func(i, j int) bool {
		a, b := c.positions[i], c.positions[j]
		if a.IsOpen() && b.IsOpen() {
			return false
		}
		if a.IsOpen() {
			return false
		}
		if b.IsOpen() {
			return true
		}
		return a.CloseTime().Before(b.CloseTime())
	})
	c.reindex()
}

// SortByGain stably sorts closed positions by ascending realized gain; open
// positions sort last.
func (c *PositionsContainer) SortByGain() {
	sort.SliceStable(c.positions, func(i, j int) bool {
		a, b := c.positions[i], c.positions[j]
		if a.IsOpen() || b.IsOpen() {
			return !a.IsOpen() && b.IsOpen()
		}
		return a.Gain() < b.Gain()
	})
	c.reindex()
}

// SortBy stably sorts positions using an arbitrary less-than comparator.
func (c *PositionsContainer) SortBy(less func(a, b *Position) bool) {
	sort.SliceStable(c.positions, func(i, j int) bool {
		return less(c.positions[i], c.positions[j])
	})
	c.reindex()
}

// Reverse reverses the container's order in place. Reverse is its own
// inverse (§8): calling it twice restores the original order.
func (c *PositionsContainer) Reverse() {
	n := len(c.positions)
	for i := 0; i < n/2; i++ {
		c.positions[i], c.positions[n-1-i] = c.positions[n-1-i], c.positions[i]
	}
	c.reindex()
}

// Merge appends every position from other onto c, preserving other's
// internal order.
func (c *PositionsContainer) Merge(other *PositionsContainer) {
	for _, p := range other.positions {
		c.Add(p)
	}
}

func (c *PositionsContainer) reindex() {
	for i, p := range c.positions {
		c.byID[p.ID()] = i
	}
}
