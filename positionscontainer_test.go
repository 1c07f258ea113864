package tradesim

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/evdnx/tradesim/types"
)

func mkPos(t *testing.T, entryDay int) *Position {
	t.Helper()
	return newPosition(types.Long, "SYM", entryDay, dtAt(entryDay), 100, types.MarketOrder, 0, 0, 1, "e", true)
}

func TestContainerEnabledCountNeverExceedsCount(t *testing.T) {
	c := NewPositionsContainer()
	p1, p2, p3 := mkPos(t, 0), mkPos(t, 1), mkPos(t, 2)
	c.Add(p1)
	c.Add(p2)
	c.Add(p3)
	assert.Equal(t, 3, c.Count())
	assert.Equal(t, 3, c.EnabledCount())
	p2.Disable()
	assert.Equal(t, 3, c.Count())
	assert.Equal(t, 2, c.EnabledCount())
}

func TestContainerOpenIndex(t *testing.T) {
	c := NewPositionsContainer()
	p1, p2 := mkPos(t, 0), mkPos(t, 1)
	c.Add(p1)
	c.Add(p2)
	assert.Equal(t, 2, c.OpenCount())
	p1.close(1, dtAt(1), 101, types.MarketOrder, 0, 0, "x")
	c.noteClosed(p1.ID())
	assert.Equal(t, 1, c.OpenCount())
	open := c.Open()
	assert.Len(t, open, 1)
	assert.Equal(t, p2.ID(), open[0].ID())
}

func TestContainerSortByEntryTimeStable(t *testing.T) {
	c := NewPositionsContainer()
	p1 := mkPos(t, 2)
	p2 := mkPos(t, 0)
	p3 := mkPos(t, 0)
	c.Add(p1)
	c.Add(p2)
	c.Add(p3)
	c.SortByEntryTime()
	all := c.All(nil)
	assert.Equal(t, p2.ID(), all[0].ID())
	assert.Equal(t, p3.ID(), all[1].ID()) // stable: p2 before p3, same entry time
	assert.Equal(t, p1.ID(), all[2].ID())
}

func TestContainerReverseIsInvolutive(t *testing.T) {
	c := NewPositionsContainer()
	ids := []PositionID{}
	for i := 0; i < 5; i++ {
		p := mkPos(t, i)
		c.Add(p)
		ids = append(ids, p.ID())
	}
	c.Reverse()
	c.Reverse()
	all := c.All(nil)
	for i, p := range all {
		assert.Equal(t, ids[i], p.ID())
	}
}

func TestContainerByID(t *testing.T) {
	c := NewPositionsContainer()
	p := mkPos(t, 0)
	c.Add(p)
	got, ok := c.ByID(p.ID())
	assert.True(t, ok)
	assert.Same(t, p, got)
	_, ok = c.ByID(PositionID(999999))
	assert.False(t, ok)
}

func TestContainerMerge(t *testing.T) {
	a := NewPositionsContainer()
	b := NewPositionsContainer()
	a.Add(mkPos(t, 0))
	b.Add(mkPos(t, 1))
	b.Add(mkPos(t, 2))
	a.Merge(b)
	assert.Equal(t, 3, a.Count())
}
