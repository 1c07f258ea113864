package tradesim

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/evdnx/tradesim/types"
)

func TestPositionGainLongNoSlippageNoCommission(t *testing.T) {
	p := newPosition(types.Long, "SYM", 1, dtAt(1), 106, types.MarketOrder, 0, 0, 10, "entry", true)
	p.close(2, dtAt(2), 111, types.MarketOrder, 0, 0, "exit")
	assert.InDelta(t, 50.0, p.Gain(), 1e-9)
}

func TestPositionGainShortSymmetry(t *testing.T) {
	p := newPosition(types.Short, "SYM", 0, dtAt(0), 100, types.MarketOrder, 0, 0, 10, "entry", true)
	p.close(1, dtAt(1), 90, types.MarketOrder, 0, 0, "exit")
	assert.InDelta(t, 100.0, p.Gain(), 1e-9)
}

func TestPositionEntryCostWithSlippageAndCommission(t *testing.T) {
	p := newPosition(types.Long, "SYM", 0, dtAt(0), 100, types.MarketOrder, 0.1, 5, 10, "entry", true)
	// shares*(price+slippage)+commission = 10*100.1+5 = 1006
	assert.InDelta(t, 1006.0, p.EntryCost(), 1e-9)
}

func TestPositionIDNeverZero(t *testing.T) {
	p := newPosition(types.Long, "SYM", 0, dtAt(0), 1, types.MarketOrder, 0, 0, 1, "", true)
	assert.NotEqual(t, PositionID(0), p.ID())
}

func TestPositionDisableNeverReenables(t *testing.T) {
	p := newPosition(types.Long, "SYM", 0, dtAt(0), 1, types.MarketOrder, 0, 0, 1, "", true)
	p.Disable()
	assert.True(t, p.IsDisabled())
	p.SetShares(5) // unrelated mutation must not flip enabled back on
	assert.True(t, p.IsDisabled())
}
