package equity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evdnx/tradesim"
	"github.com/evdnx/tradesim/config"
)

func newLongPosition(t *testing.T, bars *tradesim.Bars, entryBar int, shares float64) *tradesim.Position {
	t.Helper()
	container := tradesim.NewPositionsContainer()
	mgr := tradesim.NewPositionsManager(bars, container, nil, nil, "demo", nil)
	res, err := mgr.BuyAtMarket(entryBar, shares, "entry")
	require.NoError(t, err)
	pos, ok := container.ByID(res.PositionID)
	require.True(t, ok)
	return pos
}

func curveAt(total, cash float64) *Curve {
	return &Curve{All: []Point{{Cash: cash, Total: total}}}
}

func TestSizePositionSystemDefinedKeepsShares(t *testing.T) {
	rows := []tradesim.Bar{ohlc(0, 10, 11, 9, 10, 1000)}
	bars, err := tradesim.NewBars("SYM", rows, tradesim.ErrorFatal)
	require.NoError(t, err)
	pos := newLongPosition(t, bars, 0, 7)
	marks := &symbolMarks{bars: bars}
	sizing := noSizing(1000)

	ok := sizePosition(pos, curveAt(1000, 1000), 0, marks, sizing, 0)
	require.True(t, ok)
	assert.InDelta(t, 7, pos.Shares(), 1e-9)
}

func TestSizePositionSharesRoundsTarget(t *testing.T) {
	rows := []tradesim.Bar{ohlc(0, 10, 11, 9, 10, 1000)}
	bars, err := tradesim.NewBars("SYM", rows, tradesim.ErrorFatal)
	require.NoError(t, err)
	pos := newLongPosition(t, bars, 0, 1)
	marks := &symbolMarks{bars: bars}
	sizing := noSizing(1000)
	sizing.SizeType = config.SizeShares
	sizing.SizeValue = 12.6

	ok := sizePosition(pos, curveAt(1000, 1000), 0, marks, sizing, 0)
	require.True(t, ok)
	assert.InDelta(t, 13, pos.Shares(), 1e-9)
}

func TestSizePositionValueDividesByEntryPrice(t *testing.T) {
	rows := []tradesim.Bar{ohlc(0, 20, 21, 19, 20, 1000)}
	bars, err := tradesim.NewBars("SYM", rows, tradesim.ErrorFatal)
	require.NoError(t, err)
	pos := newLongPosition(t, bars, 0, 1)
	marks := &symbolMarks{bars: bars}
	sizing := noSizing(1000)
	sizing.SizeType = config.SizeValue
	sizing.SizeValue = 500

	ok := sizePosition(pos, curveAt(1000, 1000), 0, marks, sizing, 0)
	require.True(t, ok)
	assert.InDelta(t, 25, pos.Shares(), 1e-9) // round(500/20)
}

func TestSizePositionPctCashUsesRunningCash(t *testing.T) {
	rows := []tradesim.Bar{ohlc(0, 10, 11, 9, 10, 1000)}
	bars, err := tradesim.NewBars("SYM", rows, tradesim.ErrorFatal)
	require.NoError(t, err)
	pos := newLongPosition(t, bars, 0, 1)
	marks := &symbolMarks{bars: bars}
	sizing := noSizing(1000)
	sizing.SizeType = config.SizePctCash
	sizing.SizeValue = 50

	ok := sizePosition(pos, curveAt(2000, 800), 0, marks, sizing, 0)
	require.True(t, ok)
	assert.InDelta(t, 40, pos.Shares(), 1e-9) // round(800*0.5/10)
}

func TestSizePositionPctVolumeLimitCaps(t *testing.T) {
	rows := []tradesim.Bar{
		ohlc(0, 10, 11, 9, 10, 100),
		ohlc(1, 10, 11, 9, 10, 1000),
	}
	bars, err := tradesim.NewBars("SYM", rows, tradesim.ErrorFatal)
	require.NoError(t, err)
	pos := newLongPosition(t, bars, 1, 1)
	marks := &symbolMarks{bars: bars}

	sizing := noSizing(100000)
	sizing.SizeType = config.SizeShares
	sizing.SizeValue = 1000
	sizing.LimitType = config.LimitPctVolume
	sizing.LimitValue = 50 // caps at 50% of bar-1's volume (the prior bar, 100) = 50

	ok := sizePosition(pos, curveAt(100000, 100000), 1, marks, sizing, 0)
	require.True(t, ok)
	assert.InDelta(t, 50, pos.Shares(), 1e-9)
}

func TestSizePositionValueLimitCapsShares(t *testing.T) {
	rows := []tradesim.Bar{ohlc(0, 20, 21, 19, 20, 1000)}
	bars, err := tradesim.NewBars("SYM", rows, tradesim.ErrorFatal)
	require.NoError(t, err)
	pos := newLongPosition(t, bars, 0, 1)
	marks := &symbolMarks{bars: bars}

	sizing := noSizing(100000)
	sizing.SizeType = config.SizeShares
	sizing.SizeValue = 1000
	sizing.LimitType = config.LimitValue
	sizing.LimitValue = 200 // caps shares at 200/20 = 10

	ok := sizePosition(pos, curveAt(100000, 100000), 0, marks, sizing, 0)
	require.True(t, ok)
	assert.InDelta(t, 10, pos.Shares(), 1e-9)
}

func TestSizePositionDisablesWhenOpenCountAtMax(t *testing.T) {
	rows := []tradesim.Bar{ohlc(0, 10, 11, 9, 10, 1000)}
	bars, err := tradesim.NewBars("SYM", rows, tradesim.ErrorFatal)
	require.NoError(t, err)
	pos := newLongPosition(t, bars, 0, 1)
	marks := &symbolMarks{bars: bars}

	sizing := noSizing(1000)
	sizing.UnlimitedOpenPositions = false
	sizing.MaxOpenPositions = 1

	ok := sizePosition(pos, curveAt(1000, 1000), 0, marks, sizing, 1)
	assert.False(t, ok)
	assert.True(t, pos.IsDisabled())
}

func TestSizePositionDisablesWhenCashInsufficient(t *testing.T) {
	rows := []tradesim.Bar{ohlc(0, 100, 101, 99, 100, 1000)}
	bars, err := tradesim.NewBars("SYM", rows, tradesim.ErrorFatal)
	require.NoError(t, err)
	pos := newLongPosition(t, bars, 0, 1)
	marks := &symbolMarks{bars: bars}

	sizing := noSizing(50)
	sizing.SizeType = config.SizeShares
	sizing.SizeValue = 5 // 5 * 100 = 500, more than available cash

	ok := sizePosition(pos, curveAt(50, 50), 0, marks, sizing, 0)
	assert.False(t, ok)
	assert.True(t, pos.IsDisabled())
}
