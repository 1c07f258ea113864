package equity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evdnx/tradesim"
	"github.com/evdnx/tradesim/config"
)

func dtAt(day int) tradesim.DateTime {
	return tradesim.NewDateTime(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)).Add(tradesim.NewDateDuration(int64(day)))
}

func ohlc(day int, o, h, l, c, v float64) tradesim.Bar {
	return tradesim.Bar{Time: dtAt(day), Open: o, High: h, Low: l, Close: c, Volume: v}
}

func noSizing(capital float64) config.PositionSizingParams {
	return config.PositionSizingParams{
		InitialCapital:         capital,
		UnlimitedOpenPositions: true,
		SizeType:               config.SizeSystemDefined,
		LimitType:              config.LimitNone,
	}
}

// S1 from the bar/order fixtures: single long winner, no sizing.
func TestRunSingleLongWinnerNoSizing(t *testing.T) {
	rows := []tradesim.Bar{
		ohlc(0, 100, 110, 99, 105, 1000),
		ohlc(1, 106, 112, 104, 110, 1000),
		ohlc(2, 111, 115, 108, 114, 1000),
	}
	bars, err := tradesim.NewBars("SYM", rows, tradesim.ErrorFatal)
	require.NoError(t, err)

	container := tradesim.NewPositionsContainer()
	mgr := tradesim.NewPositionsManager(bars, container, nil, nil, "demo", nil)

	res, err := mgr.BuyAtMarket(1, 10, "entry")
	require.NoError(t, err)
	require.Equal(t, tradesim.OrderFilled, res.Outcome)

	_, err = mgr.SellAtMarket(res.PositionID, 2, "exit")
	require.NoError(t, err)

	containers := map[string]*tradesim.PositionsContainer{"SYM": container}
	barsBySymbol := map[string]*tradesim.Bars{"SYM": bars}

	curve, err := Run(containers, barsBySymbol, noSizing(10000), dtAt(0), dtAt(2))
	require.NoError(t, err)

	assert.InDelta(t, 10050.0, curve.EndingEquity("all"), 1e-6)
	assert.InDelta(t, 10050.0, curve.EndingEquity("long"), 1e-6)
	assert.InDelta(t, 10000.0, curve.EndingEquity("short"), 1e-6)
}

func TestRunMarksOpenPositionDailyBetweenEntryAndExit(t *testing.T) {
	rows := []tradesim.Bar{
		ohlc(0, 100, 101, 99, 100, 1000),
		ohlc(1, 100, 104, 99, 103, 1000),
		ohlc(2, 103, 108, 102, 107, 1000),
		ohlc(3, 107, 109, 105, 108, 1000),
	}
	bars, err := tradesim.NewBars("SYM", rows, tradesim.ErrorFatal)
	require.NoError(t, err)

	container := tradesim.NewPositionsContainer()
	mgr := tradesim.NewPositionsManager(bars, container, nil, nil, "demo", nil)

	res, err := mgr.BuyAtMarket(0, 10, "entry")
	require.NoError(t, err)
	_, err = mgr.SellAtMarket(res.PositionID, 3, "exit")
	require.NoError(t, err)

	containers := map[string]*tradesim.PositionsContainer{"SYM": container}
	barsBySymbol := map[string]*tradesim.Bars{"SYM": bars}

	curve, err := Run(containers, barsBySymbol, noSizing(10000), dtAt(0), dtAt(3))
	require.NoError(t, err)

	// entry at 100 marked to day 0's close (100): flat
	assert.InDelta(t, 10000.0, curve.All[0].Total, 1e-6)
	// day 1: close 103, mark delta vs prior mark (100) = +30
	assert.InDelta(t, 10030.0, curve.All[1].Total, 1e-6)
	// day 2: close 107, mark delta vs prior mark (103) = +40 -> 10070
	assert.InDelta(t, 10070.0, curve.All[2].Total, 1e-6)
	// exit day: filled at bar 3's open (107), so total unchanged from day 2's mark (107)
	assert.InDelta(t, 10070.0, curve.All[3].Total, 1e-6)
	assert.InDelta(t, 10070.0, curve.EndingEquity("all"), 1e-6)
}

// S3 from the sizing fixtures: pct_equity sizing computes target shares
// from total equity and entry price.
func TestRunPctEquitySizing(t *testing.T) {
	rows := []tradesim.Bar{
		ohlc(0, 50, 51, 49, 50, 1000),
		ohlc(1, 51, 52, 50, 51, 1000),
	}
	bars, err := tradesim.NewBars("SYM", rows, tradesim.ErrorFatal)
	require.NoError(t, err)

	container := tradesim.NewPositionsContainer()
	mgr := tradesim.NewPositionsManager(bars, container, nil, nil, "demo", nil)

	res, err := mgr.BuyAtMarket(0, 1, "entry")
	require.NoError(t, err)
	pos, ok := container.ByID(res.PositionID)
	require.True(t, ok)

	sizing := noSizing(10000)
	sizing.SizeType = config.SizePctEquity
	sizing.SizeValue = 25

	containers := map[string]*tradesim.PositionsContainer{"SYM": container}
	barsBySymbol := map[string]*tradesim.Bars{"SYM": bars}

	_, err = Run(containers, barsBySymbol, sizing, dtAt(0), dtAt(1))
	require.NoError(t, err)

	assert.InDelta(t, 50.0, pos.Shares(), 1e-9)
}

// S4 from the sizing fixtures: a third overlapping entry is disabled once
// max_open_positions is reached.
func TestRunMaxOpenPositionsDisablesOverflow(t *testing.T) {
	rows := []tradesim.Bar{
		ohlc(0, 10, 11, 9, 10, 1000),
		ohlc(1, 10, 11, 9, 10, 1000),
		ohlc(2, 10, 11, 9, 10, 1000),
	}
	containers := map[string]*tradesim.PositionsContainer{}
	barsBySymbol := map[string]*tradesim.Bars{}
	var positions []*tradesim.Position

	for i, symbol := range []string{"A", "B", "C"} {
		bars, err := tradesim.NewBars(symbol, rows, tradesim.ErrorFatal)
		require.NoError(t, err)
		container := tradesim.NewPositionsContainer()
		mgr := tradesim.NewPositionsManager(bars, container, nil, nil, "demo", nil)
		res, err := mgr.BuyAtMarket(i, 10, "entry")
		require.NoError(t, err)
		pos, ok := container.ByID(res.PositionID)
		require.True(t, ok)
		positions = append(positions, pos)
		containers[symbol] = container
		barsBySymbol[symbol] = bars
	}

	sizing := noSizing(10000)
	sizing.UnlimitedOpenPositions = false
	sizing.MaxOpenPositions = 2

	_, err := Run(containers, barsBySymbol, sizing, dtAt(0), dtAt(2))
	require.NoError(t, err)

	assert.True(t, positions[0].IsEnabled())
	assert.True(t, positions[1].IsEnabled())
	assert.True(t, positions[2].IsDisabled())
}

func TestRunDisablesEntryExceedingAvailableCash(t *testing.T) {
	rows := []tradesim.Bar{
		ohlc(0, 1000, 1001, 999, 1000, 1000),
	}
	bars, err := tradesim.NewBars("SYM", rows, tradesim.ErrorFatal)
	require.NoError(t, err)
	container := tradesim.NewPositionsContainer()
	mgr := tradesim.NewPositionsManager(bars, container, nil, nil, "demo", nil)

	res, err := mgr.BuyAtMarket(0, 1, "entry")
	require.NoError(t, err)
	pos, ok := container.ByID(res.PositionID)
	require.True(t, ok)

	sizing := noSizing(500) // less than one share costs
	sizing.SizeType = config.SizeShares
	sizing.SizeValue = 10

	containers := map[string]*tradesim.PositionsContainer{"SYM": container}
	barsBySymbol := map[string]*tradesim.Bars{"SYM": bars}

	_, err = Run(containers, barsBySymbol, sizing, dtAt(0), dtAt(0))
	require.NoError(t, err)

	assert.True(t, pos.IsDisabled())
}

func TestRunShortPositionCashAndExposure(t *testing.T) {
	rows := []tradesim.Bar{
		ohlc(0, 100, 101, 99, 100, 1000),
		ohlc(1, 95, 96, 90, 92, 1000),
	}
	bars, err := tradesim.NewBars("SYM", rows, tradesim.ErrorFatal)
	require.NoError(t, err)
	container := tradesim.NewPositionsContainer()
	mgr := tradesim.NewPositionsManager(bars, container, nil, nil, "demo", nil)

	res, err := mgr.ShortAtMarket(0, 10, "entry")
	require.NoError(t, err)
	_, err = mgr.CoverAtMarket(res.PositionID, 1, "exit")
	require.NoError(t, err)

	containers := map[string]*tradesim.PositionsContainer{"SYM": container}
	barsBySymbol := map[string]*tradesim.Bars{"SYM": bars}

	curve, err := Run(containers, barsBySymbol, noSizing(10000), dtAt(0), dtAt(1))
	require.NoError(t, err)

	// shorting 10 @ 100 then covering @ 95: gain = 10*(100-95) = 50
	assert.InDelta(t, 10050.0, curve.EndingEquity("short"), 1e-6)
	assert.InDelta(t, 10000.0, curve.EndingEquity("long"), 1e-6)
	assert.InDelta(t, 10050.0, curve.EndingEquity("all"), 1e-6)

	exposure := curve.ExposurePct("all")
	assert.True(t, exposure > 0)
}
