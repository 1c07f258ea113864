package tradesim

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// S6 — explicit trades: a scripted BUY directive at bar 0's exact time
// creates a position with the directive's shares, bypassing sizing,
// even though the strategy itself issues no orders.
func TestExplicitTradesScenarioS6(t *testing.T) {
	rows := []Bar{ohlc(0, 100, 101, 99, 100, 1000)}
	bars := mkBars(t, rows)
	container := NewPositionsContainer()
	mgr := NewPositionsManager(bars, container, nil, nil, "demo", nil)

	csvData := "SYM," + dtAt(0).String() + ",BUY,MARKET,100,0\n"
	trades, err := ParseExplicitTradesCSV(strings.NewReader(csvData))
	require.NoError(t, err)

	require.NoError(t, trades.Apply(mgr, 0))
	assert.Equal(t, 1, container.Count())
	pos := container.All(nil)[0]
	assert.InDelta(t, 100.0, pos.Shares(), 1e-9)
	assert.False(t, pos.ApplyPositionSizing())
}

func TestExplicitTradesCSVIgnoresComments(t *testing.T) {
	data := "# header comment\n// another one\n\nSYM," + dtAt(0).String() + ",BUY,MARKET,10,0\n"
	trades, err := ParseExplicitTradesCSV(strings.NewReader(data))
	require.NoError(t, err)
	assert.Len(t, trades.For("SYM", dtAt(0)), 1)
}

func TestExplicitTradesJSONRoundTrip(t *testing.T) {
	data := `[{"symbol":"SYM","time":"` + dtAt(0).String() + `","action":"SHORT","type":"MARKET","shares":5,"price":0}]`
	trades, err := ParseExplicitTradesJSON(strings.NewReader(data))
	require.NoError(t, err)
	got := trades.For("SYM", dtAt(0))
	require.Len(t, got, 1)
	assert.EqualValues(t, 5, got[0].Shares)
}

func TestExplicitTradesUnsupportedPriceType(t *testing.T) {
	rows := []Bar{ohlc(0, 100, 101, 99, 100, 1000)}
	bars := mkBars(t, rows)
	container := NewPositionsContainer()
	mgr := NewPositionsManager(bars, container, nil, nil, "demo", nil)

	trades := NewExplicitTrades()
	trades.Add(ExplicitTrade{Symbol: "SYM", Time: dtAt(0), Action: "BUY", Type: "PRICE", Shares: 1, Price: 100})
	err := trades.Apply(mgr, 0)
	assert.ErrorIs(t, err, ErrUnsupportedExplicitTradeType)
}

func TestExplicitTradesExitAll(t *testing.T) {
	rows := []Bar{ohlc(0, 100, 101, 99, 100, 1000), ohlc(1, 100, 101, 99, 100, 1000)}
	bars := mkBars(t, rows)
	container := NewPositionsContainer()
	mgr := NewPositionsManager(bars, container, nil, nil, "demo", nil)

	_, err := mgr.BuyAtMarket(0, 10, "e")
	require.NoError(t, err)

	trades := NewExplicitTrades()
	trades.Add(ExplicitTrade{Symbol: "SYM", Time: dtAt(1), Action: "EXIT_ALL", Type: "MARKET"})
	require.NoError(t, trades.Apply(mgr, 1))
	assert.Equal(t, 0, container.OpenCount())
}
