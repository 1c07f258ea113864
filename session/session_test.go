package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evdnx/tradesim"
	"github.com/evdnx/tradesim/config"
	"github.com/evdnx/tradesim/strategy"
)

func dt(day int) tradesim.DateTime {
	return tradesim.NewDateTime(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)).Add(tradesim.NewDateDuration(int64(day)))
}

func threeBars() []tradesim.Bar {
	return []tradesim.Bar{
		{Time: dt(0), Open: 100, High: 105, Low: 99, Close: 104, Volume: 1000},
		{Time: dt(1), Open: 104, High: 112, Low: 103, Close: 110, Volume: 1000},
		{Time: dt(2), Open: 110, High: 115, Low: 108, Close: 114, Volume: 1000},
	}
}

type fakeProvider struct {
	bars map[string][]tradesim.Bar
}

func (f *fakeProvider) GetData(symbol string) (*tradesim.Bars, error) {
	return tradesim.NewBars(symbol, f.bars[symbol], tradesim.ErrorFatal)
}

type buyOnceStrategy struct{}

func (buyOnceStrategy) Init(ctx *strategy.RuntimeContext, symbol string) bool { return true }
func (buyOnceStrategy) Run(ctx *strategy.RuntimeContext) {
	res, err := ctx.Positions.BuyAtMarket(0, 10, "entry")
	if err != nil {
		return
	}
	_, _ = ctx.Positions.SellAtMarket(res.PositionID, 2, "exit")
}
func (buyOnceStrategy) Cleanup(ctx *strategy.RuntimeContext) {}
func (buyOnceStrategy) Again() bool                          { return false }
func (buyOnceStrategy) Begin() bool                           { return true }

func TestSessionRunProducesCurveAndStats(t *testing.T) {
	provider := &fakeProvider{bars: map[string][]tradesim.Bar{"SYM": threeBars()}}
	barsBySymbol := map[string]*tradesim.Bars{}
	bars, err := tradesim.NewBars("SYM", threeBars(), tradesim.ErrorFatal)
	require.NoError(t, err)
	barsBySymbol["SYM"] = bars

	params := config.DefaultRuntimeParams(10000)
	sess := &Session{
		Symbols:  []string{"SYM"},
		Provider: provider,
		Factory:  func() strategy.Strategy { return buyOnceStrategy{} },
		Params:   params,
	}

	result, err := sess.Run(context.Background(), barsBySymbol, dt(0), dt(2))
	require.NoError(t, err)
	require.NotNil(t, result.Curve)
	require.NotNil(t, result.Stats)
	assert.Equal(t, 1, result.Stats.Closed.Count)
	assert.EqualValues(t, 1, result.Snapshot.ProcessedSymbolCount)
}

func TestSessionRunSkipsPassesWhenDisabled(t *testing.T) {
	provider := &fakeProvider{bars: map[string][]tradesim.Bar{"SYM": threeBars()}}
	barsBySymbol := map[string]*tradesim.Bars{"SYM": mustBars(t)}

	params := config.DefaultRuntimeParams(10000)
	params.EnableEquity = false
	params.EnableStats = false
	sess := &Session{
		Symbols:  []string{"SYM"},
		Provider: provider,
		Factory:  func() strategy.Strategy { return buyOnceStrategy{} },
		Params:   params,
	}

	result, err := sess.Run(context.Background(), barsBySymbol, dt(0), dt(2))
	require.NoError(t, err)
	assert.Nil(t, result.Curve)
	assert.Nil(t, result.Stats)
}

func TestSessionRunPersistsToStore(t *testing.T) {
	store, err := OpenResultStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	provider := &fakeProvider{bars: map[string][]tradesim.Bar{"SYM": threeBars()}}
	barsBySymbol := map[string]*tradesim.Bars{"SYM": mustBars(t)}

	params := config.DefaultRuntimeParams(10000)
	sess := &Session{
		Symbols:  []string{"SYM"},
		Provider: provider,
		Factory:  func() strategy.Strategy { return buyOnceStrategy{} },
		Params:   params,
		Store:    store,
	}

	result, err := sess.Run(context.Background(), barsBySymbol, dt(0), dt(2))
	require.NoError(t, err)

	stored, ok, err := store.Get(context.Background(), result.Snapshot.SessionID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, result.Snapshot.SessionID, stored.SessionID)
}

func mustBars(t *testing.T) *tradesim.Bars {
	t.Helper()
	bars, err := tradesim.NewBars("SYM", threeBars(), tradesim.ErrorFatal)
	require.NoError(t, err)
	return bars
}
