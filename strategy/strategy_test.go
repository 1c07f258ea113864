package strategy

import (
	"testing"
	"time"

	"github.com/evdnx/goti"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evdnx/tradesim"
	"github.com/evdnx/tradesim/config"
)

func testSuiteFactory() func() (*goti.IndicatorSuite, error) {
	return func() (*goti.IndicatorSuite, error) {
		return goti.NewIndicatorSuiteWithConfig(goti.DefaultConfig())
	}
}

func TestNewBaseStrategyBuildsSuite(t *testing.T) {
	bs, err := NewBaseStrategy("SYM", testSuiteFactory(), nil)
	require.NoError(t, err)
	assert.Equal(t, "SYM", bs.Symbol)
	assert.NotNil(t, bs.Suite)
}

func TestNewBaseStrategyPropagatesFactoryError(t *testing.T) {
	_, err := NewBaseStrategy("SYM", func() (*goti.IndicatorSuite, error) {
		return nil, assertErr
	}, nil)
	assert.ErrorIs(t, err, assertErr)
}

var assertErr = assertError("suite build failed")

type assertError string

func (e assertError) Error() string { return string(e) }

func TestExitPanicsWithExitSignal(t *testing.T) {
	defer func() {
		r := recover()
		sig, ok := r.(ExitSignal)
		require.True(t, ok)
		assert.Equal(t, "done", sig.Message)
	}()
	Exit("done")
}

type fakeSymbols struct{ syms []string }

func (f *fakeSymbols) Next() (string, bool) {
	if len(f.syms) == 0 {
		return "", false
	}
	s := f.syms[0]
	f.syms = f.syms[1:]
	return s, true
}
func (f *fakeSymbols) Reset() {}

func TestNewRuntimeContextDefaultsChartSink(t *testing.T) {
	bars, err := tradesim.NewBars("SYM", []tradesim.Bar{{Time: tradesim.NewDateTime(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)), Open: 1, High: 1, Low: 1, Close: 1, Volume: 1}}, tradesim.ErrorFatal)
	require.NoError(t, err)
	container := tradesim.NewPositionsContainer()
	mgr := tradesim.NewPositionsManager(bars, container, nil, nil, "demo", nil)
	params := config.DefaultRuntimeParams(10000)

	ctx := NewRuntimeContext(bars, mgr, nil, nil, &fakeSymbols{}, nil, params)
	assert.IsType(t, NopChartSink{}, ctx.Chart)
	ctx.Chart.Mark(0, "note") // must not panic
}
