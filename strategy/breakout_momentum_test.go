package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evdnx/tradesim"
	"github.com/evdnx/tradesim/config"
)

func TestBreakoutMomentumRunDoesNotPanicAndClosesOnCleanup(t *testing.T) {
	bars := syntheticBars(t, 50, func(i int) float64 {
		return 100 + float64(i)*0.5 // steady uptrend to exercise the long side
	})
	container := tradesim.NewPositionsContainer()
	mgr := tradesim.NewPositionsManager(bars, container, nil, nil, "demo", nil)
	params := config.DefaultRuntimeParams(10000)
	ctx := NewRuntimeContext(bars, mgr, nil, nil, nil, nil, params)

	bm, err := NewBreakoutMomentum("SYM", 10, 0.02, 2)
	require.NoError(t, err)

	assert.True(t, bm.Init(ctx, "SYM"))
	assert.True(t, bm.Begin())
	bm.Run(ctx)
	bm.Cleanup(ctx)
	assert.False(t, bm.Again())

	for _, pos := range container.All(nil) {
		assert.True(t, pos.IsClosed(), "cleanup must flatten every position")
	}
}

func TestBreakoutMomentumTrailingStopFlattensOnReversal(t *testing.T) {
	bars := syntheticBars(t, 60, func(i int) float64 {
		if i < 30 {
			return 100 + float64(i) // rally to trigger a long entry
		}
		return 100 + 30 - float64(i-30)*2 // sharp reversal to trip the trailing stop
	})
	container := tradesim.NewPositionsContainer()
	mgr := tradesim.NewPositionsManager(bars, container, nil, nil, "demo", nil)
	params := config.DefaultRuntimeParams(10000)
	ctx := NewRuntimeContext(bars, mgr, nil, nil, nil, nil, params)

	bm, err := NewBreakoutMomentum("SYM", 10, 0.02, 2)
	require.NoError(t, err)
	bm.Run(ctx)
	bm.Cleanup(ctx)

	assert.NotEmpty(t, container.All(nil))
}
