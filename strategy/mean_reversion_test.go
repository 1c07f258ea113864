package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evdnx/tradesim"
	"github.com/evdnx/tradesim/config"
)

func syntheticBars(t *testing.T, n int, seed func(i int) float64) *tradesim.Bars {
	t.Helper()
	rows := make([]tradesim.Bar, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		price := seed(i)
		rows[i] = tradesim.Bar{
			Time:   tradesim.NewDateTime(base.AddDate(0, 0, i)),
			Open:   price,
			High:   price * 1.01,
			Low:    price * 0.99,
			Close:  price,
			Volume: 1000,
		}
	}
	bars, err := tradesim.NewBars("SYM", rows, tradesim.ErrorFatal)
	require.NoError(t, err)
	return bars
}

func TestMeanReversionRunDoesNotPanicAndClosesOnCleanup(t *testing.T) {
	bars := syntheticBars(t, 40, func(i int) float64 {
		if i%10 < 5 {
			return 100 - float64(i%10)
		}
		return 100 + float64(i%10)
	})
	container := tradesim.NewPositionsContainer()
	mgr := tradesim.NewPositionsManager(bars, container, nil, nil, "demo", nil)
	params := config.DefaultRuntimeParams(10000)
	ctx := NewRuntimeContext(bars, mgr, nil, nil, nil, nil, params)

	mr, err := NewMeanReversion("SYM", 10)
	require.NoError(t, err)

	assert.True(t, mr.Init(ctx, "SYM"))
	assert.True(t, mr.Begin())
	mr.Run(ctx)
	mr.Cleanup(ctx)
	assert.False(t, mr.Again())

	for _, pos := range container.All(nil) {
		assert.True(t, pos.IsClosed(), "cleanup must flatten every position")
	}
}
