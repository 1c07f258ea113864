package tradesim

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeriesElementWise(t *testing.T) {
	a := NewSeries("a", []float64{1, 2, 3})
	b := NewSeries("b", []float64{10, 20, 30})
	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, []float64{11, 22, 33}, sum.values)

	diff, err := b.Sub(a)
	require.NoError(t, err)
	assert.Equal(t, []float64{9, 18, 27}, diff.values)
}

func TestSeriesScalarOps(t *testing.T) {
	a := NewSeries("a", []float64{1, 2, 3})
	assert.Equal(t, []float64{2, 3, 4}, a.AddScalar(1).values)
	assert.Equal(t, []float64{2, 4, 6}, a.MulScalar(2).values)
}

func TestSeriesSynchronizerMismatchFails(t *testing.T) {
	ref := []DateTime{dtAt(1), dtAt(2), dtAt(3)}
	src1 := []DateTime{dtAt(1), dtAt(2)}
	src2 := []DateTime{dtAt(1), dtAt(3)}
	sync1 := NewSynchronizer(ref, src1)
	sync2 := NewSynchronizer(ref, src2)

	a := NewSyncedSeries("a", NewSeries("a", []float64{1, 2}), sync1)
	b := NewSyncedSeries("b", NewSeries("b", []float64{1, 2}), sync2)
	_, err := a.Add(b)
	assert.ErrorIs(t, err, ErrSyncMismatch)
}

func TestSeriesSameSynchronizerOK(t *testing.T) {
	ref := []DateTime{dtAt(1), dtAt(2), dtAt(3)}
	src := []DateTime{dtAt(1), dtAt(2), dtAt(3)}
	sync := NewSynchronizer(ref, src)

	a := NewSyncedSeries("a", NewSeries("a", []float64{1, 2, 3}), sync)
	b := NewSyncedSeries("b", NewSeries("b", []float64{1, 1, 1}), sync)
	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3, 4}, sum.values)
}

func TestCrossOverUnder(t *testing.T) {
	fast := NewSeries("fast", []float64{1, 3})
	slow := NewSeries("slow", []float64{2, 2})
	assert.True(t, CrossOver(fast, slow, 1))
	assert.False(t, CrossUnder(fast, slow, 1))
}

func TestCrossOverNaNIsFalse(t *testing.T) {
	fast := NewSeries("fast", []float64{math.NaN(), 3})
	slow := NewSeries("slow", []float64{2, 2})
	assert.False(t, CrossOver(fast, slow, 1))
}

func TestSMAWarmupPrefix(t *testing.T) {
	s := NewSeries("s", []float64{1, 2, 3, 4, 5})
	sma := SMA(s, 3)
	assert.True(t, math.IsNaN(sma.At(0)))
	assert.True(t, math.IsNaN(sma.At(1)))
	assert.InDelta(t, 2.0, sma.At(2), 1e-9)
	assert.InDelta(t, 4.0, sma.At(4), 1e-9)
}

func TestRSIBounds(t *testing.T) {
	vals := make([]float64, 30)
	for i := range vals {
		vals[i] = float64(i)
	}
	s := NewSeries("s", vals)
	rsi := RSI(s, 14)
	assert.InDelta(t, 100.0, rsi.At(29), 1e-6)
}

func dtAt(day int) DateTime {
	return NewDateTime(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)).Add(NewDateDuration(int64(day)))
}
