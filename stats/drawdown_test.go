package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/evdnx/tradesim"
	"github.com/evdnx/tradesim/equity"
)

func dtAt(day int) tradesim.DateTime {
	return tradesim.NewDateTime(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)).Add(tradesim.NewDateDuration(int64(day)))
}

func TestNewDrawdownCurveFlatCurveHasNoDrawdown(t *testing.T) {
	days := []tradesim.DateTime{dtAt(0), dtAt(1), dtAt(2)}
	points := []equity.Point{{Total: 10000}, {Total: 10000}, {Total: 10000}}

	dc := NewDrawdownCurve(days, points)
	assert.InDelta(t, 0, dc.MaxDrawdown, 1e-9)
	assert.InDelta(t, 0, dc.UlcerIndex, 1e-9)
	assert.Equal(t, 0, dc.MaxDrawdownDays)
}

func TestNewDrawdownCurveTracksRetracementFromPeak(t *testing.T) {
	days := []tradesim.DateTime{dtAt(0), dtAt(1), dtAt(2), dtAt(3), dtAt(4)}
	// peak at 10000 -> drawdown to 9000 (-10%) for two days -> new peak at 11000
	points := []equity.Point{
		{Total: 10000},
		{Total: 9500},
		{Total: 9000},
		{Total: 9800},
		{Total: 11000},
	}

	dc := NewDrawdownCurve(days, points)
	assert.InDelta(t, -1000, dc.MaxDrawdown, 1e-9)
	assert.Equal(t, dtAt(2), dc.MaxDrawdownDate)
	assert.InDelta(t, -10.0, dc.MaxDrawdownPct, 1e-9)
	assert.Equal(t, 2, dc.MaxDrawdownDays) // day index 3's retracement had already run 2 full days
	assert.True(t, dc.UlcerIndex > 0)
}
