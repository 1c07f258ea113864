// Package stats computes the post-sizing performance metrics: drawdown and
// Ulcer index per equity curve, win/loss position statistics sliced by
// side and lifecycle state, a buy-and-hold baseline, and the Tradery score
// that combines them (§4.5).
package stats

import (
	"math"

	"github.com/evdnx/tradesim"
	"github.com/evdnx/tradesim/equity"
)

// DrawdownCurve tracks retracement from the running equity peak, one entry
// per day of the underlying equity.Curve side it was built from (§4.5).
type DrawdownCurve struct {
	Drawdown       []float64 // <= 0, total - last_peak
	DrawdownPct    []float64 // <= 0, drawdown/last_peak * 100
	DaysInDrawdown []int

	MaxDrawdown        float64
	MaxDrawdownDate    tradesim.DateTime
	MaxDrawdownPct     float64
	MaxDrawdownPctDate tradesim.DateTime
	MaxDrawdownDays    int
	UlcerIndex         float64
}

// NewDrawdownCurve walks one side's daily totals, tracking the running peak
// and retracement exactly as the original engine's DrawdownCurve does.
func NewDrawdownCurve(days []tradesim.DateTime, points []equity.Point) *DrawdownCurve {
	dc := &DrawdownCurve{
		Drawdown:       make([]float64, len(points)),
		DrawdownPct:    make([]float64, len(points)),
		DaysInDrawdown: make([]int, len(points)),
	}

	lastPeak := math.Inf(-1)
	daysInDD := 0
	var retracementSqSum float64
	var retracementCount int64

	for i, p := range points {
		if p.Total >= lastPeak {
			lastPeak = p.Total
			daysInDD = 0
			continue
		}

		dd := p.Total - lastPeak
		ddPct := 0.0
		if lastPeak != 0 {
			ddPct = dd / lastPeak * 100
		}

		dc.Drawdown[i] = dd
		dc.DrawdownPct[i] = ddPct
		dc.DaysInDrawdown[i] = daysInDD

		if dd < dc.MaxDrawdown {
			dc.MaxDrawdown = dd
			dc.MaxDrawdownDate = days[i]
		}
		if ddPct < dc.MaxDrawdownPct {
			dc.MaxDrawdownPct = ddPct
			dc.MaxDrawdownPctDate = days[i]
		}
		if daysInDD > dc.MaxDrawdownDays {
			dc.MaxDrawdownDays = daysInDD
		}

		retracement := 0.0
		if lastPeak != 0 {
			retracement = dd / lastPeak
		}
		retracementSqSum += retracement * retracement
		retracementCount++
		daysInDD++
	}

	if retracementCount > 0 {
		dc.UlcerIndex = math.Sqrt(retracementSqSum/float64(retracementCount)) * 100
	}
	return dc
}
