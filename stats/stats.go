package stats

import (
	"math"

	"github.com/evdnx/tradesim"
	"github.com/evdnx/tradesim/equity"
)

// Stats is the full result of the post-sizing statistics pass (§4.5):
// position breakdowns for every side and lifecycle slice, the buy-and-hold
// baseline, each side's drawdown curve, and the composite score.
type Stats struct {
	All    PosStats
	Long   PosStats
	Short  PosStats
	Open   PosStats
	Closed PosStats
	BuyHold PosStats

	AllDrawdown   *DrawdownCurve
	LongDrawdown  *DrawdownCurve
	ShortDrawdown *DrawdownCurve

	ExposurePct     float64
	LongExposurePct float64
	ShortExposurePct float64

	TraderyScore float64
}

func sideOf(pos *tradesim.Position) string {
	if pos.IsLong() {
		return "long"
	}
	return "short"
}

func filterSide(positions []*tradesim.Position, side string) []*tradesim.Position {
	out := make([]*tradesim.Position, 0, len(positions))
	for _, p := range positions {
		if sideOf(p) == side {
			out = append(out, p)
		}
	}
	return out
}

func filterOpen(positions []*tradesim.Position) []*tradesim.Position {
	out := make([]*tradesim.Position, 0, len(positions))
	for _, p := range positions {
		if p.IsOpen() {
			out = append(out, p)
		}
	}
	return out
}

func filterClosed(positions []*tradesim.Position) []*tradesim.Position {
	out := make([]*tradesim.Position, 0, len(positions))
	for _, p := range positions {
		if p.IsClosed() {
			out = append(out, p)
		}
	}
	return out
}

func filterEnabled(positions []*tradesim.Position) []*tradesim.Position {
	out := make([]*tradesim.Position, 0, len(positions))
	for _, p := range positions {
		if p.IsEnabled() {
			out = append(out, p)
		}
	}
	return out
}

// Compute builds the full Stats result from every symbol's (sizing-pass
// mutated) positions, the resulting equity curve, and a buy-and-hold
// baseline built from the same bar data (§4.5). years is the equity
// range's length in years, used to annualize gain.
func Compute(containers map[string]*tradesim.PositionsContainer, curve *equity.Curve, barsBySymbol map[string]*tradesim.Bars, initialCapital, years float64, mark MarkPrice) Stats {
	var positions []*tradesim.Position
	for _, c := range containers {
		positions = append(positions, filterEnabled(c.All(nil))...)
	}

	endingAll := curve.EndingEquity("all")
	endingLong := curve.EndingEquity("long")
	endingShort := curve.EndingEquity("short")

	longPositions := filterSide(positions, "long")
	shortPositions := filterSide(positions, "short")

	s := Stats{
		All:    ComputePosStats(positions, initialCapital, endingAll, years, mark),
		Long:   ComputePosStats(longPositions, initialCapital, endingLong, years, mark),
		Short:  ComputePosStats(shortPositions, initialCapital, endingShort, years, mark),
		Open:   ComputePosStats(filterOpen(positions), initialCapital, endingAll, years, mark),
		Closed: ComputePosStats(filterClosed(positions), initialCapital, endingAll, years, mark),

		AllDrawdown:   NewDrawdownCurve(curve.Days, curve.All),
		LongDrawdown:  NewDrawdownCurve(curve.Days, curve.Long),
		ShortDrawdown: NewDrawdownCurve(curve.Days, curve.Short),

		ExposurePct:      curve.ExposurePct("all"),
		LongExposurePct:  curve.ExposurePct("long"),
		ShortExposurePct: curve.ExposurePct("short"),
	}

	buyHold := BuildBuyAndHoldSet(barsBySymbol, initialCapital)
	var buyHoldGain float64
	for _, pos := range buyHold {
		buyHoldGain += pos.Gain()
	}
	s.BuyHold = ComputePosStats(buyHold, initialCapital, initialCapital+buyHoldGain, years, nil)

	s.TraderyScore = Score(s.All.AnnualizedPctGain, s.ExposurePct, s.AllDrawdown.UlcerIndex)
	return s
}

// Score computes the Tradery score: annualized gain penalized by exposure
// and (capped) Ulcer index, in the same direction as the sign of the gain
// itself (§4.5).
func Score(annualizedPct, exposurePct, ulcerIndex float64) float64 {
	sign := 1.0
	if annualizedPct <= 0 {
		sign = -1.0
	}
	ulcerCapped := math.Min(ulcerIndex, 20.0)
	return annualizedPct * (1 - sign*exposurePct/100) * (1 - sign*ulcerCapped/20)
}
