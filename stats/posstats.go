package stats

import (
	"math"

	"github.com/evdnx/tradesim"
)

// PosStats aggregates win/loss statistics over a set of positions — all,
// long-only, short-only, open-only, closed-only, or a buy-and-hold
// baseline, depending on which slice the caller passes in (§4.5).
type PosStats struct {
	Count         int
	WinningCount  int
	LosingCount   int
	NeutralCount  int
	PctWinning    float64
	PctLosing     float64
	PctNeutral    float64

	GainLoss    float64
	PctGainLoss float64

	MaxGainPerPos    float64
	MaxLossPerPos    float64
	MaxPctGainPerPos float64
	MaxPctLossPerPos float64

	AvgGainLossPerPos    float64
	AvgPctGainLossPerPos float64

	AvgCommissionPerPos float64
	AvgSlippagePerPos   float64

	AvgGainPerWinner float64
	AvgLossPerLoser  float64
	Expectancy       float64

	AnnualizedPctGain float64

	InitialCapital float64
	EndingCapital  float64
}

// MarkPrice supplies the price to mark an open position at (§4.5: "most
// recent price available for that symbol"), keyed by symbol.
type MarkPrice func(symbol string) (price float64, ok bool)

// gainOf returns a position's gain and percentage gain: realized for a
// closed position, mark-to-market at mark.price(symbol) for an open one.
// An open position with no available mark contributes zero.
func gainOf(pos *tradesim.Position, mark MarkPrice) (gain, pctGain float64) {
	if pos.IsClosed() {
		return pos.Gain(), pos.PctGain()
	}
	if mark == nil {
		return 0, 0
	}
	price, ok := mark(pos.Symbol())
	if !ok {
		return 0, 0
	}
	return pos.GainAt(price), pos.PctGainAt(price)
}

// ComputePosStats folds positions into a PosStats. initialCapital and
// endingCapital seed AnnualizedPctGain; years is the equity range's
// duration in years (0 disables annualization, per §4.5).
func ComputePosStats(positions []*tradesim.Position, initialCapital, endingCapital, years float64, mark MarkPrice) PosStats {
	ps := PosStats{InitialCapital: initialCapital, EndingCapital: endingCapital}

	var totalPctGain, totalGain, totalLoss, totalCommission, totalSlippage float64

	for _, pos := range positions {
		ps.Count++
		gain, pctGain := gainOf(pos, mark)

		switch {
		case gain > 0:
			ps.WinningCount++
			totalGain += gain
		case gain < 0:
			ps.LosingCount++
			totalLoss += gain
		default:
			ps.NeutralCount++
		}

		ps.GainLoss += gain
		totalPctGain += pctGain

		if gain > ps.MaxGainPerPos {
			ps.MaxGainPerPos = gain
		}
		if gain < ps.MaxLossPerPos {
			ps.MaxLossPerPos = gain
		}
		if pctGain > ps.MaxPctGainPerPos {
			ps.MaxPctGainPerPos = pctGain
		}
		if pctGain < ps.MaxPctLossPerPos {
			ps.MaxPctLossPerPos = pctGain
		}

		totalCommission += pos.EntryCommission() + pos.CloseCommission()
		totalSlippage += pos.EntrySlippage() + pos.CloseSlippage()
	}

	if ps.Count > 0 {
		n := float64(ps.Count)
		ps.PctWinning = float64(ps.WinningCount) / n * 100
		ps.PctLosing = float64(ps.LosingCount) / n * 100
		ps.PctNeutral = float64(ps.NeutralCount) / n * 100
		ps.AvgGainLossPerPos = ps.GainLoss / n
		ps.AvgPctGainLossPerPos = totalPctGain / n
		ps.AvgCommissionPerPos = totalCommission / n
		ps.AvgSlippagePerPos = totalSlippage / n
	}
	if initialCapital > 0 {
		ps.PctGainLoss = ps.GainLoss / initialCapital * 100
	}
	if ps.WinningCount > 0 {
		ps.AvgGainPerWinner = totalGain / float64(ps.WinningCount)
	}
	if ps.LosingCount > 0 {
		ps.AvgLossPerLoser = totalLoss / float64(ps.LosingCount)
	}
	// loss is already negative, so adding the two nets the expectancy.
	ps.Expectancy = ps.PctWinning/100*ps.AvgGainPerWinner + ps.PctLosing/100*ps.AvgLossPerLoser

	if years > 0 && initialCapital > 0 {
		ps.AnnualizedPctGain = (math.Pow(endingCapital/initialCapital, 1/years) - 1) * 100
	}
	return ps
}
