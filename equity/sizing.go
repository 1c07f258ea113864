package equity

import (
	"math"

	"github.com/evdnx/tradesim"
	"github.com/evdnx/tradesim/config"
)

// sizePosition applies the position-sizing and limit rules (§4.4) to a
// position at entry time, mutating its shares or disabling it in place.
// It reports whether the position survives sizing (false means the caller
// must skip committing cash/open-count for it). Generalizes the
// risk-per-trade shape of a plain fixed-fraction sizer into the five
// size_type variants the equity pass supports.
func sizePosition(pos *tradesim.Position, curve *Curve, d int, marks *symbolMarks, sizing config.PositionSizingParams, openCount int) bool {
	if !sizing.UnlimitedOpenPositions && uint64(openCount) >= sizing.MaxOpenPositions {
		pos.Disable()
		return false
	}

	entryPrice := pos.EntryPrice()
	if entryPrice <= 0 {
		pos.Disable()
		return false
	}

	totalAll := curve.All[d].Total
	cashAll := curve.All[d].Cash

	shares := pos.Shares()
	switch sizing.SizeType {
	case config.SizeSystemDefined:
		// keep current
	case config.SizeShares:
		shares = math.Round(sizing.SizeValue)
	case config.SizeValue:
		shares = math.Round(sizing.SizeValue / entryPrice)
	case config.SizePctEquity:
		shares = math.Round(totalAll * sizing.SizeValue / 100 / entryPrice)
	case config.SizePctCash:
		shares = math.Round(cashAll * sizing.SizeValue / 100 / entryPrice)
	}

	switch sizing.LimitType {
	case config.LimitPctVolume:
		vol := marks.volumeBeforeEntry(pos.EntryBar())
		capped := vol * sizing.LimitValue / 100
		if shares > capped {
			shares = capped
		}
	case config.LimitValue:
		capped := sizing.LimitValue / entryPrice
		if shares > capped {
			shares = capped
		}
	}

	if shares <= 0 {
		pos.Disable()
		return false
	}

	if pos.EntryCostFor(shares) > cashAll {
		pos.Disable()
		return false
	}

	pos.SetShares(shares)
	return true
}
