package stats

import (
	"math"

	"github.com/evdnx/tradesim"
)

// BuildBuyAndHold constructs the synthetic buy-and-hold baseline position
// for one symbol (§4.5): buy floor(capitalPerSymbol/first_open) shares at
// the first bar and hold to the last bar's close. Reuses PositionsManager
// so the resulting Position's Gain/EntryCost/CloseIncome machinery is
// identical to a real trade's. Returns nil if bars has no data or the
// allocation buys zero shares.
func BuildBuyAndHold(bars *tradesim.Bars, capitalPerSymbol float64) *tradesim.Position {
	if bars == nil || bars.Size() == 0 {
		return nil
	}
	firstPrice := bars.Open(0)
	if firstPrice <= 0 {
		return nil
	}
	shares := math.Floor(capitalPerSymbol / firstPrice)
	if shares <= 0 {
		return nil
	}

	container := tradesim.NewPositionsContainer()
	mgr := tradesim.NewPositionsManager(bars, container, nil, nil, "buy_hold", nil)

	res, err := mgr.BuyAtMarket(0, shares, "buy_hold")
	if err != nil || res.Outcome != tradesim.OrderFilled {
		return nil
	}
	lastBar := bars.Size() - 1
	if _, err := mgr.SellAtClose(res.PositionID, lastBar, "buy_hold"); err != nil {
		return nil
	}
	pos, _ := container.ByID(res.PositionID)
	return pos
}

// BuildBuyAndHoldSet builds one buy-and-hold position per symbol, splitting
// capital evenly across every symbol with bar data, and returns the
// non-nil results.
func BuildBuyAndHoldSet(barsBySymbol map[string]*tradesim.Bars, initialCapital float64) []*tradesim.Position {
	if len(barsBySymbol) == 0 {
		return nil
	}
	perSymbol := initialCapital / float64(len(barsBySymbol))
	positions := make([]*tradesim.Position, 0, len(barsBySymbol))
	for _, bars := range barsBySymbol {
		if pos := BuildBuyAndHold(bars, perSymbol); pos != nil {
			positions = append(positions, pos)
		}
	}
	return positions
}
