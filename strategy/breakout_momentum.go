package strategy

import (
	"math"

	"github.com/evdnx/goti"

	"github.com/evdnx/tradesim/logger"
)

// BreakoutMomentum trades breakouts confirmed by HMA, VWAO and ATSO
// crossover agreement, then manages the open position with a percentage
// trailing stop and an ATR-multiple take-profit, using a rolling
// priceBuffer as the trend fallback.
type BreakoutMomentum struct {
	*BaseStrategy

	shares        float64
	trailingPct   float64
	takeProfitPct float64

	prices *priceBuffer

	side       int // 0 flat, 1 long, -1 short
	entryPrice float64
	stopPrice  float64
}

// NewBreakoutMomentum builds the suite with the default ATSO EMA period.
func NewBreakoutMomentum(symbol string, shares, trailingPct, takeProfitPct float64) (*BreakoutMomentum, error) {
	suiteFactory := func() (*goti.IndicatorSuite, error) {
		return goti.NewIndicatorSuiteWithConfig(goti.DefaultConfig())
	}
	base, err := NewBaseStrategy(symbol, suiteFactory, nil)
	if err != nil {
		return nil, err
	}
	return &BreakoutMomentum{
		BaseStrategy:  base,
		shares:        shares,
		trailingPct:   trailingPct,
		takeProfitPct: takeProfitPct,
		prices:        newPriceBuffer(32),
	}, nil
}

// Init always runs the symbol.
func (bm *BreakoutMomentum) Init(ctx *RuntimeContext, symbol string) bool { return true }

// Begin always starts the pass.
func (bm *BreakoutMomentum) Begin() bool { return true }

// Again never repeats the pass.
func (bm *BreakoutMomentum) Again() bool { return false }

// Cleanup flattens any position still open once the bars run out.
func (bm *BreakoutMomentum) Cleanup(ctx *RuntimeContext) {
	bm.closeAll(ctx, ctx.Bars.Size()-1, "breakout_mom_cleanup")
}

// Run walks every bar, feeding the indicator suite and acting on breakout
// agreement across HMA, VWAO and ATSO, managing open positions with a
// trend-direction fallback from the price buffer when an indicator has no
// opinion yet.
func (bm *BreakoutMomentum) Run(ctx *RuntimeContext) {
	for i := 0; i < ctx.Bars.Size(); i++ {
		bar := ctx.Bars.At(i)
		if err := bm.Suite.Add(bar.High, bar.Low, bar.Close, bar.Volume); err != nil {
			bm.Log.Warn("suite_add_error", logger.String("symbol", bm.Symbol), logger.Err(err))
			continue
		}
		bm.prices.Add(bar.Close)
		if bm.prices.Len() < 15 {
			continue
		}

		trend := bm.prices.Trend()
		hBull := trend > 0
		if ok, err := bm.Suite.GetHMA().IsBullishCrossover(); err == nil {
			hBull = hBull || ok
		}
		hBear := trend < 0
		if ok, err := bm.Suite.GetHMA().IsBearishCrossover(); err == nil {
			hBear = hBear || ok
		}
		vBull := trend > 0
		if ok, err := bm.Suite.GetVWAO().IsBullishCrossover(); err == nil {
			vBull = vBull || ok
		}
		vBear := trend < 0
		if ok, err := bm.Suite.GetVWAO().IsBearishCrossover(); err == nil {
			vBear = vBear || ok
		}
		atBull := trend > 0 || bm.Suite.GetATSO().IsBullishCrossover()
		atBear := trend < 0 || bm.Suite.GetATSO().IsBearishCrossover()

		longSignal := hBull && vBull && atBull
		shortSignal := hBear && vBear && atBear

		switch {
		case longSignal && bm.side != 1:
			if bm.side == -1 {
				bm.closeAll(ctx, i, "breakout_mom_close_short")
			}
			if _, err := bm.buyAtMarket(ctx, i, bm.shares, "breakout_mom_long"); err == nil {
				bm.enter(1, bar.Close)
			}
		case shortSignal && bm.side != -1:
			if bm.side == 1 {
				bm.closeAll(ctx, i, "breakout_mom_close_long")
			}
			if _, err := bm.shortAtMarket(ctx, i, bm.shares, "breakout_mom_short"); err == nil {
				bm.enter(-1, bar.Close)
			}
		case bm.side != 0:
			bm.manageOpenPosition(ctx, i, bar.Close)
		}
	}
}

func (bm *BreakoutMomentum) enter(side int, price float64) {
	bm.side = side
	bm.entryPrice = price
	bm.stopPrice = 0
}

// manageOpenPosition applies a trailing stop and an ATR-multiple take
// profit against the open position, flattening it at market when either
// triggers.
func (bm *BreakoutMomentum) manageOpenPosition(ctx *RuntimeContext, bar int, price float64) {
	if bm.trailingPct > 0 {
		switch bm.side {
		case 1:
			newStop := price * (1 - bm.trailingPct)
			if bm.stopPrice == 0 || newStop > bm.stopPrice {
				bm.stopPrice = newStop
			}
			if price <= bm.stopPrice {
				bm.closeAll(ctx, bar, "breakout_mom_trailing_stop")
				bm.side = 0
				return
			}
		case -1:
			newStop := price * (1 + bm.trailingPct)
			if bm.stopPrice == 0 || newStop < bm.stopPrice {
				bm.stopPrice = newStop
			}
			if price >= bm.stopPrice {
				bm.closeAll(ctx, bar, "breakout_mom_trailing_stop")
				bm.side = 0
				return
			}
		}
	}

	if bm.takeProfitPct <= 0 {
		return
	}
	atrVals := bm.Suite.GetATSO().GetATSOValues()
	if len(atrVals) == 0 {
		return
	}
	atr := math.Abs(atrVals[len(atrVals)-1])
	if atr == 0 {
		atr = bm.prices.Volatility()
	}

	switch bm.side {
	case 1:
		if price >= bm.entryPrice+atr*bm.takeProfitPct {
			bm.closeAll(ctx, bar, "breakout_mom_tp")
			bm.side = 0
		}
	case -1:
		if price <= bm.entryPrice-atr*bm.takeProfitPct {
			bm.closeAll(ctx, bar, "breakout_mom_tp")
			bm.side = 0
		}
	}
}
