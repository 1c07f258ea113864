package strategy

import (
	"github.com/evdnx/goti"

	"github.com/evdnx/tradesim/logger"
)

// MeanReversion buys oversold symbols and shorts overbought ones, acting
// only when RSI, MFI and VWAO agree on a crossover; on the opposite
// three-way agreement it closes the position and enters the other side.
type MeanReversion struct {
	*BaseStrategy

	shares float64
	side   int // 0 flat, 1 long, -1 short
}

// NewMeanReversion builds the suite with goti's default thresholds.
func NewMeanReversion(symbol string, shares float64) (*MeanReversion, error) {
	suiteFactory := func() (*goti.IndicatorSuite, error) {
		return goti.NewIndicatorSuiteWithConfig(goti.DefaultConfig())
	}
	base, err := NewBaseStrategy(symbol, suiteFactory, nil)
	if err != nil {
		return nil, err
	}
	return &MeanReversion{BaseStrategy: base, shares: shares}, nil
}

// Init always runs the symbol.
func (mr *MeanReversion) Init(ctx *RuntimeContext, symbol string) bool { return true }

// Begin always starts the pass.
func (mr *MeanReversion) Begin() bool { return true }

// Again never repeats the pass.
func (mr *MeanReversion) Again() bool { return false }

// Cleanup flattens any position still open once the bars run out.
func (mr *MeanReversion) Cleanup(ctx *RuntimeContext) {
	mr.closeAll(ctx, ctx.Bars.Size()-1, "mr_cleanup")
}

// Run walks every bar, feeding the indicator suite and acting on bullish or
// bearish three-way crossover agreement.
func (mr *MeanReversion) Run(ctx *RuntimeContext) {
	for i := 0; i < ctx.Bars.Size(); i++ {
		bar := ctx.Bars.At(i)
		if err := mr.Suite.Add(bar.High, bar.Low, bar.Close, bar.Volume); err != nil {
			mr.Log.Warn("suite_add_error", logger.String("symbol", mr.Symbol), logger.Err(err))
			continue
		}
		if i < 14 {
			continue // warm-up
		}

		rsiBull, _ := mr.Suite.GetRSI().IsBullishCrossover()
		rsiBear, _ := mr.Suite.GetRSI().IsBearishCrossover()
		mfiBull, _ := mr.Suite.GetMFI().IsBullishCrossover()
		mfiBear, _ := mr.Suite.GetMFI().IsBearishCrossover()
		vwaoBull, _ := mr.Suite.GetVWAO().IsBullishCrossover()
		vwaoBear, _ := mr.Suite.GetVWAO().IsBearishCrossover()

		longSignal := rsiBull && mfiBull && vwaoBull
		shortSignal := rsiBear && mfiBear && vwaoBear

		switch {
		case longSignal && mr.side != 1:
			if mr.side == -1 {
				mr.closeAll(ctx, i, "mr_close_short")
			}
			if _, err := mr.buyAtMarket(ctx, i, mr.shares, "mr_long"); err == nil {
				mr.side = 1
			}
		case shortSignal && mr.side != -1:
			if mr.side == 1 {
				mr.closeAll(ctx, i, "mr_close_long")
			}
			if _, err := mr.shortAtMarket(ctx, i, mr.shares, "mr_short"); err == nil {
				mr.side = -1
			}
		}
	}
}
