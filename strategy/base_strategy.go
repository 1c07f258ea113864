package strategy

import (
	"github.com/evdnx/goti"

	"github.com/evdnx/tradesim"
	"github.com/evdnx/tradesim/logger"
	"github.com/evdnx/tradesim/metrics"
)

// BaseStrategy bundles the dependencies common to every concrete strategy:
// a logger, an indicator suite built from bar data, and the symbol it is
// bound to for the current pass. Concrete strategies embed it and satisfy
// the remaining Strategy methods themselves.
type BaseStrategy struct {
	Log    logger.Logger
	Suite  *goti.IndicatorSuite
	Symbol string
}

// NewBaseStrategy builds the indicator suite via the supplied factory. The
// factory indirection keeps this package from having to know goti's config
// type, matching how concrete strategies configure their own thresholds.
func NewBaseStrategy(symbol string, suiteFactory func() (*goti.IndicatorSuite, error), log logger.Logger) (*BaseStrategy, error) {
	if log == nil {
		log = logger.NopLogger{}
	}
	suite, err := suiteFactory()
	if err != nil {
		return nil, err
	}
	return &BaseStrategy{
		Log:    log,
		Suite:  suite,
		Symbol: symbol,
	}, nil
}

// buyAtMarket submits a long entry through ctx's positions manager,
// recording the outcome in metrics and logging any error.
func (b *BaseStrategy) buyAtMarket(ctx *RuntimeContext, bar int, shares float64, name string) (tradesim.OrderResult, error) {
	return b.record(ctx, name, ctx.Positions.BuyAtMarket(bar, shares, name))
}

// shortAtMarket submits a short entry through ctx's positions manager.
func (b *BaseStrategy) shortAtMarket(ctx *RuntimeContext, bar int, shares float64, name string) (tradesim.OrderResult, error) {
	return b.record(ctx, name, ctx.Positions.ShortAtMarket(bar, shares, name))
}

// closeAll flattens every open position at market, logging failures but
// not aborting: a strategy can call this unconditionally at the end of a
// run without checking position counts first.
func (b *BaseStrategy) closeAll(ctx *RuntimeContext, bar int, name string) {
	if err := ctx.Positions.CloseAllAtMarket(bar, name); err != nil {
		b.Log.Warn("close_all_failed", logger.String("symbol", b.Symbol), logger.Err(err))
	}
}

func (b *BaseStrategy) record(ctx *RuntimeContext, name string, res tradesim.OrderResult, err error) (tradesim.OrderResult, error) {
	outcome := "rejected"
	switch res.Outcome {
	case tradesim.OrderFilled:
		outcome = "filled"
	case tradesim.OrderSignaled:
		outcome = "signaled"
	}
	metrics.OrdersSubmitted.WithLabelValues(b.Symbol, outcome).Inc()
	if err != nil {
		b.Log.Error("order_failed", logger.String("symbol", b.Symbol), logger.String("name", name), logger.Err(err))
	} else {
		b.Log.Info("order_result", logger.String("symbol", b.Symbol), logger.String("name", name), logger.String("outcome", outcome))
	}
	return res, err
}
