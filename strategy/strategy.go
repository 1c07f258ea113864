// Package strategy defines the contract a user strategy must satisfy to run
// under the scheduler, and the runtime context bound to it for the duration
// of one symbol's pass.
package strategy

import (
	"github.com/evdnx/tradesim"
	"github.com/evdnx/tradesim/config"
)

// Strategy is the five-method contract the scheduler drives per symbol
// (§4.3). A strategy is a value bound to a RuntimeContext, not a class
// hierarchy: concrete strategies embed BaseStrategy and override the
// methods relevant to their logic.
type Strategy interface {
	// Init is called once per symbol before Run; returning false skips the
	// symbol entirely for this pass.
	Init(ctx *RuntimeContext, symbol string) bool
	// Run is the strategy's main body. It typically iterates bars and
	// issues orders through ctx.Positions.
	Run(ctx *RuntimeContext)
	// Cleanup is called after Run regardless of outcome, including when
	// Run calls Exit.
	Cleanup(ctx *RuntimeContext)
	// Again is consulted once after the scheduler finishes every symbol;
	// returning true starts another pass over the symbols iterator.
	Again() bool
	// Begin is called before each pass (including the first); returning
	// false cancels that pass before any symbol runs.
	Begin() bool
}

// ExitSignal is the payload of a panic raised by a strategy's call to Exit,
// caught by the scheduler as a non-error termination of that symbol's run.
type ExitSignal struct {
	Message string
}

// Exit aborts the current strategy run with message. It must only be
// called from within Run; the scheduler recovers the resulting panic and
// treats it as a normal (non-error) completion of that symbol.
func Exit(message string) {
	panic(ExitSignal{Message: message})
}

// ChartSink receives strategy-annotated chart markers; a no-op
// implementation is substituted when no rendering layer is attached.
type ChartSink interface {
	Mark(bar int, label string)
}

// NopChartSink discards every marker.
type NopChartSink struct{}

// Mark implements ChartSink.
func (NopChartSink) Mark(bar int, label string) {}

// SymbolsIterator hands out symbol identities to scheduler workers,
// one at a time and safely from multiple goroutines.
type SymbolsIterator interface {
	Next() (symbol string, ok bool)
	Reset()
}

// DataProvider fetches bars for a symbol, deterministically within a
// session.
type DataProvider interface {
	GetData(symbol string) (*tradesim.Bars, error)
}

// RuntimeContext bundles everything the runtime supplies to a running
// strategy: its bound bars and positions manager, a chart sink, optional
// explicit trades, its own copy of the symbols iterator (for cross-symbol
// lookups via the data provider), and the session's runtime parameters
// (§4.3).
type RuntimeContext struct {
	Bars      *tradesim.Bars
	Positions *tradesim.PositionsManager
	Chart     ChartSink
	Trades    *tradesim.ExplicitTrades
	Symbols   SymbolsIterator
	Data      DataProvider
	Params    config.RuntimeParams
}

// NewRuntimeContext assembles a context for one symbol's pass. chart may be
// nil, in which case a NopChartSink is substituted; trades may be nil.
func NewRuntimeContext(bars *tradesim.Bars, positions *tradesim.PositionsManager, chart ChartSink, trades *tradesim.ExplicitTrades, symbols SymbolsIterator, data DataProvider, params config.RuntimeParams) *RuntimeContext {
	if chart == nil {
		chart = NopChartSink{}
	}
	return &RuntimeContext{
		Bars:      bars,
		Positions: positions,
		Chart:     chart,
		Trades:    trades,
		Symbols:   symbols,
		Data:      data,
		Params:    params,
	}
}
