package tradesim

import "github.com/evdnx/tradesim/types"

// SignalType identifies which order call produced a Signal.
type SignalType string

const (
	SignalBuy   SignalType = "BUY"
	SignalSell  SignalType = "SELL"
	SignalShort SignalType = "SHORT"
	SignalCover SignalType = "COVER"
)

// Signal is emitted instead of creating a Position when an order method is
// invoked one bar past the last available historical bar (§4.1, §8). It is
// never realized as a trade; it exists purely so a wrapping harness can act
// on what the strategy would have done on the next (unseen) bar.
type Signal struct {
	Type              SignalType
	Symbol            string
	Time              DateTime
	Bar               int
	Shares            float64
	Price             float64
	Position          *Position // the position being exited, nil for entries
	SystemName        string
	SystemID          string
	ApplySignalSizing bool
}

// SignalHandler receives Signal records as they are emitted.
type SignalHandler interface {
	HandleSignal(Signal)
}

// SignalHandlerFunc adapts a plain function to the SignalHandler interface.
type SignalHandlerFunc func(Signal)

// HandleSignal implements SignalHandler.
func (f SignalHandlerFunc) HandleSignal(s Signal) { f(s) }

// OrderOutcome is the tri-state result of an order placement call (design
// note §9: "model place_order(bar, ...) to return {Filled(id), Signaled,
// Rejected} so tests can assert which path was taken").
type OrderOutcome int

const (
	OrderRejected OrderOutcome = iota
	OrderFilled
	OrderSignaled
)

// OrderResult is returned by every entry/exit order method.
type OrderResult struct {
	Outcome    OrderOutcome
	PositionID PositionID // valid only when Outcome == OrderFilled
}

// EntryFilter is the optional order-filter hook for entry orders: given the
// same arguments as the entry call, it returns the (possibly adjusted)
// share count to use; 0 rejects the order.
type EntryFilter func(bars *Bars, bar int, side types.Side, requestedShares float64, name string) float64

// ExitFilter is the optional order-filter hook for exit orders: it may
// suppress the exit by returning false.
type ExitFilter func(bars *Bars, bar int, pos *Position, name string) bool
