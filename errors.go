package tradesim

import "errors"

// Order-semantic and data errors surfaced to strategy authors and the
// scheduler (§7). These are sentinel errors checked with errors.Is; the
// scheduler marks the owning symbol as errored and continues with the rest
// of the run rather than aborting.
var (
	// ErrClosingAlreadyClosedPosition is returned by an exit order method
	// targeting a position that has already been closed.
	ErrClosingAlreadyClosedPosition = errors.New("tradesim: closing an already-closed position")
	// ErrCoveringLongPosition is returned when a coverAt* method targets a
	// long position.
	ErrCoveringLongPosition = errors.New("tradesim: covering a long position")
	// ErrSellingShortPosition is returned when a sellAt* method targets a
	// short position.
	ErrSellingShortPosition = errors.New("tradesim: selling a short position")
	// ErrClosingPositionOnDifferentSymbol is returned when an exit order
	// references a position whose symbol differs from the current Bars.
	ErrClosingPositionOnDifferentSymbol = errors.New("tradesim: closing a position on a different symbol")
	// ErrInvalidStopPrice is returned when a stop price is <= 0 or NaN.
	ErrInvalidStopPrice = errors.New("tradesim: invalid stop price")
	// ErrInvalidLimitPrice is returned when a limit price is <= 0 or NaN.
	ErrInvalidLimitPrice = errors.New("tradesim: invalid limit price")
	// ErrNoSignalHandler is returned when an order is placed one bar past
	// the last historical bar and no signal handler is registered.
	ErrNoSignalHandler = errors.New("tradesim: order placed past the last bar with no signal handler registered")
	// ErrPositionNotFound is returned when an exit references an unknown
	// position id.
	ErrPositionNotFound = errors.New("tradesim: position id not found")
	// ErrUnsupportedExplicitTradeType is returned for the PRICE explicit
	// trade order type, which the source format declares but never defines.
	ErrUnsupportedExplicitTradeType = errors.New("tradesim: unsupported explicit trade type (PRICE)")
)
