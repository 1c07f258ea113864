package tradesim

import (
	"sync/atomic"

	"github.com/evdnx/tradesim/types"
)

// PositionID uniquely identifies a Position within a process. 0 is reserved
// for "no id" / "not found" (a valid id can never be 0, per the original
// engine's contract).
type PositionID uint64

var nextPositionID uint64

// newPositionID atomically allocates the next id, monotonically increasing
// and process-local (not a hash or UUID — matching original_source's
// 64-bit counter).
func newPositionID() PositionID {
	return PositionID(atomic.AddUint64(&nextPositionID, 1))
}

// Position represents one simulated trade: a long or short entry, possibly
// closed, with slippage/commission-adjusted fill prices and auto-stop state.
type Position struct {
	id PositionID

	// Immutable after creation.
	side           types.Side
	symbol         string
	entryBar       int
	entryTime      DateTime
	entryPrice     float64
	entryOrderType types.OrderType
	entrySlippage  float64
	entryCommission float64
	entryName      string

	// Mutable once, set on close.
	closed          bool
	closeBar        int
	closeTime       DateTime
	closePrice      float64
	closeOrderType  types.OrderType
	closeSlippage   float64
	closeCommission float64
	closeName       string

	// Mutable repeatedly.
	shares  float64
	enabled bool

	trailingStopActive bool
	trailingStopLevel  float64

	breakEvenStopActive      bool
	breakEvenStopLongActive  bool
	breakEvenStopShortActive bool

	reverseBreakEvenStopActive      bool
	reverseBreakEvenStopLongActive  bool
	reverseBreakEvenStopShortActive bool

	applySizing bool
	userData    any
}

// newPosition is the only constructor; it is called by the positions
// manager when an entry order fills.
func newPosition(side types.Side, symbol string, entryBar int, entryTime DateTime, entryPrice float64, orderType types.OrderType, slippage, commission float64, shares float64, name string, applySizing bool) *Position {
	return &Position{
		id:              newPositionID(),
		side:            side,
		symbol:          symbol,
		entryBar:        entryBar,
		entryTime:       entryTime,
		entryPrice:      entryPrice,
		entryOrderType:  orderType,
		entrySlippage:   slippage,
		entryCommission: commission,
		entryName:       name,
		shares:          shares,
		enabled:         true,
		applySizing:     applySizing,
	}
}

// ID returns the position's unique, non-zero id.
func (p *Position) ID() PositionID { return p.id }

// Symbol returns the position's symbol.
func (p *Position) Symbol() string { return p.symbol }

// IsLong reports whether this is a long position.
func (p *Position) IsLong() bool { return p.side == types.Long }

// IsShort reports whether this is a short position.
func (p *Position) IsShort() bool { return p.side == types.Short }

// IsOpen reports whether the position has not yet been closed.
func (p *Position) IsOpen() bool { return !p.closed }

// IsClosed reports whether the position has been closed.
func (p *Position) IsClosed() bool { return p.closed }

// IsEnabled reports whether the position survives the sizing pass.
func (p *Position) IsEnabled() bool { return p.enabled }

// IsDisabled is the complement of IsEnabled.
func (p *Position) IsDisabled() bool { return !p.enabled }

// ApplyPositionSizing reports whether the sizing pass should resize/gate
// this position (false for positions created from explicit trades, which
// bypass sizing per §3).
func (p *Position) ApplyPositionSizing() bool { return p.applySizing }

// Disable marks the position as excluded from statistics. Disabling never
// re-enables a position and never decreases the container's total count.
func (p *Position) Disable() { p.enabled = false }

// Shares returns the current share count (may be overwritten by sizing).
func (p *Position) Shares() float64 { return p.shares }

// SetShares overwrites the share count; called only by the sizing pass.
func (p *Position) SetShares(shares float64) { p.shares = shares }

// EntryBar returns the bar index at which the position was opened.
func (p *Position) EntryBar() int { return p.entryBar }

// EntryTime returns the entry DateTime.
func (p *Position) EntryTime() DateTime { return p.entryTime }

// EntryPrice returns the entry fill price.
func (p *Position) EntryPrice() float64 { return p.entryPrice }

// EntryOrderType returns the order type used to fill the entry.
func (p *Position) EntryOrderType() types.OrderType { return p.entryOrderType }

// EntrySlippage returns the slippage applied at entry.
func (p *Position) EntrySlippage() float64 { return p.entrySlippage }

// EntryCommission returns the commission applied at entry.
func (p *Position) EntryCommission() float64 { return p.entryCommission }

// EntryName returns the descriptive name supplied to the entry order call.
func (p *Position) EntryName() string { return p.entryName }

// CloseBar returns the bar index at which the position was closed. Only
// valid if IsClosed().
func (p *Position) CloseBar() int { return p.closeBar }

// CloseTime returns the close DateTime. Only valid if IsClosed().
func (p *Position) CloseTime() DateTime { return p.closeTime }

// ClosePrice returns the close fill price. Only valid if IsClosed().
func (p *Position) ClosePrice() float64 { return p.closePrice }

// CloseOrderType returns the order type used to fill the exit.
func (p *Position) CloseOrderType() types.OrderType { return p.closeOrderType }

// CloseSlippage returns the slippage applied at close.
func (p *Position) CloseSlippage() float64 { return p.closeSlippage }

// CloseCommission returns the commission applied at close.
func (p *Position) CloseCommission() float64 { return p.closeCommission }

// CloseName returns the descriptive name supplied to the exit order call.
func (p *Position) CloseName() string { return p.closeName }

// UserData returns the opaque user-attached value, if any.
func (p *Position) UserData() any { return p.userData }

// SetUserData attaches an opaque value to the position.
func (p *Position) SetUserData(v any) { p.userData = v }

// close sets the mutable-once close fields. Called only by the positions
// manager's exit order methods.
func (p *Position) close(bar int, t DateTime, price float64, orderType types.OrderType, slippage, commission float64, name string) {
	p.closed = true
	p.closeBar = bar
	p.closeTime = t
	p.closePrice = price
	p.closeOrderType = orderType
	p.closeSlippage = slippage
	p.closeCommission = commission
	p.closeName = name
}

// EntryCost returns the entry value at the current share count: for a long,
// the cash outlay shares*(price+slippage)+commission; for a short, the
// sale proceeds shares*(price-slippage)-commission.
func (p *Position) EntryCost() float64 {
	return p.entryCostFor(p.shares)
}

// EntryCostFor returns the would-be entry cost for an arbitrary share
// count, used by the sizing pass before shares are finalized.
func (p *Position) EntryCostFor(shares float64) float64 {
	return p.entryCostFor(shares)
}

func (p *Position) entryCostFor(shares float64) float64 {
	if p.IsLong() {
		return shares*(p.entryPrice+p.entrySlippage) + p.entryCommission
	}
	// Short: slippage works against the trader on entry just the same
	// (fill is worse, i.e. a lower short-sale price), so cost is reduced by
	// slippage and gain = closeIncome - entryCost still nets correctly.
	return shares*(p.entryPrice-p.entrySlippage) - p.entryCommission
}

// CloseIncome returns the close value at the current share count: for a
// long, the cash received on the sale; for a short, the cash paid to buy
// the shares back. It is 0 for an open position.
func (p *Position) CloseIncome() float64 {
	if !p.closed {
		return 0
	}
	if p.IsLong() {
		return p.shares*(p.closePrice-p.closeSlippage) - p.closeCommission
	}
	return p.shares*(p.closePrice+p.closeSlippage) + p.closeCommission
}

// Gain returns the realized gain of a closed position: CloseIncome minus
// EntryCost for longs, EntryCost minus CloseIncome for shorts. It is 0 for
// an open position.
func (p *Position) Gain() float64 {
	if !p.closed {
		return 0
	}
	if p.IsLong() {
		return p.CloseIncome() - p.EntryCost()
	}
	// Short: entryCost is the (negative-slippage-adjusted) proceeds from
	// selling short; closeIncome is the cost to buy back. Gain is the
	// difference the other way around.
	return p.EntryCost() - p.CloseIncome()
}

// GainAt returns the unrealized ("virtual") gain if the position were
// closed at price right now, without charging an exit commission.
func (p *Position) GainAt(price float64) float64 {
	mv := p.shares * price
	entry := p.shares * p.entryPrice
	if p.IsLong() {
		return mv - entry
	}
	return entry - mv
}

// PctGain returns the realized percentage gain relative to entry cost.
func (p *Position) PctGain() float64 {
	cost := p.EntryCost()
	if cost == 0 {
		return 0
	}
	return p.Gain() / cost * 100
}

// PctGainAt is the percentage counterpart of GainAt.
func (p *Position) PctGainAt(price float64) float64 {
	cost := p.EntryCost()
	if cost == 0 {
		return 0
	}
	return p.GainAt(price) / cost * 100
}

// MarketValueAt returns the signed market value of shares at price, used by
// the equity pass's mark-to-market daily rollup.
func (p *Position) MarketValueAt(price float64) float64 {
	if p.IsLong() {
		return p.shares * price
	}
	// Short positions owe shares back; their mark-to-market contribution to
	// total equity is the entry value (shares*entryPrice) plus the unrealized
	// gain shares*(entryPrice-price).
	return p.shares * (2*p.entryPrice - price)
}

// --- Auto-stop state -------------------------------------------------

// TrailingStopActive reports whether a trailing stop has armed.
func (p *Position) TrailingStopActive() bool { return p.trailingStopActive }

// TrailingStopLevel returns the armed trailing-stop trigger price.
func (p *Position) TrailingStopLevel() float64 { return p.trailingStopLevel }

// ActivateTrailingStop arms (or ratchets) the trailing stop to level.
func (p *Position) ActivateTrailingStop(level float64) {
	p.trailingStopActive = true
	p.trailingStopLevel = level
}

// BreakEvenStopActive reports whether break-even stop tracking has armed
// for this position (either side).
func (p *Position) BreakEvenStopActive() bool { return p.breakEvenStopActive }

// BreakEvenStopLongActive reports the long-specific arm flag.
func (p *Position) BreakEvenStopLongActive() bool { return p.breakEvenStopLongActive }

// BreakEvenStopShortActive reports the short-specific arm flag.
func (p *Position) BreakEvenStopShortActive() bool { return p.breakEvenStopShortActive }

// ActivateBreakEvenStop arms the break-even stop.
func (p *Position) ActivateBreakEvenStop() {
	p.breakEvenStopActive = true
	if p.IsLong() {
		p.breakEvenStopLongActive = true
	} else {
		p.breakEvenStopShortActive = true
	}
}

// ReverseBreakEvenStopActive reports whether the reverse break-even stop
// has armed.
func (p *Position) ReverseBreakEvenStopActive() bool { return p.reverseBreakEvenStopActive }

// ReverseBreakEvenStopLongActive reports the long-specific arm flag.
func (p *Position) ReverseBreakEvenStopLongActive() bool { return p.reverseBreakEvenStopLongActive }

// ReverseBreakEvenStopShortActive reports the short-specific arm flag.
func (p *Position) ReverseBreakEvenStopShortActive() bool { return p.reverseBreakEvenStopShortActive }

// ActivateReverseBreakEvenStop arms the reverse break-even stop.
func (p *Position) ActivateReverseBreakEvenStop() {
	p.reverseBreakEvenStopActive = true
	if p.IsLong() {
		p.reverseBreakEvenStopLongActive = true
	} else {
		p.reverseBreakEvenStopShortActive = true
	}
}
