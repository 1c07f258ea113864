// Package types holds the small vocabulary of enums shared across the
// engine: position side, order type, and explicit-trade action. Kept as a
// standalone package (as in the teacher) so strategy, scheduler, and the
// equity pass can all depend on it without importing each other.
package types

// Side is the direction of a position.
type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

// OrderType identifies how a fill price was determined and doubles as the
// same-day ordering tiebreaker used by the equity pass (§3): market orders
// sort before limit/stop orders, which sort before close orders.
type OrderType string

const (
	MarketOrder OrderType = "MARKET"
	LimitOrder  OrderType = "LIMIT"
	StopOrder   OrderType = "STOP"
	CloseOrder  OrderType = "CLOSE"
)

// orderTypePriority assigns the three-tier priority from the original
// engine's PositionAbstr::orderTypeLower: market < (limit|stop) < close.
func orderTypePriority(t OrderType) int {
	switch t {
	case MarketOrder:
		return 0
	case CloseOrder:
		return 2
	default: // LimitOrder, StopOrder
		return 1
	}
}

// OrderTypeLess reports whether a sorts before b under the three-tier
// priority (ties, e.g. limit vs stop, are not less-than in either direction).
func OrderTypeLess(a, b OrderType) bool {
	return orderTypePriority(a) < orderTypePriority(b)
}

// ExplicitTradeAction is the action token in an ExplicitTrade directive.
type ExplicitTradeAction string

const (
	ActionBuy       ExplicitTradeAction = "BUY"
	ActionSell      ExplicitTradeAction = "SELL"
	ActionShort     ExplicitTradeAction = "SHORT"
	ActionCover     ExplicitTradeAction = "COVER"
	ActionSellAll   ExplicitTradeAction = "SELL_ALL"
	ActionCoverAll  ExplicitTradeAction = "COVER_ALL"
	ActionExitAll   ExplicitTradeAction = "EXIT_ALL"
)

// ExplicitTradeType is the order-type token in an ExplicitTrade directive.
// PRICE is declared for parity with the original format but is never
// implemented (see SPEC_FULL.md's open-question decisions).
type ExplicitTradeType string

const (
	TypeMarket ExplicitTradeType = "MARKET"
	TypeClose  ExplicitTradeType = "CLOSE"
	TypeLimit  ExplicitTradeType = "LIMIT"
	TypeStop   ExplicitTradeType = "STOP"
	TypePrice  ExplicitTradeType = "PRICE"
)
