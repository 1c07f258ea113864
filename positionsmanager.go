package tradesim

import (
	"math"

	"github.com/evdnx/tradesim/logger"
	"github.com/evdnx/tradesim/types"
)

// PositionsManager binds a Bars collection and a PositionsContainer together
// and is the sole way strategies place or close positions (§4.1). It owns
// the pluggable slippage/commission functions, the optional order filter and
// signal handlers, and the six auto-stop policies.
type PositionsManager struct {
	bars       *Bars
	container  *PositionsContainer
	slippage   SlippageFunc
	commission CommissionFunc
	systemName string
	systemID   string
	log        logger.Logger

	entryFilter EntryFilter
	exitFilter  ExitFilter
	handlers    []SignalHandler

	startTradesDateTime DateTime
	hasStartTrades      bool

	autoStops autoStopPolicy
}

type autoStopPolicy struct {
	timeEnabled   bool
	timeBars      int
	timeUseClose  bool

	stopLossEnabled bool
	stopLossPct     float64

	trailingEnabled    bool
	trailingTriggerPct float64
	trailingLevelPct   float64

	breakEvenEnabled    bool
	breakEvenTriggerPct float64

	reverseBreakEvenEnabled    bool
	reverseBreakEvenTriggerPct float64

	profitTargetEnabled bool
	profitTargetPct     float64
}

// NewPositionsManager builds a manager bound to bars/container using the
// supplied cost functions. Pass ZeroSlippage/ZeroCommission for a
// frictionless simulation.
func NewPositionsManager(bars *Bars, container *PositionsContainer, slippage SlippageFunc, commission CommissionFunc, systemName string, log logger.Logger) *PositionsManager {
	if slippage == nil {
		slippage = ZeroSlippage
	}
	if commission == nil {
		commission = ZeroCommission
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &PositionsManager{
		bars:       bars,
		container:  container,
		slippage:   slippage,
		commission: commission,
		systemName: systemName,
		log:        log,
	}
}

// Bars returns the bound Bars collection.
func (m *PositionsManager) Bars() *Bars { return m.bars }

// Container returns the bound PositionsContainer.
func (m *PositionsManager) Container() *PositionsContainer { return m.container }

// SetEntryFilter installs the optional entry order filter hook.
func (m *PositionsManager) SetEntryFilter(f EntryFilter) { m.entryFilter = f }

// SetExitFilter installs the optional exit order filter hook.
func (m *PositionsManager) SetExitFilter(f ExitFilter) { m.exitFilter = f }

// AddSignalHandler registers a handler to receive Signal records. Without at
// least one handler, an order placed one bar past the end of history fails
// with ErrNoSignalHandler.
func (m *PositionsManager) AddSignalHandler(h SignalHandler) { m.handlers = append(m.handlers, h) }

// SetStartTradesDateTime rejects entries whose bar time is earlier than dt.
func (m *PositionsManager) SetStartTradesDateTime(dt DateTime) {
	m.startTradesDateTime = dt
	m.hasStartTrades = true
}

// --- Auto-stop installation --------------------------------------------

// InstallTimeStop enables the time-based auto-stop: positions held for at
// least bars bars are exited, at market if useClose is false or at close
// if true.
func (m *PositionsManager) InstallTimeStop(bars int, useClose bool) {
	m.autoStops.timeEnabled = true
	m.autoStops.timeBars = bars
	m.autoStops.timeUseClose = useClose
}

// InstallStopLoss enables the stop-loss auto-stop at levelPct percent.
func (m *PositionsManager) InstallStopLoss(levelPct float64) {
	m.autoStops.stopLossEnabled = true
	m.autoStops.stopLossPct = levelPct
}

// InstallTrailingStop enables the trailing stop: arms once unrealized
// profit reaches triggerPct percent, then trails levelPct percent behind
// the running high (long) / low (short).
func (m *PositionsManager) InstallTrailingStop(triggerPct, levelPct float64) {
	m.autoStops.trailingEnabled = true
	m.autoStops.trailingTriggerPct = triggerPct
	m.autoStops.trailingLevelPct = levelPct
}

// InstallBreakEvenStop enables the break-even stop: arms once unrealized
// profit reaches levelPct percent, then exits if price returns to entry.
func (m *PositionsManager) InstallBreakEvenStop(levelPct float64) {
	m.autoStops.breakEvenEnabled = true
	m.autoStops.breakEvenTriggerPct = levelPct
}

// InstallReverseBreakEvenStop enables the reverse break-even stop: arms
// once unrealized loss reaches levelPct percent, then exits at limit if
// price returns to entry.
func (m *PositionsManager) InstallReverseBreakEvenStop(levelPct float64) {
	m.autoStops.reverseBreakEvenEnabled = true
	m.autoStops.reverseBreakEvenTriggerPct = levelPct
}

// InstallProfitTarget enables the profit-target auto-stop at levelPct
// percent above (long) / below (short) entry.
func (m *PositionsManager) InstallProfitTarget(levelPct float64) {
	m.autoStops.profitTargetEnabled = true
	m.autoStops.profitTargetPct = levelPct
}

// --- Fill-rule helpers ---------------------------------------------------

// fillUpward implements the shared stop/limit fill rule used by orders that
// trigger as price rises through a level (buyAtStop, coverAtStop; and the
// mirrored upward limit used by shortAtLimit/sellAtLimit): fill at open if
// open already cleared the trigger, else at the trigger level itself if the
// bar's high cleared it intrabar, else no fill.
func fillUpward(open, high, trigger float64) (price float64, filled bool) {
	if open >= trigger {
		return open, true
	}
	if high >= trigger {
		return trigger, true
	}
	return 0, false
}

// fillDownward mirrors fillUpward for triggers that fire as price falls
// (shortAtStop, sellAtStop; and buyAtLimit/coverAtLimit's downward limit).
func fillDownward(open, low, trigger float64) (price float64, filled bool) {
	if open <= trigger {
		return open, true
	}
	if low <= trigger {
		return trigger, true
	}
	return 0, false
}

// --- Entry orders ---------------------------------------------------------

func (m *PositionsManager) enterAtPrice(side types.Side, bar int, price float64, orderType types.OrderType, shares float64, name string, sigType SignalType) (OrderResult, error) {
	if bar < 0 || bar > m.bars.Size() {
		return OrderResult{}, ErrBarIndexOutOfRange
	}
	if bar == m.bars.Size() {
		return m.emitSignal(sigType, bar, shares, price, nil, true)
	}
	if m.hasStartTrades && m.bars.Time(bar).Before(m.startTradesDateTime) {
		return OrderResult{Outcome: OrderRejected}, nil
	}
	if m.entryFilter != nil {
		shares = m.entryFilter(m.bars, bar, side, shares, name)
		if shares <= 0 {
			return OrderResult{Outcome: OrderRejected}, nil
		}
	}
	slip := m.slippage(shares, m.bars.Volume(bar), price)
	comm := m.commission(shares, price)
	pos := newPosition(side, m.bars.Symbol(), bar, m.bars.Time(bar), price, orderType, slip, comm, shares, name, true)
	m.container.Add(pos)
	return OrderResult{Outcome: OrderFilled, PositionID: pos.ID()}, nil
}

// BuyAtMarket opens a long position filled at the bar's open.
func (m *PositionsManager) BuyAtMarket(bar int, shares float64, name string) (OrderResult, error) {
	if bar >= 0 && bar < m.bars.Size() {
		return m.enterAtPrice(types.Long, bar, m.bars.Open(bar), types.MarketOrder, shares, name, SignalBuy)
	}
	return m.enterAtPrice(types.Long, bar, 0, types.MarketOrder, shares, name, SignalBuy)
}

// ShortAtMarket opens a short position filled at the bar's open.
func (m *PositionsManager) ShortAtMarket(bar int, shares float64, name string) (OrderResult, error) {
	if bar >= 0 && bar < m.bars.Size() {
		return m.enterAtPrice(types.Short, bar, m.bars.Open(bar), types.MarketOrder, shares, name, SignalShort)
	}
	return m.enterAtPrice(types.Short, bar, 0, types.MarketOrder, shares, name, SignalShort)
}

// BuyAtClose opens a long position filled at the bar's close.
func (m *PositionsManager) BuyAtClose(bar int, shares float64, name string) (OrderResult, error) {
	if bar >= 0 && bar < m.bars.Size() {
		return m.enterAtPrice(types.Long, bar, m.bars.Close(bar), types.CloseOrder, shares, name, SignalBuy)
	}
	return m.enterAtPrice(types.Long, bar, 0, types.CloseOrder, shares, name, SignalBuy)
}

// ShortAtClose opens a short position filled at the bar's close.
func (m *PositionsManager) ShortAtClose(bar int, shares float64, name string) (OrderResult, error) {
	if bar >= 0 && bar < m.bars.Size() {
		return m.enterAtPrice(types.Short, bar, m.bars.Close(bar), types.CloseOrder, shares, name, SignalShort)
	}
	return m.enterAtPrice(types.Short, bar, 0, types.CloseOrder, shares, name, SignalShort)
}

// BuyAtStop opens a long position once price rises through stop (§4.1,§8).
func (m *PositionsManager) BuyAtStop(bar int, stop, shares float64, name string) (OrderResult, error) {
	if err := validatePrice(stop, ErrInvalidStopPrice); err != nil {
		return OrderResult{}, err
	}
	if bar == m.bars.Size() {
		return m.enterAtPrice(types.Long, bar, stop, types.StopOrder, shares, name, SignalBuy)
	}
	if bar < 0 || bar >= m.bars.Size() {
		return OrderResult{}, ErrBarIndexOutOfRange
	}
	price, ok := fillUpward(m.bars.Open(bar), m.bars.High(bar), stop)
	if !ok {
		return OrderResult{Outcome: OrderRejected}, nil
	}
	return m.enterAtPrice(types.Long, bar, price, types.StopOrder, shares, name, SignalBuy)
}

// ShortAtStop opens a short position once price falls through stop.
func (m *PositionsManager) ShortAtStop(bar int, stop, shares float64, name string) (OrderResult, error) {
	if err := validatePrice(stop, ErrInvalidStopPrice); err != nil {
		return OrderResult{}, err
	}
	if bar == m.bars.Size() {
		return m.enterAtPrice(types.Short, bar, stop, types.StopOrder, shares, name, SignalShort)
	}
	if bar < 0 || bar >= m.bars.Size() {
		return OrderResult{}, ErrBarIndexOutOfRange
	}
	price, ok := fillDownward(m.bars.Open(bar), m.bars.Low(bar), stop)
	if !ok {
		return OrderResult{Outcome: OrderRejected}, nil
	}
	return m.enterAtPrice(types.Short, bar, price, types.StopOrder, shares, name, SignalShort)
}

// BuyAtLimit opens a long position at or below limit.
func (m *PositionsManager) BuyAtLimit(bar int, limit, shares float64, name string) (OrderResult, error) {
	if err := validatePrice(limit, ErrInvalidLimitPrice); err != nil {
		return OrderResult{}, err
	}
	if bar == m.bars.Size() {
		return m.enterAtPrice(types.Long, bar, limit, types.LimitOrder, shares, name, SignalBuy)
	}
	if bar < 0 || bar >= m.bars.Size() {
		return OrderResult{}, ErrBarIndexOutOfRange
	}
	price, ok := fillDownward(m.bars.Open(bar), m.bars.Low(bar), limit)
	if !ok {
		return OrderResult{Outcome: OrderRejected}, nil
	}
	return m.enterAtPrice(types.Long, bar, price, types.LimitOrder, shares, name, SignalBuy)
}

// ShortAtLimit opens a short position at or above limit.
func (m *PositionsManager) ShortAtLimit(bar int, limit, shares float64, name string) (OrderResult, error) {
	if err := validatePrice(limit, ErrInvalidLimitPrice); err != nil {
		return OrderResult{}, err
	}
	if bar == m.bars.Size() {
		return m.enterAtPrice(types.Short, bar, limit, types.LimitOrder, shares, name, SignalShort)
	}
	if bar < 0 || bar >= m.bars.Size() {
		return OrderResult{}, ErrBarIndexOutOfRange
	}
	price, ok := fillUpward(m.bars.Open(bar), m.bars.High(bar), limit)
	if !ok {
		return OrderResult{Outcome: OrderRejected}, nil
	}
	return m.enterAtPrice(types.Short, bar, price, types.LimitOrder, shares, name, SignalShort)
}

func validatePrice(p float64, sentinel error) error {
	if p <= 0 || math.IsNaN(p) {
		return sentinel
	}
	return nil
}

// --- Exit orders ----------------------------------------------------------

func (m *PositionsManager) resolveExit(id PositionID, wantLong bool) (*Position, error) {
	pos, ok := m.container.ByID(id)
	if !ok {
		return nil, ErrPositionNotFound
	}
	if pos.Symbol() != m.bars.Symbol() {
		return nil, ErrClosingPositionOnDifferentSymbol
	}
	if pos.IsClosed() {
		return nil, ErrClosingAlreadyClosedPosition
	}
	if wantLong && !pos.IsLong() {
		return nil, ErrSellingShortPosition
	}
	if !wantLong && !pos.IsShort() {
		return nil, ErrCoveringLongPosition
	}
	return pos, nil
}

func (m *PositionsManager) exitAtPrice(pos *Position, bar int, price float64, orderType types.OrderType, name string, sigType SignalType) (OrderResult, error) {
	if bar < 0 || bar > m.bars.Size() {
		return OrderResult{}, ErrBarIndexOutOfRange
	}
	if bar == m.bars.Size() {
		return m.emitSignal(sigType, bar, pos.Shares(), price, pos, true)
	}
	if m.exitFilter != nil && !m.exitFilter(m.bars, bar, pos, name) {
		return OrderResult{Outcome: OrderRejected}, nil
	}
	slip := m.slippage(pos.Shares(), m.bars.Volume(bar), price)
	comm := m.commission(pos.Shares(), price)
	pos.close(bar, m.bars.Time(bar), price, orderType, slip, comm, name)
	m.container.noteClosed(pos.ID())
	return OrderResult{Outcome: OrderFilled, PositionID: pos.ID()}, nil
}

// SellAtMarket closes a long position at the bar's open.
func (m *PositionsManager) SellAtMarket(id PositionID, bar int, name string) (OrderResult, error) {
	pos, err := m.resolveExit(id, true)
	if err != nil {
		return OrderResult{}, err
	}
	price := 0.0
	if bar >= 0 && bar < m.bars.Size() {
		price = m.bars.Open(bar)
	}
	return m.exitAtPrice(pos, bar, price, types.MarketOrder, name, SignalSell)
}

// CoverAtMarket closes a short position at the bar's open.
func (m *PositionsManager) CoverAtMarket(id PositionID, bar int, name string) (OrderResult, error) {
	pos, err := m.resolveExit(id, false)
	if err != nil {
		return OrderResult{}, err
	}
	price := 0.0
	if bar >= 0 && bar < m.bars.Size() {
		price = m.bars.Open(bar)
	}
	return m.exitAtPrice(pos, bar, price, types.MarketOrder, name, SignalCover)
}

// SellAtClose closes a long position at the bar's close.
func (m *PositionsManager) SellAtClose(id PositionID, bar int, name string) (OrderResult, error) {
	pos, err := m.resolveExit(id, true)
	if err != nil {
		return OrderResult{}, err
	}
	price := 0.0
	if bar >= 0 && bar < m.bars.Size() {
		price = m.bars.Close(bar)
	}
	return m.exitAtPrice(pos, bar, price, types.CloseOrder, name, SignalSell)
}

// CoverAtClose closes a short position at the bar's close.
func (m *PositionsManager) CoverAtClose(id PositionID, bar int, name string) (OrderResult, error) {
	pos, err := m.resolveExit(id, false)
	if err != nil {
		return OrderResult{}, err
	}
	price := 0.0
	if bar >= 0 && bar < m.bars.Size() {
		price = m.bars.Close(bar)
	}
	return m.exitAtPrice(pos, bar, price, types.CloseOrder, name, SignalCover)
}

// SellAtStop closes a long position once price falls through stop.
func (m *PositionsManager) SellAtStop(id PositionID, bar int, stop float64, name string) (OrderResult, error) {
	if err := validatePrice(stop, ErrInvalidStopPrice); err != nil {
		return OrderResult{}, err
	}
	pos, err := m.resolveExit(id, true)
	if err != nil {
		return OrderResult{}, err
	}
	if bar == m.bars.Size() {
		return m.exitAtPrice(pos, bar, stop, types.StopOrder, name, SignalSell)
	}
	if bar < 0 || bar >= m.bars.Size() {
		return OrderResult{}, ErrBarIndexOutOfRange
	}
	price, ok := fillDownward(m.bars.Open(bar), m.bars.Low(bar), stop)
	if !ok {
		return OrderResult{Outcome: OrderRejected}, nil
	}
	return m.exitAtPrice(pos, bar, price, types.StopOrder, name, SignalSell)
}

// CoverAtStop closes a short position once price rises through stop.
func (m *PositionsManager) CoverAtStop(id PositionID, bar int, stop float64, name string) (OrderResult, error) {
	if err := validatePrice(stop, ErrInvalidStopPrice); err != nil {
		return OrderResult{}, err
	}
	pos, err := m.resolveExit(id, false)
	if err != nil {
		return OrderResult{}, err
	}
	if bar == m.bars.Size() {
		return m.exitAtPrice(pos, bar, stop, types.StopOrder, name, SignalCover)
	}
	if bar < 0 || bar >= m.bars.Size() {
		return OrderResult{}, ErrBarIndexOutOfRange
	}
	price, ok := fillUpward(m.bars.Open(bar), m.bars.High(bar), stop)
	if !ok {
		return OrderResult{Outcome: OrderRejected}, nil
	}
	return m.exitAtPrice(pos, bar, price, types.StopOrder, name, SignalCover)
}

// SellAtLimit closes a long position at or above limit.
func (m *PositionsManager) SellAtLimit(id PositionID, bar int, limit float64, name string) (OrderResult, error) {
	if err := validatePrice(limit, ErrInvalidLimitPrice); err != nil {
		return OrderResult{}, err
	}
	pos, err := m.resolveExit(id, true)
	if err != nil {
		return OrderResult{}, err
	}
	if bar == m.bars.Size() {
		return m.exitAtPrice(pos, bar, limit, types.LimitOrder, name, SignalSell)
	}
	if bar < 0 || bar >= m.bars.Size() {
		return OrderResult{}, ErrBarIndexOutOfRange
	}
	price, ok := fillUpward(m.bars.Open(bar), m.bars.High(bar), limit)
	if !ok {
		return OrderResult{Outcome: OrderRejected}, nil
	}
	return m.exitAtPrice(pos, bar, price, types.LimitOrder, name, SignalSell)
}

// CoverAtLimit closes a short position at or below limit.
func (m *PositionsManager) CoverAtLimit(id PositionID, bar int, limit float64, name string) (OrderResult, error) {
	if err := validatePrice(limit, ErrInvalidLimitPrice); err != nil {
		return OrderResult{}, err
	}
	pos, err := m.resolveExit(id, false)
	if err != nil {
		return OrderResult{}, err
	}
	if bar == m.bars.Size() {
		return m.exitAtPrice(pos, bar, limit, types.LimitOrder, name, SignalCover)
	}
	if bar < 0 || bar >= m.bars.Size() {
		return OrderResult{}, ErrBarIndexOutOfRange
	}
	price, ok := fillDownward(m.bars.Open(bar), m.bars.Low(bar), limit)
	if !ok {
		return OrderResult{Outcome: OrderRejected}, nil
	}
	return m.exitAtPrice(pos, bar, price, types.LimitOrder, name, SignalCover)
}

func (m *PositionsManager) emitSignal(t SignalType, bar int, shares, price float64, pos *Position, applySizing bool) (OrderResult, error) {
	if len(m.handlers) == 0 {
		return OrderResult{}, ErrNoSignalHandler
	}
	var tm DateTime
	if bar > 0 && bar-1 < m.bars.Size() {
		tm = m.bars.Time(bar - 1)
	}
	sig := Signal{
		Type:              t,
		Symbol:            m.bars.Symbol(),
		Time:              tm,
		Bar:               bar,
		Shares:            shares,
		Price:             price,
		Position:          pos,
		SystemName:        m.systemName,
		SystemID:          m.systemID,
		ApplySignalSizing: applySizing,
	}
	for _, h := range m.handlers {
		h.HandleSignal(sig)
	}
	return OrderResult{Outcome: OrderSignaled}, nil
}

// --- Bulk closers ----------------------------------------------------------

// CloseAllAtMarket closes every open position (both sides) at market.
func (m *PositionsManager) CloseAllAtMarket(bar int, name string) error {
	for _, pos := range m.container.Open() {
		var err error
		if pos.IsLong() {
			_, err = m.SellAtMarket(pos.ID(), bar, name)
		} else {
			_, err = m.CoverAtMarket(pos.ID(), bar, name)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// CloseAllLongAtLimit closes every open long position at or above limit.
func (m *PositionsManager) CloseAllLongAtLimit(bar int, limit float64, name string) error {
	for _, pos := range m.container.Open() {
		if !pos.IsLong() {
			continue
		}
		if _, err := m.SellAtLimit(pos.ID(), bar, limit, name); err != nil {
			return err
		}
	}
	return nil
}

// CloseAllShortAtLimit closes every open short position at or below limit.
func (m *PositionsManager) CloseAllShortAtLimit(bar int, limit float64, name string) error {
	for _, pos := range m.container.Open() {
		if pos.IsShort() {
			if _, err := m.CoverAtLimit(pos.ID(), bar, limit, name); err != nil {
				return err
			}
		}
	}
	return nil
}

// CloseFirstLongAtMarketByShares closes whole open long positions, in open
// (entry) order, until the cumulative closed share count meets or exceeds
// shares. Positions are never partially split (§4.1).
func (m *PositionsManager) CloseFirstLongAtMarketByShares(shares float64, bar int, name string) error {
	return m.closeFirstByShares(shares, bar, name, true)
}

// CloseFirstShortAtMarketByShares mirrors CloseFirstLongAtMarketByShares for
// short positions.
func (m *PositionsManager) CloseFirstShortAtMarketByShares(shares float64, bar int, name string) error {
	return m.closeFirstByShares(shares, bar, name, false)
}

func (m *PositionsManager) closeFirstByShares(target float64, bar int, name string, long bool) error {
	var cum float64
	for _, pos := range m.container.Open() {
		if pos.IsLong() != long {
			continue
		}
		if cum >= target {
			break
		}
		var err error
		if long {
			_, err = m.SellAtMarket(pos.ID(), bar, name)
		} else {
			_, err = m.CoverAtMarket(pos.ID(), bar, name)
		}
		if err != nil {
			return err
		}
		cum += pos.Shares()
	}
	return nil
}

// --- Auto-stops -------------------------------------------------------------

// ApplyAutoStops evaluates every enabled auto-stop category against every
// open position at bar, in the fixed order time -> stop-loss -> trailing ->
// break-even -> reverse-break-even -> profit-target. The first category
// that triggers an exit for a given position on this bar wins; later
// categories are skipped for that position (§4.1).
func (m *PositionsManager) ApplyAutoStops(bar int) error {
	if bar < 0 || bar >= m.bars.Size() {
		return ErrBarIndexOutOfRange
	}
	open := m.bars.Open(bar)
	high := m.bars.High(bar)
	low := m.bars.Low(bar)

	for _, pos := range m.container.Open() {
		exited, err := m.applyTimeStop(pos, bar)
		if err != nil {
			return err
		}
		if exited {
			continue
		}
		exited, err = m.applyStopLoss(pos, bar, high, low)
		if err != nil {
			return err
		}
		if exited {
			continue
		}
		exited, err = m.applyTrailingStop(pos, bar, high, low)
		if err != nil {
			return err
		}
		if exited {
			continue
		}
		exited, err = m.applyBreakEvenStop(pos, bar, high, low)
		if err != nil {
			return err
		}
		if exited {
			continue
		}
		exited, err = m.applyReverseBreakEvenStop(pos, bar, high, low)
		if err != nil {
			return err
		}
		if exited {
			continue
		}
		if _, err := m.applyProfitTarget(pos, bar, high, low); err != nil {
			return err
		}
	}
	_ = open
	return nil
}

func (m *PositionsManager) applyTimeStop(pos *Position, bar int) (bool, error) {
	if !m.autoStops.timeEnabled {
		return false, nil
	}
	if bar-pos.EntryBar() < m.autoStops.timeBars {
		return false, nil
	}
	var res OrderResult
	var err error
	switch {
	case pos.IsLong() && m.autoStops.timeUseClose:
		res, err = m.SellAtClose(pos.ID(), bar, "time_stop")
	case pos.IsLong():
		res, err = m.SellAtMarket(pos.ID(), bar, "time_stop")
	case m.autoStops.timeUseClose:
		res, err = m.CoverAtClose(pos.ID(), bar, "time_stop")
	default:
		res, err = m.CoverAtMarket(pos.ID(), bar, "time_stop")
	}
	if err != nil {
		return false, err
	}
	return res.Outcome == OrderFilled, nil
}

func (m *PositionsManager) applyStopLoss(pos *Position, bar int, high, low float64) (bool, error) {
	if !m.autoStops.stopLossEnabled {
		return false, nil
	}
	entry := pos.EntryPrice()
	if pos.IsLong() {
		stop := entry * (1 - m.autoStops.stopLossPct/100)
		if low > stop {
			return false, nil
		}
		res, err := m.SellAtStop(pos.ID(), bar, stop, "stop_loss")
		return err == nil && res.Outcome == OrderFilled, err
	}
	stop := entry * (1 + m.autoStops.stopLossPct/100)
	if high < stop {
		return false, nil
	}
	res, err := m.CoverAtStop(pos.ID(), bar, stop, "stop_loss")
	return err == nil && res.Outcome == OrderFilled, err
}

func (m *PositionsManager) applyTrailingStop(pos *Position, bar int, high, low float64) (bool, error) {
	if !m.autoStops.trailingEnabled {
		return false, nil
	}
	entry := pos.EntryPrice()
	if pos.IsLong() {
		profitPct := (high - entry) / entry * 100
		if !pos.TrailingStopActive() {
			if profitPct < m.autoStops.trailingTriggerPct {
				return false, nil
			}
			pos.ActivateTrailingStop(high * (1 - m.autoStops.trailingLevelPct/100))
		} else {
			candidate := high * (1 - m.autoStops.trailingLevelPct/100)
			if candidate > pos.TrailingStopLevel() {
				pos.ActivateTrailingStop(candidate)
			}
		}
		if low > pos.TrailingStopLevel() {
			return false, nil
		}
		res, err := m.SellAtStop(pos.ID(), bar, pos.TrailingStopLevel(), "trailing_stop")
		return err == nil && res.Outcome == OrderFilled, err
	}

	profitPct := (entry - low) / entry * 100
	if !pos.TrailingStopActive() {
		if profitPct < m.autoStops.trailingTriggerPct {
			return false, nil
		}
		pos.ActivateTrailingStop(low * (1 + m.autoStops.trailingLevelPct/100))
	} else {
		candidate := low * (1 + m.autoStops.trailingLevelPct/100)
		if candidate < pos.TrailingStopLevel() {
			pos.ActivateTrailingStop(candidate)
		}
	}
	if high < pos.TrailingStopLevel() {
		return false, nil
	}
	res, err := m.CoverAtStop(pos.ID(), bar, pos.TrailingStopLevel(), "trailing_stop")
	return err == nil && res.Outcome == OrderFilled, err
}

func (m *PositionsManager) applyBreakEvenStop(pos *Position, bar int, high, low float64) (bool, error) {
	if !m.autoStops.breakEvenEnabled {
		return false, nil
	}
	entry := pos.EntryPrice()
	if pos.IsLong() {
		if !pos.BreakEvenStopActive() {
			if (high-entry)/entry*100 < m.autoStops.breakEvenTriggerPct {
				return false, nil
			}
			pos.ActivateBreakEvenStop()
		}
		if low > entry {
			return false, nil
		}
		res, err := m.SellAtStop(pos.ID(), bar, entry, "break_even_stop")
		return err == nil && res.Outcome == OrderFilled, err
	}
	if !pos.BreakEvenStopActive() {
		if (entry-low)/entry*100 < m.autoStops.breakEvenTriggerPct {
			return false, nil
		}
		pos.ActivateBreakEvenStop()
	}
	if high < entry {
		return false, nil
	}
	res, err := m.CoverAtStop(pos.ID(), bar, entry, "break_even_stop")
	return err == nil && res.Outcome == OrderFilled, err
}

func (m *PositionsManager) applyReverseBreakEvenStop(pos *Position, bar int, high, low float64) (bool, error) {
	if !m.autoStops.reverseBreakEvenEnabled {
		return false, nil
	}
	entry := pos.EntryPrice()
	if pos.IsLong() {
		if !pos.ReverseBreakEvenStopActive() {
			if (entry-low)/entry*100 < m.autoStops.reverseBreakEvenTriggerPct {
				return false, nil
			}
			pos.ActivateReverseBreakEvenStop()
		}
		if high < entry {
			return false, nil
		}
		res, err := m.SellAtLimit(pos.ID(), bar, entry, "reverse_break_even_stop")
		return err == nil && res.Outcome == OrderFilled, err
	}
	if !pos.ReverseBreakEvenStopActive() {
		if (high-entry)/entry*100 < m.autoStops.reverseBreakEvenTriggerPct {
			return false, nil
		}
		pos.ActivateReverseBreakEvenStop()
	}
	if low > entry {
		return false, nil
	}
	res, err := m.CoverAtLimit(pos.ID(), bar, entry, "reverse_break_even_stop")
	return err == nil && res.Outcome == OrderFilled, err
}

func (m *PositionsManager) applyProfitTarget(pos *Position, bar int, high, low float64) (bool, error) {
	if !m.autoStops.profitTargetEnabled {
		return false, nil
	}
	entry := pos.EntryPrice()
	if pos.IsLong() {
		target := entry * (1 + m.autoStops.profitTargetPct/100)
		if high < target {
			return false, nil
		}
		res, err := m.SellAtLimit(pos.ID(), bar, target, "profit_target")
		return err == nil && res.Outcome == OrderFilled, err
	}
	target := entry * (1 - m.autoStops.profitTargetPct/100)
	if low > target {
		return false, nil
	}
	res, err := m.CoverAtLimit(pos.ID(), bar, target, "profit_target")
	return err == nil && res.Outcome == OrderFilled, err
}
