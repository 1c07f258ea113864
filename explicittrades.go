package tradesim

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/evdnx/tradesim/types"
)

// ExplicitTrade is an externally scripted directive applied by a
// PositionsManager at the matching bar as if a strategy had issued the
// order, bypassing the sizing pass entirely (§3, §8 scenario S6).
type ExplicitTrade struct {
	ID     string
	Symbol string
	Time   DateTime
	Action types.ExplicitTradeAction
	Type   types.ExplicitTradeType
	Shares float64
	Price  float64
}

// ExplicitTrades groups directives by (symbol, time) for efficient lookup
// during a bar-by-bar run.
type ExplicitTrades struct {
	bySymbolTime map[string][]ExplicitTrade
}

// NewExplicitTrades builds an empty directive set.
func NewExplicitTrades() *ExplicitTrades {
	return &ExplicitTrades{bySymbolTime: make(map[string][]ExplicitTrade)}
}

func key(symbol string, t DateTime) string {
	return symbol + "|" + t.String()
}

// Add indexes a directive, assigning it a random id if it has none.
func (e *ExplicitTrades) Add(trade ExplicitTrade) {
	if trade.ID == "" {
		trade.ID = uuid.NewString()
	}
	k := key(trade.Symbol, trade.Time)
	e.bySymbolTime[k] = append(e.bySymbolTime[k], trade)
}

// For returns the directives, if any, scheduled for symbol at time t.
func (e *ExplicitTrades) For(symbol string, t DateTime) []ExplicitTrade {
	return e.bySymbolTime[key(symbol, t)]
}

// Apply executes every directive scheduled for the manager's bound symbol
// at bar, in the order they were added. BUY/SHORT open a position at the
// bar: MARKET fills at the open, CLOSE at the close, LIMIT/STOP at the
// directive's price with no trigger check; these positions bypass the
// sizing pass. A PRICE directive stops the walk with
// ErrUnsupportedExplicitTradeType. SELL/COVER close the first open position
// on that side at market (the directive's share count is not used);
// SELL_ALL/COVER_ALL/EXIT_ALL close every matching open position at market.
func (e *ExplicitTrades) Apply(m *PositionsManager, bar int) error {
	if bar < 0 || bar >= m.bars.Size() {
		return ErrBarIndexOutOfRange
	}
	trades := e.For(m.bars.Symbol(), m.bars.Time(bar))
	for _, tr := range trades {
		if tr.Type == types.TypePrice {
			return ErrUnsupportedExplicitTradeType
		}
		if err := applyOne(m, bar, tr); err != nil {
			return err
		}
	}
	return nil
}

func applyOne(m *PositionsManager, bar int, tr ExplicitTrade) error {
	name := "explicit:" + tr.ID
	switch tr.Action {
	case types.ActionBuy, types.ActionShort:
		side, sigType := types.Long, SignalBuy
		if tr.Action == types.ActionShort {
			side, sigType = types.Short, SignalShort
		}
		orderType := explicitOrderType(tr.Type)
		price := tr.Price
		switch orderType {
		case types.MarketOrder:
			price = m.bars.Open(bar)
		case types.CloseOrder:
			price = m.bars.Close(bar)
		}
		res, err := m.enterAtPrice(side, bar, price, orderType, tr.Shares, name, sigType)
		if err == nil && res.Outcome == OrderFilled {
			if pos, ok := m.container.ByID(res.PositionID); ok {
				pos.applySizing = false
			}
		}
		return err
	case types.ActionSell:
		return applyExitToFirst(m, bar, name, tr.Shares, true)
	case types.ActionCover:
		return applyExitToFirst(m, bar, name, tr.Shares, false)
	case types.ActionSellAll:
		return m.closeAllSideAtMarket(bar, name, true)
	case types.ActionCoverAll:
		return m.closeAllSideAtMarket(bar, name, false)
	case types.ActionExitAll:
		return m.CloseAllAtMarket(bar, name)
	default:
		return fmt.Errorf("tradesim: unknown explicit trade action %q", tr.Action)
	}
}

func explicitOrderType(t types.ExplicitTradeType) types.OrderType {
	switch t {
	case types.TypeClose:
		return types.CloseOrder
	case types.TypeLimit:
		return types.LimitOrder
	case types.TypeStop:
		return types.StopOrder
	default:
		return types.MarketOrder
	}
}

func applyExitToFirst(m *PositionsManager, bar int, name string, shares float64, long bool) error {
	for _, pos := range m.container.Open() {
		if pos.IsLong() != long {
			continue
		}
		var err error
		if long {
			_, err = m.SellAtMarket(pos.ID(), bar, name)
		} else {
			_, err = m.CoverAtMarket(pos.ID(), bar, name)
		}
		return err
	}
	return ErrPositionNotFound
}

func (m *PositionsManager) closeAllSideAtMarket(bar int, name string, long bool) error {
	for _, pos := range m.container.Open() {
		if pos.IsLong() != long {
			continue
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
	}
	return nil
}

// ParseExplicitTradesCSV reads directives in the "symbol, iso-datetime,
// action, type, shares, price" column order (§8's scripting format).
// Lines that are blank or start with # or // are treated as comments.
func ParseExplicitTradesCSV(r io.Reader) (*ExplicitTrades, error) {
	out := NewExplicitTrades()
	reader := csv.NewReader(stripComments(r))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("tradesim: parsing explicit trades csv: %w", err)
	}
	for _, rec := range records {
		if len(rec) == 0 || strings.TrimSpace(strings.Join(rec, "")) == "" {
			continue
		}
		if len(rec) < 6 {
			return nil, fmt.Errorf("tradesim: explicit trade csv row has %d fields, want 6", len(rec))
		}
		t, err := ParseDateTime(strings.TrimSpace(rec[1]))
		if err != nil {
			return nil, err
		}
		shares, err := strconv.ParseFloat(strings.TrimSpace(rec[4]), 64)
		if err != nil {
			return nil, fmt.Errorf("tradesim: explicit trade shares: %w", err)
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(rec[5]), 64)
		if err != nil {
			return nil, fmt.Errorf("tradesim: explicit trade price: %w", err)
		}
		out.Add(ExplicitTrade{
			Symbol: strings.TrimSpace(rec[0]),
			Time:   t,
			Action: types.ExplicitTradeAction(strings.TrimSpace(rec[2])),
			Type:   types.ExplicitTradeType(strings.TrimSpace(rec[3])),
			Shares: shares,
			Price:  price,
		})
	}
	return out, nil
}

// stripComments filters out lines beginning with # or // (after leading
// whitespace) before handing the stream to the CSV reader, which has no
// native comment syntax for "//" .
func stripComments(r io.Reader) io.Reader {
	scanner := bufio.NewScanner(r)
	var kept strings.Builder
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		kept.WriteString(scanner.Text())
		kept.WriteByte('\n')
	}
	return strings.NewReader(kept.String())
}

// jsonExplicitTrade mirrors ExplicitTrade's wire shape for JSON directive
// files (§6: "JSON: object per directive with the same fields").
type jsonExplicitTrade struct {
	ID     string  `json:"id,omitempty"`
	Symbol string  `json:"symbol"`
	Time   string  `json:"time"`
	Action string  `json:"action"`
	Type   string  `json:"type"`
	Shares float64 `json:"shares"`
	Price  float64 `json:"price"`
}

// ParseExplicitTradesJSON reads a JSON array of directive objects.
func ParseExplicitTradesJSON(r io.Reader) (*ExplicitTrades, error) {
	var raw []jsonExplicitTrade
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("tradesim: parsing explicit trades json: %w", err)
	}
	out := NewExplicitTrades()
	for _, rt := range raw {
		t, err := ParseDateTime(rt.Time)
		if err != nil {
			return nil, err
		}
		out.Add(ExplicitTrade{
			ID:     rt.ID,
			Symbol: rt.Symbol,
			Time:   t,
			Action: types.ExplicitTradeAction(rt.Action),
			Type:   types.ExplicitTradeType(rt.Type),
			Shares: rt.Shares,
			Price:  rt.Price,
		})
	}
	return out, nil
}
