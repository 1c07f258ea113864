// Package equity implements the post-simulation equity curve and position
// sizing pass (§4.4): positions from every per-symbol container are merged
// into one time-ordered event stream and replayed day by day to produce
// daily cash/total equity for the book as a whole and for its long and
// short sides, while (optionally) resizing or disabling positions along
// the way.
package equity

import (
	"sort"

	"github.com/evdnx/tradesim"
	"github.com/evdnx/tradesim/config"
	"github.com/evdnx/tradesim/types"
)

// EventKind distinguishes a position's entry from its exit in the merged
// event stream.
type EventKind int

const (
	EventEntry EventKind = iota
	EventExit
)

// Event is one entry or exit, timestamped for the merge sort.
type Event struct {
	Time   tradesim.DateTime
	Kind   EventKind
	Pos    *tradesim.Position
	Symbol string
}

// BuildEvents flattens every symbol's container into one unordered event
// slice: one Entry event per position, and one Exit event per closed
// position, then sorts it per SortEvents.
func BuildEvents(containers map[string]*tradesim.PositionsContainer) []Event {
	var events []Event
	for symbol, c := range containers {
		for _, pos := range c.All(nil) {
			events = append(events, Event{Time: pos.EntryTime(), Kind: EventEntry, Pos: pos, Symbol: symbol})
			if pos.IsClosed() {
				events = append(events, Event{Time: pos.CloseTime(), Kind: EventExit, Pos: pos, Symbol: symbol})
			}
		}
	}
	SortEvents(events)
	return events
}

// SortEvents orders events by (time, entry-before-exit for the same
// position, order-type priority, position id) as required by §4.4.
func SortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Time.Equal(b.Time) {
			return a.Time.Before(b.Time)
		}
		if a.Pos.ID() == b.Pos.ID() && a.Kind != b.Kind {
			return a.Kind == EventEntry
		}
		at, bt := orderTypeFor(a), orderTypeFor(b)
		if at != bt {
			return types.OrderTypeLess(at, bt)
		}
		return a.Pos.ID() < b.Pos.ID()
	})
}

func orderTypeFor(e Event) types.OrderType {
	if e.Kind == EventEntry {
		return e.Pos.EntryOrderType()
	}
	return e.Pos.CloseOrderType()
}

// Point is one day's {cash, total} pair for a book side.
type Point struct {
	Cash  float64
	Total float64
}

// Curve holds the daily equity arrays for the whole book and each side,
// plus the dates they're indexed by (§4.4).
type Curve struct {
	Days  []tradesim.DateTime
	All   []Point
	Long  []Point
	Short []Point
}

// EndingEquity returns the last day's total for the named side ("all",
// "long", "short").
func (c *Curve) EndingEquity(side string) float64 {
	pts := c.sideSlice(side)
	if len(pts) == 0 {
		return 0
	}
	return pts[len(pts)-1].Total
}

// ExposurePct returns (1 - sum(cash)/sum(total)) * 100 for the named side:
// the fraction of the book's value that was, on average, held in
// positions rather than cash (§4.4).
func (c *Curve) ExposurePct(side string) float64 {
	pts := c.sideSlice(side)
	var cashSum, totalSum float64
	for _, p := range pts {
		cashSum += p.Cash
		totalSum += p.Total
	}
	if totalSum == 0 {
		return 0
	}
	return (1 - cashSum/totalSum) * 100
}

func (c *Curve) sideSlice(side string) []Point {
	switch side {
	case "long":
		return c.Long
	case "short":
		return c.Short
	default:
		return c.All
	}
}

func (c *Curve) sidePoint(side string, d int) *Point {
	switch side {
	case "long":
		return &c.Long[d]
	case "short":
		return &c.Short[d]
	default:
		return &c.All[d]
	}
}

func sideOf(pos *tradesim.Position) string {
	if pos.IsLong() {
		return "long"
	}
	return "short"
}

// symbolMarks precomputes, for one symbol, a synchronizer from the master
// day calendar onto that symbol's bar calendar, so mark-to-market lookups
// for any open position on that symbol resolve to "the close as of this
// day" in O(1) (reusing the Series/Synchronizer machinery bar data already
// uses for cross-symbol alignment).
type symbolMarks struct {
	bars *tradesim.Bars
	sync *tradesim.Synchronizer
}

func buildSymbolMarks(days []tradesim.DateTime, barsBySymbol map[string]*tradesim.Bars) map[string]*symbolMarks {
	out := make(map[string]*symbolMarks, len(barsBySymbol))
	for symbol, bars := range barsBySymbol {
		times := make([]tradesim.DateTime, bars.Size())
		for i := 0; i < bars.Size(); i++ {
			times[i] = bars.Time(i).Date()
		}
		out[symbol] = &symbolMarks{bars: bars, sync: tradesim.NewSynchronizer(days, times)}
	}
	return out
}

func (m *symbolMarks) closeAt(dayIdx int) (float64, bool) {
	if m == nil {
		return 0, false
	}
	idx := m.sync.Index(dayIdx)
	if idx < 0 {
		return 0, false
	}
	return m.bars.Close(idx), true
}

// volumeBeforeEntry returns the volume of the bar one index before entryBarIdx, or
// of entryBarIdx itself if there is no prior bar (§4.4's pct_volume limit:
// "volume(entry_bar-1 or 0)").
func (m *symbolMarks) volumeBeforeEntry(entryBarIdx int) float64 {
	if m == nil {
		return 0
	}
	i := entryBarIdx - 1
	if i < 0 {
		i = 0
	}
	if i >= m.bars.Size() {
		return 0
	}
	return m.bars.Volume(i)
}

type openTrack struct {
	symbol   string
	side     string
	pos      *tradesim.Position
	lastMark float64
}

// Run replays the merged event stream across [from, to] (inclusive,
// one-calendar-day resolution) and returns the resulting Curve. barsBySymbol
// supplies the bar data backing mark-to-market and sizing lookups for every
// symbol referenced by containers. sizing controls the entry-time sizing
// pass; positions are mutated in place (Position.SetShares / Disable).
func Run(containers map[string]*tradesim.PositionsContainer, barsBySymbol map[string]*tradesim.Bars, sizing config.PositionSizingParams, from, to tradesim.DateTime) (*Curve, error) {
	from, to = from.Date(), to.Date()
	dayCount := int(tradesim.DaysBetween(from, to)) + 1
	if dayCount < 1 {
		dayCount = 1
	}
	days := make([]tradesim.DateTime, dayCount)
	for i := range days {
		days[i] = from.Add(tradesim.NewDateDuration(int64(i)))
	}
	marks := buildSymbolMarks(days, barsBySymbol)

	curve := &Curve{Days: days, All: make([]Point, dayCount), Long: make([]Point, dayCount), Short: make([]Point, dayCount)}
	seed := Point{Cash: sizing.InitialCapital, Total: sizing.InitialCapital}
	curve.All[0], curve.Long[0], curve.Short[0] = seed, seed, seed

	events := BuildEvents(containers)
	dayIndexOf := func(t tradesim.DateTime) int { return int(tradesim.DaysBetween(from, t.Date())) }

	eventsByDay := make(map[int][]Event, len(events))
	for _, ev := range events {
		d := dayIndexOf(ev.Time)
		if d < 0 || d >= dayCount {
			continue
		}
		eventsByDay[d] = append(eventsByDay[d], ev)
	}

	open := make(map[tradesim.PositionID]*openTrack)
	var openCount int

	for d := 0; d < dayCount; d++ {
		if d > 0 {
			// each day starts from the prior day's equity
			curve.All[d], curve.Long[d], curve.Short[d] = curve.All[d-1], curve.Long[d-1], curve.Short[d-1]
		}
		touched := make(map[tradesim.PositionID]bool)
		for _, ev := range eventsByDay[d] {
			switch ev.Kind {
			case EventEntry:
				touched[ev.Pos.ID()] = true
				tr := applyEntry(curve, d, ev, marks[ev.Symbol], sizing, &openCount)
				if tr != nil {
					open[ev.Pos.ID()] = tr
				}
			case EventExit:
				touched[ev.Pos.ID()] = true
				if ev.Pos.IsDisabled() {
					// sizing rejected this position at entry; it never
					// entered the book and its exit contributes nothing.
					continue
				}
				applyExit(curve, d, ev, open, &openCount)
				delete(open, ev.Pos.ID())
			}
		}
		for id, tr := range open {
			if touched[id] {
				continue
			}
			closeNow, ok := marks[tr.symbol].closeAt(d)
			if !ok {
				continue
			}
			tr.lastMark = closeNow
		}

		// Total is derived, never accumulated: total_all(d) = cash_all(d) +
		// market value of every still-open position (§8's invariant). Cash
		// above already carries the full slippage/commission-adjusted
		// entry/close cost, so re-deriving Total from Cash plus the book of
		// open positions' MarketValueAt keeps the two in lockstep without
		// having to separately track friction in a running Total delta.
		var allMV, longMV, shortMV float64
		for _, tr := range open {
			mv := tr.pos.MarketValueAt(tr.lastMark)
			allMV += mv
			if tr.side == "long" {
				longMV += mv
			} else {
				shortMV += mv
			}
		}
		curve.All[d].Total = curve.All[d].Cash + allMV
		curve.Long[d].Total = curve.Long[d].Cash + longMV
		curve.Short[d].Total = curve.Short[d].Cash + shortMV
	}

	return curve, nil
}

func applyEntry(curve *Curve, d int, ev Event, marks *symbolMarks, sizing config.PositionSizingParams, openCount *int) *openTrack {
	pos := ev.Pos
	if pos.ApplyPositionSizing() {
		ok := sizePosition(pos, curve, d, marks, sizing, *openCount)
		if !ok {
			return nil
		}
	}
	entryCost := pos.EntryCost()
	all := curve.sidePoint("all", d)
	side := curve.sidePoint(sideOf(pos), d)
	all.Cash -= entryCost
	side.Cash -= entryCost
	*openCount++

	if barClose, ok := marks.closeAt(d); ok {
		return &openTrack{symbol: ev.Symbol, side: sideOf(pos), pos: pos, lastMark: barClose}
	}
	return &openTrack{symbol: ev.Symbol, side: sideOf(pos), pos: pos, lastMark: pos.EntryPrice()}
}

func applyExit(curve *Curve, d int, ev Event, open map[tradesim.PositionID]*openTrack, openCount *int) {
	pos := ev.Pos

	all := curve.sidePoint("all", d)
	side := curve.sidePoint(sideOf(pos), d)

	var cashDelta float64
	if pos.IsLong() {
		cashDelta = pos.CloseIncome()
	} else {
		cashDelta = pos.EntryCost() + pos.Gain()
	}
	all.Cash += cashDelta
	side.Cash += cashDelta

	*openCount--
}
