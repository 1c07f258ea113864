// Package scheduler runs one or more strategy instances over a symbol
// iterator in parallel, with cooperative cancellation and progress
// reporting (§4.2).
package scheduler

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/evdnx/tradesim"
	"github.com/evdnx/tradesim/config"
	"github.com/evdnx/tradesim/logger"
	"github.com/evdnx/tradesim/runtimestats"
	"github.com/evdnx/tradesim/strategy"
)

// SliceSymbolsIterator is a thread-safe strategy.SymbolsIterator backed by
// a fixed slice; symbols are never replayed within a pass (§4.2).
type SliceSymbolsIterator struct {
	mu     sync.Mutex
	all    []string
	cursor int
}

// NewSliceSymbolsIterator builds an iterator over symbols, in order.
func NewSliceSymbolsIterator(symbols []string) *SliceSymbolsIterator {
	cp := append([]string(nil), symbols...)
	return &SliceSymbolsIterator{all: cp}
}

// Next returns the next symbol, or ok=false once the slice is exhausted.
func (it *SliceSymbolsIterator) Next() (string, bool) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.cursor >= len(it.all) {
		return "", false
	}
	s := it.all[it.cursor]
	it.cursor++
	return s, true
}

// Reset rewinds the cursor to the start, for the next re-run pass.
func (it *SliceSymbolsIterator) Reset() {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.cursor = 0
}

// CachingDataProvider wraps a strategy.DataProvider with a
// singleflight-deduplicated in-memory cache, so concurrent workers (or a
// strategy reaching across symbols via RuntimeContext.Data) asking for the
// same symbol within a pass only trigger one underlying fetch (§6: "same
// (symbol, range) returns identical bars within a session").
type CachingDataProvider struct {
	inner strategy.DataProvider
	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]*tradesim.Bars
}

// NewCachingDataProvider wraps inner with a per-session cache.
func NewCachingDataProvider(inner strategy.DataProvider) *CachingDataProvider {
	return &CachingDataProvider{inner: inner, cache: make(map[string]*tradesim.Bars)}
}

// GetData implements strategy.DataProvider.
func (c *CachingDataProvider) GetData(symbol string) (*tradesim.Bars, error) {
	c.mu.RLock()
	if b, ok := c.cache[symbol]; ok {
		c.mu.RUnlock()
		return b, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do(symbol, func() (any, error) {
		bars, err := c.inner.GetData(symbol)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.cache[symbol] = bars
		c.mu.Unlock()
		return bars, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*tradesim.Bars), nil
}

// StrategyFactory builds a fresh strategy instance. The scheduler calls it
// once to obtain the master instance that gates the re-run loop via
// Begin/Again, and once more per symbol per pass (matching §4.2's
// "instantiate (or clone) the strategy" per-symbol binding).
type StrategyFactory func() strategy.Strategy

// PositionsSink records each symbol's resulting positions container,
// keyed by symbol. Safe for concurrent use by scheduler workers.
type PositionsSink struct {
	mu         sync.Mutex
	containers map[string]*tradesim.PositionsContainer
}

// NewPositionsSink returns an empty sink.
func NewPositionsSink() *PositionsSink {
	return &PositionsSink{containers: make(map[string]*tradesim.PositionsContainer)}
}

func (s *PositionsSink) put(symbol string, c *tradesim.PositionsContainer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.containers[symbol] = c
}

// All returns a snapshot copy of every symbol's container.
func (s *PositionsSink) All() map[string]*tradesim.PositionsContainer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*tradesim.PositionsContainer, len(s.containers))
	for k, v := range s.containers {
		out[k] = v
	}
	return out
}

// Scheduler drives StrategyFactory instances over Symbols using a fixed
// worker pool, reporting progress through a RuntimeStats (§4.2).
type Scheduler struct {
	Symbols  []string
	Provider strategy.DataProvider
	Factory  StrategyFactory
	Params   config.RuntimeParams
	Trades   *tradesim.ExplicitTrades
	Log      logger.Logger

	SlippageFunc   tradesim.SlippageFunc
	CommissionFunc tradesim.CommissionFunc
	ChartFactory   func(symbol string) strategy.ChartSink
}

// New builds a Scheduler. Log may be nil, substituting a no-op logger.
func New(symbols []string, provider strategy.DataProvider, factory StrategyFactory, params config.RuntimeParams) *Scheduler {
	return &Scheduler{
		Symbols:  symbols,
		Provider: provider,
		Factory:  factory,
		Params:   params,
		Log:      logger.NopLogger{},
	}
}

// Run executes the scheduler to completion: one or more passes over
// Symbols, each pass fanning out across Params.Threads workers, until the
// master strategy's Again returns false or ctx is canceled. The returned
// RuntimeStats is created by Run itself, so callers cannot reach its
// RequestCancel while Run is in progress.
func (s *Scheduler) Run(ctx context.Context) (*PositionsSink, *runtimestats.RuntimeStats, error) {
	if s.Log == nil {
		s.Log = logger.NopLogger{}
	}
	stats := runtimestats.New(len(s.Symbols))
	stats.Start()
	sink := NewPositionsSink()

	master := s.Factory()
	iterator := NewSliceSymbolsIterator(s.Symbols)

	for {
		stats.IncRun()
		if !master.Begin() {
			break
		}
		iterator.Reset()

		if err := s.runPass(ctx, iterator, sink, stats); err != nil {
			stats.Finish()
			return sink, stats, err
		}
		if stats.CancelRequested() || ctx.Err() != nil {
			break
		}
		if !master.Again() {
			break
		}
	}
	stats.Finish()
	return sink, stats, nil
}

func (s *Scheduler) runPass(ctx context.Context, iterator *SliceSymbolsIterator, sink *PositionsSink, stats *runtimestats.RuntimeStats) error {
	threads := s.Params.Threads
	if threads <= 0 {
		threads = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < threads; i++ {
		g.Go(func() error {
			for {
				if stats.CancelRequested() {
					return nil
				}
				select {
				case <-gctx.Done():
					return nil
				default:
				}
				symbol, ok := iterator.Next()
				if !ok {
					return nil
				}
				s.runSymbol(symbol, sink, stats)
			}
		})
	}
	return g.Wait()
}

func (s *Scheduler) runSymbol(symbol string, sink *PositionsSink, stats *runtimestats.RuntimeStats) {
	stats.SetCurrentSymbol(symbol)
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(strategy.ExitSignal); ok {
				stats.IncProcessedSymbol()
				return
			}
			s.Log.Error("symbol_panic", logger.String("symbol", symbol), logger.Any("recovered", r))
			stats.IncErrorSymbol(symbol)
		}
	}()

	bars, err := s.Provider.GetData(symbol)
	if err != nil || bars == nil || bars.Size() == 0 {
		s.Log.Warn("symbol_no_data", logger.String("symbol", symbol))
		stats.IncErrorSymbol(symbol)
		return
	}
	stats.AddBars(symbol, int64(bars.Size()))

	container := tradesim.NewPositionsContainer()
	mgr := tradesim.NewPositionsManager(bars, container, s.SlippageFunc, s.CommissionFunc, symbol, s.Log)

	if s.Trades != nil {
		s.applyExplicitTrades(mgr, bars, symbol)
	}

	var chart strategy.ChartSink
	if s.ChartFactory != nil {
		chart = s.ChartFactory(symbol)
	}
	runtimeCtx := strategy.NewRuntimeContext(bars, mgr, chart, s.Trades, NewSliceSymbolsIterator(s.Symbols), s.Provider, s.Params)

	strat := s.Factory()
	if !strat.Init(runtimeCtx, symbol) {
		stats.IncProcessedSymbol()
		return
	}
	func() {
		defer strat.Cleanup(runtimeCtx)
		strat.Run(runtimeCtx)
	}()

	sink.put(symbol, container)
	stats.IncProcessedSymbol()
	stats.AddRawTrades(int64(container.Count()))
}

// applyExplicitTrades walks every bar of symbol's data and applies any
// scripted directive scheduled for it, exactly as §3 requires ("applied by
// the manager at the matching bar as if the strategy had issued the
// order"). This runs independently of what the strategy's Run does, so a
// strategy that issues no orders at all still produces the positions an
// explicit-trades file describes (§8 scenario S6).
func (s *Scheduler) applyExplicitTrades(mgr *tradesim.PositionsManager, bars *tradesim.Bars, symbol string) {
	for bar := 0; bar < bars.Size(); bar++ {
		if err := s.Trades.Apply(mgr, bar); err != nil {
			s.Log.Warn("explicit_trade_apply_failed", logger.String("symbol", symbol), logger.Int("bar", bar), logger.Err(err))
		}
	}
}
