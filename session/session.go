// Package session wires the scheduler, the equity/sizing pass and the
// statistics calculator into the one entry point a caller actually runs: go
// from symbols and a data provider to a finished Result (§4, §6).
package session

import (
	"context"
	"fmt"

	"github.com/evdnx/tradesim"
	"github.com/evdnx/tradesim/config"
	"github.com/evdnx/tradesim/equity"
	"github.com/evdnx/tradesim/logger"
	"github.com/evdnx/tradesim/runtimestats"
	"github.com/evdnx/tradesim/scheduler"
	"github.com/evdnx/tradesim/stats"
	"github.com/evdnx/tradesim/strategy"
)

// Session bundles everything a scheduler run needs plus the post-run
// passes gated by Params' feature toggles.
type Session struct {
	Symbols  []string
	Provider strategy.DataProvider
	Factory  scheduler.StrategyFactory
	Params   config.RuntimeParams
	Trades   *tradesim.ExplicitTrades
	Log      logger.Logger

	SlippageFunc   tradesim.SlippageFunc
	CommissionFunc tradesim.CommissionFunc
	ChartFactory   func(symbol string) strategy.ChartSink

	// Mark supplies a current price for still-open positions when
	// computing statistics; nil marks open positions at their entry price.
	Mark stats.MarkPrice

	// Store, when set, persists the finished Result under the scheduler's
	// session id once Run completes (§6).
	Store *ResultStore
}

// Result is everything a session run produced: the raw per-symbol
// positions, the scheduler's progress snapshot, and (when their toggles
// are enabled) the equity curve and statistics.
type Result struct {
	Positions map[string]*tradesim.PositionsContainer
	Snapshot  runtimestats.Snapshot
	Curve     *equity.Curve
	Stats     *stats.Stats
}

// Run drives the scheduler to completion, then (subject to
// Params.EnableEquity/EnableStats) replays the resulting positions through
// the equity pass and computes statistics over the closed range.
func (s *Session) Run(ctx context.Context, barsBySymbol map[string]*tradesim.Bars, from, to tradesim.DateTime) (*Result, error) {
	sched := &scheduler.Scheduler{
		Symbols:        s.Symbols,
		Provider:       s.Provider,
		Factory:        s.Factory,
		Params:         s.Params,
		Trades:         s.Trades,
		Log:            s.Log,
		SlippageFunc:   s.SlippageFunc,
		CommissionFunc: s.CommissionFunc,
		ChartFactory:   s.ChartFactory,
	}

	sink, rstats, err := sched.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("session: scheduler run: %w", err)
	}

	containers := sink.All()
	result := &Result{
		Positions: containers,
		Snapshot:  rstats.Snapshot(1),
	}
	defer s.persist(ctx, result)

	if !s.Params.EnableEquity && !s.Params.EnableStats {
		return result, nil
	}

	curve, err := equity.Run(containers, barsBySymbol, s.Params.Sizing, from, to)
	if err != nil {
		return result, fmt.Errorf("session: equity pass: %w", err)
	}
	result.Curve = curve

	if !s.Params.EnableStats {
		return result, nil
	}

	years := float64(tradesim.DaysBetween(from, to)) / 365.25
	computed := stats.Compute(containers, curve, barsBySymbol, s.Params.Sizing.InitialCapital, years, s.Mark)
	result.Stats = &computed
	return result, nil
}

// persist saves result to Store if one is configured, logging (not
// returning) any failure: a storage hiccup must never fail an otherwise
// successful backtest.
func (s *Session) persist(ctx context.Context, result *Result) {
	if s.Store == nil {
		return
	}
	var endingEquity float64
	if result.Curve != nil {
		endingEquity = result.Curve.EndingEquity("all")
	}
	if err := s.Store.Save(ctx, result.Snapshot, result.Stats, endingEquity); err != nil {
		s.logger().Error("session_store_save_failed", logger.Err(err))
	}
}

func (s *Session) logger() logger.Logger {
	if s.Log == nil {
		return logger.NopLogger{}
	}
	return s.Log
}
