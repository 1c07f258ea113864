// Package config holds the tunable parameters that drive one backtesting
// session: how positions are sized and limited, how many worker threads run
// the scheduler, the effective date range, and how data errors are handled.
package config

import (
	"errors"
	"fmt"
)

// SizeType selects how PositionSizingParams.SizeValue is interpreted when
// the equity pass resizes a position.
type SizeType string

const (
	SizeSystemDefined SizeType = "system_defined"
	SizeShares        SizeType = "shares"
	SizeValue         SizeType = "value"
	SizePctEquity     SizeType = "pct_equity"
	SizePctCash       SizeType = "pct_cash"
)

// LimitType caps the size computed from SizeType before it is applied.
type LimitType string

const (
	LimitNone      LimitType = "none"
	LimitPctVolume LimitType = "pct_volume"
	LimitValue     LimitType = "value"
)

// DataErrorHandling mirrors tradesim.ErrorHandlingMode for the
// configuration surface (kept as a distinct type since this package must
// not import the root package, which imports config's sibling types).
type DataErrorHandling string

const (
	DataErrorFatal   DataErrorHandling = "fatal"
	DataErrorWarning DataErrorHandling = "warning"
	DataErrorIgnore  DataErrorHandling = "ignore"
)

// PositionSizingParams controls the post-simulation equity/sizing pass
// (§4.4): how much capital backs the session and how each position's share
// count is computed and capped.
type PositionSizingParams struct {
	InitialCapital float64

	// MaxOpenPositions caps concurrently open positions across all symbols;
	// UnlimitedOpenPositions disables the cap.
	MaxOpenPositions       uint64
	UnlimitedOpenPositions bool

	SizeType  SizeType
	SizeValue float64

	LimitType  LimitType
	LimitValue float64
}

// Validate checks that the sizing parameters are internally consistent.
func (p *PositionSizingParams) Validate() error {
	if p.InitialCapital <= 0 {
		return errors.New("config: InitialCapital must be positive")
	}
	switch p.SizeType {
	case SizeSystemDefined, SizeShares, SizeValue, SizePctEquity, SizePctCash:
	default:
		return fmt.Errorf("config: unknown SizeType %q", p.SizeType)
	}
	if p.SizeType != SizeSystemDefined && p.SizeValue <= 0 {
		return fmt.Errorf("config: SizeValue must be positive for SizeType %q", p.SizeType)
	}
	switch p.LimitType {
	case LimitNone, LimitPctVolume, LimitValue:
	default:
		return fmt.Errorf("config: unknown LimitType %q", p.LimitType)
	}
	if p.LimitType != LimitNone && p.LimitValue <= 0 {
		return fmt.Errorf("config: LimitValue must be positive for LimitType %q", p.LimitType)
	}
	if !p.UnlimitedOpenPositions && p.MaxOpenPositions == 0 {
		return errors.New("config: MaxOpenPositions must be >0 unless UnlimitedOpenPositions is set")
	}
	return nil
}

// DateRange bounds a session; either end may be left at its zero value to
// mean unbounded (mapped to tradesim's positive/negative infinity
// DateTimes by the session package).
type DateRange struct {
	HasFrom bool
	From    string // ISO datetime, parsed by the session package
	HasTo   bool
	To      string
}

// RuntimeParams is the full set of session-level knobs threaded through the
// scheduler and made available to every running strategy (§4.3, §6).
type RuntimeParams struct {
	Sizing PositionSizingParams

	Threads     int
	CPUAffinity bool

	Range DateRange

	// StartTradesDateTime rejects position entries earlier than this time;
	// empty string disables the gate.
	StartTradesDateTime string

	DataErrorHandling DataErrorHandling

	// Feature toggles let a wrapping harness silence work this core would
	// otherwise still perform. EnableCharts/EnableOutput default to false
	// since chart rendering and report output are out of core scope; the
	// others default to true.
	EnableCharts  bool
	EnableStats   bool
	EnableEquity  bool
	EnableTrades  bool
	EnableSignals bool
	EnableOutput  bool
}

// Validate checks the runtime parameters, including the nested sizing
// parameters.
func (r *RuntimeParams) Validate() error {
	if err := r.Sizing.Validate(); err != nil {
		return err
	}
	if r.Threads <= 0 {
		return errors.New("config: Threads must be positive")
	}
	switch r.DataErrorHandling {
	case DataErrorFatal, DataErrorWarning, DataErrorIgnore:
	default:
		return fmt.Errorf("config: unknown DataErrorHandling %q", r.DataErrorHandling)
	}
	return nil
}

// DefaultRuntimeParams returns sensible defaults: one worker thread, no
// open-position cap, system-defined sizing, no limit, fatal data errors.
func DefaultRuntimeParams(initialCapital float64) RuntimeParams {
	return RuntimeParams{
		Sizing: PositionSizingParams{
			InitialCapital:         initialCapital,
			UnlimitedOpenPositions: true,
			SizeType:               SizeSystemDefined,
			LimitType:              LimitNone,
		},
		Threads:           1,
		DataErrorHandling: DataErrorFatal,
		EnableStats:       true,
		EnableEquity:      true,
		EnableTrades:      true,
		EnableSignals:     true,
	}
}

// ExplicitTradeFileFormat names the two supported directive file encodings.
type ExplicitTradeFileFormat string

const (
	ExplicitTradeFileCSV  ExplicitTradeFileFormat = "csv"
	ExplicitTradeFileJSON ExplicitTradeFileFormat = "json"
)
