package tradesim

import (
	"fmt"

	"github.com/evdnx/goti"
)

// ErrorHandlingMode controls how Bar invariant violations are surfaced.
type ErrorHandlingMode int

const (
	// ErrorFatal returns an error from NewBars on the first violation.
	ErrorFatal ErrorHandlingMode = iota
	// ErrorWarning collects violations but still returns the Bars.
	ErrorWarning
	// ErrorIgnore silently accepts the data.
	ErrorIgnore
)

// Bar is one OHLCV record for a symbol at a point in time.
type Bar struct {
	Time         DateTime
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       float64
	OpenInterest float64
	ExtraInfo    any
}

// Validate checks the OHLC invariants from §3: low <= open, close <= high,
// volume > 0.
func (b Bar) Validate() error {
	if !(b.Low <= b.Open && b.Open <= b.High) {
		return fmt.Errorf("tradesim: bar at %s violates low<=open<=high (low=%v open=%v high=%v)", b.Time, b.Low, b.Open, b.High)
	}
	if !(b.Low <= b.Close && b.Close <= b.High) {
		return fmt.Errorf("tradesim: bar at %s violates low<=close<=high (low=%v close=%v high=%v)", b.Time, b.Low, b.Close, b.High)
	}
	if b.Volume <= 0 {
		return fmt.Errorf("tradesim: bar at %s has non-positive volume %v", b.Time, b.Volume)
	}
	return nil
}

// Bars is a symbol-tagged ordered sequence of bars, exposing each field as
// an indexed Series plus O(1) positional accessors.
type Bars struct {
	symbol string
	bars   []Bar
	sync   *Synchronizer

	warnings []error
}

// NewBars validates and wraps a slice of bars for symbol, applying the
// requested error-handling mode to OHLC invariant violations (§3, §7).
func NewBars(symbol string, bars []Bar, mode ErrorHandlingMode) (*Bars, error) {
	b := &Bars{symbol: symbol, bars: append([]Bar(nil), bars...)}
	for _, bar := range b.bars {
		if err := bar.Validate(); err != nil {
			switch mode {
			case ErrorFatal:
				return nil, err
			case ErrorWarning:
				b.warnings = append(b.warnings, err)
			case ErrorIgnore:
			}
		}
	}
	return b, nil
}

// Symbol returns the symbol this collection describes.
func (b *Bars) Symbol() string { return b.symbol }

// Size returns the number of bars.
func (b *Bars) Size() int { return len(b.bars) }

// Warnings returns invariant violations recorded under ErrorWarning mode.
func (b *Bars) Warnings() []error { return b.warnings }

// ErrBarIndexOutOfRange is returned (or its message embedded) when an index
// lies outside [0, Size()).
var ErrBarIndexOutOfRange = fmt.Errorf("tradesim: bar index out of range")

func (b *Bars) checkIndex(bar int) error {
	if bar < 0 || bar >= len(b.bars) {
		return fmt.Errorf("%w: %d (size %d)", ErrBarIndexOutOfRange, bar, len(b.bars))
	}
	return nil
}

// At returns the bar at index i. Panics if out of range; callers that need
// a recoverable error should check Size() or use the positions-engine order
// methods, which validate the index themselves.
func (b *Bars) At(i int) Bar { return b.bars[i] }

// Time returns the time of bar i.
func (b *Bars) Time(i int) DateTime { return b.bars[i].Time }

// Open returns the open of bar i.
func (b *Bars) Open(i int) float64 { return b.bars[i].Open }

// High returns the high of bar i.
func (b *Bars) High(i int) float64 { return b.bars[i].High }

// Low returns the low of bar i.
func (b *Bars) Low(i int) float64 { return b.bars[i].Low }

// Close returns the close of bar i.
func (b *Bars) Close(i int) float64 { return b.bars[i].Close }

// Volume returns the volume of bar i.
func (b *Bars) Volume(i int) float64 { return b.bars[i].Volume }

// OpenInterest returns the open interest of bar i.
func (b *Bars) OpenInterest(i int) float64 { return b.bars[i].OpenInterest }

// OpenSeries returns the open prices as a Series.
func (b *Bars) OpenSeries() *Series { return b.fieldSeries("open", func(x Bar) float64 { return x.Open }) }

// HighSeries returns the high prices as a Series.
func (b *Bars) HighSeries() *Series { return b.fieldSeries("high", func(x Bar) float64 { return x.High }) }

// LowSeries returns the low prices as a Series.
func (b *Bars) LowSeries() *Series { return b.fieldSeries("low", func(x Bar) float64 { return x.Low }) }

// CloseSeries returns the close prices as a Series.
func (b *Bars) CloseSeries() *Series {
	return b.fieldSeries("close", func(x Bar) float64 { return x.Close })
}

// VolumeSeries returns the volumes as a Series.
func (b *Bars) VolumeSeries() *Series {
	return b.fieldSeries("volume", func(x Bar) float64 { return x.Volume })
}

// OpenInterestSeries returns the open-interest values as a Series.
func (b *Bars) OpenInterestSeries() *Series {
	return b.fieldSeries("open_interest", func(x Bar) float64 { return x.OpenInterest })
}

// TimeSeries returns the bar times.
func (b *Bars) TimeSeries() []DateTime {
	out := make([]DateTime, len(b.bars))
	for i, x := range b.bars {
		out[i] = x.Time
	}
	return out
}

func (b *Bars) fieldSeries(name string, fn func(Bar) float64) *Series {
	vals := make([]float64, len(b.bars))
	for i, x := range b.bars {
		vals[i] = fn(x)
	}
	s := NewSeries(name, vals)
	s.sync = b.sync
	return s
}

// SyncTo attaches a Synchronizer aligning this Bars collection onto a
// reference calendar. A Bars may be synchronized to at most one reference;
// calling SyncTo a second time replaces the prior mapping (the invariant
// that matters for correctness is enforced at Series-combination time via
// ErrSyncMismatch, not at attachment time).
func (b *Bars) SyncTo(reference *Bars) *Synchronizer {
	sync := NewSynchronizer(reference.TimeSeries(), b.TimeSeries())
	b.sync = sync
	return sync
}

// Synchronizer returns this Bars' synchronizer, if any.
func (b *Bars) Synchronizer() *Synchronizer { return b.sync }

// BuildIndicatorSuite feeds every bar into a goti.IndicatorSuite produced by
// suiteFactory (the same suiteFactory-injection pattern the teacher's
// BaseStrategy uses), giving strategies access to the wider goti oscillator
// library (RSI/MFI/VWAO crossovers, ...) on top of this Bars collection.
func (b *Bars) BuildIndicatorSuite(suiteFactory func() (*goti.IndicatorSuite, error)) (*goti.IndicatorSuite, error) {
	suite, err := suiteFactory()
	if err != nil {
		return nil, err
	}
	for _, bar := range b.bars {
		if err := suite.Add(bar.High, bar.Low, bar.Close, bar.Volume); err != nil {
			return nil, err
		}
	}
	return suite, nil
}
