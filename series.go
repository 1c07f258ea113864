package tradesim

import (
	"errors"
	"math"
)

// ErrSyncMismatch is returned when an operation combines two series
// synchronized to different reference time vectors.
var ErrSyncMismatch = errors.New("tradesim: operation on series synchronized to different synchronizers")

// Synchronizer maps an aligned index to a source index on a different
// symbol's bar calendar. It is built once from two Bars collections and
// then shared (by reference) by every Series derived from the synced Bars.
type Synchronizer struct {
	// refTimes is the reference calendar this synchronizer aligns onto.
	refTimes []DateTime
	// index[i] is the source-series index backing aligned position i, or
	// -1 if no source bar exists at refTimes[i].
	index []int
}

// NewSynchronizer builds a mapping from the reference calendar onto the
// source calendar: for each reference time, the latest source index whose
// time is <= the reference time (or -1 if none exists yet).
func NewSynchronizer(reference, source []DateTime) *Synchronizer {
	idx := make([]int, len(reference))
	si := 0
	for i, rt := range reference {
		for si < len(source) && !source[si].After(rt) {
			si++
		}
		if si == 0 {
			idx[i] = -1
		} else {
			idx[i] = si - 1
		}
	}
	return &Synchronizer{refTimes: reference, index: idx}
}

// Index returns the source index aligned to position i, or -1 if there is
// no source bar at or before that reference time.
func (s *Synchronizer) Index(i int) int {
	if s == nil || i < 0 || i >= len(s.index) {
		return -1
	}
	return s.index[i]
}

// Len returns the length of the aligned (reference) calendar.
func (s *Synchronizer) Len() int {
	if s == nil {
		return 0
	}
	return len(s.index)
}

// sameSynchronizer reports whether two synchronizers are either both nil or
// the same instance. Series combined from different non-nil synchronizers
// must fail per §3.
func sameSynchronizer(a, b *Synchronizer) bool {
	return a == b
}

// Series is an ordered, optionally-synchronized vector of float64 values.
// Arithmetic and indicator operations produce new Series of the same
// effective length.
type Series struct {
	name   string
	values []float64
	sync   *Synchronizer
}

// NewSeries wraps a raw value slice as an unsynchronized Series.
func NewSeries(name string, values []float64) *Series {
	cp := make([]float64, len(values))
	copy(cp, values)
	return &Series{name: name, values: cp}
}

// NewSyncedSeries wraps a source series so that index i reads
// source[sync.Index(i)], or NaN when no source bar is aligned.
func NewSyncedSeries(name string, source *Series, sync *Synchronizer) *Series {
	return &Series{name: name, values: source.values, sync: sync}
}

// Name returns the series' label.
func (s *Series) Name() string { return s.name }

// Synchronizer returns the series' synchronizer, or nil if unsynchronized.
func (s *Series) Synchronizer() *Synchronizer { return s.sync }

// Len returns the series' logical length.
func (s *Series) Len() int {
	if s.sync != nil {
		return s.sync.Len()
	}
	return len(s.values)
}

// At returns the value at index i, resolving through the synchronizer when
// present. Out-of-range or unaligned positions yield NaN.
func (s *Series) At(i int) float64 {
	if s.sync != nil {
		si := s.sync.Index(i)
		if si < 0 || si >= len(s.values) {
			return math.NaN()
		}
		return s.values[si]
	}
	if i < 0 || i >= len(s.values) {
		return math.NaN()
	}
	return s.values[i]
}

// Prev returns the value at index i-1, or NaN if i<=0.
func (s *Series) Prev(i int) float64 {
	if i <= 0 {
		return math.NaN()
	}
	return s.At(i - 1)
}

// elementWise applies fn to every aligned pair of values from s and o,
// failing if both carry non-nil, distinct synchronizers.
func (s *Series) elementWise(name string, o *Series, fn func(a, b float64) float64) (*Series, error) {
	if s.sync != nil && o.sync != nil && !sameSynchronizer(s.sync, o.sync) {
		return nil, ErrSyncMismatch
	}
	n := s.Len()
	if o.Len() > n {
		n = o.Len()
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = fn(s.At(i), o.At(i))
	}
	return NewSeries(name, out), nil
}

// Add returns the element-wise sum of s and o.
func (s *Series) Add(o *Series) (*Series, error) {
	return s.elementWise(s.name+"+"+o.name, o, func(a, b float64) float64 { return a + b })
}

// Sub returns the element-wise difference s - o.
func (s *Series) Sub(o *Series) (*Series, error) {
	return s.elementWise(s.name+"-"+o.name, o, func(a, b float64) float64 { return a - b })
}

// Mul returns the element-wise product s * o.
func (s *Series) Mul(o *Series) (*Series, error) {
	return s.elementWise(s.name+"*"+o.name, o, func(a, b float64) float64 { return a * b })
}

// Div returns the element-wise quotient s / o. Division by zero yields
// +/-Inf or NaN following ordinary float64 semantics.
func (s *Series) Div(o *Series) (*Series, error) {
	return s.elementWise(s.name+"/"+o.name, o, func(a, b float64) float64 { return a / b })
}

// AddScalar returns s + k element-wise.
func (s *Series) AddScalar(k float64) *Series { return s.mapScalar(k, func(a, b float64) float64 { return a + b }) }

// SubScalar returns s - k element-wise.
func (s *Series) SubScalar(k float64) *Series { return s.mapScalar(k, func(a, b float64) float64 { return a - b }) }

// MulScalar returns s * k element-wise.
func (s *Series) MulScalar(k float64) *Series { return s.mapScalar(k, func(a, b float64) float64 { return a * b }) }

// DivScalar returns s / k element-wise.
func (s *Series) DivScalar(k float64) *Series { return s.mapScalar(k, func(a, b float64) float64 { return a / b }) }

func (s *Series) mapScalar(k float64, fn func(a, b float64) float64) *Series {
	n := s.Len()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = fn(s.At(i), k)
	}
	return NewSeries(s.name, out)
}

// CrossOver reports whether s crossed above o between index-1 and index:
// s[i-1] <= o[i-1] and s[i] > o[i]. NaN operands make the comparison false.
func CrossOver(s, o *Series, index int) bool {
	return s.Prev(index) <= o.Prev(index) && s.At(index) > o.At(index) && !math.IsNaN(s.Prev(index)) && !math.IsNaN(o.Prev(index))
}

// CrossUnder reports whether s crossed below o between index-1 and index.
func CrossUnder(s, o *Series, index int) bool {
	return s.Prev(index) >= o.Prev(index) && s.At(index) < o.At(index) && !math.IsNaN(s.Prev(index)) && !math.IsNaN(o.Prev(index))
}

// TurnUp reports whether s formed a local minimum at index-1 (s[i-2] >=
// s[i-1] < s[i]); used by reference indicators that inspect [index] and
// [index-1].
func TurnUp(s *Series, index int) bool {
	if index < 2 {
		return false
	}
	a, b, c := s.At(index-2), s.At(index-1), s.At(index)
	return a >= b && b < c
}

// TurnDown reports whether s formed a local maximum at index-1.
func TurnDown(s *Series, index int) bool {
	if index < 2 {
		return false
	}
	a, b, c := s.At(index-2), s.At(index-1), s.At(index)
	return a <= b && b > c
}
