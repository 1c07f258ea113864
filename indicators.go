package tradesim

import "math"

// This file implements the handful of lazy technical indicators the core
// needs directly as free functions over Series (design note: "model as free
// functions sma(&series, period) -> Series rather than methods on a base").
// Every indicator returns a Series of the same length as its input; the
// leading warm-up prefix, where the window has not yet filled, is NaN.

// SMA returns the simple moving average of s over period bars.
func SMA(s *Series, period int) *Series {
	n := s.Len()
	out := make([]float64, n)
	sum := 0.0
	for i := 0; i < n; i++ {
		v := s.At(i)
		sum += v
		if i >= period {
			sum -= s.At(i - period)
		}
		if i < period-1 {
			out[i] = math.NaN()
		} else {
			out[i] = sum / float64(period)
		}
	}
	return NewSeries("sma", out)
}

// EMA returns the exponential moving average of s over period bars, seeded
// by the SMA of the first `period` values.
func EMA(s *Series, period int) *Series {
	n := s.Len()
	out := make([]float64, n)
	if period <= 0 || n == 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return NewSeries("ema", out)
	}
	k := 2.0 / float64(period+1)
	seed := SMA(s, period)
	for i := 0; i < n; i++ {
		switch {
		case i < period-1:
			out[i] = math.NaN()
		case i == period-1:
			out[i] = seed.At(i)
		default:
			out[i] = s.At(i)*k + out[i-1]*(1-k)
		}
	}
	return NewSeries("ema", out)
}

// RSI returns the Wilder relative-strength-index of s over period bars.
func RSI(s *Series, period int) *Series {
	n := s.Len()
	out := make([]float64, n)
	var avgGain, avgLoss float64
	for i := 0; i < n; i++ {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		change := s.At(i) - s.At(i-1)
		gain, loss := math.Max(change, 0), math.Max(-change, 0)
		if i <= period {
			avgGain += gain / float64(period)
			avgLoss += loss / float64(period)
			if i < period {
				out[i] = math.NaN()
				continue
			}
		} else {
			avgGain = (avgGain*float64(period-1) + gain) / float64(period)
			avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		}
		if avgLoss == 0 {
			out[i] = 100
			continue
		}
		rs := avgGain / avgLoss
		out[i] = 100 - 100/(1+rs)
	}
	return NewSeries("rsi", out)
}

// MACDResult bundles the MACD line, its signal line, and their difference
// (the histogram).
type MACDResult struct {
	MACD      *Series
	Signal    *Series
	Histogram *Series
}

// MACD computes the classic fast/slow/signal EMA moving-average-convergence-
// divergence indicator.
func MACD(s *Series, fast, slow, signal int) MACDResult {
	fastEMA := EMA(s, fast)
	slowEMA := EMA(s, slow)
	macd, _ := fastEMA.Sub(slowEMA)
	// The signal EMA runs over the defined part of the MACD line only, so
	// the MACD warm-up NaNs do not poison its seed.
	start := max(fast, slow) - 1
	sigVals := make([]float64, macd.Len())
	for i := range sigVals {
		sigVals[i] = math.NaN()
	}
	if start >= 0 && start < macd.Len() {
		tailSig := EMA(NewSeries("macd", macd.values[start:]), signal)
		copy(sigVals[start:], tailSig.values)
	}
	sig := NewSeries("ema", sigVals)
	hist, _ := macd.Sub(sig)
	return MACDResult{MACD: macd, Signal: sig, Histogram: hist}
}

// BollingerBands bundles the middle/upper/lower bands.
type BollingerBands struct {
	Middle *Series
	Upper  *Series
	Lower  *Series
}

// Bollinger computes Bollinger Bands: an SMA middle band plus/minus
// numStdDev standard deviations computed over the same window.
func Bollinger(s *Series, period int, numStdDev float64) BollingerBands {
	mid := SMA(s, period)
	n := s.Len()
	upper := make([]float64, n)
	lower := make([]float64, n)
	for i := 0; i < n; i++ {
		if i < period-1 {
			upper[i], lower[i] = math.NaN(), math.NaN()
			continue
		}
		var sumSq float64
		m := mid.At(i)
		for j := i - period + 1; j <= i; j++ {
			d := s.At(j) - m
			sumSq += d * d
		}
		sd := math.Sqrt(sumSq / float64(period))
		upper[i] = m + numStdDev*sd
		lower[i] = m - numStdDev*sd
	}
	return BollingerBands{Middle: mid, Upper: NewSeries("bb_upper", upper), Lower: NewSeries("bb_lower", lower)}
}

// IsBullishEngulfing reports whether the candle at index engulfs the prior
// bearish candle with a bullish one (a reference candle pattern that only
// inspects [index] and [index-1], per the synchronizer/reference-indicator
// contract in §3).
func IsBullishEngulfing(open, close *Series, index int) bool {
	if index < 1 {
		return false
	}
	prevOpen, prevClose := open.At(index-1), close.At(index-1)
	o, c := open.At(index), close.At(index)
	return prevClose < prevOpen && c > o && c >= prevOpen && o <= prevClose
}

// IsBearishEngulfing is the mirror of IsBullishEngulfing.
func IsBearishEngulfing(open, close *Series, index int) bool {
	if index < 1 {
		return false
	}
	prevOpen, prevClose := open.At(index-1), close.At(index-1)
	o, c := open.At(index), close.At(index)
	return prevClose > prevOpen && c < o && c <= prevOpen && o >= prevClose
}
