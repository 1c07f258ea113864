// Package runtimestats tracks one scheduler run's progress: symbol and bar
// counters, error counts, and the READY/RUNNING/CANCELING/ENDED/CANCELED
// status machine, serializable to JSON for an external progress UI (§4.2, §6).
package runtimestats

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/evdnx/tradesim/metrics"
)

// Status is the scheduler run's lifecycle state.
type Status string

const (
	StatusReady     Status = "READY"
	StatusRunning   Status = "RUNNING"
	StatusCanceling Status = "CANCELING"
	StatusEnded     Status = "ENDED"
	StatusCanceled  Status = "CANCELED"
)

// RuntimeStats is safe for concurrent use by every scheduler worker.
type RuntimeStats struct {
	sessionID string
	startedAt time.Time

	mu      sync.RWMutex
	status  Status
	message string

	totalSymbolCount     int64
	processedSymbolCount int64
	errorSymbolCount     int64
	rawTradeCount        int64
	processedTradeCount  int64
	signalCount          int64
	processedSignalCount int64
	totalBarCount        int64
	totalRuns            int64
	errorCount           int64
	currentSymbol        atomic.Value // string
}

// New creates a RuntimeStats for a run over totalSymbols symbols, in the
// READY state, with a freshly generated session id.
func New(totalSymbols int) *RuntimeStats {
	rs := &RuntimeStats{
		sessionID:        uuid.NewString(),
		startedAt:        time.Time{},
		status:           StatusReady,
		totalSymbolCount: int64(totalSymbols),
	}
	rs.currentSymbol.Store("")
	return rs
}

// Start transitions to RUNNING and records the start time; called once
// when the scheduler's first pass begins.
func (r *RuntimeStats) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = StatusRunning
	r.startedAt = time.Now()
}

// RequestCancel transitions RUNNING to CANCELING; a no-op from any other
// state.
func (r *RuntimeStats) RequestCancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == StatusRunning {
		r.status = StatusCanceling
	}
}

// Finish transitions to ENDED, or to CANCELED if a cancel was requested.
func (r *RuntimeStats) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == StatusCanceling {
		r.status = StatusCanceled
	} else {
		r.status = StatusEnded
	}
}

// SetMessage attaches a free-form status message (e.g. the last error).
func (r *RuntimeStats) SetMessage(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.message = msg
}

// Status returns the current lifecycle state.
func (r *RuntimeStats) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// CancelRequested reports whether the shared cancel flag has been set,
// polled by scheduler workers between symbols.
func (r *RuntimeStats) CancelRequested() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status == StatusCanceling || r.status == StatusCanceled
}

// SetCurrentSymbol records which symbol a worker is currently processing.
func (r *RuntimeStats) SetCurrentSymbol(symbol string) {
	r.currentSymbol.Store(symbol)
	metrics.PositionsOpen.WithLabelValues(symbol) // ensures the label exists even before any position opens
}

// IncProcessedSymbol records one symbol finishing without error.
func (r *RuntimeStats) IncProcessedSymbol() { atomic.AddInt64(&r.processedSymbolCount, 1) }

// IncErrorSymbol records one symbol finishing with an error, counting
// toward both the per-symbol and the overall error tallies.
func (r *RuntimeStats) IncErrorSymbol(symbol string) {
	atomic.AddInt64(&r.errorSymbolCount, 1)
	atomic.AddInt64(&r.errorCount, 1)
	metrics.SymbolErrors.WithLabelValues(symbol).Inc()
}

// AddRawTrades adds n to the raw (pre-sizing) trade count.
func (r *RuntimeStats) AddRawTrades(n int64) { atomic.AddInt64(&r.rawTradeCount, n) }

// AddProcessedTrades adds n to the post-sizing trade count.
func (r *RuntimeStats) AddProcessedTrades(n int64) { atomic.AddInt64(&r.processedTradeCount, n) }

// IncSignal records one signal emitted (one-past-last-bar order).
func (r *RuntimeStats) IncSignal() { atomic.AddInt64(&r.signalCount, 1) }

// IncProcessedSignal records one signal a wrapping harness acted on.
func (r *RuntimeStats) IncProcessedSignal() { atomic.AddInt64(&r.processedSignalCount, 1) }

// AddBars adds n to the total bar count, and increments the symbol's
// Prometheus counter.
func (r *RuntimeStats) AddBars(symbol string, n int64) {
	atomic.AddInt64(&r.totalBarCount, n)
	metrics.BarsProcessed.WithLabelValues(symbol).Add(float64(n))
}

// IncRun records the start of one re-run pass.
func (r *RuntimeStats) IncRun() { atomic.AddInt64(&r.totalRuns, 1) }

// PercentageDone returns processed/total symbols as a 0-100 percentage;
// 100 once every symbol this pass has been processed (error or not).
func (r *RuntimeStats) PercentageDone() float64 {
	total := atomic.LoadInt64(&r.totalSymbolCount)
	if total == 0 {
		return 100
	}
	done := atomic.LoadInt64(&r.processedSymbolCount) + atomic.LoadInt64(&r.errorSymbolCount)
	return float64(done) / float64(total) * 100
}

// Snapshot is the JSON-serializable view of RuntimeStats (§6).
type Snapshot struct {
	SessionID                     string  `json:"sessionId"`
	Duration                      string  `json:"duration"`
	ProcessedSymbolCount          int64   `json:"processedSymbolCount"`
	SymbolProcessedWithErrorCount int64   `json:"symbolProcessedWithErrorsCount"`
	TotalSymbolCount               int64   `json:"totalSymbolCount"`
	SystemCount                   int     `json:"systemCount"`
	RawTradeCount                  int64   `json:"rawTradeCount"`
	ProcessedTradeCount            int64   `json:"processedTradeCount"`
	SignalCount                    int64   `json:"signalCount"`
	ProcessedSignalCount           int64   `json:"processedSignalCount"`
	TotalBarCount                  int64   `json:"totalBarCount"`
	TotalRuns                      int64   `json:"totalRuns"`
	ErrorCount                     int64   `json:"errorCount"`
	PercentageDone                  float64 `json:"percentageDone"`
	CurrentSymbol                   string  `json:"currentSymbol"`
	Status                          Status  `json:"status"`
	Message                         string  `json:"message"`
}

// Snapshot takes a consistent point-in-time copy for serialization.
// systemCount is supplied by the caller since RuntimeStats itself has no
// notion of how many strategy instances share a session.
func (r *RuntimeStats) Snapshot(systemCount int) Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var dur time.Duration
	if !r.startedAt.IsZero() {
		dur = time.Since(r.startedAt)
	}
	return Snapshot{
		SessionID:                     r.sessionID,
		Duration:                      dur.String(),
		ProcessedSymbolCount:          atomic.LoadInt64(&r.processedSymbolCount),
		SymbolProcessedWithErrorCount: atomic.LoadInt64(&r.errorSymbolCount),
		TotalSymbolCount:              atomic.LoadInt64(&r.totalSymbolCount),
		SystemCount:                   systemCount,
		RawTradeCount:                 atomic.LoadInt64(&r.rawTradeCount),
		ProcessedTradeCount:           atomic.LoadInt64(&r.processedTradeCount),
		SignalCount:                   atomic.LoadInt64(&r.signalCount),
		ProcessedSignalCount:          atomic.LoadInt64(&r.processedSignalCount),
		TotalBarCount:                 atomic.LoadInt64(&r.totalBarCount),
		TotalRuns:                     atomic.LoadInt64(&r.totalRuns),
		ErrorCount:                    atomic.LoadInt64(&r.errorCount),
		PercentageDone:                r.PercentageDone(),
		CurrentSymbol:                 r.currentSymbol.Load().(string),
		Status:                        r.status,
		Message:                       r.message,
	}
}

// MarshalJSON implements json.Marshaler via Snapshot(0); callers needing an
// accurate SystemCount should marshal Snapshot directly instead.
func (r *RuntimeStats) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Snapshot(0))
}
