package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	OrdersSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradesim_orders_submitted_total",
			Help: "Total number of orders submitted, by symbol and outcome.",
		},
		[]string{"symbol", "outcome"},
	)

	PositionsOpen = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tradesim_positions_open",
			Help: "Current number of open positions per symbol.",
		},
		[]string{"symbol"},
	)

	EquityGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tradesim_equity_total",
			Help: "Current total equity of the running session.",
		},
	)

	BarsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradesim_bars_processed_total",
			Help: "Total number of bars processed, by symbol.",
		},
		[]string{"symbol"},
	)

	SymbolErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradesim_symbol_errors_total",
			Help: "Total number of symbol runs that ended in an error.",
		},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(OrdersSubmitted, PositionsOpen, EquityGauge, BarsProcessed, SymbolErrors)
}
