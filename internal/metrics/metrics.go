package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SignalsAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_signals_accepted_total",
			Help: "Webhook signals accepted into a symbol queue.",
		},
		[]string{"symbol", "signal"},
	)

	SignalsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_signals_rejected_total",
			Help: "Webhook signals rejected before enqueue (by reason).",
		},
		[]string{"reason"},
	)

	PositionsOpened = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_positions_opened_total",
			Help: "Market positions opened (by symbol and side).",
		},
		[]string{"symbol", "side"},
	)

	PositionsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_positions_closed_total",
			Help: "Market positions closed (by symbol and trigger).",
		},
		[]string{"symbol", "trigger"},
	)

	StopLossMoves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_stop_loss_moves_total",
			Help: "Stop-loss placements and modifications pushed to the exchange.",
		},
		[]string{"symbol"},
	)

	TakeProfitsPlaced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_take_profits_placed_total",
			Help: "Partial take-profit orders placed.",
		},
		[]string{"symbol"},
	)

	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bot_queue_depth",
			Help: "Signals waiting in each symbol's FIFO lane.",
		},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(
		SignalsAccepted,
		SignalsRejected,
		PositionsOpened,
		PositionsClosed,
		StopLossMoves,
		TakeProfitsPlaced,
		QueueDepth,
	)
}
