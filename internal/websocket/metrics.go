package websocket

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	deliveryOK       = "ok"
	deliveryDropped  = "dropped"
	deliveryNoTarget = "no_subscribers"
)

var (
	connectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections_active",
		Help: "Number of live websocket connections",
	})

	usersOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_users_online",
		Help: "Number of distinct users with at least one live connection",
	})

	handshakeRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_handshake_rejections_total",
		Help: "Refused websocket handshakes by reason",
	}, []string{"reason"})

	eventsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_events_dispatched_total",
		Help: "Domain events handed to the dispatcher by kind",
	}, []string{"event"})

	deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_deliveries_total",
		Help: "Per-connection delivery attempts by result",
	}, []string{"result"})
)
