// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Moves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kanban_moves_total",
		Help: "Move requests by entity and outcome.",
	}, []string{"entity", "result"})

	NotificationsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kanban_notifications_published_total",
		Help: "Change notifications published by collection.",
	}, []string{"collection"})

	NotificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kanban_notification_failures_total",
		Help: "Change notifications that could not be published.",
	})

	ActivityAppends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kanban_activity_appends_total",
		Help: "Activity trail appends by outcome.",
	}, []string{"result"})

	StreamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kanban_stream_clients",
		Help: "Open board event streams.",
	})
)
