package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectedSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "linechat_connected_sessions",
		Help: "Number of currently registered sessions.",
	})

	messagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linechat_messages_total",
		Help: "Messages routed, by delivery kind.",
	}, []string{"kind"})

	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linechat_logins_total",
		Help: "Login attempts, by result.",
	}, []string{"result"})
)
