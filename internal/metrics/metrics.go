package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec

	SearchRequestsTotal   *prometheus.CounterVec
	SearchRequestDuration prometheus.Histogram

	ResolutionsTotal *prometheus.CounterVec

	QuotaRejectionsTotal prometheus.Counter

	// ActiveSessions считается при каждом scrape, см. TrackActiveSessions.
	ActiveSessions prometheus.GaugeFunc

	sessions atomic.Pointer[func() int]
}

// New регистрирует коллекторы в reg; nil - глобальный DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	m := &Metrics{
		CommandsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "imagebot_commands_total",
				Help: "Total number of bot commands processed",
			},
			[]string{"command", "status"},
		),
		CommandDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "imagebot_command_duration_seconds",
				Help:    "Bot command duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"command"},
		),

		SearchRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "imagebot_search_requests_total",
				Help: "Total number of image search API requests",
			},
			[]string{"status"},
		),
		SearchRequestDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "imagebot_search_request_duration_seconds",
				Help:    "Image search request duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
			},
		),

		ResolutionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "imagebot_redirect_resolutions_total",
				Help: "Total number of image URL redirect resolutions",
			},
			[]string{"outcome"},
		),

		QuotaRejectionsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "imagebot_quota_rejections_total",
				Help: "Searches refused by the local query quota",
			},
		),
	}
	m.ActiveSessions = f.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "imagebot_active_sessions",
			Help: "Number of chat sessions holding a search client",
		},
		m.activeSessions,
	)
	return m
}

// HandlerFor serves the collectors registered in g.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// все Record* безопасны на nil *Metrics

func (m *Metrics) RecordCommand(command, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.CommandsTotal.WithLabelValues(command, status).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

func (m *Metrics) RecordSearchRequest(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.SearchRequestsTotal.WithLabelValues(status).Inc()
	m.SearchRequestDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordResolution(outcome string) {
	if m == nil {
		return
	}
	m.ResolutionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordQuotaRejection() {
	if m == nil {
		return
	}
	m.QuotaRejectionsTotal.Inc()
}

// TrackActiveSessions sets the source the active sessions gauge reads from.
func (m *Metrics) TrackActiveSessions(count func() int) {
	if m == nil || count == nil {
		return
	}
	m.sessions.Store(&count)
}

func (m *Metrics) activeSessions() float64 {
	count := m.sessions.Load()
	if count == nil {
		return 0
	}
	return float64((*count)())
}
