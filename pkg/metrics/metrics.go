package metrics

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relayforge/agentgate/internal/common/config"
)

// Metrics holds the gateway's Prometheus collectors
type Metrics struct {
	registry *prometheus.Registry

	connActive   prometheus.Gauge
	msgInCnt     *prometheus.CounterVec
	protoErrCnt  *prometheus.CounterVec
	eventsOutCnt prometheus.Counter
	rateLimited  prometheus.Counter
	heartbeats   prometheus.Counter
	replayedCnt  prometheus.Counter
	authFailures prometheus.Counter
	sessionsCnt  prometheus.Counter
}

// New builds a registry with process, Go and gateway collectors registered.
func New(cfg config.MetricsConfig) *Metrics {
	ns := cfg.Namespace
	if ns == "" {
		ns = "agentgate"
	}
	r := prometheus.NewRegistry()
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	connActive := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: ns, Name: "connections_active"})
	msgInCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "messages_in_total"}, []string{"method"})
	protoErrCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "protocol_errors_total"}, []string{"code"})
	eventsOutCnt := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "events_out_total"})
	rateLimited := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "rate_limited_total"})
	heartbeats := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "heartbeats_total"})
	replayedCnt := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "events_replayed_total"})
	authFailures := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "auth_failures_total"})
	sessionsCnt := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "sessions_created_total"})
	r.MustRegister(connActive, msgInCnt, protoErrCnt, eventsOutCnt, rateLimited, heartbeats, replayedCnt, authFailures, sessionsCnt)

	return &Metrics{
		registry:     r,
		connActive:   connActive,
		msgInCnt:     msgInCnt,
		protoErrCnt:  protoErrCnt,
		eventsOutCnt: eventsOutCnt,
		rateLimited:  rateLimited,
		heartbeats:   heartbeats,
		replayedCnt:  replayedCnt,
		authFailures: authFailures,
		sessionsCnt:  sessionsCnt,
	}
}

func (m *Metrics) ConnOpened() {
	m.connActive.Inc()
}

func (m *Metrics) ConnClosed() {
	m.connActive.Dec()
}

func (m *Metrics) MessageIn(method string) {
	m.msgInCnt.WithLabelValues(method).Inc()
}

func (m *Metrics) ProtocolError(code int) {
	m.protoErrCnt.WithLabelValues(strconv.Itoa(code)).Inc()
}

func (m *Metrics) EventOut() {
	m.eventsOutCnt.Inc()
}

func (m *Metrics) RateLimited() {
	m.rateLimited.Inc()
}

func (m *Metrics) Heartbeat() {
	m.heartbeats.Inc()
}

func (m *Metrics) EventsReplayed(n int) {
	m.replayedCnt.Add(float64(n))
}

func (m *Metrics) AuthFailure() {
	m.authFailures.Inc()
}

func (m *Metrics) SessionCreated() {
	m.sessionsCnt.Inc()
}

// Handler returns a gin handler serving the /metrics endpoint.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
