package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayforge/agentgate/internal/common/config"
)

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New(config.MetricsConfig{Namespace: "testns"})

	m.ConnOpened()
	m.MessageIn("agent.run")
	m.ProtocolError(429)
	m.EventOut()
	m.RateLimited()
	m.Heartbeat()

	router := gin.New()
	router.GET("/metrics", m.Handler())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "testns_connections_active 1")
	assert.Contains(t, body, `testns_messages_in_total{method="agent.run"} 1`)
	assert.Contains(t, body, `testns_protocol_errors_total{code="429"} 1`)
	assert.Contains(t, body, "testns_rate_limited_total 1")
}
