package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsAreIndependent(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.RecordSent("pipe")
	a.RecordSent("pipe")
	b.RecordSent("pipe")

	assert.Equal(t, 2.0, testutil.ToFloat64(a.PacketsSent.WithLabelValues("pipe")))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.PacketsSent.WithLabelValues("pipe")))
}

func TestSimulationRecorders(t *testing.T) {
	m := NewMetrics()

	m.RecordDelivered("sharedMemory", 1100*time.Millisecond)
	m.RecordRejection("not_running")
	m.RecordReset()
	m.RecordFrame(time.Millisecond)
	m.SetInFlight(3)
	m.SetRunning(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PacketsDelivered.WithLabelValues("sharedMemory")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rejections.WithLabelValues("not_running")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Resets))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Frames))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.InFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Running))

	m.SetRunning(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Running))
}

func TestWebSocketRecorders(t *testing.T) {
	m := NewMetrics()
	m.IncWSConnections()
	m.IncWSConnections()
	m.DecWSConnections()
	m.RecordWSMessage("out", "frame")
	m.RecordWSDrop()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.WSConnections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WSMessages.WithLabelValues("out", "frame")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WSDropped))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	r := gin.New()
	r.Use(Middleware(m))
	r.GET("/api/state", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/api/state", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ipcviz_http_requests_total")
	assert.Contains(t, w.Body.String(), "ipcviz_uptime_seconds")
}
