package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics of the visualizer. Each instance owns
// its registry, so several can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Simulation metrics
	PacketsSent      *prometheus.CounterVec
	PacketsDelivered *prometheus.CounterVec
	Rejections       *prometheus.CounterVec
	InFlight         prometheus.Gauge
	DeliveryLatency  prometheus.Histogram
	Running          prometheus.Gauge
	Resets           prometheus.Counter

	// Frame metrics
	Frames        prometheus.Counter
	FrameDuration prometheus.Histogram

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec
	WSDropped     prometheus.Counter

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time
}

// NewMetrics creates a collector set registered on a fresh registry together
// with the Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ipcviz_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ipcviz_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"method", "path"},
		),

		PacketsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ipcviz_packets_sent_total",
				Help: "Messages accepted for sending",
			},
			[]string{"mechanism"},
		),
		PacketsDelivered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ipcviz_packets_delivered_total",
				Help: "Packets that reached their target process",
			},
			[]string{"mechanism"},
		),
		Rejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ipcviz_rejections_total",
				Help: "Rejected user actions by reason",
			},
			[]string{"reason"},
		),
		InFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ipcviz_packets_in_flight",
				Help: "Packets currently travelling along the connection",
			},
		),
		DeliveryLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ipcviz_delivery_latency_seconds",
				Help:    "Wall time from send to delivery",
				Buckets: []float64{.25, .5, 1, 1.5, 2, 3, 5, 10, 30},
			},
		),
		Running: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ipcviz_running",
				Help: "1 while the simulation is running",
			},
		),
		Resets: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ipcviz_resets_total",
				Help: "Explicit and implicit simulation resets",
			},
		),

		Frames: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ipcviz_frames_total",
				Help: "Animation frames computed",
			},
		),
		FrameDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ipcviz_frame_duration_seconds",
				Help:    "Time spent updating and publishing one frame",
				Buckets: []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .025},
			},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ipcviz_websocket_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ipcviz_websocket_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
		WSDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ipcviz_websocket_dropped_total",
				Help: "Frames dropped because a client was too slow",
			},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "ipcviz_uptime_seconds",
			Help: "Server uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records one served HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordSent records an accepted message
func (m *Metrics) RecordSent(mechanism string) {
	m.PacketsSent.WithLabelValues(mechanism).Inc()
}

// RecordDelivered records a delivered packet and how long it travelled
func (m *Metrics) RecordDelivered(mechanism string, latency time.Duration) {
	m.PacketsDelivered.WithLabelValues(mechanism).Inc()
	m.DeliveryLatency.Observe(latency.Seconds())
}

// RecordRejection records a rejected action
func (m *Metrics) RecordRejection(reason string) {
	m.Rejections.WithLabelValues(reason).Inc()
}

// RecordReset records a reset
func (m *Metrics) RecordReset() {
	m.Resets.Inc()
}

// RecordFrame records a computed frame
func (m *Metrics) RecordFrame(duration time.Duration) {
	m.Frames.Inc()
	m.FrameDuration.Observe(duration.Seconds())
}

// SetInFlight sets the in-flight packet gauge
func (m *Metrics) SetInFlight(n int) {
	m.InFlight.Set(float64(n))
}

// SetRunning sets the lifecycle gauge
func (m *Metrics) SetRunning(running bool) {
	if running {
		m.Running.Set(1)
		return
	}
	m.Running.Set(0)
}

// IncWSConnections increments active WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements active WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}

// RecordWSMessage records a WebSocket message; direction is "in" or "out"
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// RecordWSDrop records a frame dropped for a slow client
func (m *Metrics) RecordWSDrop() {
	m.WSDropped.Inc()
}
