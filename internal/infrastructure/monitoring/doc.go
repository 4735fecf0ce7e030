/*
Package monitoring provides Prometheus metrics for the visualizer.

Each Metrics value owns a private registry carrying HTTP request metrics,
simulation counters (packets sent, delivered, rejected, in flight, delivery
latency, resets), frame timings, WebSocket connection counts and uptime.

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
*/
package monitoring
