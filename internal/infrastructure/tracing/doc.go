/*
Package tracing provides lightweight request tracing.

Every HTTP request gets a span whose trace id is either taken from the
X-Trace-ID header or freshly generated. Ids are echoed in the response
headers, so the CLI can print them next to an error, and finished spans are
logged through zap by a background collector.

	tracer := tracing.New("ipc-visualizer", logger)
	defer tracer.Close()
	router.Use(tracing.HTTPMiddleware(tracer))
*/
package tracing
