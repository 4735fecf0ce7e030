// Package ws streams simulation frames to browsers over WebSocket and
// accepts user actions from them.
//
// Message types (server to client):
//   - welcome: client id, full snapshot and the mechanism catalog
//   - frame: one engine frame (state, scene, new log entries)
//   - ack: an action was applied
//   - error: an action was rejected or malformed
//   - pong: reply to ping
//
// Message types (client to server): start, stop, toggle, reset, mechanism,
// source, target, draft, send, ping.
//
// Each client has one writer goroutine fed by a bounded queue; when the
// queue is full frames are dropped for that client only.
//
//	hub := ws.NewHub(eng, ws.WithLogger(logger))
//	go hub.Run(ctx)
//	eng.Subscribe(hub)
//	router.GET("/stream", hub.HandleConnection)
package ws
