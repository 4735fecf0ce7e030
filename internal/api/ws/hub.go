package ws

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ipc-visualizer/internal/domain/sim"
	"github.com/GriffinCanCode/ipc-visualizer/internal/engine"
	"github.com/GriffinCanCode/ipc-visualizer/internal/shared/id"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

// Simulator is the part of the engine the hub drives.
type Simulator interface {
	Dispatch(ctx context.Context, a sim.Action) (sim.Result, error)
	Snapshot(ctx context.Context) (engine.Snapshot, error)
}

// Metrics receives WebSocket counters. monitoring.Metrics implements it.
type Metrics interface {
	IncWSConnections()
	DecWSConnections()
	RecordWSMessage(direction, msgType string)
	RecordWSDrop()
}

type nopMetrics struct{}

func (nopMetrics) IncWSConnections()              {}
func (nopMetrics) DecWSConnections()              {}
func (nopMetrics) RecordWSMessage(string, string) {}
func (nopMetrics) RecordWSDrop()                  {}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the hub logger
func WithLogger(l *zap.Logger) Option {
	return func(h *Hub) { h.logger = l }
}

// WithMetrics reports connection and message counts to m
func WithMetrics(m Metrics) Option {
	return func(h *Hub) { h.metrics = m }
}

// WithCheckOrigin restricts which pages may connect
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(h *Hub) { h.upgrader.CheckOrigin = fn }
}

// Hub fans frames out to every connected browser and turns client messages
// into simulation actions. It implements engine.Publisher.
type Hub struct {
	upgrader websocket.Upgrader
	sim      Simulator
	logger   *zap.Logger
	metrics  Metrics

	clients   map[*client]struct{}
	register  chan *client
	remove    chan *client
	broadcast chan []byte
	done      chan struct{}
	count     atomic.Int64
	missed    atomic.Bool
}

// NewHub creates a hub. Call Run before accepting connections.
func NewHub(s Simulator, opts ...Option) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sim:       s,
		logger:    zap.NewNop(),
		metrics:   nopMetrics{},
		clients:   make(map[*client]struct{}),
		register:  make(chan *client),
		remove:    make(chan *client),
		broadcast: make(chan []byte, 64),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run owns the client set until ctx is cancelled, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Store(int64(len(h.clients)))
			h.metrics.IncWSConnections()
			h.logger.Debug("websocket client connected", zap.String("client_id", c.id.String()))
		case c := <-h.remove:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
				h.logger.Debug("websocket client disconnected", zap.String("client_id", c.id.String()))
			}
		case msg := <-h.broadcast:
			missed := h.missed.Swap(false)
			for c := range h.clients {
				if missed {
					c.lagging = true
				}
				h.deliver(c, msg)
			}
		}
	}
}

// deliver queues a frame for c. A client that missed a frame is sent a
// resync first so it can refetch the log entries it lost.
func (h *Hub) deliver(c *client, msg []byte) {
	if c.lagging {
		if !c.enqueue(resyncMessage) {
			h.metrics.RecordWSDrop()
			return
		}
		c.lagging = false
		h.metrics.RecordWSMessage("out", TypeResync)
	}
	if !c.enqueue(msg) {
		c.lagging = true
		h.metrics.RecordWSDrop()
	}
}

func (h *Hub) drop(c *client) {
	delete(h.clients, c)
	h.count.Store(int64(len(h.clients)))
	h.metrics.DecWSConnections()
	c.close()
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	return int(h.count.Load())
}

// Publish encodes fr once and queues it for every client. Frames are
// dropped rather than blocking the engine; clients that lose one get a
// resync message with the next frame.
func (h *Hub) Publish(fr engine.Frame) {
	data, err := sonic.Marshal(Outbound{Type: TypeFrame, Frame: &fr})
	if err != nil {
		h.logger.Error("failed to encode frame", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- data:
		h.metrics.RecordWSMessage("out", TypeFrame)
	default:
		h.missed.Store(true)
		h.metrics.RecordWSDrop()
	}
}

// HandleConnection upgrades the request and serves the client until it
// disconnects.
func (h *Hub) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{
		id:   id.NewClientID(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		quit: make(chan struct{}),
	}

	go cl.writePump()

	// Register before the snapshot so no frame falls between the two. Frames
	// delivered after the welcome but older than the snapshot have a lower
	// seq and clients skip them.
	select {
	case h.register <- cl:
	case <-h.done:
		cl.close()
		return
	}
	defer func() {
		select {
		case h.remove <- cl:
		case <-h.done:
		}
	}()

	ctx := c.Request.Context()
	snap, err := h.sim.Snapshot(ctx)
	if err != nil {
		h.logger.Error("snapshot for new client failed", zap.Error(err))
		return
	}
	cl.reply(Outbound{
		Type:       TypeWelcome,
		ClientID:   cl.id,
		Snapshot:   &snap,
		Mechanisms: sim.Catalog(),
	})

	cl.readPump(ctx)
}

type client struct {
	id   id.ClientID
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	quit chan struct{}
	once sync.Once

	lagging bool // owned by Hub.Run
}

// enqueue queues msg without blocking and reports whether it was queued.
func (c *client) enqueue(msg []byte) bool {
	select {
	case <-c.quit:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.once.Do(func() { close(c.quit) })
}

func (c *client) reply(out Outbound) {
	data, err := sonic.Marshal(out)
	if err != nil {
		c.hub.logger.Error("failed to encode reply", zap.Error(err))
		return
	}
	if c.enqueue(data) {
		c.hub.metrics.RecordWSMessage("out", out.Type)
	} else {
		c.hub.metrics.RecordWSDrop()
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.quit:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		}
	}
}

func (c *client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", zap.String("client_id", c.id.String()), zap.Error(err))
			}
			return
		}
		c.handle(ctx, data)
	}
}

func (c *client) handle(ctx context.Context, data []byte) {
	var msg Inbound
	if err := sonic.Unmarshal(data, &msg); err != nil {
		c.hub.metrics.RecordWSMessage("in", "invalid")
		c.reply(Outbound{Type: TypeError, Code: "bad_request", Error: "malformed message"})
		return
	}
	c.hub.metrics.RecordWSMessage("in", string(msg.Kind))

	if msg.Kind == TypePing {
		c.reply(Outbound{Type: TypePong, ID: msg.ID})
		return
	}
	if _, err := sim.ParseActionKind(string(msg.Kind)); err != nil {
		c.reply(Outbound{Type: TypeError, ID: msg.ID, Code: "bad_request", Error: "unknown message type"})
		return
	}

	action := msg.Action
	action.Mechanism = sim.Mechanism(strings.TrimSpace(string(action.Mechanism)))

	res, err := c.hub.sim.Dispatch(ctx, action)
	switch {
	case err != nil:
		c.reply(Outbound{Type: TypeError, ID: msg.ID, Code: "unavailable", Error: err.Error()})
	case res.Err != nil:
		c.reply(Outbound{
			Type:      TypeError,
			ID:        msg.ID,
			Phase:     res.Phase,
			Code:      engine.RejectionReason(res.Err),
			Error:     rejectionText(res),
			Attention: res.Attention,
		})
	default:
		c.reply(Outbound{Type: TypeAck, ID: msg.ID, Phase: res.Phase})
	}
}

// rejectionText prefers the session log line, which is what the page shows.
func rejectionText(res sim.Result) string {
	if len(res.Entries) > 0 {
		return res.Entries[len(res.Entries)-1].Message
	}
	return res.Err.Error()
}
