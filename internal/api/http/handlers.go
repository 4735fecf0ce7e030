package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ipc-visualizer/internal/domain/sim"
	"github.com/GriffinCanCode/ipc-visualizer/internal/engine"
	"github.com/GriffinCanCode/ipc-visualizer/internal/shared/types"
)

// requestTimeout bounds how long a handler waits for the engine.
const requestTimeout = 5 * time.Second

// Simulator is the part of the engine the handlers use.
type Simulator interface {
	Dispatch(ctx context.Context, a sim.Action) (sim.Result, error)
	Snapshot(ctx context.Context) (engine.Snapshot, error)
	EntriesSince(ctx context.Context, seq uint64) ([]sim.Entry, error)
}

// Handlers contains all HTTP handlers
type Handlers struct {
	sim       Simulator
	logger    *zap.Logger
	clients   func() int
	startedAt time.Time
}

// NewHandlers creates a new handler set. clients reports the number of
// connected WebSocket clients and may be nil.
func NewHandlers(s Simulator, logger *zap.Logger, clients func() int) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clients == nil {
		clients = func() int { return 0 }
	}
	return &Handlers{
		sim:       s,
		logger:    logger,
		clients:   clients,
		startedAt: time.Now(),
	}
}

// Register mounts the API routes on r.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/health", h.Health)

	api := r.Group("/api")
	api.GET("/state", h.State)
	api.GET("/scene", h.Scene)
	api.GET("/frame.png", h.FramePNG)
	api.GET("/log", h.Log)
	api.GET("/log/export", h.ExportLog)
	api.GET("/mechanisms", h.Mechanisms)
}

// RegisterControl mounts the state-changing routes. They are kept separate so
// the server can rate limit them.
func (h *Handlers) RegisterControl(r gin.IRouter) {
	api := r.Group("/api")
	api.POST("/sim/start", h.Start)
	api.POST("/sim/stop", h.Stop)
	api.POST("/sim/toggle", h.Toggle)
	api.POST("/sim/reset", h.Reset)
	api.PUT("/sim/mechanism", h.SetMechanism)
	api.PUT("/selection/source", h.SelectSource)
	api.PUT("/selection/target", h.SelectTarget)
	api.PUT("/selection/draft", h.SetDraft)
	api.POST("/messages", h.SendMessage)
}

// Health handles liveness checks
func (h *Handlers) Health(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, types.HealthResponse{
		Status:    "healthy",
		Service:   "ipc-visualizer",
		Phase:     snap.State.Phase,
		InFlight:  snap.State.InFlight(),
		WSClients: h.clients(),
		StartedAt: h.startedAt,
	})
}

// State returns the current simulation state
func (h *Handlers) State(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, types.StateResponse{Seq: snap.Seq, State: snap.State})
}

// Mechanisms lists the supported IPC mechanisms
func (h *Handlers) Mechanisms(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, types.MechanismsResponse{
		Current:    snap.State.Mechanism,
		Mechanisms: sim.Catalog(),
	})
}

// Start starts the simulation
func (h *Handlers) Start(c *gin.Context) {
	h.act(c, sim.Start(), http.StatusOK)
}

// Stop pauses the simulation, keeping packets in place
func (h *Handlers) Stop(c *gin.Context) {
	h.act(c, sim.Stop(), http.StatusOK)
}

// Toggle flips between running and idle
func (h *Handlers) Toggle(c *gin.Context) {
	h.act(c, sim.Toggle(), http.StatusOK)
}

// Reset clears packets and the session log
func (h *Handlers) Reset(c *gin.Context) {
	h.act(c, sim.Reset(), http.StatusOK)
}

// SetMechanism changes the IPC mechanism, which resets the simulation
func (h *Handlers) SetMechanism(c *gin.Context) {
	var req types.MechanismRequest
	if !bind(c, &req) {
		return
	}
	h.act(c, sim.ChangeMechanism(sim.Mechanism(req.Mechanism)), http.StatusOK)
}

// SelectSource picks the sending process
func (h *Handlers) SelectSource(c *gin.Context) {
	var req types.ProcessRequest
	if !bind(c, &req) {
		return
	}
	h.act(c, sim.SelectSource(req.ProcessID), http.StatusOK)
}

// SelectTarget picks the receiving process
func (h *Handlers) SelectTarget(c *gin.Context) {
	var req types.ProcessRequest
	if !bind(c, &req) {
		return
	}
	h.act(c, sim.SelectTarget(req.ProcessID), http.StatusOK)
}

// SetDraft updates the message field shared by all pages
func (h *Handlers) SetDraft(c *gin.Context) {
	var req types.DraftRequest
	if !bind(c, &req) {
		return
	}
	h.act(c, sim.SetDraft(req.Text), http.StatusOK)
}

// SendMessage queues a message from one process to another
func (h *Handlers) SendMessage(c *gin.Context) {
	var req types.MessageRequest
	if !bind(c, &req) {
		return
	}
	h.act(c, sim.Submit(req.Text, req.Source, req.Target), http.StatusAccepted)
}

// act dispatches a and writes either the result or the rejection.
func (h *Handlers) act(c *gin.Context, a sim.Action, okStatus int) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	res, err := h.sim.Dispatch(ctx, a)
	if err != nil {
		h.unavailable(c, err)
		return
	}
	if res.Err != nil {
		c.JSON(StatusFor(res.Err), rejection(res))
		return
	}

	entries := res.Entries
	if entries == nil {
		entries = []sim.Entry{}
	}
	c.JSON(okStatus, types.ActionResponse{
		Phase:   res.Phase,
		Entries: entries,
		Cleared: res.Cleared,
		Packet:  res.Packet,
	})
}

func (h *Handlers) snapshot(c *gin.Context) (engine.Snapshot, bool) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	snap, err := h.sim.Snapshot(ctx)
	if err != nil {
		h.unavailable(c, err)
		return engine.Snapshot{}, false
	}
	return snap, true
}

func (h *Handlers) unavailable(c *gin.Context, err error) {
	h.logger.Warn("simulation unavailable", zap.String("path", c.FullPath()), zap.Error(err))
	_ = c.Error(err)
	c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{
		Error: "simulation unavailable",
		Code:  "unavailable",
	})
}

// StatusFor maps a simulation rejection to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, sim.ErrNotRunning):
		return http.StatusConflict
	case errors.Is(err, sim.ErrUnknownProcess):
		return http.StatusNotFound
	case errors.Is(err, sim.ErrEmptyMessage),
		errors.Is(err, sim.ErrMessageTooLong),
		errors.Is(err, sim.ErrSameProcess),
		errors.Is(err, sim.ErrUnknownMechanism),
		errors.Is(err, sim.ErrUnknownAction):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func rejection(res sim.Result) types.ErrorResponse {
	msg := res.Err.Error()
	if len(res.Entries) > 0 {
		msg = res.Entries[len(res.Entries)-1].Message
	}
	return types.ErrorResponse{
		Error:     msg,
		Code:      engine.RejectionReason(res.Err),
		Phase:     res.Phase,
		Attention: res.Attention,
	}
}
