package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/ipc-visualizer/internal/domain/sim"
	"github.com/GriffinCanCode/ipc-visualizer/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/ipc-visualizer/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/ipc-visualizer/internal/shared/types"
)

// ErrRejected matches every APIError with a 4xx status: the server was
// reachable and refused the request.
var ErrRejected = errors.New("request rejected")

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status    int
	Code      string
	Message   string
	Attention bool
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// Is reports whether target is ErrRejected and the status is a client error.
func (e *APIError) Is(target error) bool {
	return target == ErrRejected && e.Status >= 400 && e.Status < 500
}

// Config holds client settings
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// RequestsPerSecond throttles outgoing calls. Zero means unlimited.
	RequestsPerSecond float64
	Breaker           resilience.Settings
}

// DefaultConfig returns settings for a server on the local machine.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:      baseURL,
		Timeout:      10 * time.Second,
		RetryMax:     2,
		RetryWaitMin: 100 * time.Millisecond,
		RetryWaitMax: time.Second,
		Breaker: resilience.Settings{
			Timeout: 10 * time.Second,
			ReadyToTrip: func(c resilience.Counts) bool {
				return c.ConsecutiveFailures >= 3
			},
		},
	}
}

// Client talks to a running visualizer over its REST API.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
}

// New creates a client
func New(cfg Config) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.Logger = nil
	// Hand the last response to resty so error bodies can be decoded.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	r := resty.NewWithClient(retryClient.StandardClient()).
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "ipcctl/1.0").
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)
	r.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		if req.Header.Get(tracing.TraceHeader) == "" {
			req.SetHeader(tracing.TraceHeader, uuid.NewString())
		}
		return nil
	})

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	bs := cfg.Breaker
	bs.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, ErrRejected)
	}

	return &Client{
		resty:   r,
		limiter: rate.NewLimiter(limit, 1),
		breaker: resilience.New("ipc-api", bs),
	}
}

// BreakerState reports the circuit breaker state
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// Health checks that the server is up
func (c *Client) Health(ctx context.Context) (types.HealthResponse, error) {
	var out types.HealthResponse
	err := c.call(ctx, http.MethodGet, "/health", nil, &out)
	return out, err
}

// State fetches a state snapshot
func (c *Client) State(ctx context.Context) (types.StateResponse, error) {
	var out types.StateResponse
	err := c.call(ctx, http.MethodGet, "/api/state", nil, &out)
	return out, err
}

// Mechanisms lists the supported mechanisms
func (c *Client) Mechanisms(ctx context.Context) (types.MechanismsResponse, error) {
	var out types.MechanismsResponse
	err := c.call(ctx, http.MethodGet, "/api/mechanisms", nil, &out)
	return out, err
}

// Start starts the simulation
func (c *Client) Start(ctx context.Context) (types.ActionResponse, error) {
	return c.action(ctx, http.MethodPost, "/api/sim/start", nil)
}

// Stop pauses the simulation
func (c *Client) Stop(ctx context.Context) (types.ActionResponse, error) {
	return c.action(ctx, http.MethodPost, "/api/sim/stop", nil)
}

// Toggle flips between running and idle
func (c *Client) Toggle(ctx context.Context) (types.ActionResponse, error) {
	return c.action(ctx, http.MethodPost, "/api/sim/toggle", nil)
}

// Reset resets the simulation
func (c *Client) Reset(ctx context.Context) (types.ActionResponse, error) {
	return c.action(ctx, http.MethodPost, "/api/sim/reset", nil)
}

// SetMechanism switches the IPC mechanism
func (c *Client) SetMechanism(ctx context.Context, tag string) (types.ActionResponse, error) {
	return c.action(ctx, http.MethodPut, "/api/sim/mechanism", types.MechanismRequest{Mechanism: tag})
}

// SelectSource picks the sending process in the shared picker
func (c *Client) SelectSource(ctx context.Context, pid sim.ProcessID) (types.ActionResponse, error) {
	return c.action(ctx, http.MethodPut, "/api/selection/source", types.ProcessRequest{ProcessID: pid})
}

// SelectTarget picks the receiving process in the shared picker
func (c *Client) SelectTarget(ctx context.Context, pid sim.ProcessID) (types.ActionResponse, error) {
	return c.action(ctx, http.MethodPut, "/api/selection/target", types.ProcessRequest{ProcessID: pid})
}

// Send queues a message between two processes
func (c *Client) Send(ctx context.Context, text string, from, to sim.ProcessID) (types.ActionResponse, error) {
	return c.action(ctx, http.MethodPost, "/api/messages", types.MessageRequest{
		Text:   text,
		Source: from,
		Target: to,
	})
}

// Log returns session log entries newer than since
func (c *Client) Log(ctx context.Context, since uint64) ([]sim.Entry, error) {
	var out types.LogResponse
	path := "/api/log?since=" + strconv.FormatUint(since, 10)
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// Follow polls the log every interval and calls fn for each new entry until
// ctx is done. A cleared log is detected through sequence numbers, which
// keep increasing across resets.
func (c *Client) Follow(ctx context.Context, since uint64, interval time.Duration, fn func(sim.Entry)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		entries, err := c.Log(ctx, since)
		if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		for _, e := range entries {
			fn(e)
			since = e.Seq
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (c *Client) action(ctx context.Context, method, path string, body interface{}) (types.ActionResponse, error) {
	var out types.ActionResponse
	err := c.call(ctx, method, path, body, &out)
	return out, err
}

func (c *Client) call(ctx context.Context, method, path string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	return c.breaker.Execute(func() error {
		req := c.resty.R().
			SetContext(ctx).
			SetError(&types.ErrorResponse{})
		if body != nil {
			req.SetBody(body)
		}
		if out != nil {
			req.SetResult(out)
		}

		resp, err := req.Execute(method, path)
		if err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
		if resp.IsError() {
			return apiError(resp)
		}
		return nil
	})
}

func apiError(resp *resty.Response) error {
	e := &APIError{Status: resp.StatusCode(), Message: resp.Status()}
	if body, ok := resp.Error().(*types.ErrorResponse); ok && body.Error != "" {
		e.Code = body.Code
		e.Message = body.Error
		e.Attention = body.Attention
	}
	return e
}
