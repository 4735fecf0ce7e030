package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ipc-visualizer/internal/domain/sim"
	"github.com/GriffinCanCode/ipc-visualizer/internal/shared/types"
)

// Log returns session log entries.
// Query params:
//   - since: only entries with a greater sequence number
//   - format: "text" for "[HH:MM:SS] message" lines, JSON otherwise
func (h *Handlers) Log(c *gin.Context) {
	entries, ok := h.entries(c)
	if !ok {
		return
	}

	if c.Query("format") == "text" {
		var b strings.Builder
		for _, e := range entries {
			b.WriteString(e.String())
			b.WriteByte('\n')
		}
		c.String(http.StatusOK, b.String())
		return
	}

	c.JSON(http.StatusOK, types.LogResponse{Entries: entries})
}

// ExportLog streams the session log as gzip-compressed NDJSON
func (h *Handlers) ExportLog(c *gin.Context) {
	entries, ok := h.entries(c)
	if !ok {
		return
	}

	name := fmt.Sprintf("ipc-session-%s.ndjson.gz", h.startedAt.UTC().Format("20060102-150405"))
	c.Header("Content-Type", "application/gzip")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Status(http.StatusOK)

	zw := gzip.NewWriter(c.Writer)
	enc := sonic.ConfigDefault.NewEncoder(zw)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			h.logger.Warn("log export aborted", zap.Error(err))
			break
		}
	}
	if err := zw.Close(); err != nil {
		h.logger.Warn("failed to finish log export", zap.Error(err))
	}
}

func (h *Handlers) entries(c *gin.Context) ([]sim.Entry, bool) {
	var since uint64
	if s := c.Query("since"); s != "" {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, types.ErrorResponse{
				Error: "invalid since: " + s,
				Code:  "bad_request",
			})
			return nil, false
		}
		since = v
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	entries, err := h.sim.EntriesSince(ctx, since)
	if err != nil {
		h.unavailable(c, err)
		return nil, false
	}
	if entries == nil {
		entries = []sim.Entry{}
	}
	return entries, true
}
