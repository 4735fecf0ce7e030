package http

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ipc-visualizer/internal/render"
)

// Scene returns the current display list
func (h *Handlers) Scene(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, snap.Scene)
}

// FramePNG rasterizes the current scene
func (h *Handlers) FramePNG(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}

	// Encode fully before writing so a raster failure can still become a 500.
	var buf bytes.Buffer
	if err := render.EncodePNG(&buf, snap.Scene); err != nil {
		h.logger.Error("failed to rasterize frame", zap.Uint64("seq", snap.Seq), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render frame"})
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}
