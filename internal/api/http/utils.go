package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/ipc-visualizer/internal/shared/types"
)

// bind decodes the JSON body into v, answering 400 on failure.
func bind(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error: "invalid request body: " + err.Error(),
			Code:  "bad_request",
		})
		return false
	}
	return true
}
