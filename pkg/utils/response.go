package utils

import (
	"github.com/gin-gonic/gin"

	"phlebcare-backend/pkg/apperr"
)

// Response is the envelope every endpoint answers with so the frontend can
// parse success and failure the same way.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func APIResponse(c *gin.Context, code int, success bool, message string, data interface{}) {
	c.JSON(code, Response{
		Success: success,
		Message: message,
		Data:    data,
	})
}

// APIError answers with the status and message derived from the error's
// kind. Untyped errors come out as a generic 500.
func APIError(c *gin.Context, err error) {
	APIResponse(c, apperr.Status(err), false, apperr.Message(err), nil)
}
