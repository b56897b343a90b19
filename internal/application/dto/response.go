package dto

import (
	"github.com/gin-gonic/gin"

	"github.com/graphbind/graphbind/pkg/errors"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// SendError writes err as a JSON error response with its mapped HTTP status.
func SendError(c *gin.Context, err error) {
	code := errors.CodeOf(err)
	c.JSON(errors.HTTPStatusOf(err), ErrorResponse{
		Error:            string(code),
		ErrorDescription: err.Error(),
	})
}

// SendSuccess writes payload as JSON with the given status.
func SendSuccess(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}
