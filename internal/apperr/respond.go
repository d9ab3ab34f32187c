package apperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Respond writes err as a JSON body with the mapped status code. Unknown
// errors are reported as a generic 500 so internals never leak to clients.
func Respond(c *gin.Context, err error) {
	var e *Error
	if !errors.As(err, &e) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	body := gin.H{"error": e.Message}
	if len(e.Fields) > 0 {
		body["fields"] = e.Fields
	}
	c.AbortWithStatusJSON(HTTPStatus(e), body)
}
