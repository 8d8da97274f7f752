package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// LimitBody caps how much of the request body handlers may read.
func LimitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}
