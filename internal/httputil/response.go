// Package httputil holds the error envelope shared by handlers and
// middleware.
package httputil

import "github.com/gin-gonic/gin"

// RespondError writes the JSON error envelope and aborts the request.
// The request ID is included when the requestid middleware set one, so
// clients can quote it in support reports.
func RespondError(c *gin.Context, status int, code, message string) {
	body := gin.H{
		"code":    code,
		"message": message,
	}
	if rid, ok := c.Get("request_id"); ok {
		if s, ok := rid.(string); ok && s != "" {
			body["request_id"] = s
		}
	}

	c.AbortWithStatusJSON(status, body)
}
