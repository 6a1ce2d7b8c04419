package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Header carries the request ID between services; inbound values are
// reused so the portal's logs correlate with upstream proxies.
const Header = "X-Request-ID"

const contextKey = "request_id"

// maxInboundLen caps client-supplied request IDs so a hostile header
// cannot bloat every log line for the request.
const maxInboundLen = 64

// Middleware assigns a request ID to each incoming HTTP request,
// honouring a sane inbound X-Request-ID when one is supplied.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(Header)
		if reqID == "" || len(reqID) > maxInboundLen {
			reqID = uuid.NewString()
		}

		c.Set(contextKey, reqID)
		c.Writer.Header().Set(Header, reqID)

		c.Next()
	}
}

// Value returns the request ID stored in the Gin context.
func Value(c *gin.Context) string {
	if v, exists := c.Get(contextKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
