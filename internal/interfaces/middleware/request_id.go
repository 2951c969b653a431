package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/ynput/ayon-backend-sub000/pkg/logger"
	"github.com/ynput/ayon-backend-sub000/pkg/utils"
)

// HeaderRequestID carries the request ID in both directions
const HeaderRequestID = "X-Request-ID"

// RequestID tags every request with an ID used in log entries
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = utils.GenerateID()
		}
		c.Writer.Header().Set(HeaderRequestID, id)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}
