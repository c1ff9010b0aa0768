package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/princinho/dashbackend/telemetry"
)

// Metrics counts requests by route template rather than raw path so that
// ids and serial numbers do not explode label cardinality.
func Metrics(m *telemetry.Collectors) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		m.ObserveRequest(c.Request.Method, c.FullPath(), c.Writer.Status())
	}
}
