package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/householdpro/backend/internal/metrics"
)

// Metrics records every request under its route template, not the raw path.
func Metrics(collector metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		collector.ObserveHTTP(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
