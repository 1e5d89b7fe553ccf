package ui

import (
	"time"

	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/domain/core"

	"github.com/gin-gonic/gin"
)

const (
	consumerHeader = "X-Consumer-ID"
	consumerKey    = "consumer"
)

// setupMiddleware configures Gin middleware
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.requestLogger())
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("%s %s -> %d in %v", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// consumerMiddleware resolves the consumer a request belongs to, from the
// X-Consumer-ID header or the consumer query parameter. Requests without one
// get a fresh ID and therefore no ordering relative to other requests.
func consumerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(consumerHeader)
		if raw == "" {
			raw = c.Query(consumerKey)
		}
		id, err := core.ParseConsumerID(raw)
		if err != nil {
			id = core.NewConsumerID()
		}
		c.Set(consumerKey, id)
		c.Header(consumerHeader, id.String())
		c.Next()
	}
}

func consumerFrom(c *gin.Context) core.ConsumerID {
	if v, ok := c.Get(consumerKey); ok {
		if id, ok := v.(core.ConsumerID); ok {
			return id
		}
	}
	return core.NewConsumerID()
}
