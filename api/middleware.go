package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"support-agent/internal/auth"
	"support-agent/service"
)

const actorKey = "actor"

// RequestLogger attaches a request-scoped logger to the request context and logs the outcome.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header("X-Request-ID", requestID)

		reqLog := log.With().Str("request_id", requestID).Logger()
		c.Request = c.Request.WithContext(reqLog.WithContext(c.Request.Context()))
		c.Next()

		ev := reqLog.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			ev = reqLog.Error()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// bearerToken reads the Authorization header, or the token query parameter that
// EventSource clients have to use.
func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return c.Query("token")
}

func authenticate(c *gin.Context, signer *auth.Signer, raw string) bool {
	claims, err := signer.Parse(raw)
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Debug().Err(err).Msg("rejected agent token")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return false
	}
	c.Set(actorKey, service.Actor{AgentID: claims.AgentID, BusinessID: claims.BusinessID})
	return true
}

// AgentAuth requires a valid agent token.
func AgentAuth(signer *auth.Signer) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		if authenticate(c, signer, raw) {
			c.Next()
		}
	}
}

// OptionalAgentAuth identifies an agent when a token is sent and lets anonymous callers through.
func OptionalAgentAuth(signer *auth.Signer) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.Next()
			return
		}
		if authenticate(c, signer, raw) {
			c.Next()
		}
	}
}

func actorFrom(c *gin.Context) (service.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return service.Actor{}, false
	}
	a, ok := v.(service.Actor)
	return a, ok
}

// mustActor is for routes behind AgentAuth.
func mustActor(c *gin.Context) service.Actor {
	a, _ := actorFrom(c)
	return a
}
