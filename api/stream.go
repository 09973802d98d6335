package api

import (
	"context"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"support-agent/realtime"
)

const keepAliveInterval = 25 * time.Second

// AgentStreamHandler streams the agent's status, notification and chat rooms as
// Server-Sent Events for as long as the connection stays open.
func AgentStreamHandler(rt *realtime.Router) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := mustActor(c)
		ctx := c.Request.Context()
		sub, err := rt.RegisterAgent(ctx, actor.BusinessID, actor.AgentID)
		if err != nil {
			respondError(c, err)
			return
		}
		defer rt.UnregisterAgent(context.WithoutCancel(ctx), actor.BusinessID, actor.AgentID, sub)

		zerolog.Ctx(ctx).Info().Str("agent", actor.AgentID).Str("connection", sub.ID).Msg("agent stream opened")
		stream(c, sub)
	}
}

// SessionStreamHandler streams a customer's live-chat room once their session has an escalation.
func SessionStreamHandler(rt *realtime.Router) gin.HandlerFunc {
	return func(c *gin.Context) {
		sub, err := rt.SubscribeSession(c.Request.Context(), c.Param("businessId"), c.Param("sessionId"))
		if err != nil {
			respondError(c, err)
			return
		}
		defer rt.Unsubscribe(sub)
		stream(c, sub)
	}
}

func stream(c *gin.Context, sub *realtime.Subscription) {
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("connected", gin.H{"connectionId": sub.ID})
	c.Writer.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case ev, ok := <-sub.Events():
			if !ok {
				return false
			}
			c.SSEvent(ev.Type, ev)
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		}
	})
}
