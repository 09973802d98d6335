package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"support-agent/model"
	"support-agent/realtime"
	"support-agent/service"
)

func QueueHandler(svc *service.QueueService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := mustActor(c)
		businessID := c.Param("businessId")
		if businessID != actor.BusinessID {
			respondError(c, fmt.Errorf("%w: queue of another business", model.ErrForbidden))
			return
		}
		items, err := svc.Waiting(c.Request.Context(), businessID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"queue": items, "count": len(items)})
	}
}

func AgentStatusHandler(svc *service.QueueService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Status model.AgentStatus `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		actor := mustActor(c)
		p, err := svc.SetAgentStatus(c.Request.Context(), actor.BusinessID, actor.AgentID, req.Status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// AgentsHandler lists the stored status of every agent next to who is connected right now.
func AgentsHandler(svc *service.QueueService, rt *realtime.Router) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := mustActor(c)
		agents, err := svc.Agents(c.Request.Context(), actor.BusinessID)
		if err != nil {
			respondError(c, err)
			return
		}
		online, err := rt.OnlineAgents(c.Request.Context(), actor.BusinessID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"agents": agents, "online": online})
	}
}
