package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"support-agent/model"
	"support-agent/service"
)

// SendMessageHandler accepts live-chat messages from customers and, with a token, from agents.
func SendMessageHandler(svc *service.MessageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in service.SendMessageInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err)
			return
		}
		var actor *service.Actor
		if a, ok := actorFrom(c); ok {
			actor = &a
		}
		res, err := svc.Send(c.Request.Context(), actor, in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, res)
	}
}

func FeedbackHandler(svc *service.MessageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Feedback model.Feedback `json:"feedback"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		m, err := svc.SetFeedback(c.Request.Context(), c.Param("id"), req.Feedback)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": m.ID, "feedback": m.Feedback})
	}
}
