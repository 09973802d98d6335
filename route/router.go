package route

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"support-agent/api"
	"support-agent/internal/auth"
	"support-agent/realtime"
	"support-agent/service"
)

type Services struct {
	Chat        *service.ChatService
	Escalations *service.EscalationService
	Queue       *service.QueueService
	Messages    *service.MessageService
	Realtime    *realtime.Router
	Signer      *auth.Signer
}

func Register(r *gin.Engine, s Services) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	agentAuth := api.AgentAuth(s.Signer)

	// customer chat
	r.POST("/ask/chat/:businessSlug", api.ChatHandler(s.Chat))

	esc := r.Group("/escalation")
	{
		esc.POST("", api.CreateEscalationHandler(s.Escalations))
		esc.GET("/case/:businessId/:caseNumber", api.CaseLookupHandler(s.Escalations))
		esc.POST("/case/:businessId/:caseNumber/rating", api.RateHandler(s.Escalations))

		agent := esc.Group("", agentAuth)
		agent.PATCH("/:id/status", api.UpdateStatusHandler(s.Escalations))
		agent.PATCH("/:id/case-owner", api.CaseOwnerHandler(s.Escalations))
		agent.POST("/:id/notes", api.AddNoteHandler(s.Escalations))
		agent.GET("/:id/activity", api.ActivityHandler(s.Escalations))
	}

	chat := r.Group("/chat")
	{
		chat.POST("/messages", api.OptionalAgentAuth(s.Signer), api.SendMessageHandler(s.Messages))
		chat.PATCH("/messages/:id/feedback", api.FeedbackHandler(s.Messages))
		chat.GET("/sessions/:businessId/:sessionId/stream", api.SessionStreamHandler(s.Realtime))

		agent := chat.Group("", agentAuth)
		agent.GET("/queue/:businessId", api.QueueHandler(s.Queue))
		agent.PUT("/agents/status", api.AgentStatusHandler(s.Queue))
		agent.GET("/agents", api.AgentsHandler(s.Queue, s.Realtime))
		agent.GET("/stream", api.AgentStreamHandler(s.Realtime))
	}
}
