package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"support-agent/model"
	"support-agent/service"
)

var outcomeStatus = map[model.Outcome]int{
	model.OutcomeOK:          http.StatusOK,
	model.OutcomeUnavailable: http.StatusServiceUnavailable,
	model.OutcomeError:       http.StatusInternalServerError,
}

// ChatHandler answers a customer message. The body is a reply even when the status is 5xx,
// so the widget can always show a next step.
func ChatHandler(chatSvc *service.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req model.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		req.BusinessSlug = c.Param("businessSlug")

		resp, err := chatSvc.HandleMessage(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}

		status, ok := outcomeStatus[resp.Outcome]
		if !ok {
			status = http.StatusOK
		}
		c.JSON(status, resp)
	}
}
