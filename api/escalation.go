package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"support-agent/model"
	"support-agent/service"
)

func CreateEscalationHandler(svc *service.EscalationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in service.CreateEscalationInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err)
			return
		}
		res, err := svc.CreateEscalation(c.Request.Context(), in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, res)
	}
}

func UpdateStatusHandler(svc *service.EscalationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Status model.EscalationStatus `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		e, err := svc.UpdateStatus(c.Request.Context(), mustActor(c), c.Param("id"), req.Status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, e)
	}
}

// CaseOwnerHandler assigns the case owner; a null or empty caseOwnerId unassigns.
func CaseOwnerHandler(svc *service.EscalationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			CaseOwnerID *string `json:"caseOwnerId"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		owner := ""
		if req.CaseOwnerID != nil {
			owner = *req.CaseOwnerID
		}
		e, err := svc.AssignCaseOwner(c.Request.Context(), mustActor(c), c.Param("id"), owner)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, e)
	}
}

func AddNoteHandler(svc *service.EscalationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Note string `json:"note"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		a, err := svc.AddNote(c.Request.Context(), mustActor(c), c.Param("id"), req.Note)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, a)
	}
}

func ActivityHandler(svc *service.EscalationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := svc.Activity(c.Request.Context(), mustActor(c), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"activity": items})
	}
}

// RateHandler is public and keyed by case number like CaseLookupHandler.
func RateHandler(svc *service.EscalationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Rating  int    `json:"rating"`
			Comment string `json:"comment"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		e, err := svc.Rate(c.Request.Context(), c.Param("businessId"), c.Param("caseNumber"), req.Rating, req.Comment)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"caseNumber": e.CaseNumber, "rating": e.Rating})
	}
}

// CaseLookupHandler is public, so it only returns the case number and status.
func CaseLookupHandler(svc *service.EscalationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		cs, err := svc.CaseStatus(c.Request.Context(), c.Param("businessId"), c.Param("caseNumber"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, cs)
	}
}
