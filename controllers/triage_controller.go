package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"maternal-triage-backend/models"
	"maternal-triage-backend/services"
)

type TriageController struct {
	triageService *services.TriageService
}

func NewTriageController(triageService *services.TriageService) *TriageController {
	return &TriageController{
		triageService: triageService,
	}
}

// HandleEvent routes a setup, daily_log or doubt event
func (tc *TriageController) HandleEvent(c *gin.Context) {
	var req models.EventRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:  "error",
			Error:   "Invalid request format",
			Details: err.Error(),
		})
		return
	}

	response, err := tc.triageService.ProcessEvent(c.Request.Context(), req)
	if err != nil {
		status, body := errorResponse(err)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetSupportedIntents returns list of supported intents
func (tc *TriageController) GetSupportedIntents(c *gin.Context) {
	intents := []map[string]interface{}{
		{
			"intent":      models.EventSetup,
			"description": "Create a profile and generate a safe medication schedule",
			"fields":      []string{"name", "medicine.dosage", "medicine.freq", "medicine.total", "start_date"},
		},
		{
			"intent":      models.EventDailyLog,
			"description": "Report symptoms and vitals for triage",
			"fields":      []string{"symptoms", "severity", "fetal_movement", "bp_systolic"},
		},
		{
			"intent":      models.EventDoubt,
			"description": "Ask a question; urgent questions are booked as appointments",
			"fields":      []string{"text"},
		},
	}

	c.JSON(http.StatusOK, gin.H{
		"intents": intents,
	})
}

// errorResponse maps a routing error to an HTTP status and body
func errorResponse(err error) (int, models.ErrorResponse) {
	switch {
	case errors.Is(err, models.ErrUnknownIntent):
		return http.StatusBadRequest, models.ErrorResponse{Status: "error", Error: "Unknown Intent", Details: err.Error()}
	case errors.Is(err, models.ErrMalformedPayload):
		return http.StatusBadRequest, models.ErrorResponse{Status: "error", Error: "Malformed Payload", Details: err.Error()}
	default:
		return http.StatusInternalServerError, models.ErrorResponse{Status: "error", Error: "Internal Error"}
	}
}
