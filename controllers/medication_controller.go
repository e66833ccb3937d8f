package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"maternal-triage-backend/models"
	"maternal-triage-backend/services"
)

type MedicationController struct {
	medicationService *services.MedicationService
}

func NewMedicationController(medicationService *services.MedicationService) *MedicationController {
	return &MedicationController{
		medicationService: medicationService,
	}
}

// HandleMedication normalizes a medication workflow and fills in the restock date
func (mc *MedicationController) HandleMedication(c *gin.Context) {
	var req models.MedicationData

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:  "error",
			Error:   "Invalid request format",
			Details: err.Error(),
		})
		return
	}

	data, err := mc.medicationService.Process(req)
	if err != nil {
		status, body := errorResponse(err)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"action":  models.ActionMedication,
		"message": "Medication workflow processed successfully",
		"data":    data,
	})
}
