package services

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"maternal-triage-backend/models"
	"maternal-triage-backend/utils"
)

// MedicationService normalizes medication workflow payloads
type MedicationService struct {
	validate *validator.Validate
	logger   *zap.Logger
}

func NewMedicationService(logger *zap.Logger) *MedicationService {
	return &MedicationService{
		validate: validator.New(),
		logger:   logger,
	}
}

// Process fills in the dose schedule and the restock date when the caller did
// not supply them and there is enough information to compute them.
func (ms *MedicationService) Process(data models.MedicationData) (models.MedicationData, error) {
	if err := ms.validate.Struct(data); err != nil {
		return data, fmt.Errorf("%w: %v", models.ErrMalformedPayload, err)
	}

	// zero counts carry no information
	data.DosagePerIntake = positiveOrNil(data.DosagePerIntake)
	data.FrequencyPerDay = positiveOrNil(data.FrequencyPerDay)
	data.TotalTabletsAvailable = positiveOrNil(data.TotalTabletsAvailable)

	if data.ScheduleTimes == nil {
		data.ScheduleTimes = []string{}
	}
	if len(data.ScheduleTimes) == 0 && data.FrequencyPerDay != nil {
		data.ScheduleTimes = utils.CalculateSchedule(*data.FrequencyPerDay)
	}

	if data.PredictedRestockDate == nil && data.StartDate != nil &&
		data.TotalTabletsAvailable != nil && data.DosagePerIntake != nil && data.FrequencyPerDay != nil {
		start, err := utils.ParseDate(*data.StartDate)
		if err != nil {
			return data, fmt.Errorf("%w: start_date: %v", models.ErrMalformedPayload, err)
		}
		if restock, ok := utils.RestockDate(start, *data.TotalTabletsAvailable, *data.DosagePerIntake, *data.FrequencyPerDay); ok {
			formatted := utils.FormatDate(restock)
			data.PredictedRestockDate = &formatted
		}
	}

	ms.logger.Debug("medication workflow processed", zap.Any("medicine_name", data.MedicineName))
	return data, nil
}

func positiveOrNil(v *int) *int {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}
