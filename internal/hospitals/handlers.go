package hospitals

import (
	"errors"
	"net/http"
	"strings"

	"github.com/mindbloom/mindbloom-backend/internal/db"
	"github.com/mindbloom/mindbloom-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

const createdAtLayout = "2006-01-02 15:04"

type HospitalOut struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	EmergencyNumber string `json:"emergency_number"`
	CreatedAt       string `json:"created_at"`
}

type createHospitalRequest struct {
	Name            string `json:"name" validate:"required,max=200"`
	EmergencyNumber string `json:"emergency_number" validate:"required,max=20"`
}

// writeStatusError keeps the hospital endpoints on their {status, message}
// envelope instead of the {error} body used elsewhere.
func writeStatusError(w http.ResponseWriter, r *http.Request, err error) {
	status := utils.StatusFor(err)
	msg := err.Error()
	var se *utils.StoreError
	if errors.As(err, &se) {
		logrus.WithError(err).WithField("path", r.URL.Path).Error("hospital request failed")
		msg = "Internal server error"
	}
	body := map[string]any{
		"status":  "error",
		"message": msg,
	}
	var ve *utils.ValidationError
	if errors.As(err, &ve) && ve.Field != "" {
		body["field"] = ve.Field
	}
	utils.WriteJSONStatus(w, status, body)
}

func CreateHospital(w http.ResponseWriter, r *http.Request) {
	var req createHospitalRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		writeStatusError(w, r, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.EmergencyNumber = strings.TrimSpace(req.EmergencyNumber)
	if err := utils.ValidateStruct(req); err != nil {
		writeStatusError(w, r, err)
		return
	}

	hospital := Hospital{
		ID:              utils.GenerateUUID(),
		Name:            req.Name,
		EmergencyNumber: req.EmergencyNumber,
	}
	if err := db.DB.WithContext(r.Context()).Create(&hospital).Error; err != nil {
		writeStatusError(w, r, utils.Store("create hospital", err))
		return
	}
	logrus.WithField("hospital_id", hospital.ID).Info("hospital added")

	utils.WriteJSONStatus(w, http.StatusCreated, map[string]any{
		"status":      "success",
		"message":     "Hospital added successfully",
		"hospital_id": hospital.ID,
	})
}

func ListHospitals(w http.ResponseWriter, r *http.Request) {
	var list []Hospital
	if err := db.DB.WithContext(r.Context()).Order("name").Find(&list).Error; err != nil {
		writeStatusError(w, r, utils.Store("list hospitals", err))
		return
	}

	out := make([]HospitalOut, 0, len(list))
	for _, h := range list {
		out = append(out, HospitalOut{
			ID:              h.ID,
			Name:            h.Name,
			EmergencyNumber: h.EmergencyNumber,
			CreatedAt:       h.CreatedAt.Format(createdAtLayout),
		})
	}

	utils.AddCacheHeaders(w, 60)
	utils.WriteJSON(w, map[string]any{
		"status":    "success",
		"hospitals": out,
	})
}
