package doctors

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/mindbloom/mindbloom-backend/internal/db"
	"github.com/mindbloom/mindbloom-backend/internal/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeSpecialist trims, collapses whitespace and title-cases a specialty
// so "  child   PSYCHOLOGIST" is stored as "Child Psychologist". A Caser is
// stateful, so each call builds its own.
func NormalizeSpecialist(s string) string {
	return cases.Title(language.English).String(strings.Join(strings.Fields(s), " "))
}

// DoctorOut is the listing shape; fees are rendered with two decimals.
type DoctorOut struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Specialist string `json:"specialist"`
	Fees       string `json:"fees"`
}

func toOut(d Doctor) DoctorOut {
	return DoctorOut{
		ID:         d.ID,
		Name:       d.Name,
		Specialist: d.Specialist,
		Fees:       fmt.Sprintf("%.2f", d.Fees),
	}
}

type createDoctorRequest struct {
	Name       string   `json:"name" validate:"required,max=100"`
	Specialist string   `json:"specialist" validate:"required,max=100"`
	Fees       *float64 `json:"fees" validate:"required,gte=0"`
}

// CreateDoctor adds a doctor to the directory.
func CreateDoctor(w http.ResponseWriter, r *http.Request) {
	var req createDoctorRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Specialist = NormalizeSpecialist(req.Specialist)
	if err := utils.ValidateStruct(req); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	doctor := Doctor{
		ID:         utils.GenerateUUID(),
		Name:       req.Name,
		Specialist: req.Specialist,
		Fees:       *req.Fees,
	}
	if err := db.DB.WithContext(r.Context()).Create(&doctor).Error; err != nil {
		utils.WriteError(w, r, utils.Store("create doctor", err))
		return
	}
	logrus.WithFields(logrus.Fields{"doctor_id": doctor.ID, "specialist": doctor.Specialist}).Info("doctor saved")

	utils.WriteJSONStatus(w, http.StatusCreated, map[string]any{
		"success":   true,
		"message":   "Doctor saved successfully!",
		"doctor_id": doctor.ID,
	})
}

func writeDoctors(w http.ResponseWriter, list []Doctor) {
	out := make([]DoctorOut, 0, len(list))
	for _, d := range list {
		out = append(out, toOut(d))
	}
	utils.AddCacheHeaders(w, 60)
	utils.WriteJSON(w, map[string]any{
		"success": true,
		"doctors": out,
	})
}

// ListDoctors returns the whole directory ordered by name.
func ListDoctors(w http.ResponseWriter, r *http.Request) {
	var list []Doctor
	if err := db.DB.WithContext(r.Context()).Order("name").Find(&list).Error; err != nil {
		utils.WriteError(w, r, utils.Store("list doctors", err))
		return
	}
	writeDoctors(w, list)
}

// DoctorsBySpecialist matches the specialty case-insensitively.
func DoctorsBySpecialist(w http.ResponseWriter, r *http.Request) {
	specialist := strings.Join(strings.Fields(chi.URLParam(r, "specialist")), " ")
	if specialist == "" {
		utils.WriteError(w, r, utils.Invalid("specialist", "is required"))
		return
	}

	var list []Doctor
	err := db.DB.WithContext(r.Context()).
		Where("LOWER(specialist) = LOWER(?)", specialist).
		Order("name").
		Find(&list).Error
	if err != nil {
		utils.WriteError(w, r, utils.Store("list doctors by specialist", err))
		return
	}
	writeDoctors(w, list)
}
