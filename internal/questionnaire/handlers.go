package questionnaire

import (
	"net/http"

	"github.com/mindbloom/mindbloom-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

const errUpstreamUnavailable = "Question service is unavailable"

type Handler struct {
	Generator *Generator
}

type nextQuestionRequest struct {
	ConversationHistory []HistoryEntry `json:"conversation_history"`
	QuestionNumber      int            `json:"question_number" validate:"gte=1"`
	TotalQuestions      int            `json:"total_questions" validate:"gte=1"`
}

func (h *Handler) NextQuestion(w http.ResponseWriter, r *http.Request) {
	req := nextQuestionRequest{QuestionNumber: 1, TotalQuestions: 10}
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	q := h.Generator.Next(r.Context(), req.ConversationHistory, req.QuestionNumber, req.TotalQuestions)

	utils.WriteJSON(w, map[string]any{
		"success":         true,
		"question":        q.Question,
		"options":         q.Options,
		"type":            q.Type,
		"follow_up_areas": q.FollowUpAreas,
	})
}

// Connection checks the completion endpoint with a one-line round trip.
func (h *Handler) Connection(w http.ResponseWriter, r *http.Request) {
	if !h.Generator.Configured() {
		utils.WriteJSONStatus(w, http.StatusServiceUnavailable, map[string]any{
			"success":     false,
			"error":       ErrNotConfigured.Error(),
			"api_working": false,
		})
		return
	}

	msg, err := h.Generator.Ping(r.Context())
	if err != nil {
		logrus.WithError(err).Warn("completion endpoint check failed")
		utils.WriteJSONStatus(w, http.StatusBadGateway, map[string]any{
			"success":     false,
			"error":       errUpstreamUnavailable,
			"api_working": false,
		})
		return
	}

	utils.WriteJSON(w, map[string]any{
		"success":     true,
		"message":     msg,
		"api_working": true,
	})
}
