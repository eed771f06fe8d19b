package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func GenerateUUID() string {
	return uuid.New().String()
}

func WriteJSON(w http.ResponseWriter, v any) {
	WriteJSONStatus(w, http.StatusOK, v)
}

func WriteJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// AddCacheHeaders marks a read response as publicly cacheable.
func AddCacheHeaders(w http.ResponseWriter, maxAgeSeconds int) {
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", maxAgeSeconds))
	w.Header().Set("Vary", "Accept-Encoding")
}

// WriteError writes {"error": ...} with the status for the error's kind.
// Rate limit errors also carry days_remaining. Store errors are logged and
// replaced with a generic message.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	body := map[string]any{"error": err.Error()}

	var ve *ValidationError
	if errors.As(err, &ve) && ve.Field != "" {
		body["field"] = ve.Field
	}

	var rl *RateLimitedError
	if errors.As(err, &rl) {
		body["error"] = "rate_limited"
		body["days_remaining"] = rl.DaysRemaining
		body["message"] = rl.Error()
	}

	if status == http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).WithError(err).Error("request failed")
		body["error"] = "Internal server error"
	}

	WriteJSONStatus(w, status, body)
}

// DecodeJSON decodes the request body into dst. An empty or malformed body is a
// ValidationError.
func DecodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return Invalid("", "Request body is required")
		}
		return Invalid("", "Invalid JSON format")
	}
	return nil
}
