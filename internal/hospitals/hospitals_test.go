package hospitals_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mindbloom/mindbloom-backend/internal/hospitals"
	"github.com/mindbloom/mindbloom-backend/internal/middleware"
)

func TestCreateHospitalValidation(t *testing.T) {
	h := hospitals.SetupRoutes(middleware.Guards{Admin: middleware.Passthrough, Limit: middleware.Passthrough})

	cases := []struct {
		name string
		body string
		want string
	}{
		{"empty body", ``, "Request body is required"},
		{"bad json", `{"name":`, "Invalid JSON format"},
		{"missing name", `{"emergency_number":"108"}`, "name is required"},
		{"blank number", `{"name":"City Care","emergency_number":"  "}`, "emergency_number is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["status"] != "error" {
				t.Errorf("expected status error, got %q", body["status"])
			}
			if body["message"] != tc.want {
				t.Errorf("expected message %q, got %q", tc.want, body["message"])
			}
		})
	}
}
