// Package handlers implements the demo service endpoints that the request
// metrics are recorded for.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/giygas/routemetrics/interfaces"
	"github.com/go-chi/chi/v5"
)

// Hello answers GET /hello
func Hello(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]string{"message": "hello"})
}

// GetUser answers GET /users/{id}. Only positive numeric ids exist.
func GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		RespondWithError(w, http.StatusNotFound, "user not found")
		return
	}

	RespondWithJSON(w, http.StatusOK, map[string]any{
		"id":   id,
		"name": "user-" + strconv.Itoa(id),
	})
}

// SubmitRequest is the body of POST /submit
type SubmitRequest struct {
	Name string `json:"name"`
}

// Submit answers POST /submit
func Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		RespondWithError(w, http.StatusUnprocessableEntity, "name is required")
		return
	}

	RespondWithJSON(w, http.StatusCreated, map[string]string{"accepted": req.Name})
}

// HealthCheck answers GET /health from checker
func HealthCheck(checker interfaces.HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, data, httpStatus := checker.HealthCheck()
		RespondWithJSON(w, httpStatus, map[string]any{
			"status": status,
			"data":   data,
		})
	}
}
