package handler

import (
	"encoding/json"
	"net/http"

	"ecoscanner/internal/dto"
	"ecoscanner/internal/logger"
	"ecoscanner/internal/middleware"
)

func writeJSON(w http.ResponseWriter, logger *logger.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, logger *logger.Logger, status int, message string) {
	writeJSON(w, logger, status, dto.ErrorResponse{Error: message})
}

// requireMethod answers 405 and returns false when r does not use method.
func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// currentUser returns the username attached by the auth middleware.
func currentUser(r *http.Request) (string, bool) {
	s, ok := middleware.SessionFromContext(r.Context())
	return s.Username, ok
}
