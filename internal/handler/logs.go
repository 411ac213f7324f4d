package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"ecoscanner/internal/logger"
)

// ShowLogsHandler serves one of the logger's level files as text/plain.
func ShowLogsHandler(log *logger.Logger, filename string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveLogFile(w, r, log.Dir(), filename)
	}
}

// serveLogFile sets headers and serves a log file if it exists.
func serveLogFile(w http.ResponseWriter, r *http.Request, logDir, filename string) {
	if logDir == "" {
		http.Error(w, "Log file not found: "+filename, http.StatusNotFound)
		return
	}
	filePath := filepath.Join(logDir, filename)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.Error(w, "Log file not found: "+filename, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	http.ServeFile(w, r, filePath)
}

// ClearLogsHandler truncates one of the logger's level files.
func ClearLogsHandler(log *logger.Logger, filename string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		if err := log.CleanLogs(filename); err != nil {
			http.Error(w, "Unable to clear "+filename, http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
