package handler

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strconv"

	"ecoscanner/internal/dto"
	"ecoscanner/internal/logger"
	"ecoscanner/internal/repository"
	"ecoscanner/internal/service/ai"
	"ecoscanner/internal/service/impact"
	"ecoscanner/internal/service/scan"
)

const (
	msgScanFailed  = "scan failed: could not read image, try again"
	msgNoMaterial  = "no recognized material"
	msgUnavailable = "detector unavailable, try again later"
)

// ScanHandler handles POST /api/scan with a multipart "image" field. Records
// are cached under a scan ID so they can be committed individually.
func ScanHandler(pipeline *impact.Pipeline, scans *scan.Store, maxUploadBytes int64, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		username, _ := currentUser(r)

		if r.ContentLength > maxUploadBytes {
			writeError(w, logger, http.StatusRequestEntityTooLarge, "image too large")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, logger, http.StatusRequestEntityTooLarge, "image too large")
				return
			}
			writeError(w, logger, http.StatusBadRequest, "expected multipart form with an image field")
			return
		}

		file, _, err := r.FormFile("image")
		if err != nil {
			writeError(w, logger, http.StatusBadRequest, "image field is required")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, logger, http.StatusBadRequest, "could not read upload")
			return
		}

		result, err := pipeline.Run(r.Context(), data)
		if errors.Is(err, ai.ErrInput) {
			logger.Warning("Rejected upload from %s: %v", username, err)
			writeError(w, logger, http.StatusUnprocessableEntity, msgScanFailed)
			return
		}
		if err != nil {
			logger.Error("Scan for %s failed: %v", username, err)
			writeError(w, logger, http.StatusServiceUnavailable, msgUnavailable)
			return
		}

		resp := dto.ScanResult{
			Records:     dto.NewScanRecords(result.Records, result.Detections),
			InferenceMs: result.Inference.Milliseconds(),
		}
		if len(result.Records) == 0 {
			resp.Message = msgNoMaterial
			writeJSON(w, logger, http.StatusOK, resp)
			return
		}

		resp.ScanID = scans.Save(username, result.Records)
		if result.Annotated != nil {
			resp.AnnotatedImage = base64.StdEncoding.EncodeToString(result.Annotated)
		}
		logger.Info("Scan %s by %s: %d objects in %dms", resp.ScanID, username, len(resp.Records), resp.InferenceMs)
		writeJSON(w, logger, http.StatusOK, resp)
	}
}

// CommitHandler handles POST /api/scan/commit with form fields scan_id and
// index. The stored record is appended to the user's history and the
// leaderboard is pushed to live viewers.
func CommitHandler(scans *scan.Store, history repository.HistoryRepository, hub Broadcaster, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		username, _ := currentUser(r)

		scanID := r.FormValue("scan_id")
		index, err := strconv.Atoi(r.FormValue("index"))
		if scanID == "" || err != nil {
			writeError(w, logger, http.StatusBadRequest, "scan_id and a numeric index are required")
			return
		}

		record, err := scans.Commit(username, scanID, index)
		switch {
		case errors.Is(err, scan.ErrScanNotFound):
			writeError(w, logger, http.StatusNotFound, "scan result not found or expired")
			return
		case errors.Is(err, scan.ErrAlreadyCommitted):
			writeError(w, logger, http.StatusConflict, "result already committed")
			return
		case err != nil:
			logger.Error("Commit lookup failed: %v", err)
			writeError(w, logger, http.StatusInternalServerError, "commit failed")
			return
		}

		id, err := history.Append(r.Context(), username, record.Material, record.CO2SavedKg)
		if err != nil {
			scans.Release(username, scanID, index)
			logger.Error("Failed to store history for %s: %v", username, err)
			writeError(w, logger, http.StatusServiceUnavailable, "could not save result, try again")
			return
		}

		logger.Info("%s committed %s (%.4f kg CO2)", username, record.Material, record.CO2SavedKg)
		PublishLeaderboard(r.Context(), history, hub, logger)

		writeJSON(w, logger, http.StatusCreated, dto.CommitResult{
			ID:         id,
			Label:      record.Label,
			Material:   string(record.Material),
			CO2SavedKg: record.CO2SavedKg,
		})
	}
}
