package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"ecoscanner/internal/catalog"
	"ecoscanner/internal/dto"
	"ecoscanner/internal/logger"
	"ecoscanner/internal/service/ai"
)

const probeTimeout = 3 * time.Second

// Pinger is implemented by storage that can report its own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ViewerCounter reports how many live leaderboard viewers are connected.
type ViewerCounter interface {
	GetClientCount() int
}

// SystemStatus describes the running configuration for /api/system.
type SystemStatus struct {
	Backend      string
	ModelWeights string
	FineTuned    bool
	DatabasePath string
}

// CatalogHandler handles GET /api/catalog.
func CatalogHandler(cat *catalog.Catalog, weightGrams float64, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}

		labels := cat.Labels()
		data := dto.CatalogData{
			Labels:          make([]dto.CatalogLabel, 0, len(labels)),
			Factors:         make(map[string]float64),
			ItemWeightGrams: weightGrams,
		}
		for _, label := range labels {
			data.Labels = append(data.Labels, dto.CatalogLabel{Label: label, Material: string(cat.CategoryOf(label))})
		}
		for category, factor := range cat.Factors() {
			data.Factors[string(category)] = factor
		}
		writeJSON(w, logger, http.StatusOK, data)
	}
}

// SystemHandler handles GET /api/system.
func SystemHandler(status SystemStatus, detector ai.Detector, db Pinger, viewers ViewerCounter, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()

		info := dto.SystemInfo{
			OS:              runtime.GOOS,
			Arch:            runtime.GOARCH,
			GoVersion:       runtime.Version(),
			DetectorBackend: status.Backend,
			ModelWeights:    status.ModelWeights,
			FineTuned:       status.FineTuned,
			Database:        status.DatabasePath,
		}
		if err := detector.Ready(ctx); err != nil {
			info.DetectorError = err.Error()
		} else {
			info.DetectorReady = true
		}
		info.DatabaseOK = db.Ping(ctx) == nil
		if viewers != nil {
			info.LiveViewers = viewers.GetClientCount()
		}
		writeJSON(w, logger, http.StatusOK, info)
	}
}

// HealthHandler handles GET /healthz. The service is unhealthy only when the
// database is unreachable; a detector outage is reported as degraded.
func HealthHandler(detector ai.Detector, db Pinger, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()

		health := dto.Health{Status: "ok", Detector: "ok", Database: "ok"}
		status := http.StatusOK

		if err := detector.Ready(ctx); err != nil {
			health.Detector = "unavailable"
			health.Status = "degraded"
		}
		if err := db.Ping(ctx); err != nil {
			logger.Error("Health check: database unreachable: %v", err)
			health.Database = "unavailable"
			health.Status = "unavailable"
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, logger, status, health)
	}
}
