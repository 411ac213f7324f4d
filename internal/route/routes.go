package route

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ecoscanner/internal/catalog"
	"ecoscanner/internal/config"
	"ecoscanner/internal/handler"
	"ecoscanner/internal/logger"
	"ecoscanner/internal/middleware"
	"ecoscanner/internal/repository"
	"ecoscanner/internal/repository/sqlite"
	"ecoscanner/internal/service/account"
	"ecoscanner/internal/service/ai"
	"ecoscanner/internal/service/impact"
	"ecoscanner/internal/service/scan"
	"ecoscanner/internal/service/websocket"
)

// Dependencies groups everything the HTTP layer needs.
type Dependencies struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       *sqlite.DB
	History  repository.HistoryRepository
	Accounts *account.Service
	Catalog  *catalog.Catalog
	Detector ai.Detector
	Pipeline *impact.Pipeline
	Scans    *scan.Store
	Hub      *websocket.HubService
	Sessions sessions.Store
	Gatherer prometheus.Gatherer
	Status   handler.SystemStatus
}

// SetupRoutes registers auth, API, log and metrics endpoints and wraps the mux
// with the authentication middleware.
func SetupRoutes(d Dependencies) http.Handler {
	mux := http.NewServeMux()
	cfg, logger := d.Config, d.Logger

	// Auth endpoints
	mux.HandleFunc("/auth/signup", handler.SignupHandler(d.Accounts, logger))
	mux.HandleFunc("/auth/login", handler.LoginHandler(d.Accounts, d.Sessions, logger))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler(d.Sessions, logger))

	// API endpoints
	mux.HandleFunc("/api/scan", handler.ScanHandler(d.Pipeline, d.Scans, cfg.MaxUploadMB<<20, logger))
	mux.HandleFunc("/api/scan/commit", handler.CommitHandler(d.Scans, d.History, d.Hub, logger))
	mux.HandleFunc("/api/history", handler.HistoryHandler(d.History, logger))
	mux.HandleFunc("/api/leaderboard", handler.LeaderboardHandler(d.History, logger))
	mux.HandleFunc("/api/leaderboard/live", handler.LeaderboardLiveHandler(d.Hub, d.History, logger))
	mux.HandleFunc("/api/me", handler.MeHandler(d.History, cfg.ItemsGoal, logger))
	mux.HandleFunc("/api/catalog", handler.CatalogHandler(d.Catalog, cfg.ItemWeightGrams, logger))
	mux.HandleFunc("/api/system", handler.SystemHandler(d.Status, d.Detector, d.DB, d.Hub, logger))

	// Log endpoints
	for _, name := range []string{"info", "warning", "error"} {
		file := name + ".log"
		mux.HandleFunc("/logs/"+name, handler.ShowLogsHandler(logger, file))
		mux.HandleFunc("/logs/"+name+"/clear", handler.ClearLogsHandler(logger, file))
	}

	mux.HandleFunc("/healthz", handler.HealthHandler(d.Detector, d.DB, logger))
	if cfg.MetricsEndpoint && d.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	// Apply middleware
	return middleware.AuthMiddleware(d.Sessions)(mux)
}
