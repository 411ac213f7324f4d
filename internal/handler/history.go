package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"ecoscanner/internal/dto"
	"ecoscanner/internal/logger"
	"ecoscanner/internal/repository"
	live "ecoscanner/internal/service/websocket"
)

// Broadcaster pushes a message to live viewers.
type Broadcaster interface {
	Broadcast(message []byte)
}

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HistoryHandler handles GET /api/history. A storage failure degrades to an
// empty view.
func HistoryHandler(history repository.HistoryRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		username, _ := currentUser(r)

		entries, err := history.GetByUsername(r.Context(), username)
		if err != nil {
			logger.Error("Error querying history for %s: %v", username, err)
			entries = nil
		}
		writeJSON(w, logger, http.StatusOK, dto.NewHistoryData(entries))
	}
}

// LeaderboardHandler handles GET /api/leaderboard.
func LeaderboardHandler(history repository.HistoryRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		writeJSON(w, logger, http.StatusOK, leaderboard(r.Context(), history, logger))
	}
}

// MeHandler handles GET /api/me.
func MeHandler(history repository.HistoryRepository, itemsGoal int, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		username, _ := currentUser(r)

		count, err := history.CountByUsername(r.Context(), username)
		if err != nil {
			logger.Error("Error counting history for %s: %v", username, err)
			count = 0
		}
		writeJSON(w, logger, http.StatusOK, dto.NewProfile(username, count, itemsGoal))
	}
}

// LeaderboardLiveHandler upgrades to a WebSocket, sends the current
// leaderboard and then registers the viewer for pushes after each commit.
func LeaderboardLiveHandler(hub *live.HubService, history repository.HistoryRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		snapshot, err := json.Marshal(leaderboard(r.Context(), history, logger))
		if err == nil {
			err = connection.WriteMessage(websocket.TextMessage, snapshot)
		}
		if err != nil {
			logger.Error("Failed to send leaderboard snapshot: %v", err)
			connection.Close()
			return
		}

		hub.Register(connection)
		defer hub.Unregister(connection)

		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Warning("Viewer disconnected with error: %v", err)
				}
				return
			}
		}
	}
}

// PublishLeaderboard broadcasts the current leaderboard. Failures are logged.
func PublishLeaderboard(ctx context.Context, history repository.HistoryRepository, hub Broadcaster, logger *logger.Logger) {
	if hub == nil {
		return
	}
	message, err := json.Marshal(leaderboard(ctx, history, logger))
	if err != nil {
		logger.Error("Failed to encode leaderboard: %v", err)
		return
	}
	hub.Broadcast(message)
}

func leaderboard(ctx context.Context, history repository.HistoryRepository, logger *logger.Logger) []dto.LeaderboardRow {
	entries, err := history.Leaderboard(ctx)
	if err != nil {
		logger.Error("Error querying leaderboard: %v", err)
		entries = nil
	}
	return dto.NewLeaderboard(entries)
}
