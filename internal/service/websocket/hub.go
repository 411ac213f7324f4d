// Package websocket fans leaderboard updates out to connected viewers.
package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ecoscanner/internal/logger"
)

const writeTimeout = 5 * time.Second

type HubService struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run owns the client set until ctx is cancelled, then closes every client.
func (h *HubService) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			h.logger.Info("Leaderboard hub stopped")
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer connected. Total: %d", count)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer disconnected. Total: %d", count)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				client.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Error("Error sending message: %v", err)
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Register adds a client. After the hub stops the client is closed instead.
func (h *HubService) Register(client *websocket.Conn) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues message for every client. It never blocks; when the queue
// is full the message is dropped.
func (h *HubService) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	default:
		h.logger.Warning("Broadcast queue full, dropping leaderboard update")
	}
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
