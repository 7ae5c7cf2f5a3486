// package server contains the router, middleware & handlers for the realtime relay
package server

import (
	"encoding/json"
	"net/http"

	"github.com/desertthunder/olx/internal/realtime"
)

// Middleware decorates an http.Handler.
type Middleware func(http.Handler) http.Handler

// Handler is an http.Handler that knows the [http.ServeMux] patterns it serves.
type Handler interface {
	http.Handler
	Routes() []string
}

// Router registers handlers behind a shared middleware stack.
type Router interface {
	Use(middleware ...Middleware)
	Handle(method, path string, handler http.Handler)
	Handler(handler Handler)
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

// HealthHandler reports liveness and the relay's open channels.
type HealthHandler struct {
	hub *realtime.Hub
}

// NewHealthHandler reports on hub. A nil hub reports liveness only.
func NewHealthHandler(hub *realtime.Hub) *HealthHandler {
	return &HealthHandler{hub: hub}
}

func (h *HealthHandler) Routes() []string {
	return []string{"GET /healthz"}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	channels := map[string]int{}
	if h.hub != nil {
		for _, ch := range h.hub.Channels() {
			channels[ch] = h.hub.Subscribers(ch)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Status   string         `json:"status"`
		Channels map[string]int `json:"channels"`
	}{"ok", channels})
}
