package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/olx/internal/realtime"
)

const (
	defaultHeartbeat = 15 * time.Second
	subscriberBuffer = 64
	maxPublishSize   = 1 << 20
)

// RelayHandler serves realtime channels over Server-Sent Events.
// Implements the Handler interface for registration with a Router.
type RelayHandler struct {
	hub       *realtime.Hub
	logger    *log.Logger
	Heartbeat time.Duration // interval of keep-alive comments; zero uses 15s
}

// NewRelayHandler creates a relay over hub. A nil hub creates a private one.
func NewRelayHandler(hub *realtime.Hub, logger *log.Logger) *RelayHandler {
	if hub == nil {
		hub = realtime.NewHub()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &RelayHandler{hub: hub, logger: logger}
}

// Hub returns the hub the relay publishes to.
func (h *RelayHandler) Hub() *realtime.Hub {
	return h.hub
}

// Routes returns the HTTP routes this handler serves.
func (h *RelayHandler) Routes() []string {
	return []string{realtime.StreamPath}
}

// ServeHTTP streams a channel on GET and publishes to it on POST.
func (h *RelayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	channel := strings.Trim(strings.TrimPrefix(r.URL.Path, realtime.StreamPath), "/")
	if channel == "" {
		http.Error(w, "Channel required", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.stream(w, r, channel)
	case http.MethodPost:
		h.publish(w, r, channel)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *RelayHandler) stream(w http.ResponseWriter, r *http.Request, channel string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	frames := make(chan json.RawMessage, subscriberBuffer)
	overflow := make(chan struct{})
	var dropped atomic.Bool

	sub, err := h.hub.On(channel, func(data json.RawMessage) {
		if dropped.Load() {
			return
		}
		select {
		case frames <- data:
		default:
			if dropped.CompareAndSwap(false, true) {
				close(overflow)
			}
		}
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer sub.Off()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := h.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	h.logger.Debug("subscriber connected", "channel", channel, "remote", r.RemoteAddr)
	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug("subscriber disconnected", "channel", channel, "remote", r.RemoteAddr)
			return
		case <-overflow:
			h.logger.Warn("subscriber too slow, dropping", "channel", channel, "remote", r.RemoteAddr)
			return
		case data := <-frames:
			if err := writeFrame(w, data); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeFrame writes data as one SSE event, one data line per line of data.
func writeFrame(w io.Writer, data []byte) error {
	for line := range bytes.SplitSeq(data, []byte("\n")) {
		if _, err := fmt.Fprintf(w, "data: %s\n", line); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func (h *RelayHandler) publish(w http.ResponseWriter, r *http.Request, channel string) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPublishSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, body); err != nil {
		http.Error(w, "Body must be JSON", http.StatusBadRequest)
		return
	}

	delivered := h.hub.Publish(channel, compact.Bytes())
	h.logger.Debug("published", "channel", channel, "subscribers", delivered)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]int{"subscribers": delivered})
}
