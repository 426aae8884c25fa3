package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fernandomesquita/stenopro/logger"
)

// KeepAliveInterval stays below common proxy idle timeouts.
var KeepAliveInterval = 30 * time.Second

type connectedEvent struct {
	ClientID string `json:"clientId"`
}

// ServeSSE subscribes the request to topic and streams frames until the
// request context ends, the hub stops, or the client's close condition is met.
func ServeSSE(hub *Hub, w http.ResponseWriter, r *http.Request, topic string, opts ...ClientOption) {
	log := logger.Get("sse").WithContext(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Error("Streaming not supported", logger.Fields("topic", topic))
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Long-lived stream: lift the server's write deadline.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		log.Debug("Could not disable write deadline", logger.ErrorFields("stream", err))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	client := NewClient(topic, opts...)
	if !hub.Register(client) {
		return
	}
	defer hub.Unregister(client)
	clientID := client.ID()

	connected, _ := json.Marshal(connectedEvent{ClientID: clientID})
	writeFrame(w, Frame{Event: EventConnected, Data: connected})
	flusher.Flush()

	log.Debug("Client connected", logger.Fields("client_id", clientID, "remote_addr", r.RemoteAddr))

	keepAlive := time.NewTicker(KeepAliveInterval)
	defer keepAlive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Debug("Client disconnected", logger.Fields("client_id", clientID))
			return

		case f, ok := <-client.Frames():
			if !ok {
				return
			}
			writeFrame(w, f)
			flusher.Flush()
			if client.closeWhen != nil && client.closeWhen(f) {
				return
			}

		case <-keepAlive.C:
			_, _ = fmt.Fprintf(w, ": keepalive %d\n\n", time.Now().Unix())
			flusher.Flush()
		}
	}
}

func writeFrame(w http.ResponseWriter, f Frame) {
	if f.Event != "" {
		_, _ = fmt.Fprintf(w, "event: %s\n", f.Event)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", f.Data)
}
