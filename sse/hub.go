package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/fernandomesquita/stenopro/events"
	"github.com/fernandomesquita/stenopro/logger"
)

// Frame event names.
const (
	EventConnected = "connected"
	EventProgress  = "progress"
)

// clientBuffer is the number of frames a slow client may lag behind.
const clientBuffer = 64

// Frame is one SSE message: an event name and a JSON payload.
type Frame struct {
	Event string
	Data  []byte
}

// Client is one open stream subscribed to a topic.
type Client struct {
	id        string
	topic     string
	frames    chan Frame
	closeWhen func(Frame) bool
	closeOnce sync.Once
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithSnapshot queues a frame that is delivered before anything broadcast.
func WithSnapshot(f Frame) ClientOption {
	return func(c *Client) { c.frames <- f }
}

// WithCloseWhen ends the stream after the first delivered frame for which
// done returns true.
func WithCloseWhen(done func(Frame) bool) ClientOption {
	return func(c *Client) { c.closeWhen = done }
}

// NewClient subscribes a new client to topic. Its id is unique.
func NewClient(topic string, opts ...ClientOption) *Client {
	c := &Client{
		id:     topic + ":" + uuid.NewString()[:8],
		topic:  topic,
		frames: make(chan Frame, clientBuffer),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TranscriptionTopic names the stream of one transcription's progress.
func TranscriptionTopic(id uint) string {
	return fmt.Sprintf("transcription:%d", id)
}

func (c *Client) ID() string           { return c.id }
func (c *Client) Topic() string        { return c.topic }
func (c *Client) Frames() <-chan Frame { return c.frames }

// Send queues f without blocking. It reports false when the client's buffer
// is full and f was dropped.
func (c *Client) Send(f Frame) bool {
	select {
	case c.frames <- f:
		return true
	default:
		return false
	}
}

// Close ends the client's frame channel. Safe to call multiple times.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.frames) })
}

// Hub fans frames out to the clients subscribed to each topic.
type Hub struct {
	mu      sync.RWMutex
	topics  map[string]map[*Client]struct{}
	count   int
	stopped bool

	done     chan struct{}
	stopOnce sync.Once
	log      *logger.Logger
}

var _ events.Publisher = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{
		topics: make(map[string]map[*Client]struct{}),
		done:   make(chan struct{}),
		log:    logger.Get("sse"),
	}
}

// Run blocks until Stop, then disconnects every client.
func (h *Hub) Run() {
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped = true
	for topic, clients := range h.topics {
		for c := range clients {
			c.Close()
		}
		delete(h.topics, topic)
	}
	h.count = 0
}

// Stop makes Run return. Safe to call multiple times.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register subscribes c. It returns false, and closes c, once the hub has
// been stopped.
func (h *Hub) Register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped || h.isDone() {
		c.Close()
		return false
	}
	subs, ok := h.topics[c.topic]
	if !ok {
		subs = make(map[*Client]struct{})
		h.topics[c.topic] = subs
	}
	if _, dup := subs[c]; !dup {
		subs[c] = struct{}{}
		h.count++
	}
	h.log.Debug("Client registered", logger.Fields("client_id", c.id, "total_clients", h.count))
	return true
}

// Unregister removes c and closes it.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.topics[c.topic]; ok {
		if _, found := subs[c]; found {
			delete(subs, c)
			h.count--
			if len(subs) == 0 {
				delete(h.topics, c.topic)
			}
		}
	}
	c.Close()
}

func (h *Hub) isDone() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Broadcast sends f to every client on topic and returns how many took it.
// Clients whose buffer is full miss the frame.
func (h *Hub) Broadcast(topic string, f Frame) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for c := range h.topics[topic] {
		if c.Send(f) {
			sent++
		} else {
			h.log.Warn("Client buffer full, dropping frame", logger.Fields("client_id", c.id))
		}
	}
	return sent
}

// Publish sends e as a progress frame to every watcher of its transcription.
func (h *Hub) Publish(_ context.Context, e events.Event) {
	f, err := ProgressFrame(e)
	if err != nil {
		h.log.Error("Encode event", logger.ErrorFields("publish", err))
		return
	}
	h.Broadcast(TranscriptionTopic(e.TranscriptionID), f)
}

// ProgressFrame encodes e as a progress frame.
func ProgressFrame(e events.Event) (Frame, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Event: EventProgress, Data: data}, nil
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Watchers returns the number of clients subscribed to topic.
func (h *Hub) Watchers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
