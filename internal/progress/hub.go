package progress

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const (
	// EventStarted is emitted once when a process begins.
	EventStarted = "process_started"
	// EventProgress is emitted after each completed step.
	EventProgress = "progress_update"
	// EventCompleted is emitted when a process finishes its last step.
	EventCompleted = "process_completed"

	defaultQueueSize  = 256
	ringSizePerStream = 32
	writeTimeout      = 5 * time.Second
)

// Event is one progress notification for a process.
type Event struct {
	ProcessID string         `json:"process_id"`
	Type      string         `json:"type"`
	Update    *Update        `json:"update,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Hub broadcasts progress events to WebSocket subscribers, keyed by process
// id. Emission is fire-and-forget: events are queued to a single dispatcher
// goroutine and dropped (with a log line) when the queue is full, so the
// caller's request path never blocks on slow consumers.
//
// A small ring of recent events is kept per process and replayed to
// subscribers that connect late.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*websocket.Conn]struct{}
	rings       map[string]*eventRing

	queue chan Event
	done  chan struct{}
	once  sync.Once
}

// NewHub creates a hub and starts its dispatcher goroutine.
func NewHub() *Hub {
	h := &Hub{
		subscribers: make(map[string]map[*websocket.Conn]struct{}),
		rings:       make(map[string]*eventRing),
		queue:       make(chan Event, defaultQueueSize),
		done:        make(chan struct{}),
	}
	go h.dispatch()
	return h
}

// OperationStarted implements Observer.
func (h *Hub) OperationStarted(processID, kind string, metadata map[string]any) {
	md := map[string]any{"kind": kind}
	for k, v := range metadata {
		md[k] = v
	}
	h.publish(Event{ProcessID: processID, Type: EventStarted, Metadata: md, Timestamp: time.Now()})
}

// ProgressUpdated implements Observer.
func (h *Hub) ProgressUpdated(processID string, update Update) {
	u := update
	h.publish(Event{ProcessID: processID, Type: EventProgress, Update: &u, Timestamp: time.Now()})
}

// OperationCompleted implements Observer.
func (h *Hub) OperationCompleted(processID string, metadata map[string]any) {
	h.publish(Event{ProcessID: processID, Type: EventCompleted, Metadata: metadata, Timestamp: time.Now()})
}

func (h *Hub) publish(e Event) {
	select {
	case h.queue <- e:
	case <-h.done:
	default:
		slog.Debug("Progress queue full, dropping event", "process_id", e.ProcessID, "type", e.Type)
	}
}

func (h *Hub) dispatch() {
	for {
		select {
		case e := <-h.queue:
			h.deliver(e)
		case <-h.done:
			return
		}
	}
}

func (h *Hub) deliver(e Event) {
	h.mu.Lock()
	ring, ok := h.rings[e.ProcessID]
	if !ok {
		ring = newEventRing(ringSizePerStream)
		h.rings[e.ProcessID] = ring
	}
	conns := make([]*websocket.Conn, 0, len(h.subscribers[e.ProcessID]))
	for conn := range h.subscribers[e.ProcessID] {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	ring.Append(e)

	if len(conns) == 0 {
		return
	}

	payload, err := json.Marshal(e)
	if err != nil {
		slog.Warn("Failed to marshal progress event", "error", err, "process_id", e.ProcessID)
		return
	}

	for _, conn := range conns {
		if err := writeWithTimeout(conn, payload); err != nil {
			slog.Debug("Progress write failed, unsubscribing", "error", err, "process_id", e.ProcessID)
			h.Unsubscribe(e.ProcessID, conn)
		}
	}
}

func writeWithTimeout(conn *websocket.Conn, payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}

// Subscribe registers a connection for a process's events and replays any
// buffered events to it.
func (h *Hub) Subscribe(processID string, conn *websocket.Conn) {
	h.mu.Lock()
	if _, exists := h.subscribers[processID]; !exists {
		h.subscribers[processID] = make(map[*websocket.Conn]struct{})
	}
	h.subscribers[processID][conn] = struct{}{}
	ring := h.rings[processID]
	h.mu.Unlock()

	slog.Info("Progress subscriber registered", "process_id", processID)

	if ring == nil {
		return
	}
	for _, e := range ring.Snapshot() {
		payload, err := json.Marshal(e)
		if err != nil {
			continue
		}
		if err := writeWithTimeout(conn, payload); err != nil {
			slog.Debug("Progress replay write failed", "error", err, "process_id", processID)
			return
		}
	}
}

// Unsubscribe removes a connection for a process.
func (h *Hub) Unsubscribe(processID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.subscribers[processID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.subscribers, processID)
		}
	}
}

// Close stops the dispatcher and closes all subscriber connections.
func (h *Hub) Close() {
	h.once.Do(func() { close(h.done) })

	h.mu.Lock()
	defer h.mu.Unlock()

	for pid, conns := range h.subscribers {
		for conn := range conns {
			_ = conn.Close(websocket.StatusNormalClosure, "hub closed")
		}
		delete(h.subscribers, pid)
	}
}
