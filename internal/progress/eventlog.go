package progress

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventLogConfig controls NDJSON progress-event logging.
type EventLogConfig struct {
	Enabled   bool
	Path      string
	QueueSize int
}

// EventLog is an Observer that appends progress events to an NDJSON file.
// Writes go through a bounded queue drained by a single goroutine; when the
// queue is full, events are dropped rather than blocking the caller.
type EventLog struct {
	file   *os.File
	queue  chan Event
	done   chan struct{}
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewEventLog opens (or creates) the NDJSON log file and starts the writer
// goroutine. Returns nil when logging is disabled.
func NewEventLog(cfg EventLogConfig, logger *slog.Logger) (*EventLog, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("create event log directory: %w", err)
	}
	file, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}

	l := &EventLog{
		file:   file,
		queue:  make(chan Event, cfg.QueueSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	l.wg.Add(1)
	go l.drain()
	return l, nil
}

// OperationStarted implements Observer.
func (l *EventLog) OperationStarted(processID, kind string, metadata map[string]any) {
	md := map[string]any{"kind": kind}
	for k, v := range metadata {
		md[k] = v
	}
	l.enqueue(Event{ProcessID: processID, Type: EventStarted, Metadata: md, Timestamp: time.Now()})
}

// ProgressUpdated implements Observer.
func (l *EventLog) ProgressUpdated(processID string, update Update) {
	u := update
	l.enqueue(Event{ProcessID: processID, Type: EventProgress, Update: &u, Timestamp: time.Now()})
}

// OperationCompleted implements Observer.
func (l *EventLog) OperationCompleted(processID string, metadata map[string]any) {
	l.enqueue(Event{ProcessID: processID, Type: EventCompleted, Metadata: metadata, Timestamp: time.Now()})
}

func (l *EventLog) enqueue(e Event) {
	select {
	case l.queue <- e:
	case <-l.done:
	default:
		l.logger.Debug("Event log queue full, dropping event", "process_id", e.ProcessID, "type", e.Type)
	}
}

func (l *EventLog) drain() {
	defer l.wg.Done()
	for {
		select {
		case e := <-l.queue:
			l.write(e)
		case <-l.done:
			// Flush whatever is still queued.
			for {
				select {
				case e := <-l.queue:
					l.write(e)
				default:
					return
				}
			}
		}
	}
}

func (l *EventLog) write(e Event) {
	line, err := json.Marshal(e)
	if err != nil {
		l.logger.Warn("Failed to marshal event log entry", "error", err)
		return
	}
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		l.logger.Warn("Failed to write event log entry", "error", err)
	}
}

// Close stops the writer goroutine and closes the file.
func (l *EventLog) Close() error {
	close(l.done)
	l.wg.Wait()
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("close event log: %w", err)
	}
	return nil
}
