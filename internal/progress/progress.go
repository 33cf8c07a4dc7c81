// Package progress provides best-effort progress-event broadcasting for
// pedagogical processes.
package progress

// Update describes the state of a process after one advancement.
type Update struct {
	Status     string `json:"status"`
	Step       string `json:"step"`
	Percentage int    `json:"percentage"`
	Log        string `json:"log"`
}

// Observer receives lifecycle events for a process. Implementations are
// best-effort: methods never return errors and must not block the caller for
// long. The core treats emission failures as observability loss, not as
// operation failures.
type Observer interface {
	// OperationStarted signals that a new process began.
	OperationStarted(processID, kind string, metadata map[string]any)

	// ProgressUpdated signals that a step completed.
	ProgressUpdated(processID string, update Update)

	// OperationCompleted signals that the process finished all steps.
	OperationCompleted(processID string, metadata map[string]any)
}

// Noop is an Observer that discards all events.
type Noop struct{}

func (Noop) OperationStarted(string, string, map[string]any) {}
func (Noop) ProgressUpdated(string, Update)                  {}
func (Noop) OperationCompleted(string, map[string]any)       {}

// Multi fans events out to several observers.
type Multi []Observer

func (m Multi) OperationStarted(id, kind string, metadata map[string]any) {
	for _, o := range m {
		o.OperationStarted(id, kind, metadata)
	}
}

func (m Multi) ProgressUpdated(id string, update Update) {
	for _, o := range m {
		o.ProgressUpdated(id, update)
	}
}

func (m Multi) OperationCompleted(id string, metadata map[string]any) {
	for _, o := range m {
		o.OperationCompleted(id, metadata)
	}
}
