// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/ashureev/edupath/internal/domain"
)

// ErrNotFound indicates the requested process does not exist.
var ErrNotFound = errors.New("process not found")

// ErrConflict indicates an optimistic-lock failure: the stored process was
// modified since it was read.
var ErrConflict = errors.New("process version conflict")

// Repository defines the interface for persisting pedagogical processes.
//
// Reads and writes operate on whole instances; there are no partial updates,
// so the history/cursor invariants hold for every persisted row.
type Repository interface {
	// CreateProcess persists a new process instance.
	CreateProcess(ctx context.Context, p *domain.ProcessInstance) error

	// GetProcess retrieves a process by id. Returns ErrNotFound when the
	// id is unknown.
	GetProcess(ctx context.Context, id string) (*domain.ProcessInstance, error)

	// UpdateProcess writes back a full process instance. The write only
	// succeeds when the stored version matches the instance's version
	// (optimistic locking); otherwise ErrConflict is returned. On success
	// the instance's version is bumped.
	UpdateProcess(ctx context.Context, p *domain.ProcessInstance) error

	// ListProcesses returns processes ordered by most recently updated,
	// optionally filtered by user id. A limit <= 0 applies a default.
	ListProcesses(ctx context.Context, userID string, limit int) ([]*domain.ProcessInstance, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
