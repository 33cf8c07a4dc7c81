// Package orchestrator owns the lifecycle of pedagogical processes: creation,
// advancement, and adaptive step suggestion.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/edupath/internal/domain"
	"github.com/ashureev/edupath/internal/executor"
	"github.com/ashureev/edupath/internal/policy"
	"github.com/ashureev/edupath/internal/progress"
	"github.com/ashureev/edupath/internal/store"
	"github.com/ashureev/edupath/internal/workflow"
	"github.com/google/uuid"
)

// AdvanceResult reports the outcome of one advance call. Result is nil when
// the process was already complete (the call is then a no-op).
type AdvanceResult struct {
	Completed bool
	Result    *domain.StepResult
	Instance  *domain.ProcessInstance
}

// SuggestionResult reports the outcome of a suggest-next-step call.
// Suggestion is nil when the process is complete.
type SuggestionResult struct {
	Completed  bool
	Suggestion *domain.StepType
	Rationale  string
	Confidence float64
	Applied    bool
}

// Orchestrator composes the workflow catalog, step executor, suggestion
// policy, session store, and progress observer. One value is constructed at
// startup and injected into the transport layer; it holds no per-process
// state of its own.
type Orchestrator struct {
	repo     store.Repository
	exec     *executor.Executor
	observer progress.Observer
	logger   *slog.Logger
}

// New creates an orchestrator. observer may be nil.
func New(repo store.Repository, exec *executor.Executor, observer progress.Observer, logger *slog.Logger) *Orchestrator {
	if observer == nil {
		observer = progress.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		repo:     repo,
		exec:     exec,
		observer: observer,
		logger:   logger,
	}
}

// Start creates and persists a new process for the given user and topic.
// Returns domain.ErrInvalidProcessType when processType is not one of the
// known variants.
func (o *Orchestrator) Start(ctx context.Context, userID, topic, processType string) (*domain.ProcessInstance, error) {
	ptype, err := domain.ParseProcessType(processType)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	instance := &domain.ProcessInstance{
		ID:          uuid.NewString(),
		UserID:      userID,
		Topic:       topic,
		ProcessType: ptype,
		Steps:       workflow.StepsFor(ptype),
		History:     []domain.StepResult{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := o.repo.CreateProcess(ctx, instance); err != nil {
		return nil, fmt.Errorf("persist new process: %w", err)
	}

	o.observer.OperationStarted(instance.ID, "education_process", map[string]any{
		"topic": topic,
		"step":  instance.Steps[0].String(),
	})

	o.logger.Info("Process started",
		"process_id", instance.ID,
		"user_id", userID,
		"process_type", ptype.String(),
		"steps", len(instance.Steps))
	return instance, nil
}

// Get retrieves a process by id. Returns store.ErrNotFound when unknown.
func (o *Orchestrator) Get(ctx context.Context, processID string) (*domain.ProcessInstance, error) {
	return o.repo.GetProcess(ctx, processID)
}

// List returns process summaries, optionally filtered by user.
func (o *Orchestrator) List(ctx context.Context, userID string, limit int) ([]*domain.ProcessInstance, error) {
	return o.repo.ListProcesses(ctx, userID, limit)
}

// Advance executes the current step of a process: the step executor produces
// a result, the result is appended to history, the cursor moves forward, and
// the instance is written back. Advancing a completed process is an
// idempotent no-op. Progress emission is best-effort and never fails the
// call; a failed persistence write does.
func (o *Orchestrator) Advance(ctx context.Context, processID, userInput string) (*AdvanceResult, error) {
	instance, err := o.repo.GetProcess(ctx, processID)
	if err != nil {
		return nil, err
	}

	if instance.IsComplete() {
		return &AdvanceResult{Completed: true, Instance: instance}, nil
	}

	step, _ := instance.CurrentStep()
	result := o.exec.Execute(ctx, instance.Topic, step, userInput)
	instance.AppendResult(result)

	if err := o.repo.UpdateProcess(ctx, instance); err != nil {
		return nil, fmt.Errorf("persist advanced process: %w", err)
	}

	completed := instance.IsComplete()
	status := "in_progress"
	if completed {
		status = "completed"
	}
	o.observer.ProgressUpdated(processID, progress.Update{
		Status:     status,
		Step:       step.String(),
		Percentage: 100 * instance.CurrentIndex / len(instance.Steps),
		Log:        fmt.Sprintf("Step %s completed", step),
	})
	if completed {
		o.observer.OperationCompleted(processID, map[string]any{"result": "ok"})
	}

	o.logger.Info("Process advanced",
		"process_id", processID,
		"step", step.String(),
		"current_index", instance.CurrentIndex,
		"completed", completed)
	return &AdvanceResult{Completed: completed, Result: &result, Instance: instance}, nil
}

// SuggestNextStep runs the suggestion policy against the supplied score, or
// the most recent evaluation score in history when none is given. With apply
// set, the suggested step is spliced in at the cursor and the instance
// persisted; without it the call is read-only. A completed process yields no
// suggestion, and apply on a nil suggestion is a no-op reporting
// applied=false.
func (o *Orchestrator) SuggestNextStep(ctx context.Context, processID string, score *float64, apply bool) (*SuggestionResult, error) {
	instance, err := o.repo.GetProcess(ctx, processID)
	if err != nil {
		return nil, err
	}

	if instance.IsComplete() {
		return &SuggestionResult{Completed: true}, nil
	}

	suggestion := policy.SuggestNext(instance, score)

	applied := false
	if apply && suggestion.Step != nil {
		instance.InsertStep(*suggestion.Step)
		if err := o.repo.UpdateProcess(ctx, instance); err != nil {
			return nil, fmt.Errorf("persist suggested step: %w", err)
		}
		applied = true
		o.logger.Info("Suggestion applied",
			"process_id", processID,
			"step", suggestion.Step.String(),
			"position", instance.CurrentIndex)
	}

	return &SuggestionResult{
		Completed:  instance.IsComplete(),
		Suggestion: suggestion.Step,
		Rationale:  suggestion.Rationale,
		Confidence: suggestion.Confidence,
		Applied:    applied,
	}, nil
}
