// Package domain defines the pedagogical process entities.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidProcessType indicates an unknown process type string.
var ErrInvalidProcessType = errors.New("invalid process type")

// ProcessType selects the canonical step sequence for a process.
type ProcessType string

const (
	ProcessFundamentalExplanation ProcessType = "fundamental_explanation"
	ProcessGuidedPractice         ProcessType = "guided_practice"
	ProcessAssessment             ProcessType = "assessment"
)

// ParseProcessType validates a process type string against the closed set.
func ParseProcessType(s string) (ProcessType, error) {
	switch ProcessType(s) {
	case ProcessFundamentalExplanation, ProcessGuidedPractice, ProcessAssessment:
		return ProcessType(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidProcessType, s)
}

func (t ProcessType) String() string { return string(t) }

// StepType is one pedagogical action within a process.
type StepType string

const (
	StepExplain  StepType = "explain"
	StepExample  StepType = "example"
	StepExercise StepType = "exercise"
	StepEvaluate StepType = "evaluate"
	StepFeedback StepType = "feedback"
)

func (s StepType) String() string { return string(s) }

// Citation is a supporting snippet returned by the retrieval service.
type Citation struct {
	Source  string  `json:"source"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

// StepResult records the outcome of executing one step.
// Results are immutable once appended to a process history.
type StepResult struct {
	Step      StepType       `json:"step"`
	Content   string         `json:"content"`
	Context   map[string]any `json:"context"`
	CreatedAt time.Time      `json:"created_at"`
}

// ProcessInstance is one learner's run through a step sequence for a topic.
//
// Invariant: 0 <= CurrentIndex <= len(Steps), and len(History) == CurrentIndex
// after every mutation. Steps may grow through suggestion insertion, but only
// at or after the cursor.
type ProcessInstance struct {
	ID           string       `json:"id"`
	UserID       string       `json:"user_id"`
	Topic        string       `json:"topic"`
	ProcessType  ProcessType  `json:"process_type"`
	Steps        []StepType   `json:"steps"`
	CurrentIndex int          `json:"current_index"`
	History      []StepResult `json:"history"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`

	// Version supports optimistic locking in the store. Zero for a
	// process that has never been persisted.
	Version int64 `json:"-"`
}

// IsComplete reports whether the cursor has passed the last step.
func (p *ProcessInstance) IsComplete() bool {
	return p.CurrentIndex >= len(p.Steps)
}

// CurrentStep returns the step the cursor points at and false when the
// process is already complete.
func (p *ProcessInstance) CurrentStep() (StepType, bool) {
	if p.IsComplete() {
		return "", false
	}
	return p.Steps[p.CurrentIndex], true
}

// AppendResult records one executed step and advances the cursor, keeping
// len(History) == CurrentIndex.
func (p *ProcessInstance) AppendResult(r StepResult) {
	p.History = append(p.History, r)
	p.CurrentIndex++
}

// InsertStep splices a step in at the cursor so it becomes the next step to
// execute. Later steps shift back by one; completed history is untouched.
func (p *ProcessInstance) InsertStep(step StepType) {
	steps := make([]StepType, 0, len(p.Steps)+1)
	steps = append(steps, p.Steps[:p.CurrentIndex]...)
	steps = append(steps, step)
	steps = append(steps, p.Steps[p.CurrentIndex:]...)
	p.Steps = steps
}

// HasStep reports whether the planned sequence contains the given step type.
func (p *ProcessInstance) HasStep(step StepType) bool {
	for _, s := range p.Steps {
		if s == step {
			return true
		}
	}
	return false
}

// LastEvaluationScore scans history newest-first for an evaluate result with
// a numeric score. Returns false when none exists.
func (p *ProcessInstance) LastEvaluationScore() (float64, bool) {
	for i := len(p.History) - 1; i >= 0; i-- {
		h := p.History[i]
		if h.Step != StepEvaluate {
			continue
		}
		switch v := h.Context["score"].(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		}
	}
	return 0, false
}
