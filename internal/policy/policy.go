// Package policy computes adaptive next-step suggestions from evaluation
// scores.
package policy

import (
	"fmt"

	"github.com/ashureev/edupath/internal/domain"
)

// Score thresholds and confidences form a behavioral contract with existing
// clients; do not adjust without versioning the API.
const (
	reinforceBelow   = 0.6
	consolidateFrom  = 0.85
	defaultConfident = 0.6
	reinforceConf    = 0.8
	practiceConf     = 0.7
	consolidateConf  = 0.75
)

// Suggestion is a recommendation for the next step of a process. Step is nil
// when the process has no planned next step and no score is available.
type Suggestion struct {
	Step       *domain.StepType
	Rationale  string
	Confidence float64
}

// SuggestNext proposes a next step for the process.
//
// When score is nil, the most recent evaluate-step score in history is used;
// with no score at all, the suggestion is the next planned step. Otherwise a
// fixed decision table applies: low scores reinforce with explain (or example
// when the plan has no explain step), middling scores practice with another
// exercise, high scores consolidate with feedback.
func SuggestNext(p *domain.ProcessInstance, score *float64) Suggestion {
	lastScore := score
	if lastScore == nil {
		if s, ok := p.LastEvaluationScore(); ok {
			lastScore = &s
		}
	}

	var suggestion Suggestion
	if next, ok := p.CurrentStep(); ok {
		suggestion.Step = &next
	}
	suggestion.Rationale = "Proceed with the planned flow (default progression)."
	suggestion.Confidence = defaultConfident

	if lastScore == nil {
		return suggestion
	}

	s := *lastScore
	switch {
	case s < reinforceBelow:
		step := domain.StepExample
		if p.HasStep(domain.StepExplain) {
			step = domain.StepExplain
		}
		suggestion.Step = &step
		suggestion.Rationale = fmt.Sprintf("Low performance (score=%.2f); reinforce with explanation or example.", s)
		suggestion.Confidence = reinforceConf
	case s < consolidateFrom:
		step := domain.StepExercise
		suggestion.Step = &step
		suggestion.Rationale = fmt.Sprintf("Fair performance (score=%.2f); practice with a new exercise.", s)
		suggestion.Confidence = practiceConf
	default:
		step := domain.StepFeedback
		suggestion.Step = &step
		suggestion.Rationale = fmt.Sprintf("High performance (score=%.2f); consolidate with feedback and finish.", s)
		suggestion.Confidence = consolidateConf
	}
	return suggestion
}
