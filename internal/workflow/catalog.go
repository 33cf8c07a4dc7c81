// Package workflow maps process types to their canonical step sequences.
package workflow

import "github.com/ashureev/edupath/internal/domain"

var catalog = map[domain.ProcessType][]domain.StepType{
	domain.ProcessFundamentalExplanation: {
		domain.StepExplain,
		domain.StepExample,
		domain.StepExercise,
		domain.StepEvaluate,
		domain.StepFeedback,
	},
	domain.ProcessGuidedPractice: {
		domain.StepExample,
		domain.StepExercise,
		domain.StepFeedback,
	},
	domain.ProcessAssessment: {
		domain.StepExercise,
		domain.StepEvaluate,
		domain.StepFeedback,
	},
}

// StepsFor returns the canonical step sequence for a process type. Unknown
// types fall back to the fundamental_explanation sequence; the function never
// fails. The returned slice is a copy, so callers may mutate it freely.
func StepsFor(t domain.ProcessType) []domain.StepType {
	steps, ok := catalog[t]
	if !ok {
		steps = catalog[domain.ProcessFundamentalExplanation]
	}
	out := make([]domain.StepType, len(steps))
	copy(out, steps)
	return out
}
