package workflow

import (
	"testing"

	"github.com/ashureev/edupath/internal/domain"
)

func TestStepsFor(t *testing.T) {
	tests := []struct {
		name        string
		processType domain.ProcessType
		want        []domain.StepType
	}{
		{
			name:        "fundamental explanation",
			processType: domain.ProcessFundamentalExplanation,
			want: []domain.StepType{
				domain.StepExplain, domain.StepExample, domain.StepExercise,
				domain.StepEvaluate, domain.StepFeedback,
			},
		},
		{
			name:        "guided practice",
			processType: domain.ProcessGuidedPractice,
			want: []domain.StepType{
				domain.StepExample, domain.StepExercise, domain.StepFeedback,
			},
		},
		{
			name:        "assessment",
			processType: domain.ProcessAssessment,
			want: []domain.StepType{
				domain.StepExercise, domain.StepEvaluate, domain.StepFeedback,
			},
		},
		{
			name:        "unknown falls back to fundamental explanation",
			processType: domain.ProcessType("bogus"),
			want: []domain.StepType{
				domain.StepExplain, domain.StepExample, domain.StepExercise,
				domain.StepEvaluate, domain.StepFeedback,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StepsFor(tt.processType)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d steps, got %d", len(tt.want), len(got))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("Step %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestStepsForReturnsCopy(t *testing.T) {
	a := StepsFor(domain.ProcessAssessment)
	a[0] = domain.StepFeedback

	b := StepsFor(domain.ProcessAssessment)
	if b[0] != domain.StepExercise {
		t.Errorf("Expected catalog template to be unaffected by mutation, got %q", b[0])
	}
}
