package policy

import (
	"strings"
	"testing"

	"github.com/ashureev/edupath/internal/domain"
)

func fundamentalInstance() *domain.ProcessInstance {
	return &domain.ProcessInstance{
		Steps: []domain.StepType{
			domain.StepExplain, domain.StepExample, domain.StepExercise,
			domain.StepEvaluate, domain.StepFeedback,
		},
		CurrentIndex: 1,
	}
}

func ptr(f float64) *float64 { return &f }

func TestSuggestNextThresholds(t *testing.T) {
	tests := []struct {
		name           string
		score          *float64
		wantStep       domain.StepType
		wantConfidence float64
	}{
		{"just below reinforce threshold", ptr(0.59), domain.StepExplain, 0.8},
		{"at practice threshold", ptr(0.6), domain.StepExercise, 0.7},
		{"just below consolidate threshold", ptr(0.84), domain.StepExercise, 0.7},
		{"at consolidate threshold", ptr(0.85), domain.StepFeedback, 0.75},
		{"high score", ptr(0.95), domain.StepFeedback, 0.75},
		{"zero score", ptr(0.0), domain.StepExplain, 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SuggestNext(fundamentalInstance(), tt.score)
			if got.Step == nil {
				t.Fatal("Expected a suggested step")
			}
			if *got.Step != tt.wantStep {
				t.Errorf("Expected step %q, got %q", tt.wantStep, *got.Step)
			}
			if got.Confidence != tt.wantConfidence {
				t.Errorf("Expected confidence %v, got %v", tt.wantConfidence, got.Confidence)
			}
		})
	}
}

func TestSuggestNextDefaultProgression(t *testing.T) {
	got := SuggestNext(fundamentalInstance(), nil)
	if got.Step == nil {
		t.Fatal("Expected a suggested step")
	}
	if *got.Step != domain.StepExample {
		t.Errorf("Expected next planned step example, got %q", *got.Step)
	}
	if got.Confidence != 0.6 {
		t.Errorf("Expected default confidence 0.6, got %v", got.Confidence)
	}
	if !strings.Contains(got.Rationale, "default progression") {
		t.Errorf("Expected default-progression rationale, got %q", got.Rationale)
	}
}

func TestSuggestNextUsesHistoryScore(t *testing.T) {
	p := fundamentalInstance()
	p.History = []domain.StepResult{
		{Step: domain.StepEvaluate, Context: map[string]any{"score": 0.4}},
	}

	got := SuggestNext(p, nil)
	if got.Step == nil || *got.Step != domain.StepExplain {
		t.Fatalf("Expected reinforce suggestion explain, got %v", got.Step)
	}
	if got.Confidence != 0.8 {
		t.Errorf("Expected confidence 0.8, got %v", got.Confidence)
	}
}

func TestSuggestNextExplicitScoreWinsOverHistory(t *testing.T) {
	p := fundamentalInstance()
	p.History = []domain.StepResult{
		{Step: domain.StepEvaluate, Context: map[string]any{"score": 0.4}},
	}

	got := SuggestNext(p, ptr(0.9))
	if got.Step == nil || *got.Step != domain.StepFeedback {
		t.Fatalf("Expected consolidate suggestion feedback, got %v", got.Step)
	}
}

func TestSuggestNextReinforceWithoutExplain(t *testing.T) {
	p := &domain.ProcessInstance{
		Steps: []domain.StepType{
			domain.StepExample, domain.StepExercise, domain.StepFeedback,
		},
	}

	got := SuggestNext(p, ptr(0.3))
	if got.Step == nil || *got.Step != domain.StepExample {
		t.Fatalf("Expected example when plan has no explain step, got %v", got.Step)
	}
	if got.Confidence != 0.8 {
		t.Errorf("Expected confidence 0.8, got %v", got.Confidence)
	}
}
