// Package executor produces the content for one pedagogical step.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/edupath/internal/domain"
	"github.com/ashureev/edupath/internal/retrieval"
)

const (
	// matchCount caps the supporting snippets fetched per step.
	matchCount = 5

	defaultRetrievalTimeout = 5 * time.Second
)

// Executor generates step content, grounding it with snippets from the
// retrieval service when one is configured.
type Executor struct {
	search           retrieval.Searcher
	retrievalTimeout time.Duration
	logger           *slog.Logger
}

// New creates an executor. search may be nil, in which case steps are
// generated without supporting citations.
func New(search retrieval.Searcher, retrievalTimeout time.Duration, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if retrievalTimeout <= 0 {
		retrievalTimeout = defaultRetrievalTimeout
	}
	return &Executor{
		search:           search,
		retrievalTimeout: retrievalTimeout,
		logger:           logger,
	}
}

// Execute produces the result for one step of a process. Retrieval failures
// are absorbed: a step never fails because context lookup is unavailable.
func (e *Executor) Execute(ctx context.Context, topic string, step domain.StepType, userInput string) domain.StepResult {
	citations := e.fetchCitations(ctx, topic, step)

	var content string
	var score float64
	scored := false

	switch step {
	case domain.StepExplain:
		content = fmt.Sprintf("Explanation of %q grounded in the most relevant sources.", topic)
	case domain.StepExample:
		content = fmt.Sprintf("Worked example for %q.", topic)
	case domain.StepExercise:
		content = fmt.Sprintf("Proposed exercise: solve a problem involving %q.", topic)
	case domain.StepEvaluate:
		// Placeholder evaluation until real answer analysis lands:
		// any non-empty answer passes, silence earns half credit.
		score = 0.5
		if userInput != "" {
			score = 1.0
		}
		scored = true
		content = fmt.Sprintf("Evaluation of the answer: score=%.2f.", score)
	case domain.StepFeedback:
		content = "Objective feedback and next steps."
	default:
		content = ""
	}

	result := domain.StepResult{
		Step:      step,
		Content:   content,
		Context:   map[string]any{"citations": citations, "user_input": userInput},
		CreatedAt: time.Now(),
	}
	if scored {
		result.Context["score"] = score
	}
	return result
}

func (e *Executor) fetchCitations(ctx context.Context, topic string, step domain.StepType) []domain.Citation {
	if e.search == nil {
		return []domain.Citation{}
	}

	searchCtx, cancel := context.WithTimeout(ctx, e.retrievalTimeout)
	defer cancel()

	query := fmt.Sprintf("%s — step: %s", topic, step)
	citations, err := e.search.Search(searchCtx, query, matchCount)
	if err != nil {
		e.logger.Debug("Retrieval unavailable, continuing without citations",
			"error", err, "topic", topic, "step", step.String())
		return []domain.Citation{}
	}
	if citations == nil {
		citations = []domain.Citation{}
	}
	return citations
}
