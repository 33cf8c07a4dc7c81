package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ashureev/edupath/internal/domain"
	"github.com/ashureev/edupath/internal/identity"
	"github.com/ashureev/edupath/internal/store"
	"github.com/go-chi/chi/v5"
)

// ProcessHandler handles pedagogical-process endpoints.
type ProcessHandler struct {
	*Handler
}

// NewProcessHandler creates a new process handler.
func NewProcessHandler(base *Handler) *ProcessHandler {
	return &ProcessHandler{Handler: base}
}

// RegisterRoutes registers process routes.
func (h *ProcessHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/education", func(r chi.Router) {
		r.Post("/processes", h.Start)
		r.Get("/processes", h.List)
		r.Get("/processes/{processID}", h.Get)
		r.Post("/processes/{processID}/advance", h.Advance)
		r.Post("/processes/{processID}/suggest-next-step", h.SuggestNextStep)
	})
}

type startRequest struct {
	UserID      string `json:"user_id"`
	Topic       string `json:"topic"`
	ProcessType string `json:"process_type"`
}

// Start creates a new process for a topic.
func (h *ProcessHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Topic == "" {
		Error(w, http.StatusBadRequest, "topic is required")
		return
	}
	if req.ProcessType == "" {
		req.ProcessType = domain.ProcessFundamentalExplanation.String()
	}
	userID := req.UserID
	if userID == "" {
		userID = identity.UserIDFromContext(r.Context())
	}
	if userID == "" {
		Error(w, http.StatusBadRequest, "user_id is required")
		return
	}

	instance, err := h.orch.Start(r.Context(), userID, req.Topic, req.ProcessType)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidProcessType) {
			Error(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("Failed to start process", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to start process")
		return
	}

	currentStep, _ := instance.CurrentStep()
	JSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"process_id":   instance.ID,
		"process_type": instance.ProcessType.String(),
		"steps":        instance.Steps,
		"current_step": currentStep.String(),
	})
}

// Get returns the full state of a process, including history.
func (h *ProcessHandler) Get(w http.ResponseWriter, r *http.Request) {
	processID := chi.URLParam(r, "processID")

	instance, err := h.orch.Get(r.Context(), processID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			Error(w, http.StatusNotFound, "process_not_found")
			return
		}
		slog.Error("Failed to get process", "error", err, "process_id", processID)
		Error(w, http.StatusInternalServerError, "failed to get process")
		return
	}

	payload := map[string]interface{}{
		"success":       true,
		"process_id":    instance.ID,
		"user_id":       instance.UserID,
		"topic":         instance.Topic,
		"process_type":  instance.ProcessType.String(),
		"steps":         instance.Steps,
		"current_index": instance.CurrentIndex,
		"completed":     instance.IsComplete(),
		"history":       instance.History,
	}
	if step, ok := instance.CurrentStep(); ok {
		payload["current_step"] = step.String()
	}
	JSON(w, http.StatusOK, payload)
}

type advanceRequest struct {
	UserInput string `json:"user_input"`
}

// Advance executes the current step and moves the cursor forward.
func (h *ProcessHandler) Advance(w http.ResponseWriter, r *http.Request) {
	processID := chi.URLParam(r, "processID")

	var req advanceRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	result, err := h.orch.Advance(r.Context(), processID, req.UserInput)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			Error(w, http.StatusNotFound, "process_not_found")
			return
		}
		slog.Error("Failed to advance process", "error", err, "process_id", processID)
		Error(w, http.StatusInternalServerError, "failed to advance process")
		return
	}

	payload := map[string]interface{}{
		"success":   true,
		"completed": result.Completed,
	}
	if result.Result != nil {
		payload["step_result"] = result.Result
	}
	JSON(w, http.StatusOK, payload)
}

// List returns summaries of processes, optionally filtered by user_id.
func (h *ProcessHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = identity.UserIDFromContext(r.Context())
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	instances, err := h.orch.List(r.Context(), userID, limit)
	if err != nil {
		slog.Error("Failed to list processes", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to list processes")
		return
	}

	processes := make([]map[string]interface{}, 0, len(instances))
	for _, inst := range instances {
		processes = append(processes, map[string]interface{}{
			"process_id":    inst.ID,
			"user_id":       inst.UserID,
			"topic":         inst.Topic,
			"process_type":  inst.ProcessType.String(),
			"current_index": inst.CurrentIndex,
			"completed":     inst.IsComplete(),
		})
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"count":     len(processes),
		"processes": processes,
	})
}

type suggestRequest struct {
	Score *float64 `json:"score"`
	Apply bool     `json:"apply"`
}

// SuggestNextStep runs the adaptive suggestion policy and optionally applies
// the suggestion to the plan.
func (h *ProcessHandler) SuggestNextStep(w http.ResponseWriter, r *http.Request) {
	processID := chi.URLParam(r, "processID")

	var req suggestRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	result, err := h.orch.SuggestNextStep(r.Context(), processID, req.Score, req.Apply)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			Error(w, http.StatusNotFound, "process_not_found")
			return
		}
		slog.Error("Failed to suggest next step", "error", err, "process_id", processID)
		Error(w, http.StatusInternalServerError, "failed to suggest next step")
		return
	}

	payload := map[string]interface{}{
		"success":   true,
		"completed": result.Completed,
		"applied":   result.Applied,
	}
	if result.Suggestion != nil {
		payload["suggestion"] = result.Suggestion.String()
		payload["rationale"] = result.Rationale
		payload["confidence"] = result.Confidence
	} else {
		payload["suggestion"] = nil
	}
	JSON(w, http.StatusOK, payload)
}
