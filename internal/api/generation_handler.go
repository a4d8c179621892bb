package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/genpoll/internal/api/shared"
	"github.com/phrazzld/genpoll/internal/events"
	"github.com/phrazzld/genpoll/internal/generation"
	"github.com/phrazzld/genpoll/internal/redact"
	"github.com/phrazzld/genpoll/internal/task"
)

// CreateGenerationRequest is the body of POST /api/generations.
type CreateGenerationRequest struct {
	Provider       string `json:"provider" validate:"required"`
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Width          int    `json:"width,omitempty"`
	Height         int    `json:"height,omitempty"`
	Seed           *int64 `json:"seed,omitempty"`
	Model          string `json:"model,omitempty"`
}

func (r CreateGenerationRequest) generationRequest() generation.Request {
	return generation.Request{
		Prompt:         r.Prompt,
		NegativePrompt: r.NegativePrompt,
		Width:          r.Width,
		Height:         r.Height,
		Seed:           r.Seed,
		Model:          r.Model,
	}
}

// AcceptedResponse is returned when a generation is queued.
type AcceptedResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ErrorDetail describes why a generation failed.
type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// GenerationResponse is the body of GET /api/generations/{id}.
type GenerationResponse struct {
	ID         string             `json:"id"`
	Provider   string             `json:"provider"`
	Status     string             `json:"status"`
	JobState   string             `json:"job_state,omitempty"`
	Result     *generation.Result `json:"result,omitempty"`
	Error      *ErrorDetail       `json:"error,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
	FinishedAt *time.Time         `json:"finished_at,omitempty"`
}

// ProvidersResponse is the body of GET /api/providers.
type ProvidersResponse struct {
	Providers []string `json:"providers"`
}

// TaskReader looks up submitted tasks.
type TaskReader interface {
	GetTask(ctx context.Context, taskID uuid.UUID) (*task.TaskRecord, error)
}

// ProviderLister lists the providers generations can be submitted to.
type ProviderLister interface {
	Names() []string
}

// GenerationHandler handles generation HTTP requests.
type GenerationHandler struct {
	emitter   events.EventEmitter
	tasks     TaskReader
	providers ProviderLister
}

// NewGenerationHandler creates a GenerationHandler. Accepted generations are
// published through emitter and read back from tasks.
func NewGenerationHandler(emitter events.EventEmitter, tasks TaskReader, providers ProviderLister) *GenerationHandler {
	return &GenerationHandler{
		emitter:   emitter,
		tasks:     tasks,
		providers: providers,
	}
}

// RegisterRoutes mounts the generation endpoints on r.
func (h *GenerationHandler) RegisterRoutes(r chi.Router) {
	r.Post("/generations", h.CreateGeneration)
	r.Get("/generations/{id}", h.GetGeneration)
	r.Get("/providers", h.ListProviders)
}

// CreateGeneration handles POST /api/generations.
func (h *GenerationHandler) CreateGeneration(w http.ResponseWriter, r *http.Request) {
	var req CreateGenerationRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}
	genReq := req.generationRequest()
	if err := genReq.Validate(); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, GetSafeErrorMessage(err), err)
		return
	}

	event, err := events.NewTaskRequestEvent(task.TaskTypeGeneration, task.GenerationPayload{
		Provider: req.Provider,
		Request:  genReq,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, GetSafeErrorMessage(err), err)
		return
	}

	if err := h.emitter.EmitEvent(r.Context(), event); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	w.Header().Set("Location", "/api/generations/"+event.ID.String())
	shared.RespondWithJSON(w, r, http.StatusAccepted, AcceptedResponse{
		ID:     event.ID.String(),
		Status: string(task.TaskStatusPending),
	})
}

// GetGeneration handles GET /api/generations/{id}.
func (h *GenerationHandler) GetGeneration(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid generation ID")
		return
	}

	rec, err := h.tasks.GetTask(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	genTask, ok := rec.Task.(*task.GenerationTask)
	if !ok {
		shared.RespondWithError(w, r, http.StatusNotFound, "Generation not found")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, generationResponse(rec, genTask.Snapshot()))
}

// ListProviders handles GET /api/providers.
func (h *GenerationHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, ProvidersResponse{Providers: h.providers.Names()})
}

// generationResponse combines the store's record with the task's snapshot.
// The record's status is authoritative: it also covers tasks rejected or
// abandoned before they ran.
func generationResponse(rec *task.TaskRecord, snap task.GenerationSnapshot) GenerationResponse {
	resp := GenerationResponse{
		ID:        snap.ID.String(),
		Provider:  snap.Provider,
		Status:    string(rec.Status),
		JobState:  string(snap.JobState),
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	if !snap.FinishedAt.IsZero() {
		finished := snap.FinishedAt
		resp.FinishedAt = &finished
	}

	switch {
	case rec.Status == task.TaskStatusCompleted:
		resp.Result = snap.Result
	case rec.Status == task.TaskStatusFailed && snap.Err != nil:
		resp.Error = &ErrorDetail{Kind: generation.Kind(snap.Err), Message: redact.Error(snap.Err)}
	case rec.Status == task.TaskStatusFailed:
		resp.Error = &ErrorDetail{Kind: "internal", Message: redact.String(rec.Error)}
	}
	return resp
}
