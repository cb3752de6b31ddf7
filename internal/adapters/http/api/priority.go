package api

import (
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/okian/rota/internal/domain/ranking"
	"github.com/okian/rota/pkg/logger"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func paramValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

type priorityParams struct {
	EventID string `validate:"required,uuid"`
}

// PriorityHandler serves the per-event priority lists.
type PriorityHandler struct {
	deps Dependencies
	log  logger.Logger
}

// NewPriorityHandler creates a new priority handler.
func NewPriorityHandler(deps Dependencies, log logger.Logger) *PriorityHandler {
	return &PriorityHandler{deps: deps, log: log}
}

// HandleGetPriority handles GET /events/{eventID}/priority requests.
func (h *PriorityHandler) HandleGetPriority(w http.ResponseWriter, r *http.Request) {
	params := priorityParams{EventID: chi.URLParam(r, "eventID")}
	if err := paramValidator().Struct(params); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrEventID)
		return
	}
	id, err := uuid.Parse(params.EventID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrEventID)
		return
	}

	res, err := h.deps.Priority(r.Context(), id)
	if err != nil {
		h.writeFailure(w, r, id, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *PriorityHandler) writeFailure(w http.ResponseWriter, r *http.Request, id uuid.UUID, err error) {
	switch {
	case errors.Is(err, ranking.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
	case errors.Is(err, ranking.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", ranking.ErrNotFound)
	case errors.Is(err, ranking.ErrInvalidDate):
		writeError(w, http.StatusUnprocessableEntity, "invalid_date", ranking.ErrInvalidDate)
	default:
		h.log.Error(r.Context(), "priority request failed",
			logger.String("event_id", id.String()),
			logger.String("stage", string(ranking.StageOf(err))),
			logger.String("request_id", middleware.GetReqID(r.Context())),
			logger.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", ErrInternal)
	}
}
