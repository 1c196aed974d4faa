package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/caremesh/erpbridge/internal/api"
	"github.com/caremesh/erpbridge/internal/canonical"
	"github.com/caremesh/erpbridge/internal/erp"
	"github.com/caremesh/erpbridge/internal/faults"
	"github.com/caremesh/erpbridge/internal/integration"
	"github.com/caremesh/erpbridge/internal/tenancy"
	"github.com/caremesh/erpbridge/pkg/logging"
)

type integrationSource interface {
	Get(ctx context.Context, workspaceID, id string) (*erp.Integration, error)
}

type runner interface {
	Run(ctx context.Context, integ erp.Integration, req canonical.ListSchedulesToConfirmRequest) (*Result, error)
}

type runGetter interface {
	Get(ctx context.Context, workspaceID, id string) (*Run, error)
}

// Handler serves the extraction endpoints.
type Handler struct {
	integrations integrationSource
	tracker      runner
	runs         runGetter
	logger       *logging.Logger
}

func NewHandler(integrations integrationSource, tracker runner, runs runGetter, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{integrations: integrations, tracker: tracker, runs: runs, logger: logger}
}

type startRequest struct {
	IntegrationID string `json:"integrationId"`
	canonical.ListSchedulesToConfirmRequest
}

// Start handles POST /extractions: resolve the integration, run the tracked
// extraction, return the run summary.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	const op = "extraction.start"

	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		api.WriteError(w, h.logger, faults.New(faults.KindBadRequest, op, "missing workspace"))
		return
	}

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, h.logger, faults.Wrap(faults.KindBadRequest, op, err))
		return
	}
	// Routed as /integrations/{integrationID}/extractions; the body field is
	// accepted for direct callers.
	integrationID := chi.URLParam(r, "integrationID")
	if integrationID == "" {
		integrationID = req.IntegrationID
	}
	if integrationID == "" {
		api.WriteError(w, h.logger, faults.New(faults.KindBadRequest, op, "integrationId is required"))
		return
	}

	integ, err := h.integrations.Get(r.Context(), workspaceID, integrationID)
	if err != nil {
		if errors.Is(err, integration.ErrNotFound) {
			api.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "integration not found"})
			return
		}
		api.WriteError(w, h.logger, err)
		return
	}

	result, err := h.tracker.Run(r.Context(), *integ, req.ListSchedulesToConfirmRequest)
	if err != nil {
		if result != nil && result.RunID != "" {
			api.WriteJSON(w, api.StatusForKind(faults.KindOf(err)), map[string]string{
				"error": err.Error(),
				"kind":  faults.KindOf(err).String(),
				"runId": result.RunID,
			})
			return
		}
		api.WriteError(w, h.logger, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, result)
}

// GetRun handles GET /extractions/{runID}.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	const op = "extraction.get"

	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		api.WriteError(w, h.logger, faults.New(faults.KindBadRequest, op, "missing workspace"))
		return
	}

	run, err := h.runs.Get(r.Context(), workspaceID, chi.URLParam(r, "runID"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			api.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
			return
		}
		api.WriteError(w, h.logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, run)
}
