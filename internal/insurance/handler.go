package insurance

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/caremesh/erpbridge/internal/api"
	"github.com/caremesh/erpbridge/pkg/logging"
)

type planSource interface {
	ActivePlan(ctx context.Context, providerTag, nationalID string) (*PlanRef, error)
}

// Handler serves GET /insurance/{provider}/{nationalID}.
type Handler struct {
	lookup planSource
	logger *logging.Logger
}

func NewHandler(lookup planSource, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{lookup: lookup, logger: logger}
}

func (h *Handler) ActivePlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.lookup.ActivePlan(r.Context(),
		chi.URLParam(r, "provider"), chi.URLParam(r, "nationalID"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			api.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "no active plan"})
			return
		}
		api.WriteError(w, h.logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, plan)
}
