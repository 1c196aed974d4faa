package refdata

import (
	"context"
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

type catalogSource interface {
	List(ctx context.Context, integ erp.Integration, kind canonical.ReferenceKind) ([]canonical.Entity, error)
}

// Handler serves GET /integrations/{integrationID}/refs/{kind}.
type Handler struct {
	integrations integrationSource
	catalogs     catalogSource
	logger       *logging.Logger
}

func NewHandler(integrations integrationSource, catalogs catalogSource, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{integrations: integrations, catalogs: catalogs, logger: logger}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "refdata.list"

	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		api.WriteError(w, h.logger, faults.New(faults.KindBadRequest, op, "missing workspace"))
		return
	}
	integ, err := h.integrations.Get(r.Context(), workspaceID, chi.URLParam(r, "integrationID"))
	if err != nil {
		if errors.Is(err, integration.ErrNotFound) {
			api.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "integration not found"})
			return
		}
		api.WriteError(w, h.logger, err)
		return
	}

	entities, err := h.catalogs.List(r.Context(), *integ, canonical.ReferenceKind(chi.URLParam(r, "kind")))
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"data": entities})
}
