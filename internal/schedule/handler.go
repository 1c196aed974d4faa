package schedule

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/caremesh/erpbridge/internal/api"
	"github.com/caremesh/erpbridge/internal/canonical"
	"github.com/caremesh/erpbridge/internal/faults"
	"github.com/caremesh/erpbridge/internal/tenancy"
	"github.com/caremesh/erpbridge/pkg/logging"
)

type lister interface {
	List(ctx context.Context, q ListQuery) (*Page, error)
}

// Handler serves the persisted-schedule read endpoints.
type Handler struct {
	store  lister
	logger *logging.Logger
}

func NewHandler(store lister, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// List handles GET /schedules. startDate and endDate are required; all other
// filters narrow the window.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		api.WriteError(w, h.logger, faults.New(faults.KindBadRequest, "schedule.list", "missing workspace"))
		return
	}

	q, err := parseListQuery(r)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	q.WorkspaceID = workspaceID

	page, err := h.store.List(r.Context(), *q)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, page)
}

func parseListQuery(r *http.Request) (*ListQuery, error) {
	const op = "schedule.list"
	values := r.URL.Query()

	start, err := parseDateParam(values.Get("startDate"))
	if err != nil || start.IsZero() {
		return nil, faults.New(faults.KindBadRequest, op, "startDate is required as YYYY-MM-DD or RFC 3339")
	}
	end, err := parseDateParam(values.Get("endDate"))
	if err != nil || end.IsZero() {
		return nil, faults.New(faults.KindBadRequest, op, "endDate is required as YYYY-MM-DD or RFC 3339")
	}
	if end.Before(start) {
		return nil, faults.New(faults.KindBadRequest, op, "endDate precedes startDate")
	}

	q := &ListQuery{
		StartDate:            start,
		EndDate:              end,
		IntegrationID:        values.Get("integrationId"),
		DoctorCode:           values.Get("doctorCode"),
		ProcedureCode:        values.Get("procedureCode"),
		SpecialityCode:       values.Get("specialityCode"),
		OrganizationUnitCode: values.Get("organizationUnitCode"),
		PatientCode:          values.Get("patientCode"),
		PatientName:          values.Get("patientName"),
	}

	if raw := values.Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || !canonical.Status(n).Valid() {
				return nil, faults.New(faults.KindBadRequest, op, "unknown status %q", part)
			}
			q.Statuses = append(q.Statuses, canonical.Status(n))
		}
	}

	if raw := values.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, faults.New(faults.KindBadRequest, op, "limit must be a positive integer")
		}
		q.Limit = n
	}
	if raw := values.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, faults.New(faults.KindBadRequest, op, "page must be a positive integer")
		}
		limit := q.Limit
		if limit <= 0 {
			limit = defaultPageSize
		}
		if limit > maxPageSize {
			limit = maxPageSize
		}
		q.Offset = (n - 1) * limit
	}

	return q, nil
}

// parseDateParam accepts either a bare date or a full RFC 3339 timestamp.
func parseDateParam(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
