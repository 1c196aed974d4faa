package scheduling

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

type dispatcher interface {
	Create(ctx context.Context, integ erp.Integration, req canonical.CreateAppointmentRequest) (*canonical.Schedule, error)
	Cancel(ctx context.Context, integ erp.Integration, req canonical.CancelAppointmentRequest) error
	CancelV2(ctx context.Context, integ erp.Integration, req canonical.CancelAppointmentV2Request) error
	Confirm(ctx context.Context, integ erp.Integration, scheduleCode string) error
	Reschedule(ctx context.Context, integ erp.Integration, req canonical.RescheduleAppointmentRequest) (*canonical.Schedule, error)
	Slots(ctx context.Context, integ erp.Integration, req canonical.SlotsRequest) ([]canonical.Slot, error)
	Value(ctx context.Context, integ erp.Integration, req canonical.AppointmentValueRequest) (*canonical.AppointmentValue, error)
}

// Handler serves the per-integration appointment endpoints.
type Handler struct {
	integrations integrationSource
	service      dispatcher
	logger       *logging.Logger
}

func NewHandler(integrations integrationSource, service dispatcher, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{integrations: integrations, service: service, logger: logger}
}

// resolve loads the integration named in the route, scoped to the caller's
// workspace. It writes the response itself on failure.
func (h *Handler) resolve(w http.ResponseWriter, r *http.Request, op string) (*erp.Integration, bool) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		api.WriteError(w, h.logger, faults.New(faults.KindBadRequest, op, "missing workspace"))
		return nil, false
	}
	integ, err := h.integrations.Get(r.Context(), workspaceID, chi.URLParam(r, "integrationID"))
	if err != nil {
		if errors.Is(err, integration.ErrNotFound) {
			api.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "integration not found"})
			return nil, false
		}
		api.WriteError(w, h.logger, err)
		return nil, false
	}
	return integ, true
}

func decodeBody[T any](w http.ResponseWriter, r *http.Request, logger *logging.Logger, op string) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, logger, faults.Wrap(faults.KindBadRequest, op, err))
		return req, false
	}
	return req, true
}

// CreateAppointment handles POST /integrations/{integrationID}/appointments.
func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	const op = "scheduling.create"
	integ, ok := h.resolve(w, r, op)
	if !ok {
		return
	}
	req, ok := decodeBody[canonical.CreateAppointmentRequest](w, r, h.logger, op)
	if !ok {
		return
	}
	sched, err := h.service.Create(r.Context(), *integ, req)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, sched)
}

// CancelAppointment handles POST /integrations/{integrationID}/appointments/cancel.
func (h *Handler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	const op = "scheduling.cancel"
	integ, ok := h.resolve(w, r, op)
	if !ok {
		return
	}
	req, ok := decodeBody[canonical.CancelAppointmentRequest](w, r, h.logger, op)
	if !ok {
		return
	}
	if err := h.service.Cancel(r.Context(), *integ, req); err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"status": "canceled"})
}

// CancelAppointmentV2 handles POST /integrations/{integrationID}/appointments/cancel/v2.
func (h *Handler) CancelAppointmentV2(w http.ResponseWriter, r *http.Request) {
	const op = "scheduling.cancelV2"
	integ, ok := h.resolve(w, r, op)
	if !ok {
		return
	}
	req, ok := decodeBody[canonical.CancelAppointmentV2Request](w, r, h.logger, op)
	if !ok {
		return
	}
	if err := h.service.CancelV2(r.Context(), *integ, req); err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"status": "canceled"})
}

type confirmRequest struct {
	ScheduleCode string `json:"scheduleCode"`
}

// ConfirmAppointment handles POST /integrations/{integrationID}/appointments/confirm.
func (h *Handler) ConfirmAppointment(w http.ResponseWriter, r *http.Request) {
	const op = "scheduling.confirm"
	integ, ok := h.resolve(w, r, op)
	if !ok {
		return
	}
	req, ok := decodeBody[confirmRequest](w, r, h.logger, op)
	if !ok {
		return
	}
	if err := h.service.Confirm(r.Context(), *integ, req.ScheduleCode); err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"status": "confirmed"})
}

// RescheduleAppointment handles POST /integrations/{integrationID}/appointments/reschedule.
func (h *Handler) RescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	const op = "scheduling.reschedule"
	integ, ok := h.resolve(w, r, op)
	if !ok {
		return
	}
	req, ok := decodeBody[canonical.RescheduleAppointmentRequest](w, r, h.logger, op)
	if !ok {
		return
	}
	sched, err := h.service.Reschedule(r.Context(), *integ, req)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, sched)
}

// AppointmentValue handles POST /integrations/{integrationID}/appointments/value.
func (h *Handler) AppointmentValue(w http.ResponseWriter, r *http.Request) {
	const op = "scheduling.value"
	integ, ok := h.resolve(w, r, op)
	if !ok {
		return
	}
	req, ok := decodeBody[canonical.AppointmentValueRequest](w, r, h.logger, op)
	if !ok {
		return
	}
	value, err := h.service.Value(r.Context(), *integ, req)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, value)
}

// ListSlots handles GET /integrations/{integrationID}/slots.
func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	const op = "scheduling.slots"
	integ, ok := h.resolve(w, r, op)
	if !ok {
		return
	}
	values := r.URL.Query()
	req := canonical.SlotsRequest{
		StartDate: values.Get("startDate"),
		EndDate:   values.Get("endDate"),
	}
	if code := values.Get("doctorCode"); code != "" {
		req.Doctor = &canonical.OptionalCodeRef{Code: code}
	}
	if code := values.Get("procedureCode"); code != "" {
		req.Procedure = &canonical.OptionalCodeRef{Code: code}
	}
	if code := values.Get("organizationUnitCode"); code != "" {
		req.OrganizationUnit = &canonical.OptionalCodeRef{Code: code}
	}
	slots, err := h.service.Slots(r.Context(), *integ, req)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"slots": slots})
}
