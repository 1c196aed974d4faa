// Package scheduling dispatches canonical appointment operations to the
// tenant's vendor adapter and keeps the persisted schedule rows in step with
// what the vendor accepted.
package scheduling

import (
	"context"
	"errors"

	"github.com/caremesh/erpbridge/internal/canonical"
	"github.com/caremesh/erpbridge/internal/erp"
	"github.com/caremesh/erpbridge/internal/faults"
	"github.com/caremesh/erpbridge/internal/schedule"
	"github.com/caremesh/erpbridge/pkg/logging"
)

type adapterSource interface {
	Adapter(integ erp.Integration) (erp.Adapter, error)
}

type scheduleStore interface {
	Upsert(ctx context.Context, sched canonical.Schedule) error
	UpdateStatus(ctx context.Context, workspaceID, integrationID, scheduleCode string, next canonical.Status) (bool, error)
	Get(ctx context.Context, workspaceID, integrationID, scheduleCode string) (*canonical.Schedule, error)
}

// Service is the dispatcher: validate, resolve the adapter, check the
// capability, call the vendor, then reconcile local state.
type Service struct {
	adapters  adapterSource
	schedules scheduleStore
	logger    *logging.Logger
}

func NewService(adapters adapterSource, schedules scheduleStore, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{adapters: adapters, schedules: schedules, logger: logger}
}

func (s *Service) adapterFor(integ erp.Integration, capability erp.Capability, op string) (erp.Adapter, error) {
	adapter, err := s.adapters.Adapter(integ)
	if err != nil {
		return nil, err
	}
	if !adapter.Capabilities().Has(capability) {
		return nil, faults.New(faults.KindNotImplemented, op,
			"vendor %s does not support %s", integ.Vendor, capability)
	}
	return adapter, nil
}

// Create books the appointment at the vendor and persists the resulting
// canonical schedule. The vendor booking is the source of truth: a local
// persistence failure after a successful booking is logged and the booked
// schedule still returned, because the next extraction run converges the row.
func (s *Service) Create(ctx context.Context, integ erp.Integration, req canonical.CreateAppointmentRequest) (*canonical.Schedule, error) {
	const op = "scheduling.Create"
	if err := req.Validate(); err != nil {
		return nil, err
	}
	adapter, err := s.adapterFor(integ, erp.CapCreateAppointment, op)
	if err != nil {
		return nil, err
	}

	sched, err := adapter.CreateAppointment(ctx, req)
	if err != nil {
		return nil, err
	}
	sched.WorkspaceID = integ.WorkspaceID
	sched.IntegrationID = integ.ID

	if err := s.schedules.Upsert(ctx, *sched); err != nil {
		s.logger.Error("booked at vendor but failed to persist schedule",
			"schedule_code", sched.ScheduleCode, "integration_id", integ.ID, "error", err)
	}
	return sched, nil
}

// Cancel cancels at the vendor, then marks the local row canceled. When the
// vendor refuses, the local status is left untouched.
func (s *Service) Cancel(ctx context.Context, integ erp.Integration, req canonical.CancelAppointmentRequest) error {
	const op = "scheduling.Cancel"
	if err := req.Validate(); err != nil {
		return err
	}
	adapter, err := s.adapterFor(integ, erp.CapCancelAppointment, op)
	if err != nil {
		return err
	}
	if err := adapter.CancelAppointment(ctx, req); err != nil {
		return err
	}
	s.markCanceled(ctx, integ, req.AppointmentCode)
	return nil
}

// CancelV2 cancels by the opaque schedule code: the stored row supplies the
// vendor identifiers the v1 shape requires.
func (s *Service) CancelV2(ctx context.Context, integ erp.Integration, req canonical.CancelAppointmentV2Request) error {
	const op = "scheduling.CancelV2"
	if err := req.Validate(); err != nil {
		return err
	}
	sched, err := s.schedules.Get(ctx, integ.WorkspaceID, integ.ID, req.ScheduleCode)
	if err != nil {
		if errors.Is(err, schedule.ErrNotFound) {
			return faults.New(faults.KindBadRequest, op, "unknown schedule %s", req.ScheduleCode)
		}
		return err
	}
	adapter, err := s.adapterFor(integ, erp.CapCancelAppointment, op)
	if err != nil {
		return err
	}
	cancel := canonical.CancelAppointmentRequest{
		AppointmentCode: sched.ScheduleCode,
		PatientCode:     sched.Patient.Code,
		ErpParams:       req.ErpParams,
	}
	if err := adapter.CancelAppointment(ctx, cancel); err != nil {
		return err
	}
	s.markCanceled(ctx, integ, sched.ScheduleCode)
	return nil
}

// Confirm confirms at the vendor and moves the local row to confirmed.
func (s *Service) Confirm(ctx context.Context, integ erp.Integration, scheduleCode string) error {
	const op = "scheduling.Confirm"
	if scheduleCode == "" {
		return faults.New(faults.KindBadRequest, op, "scheduleCode is required")
	}
	adapter, err := s.adapterFor(integ, erp.CapConfirmAppointment, op)
	if err != nil {
		return err
	}
	if err := adapter.ConfirmAppointment(ctx, scheduleCode); err != nil {
		return err
	}
	moved, err := s.schedules.UpdateStatus(ctx, integ.WorkspaceID, integ.ID, scheduleCode, canonical.StatusConfirmed)
	if err != nil && !errors.Is(err, schedule.ErrNotFound) {
		s.logger.Error("confirmed at vendor but failed to update local status",
			"schedule_code", scheduleCode, "error", err)
	}
	if err == nil && !moved {
		s.logger.Info("confirm was a no-op locally: row already terminal",
			"schedule_code", scheduleCode)
	}
	return nil
}

// Reschedule cancels the old booking and books the replacement. The old row
// is marked canceled and the new schedule persisted.
func (s *Service) Reschedule(ctx context.Context, integ erp.Integration, req canonical.RescheduleAppointmentRequest) (*canonical.Schedule, error) {
	const op = "scheduling.Reschedule"
	if err := req.Validate(); err != nil {
		return nil, err
	}
	adapter, err := s.adapterFor(integ, erp.CapRescheduleAppointment, op)
	if err != nil {
		return nil, err
	}

	sched, err := adapter.RescheduleAppointment(ctx, req)
	if err != nil {
		return nil, err
	}
	sched.WorkspaceID = integ.WorkspaceID
	sched.IntegrationID = integ.ID

	s.markCanceled(ctx, integ, req.ScheduleToCancelCode)
	if err := s.schedules.Upsert(ctx, *sched); err != nil {
		s.logger.Error("rescheduled at vendor but failed to persist schedule",
			"schedule_code", sched.ScheduleCode, "integration_id", integ.ID, "error", err)
	}
	return sched, nil
}

// Slots lists available appointment slots from the vendor.
func (s *Service) Slots(ctx context.Context, integ erp.Integration, req canonical.SlotsRequest) ([]canonical.Slot, error) {
	const op = "scheduling.Slots"
	if err := req.Validate(); err != nil {
		return nil, err
	}
	adapter, err := s.adapterFor(integ, erp.CapListAvailableSlots, op)
	if err != nil {
		return nil, err
	}
	return adapter.ListAvailableSlots(ctx, req)
}

// Value prices a prospective appointment at the vendor.
func (s *Service) Value(ctx context.Context, integ erp.Integration, req canonical.AppointmentValueRequest) (*canonical.AppointmentValue, error) {
	const op = "scheduling.Value"
	if err := req.Validate(); err != nil {
		return nil, err
	}
	adapter, err := s.adapterFor(integ, erp.CapAppointmentValue, op)
	if err != nil {
		return nil, err
	}
	return adapter.GetAppointmentValue(ctx, req)
}

// markCanceled moves the local row to canceled after the vendor accepted a
// cancellation. The row may predate extraction or already be terminal; both
// are tolerable, the next sync converges it.
func (s *Service) markCanceled(ctx context.Context, integ erp.Integration, scheduleCode string) {
	_, err := s.schedules.UpdateStatus(ctx, integ.WorkspaceID, integ.ID, scheduleCode, canonical.StatusCanceled)
	if err != nil && !errors.Is(err, schedule.ErrNotFound) {
		s.logger.Error("canceled at vendor but failed to update local status",
			"schedule_code", scheduleCode, "error", err)
	}
}
