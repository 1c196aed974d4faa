package scheduling

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caremesh/erpbridge/internal/canonical"
	"github.com/caremesh/erpbridge/internal/erp"
	"github.com/caremesh/erpbridge/internal/faults"
	"github.com/caremesh/erpbridge/internal/schedule"
)

type fakeAdapter struct {
	caps erp.CapabilitySet

	created   *canonical.Schedule
	createErr error

	cancelReqs []canonical.CancelAppointmentRequest
	cancelErr  error

	confirmed  []string
	confirmErr error

	rescheduled   *canonical.Schedule
	rescheduleErr error

	slots []canonical.Slot
	value *canonical.AppointmentValue
}

func (f *fakeAdapter) Vendor() erp.Vendor              { return erp.VendorMedware }
func (f *fakeAdapter) Capabilities() erp.CapabilitySet { return f.caps }
func (f *fakeAdapter) CreateAppointment(context.Context, canonical.CreateAppointmentRequest) (*canonical.Schedule, error) {
	return f.created, f.createErr
}
func (f *fakeAdapter) CancelAppointment(_ context.Context, req canonical.CancelAppointmentRequest) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelReqs = append(f.cancelReqs, req)
	return nil
}
func (f *fakeAdapter) ConfirmAppointment(_ context.Context, scheduleCode string) error {
	if f.confirmErr != nil {
		return f.confirmErr
	}
	f.confirmed = append(f.confirmed, scheduleCode)
	return nil
}
func (f *fakeAdapter) RescheduleAppointment(context.Context, canonical.RescheduleAppointmentRequest) (*canonical.Schedule, error) {
	return f.rescheduled, f.rescheduleErr
}
func (f *fakeAdapter) ListAvailableSlots(context.Context, canonical.SlotsRequest) ([]canonical.Slot, error) {
	return f.slots, nil
}
func (f *fakeAdapter) ListSchedulesToConfirm(context.Context, canonical.ListSchedulesToConfirmRequest) ([]canonical.Schedule, error) {
	panic("not used")
}
func (f *fakeAdapter) ListReferenceEntities(context.Context, canonical.ReferenceKind) ([]canonical.Entity, error) {
	panic("not used")
}
func (f *fakeAdapter) GetAppointmentValue(context.Context, canonical.AppointmentValueRequest) (*canonical.AppointmentValue, error) {
	return f.value, nil
}

type fakeAdapterSource struct {
	adapter erp.Adapter
	err     error
}

func (f *fakeAdapterSource) Adapter(erp.Integration) (erp.Adapter, error) {
	return f.adapter, f.err
}

type statusChange struct {
	scheduleCode string
	next         canonical.Status
}

type fakeScheduleStore struct {
	upserted      []canonical.Schedule
	upsertErr     error
	statusChanges []statusChange
	updateErr     error
	stored        *canonical.Schedule
	getErr        error
}

func (f *fakeScheduleStore) Upsert(_ context.Context, sched canonical.Schedule) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, sched)
	return nil
}

func (f *fakeScheduleStore) UpdateStatus(_ context.Context, _, _, scheduleCode string, next canonical.Status) (bool, error) {
	if f.updateErr != nil {
		return false, f.updateErr
	}
	f.statusChanges = append(f.statusChanges, statusChange{scheduleCode, next})
	return true, nil
}

func (f *fakeScheduleStore) Get(context.Context, string, string, string) (*canonical.Schedule, error) {
	return f.stored, f.getErr
}

func allCaps() erp.CapabilitySet {
	return erp.CapabilitySet{
		erp.CapCreateAppointment:     true,
		erp.CapCancelAppointment:     true,
		erp.CapConfirmAppointment:    true,
		erp.CapRescheduleAppointment: true,
		erp.CapListAvailableSlots:    true,
		erp.CapAppointmentValue:      true,
	}
}

func testIntegration() erp.Integration {
	return erp.Integration{ID: "int-1", WorkspaceID: "ws-1", Vendor: erp.VendorMedware}
}

func validCreate() canonical.CreateAppointmentRequest {
	return canonical.CreateAppointmentRequest{
		Patient:     canonical.PatientParam{Code: "P-1", Name: "Joana Reis"},
		Appointment: canonical.AppointmentParam{Code: "AG-1", Date: "2026-09-14T10:00:00"},
		Insurance:   canonical.CodeRef{Code: "INS-1"},
		Procedure:   canonical.ProcedureParam{Code: "PR-1", SpecialityCode: "SP-1", SpecialityType: "C"},
	}
}

func TestCreatePersistsBookedSchedule(t *testing.T) {
	adapter := &fakeAdapter{
		caps:    allCaps(),
		created: &canonical.Schedule{ScheduleCode: "SCH-1", Status: canonical.StatusExtracted},
	}
	store := &fakeScheduleStore{}
	svc := NewService(&fakeAdapterSource{adapter: adapter}, store, nil)

	sched, err := svc.Create(context.Background(), testIntegration(), validCreate())
	require.NoError(t, err)
	assert.Equal(t, "ws-1", sched.WorkspaceID)
	assert.Equal(t, "int-1", sched.IntegrationID)
	require.Len(t, store.upserted, 1)
	assert.Equal(t, "SCH-1", store.upserted[0].ScheduleCode)
}

func TestCreateInvalidRequestNeverReachesVendor(t *testing.T) {
	svc := NewService(&fakeAdapterSource{}, &fakeScheduleStore{}, nil)
	_, err := svc.Create(context.Background(), testIntegration(), canonical.CreateAppointmentRequest{})
	require.Error(t, err)
	assert.True(t, faults.IsKind(err, faults.KindBadRequest))
}

func TestCreateMissingCapability(t *testing.T) {
	adapter := &fakeAdapter{caps: erp.CapabilitySet{}}
	svc := NewService(&fakeAdapterSource{adapter: adapter}, &fakeScheduleStore{}, nil)
	_, err := svc.Create(context.Background(), testIntegration(), validCreate())
	require.Error(t, err)
	assert.True(t, faults.IsKind(err, faults.KindNotImplemented))
}

func TestCreateSurvivesPersistenceFailure(t *testing.T) {
	adapter := &fakeAdapter{caps: allCaps(), created: &canonical.Schedule{ScheduleCode: "SCH-1"}}
	store := &fakeScheduleStore{upsertErr: assert.AnError}
	svc := NewService(&fakeAdapterSource{adapter: adapter}, store, nil)

	sched, err := svc.Create(context.Background(), testIntegration(), validCreate())
	require.NoError(t, err)
	assert.Equal(t, "SCH-1", sched.ScheduleCode)
}

func TestCancelVendorFailureLeavesStatusUntouched(t *testing.T) {
	adapter := &fakeAdapter{
		caps:      allCaps(),
		cancelErr: faults.New(faults.KindUpstreamError, "medware.CancelAppointment", "vendor said no"),
	}
	store := &fakeScheduleStore{}
	svc := NewService(&fakeAdapterSource{adapter: adapter}, store, nil)

	err := svc.Cancel(context.Background(), testIntegration(), canonical.CancelAppointmentRequest{
		AppointmentCode: "SCH-1", PatientCode: "P-1",
	})
	require.Error(t, err)
	assert.True(t, faults.IsKind(err, faults.KindUpstreamError))
	assert.Empty(t, store.statusChanges)
}

func TestCancelMarksLocalRowCanceled(t *testing.T) {
	adapter := &fakeAdapter{caps: allCaps()}
	store := &fakeScheduleStore{}
	svc := NewService(&fakeAdapterSource{adapter: adapter}, store, nil)

	err := svc.Cancel(context.Background(), testIntegration(), canonical.CancelAppointmentRequest{
		AppointmentCode: "SCH-1", PatientCode: "P-1",
	})
	require.NoError(t, err)
	require.Len(t, store.statusChanges, 1)
	assert.Equal(t, statusChange{"SCH-1", canonical.StatusCanceled}, store.statusChanges[0])
}

func TestCancelV2ResolvesStoredRow(t *testing.T) {
	adapter := &fakeAdapter{caps: allCaps()}
	store := &fakeScheduleStore{
		stored: &canonical.Schedule{
			ScheduleCode: "SCH-7",
			Patient:      canonical.Patient{Code: "P-9"},
		},
	}
	svc := NewService(&fakeAdapterSource{adapter: adapter}, store, nil)

	err := svc.CancelV2(context.Background(), testIntegration(), canonical.CancelAppointmentV2Request{
		ScheduleCode: "SCH-7",
		ErpParams:    map[string]any{"unidade": "centro"},
	})
	require.NoError(t, err)
	require.Len(t, adapter.cancelReqs, 1)
	assert.Equal(t, "P-9", adapter.cancelReqs[0].PatientCode)
	assert.Equal(t, map[string]any{"unidade": "centro"}, adapter.cancelReqs[0].ErpParams)
	require.Len(t, store.statusChanges, 1)
	assert.Equal(t, canonical.StatusCanceled, store.statusChanges[0].next)
}

func TestCancelV2UnknownScheduleIsBadRequest(t *testing.T) {
	store := &fakeScheduleStore{getErr: schedule.ErrNotFound}
	svc := NewService(&fakeAdapterSource{}, store, nil)

	err := svc.CancelV2(context.Background(), testIntegration(), canonical.CancelAppointmentV2Request{ScheduleCode: "ghost"})
	require.Error(t, err)
	assert.True(t, faults.IsKind(err, faults.KindBadRequest))
}

func TestConfirmUpdatesLocalStatus(t *testing.T) {
	adapter := &fakeAdapter{caps: allCaps()}
	store := &fakeScheduleStore{}
	svc := NewService(&fakeAdapterSource{adapter: adapter}, store, nil)

	require.NoError(t, svc.Confirm(context.Background(), testIntegration(), "SCH-1"))
	assert.Equal(t, []string{"SCH-1"}, adapter.confirmed)
	require.Len(t, store.statusChanges, 1)
	assert.Equal(t, canonical.StatusConfirmed, store.statusChanges[0].next)
}

func TestRescheduleCancelsOldAndPersistsNew(t *testing.T) {
	adapter := &fakeAdapter{
		caps:        allCaps(),
		rescheduled: &canonical.Schedule{ScheduleCode: "SCH-NEW"},
	}
	store := &fakeScheduleStore{}
	svc := NewService(&fakeAdapterSource{adapter: adapter}, store, nil)

	sched, err := svc.Reschedule(context.Background(), testIntegration(), canonical.RescheduleAppointmentRequest{
		ScheduleToCancelCode: "SCH-OLD",
		Replacement:          validCreate(),
	})
	require.NoError(t, err)
	assert.Equal(t, "SCH-NEW", sched.ScheduleCode)
	require.Len(t, store.statusChanges, 1)
	assert.Equal(t, statusChange{"SCH-OLD", canonical.StatusCanceled}, store.statusChanges[0])
	require.Len(t, store.upserted, 1)
	assert.Equal(t, "SCH-NEW", store.upserted[0].ScheduleCode)
}

func TestSlotsValidatesWindow(t *testing.T) {
	svc := NewService(&fakeAdapterSource{}, &fakeScheduleStore{}, nil)
	_, err := svc.Slots(context.Background(), testIntegration(), canonical.SlotsRequest{StartDate: "2026-09-14"})
	require.Error(t, err)
	assert.True(t, faults.IsKind(err, faults.KindBadRequest))
}

func TestValueDispatches(t *testing.T) {
	adapter := &fakeAdapter{
		caps:  allCaps(),
		value: &canonical.AppointmentValue{AmountCents: 25000, Currency: "BRL"},
	}
	svc := NewService(&fakeAdapterSource{adapter: adapter}, &fakeScheduleStore{}, nil)

	value, err := svc.Value(context.Background(), testIntegration(), canonical.AppointmentValueRequest{
		Insurance: canonical.CodeRef{Code: "INS-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(25000), value.AmountCents)
}
